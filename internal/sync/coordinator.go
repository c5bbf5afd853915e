// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sync orchestrates upload, status-check, request-translation and
// download operations against the TMS, translating transport errors into
// status transitions. It is the only component that interprets transport
// errors; everything below it either recovers locally or lets them bubble
// here.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/murrow/lingotek-sub000/internal/document"
	"github.com/murrow/lingotek-sub000/internal/entity"
	"github.com/murrow/lingotek-sub000/internal/graph"
	"github.com/murrow/lingotek-sub000/internal/lingotek"
	"github.com/murrow/lingotek-sub000/internal/locale"
	"github.com/murrow/lingotek-sub000/internal/model"
	"github.com/murrow/lingotek-sub000/internal/status"
	"github.com/murrow/lingotek-sub000/internal/store"
)

// Precondition errors.
var (
	// ErrNotUploaded indicates a target operation on an entity that has no
	// TMS document yet.
	ErrNotUploaded = errors.New("sync: entity has not been uploaded")
	// ErrDocumentIDConflict indicates the replacement id from a
	// document-locked error is already tracked by a different local entity.
	ErrDocumentIDConflict = errors.New("sync: replacement document id already tracked by another entity")
	// ErrTranslationNotReady indicates a download attempt on a target that
	// was never requested or is not in a downloadable state.
	ErrTranslationNotReady = errors.New("sync: translation target is not downloadable")
)

// Profiles is the read-only profile lookup the coordinator needs.
// *store.Queries satisfies it.
type Profiles interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
}

// Config tunes coordinator behavior.
type Config struct {
	// DefaultProfileID names the profile used for entities tracked without
	// an explicit one.
	DefaultProfileID string
	// TargetLangcodes are the site languages eligible as translation
	// targets.
	TargetLangcodes []string
	// InterimDownloads marks partially translated targets INTERMEDIATE
	// instead of PENDING.
	InterimDownloads bool
	// BaseURL is used for user-facing references in messages.
	BaseURL string
}

// Coordinator drives the document synchronization state machine.
type Coordinator struct {
	entities entity.Store
	tms      lingotek.Transport
	tracker  *status.Tracker
	mapper   *locale.Mapper
	ser      *document.Serializer
	deser    *document.Deserializer
	walker   *graph.Walker
	policy   entity.EnablementPolicy
	profiles Profiles
	cfg      Config
	logger   *slog.Logger
}

// NewCoordinator wires a Coordinator from its collaborators.
func NewCoordinator(
	entities entity.Store,
	tms lingotek.Transport,
	tracker *status.Tracker,
	mapper *locale.Mapper,
	ser *document.Serializer,
	deser *document.Deserializer,
	walker *graph.Walker,
	policy entity.EnablementPolicy,
	profiles Profiles,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if cfg.DefaultProfileID == "" {
		cfg.DefaultProfileID = "manual"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		entities: entities,
		tms:      tms,
		tracker:  tracker,
		mapper:   mapper,
		ser:      ser,
		deser:    deser,
		walker:   walker,
		policy:   policy,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
	}
}

func (c *Coordinator) profile(ctx context.Context, id string) (model.Profile, error) {
	if id == "" {
		id = c.cfg.DefaultProfileID
	}
	return c.profiles.GetProfile(ctx, id)
}

// entityTitle picks a human-readable document title.
func entityTitle(e *entity.Entity) string {
	if f, ok := e.Fields["title"]; ok && len(f.Values) > 0 && f.Values[0].Text != "" {
		return f.Values[0].Text
	}
	return e.Type + "/" + e.ID
}

// Upload serializes the entity graph and sends it to the TMS. Re-uploading
// unchanged content is a no-op. On success the source document carries the
// TMS id, the uploaded revision and the content hash, in IMPORTING state.
func (c *Coordinator) Upload(ctx context.Context, entityType, entityID string) error {
	e, err := c.entities.Load(ctx, entityType, entityID)
	if err != nil {
		return fmt.Errorf("sync: loading %s/%s: %w", entityType, entityID, err)
	}

	doc, err := c.tracker.EnsureSource(ctx, status.EnsureSourceParams{
		EntityType: entityType,
		EntityID:   entityID,
		RevisionID: e.Revision,
		SourceLang: e.Langcode,
		ProfileID:  c.cfg.DefaultProfileID,
	})
	if err != nil {
		return err
	}

	prof, err := c.profile(ctx, doc.ProfileID)
	if err != nil {
		return fmt.Errorf("sync: loading profile %q: %w", doc.ProfileID, err)
	}

	payload, err := c.ser.Serialize(ctx, e, &prof)
	if err != nil {
		return err
	}
	hash := document.Hash(payload)

	// Idempotent re-upload: unchanged content keeps statuses untouched.
	if doc.Uploaded() && hash == doc.ContentHash &&
		(doc.Status == model.SourceCurrent || doc.Status == model.SourceImporting) {
		c.logger.Debug("content unchanged, skipping upload",
			"entity_type", entityType, "entity_id", entityID)
		return nil
	}

	settings := lingotek.UploadSettings{
		Title:        entityTitle(e),
		SourceLocale: c.mapper.ToTMSLocale(e.Langcode),
		ProjectID:    prof.ProjectID,
		WorkflowID:   prof.WorkflowID,
		VaultID:      prof.VaultID,
	}

	documentID := doc.DocumentID
	if doc.Uploaded() {
		err = c.tms.UpdateDocument(ctx, doc.DocumentID, payload, settings)
	} else {
		documentID, err = c.tms.UploadDocument(ctx, payload, settings)
	}
	if err != nil {
		return c.handleUploadError(ctx, &doc, payload, settings, err)
	}

	return c.finishUpload(ctx, &doc, e, documentID, hash)
}

// finishUpload records a successful upload and reconciles embedded child
// documents and target statuses.
func (c *Coordinator) finishUpload(ctx context.Context, doc *model.SourceDocument, e *entity.Entity, documentID, hash string) error {
	if err := c.tracker.RecordUpload(ctx, doc, documentID, e.Revision, hash); err != nil {
		return err
	}

	// A re-upload invalidates completed targets.
	targets, err := c.tracker.Targets(ctx, doc)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if t.Status == model.TargetCurrent {
			if err := c.tracker.SetTargetStatus(ctx, doc, t.Locale, model.TargetEdited); err != nil {
				return err
			}
		}
	}

	if err := c.reconcileChildren(ctx, doc, e); err != nil {
		return err
	}

	c.logger.Info("document uploaded",
		"entity_type", doc.EntityType, "entity_id", doc.EntityID,
		"document_id", documentID, "category", model.EventCategoryUpload)
	return nil
}

// reconcileChildren keeps child tracking records aligned with the entities
// currently reachable from the root. Children that dropped out of the graph
// lose their metadata so a re-added entity with a different identity never
// inherits stale translation state.
func (c *Coordinator) reconcileChildren(ctx context.Context, doc *model.SourceDocument, root *entity.Entity) error {
	result, err := c.walker.Walk(ctx, root)
	if err != nil {
		return err
	}

	reachable := make(map[entity.Ref]bool)
	for _, node := range result.Nodes[1:] {
		if !node.Translatable || node.Revisit {
			continue
		}
		ref := entity.Ref{Type: node.EntityType, ID: node.EntityID}
		reachable[ref] = true
		if _, err := c.tracker.EnsureSource(ctx, status.EnsureSourceParams{
			EntityType: node.EntityType,
			EntityID:   node.EntityID,
			RevisionID: node.Entity.Revision,
			SourceLang: node.Entity.Langcode,
			ProfileID:  doc.ProfileID,
			ParentID:   doc.ID,
		}); err != nil {
			return err
		}
	}

	children, err := c.tracker.ListChildDocuments(ctx, doc.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if !reachable[entity.Ref{Type: child.EntityType, ID: child.EntityID}] {
			if err := c.tracker.Disassociate(ctx, &child); err != nil {
				return err
			}
		}
	}
	return nil
}

// handleUploadError translates a transport failure into the proper local
// state.
func (c *Coordinator) handleUploadError(ctx context.Context, doc *model.SourceDocument, payload document.Payload, settings lingotek.UploadSettings, err error) error {
	var locked *lingotek.LockedError
	switch {
	case errors.As(err, &locked):
		// The TMS handed back a replacement id. Refuse to adopt an id that
		// already belongs to a different local entity.
		if existing, lookupErr := c.tracker.GetSourceByDocumentID(ctx, locked.NewDocumentID); lookupErr == nil && existing.ID != doc.ID {
			if serr := c.tracker.SetSourceStatus(ctx, doc, model.SourceError); serr != nil {
				return serr
			}
			return fmt.Errorf("%w: %s", ErrDocumentIDConflict, locked.NewDocumentID)
		}
		if serr := c.tracker.ReplaceDocumentID(ctx, doc, locked.NewDocumentID); serr != nil {
			return serr
		}
		if serr := c.tracker.SetSourceStatus(ctx, doc, model.SourceEdited); serr != nil {
			return serr
		}
		c.logger.Warn("document locked upstream, adopted replacement id",
			"entity_type", doc.EntityType, "entity_id", doc.EntityID,
			"document_id", locked.NewDocumentID)
		return fmt.Errorf("sync: upload of %s/%s: %w", doc.EntityType, doc.EntityID, err)

	case errors.Is(err, lingotek.ErrDocumentArchived):
		// Archived upstream: re-issue as a brand new document.
		if serr := c.tracker.SetSourceStatus(ctx, doc, model.SourceArchived); serr != nil {
			return serr
		}
		newID, uploadErr := c.tms.UploadDocument(ctx, payload, settings)
		if uploadErr != nil {
			if serr := c.tracker.SetSourceStatus(ctx, doc, model.SourceError); serr != nil {
				return serr
			}
			return fmt.Errorf("sync: re-uploading archived document: %w", uploadErr)
		}
		e, loadErr := c.entities.Load(ctx, doc.EntityType, doc.EntityID)
		if loadErr != nil {
			return loadErr
		}
		return c.finishUpload(ctx, doc, e, newID, document.Hash(payload))

	case errors.Is(err, lingotek.ErrPaymentRequired):
		if serr := c.tracker.SetSourceStatus(ctx, doc, model.SourceError); serr != nil {
			return serr
		}
		return fmt.Errorf("sync: the Lingotek account requires payment before %s/%s can be processed; resolve billing and retry: %w",
			doc.EntityType, doc.EntityID, err)

	case errors.Is(err, lingotek.ErrProcessedWordsLimit):
		if serr := c.tracker.SetSourceStatus(ctx, doc, model.SourceError); serr != nil {
			return serr
		}
		return fmt.Errorf("sync: the Lingotek account reached its processed-words limit; raise the limit and retry: %w", err)

	default:
		if serr := c.tracker.SetSourceStatus(ctx, doc, model.SourceError); serr != nil {
			return serr
		}
		return fmt.Errorf("sync: upload of %s/%s: %w", doc.EntityType, doc.EntityID, err)
	}
}

// CheckSourceStatus polls the TMS import state. A document the TMS no
// longer knows resets to UNTRACKED so it can be re-uploaded cleanly.
func (c *Coordinator) CheckSourceStatus(ctx context.Context, entityType, entityID string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	if !doc.Uploaded() {
		return fmt.Errorf("%w: %s/%s", ErrNotUploaded, entityType, entityID)
	}

	st, err := c.tms.GetDocumentStatus(ctx, doc.DocumentID)
	switch {
	case errors.Is(err, lingotek.ErrDocumentNotFound):
		c.logger.Warn("document gone upstream, resetting to untracked",
			"entity_type", entityType, "entity_id", entityID,
			"document_id", doc.DocumentID, "category", model.EventCategoryStatus)
		return c.tracker.ResetSource(ctx, &doc)
	case err != nil:
		if serr := c.tracker.SetSourceStatus(ctx, &doc, model.SourceError); serr != nil {
			return serr
		}
		return fmt.Errorf("sync: checking source status of %s/%s: %w", entityType, entityID, err)
	}

	if st.Completed {
		return c.tracker.SetSourceStatus(ctx, &doc, model.SourceCurrent)
	}
	// Still importing: not an error.
	return nil
}

// RequestTranslation asks the TMS for one target locale. Disabled locales
// are a no-op success; an entity without a document id fails fast.
func (c *Coordinator) RequestTranslation(ctx context.Context, entityType, entityID, langcode string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	return c.requestTarget(ctx, &doc, langcode)
}

func (c *Coordinator) requestTarget(ctx context.Context, doc *model.SourceDocument, langcode string) error {
	if !doc.Uploaded() {
		return fmt.Errorf("%w: %s/%s", ErrNotUploaded, doc.EntityType, doc.EntityID)
	}
	if langcode == doc.SourceLang {
		return nil
	}

	tmsLocale := c.mapper.ToTMSLocale(langcode)
	prof, err := c.profile(ctx, doc.ProfileID)
	if err != nil {
		return err
	}
	if prof.TargetDisabled(tmsLocale) {
		// Profile override: record the disabled state once, then no-op.
		target, err := c.tracker.GetTarget(ctx, doc, tmsLocale)
		if err != nil {
			return err
		}
		if target.Status != model.TargetDisabled {
			if err := c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetDisabled); err != nil {
				return err
			}
		}
		return nil
	}

	target, err := c.tracker.GetTarget(ctx, doc, tmsLocale)
	if err != nil {
		return err
	}
	switch target.Status {
	case model.TargetPending, model.TargetIntermediate, model.TargetReady, model.TargetCurrent:
		// Already in flight or done.
		return nil
	}

	if err := c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetRequest); err != nil {
		return err
	}
	if err := c.tms.AddTarget(ctx, doc.DocumentID, tmsLocale, prof.WorkflowFor(tmsLocale), prof.VaultFor(tmsLocale)); err != nil {
		if errors.Is(err, lingotek.ErrDocumentNotFound) {
			return c.tracker.ResetSource(ctx, doc)
		}
		if serr := c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetError); serr != nil {
			return serr
		}
		return fmt.Errorf("sync: requesting %s for %s/%s: %w", tmsLocale, doc.EntityType, doc.EntityID, err)
	}
	return c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetPending)
}

// RequestTranslations requests every configured target locale. One locale's
// failure does not abort the others; failures are aggregated.
func (c *Coordinator) RequestTranslations(ctx context.Context, entityType, entityID string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	var errs []error
	for _, langcode := range c.cfg.TargetLangcodes {
		if err := c.requestTarget(ctx, &doc, langcode); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckTargetStatus polls one target locale's progress.
func (c *Coordinator) CheckTargetStatus(ctx context.Context, entityType, entityID, langcode string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	return c.checkTarget(ctx, &doc, c.mapper.ToTMSLocale(langcode))
}

func (c *Coordinator) checkTarget(ctx context.Context, doc *model.SourceDocument, tmsLocale string) error {
	if !doc.Uploaded() {
		return fmt.Errorf("%w: %s/%s", ErrNotUploaded, doc.EntityType, doc.EntityID)
	}
	prof, err := c.profile(ctx, doc.ProfileID)
	if err != nil {
		return err
	}
	if prof.TargetDisabled(tmsLocale) {
		return nil
	}
	target, err := c.tracker.GetTarget(ctx, doc, tmsLocale)
	if err != nil {
		return err
	}
	if target.Status == model.TargetNone || target.Status == model.TargetCurrent {
		return nil
	}

	progress, err := c.tms.GetTargetStatus(ctx, doc.DocumentID, tmsLocale)
	switch {
	case errors.Is(err, lingotek.ErrDocumentNotFound):
		return c.tracker.ResetSource(ctx, doc)
	case err != nil:
		if serr := c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetError); serr != nil {
			return serr
		}
		return fmt.Errorf("sync: checking %s of %s/%s: %w", tmsLocale, doc.EntityType, doc.EntityID, err)
	}

	switch {
	case progress.Complete:
		return c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetReady)
	case progress.Progress > 0 && c.cfg.InterimDownloads:
		return c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetIntermediate)
	default:
		return c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetPending)
	}
}

// CheckTranslationStatuses polls every known target of an entity.
func (c *Coordinator) CheckTranslationStatuses(ctx context.Context, entityType, entityID string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	targets, err := c.tracker.Targets(ctx, &doc)
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range targets {
		if err := c.checkTarget(ctx, &doc, t.Locale); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DownloadDocument fetches a completed translation and applies it onto the
// revision the document was uploaded against. If the source has since moved
// to a newer draft, that draft is left untouched and the translation
// revision is not promoted.
func (c *Coordinator) DownloadDocument(ctx context.Context, entityType, entityID, langcode string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	return c.downloadTarget(ctx, &doc, c.mapper.ToTMSLocale(langcode))
}

// downloadTarget takes the TMS locale verbatim. Converting a stored locale to
// a langcode and back is lossy when the mapping table has no entry for it, so
// callers that already hold the TMS locale must not round-trip it.
func (c *Coordinator) downloadTarget(ctx context.Context, doc *model.SourceDocument, tmsLocale string) error {
	if !doc.Uploaded() {
		return fmt.Errorf("%w: %s/%s", ErrNotUploaded, doc.EntityType, doc.EntityID)
	}
	prof, err := c.profile(ctx, doc.ProfileID)
	if err != nil {
		return err
	}
	if prof.TargetDisabled(tmsLocale) {
		return nil
	}

	// The translation must have been requested and must be promotable to
	// CURRENT before anything is fetched or written to the entity.
	target, err := c.tracker.GetTarget(ctx, doc, tmsLocale)
	if err != nil {
		return err
	}
	switch target.Status {
	case model.TargetPending, model.TargetIntermediate, model.TargetReady, model.TargetCurrent:
	default:
		return fmt.Errorf("%w: %s is %s", ErrTranslationNotReady, tmsLocale, target.Status)
	}

	payload, err := c.tms.DownloadTarget(ctx, doc.DocumentID, tmsLocale)
	switch {
	case errors.Is(err, lingotek.ErrDocumentNotFound):
		return c.tracker.ResetSource(ctx, doc)
	case err != nil:
		if serr := c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetError); serr != nil {
			return serr
		}
		return fmt.Errorf("sync: downloading %s of %s/%s: %w", tmsLocale, doc.EntityType, doc.EntityID, err)
	}

	// Only promote the translation when the uploaded revision is still the
	// published default; a newer draft must keep its content and its place.
	publish := false
	if current, err := c.entities.Load(ctx, doc.EntityType, doc.EntityID); err == nil {
		publish = current.Published && current.Revision == doc.RevisionID
	}

	rev, err := c.deser.Apply(ctx, payload, document.ApplyOptions{
		Langcode: c.mapper.ToLangcode(tmsLocale),
		Revision: doc.RevisionID,
		Publish:  publish,
	})
	if err != nil {
		if serr := c.tracker.SetTargetStatus(ctx, doc, tmsLocale, model.TargetError); serr != nil {
			return serr
		}
		return err
	}

	c.logger.Info("translation downloaded",
		"entity_type", doc.EntityType, "entity_id", doc.EntityID,
		"locale", tmsLocale, "revision", rev, "category", model.EventCategoryDownload)
	return c.tracker.SetTargetChecked(ctx, doc, tmsLocale, model.TargetCurrent, rev)
}

// DownloadTranslations downloads every READY (or INTERMEDIATE) target.
func (c *Coordinator) DownloadTranslations(ctx context.Context, entityType, entityID string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	targets, err := c.tracker.Targets(ctx, &doc)
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range targets {
		if t.Status != model.TargetReady && t.Status != model.TargetIntermediate {
			continue
		}
		if err := c.downloadTarget(ctx, &doc, t.Locale); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CancelDocument cancels the whole document upstream and locally.
func (c *Coordinator) CancelDocument(ctx context.Context, entityType, entityID string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	if doc.Uploaded() {
		if err := c.tms.CancelDocument(ctx, doc.DocumentID); err != nil && !errors.Is(err, lingotek.ErrDocumentNotFound) {
			return fmt.Errorf("sync: cancelling %s/%s: %w", entityType, entityID, err)
		}
	}
	targets, err := c.tracker.Targets(ctx, &doc)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := c.tracker.CancelTarget(ctx, &doc, t.Locale); err != nil && !errors.Is(err, status.ErrTargetAlreadyCompleted) {
			return err
		}
	}
	return c.tracker.SetSourceStatus(ctx, &doc, model.SourceCancelled)
}

// CancelTarget cancels one target locale. Cancelling a completed target
// fails with status.ErrTargetAlreadyCompleted; the caller should check
// status instead of retrying.
func (c *Coordinator) CancelTarget(ctx context.Context, entityType, entityID, langcode string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	tmsLocale := c.mapper.ToTMSLocale(langcode)
	if err := c.tracker.CancelTarget(ctx, &doc, tmsLocale); err != nil {
		return err
	}
	if doc.Uploaded() {
		if err := c.tms.CancelTarget(ctx, doc.DocumentID, tmsLocale); err != nil {
			if errors.Is(err, lingotek.ErrTargetAlreadyCompleted) {
				return fmt.Errorf("%w: %s", status.ErrTargetAlreadyCompleted, tmsLocale)
			}
			if !errors.Is(err, lingotek.ErrDocumentNotFound) {
				return fmt.Errorf("sync: cancelling %s of %s/%s: %w", tmsLocale, entityType, entityID, err)
			}
		}
	}
	return nil
}

// Disassociate removes all tracking metadata for an entity, cascading to
// embedded children. Entity content is untouched.
func (c *Coordinator) Disassociate(ctx context.Context, entityType, entityID string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return c.tracker.Disassociate(ctx, &doc)
}

// OnEntityChanged reacts to an entity save: marks tracked content EDITED
// when the serialized content changed and re-uploads automatically when the
// profile asks for it.
func (c *Coordinator) OnEntityChanged(ctx context.Context, entityType, entityID string) error {
	doc, err := c.tracker.GetSource(ctx, entityType, entityID)
	if errors.Is(err, store.ErrNotFound) {
		prof, perr := c.profile(ctx, "")
		if perr != nil {
			return perr
		}
		if prof.AutoUpload {
			return c.Upload(ctx, entityType, entityID)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if !doc.Uploaded() {
		return nil
	}

	e, err := c.entities.Load(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	prof, err := c.profile(ctx, doc.ProfileID)
	if err != nil {
		return err
	}
	payload, err := c.ser.Serialize(ctx, e, &prof)
	if err != nil {
		return err
	}
	if document.Hash(payload) == doc.ContentHash {
		return nil
	}

	if err := c.tracker.SetSourceStatus(ctx, &doc, model.SourceEdited); err != nil {
		return err
	}
	if prof.AutoUpload {
		return c.Upload(ctx, entityType, entityID)
	}
	return nil
}

// HandleTargetNotification applies a webhook-delivered target update. The
// caller must hold the document lock. A document unknown locally returns
// store.ErrNotFound.
func (c *Coordinator) HandleTargetNotification(ctx context.Context, documentID, tmsLocale string, progress int, complete bool) error {
	doc, err := c.tracker.GetSourceByDocumentID(ctx, documentID)
	if err != nil {
		return err
	}
	prof, err := c.profile(ctx, doc.ProfileID)
	if err != nil {
		return err
	}
	if prof.TargetDisabled(tmsLocale) {
		return nil
	}

	if !complete {
		to := model.TargetPending
		if progress > 0 && c.cfg.InterimDownloads {
			to = model.TargetIntermediate
		}
		return c.tracker.SetTargetStatus(ctx, &doc, tmsLocale, to)
	}

	// Webhooks can be redelivered. A target already downloaded stays
	// CURRENT and the redelivery succeeds without touching anything.
	target, err := c.tracker.GetTarget(ctx, &doc, tmsLocale)
	if err != nil {
		return err
	}
	if target.Status == model.TargetCurrent {
		return nil
	}
	if err := c.tracker.SetTargetStatus(ctx, &doc, tmsLocale, model.TargetReady); err != nil {
		return err
	}
	if prof.AutoDownload {
		return c.downloadTarget(ctx, &doc, tmsLocale)
	}
	return nil
}

// HandleSourceNotification applies a document_uploaded webhook: the TMS
// finished importing the source.
func (c *Coordinator) HandleSourceNotification(ctx context.Context, documentID string) error {
	doc, err := c.tracker.GetSourceByDocumentID(ctx, documentID)
	if err != nil {
		return err
	}
	return c.tracker.SetSourceStatus(ctx, &doc, model.SourceCurrent)
}
