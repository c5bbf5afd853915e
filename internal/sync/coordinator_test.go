// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murrow/lingotek-sub000/internal/document"
	"github.com/murrow/lingotek-sub000/internal/entity"
	"github.com/murrow/lingotek-sub000/internal/graph"
	"github.com/murrow/lingotek-sub000/internal/lingotek"
	"github.com/murrow/lingotek-sub000/internal/locale"
	"github.com/murrow/lingotek-sub000/internal/model"
	"github.com/murrow/lingotek-sub000/internal/status"
	"github.com/murrow/lingotek-sub000/internal/store"
)

type profileSet map[string]model.Profile

func (p profileSet) GetProfile(_ context.Context, id string) (model.Profile, error) {
	prof, ok := p[id]
	if !ok {
		return model.Profile{}, fmt.Errorf("profile %q: %w", id, store.ErrNotFound)
	}
	return prof, nil
}

type testEnv struct {
	coord    *Coordinator
	tms      *lingotek.Fake
	entities *entity.MemoryStore
	tracker  *status.Tracker
	profiles profileSet
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	f, err := os.CreateTemp("", "lingosync-sync-*.db")
	require.NoError(t, err)
	dbPath := f.Name()
	f.Close()

	db, err := store.NewDB(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	policy := entity.PolicyMap{
		"node/article/title":       true,
		"node/article/body":        true,
		"node/article/field_block": true,
		"paragraph/text/body":      true,
	}
	entities := entity.NewMemoryStore()
	walker := graph.NewWalker(entities, policy)
	tracker := status.NewTracker(store.New(db), nil)
	mapper := locale.NewMapper(map[string]string{"es": "es_MX"})
	tms := lingotek.NewFake()
	profiles := profileSet{
		"automatic": {ID: "automatic", ProjectID: "proj-1", WorkflowID: "wf-1"},
	}
	cfg := Config{
		DefaultProfileID: "automatic",
		TargetLangcodes:  []string{"es", "de"},
		InterimDownloads: true,
		BaseURL:          "https://example.org",
	}
	coord := NewCoordinator(
		entities, tms, tracker, mapper,
		document.NewSerializer(walker, policy, nil, cfg.BaseURL),
		document.NewDeserializer(entities),
		walker, policy, profiles, cfg, nil,
	)
	return &testEnv{coord: coord, tms: tms, entities: entities, tracker: tracker, profiles: profiles}
}

// saveArticle writes a published article revision and returns it with the
// assigned revision id.
func (e *testEnv) saveArticle(t *testing.T, id, title string, children ...entity.Ref) *entity.Entity {
	t.Helper()
	art := &entity.Entity{
		Type: "node", ID: id, Bundle: "article", Langcode: "en",
		Revisionable: true, Published: true, Author: "editor",
		Fields: map[string]entity.Field{
			"title": {Type: entity.FieldText, Values: []entity.Value{{Text: title}}},
		},
	}
	if len(children) > 0 {
		values := make([]entity.Value, len(children))
		for i := range children {
			ref := children[i]
			values[i] = entity.Value{Ref: &ref}
		}
		art.Fields["field_block"] = entity.Field{Type: entity.FieldReferenceRevisions, Values: values}
	}
	rev, err := e.entities.Save(context.Background(), art)
	require.NoError(t, err)
	art.Revision = rev
	return art
}

func (e *testEnv) saveParagraph(t *testing.T, id, body string) {
	t.Helper()
	_, err := e.entities.Save(context.Background(), &entity.Entity{
		Type: "paragraph", ID: id, Bundle: "text", Langcode: "en", Published: true,
		Fields: map[string]entity.Field{
			"body": {Type: entity.FieldTextLong, Values: []entity.Value{{Text: body, Format: "rich_text"}}},
		},
	})
	require.NoError(t, err)
}

func (e *testEnv) source(t *testing.T, entityType, entityID string) model.SourceDocument {
	t.Helper()
	doc, err := e.tracker.GetSource(context.Background(), entityType, entityID)
	require.NoError(t, err)
	return doc
}

func (e *testEnv) target(t *testing.T, doc model.SourceDocument, tmsLocale string) model.Target {
	t.Helper()
	target, err := e.tracker.GetTarget(context.Background(), &doc, tmsLocale)
	require.NoError(t, err)
	return target
}

func TestUploadTracksDocumentAndChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveParagraph(t, "p1", "Paragraph body")
	env.saveArticle(t, "1", "Llamas are cool", entity.Ref{Type: "paragraph", ID: "p1"})

	require.NoError(t, env.coord.Upload(ctx, "node", "1"))

	doc := env.source(t, "node", "1")
	assert.Equal(t, model.SourceImporting, doc.Status)
	assert.NotEmpty(t, doc.DocumentID)
	assert.NotEmpty(t, doc.ContentHash)

	children, err := env.tracker.ListChildDocuments(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "paragraph", children[0].EntityType)
	assert.Equal(t, "p1", children[0].EntityID)
}

func TestUploadUnchangedContentSkipsTransport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")

	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	before := env.source(t, "node", "1")

	env.tms.Err = errors.New("transport must not be called")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	env.tms.Err = nil

	after := env.source(t, "node", "1")
	assert.Equal(t, before.DocumentID, after.DocumentID)
	assert.Equal(t, before.ContentHash, after.ContentHash)
}

func TestReuploadMarksCompletedTargetsEdited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")

	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")
	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))
	env.tms.CompleteTarget(doc.DocumentID, "es_MX")
	require.NoError(t, env.coord.CheckTargetStatus(ctx, "node", "1", "es"))
	require.NoError(t, env.coord.DownloadDocument(ctx, "node", "1", "es"))
	require.Equal(t, model.TargetCurrent, env.target(t, doc, "es_MX").Status)

	env.saveArticle(t, "1", "Llamas are very cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))

	doc = env.source(t, "node", "1")
	assert.Equal(t, model.SourceImporting, doc.Status)
	assert.Equal(t, model.TargetEdited, env.target(t, doc, "es_MX").Status)
}

func TestUploadLockedAdoptsReplacementID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	newID := env.tms.LockDocument(doc.DocumentID)
	require.NotEmpty(t, newID)
	env.saveArticle(t, "1", "Llamas are very cool")

	err := env.coord.Upload(ctx, "node", "1")
	var locked *lingotek.LockedError
	require.ErrorAs(t, err, &locked)

	doc = env.source(t, "node", "1")
	assert.Equal(t, newID, doc.DocumentID)
	assert.Equal(t, model.SourceEdited, doc.Status)

	// The retry goes to the adopted id.
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	assert.Equal(t, model.SourceImporting, env.source(t, "node", "1").Status)
}

func TestUploadLockedReplacementIDConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "First")
	env.saveArticle(t, "2", "Second")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	require.NoError(t, env.coord.Upload(ctx, "node", "2"))

	docA := env.source(t, "node", "1")
	newID := env.tms.LockDocument(docA.DocumentID)
	require.NotEmpty(t, newID)

	// Another entity already tracks the replacement id.
	docB := env.source(t, "node", "2")
	require.NoError(t, env.tracker.ReplaceDocumentID(ctx, &docB, newID))

	env.saveArticle(t, "1", "First, edited")
	err := env.coord.Upload(ctx, "node", "1")
	require.ErrorIs(t, err, ErrDocumentIDConflict)

	docA = env.source(t, "node", "1")
	assert.Equal(t, model.SourceError, docA.Status)
	assert.NotEqual(t, newID, docA.DocumentID)
}

func TestUploadArchivedReuploadsAsNewDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	oldID := env.source(t, "node", "1").DocumentID

	env.tms.SetDocumentArchived(oldID)
	env.saveArticle(t, "1", "Llamas are very cool")

	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")
	assert.Equal(t, model.SourceImporting, doc.Status)
	assert.NotEqual(t, oldID, doc.DocumentID)
}

func TestCheckSourceStatusCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))

	require.NoError(t, env.coord.CheckSourceStatus(ctx, "node", "1"))
	assert.Equal(t, model.SourceCurrent, env.source(t, "node", "1").Status)
}

func TestCheckSourceStatusGoneUpstreamResets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	env.tms.Drop(env.source(t, "node", "1").DocumentID)

	require.NoError(t, env.coord.CheckSourceStatus(ctx, "node", "1"))
	doc := env.source(t, "node", "1")
	assert.Equal(t, model.SourceUntracked, doc.Status)
	assert.Empty(t, doc.DocumentID)
}

func TestRequestTranslationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))
	assert.Equal(t, model.TargetPending, env.target(t, doc, "es_MX").Status)

	// Re-requesting an in-flight target never reaches the transport.
	env.tms.Err = errors.New("transport must not be called")
	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))
	env.tms.Err = nil
	assert.Equal(t, model.TargetPending, env.target(t, doc, "es_MX").Status)
}

func TestRequestTranslationDisabledLocaleIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.profiles["automatic"] = model.Profile{
		ID: "automatic", ProjectID: "proj-1", WorkflowID: "wf-1",
		Overrides: map[string]model.LanguageOverride{
			"de": {Mode: model.OverrideDisabled},
		},
	}
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "de"))
	assert.Equal(t, model.TargetDisabled, env.target(t, doc, "de").Status)

	// Repeating changes nothing.
	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "de"))
	assert.Equal(t, model.TargetDisabled, env.target(t, doc, "de").Status)
}

func TestRequestTranslationRequiresUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.tracker.EnsureSource(ctx, status.EnsureSourceParams{
		EntityType: "node", EntityID: "1", SourceLang: "en", ProfileID: "automatic",
	})
	require.NoError(t, err)

	err = env.coord.RequestTranslation(ctx, "node", "1", "es")
	require.ErrorIs(t, err, ErrNotUploaded)
}

func TestDownloadAppliesTranslation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	env.tms.Translate = func(locale, value string) string {
		if value == "Llamas are cool" {
			return "Las llamas son chulas"
		}
		return value
	}
	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))
	env.tms.CompleteTarget(doc.DocumentID, "es_MX")
	require.NoError(t, env.coord.CheckTargetStatus(ctx, "node", "1", "es"))
	require.Equal(t, model.TargetReady, env.target(t, doc, "es_MX").Status)

	require.NoError(t, env.coord.DownloadDocument(ctx, "node", "1", "es"))
	assert.Equal(t, model.TargetCurrent, env.target(t, doc, "es_MX").Status)

	current, err := env.entities.Load(ctx, "node", "1")
	require.NoError(t, err)
	translated, ok := current.Translations["es"]
	require.True(t, ok, "default revision carries the es translation")
	assert.Equal(t, "Las llamas son chulas", translated["title"].Values[0].Text)
}

func TestDownloadLeavesNewerDefaultRevisionAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))
	env.tms.CompleteTarget(doc.DocumentID, "es_MX")
	require.NoError(t, env.coord.CheckTargetStatus(ctx, "node", "1", "es"))

	// The source moved on while the translation was in progress.
	env.saveArticle(t, "1", "Llamas are very cool")

	require.NoError(t, env.coord.DownloadDocument(ctx, "node", "1", "es"))
	assert.Equal(t, model.TargetCurrent, env.target(t, doc, "es_MX").Status)

	current, err := env.entities.Load(ctx, "node", "1")
	require.NoError(t, err)
	assert.Equal(t, "Llamas are very cool", current.Fields["title"].Values[0].Text)
	assert.NotContains(t, current.Translations, "es")
}

func TestCheckAndDownloadAllTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.RequestTranslations(ctx, "node", "1"))
	env.tms.CompleteTarget(doc.DocumentID, "es_MX")
	require.NoError(t, env.coord.CheckTranslationStatuses(ctx, "node", "1"))
	assert.Equal(t, model.TargetReady, env.target(t, doc, "es_MX").Status)
	assert.Equal(t, model.TargetPending, env.target(t, doc, "de").Status)

	require.NoError(t, env.coord.DownloadTranslations(ctx, "node", "1"))
	assert.Equal(t, model.TargetCurrent, env.target(t, doc, "es_MX").Status)
	assert.Equal(t, model.TargetPending, env.target(t, doc, "de").Status)
}

func TestCancelTargetCompletedIsDistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))
	env.tms.CompleteTarget(doc.DocumentID, "es_MX")
	require.NoError(t, env.coord.CheckTargetStatus(ctx, "node", "1", "es"))

	err := env.coord.CancelTarget(ctx, "node", "1", "es")
	require.ErrorIs(t, err, status.ErrTargetAlreadyCompleted)
	assert.Equal(t, model.TargetReady, env.target(t, doc, "es_MX").Status)
}

func TestCancelDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")
	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))

	require.NoError(t, env.coord.CancelDocument(ctx, "node", "1"))
	assert.Equal(t, model.SourceCancelled, env.source(t, "node", "1").Status)
	assert.Equal(t, model.TargetCancelled, env.target(t, doc, "es_MX").Status)
}

func TestDisassociateCascadesAndTolerates404(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveParagraph(t, "p1", "Paragraph body")
	env.saveArticle(t, "1", "Llamas are cool", entity.Ref{Type: "paragraph", ID: "p1"})
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))

	require.NoError(t, env.coord.Disassociate(ctx, "node", "1"))
	_, err := env.tracker.GetSource(ctx, "node", "1")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = env.tracker.GetSource(ctx, "paragraph", "p1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Disassociating untracked content is not an error.
	require.NoError(t, env.coord.Disassociate(ctx, "node", "99"))
}

func TestReuploadPrunesRemovedChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveParagraph(t, "p1", "Paragraph body")
	env.saveArticle(t, "1", "Llamas are cool", entity.Ref{Type: "paragraph", ID: "p1"})
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")
	children, err := env.tracker.ListChildDocuments(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)

	// The paragraph is detached from the article.
	env.saveArticle(t, "1", "Llamas are cool, plain")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))

	children, err = env.tracker.ListChildDocuments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestOnEntityChangedMarksEdited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))

	// Saving without content change is a no-op.
	require.NoError(t, env.coord.OnEntityChanged(ctx, "node", "1"))
	assert.Equal(t, model.SourceImporting, env.source(t, "node", "1").Status)

	env.saveArticle(t, "1", "Llamas are very cool")
	require.NoError(t, env.coord.OnEntityChanged(ctx, "node", "1"))
	assert.Equal(t, model.SourceEdited, env.source(t, "node", "1").Status)
}

func TestOnEntityChangedAutoUploads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.profiles["automatic"] = model.Profile{
		ID: "automatic", AutoUpload: true, ProjectID: "proj-1", WorkflowID: "wf-1",
	}
	env.saveArticle(t, "1", "Llamas are cool")

	require.NoError(t, env.coord.OnEntityChanged(ctx, "node", "1"))
	doc := env.source(t, "node", "1")
	assert.Equal(t, model.SourceImporting, doc.Status)
	assert.NotEmpty(t, doc.DocumentID)
}

func TestHandleTargetNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	// Progress update for a target never requested locally.
	require.NoError(t, env.coord.HandleTargetNotification(ctx, doc.DocumentID, "es_MX", 40, false))
	assert.Equal(t, model.TargetIntermediate, env.target(t, doc, "es_MX").Status)

	require.NoError(t, env.coord.HandleTargetNotification(ctx, doc.DocumentID, "es_MX", 100, true))
	assert.Equal(t, model.TargetReady, env.target(t, doc, "es_MX").Status)

	err := env.coord.HandleTargetNotification(ctx, "no-such-document", "es_MX", 100, true)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandleTargetNotificationAutoDownloads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.profiles["automatic"] = model.Profile{
		ID: "automatic", AutoDownload: true, ProjectID: "proj-1", WorkflowID: "wf-1",
	}
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.HandleTargetNotification(ctx, doc.DocumentID, "es_MX", 100, true))
	assert.Equal(t, model.TargetCurrent, env.target(t, doc, "es_MX").Status)

	current, err := env.entities.Load(ctx, "node", "1")
	require.NoError(t, err)
	assert.Contains(t, current.Translations, "es")
}

func TestHandleTargetNotificationRegionLocaleDownloads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.profiles["automatic"] = model.Profile{
		ID: "automatic", AutoDownload: true, ProjectID: "proj-1", WorkflowID: "wf-1",
	}
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	// fr_FR has no entry in the mapping table, so langcode and TMS locale
	// do not round-trip. The download must use the webhook's locale and
	// update that target row, not a derived fr row.
	require.NoError(t, env.coord.HandleTargetNotification(ctx, doc.DocumentID, "fr_FR", 100, true))
	assert.Equal(t, model.TargetCurrent, env.target(t, doc, "fr_FR").Status)
	assert.Equal(t, model.TargetNone, env.target(t, doc, "fr").Status)

	current, err := env.entities.Load(ctx, "node", "1")
	require.NoError(t, err)
	assert.Contains(t, current.Translations, "fr")
}

func TestHandleTargetNotificationRedelivered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.profiles["automatic"] = model.Profile{
		ID: "automatic", AutoDownload: true, ProjectID: "proj-1", WorkflowID: "wf-1",
	}
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.HandleTargetNotification(ctx, doc.DocumentID, "es_MX", 100, true))
	require.Equal(t, model.TargetCurrent, env.target(t, doc, "es_MX").Status)

	// A redelivered completion for a downloaded target succeeds without
	// touching the transport or the target row.
	env.tms.Err = errors.New("transport must not be called")
	require.NoError(t, env.coord.HandleTargetNotification(ctx, doc.DocumentID, "es_MX", 100, true))
	env.tms.Err = nil
	assert.Equal(t, model.TargetCurrent, env.target(t, doc, "es_MX").Status)
}

func TestDownloadRequiresRequestedTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	err := env.coord.DownloadDocument(ctx, "node", "1", "es")
	require.ErrorIs(t, err, ErrTranslationNotReady)
	assert.Equal(t, model.TargetNone, env.target(t, doc, "es_MX").Status)

	// Nothing was applied to the entity.
	current, lerr := env.entities.Load(ctx, "node", "1")
	require.NoError(t, lerr)
	assert.Empty(t, current.Translations)
}

func TestRequestTranslationUsesVaultOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.profiles["automatic"] = model.Profile{
		ID: "automatic", ProjectID: "proj-1", WorkflowID: "wf-1", VaultID: "vault-default",
		Overrides: map[string]model.LanguageOverride{
			"es_MX": {Mode: model.OverrideCustom, WorkflowID: "wf-es", VaultID: "vault-es"},
		},
	}
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "es"))
	assert.Equal(t, "vault-es", env.tms.TargetVault(doc.DocumentID, "es_MX"))

	require.NoError(t, env.coord.RequestTranslation(ctx, "node", "1", "de"))
	assert.Equal(t, "vault-default", env.tms.TargetVault(doc.DocumentID, "de"))
}

func TestHandleSourceNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveArticle(t, "1", "Llamas are cool")
	require.NoError(t, env.coord.Upload(ctx, "node", "1"))
	doc := env.source(t, "node", "1")

	require.NoError(t, env.coord.HandleSourceNotification(ctx, doc.DocumentID))
	assert.Equal(t, model.SourceCurrent, env.source(t, "node", "1").Status)

	err := env.coord.HandleSourceNotification(ctx, "no-such-document")
	require.ErrorIs(t, err, store.ErrNotFound)
}
