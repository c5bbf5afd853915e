// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murrow/lingotek-sub000/internal/doclock"
	"github.com/murrow/lingotek-sub000/internal/document"
	"github.com/murrow/lingotek-sub000/internal/entity"
	"github.com/murrow/lingotek-sub000/internal/graph"
	"github.com/murrow/lingotek-sub000/internal/lingotek"
	"github.com/murrow/lingotek-sub000/internal/locale"
	"github.com/murrow/lingotek-sub000/internal/model"
	"github.com/murrow/lingotek-sub000/internal/status"
	"github.com/murrow/lingotek-sub000/internal/store"
	syncpkg "github.com/murrow/lingotek-sub000/internal/sync"
)

type fixedProfiles map[string]model.Profile

func (p fixedProfiles) GetProfile(_ context.Context, id string) (model.Profile, error) {
	prof, ok := p[id]
	if !ok {
		return model.Profile{}, store.ErrNotFound
	}
	return prof, nil
}

type notifyFixture struct {
	handler *NotifyHandler
	coord   *syncpkg.Coordinator
	tracker *status.Tracker
	locks   doclock.Manager
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()

	f, err := os.CreateTemp("", "lingosync-handler-*.db")
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

	policy := entity.PolicyMap{"node/article/title": true}
	entities := entity.NewMemoryStore()
	_, err = entities.Save(context.Background(), &entity.Entity{
		Type: "node", ID: "1", Bundle: "article", Langcode: "en", Published: true,
		Fields: map[string]entity.Field{
			"title": {Type: entity.FieldText, Values: []entity.Value{{Text: "Llamas are cool"}}},
		},
	})
	require.NoError(t, err)

	walker := graph.NewWalker(entities, policy)
	tracker := status.NewTracker(store.New(db), nil)
	coord := syncpkg.NewCoordinator(
		entities,
		lingotek.NewFake(),
		tracker,
		locale.NewMapper(map[string]string{"es": "es_MX"}),
		document.NewSerializer(walker, policy, nil, "https://example.org"),
		document.NewDeserializer(entities),
		walker,
		policy,
		fixedProfiles{"automatic": {ID: "automatic"}},
		syncpkg.Config{DefaultProfileID: "automatic", TargetLangcodes: []string{"es"}},
		nil,
	)

	locks, err := doclock.New(doclock.Config{Unit: time.Millisecond, MaxAttempts: 2})
	require.NoError(t, err)
	t.Cleanup(func() { locks.Close() })

	return &notifyFixture{
		handler: NewNotifyHandler(coord, locks, nil),
		coord:   coord,
		tracker: tracker,
		locks:   locks,
	}
}

// uploaded tracks node/1 and returns its TMS document id.
func (fx *notifyFixture) uploaded(t *testing.T) string {
	t.Helper()
	require.NoError(t, fx.coord.Upload(context.Background(), "node", "1"))
	doc, err := fx.tracker.GetSource(context.Background(), "node", "1")
	require.NoError(t, err)
	return doc.DocumentID
}

func notifyRequest(params url.Values) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/lingotek/notify?"+params.Encode(), nil)
}

func TestNotifyTargetComplete(t *testing.T) {
	fx := newNotifyFixture(t)
	documentID := fx.uploaded(t)

	rec := httptest.NewRecorder()
	fx.handler.Notify(rec, notifyRequest(url.Values{
		"type":        {NotifyTypeTarget},
		"document_id": {documentID},
		"locale_code": {"es_MX"},
		"progress":    {"100"},
		"complete":    {"true"},
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	doc, err := fx.tracker.GetSource(context.Background(), "node", "1")
	require.NoError(t, err)
	target, err := fx.tracker.GetTarget(context.Background(), &doc, "es_MX")
	require.NoError(t, err)
	assert.Equal(t, model.TargetReady, target.Status)
}

func TestNotifyFallsBackToLocaleParam(t *testing.T) {
	fx := newNotifyFixture(t)
	documentID := fx.uploaded(t)

	rec := httptest.NewRecorder()
	fx.handler.Notify(rec, notifyRequest(url.Values{
		"type":        {NotifyTypeTarget},
		"document_id": {documentID},
		"locale":      {"es_MX"},
		"progress":    {"100"},
	}))

	// progress >= 100 implies completion even without complete=true.
	assert.Equal(t, http.StatusOK, rec.Code)
	doc, err := fx.tracker.GetSource(context.Background(), "node", "1")
	require.NoError(t, err)
	target, err := fx.tracker.GetTarget(context.Background(), &doc, "es_MX")
	require.NoError(t, err)
	assert.Equal(t, model.TargetReady, target.Status)
}

func TestNotifyDocumentUploaded(t *testing.T) {
	fx := newNotifyFixture(t)
	documentID := fx.uploaded(t)

	rec := httptest.NewRecorder()
	fx.handler.Notify(rec, notifyRequest(url.Values{
		"type":        {NotifyTypeDocumentUploaded},
		"document_id": {documentID},
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	doc, err := fx.tracker.GetSource(context.Background(), "node", "1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceCurrent, doc.Status)
}

func TestNotifyUnknownDocumentAcknowledged(t *testing.T) {
	fx := newNotifyFixture(t)

	rec := httptest.NewRecorder()
	fx.handler.Notify(rec, notifyRequest(url.Values{
		"type":        {NotifyTypeTarget},
		"document_id": {"no-such-document"},
		"locale_code": {"es_MX"},
		"complete":    {"true"},
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNotifyUnhandledType(t *testing.T) {
	fx := newNotifyFixture(t)

	rec := httptest.NewRecorder()
	fx.handler.Notify(rec, notifyRequest(url.Values{
		"type":        {"community_updated"},
		"document_id": {"doc-1"},
	}))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestNotifyMissingDocumentID(t *testing.T) {
	fx := newNotifyFixture(t)

	rec := httptest.NewRecorder()
	fx.handler.Notify(rec, notifyRequest(url.Values{"type": {NotifyTypeTarget}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotifyLockContention(t *testing.T) {
	fx := newNotifyFixture(t)
	documentID := fx.uploaded(t)

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = fx.locks.WithDocumentLock(context.Background(), documentID, func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	rec := httptest.NewRecorder()
	fx.handler.Notify(rec, notifyRequest(url.Values{
		"type":        {NotifyTypeTarget},
		"document_id": {documentID},
		"locale_code": {"es_MX"},
		"complete":    {"true"},
	}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
