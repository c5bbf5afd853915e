package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/murrow/lingotek-sub000/internal/model"
	"github.com/murrow/lingotek-sub000/internal/store"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "lingosync-logging-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
	return db, cleanup
}

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func lastEvent(t *testing.T, db *sql.DB) model.Event {
	t.Helper()
	events, err := store.New(db).ListRecentEvents(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no events recorded")
	}
	return events[0]
}

func TestHandleWritesErrorToEventLog(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Error("upload failed", "document_id", "doc-1")

	event := lastEvent(t, db)
	if event.Level != model.EventLevelError {
		t.Errorf("Level = %q, want %q", event.Level, model.EventLevelError)
	}
	if event.Message != "upload failed" {
		t.Errorf("Message = %q", event.Message)
	}
	if !strings.Contains(event.Metadata, "doc-1") {
		t.Errorf("Metadata = %q, want document id included", event.Metadata)
	}
}

func TestHandleSkipsInfoByDefault(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Info("routine poll finished")

	events, err := store.New(db).ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
}

func TestHandleCustomLevelForwardsInfo(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))
	logger.Info("document uploaded", "category", model.EventCategoryUpload)

	event := lastEvent(t, db)
	if event.Level != model.EventLevelInfo {
		t.Errorf("Level = %q, want %q", event.Level, model.EventLevelInfo)
	}
	if event.Category != model.EventCategoryUpload {
		t.Errorf("Category = %q, want %q", event.Category, model.EventCategoryUpload)
	}
}

func TestCategoryAttrTakesPrecedence(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Warn("download stalled", "category", model.EventCategoryWebhook)

	event := lastEvent(t, db)
	if event.Category != model.EventCategoryWebhook {
		t.Errorf("Category = %q, want explicit attribute to win", event.Category)
	}
}

func TestCategoryInferredFromMessage(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	cases := []struct {
		message string
		want    string
	}{
		{"upload rejected by TMS", model.EventCategoryUpload},
		{"translation incomplete", model.EventCategoryDownload},
		{"notification for unknown document", model.EventCategoryWebhook},
		{"target status out of sync", model.EventCategoryStatus},
		{"profile missing", model.EventCategoryConfig},
		{"disk almost full", model.EventCategorySystem},
	}
	for _, tc := range cases {
		logger.Warn(tc.message)
		event := lastEvent(t, db)
		if event.Category != tc.want {
			t.Errorf("%q: Category = %q, want %q", tc.message, event.Category, tc.want)
		}
		// Keep inserts ordered for lastEvent
		time.Sleep(time.Millisecond)
	}
}

func TestMetadataEscapesSpecialCharacters(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Warn("upload failed", "detail", `line one
"two"`)

	event := lastEvent(t, db)
	if !strings.Contains(event.Metadata, `\n`) || !strings.Contains(event.Metadata, `\"two\"`) {
		t.Errorf("Metadata = %q, want escaped newline and quotes", event.Metadata)
	}
}
