// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler exposes the HTTP surface: the TMS notification callback
// and a small JSON API for driving sync operations.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/murrow/lingotek-sub000/internal/doclock"
	"github.com/murrow/lingotek-sub000/internal/store"
	"github.com/murrow/lingotek-sub000/internal/sync"
)

// Notification types the TMS posts to the callback URL.
const (
	NotifyTypeTarget           = "target"
	NotifyTypePhase            = "phase"
	NotifyTypeDocumentUploaded = "document_uploaded"
	NotifyTypeDocumentCancel   = "document_cancelled"
	NotifyTypeTargetCancel     = "target_cancelled"
	NotifyTypeImportFailure    = "import_failure"
)

// NotifyHandler receives TMS webhook callbacks.
type NotifyHandler struct {
	coord  *sync.Coordinator
	locks  doclock.Manager
	logger *slog.Logger
}

// NewNotifyHandler creates a NotifyHandler.
func NewNotifyHandler(coord *sync.Coordinator, locks doclock.Manager, logger *slog.Logger) *NotifyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyHandler{coord: coord, locks: locks, logger: logger}
}

// Notify handles POST /lingotek/notify. The TMS sends parameters in the
// query string. Progress updates for one document are serialized behind a
// per-document lock so concurrent callbacks cannot interleave status writes.
func (h *NotifyHandler) Notify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notifyType := q.Get("type")
	documentID := q.Get("document_id")

	if documentID == "" {
		http.Error(w, "missing document_id", http.StatusBadRequest)
		return
	}

	switch notifyType {
	case NotifyTypeTarget, NotifyTypePhase:
		locale := q.Get("locale_code")
		if locale == "" {
			locale = q.Get("locale")
		}
		progress, _ := strconv.Atoi(q.Get("progress"))
		complete := q.Get("complete") == "true" || progress >= 100

		err := h.locks.WithDocumentLock(r.Context(), documentID, func() error {
			return h.coord.HandleTargetNotification(r.Context(), documentID, locale, progress, complete)
		})
		h.respond(w, documentID, notifyType, err)

	case NotifyTypeDocumentUploaded:
		err := h.locks.WithDocumentLock(r.Context(), documentID, func() error {
			return h.coord.HandleSourceNotification(r.Context(), documentID)
		})
		h.respond(w, documentID, notifyType, err)

	default:
		h.logger.Info("ignoring unhandled notification type",
			"type", notifyType, "document_id", documentID)
		w.WriteHeader(http.StatusNotImplemented)
	}
}

// respond maps a notification outcome to an HTTP status. A document we do
// not track is acknowledged with 204 so the TMS stops retrying; lock
// contention and transient failures get 503 so it retries later.
func (h *NotifyHandler) respond(w http.ResponseWriter, documentID, notifyType string, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, store.ErrNotFound):
		h.logger.Debug("notification for unknown document",
			"document_id", documentID, "type", notifyType)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, doclock.ErrLockTimeout):
		h.logger.Warn("notification lock contention",
			"document_id", documentID, "type", notifyType)
		http.Error(w, "document busy, retry later", http.StatusServiceUnavailable)
	default:
		h.logger.Error("notification processing failed",
			"document_id", documentID, "type", notifyType, "error", err)
		http.Error(w, "processing failed, retry later", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
