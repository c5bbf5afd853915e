// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murrow/lingotek-sub000/internal/batch"
	"github.com/murrow/lingotek-sub000/internal/model"
	"github.com/murrow/lingotek-sub000/internal/status"
	"github.com/murrow/lingotek-sub000/internal/store"
	"github.com/murrow/lingotek-sub000/internal/sync"
)

// OpsHandler exposes sync operations over a JSON API.
type OpsHandler struct {
	coord   *sync.Coordinator
	tracker *status.Tracker
	queries *store.Queries
	logger  *slog.Logger
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(coord *sync.Coordinator, tracker *status.Tracker, queries *store.Queries, logger *slog.Logger) *OpsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsHandler{coord: coord, tracker: tracker, queries: queries, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	Status string `json:"status"`
}

// run executes one coordinator operation and writes the JSON outcome.
func (h *OpsHandler) run(w http.ResponseWriter, r *http.Request, op func() error) {
	err := op()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, okResponse{Status: "ok"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "entity is not tracked"})
	case errors.Is(err, sync.ErrNotUploaded), errors.Is(err, sync.ErrTranslationNotReady):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, status.ErrTargetAlreadyCompleted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, sync.ErrDocumentIDConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("operation failed",
			"path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
}

// Upload handles POST /api/v1/entities/{type}/{id}/upload.
func (h *OpsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	h.run(w, r, func() error { return h.coord.Upload(r.Context(), et, id) })
}

// CheckUpload handles POST /api/v1/entities/{type}/{id}/check-upload.
func (h *OpsHandler) CheckUpload(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	h.run(w, r, func() error { return h.coord.CheckSourceStatus(r.Context(), et, id) })
}

// RequestAll handles POST /api/v1/entities/{type}/{id}/targets/request.
func (h *OpsHandler) RequestAll(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	h.run(w, r, func() error { return h.coord.RequestTranslations(r.Context(), et, id) })
}

// RequestOne handles POST /api/v1/entities/{type}/{id}/targets/{langcode}/request.
func (h *OpsHandler) RequestOne(w http.ResponseWriter, r *http.Request) {
	et, id, lang := chi.URLParam(r, "type"), chi.URLParam(r, "id"), chi.URLParam(r, "langcode")
	h.run(w, r, func() error { return h.coord.RequestTranslation(r.Context(), et, id, lang) })
}

// CheckAll handles POST /api/v1/entities/{type}/{id}/targets/check.
func (h *OpsHandler) CheckAll(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	h.run(w, r, func() error { return h.coord.CheckTranslationStatuses(r.Context(), et, id) })
}

// CheckOne handles POST /api/v1/entities/{type}/{id}/targets/{langcode}/check.
func (h *OpsHandler) CheckOne(w http.ResponseWriter, r *http.Request) {
	et, id, lang := chi.URLParam(r, "type"), chi.URLParam(r, "id"), chi.URLParam(r, "langcode")
	h.run(w, r, func() error { return h.coord.CheckTargetStatus(r.Context(), et, id, lang) })
}

// DownloadAll handles POST /api/v1/entities/{type}/{id}/targets/download.
func (h *OpsHandler) DownloadAll(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	h.run(w, r, func() error { return h.coord.DownloadTranslations(r.Context(), et, id) })
}

// DownloadOne handles POST /api/v1/entities/{type}/{id}/targets/{langcode}/download.
func (h *OpsHandler) DownloadOne(w http.ResponseWriter, r *http.Request) {
	et, id, lang := chi.URLParam(r, "type"), chi.URLParam(r, "id"), chi.URLParam(r, "langcode")
	h.run(w, r, func() error { return h.coord.DownloadDocument(r.Context(), et, id, lang) })
}

// Cancel handles POST /api/v1/entities/{type}/{id}/cancel.
func (h *OpsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	h.run(w, r, func() error { return h.coord.CancelDocument(r.Context(), et, id) })
}

// CancelTarget handles POST /api/v1/entities/{type}/{id}/targets/{langcode}/cancel.
func (h *OpsHandler) CancelTarget(w http.ResponseWriter, r *http.Request) {
	et, id, lang := chi.URLParam(r, "type"), chi.URLParam(r, "id"), chi.URLParam(r, "langcode")
	h.run(w, r, func() error { return h.coord.CancelTarget(r.Context(), et, id, lang) })
}

// Disassociate handles DELETE /api/v1/entities/{type}/{id}.
func (h *OpsHandler) Disassociate(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	h.run(w, r, func() error { return h.coord.Disassociate(r.Context(), et, id) })
}

// statusResponse is the tracked state of one entity.
type statusResponse struct {
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	DocumentID  string         `json:"document_id,omitempty"`
	SourceLang  string         `json:"source_lang"`
	Status      string         `json:"status"`
	ProfileID   string         `json:"profile_id"`
	ContentHash string         `json:"content_hash,omitempty"`
	Targets     []targetStatus `json:"targets"`
}

type targetStatus struct {
	Locale              string `json:"locale"`
	Status              string `json:"status"`
	LastCheckedRevision int64  `json:"last_checked_revision,omitempty"`
}

// Status handles GET /api/v1/entities/{type}/{id}.
func (h *OpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	et, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	doc, err := h.tracker.GetSource(r.Context(), et, id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "entity is not tracked"})
		return
	}
	if err != nil {
		h.logger.Error("status lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
		return
	}
	targets, err := h.tracker.Targets(r.Context(), &doc)
	if err != nil {
		h.logger.Error("target lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
		return
	}

	resp := statusResponse{
		EntityType:  doc.EntityType,
		EntityID:    doc.EntityID,
		DocumentID:  doc.DocumentID,
		SourceLang:  doc.SourceLang,
		Status:      string(doc.Status),
		ProfileID:   doc.ProfileID,
		ContentHash: doc.ContentHash,
		Targets:     make([]targetStatus, 0, len(targets)),
	}
	for _, t := range targets {
		resp.Targets = append(resp.Targets, targetStatus{
			Locale:              t.Locale,
			Status:              string(t.Status),
			LastCheckedRevision: t.LastCheckedRevision,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// batchRequest is the body of POST /api/v1/batch.
type batchRequest struct {
	Operation batch.Operation `json:"operation"`
	Units     []batchUnit     `json:"units"`
}

type batchUnit struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Langcode   string `json:"langcode,omitempty"`
}

// batchResponse summarizes a batch run.
type batchResponse struct {
	Operation string        `json:"operation"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []batchResult `json:"failures,omitempty"`
}

type batchResult struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Error      string `json:"error"`
}

// Batch handles POST /api/v1/batch: one operation over many entities,
// continuing past per-entity failures.
func (h *OpsHandler) Batch(driver *batch.Driver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		units := make([]batch.Unit, 0, len(req.Units))
		for _, u := range req.Units {
			units = append(units, batch.Unit{
				EntityType: u.EntityType,
				EntityID:   u.EntityID,
				Langcode:   u.Langcode,
			})
		}

		summary, err := driver.Run(r.Context(), req.Operation, units)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		resp := batchResponse{
			Operation: string(summary.Operation),
			Succeeded: summary.Succeeded,
			Failed:    summary.Failed,
		}
		for _, res := range summary.Results {
			if res.Err == nil {
				continue
			}
			resp.Failures = append(resp.Failures, batchResult{
				EntityType: res.Unit.EntityType,
				EntityID:   res.Unit.EntityID,
				Error:      res.Err.Error(),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Documents handles GET /api/v1/documents.
func (h *OpsHandler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.queries.ListSourceDocuments(r.Context(), 200)
	if err != nil {
		h.logger.Error("document list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
		return
	}
	if docs == nil {
		docs = []model.SourceDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// Events handles GET /api/v1/events.
func (h *OpsHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListRecentEvents(r.Context(), 100)
	if err != nil {
		h.logger.Error("event lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, events)
}
