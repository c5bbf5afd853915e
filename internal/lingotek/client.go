// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package lingotek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/murrow/lingotek-sub000/internal/document"
)

// ClientOptions configures the HTTP transport client.
type ClientOptions struct {
	// BaseURL is the TMS API root, e.g. https://cms.lingotek.com/api.
	BaseURL string
	// Token is the bearer access token.
	Token string
	// RequestsPerSecond throttles outbound calls (0 = default).
	RequestsPerSecond float64
	// Burst is the limiter burst size (0 = derived from the rate).
	Burst int
	// Timeout bounds each request (0 = default 30s).
	Timeout time.Duration
}

// Client is the HTTP Transport implementation.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client from options.
func NewClient(opts ClientOptions, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("lingotek: parsing base url: %w", err)
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = int(opts.RequestsPerSecond) + 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    base,
		token:   opts.Token,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		logger:  logger,
	}, nil
}

type lockedResponse struct {
	NextDocumentID string `json:"next_document_id"`
}

type uploadResponse struct {
	Properties struct {
		ID string `json:"id"`
	} `json:"properties"`
}

type statusResponse struct {
	Properties struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	} `json:"properties"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := *c.base
	u.Path, _ = url.JoinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("lingotek: encoding request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lingotek: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("lingotek: reading response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, data); err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("lingotek: decoding response: %w", err)
		}
	}
	return nil
}

// checkStatus maps HTTP status codes onto the typed error taxonomy.
func (c *Client) checkStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrDocumentNotFound
	case code == http.StatusPaymentRequired:
		if bytes.Contains(body, []byte("processed words limit")) {
			return ErrProcessedWordsLimit
		}
		return ErrPaymentRequired
	case code == http.StatusGone:
		return ErrDocumentArchived
	case code == http.StatusLocked:
		var locked lockedResponse
		_ = json.Unmarshal(body, &locked)
		return &LockedError{NewDocumentID: locked.NextDocumentID}
	case code == http.StatusConflict:
		return ErrTargetAlreadyCompleted
	default:
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &APIError{StatusCode: code, Message: msg}
	}
}

// UploadDocument implements Transport.
func (c *Client) UploadDocument(ctx context.Context, payload document.Payload, settings UploadSettings) (string, error) {
	body := map[string]any{
		"title":    settings.Title,
		"locale":   settings.SourceLocale,
		"project":  settings.ProjectID,
		"workflow": settings.WorkflowID,
		"vault":    settings.VaultID,
		"content":  payload,
		"format":   "JSON",
	}
	var out uploadResponse
	if err := c.do(ctx, http.MethodPost, "document", nil, body, &out); err != nil {
		return "", err
	}
	c.logger.Debug("document uploaded", "document_id", out.Properties.ID, "title", settings.Title)
	return out.Properties.ID, nil
}

// UpdateDocument implements Transport.
func (c *Client) UpdateDocument(ctx context.Context, documentID string, payload document.Payload, settings UploadSettings) error {
	body := map[string]any{
		"title":   settings.Title,
		"content": payload,
		"format":  "JSON",
	}
	return c.do(ctx, http.MethodPatch, "document/"+documentID, nil, body, nil)
}

// AddTarget implements Transport.
func (c *Client) AddTarget(ctx context.Context, documentID, locale, workflowID, vaultID string) error {
	body := map[string]any{
		"locale_code": locale,
		"workflow":    workflowID,
	}
	if vaultID != "" {
		body["vault"] = vaultID
	}
	return c.do(ctx, http.MethodPost, "document/"+documentID+"/translation", nil, body, nil)
}

// GetDocumentStatus implements Transport.
func (c *Client) GetDocumentStatus(ctx context.Context, documentID string) (DocumentStatus, error) {
	var out statusResponse
	if err := c.do(ctx, http.MethodGet, "document/"+documentID+"/status", nil, nil, &out); err != nil {
		return DocumentStatus{}, err
	}
	return DocumentStatus{Completed: out.Properties.Status == "COMPLETE"}, nil
}

// GetTargetStatus implements Transport.
func (c *Client) GetTargetStatus(ctx context.Context, documentID, locale string) (TargetProgress, error) {
	query := url.Values{"locale_code": {locale}}
	var out statusResponse
	if err := c.do(ctx, http.MethodGet, "document/"+documentID+"/translation", query, nil, &out); err != nil {
		return TargetProgress{}, err
	}
	return TargetProgress{
		Progress: out.Properties.Progress,
		Complete: out.Properties.Progress >= 100,
	}, nil
}

// DownloadTarget implements Transport.
func (c *Client) DownloadTarget(ctx context.Context, documentID, locale string) (document.Payload, error) {
	query := url.Values{"locale_code": {locale}}
	var payload document.Payload
	if err := c.do(ctx, http.MethodGet, "document/"+documentID+"/content", query, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CancelDocument implements Transport.
func (c *Client) CancelDocument(ctx context.Context, documentID string) error {
	return c.do(ctx, http.MethodPost, "document/"+documentID+"/cancel", nil, nil, nil)
}

// CancelTarget implements Transport.
func (c *Client) CancelTarget(ctx context.Context, documentID, locale string) error {
	query := url.Values{"locale_code": {locale}}
	return c.do(ctx, http.MethodPost, "document/"+documentID+"/translation/cancel", query, nil, nil)
}
