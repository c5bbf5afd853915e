package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryUpload   = "upload"
	EventCategoryDownload = "download"
	EventCategoryWebhook  = "webhook"
	EventCategoryStatus   = "status"
	EventCategoryConfig   = "config"
	EventCategorySystem   = "system"
)

// Event represents a system event log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string // JSON string
	CreatedAt time.Time
}
