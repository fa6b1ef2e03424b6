// Package models defines the data shapes exchanged with the streaming
// API and persisted in the response cache.
package models

import (
	"time"

	"github.com/tidwall/gjson"
)

// ContentItem is one entry of the content catalog
type ContentItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Duration    int       `json:"duration_seconds,omitempty"`
	StreamURL   string    `json:"stream_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ContentList is the payload of the content endpoint
type ContentList struct {
	Items []ContentItem `json:"items"`
}

// AnalyticsEvent is a single usage event
type AnalyticsEvent struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// AnalyticsBatch is the body of an analytics submission
type AnalyticsBatch struct {
	Events []AnalyticsEvent `json:"events"`
	SentAt time.Time        `json:"sent_at"`
}

// SyncSnapshot is the user-data snapshot uploaded by the sync endpoint
type SyncSnapshot struct {
	Cursor      string            `json:"cursor,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
	CapturedAt  time.Time         `json:"captured_at"`
}

// SyncResult is the server's response to a sync upload
type SyncResult struct {
	Cursor   string `json:"cursor"`
	Accepted int    `json:"accepted"`
}

// UpdateInfo describes an available application update
type UpdateInfo struct {
	Version     string    `json:"version"`
	Notes       string    `json:"notes,omitempty"`
	Required    bool      `json:"required"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// CountItems reports how many catalog items a raw content payload
// holds, without decoding the whole document.
func CountItems(payload []byte) int {
	return int(gjson.GetBytes(payload, "items.#").Int())
}
