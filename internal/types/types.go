// Package types defines the normalized data model shared by all tracker
// integrations.
//
// Every provider (Jira, Teamwork, future trackers) converts its native wire
// format into these shapes. Downstream consumers (the sync reconciler, the
// CLI, the caching service) only ever see normalized values.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the shared status vocabulary. Each provider maps its own state
// names onto this small set; unknown provider states default to StatusOpen.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusClosed     Status = "closed"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists every value in the shared vocabulary, in display order.
var AllStatuses = []Status{
	StatusOpen,
	StatusInProgress,
	StatusDone,
	StatusClosed,
	StatusCancelled,
}

// ParseStatus maps a free-form string onto the shared vocabulary.
// Separators are folded ("In Progress" and "in-progress" both parse);
// unrecognized values default to StatusOpen.
func ParseStatus(s string) Status {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	switch st := Status(normalized); st {
	case StatusOpen, StatusInProgress, StatusDone, StatusClosed, StatusCancelled:
		return st
	default:
		return StatusOpen
	}
}

// IsValid reports whether s is a member of the shared vocabulary.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// NormalizedUser is a provider-agnostic user reference.
type NormalizedUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// NormalizedIssue is the common issue shape all providers normalize into.
//
// Invariants (enforced by Normalize): ID and Key are never empty, and
// CreatedAt <= UpdatedAt.
type NormalizedIssue struct {
	// ID is the provider-native identifier.
	ID string `json:"id"`
	// Key is the human-facing key (e.g. "PROJ-123"). Equals ID when the
	// provider has no separate key.
	Key         string          `json:"key"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      Status          `json:"status"`
	Assignee    *NormalizedUser `json:"assignee,omitempty"`
	Reporter    *NormalizedUser `json:"reporter,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Labels      []string        `json:"labels,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	URL         string          `json:"url,omitempty"`

	// Raw preserves the original provider payload for audit/debug.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Normalize repairs the issue to satisfy the model invariants:
// Key falls back to ID, an unset status becomes open, and UpdatedAt is
// clamped up to CreatedAt when the provider reports an earlier update time.
func (i *NormalizedIssue) Normalize() {
	if i.Key == "" {
		i.Key = i.ID
	}
	if i.Status == "" {
		i.Status = StatusOpen
	}
	if !i.CreatedAt.IsZero() && i.UpdatedAt.Before(i.CreatedAt) {
		i.UpdatedAt = i.CreatedAt
	}
}

// Validate reports whether the issue satisfies the model invariants.
func (i *NormalizedIssue) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("issue has empty id")
	}
	if i.Key == "" {
		return fmt.Errorf("issue %s has empty key", i.ID)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("issue %s has invalid status %q", i.Key, i.Status)
	}
	if !i.CreatedAt.IsZero() && i.UpdatedAt.Before(i.CreatedAt) {
		return fmt.Errorf("issue %s updated (%s) before created (%s)",
			i.Key, i.UpdatedAt.Format(time.RFC3339), i.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// NormalizedProject is the common project shape.
// ID is unique within a provider.
type NormalizedProject struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SyncResult summarizes a sync operation.
//
// Provider clients report fetch-only results: Processed is the number of
// issues fetched and Created/Updated stay zero. The reconciler reports
// accurate create/update accounting against persisted state.
type SyncResult struct {
	Success      bool      `json:"success"`
	Processed    int       `json:"processed"`
	Created      int       `json:"created"`
	Updated      int       `json:"updated"`
	Errors       []string  `json:"errors,omitempty"`
	LastSyncTime time.Time `json:"last_sync_time"`
}

// AddError records a non-fatal per-item error. Collected errors never abort
// the batch; whether they flip Success is the caller's call.
func (r *SyncResult) AddError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
