package tracker

import (
	"reflect"
	"testing"
	"time"

	"github.com/steffonell/dockyard/internal/types"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T09:30:00Z", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2024-03-01T09:30:00.000+0000", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2024-03-01 09:30:00", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("ParseTimestamp(\"yesterday\") succeeded, want error")
	}
}

func TestNormalizeIssueKeyAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want types.NormalizedIssue
	}{
		{
			name: "jira-like field names",
			raw: map[string]interface{}{
				"id":      "10001",
				"key":     "PROJ-1",
				"summary": "Fix the thing",
				"status":  map[string]interface{}{"name": "In Progress"},
				"created": "2024-03-01T09:00:00Z",
				"updated": "2024-03-02T10:00:00Z",
			},
			want: types.NormalizedIssue{
				ID:        "10001",
				Key:       "PROJ-1",
				Title:     "Fix the thing",
				Status:    types.StatusInProgress,
				CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
				UpdatedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "teamwork-like field names",
			raw: map[string]interface{}{
				"id":            float64(42),
				"name":          "Fix bug",
				"status":        "in_progress",
				"createdOn":     "2024-03-01T09:00:00Z",
				"lastChangedOn": "2024-03-02T10:00:00Z",
			},
			want: types.NormalizedIssue{
				ID:        "42",
				Key:       "42", // falls back to id
				Title:     "Fix bug",
				Status:    types.StatusInProgress,
				CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
				UpdatedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIssue(tt.raw)
			got.Raw = nil
			if got.ID != tt.want.ID || got.Key != tt.want.Key || got.Title != tt.want.Title {
				t.Errorf("identity fields = %q/%q/%q, want %q/%q/%q",
					got.ID, got.Key, got.Title, tt.want.ID, tt.want.Key, tt.want.Title)
			}
			if got.Status != tt.want.Status {
				t.Errorf("status = %q, want %q", got.Status, tt.want.Status)
			}
			if !got.CreatedAt.Equal(tt.want.CreatedAt) || !got.UpdatedAt.Equal(tt.want.UpdatedAt) {
				t.Errorf("timestamps = %v/%v, want %v/%v",
					got.CreatedAt, got.UpdatedAt, tt.want.CreatedAt, tt.want.UpdatedAt)
			}
		})
	}
}

func TestNormalizeIssueUnknownStatusDefaultsOpen(t *testing.T) {
	got := NormalizeIssue(map[string]interface{}{
		"id":     "1",
		"title":  "Mystery state",
		"status": "Waiting For Godot",
	})
	if got.Status != types.StatusOpen {
		t.Errorf("status = %q, want %q", got.Status, types.StatusOpen)
	}
}

func TestNormalizeIssueClampsUpdatedAt(t *testing.T) {
	got := NormalizeIssue(map[string]interface{}{
		"id":      "1",
		"title":   "Clock skew",
		"created": "2024-03-02T10:00:00Z",
		"updated": "2024-03-01T09:00:00Z",
	})
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("UpdatedAt %v earlier than CreatedAt %v after normalization",
			got.UpdatedAt, got.CreatedAt)
	}
}

func TestNormalizeIssueUsersAndLabels(t *testing.T) {
	got := NormalizeIssue(map[string]interface{}{
		"id":    "1",
		"title": "Assigned",
		"assignee": map[string]interface{}{
			"accountId":    "abc123",
			"displayName":  "Alice Doe",
			"emailAddress": "alice@example.com",
		},
		"reporter": "bob",
		"labels":   []interface{}{"backend", map[string]interface{}{"name": "urgent"}},
	})
	if got.Assignee == nil || got.Assignee.ID != "abc123" || got.Assignee.Email != "alice@example.com" {
		t.Errorf("assignee = %+v, want accountId abc123", got.Assignee)
	}
	if got.Reporter == nil || got.Reporter.Name != "bob" {
		t.Errorf("reporter = %+v, want bob", got.Reporter)
	}
	if !reflect.DeepEqual(got.Labels, []string{"backend", "urgent"}) {
		t.Errorf("labels = %v, want [backend urgent]", got.Labels)
	}
}

func TestNormalizeIssueIsIdempotent(t *testing.T) {
	raw := map[string]interface{}{
		"id":      "10001",
		"key":     "PROJ-9",
		"summary": "Stable output",
		"status":  map[string]interface{}{"name": "Done"},
		"labels":  []interface{}{"a", "b"},
		"created": "2024-03-01T09:00:00Z",
		"updated": "2024-03-02T10:00:00Z",
	}
	first := NormalizeIssue(raw)
	second := NormalizeIssue(raw)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
