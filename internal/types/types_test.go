package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"open", StatusOpen},
		{"in_progress", StatusInProgress},
		{"In Progress", StatusInProgress},
		{"in-progress", StatusInProgress},
		{"  DONE  ", StatusDone},
		{"closed", StatusClosed},
		{"cancelled", StatusCancelled},
		{"blocked", StatusOpen}, // unknown defaults to open
		{"", StatusOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStatus(tt.in), "ParseStatus(%q)", tt.in)
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid(), "%q should be valid", s)
	}
	assert.False(t, Status("triage").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestNormalize(t *testing.T) {
	created := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("key falls back to id", func(t *testing.T) {
		i := NormalizedIssue{ID: "42", Status: StatusOpen}
		i.Normalize()
		assert.Equal(t, "42", i.Key)
	})

	t.Run("empty status becomes open", func(t *testing.T) {
		i := NormalizedIssue{ID: "1", Key: "K-1"}
		i.Normalize()
		assert.Equal(t, StatusOpen, i.Status)
	})

	t.Run("updated clamped to created", func(t *testing.T) {
		i := NormalizedIssue{
			ID: "1", Key: "K-1", Status: StatusOpen,
			CreatedAt: created,
			UpdatedAt: created.Add(-time.Hour),
		}
		i.Normalize()
		assert.False(t, i.UpdatedAt.Before(i.CreatedAt))
	})
}

func TestValidate(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	valid := NormalizedIssue{
		ID: "1", Key: "K-1", Status: StatusOpen,
		CreatedAt: created, UpdatedAt: created.Add(time.Hour),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*NormalizedIssue)
	}{
		{"empty id", func(i *NormalizedIssue) { i.ID = "" }},
		{"empty key", func(i *NormalizedIssue) { i.Key = "" }},
		{"invalid status", func(i *NormalizedIssue) { i.Status = "triage" }},
		{"updated before created", func(i *NormalizedIssue) { i.UpdatedAt = created.Add(-time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := valid
			tt.mutate(&i)
			assert.Error(t, i.Validate())
		})
	}
}

func TestSyncResultAddError(t *testing.T) {
	r := SyncResult{Success: true}
	r.AddError("issue %s: %v", "K-1", "boom")
	r.AddError("issue %s: %v", "K-2", "also boom")
	require.Len(t, r.Errors, 2)
	assert.Equal(t, "issue K-1: boom", r.Errors[0])
}
