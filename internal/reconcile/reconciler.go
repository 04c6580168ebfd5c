package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/steffonell/dockyard/internal/types"
)

// Reconciler upserts fetched issues against an IssueStore.
//
// Issues are processed one at a time, in provider order, so upserts for a
// single tracker never race on record creation. Run one Reconcile call per
// tracker at a time unless the store enforces the composite unique key
// itself.
type Reconciler struct {
	Store IssueStore

	// OnWarning receives per-item failure messages (optional).
	OnWarning func(msg string)
}

// NewReconciler creates a reconciler writing through the given store.
func NewReconciler(store IssueStore) *Reconciler {
	return &Reconciler{Store: store}
}

// Reconcile upserts each issue keyed on (trackerID, issue.Key): an existing
// record has its mutable fields (title, description, status, priority, URL,
// updated-at, raw payload) overwritten; a missing record is created stamped
// with the tracker id and external key.
//
// Each issue is reconciled independently: a per-item failure is recorded in
// the result's error list and does not abort the remaining issues. The
// caller stamps the tracker's last-synced timestamp after completion.
func (r *Reconciler) Reconcile(ctx context.Context, trackerID string, issues []types.NormalizedIssue) *types.SyncResult {
	result := &types.SyncResult{Success: true, LastSyncTime: time.Now()}

	for i := range issues {
		issue := &issues[i]
		result.Processed++

		if err := issue.Validate(); err != nil {
			result.AddError("issue %s: %v", issue.Key, err)
			r.warn("skipping invalid issue %s: %v", issue.Key, err)
			continue
		}

		created, err := r.upsert(ctx, trackerID, issue)
		if err != nil {
			result.AddError("issue %s: %v", issue.Key, err)
			r.warn("failed to reconcile issue %s: %v", issue.Key, err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	result.Success = len(result.Errors) == 0
	return result
}

// upsert writes one issue through the store, reporting whether a new record
// was created.
func (r *Reconciler) upsert(ctx context.Context, trackerID string, issue *types.NormalizedIssue) (bool, error) {
	rec := &StoredIssue{
		TrackerID:   trackerID,
		ExternalKey: issue.Key,
		Title:       issue.Title,
		Description: issue.Description,
		Status:      issue.Status,
		Priority:    issue.Priority,
		URL:         issue.URL,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		Raw:         issue.Raw,
	}

	if up, ok := r.Store.(Upserter); ok {
		return up.Upsert(ctx, rec)
	}

	_, err := r.Store.Get(ctx, trackerID, issue.Key)
	switch {
	case err == nil:
		if err := r.Store.Update(ctx, rec); err != nil {
			return false, fmt.Errorf("update: %w", err)
		}
		return false, nil
	case errors.Is(err, ErrNotFound):
		if err := r.Store.Create(ctx, rec); err != nil {
			return false, fmt.Errorf("create: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("lookup: %w", err)
	}
}

// Upserter is an optional IssueStore refinement for backends with a native
// atomic upsert (e.g. a unique-constraint INSERT ... ON DUPLICATE KEY
// UPDATE). When available it replaces the get-then-write pair.
type Upserter interface {
	// Upsert writes the record, reporting whether it was newly created.
	Upsert(ctx context.Context, rec *StoredIssue) (created bool, err error)
}

func (r *Reconciler) warn(format string, args ...interface{}) {
	if r.OnWarning != nil {
		r.OnWarning(fmt.Sprintf(format, args...))
	}
}
