// Package reconcile consumes a provider's normalized issue list and
// reconciles it against persisted state via an upsert keyed on the
// composite (trackerID, externalKey).
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/steffonell/dockyard/internal/types"
)

// ErrNotFound is returned by store lookups when no record exists for the
// composite key.
var ErrNotFound = errors.New("issue record not found")

// StoredIssue is the persisted form of a normalized issue, stamped with the
// tracker it came from and the provider's key.
type StoredIssue struct {
	TrackerID   string
	ExternalKey string
	Title       string
	Description string
	Status      types.Status
	Priority    string
	URL         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Raw         []byte
}

// IssueStore is the persistence collaborator the reconciler writes through.
// Implementations must treat (trackerID, externalKey) as a unique composite
// key.
type IssueStore interface {
	// Get returns the record for the composite key, or ErrNotFound.
	Get(ctx context.Context, trackerID, externalKey string) (*StoredIssue, error)

	// Create inserts a new record.
	Create(ctx context.Context, rec *StoredIssue) error

	// Update overwrites the mutable fields of an existing record.
	Update(ctx context.Context, rec *StoredIssue) error

	// Count returns the number of records held for a tracker.
	Count(ctx context.Context, trackerID string) (int, error)
}

// MemoryStore is a mutex-guarded in-memory IssueStore, used by tests and
// dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*StoredIssue
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*StoredIssue)}
}

func compositeKey(trackerID, externalKey string) string {
	return trackerID + "\x00" + externalKey
}

func (s *MemoryStore) Get(_ context.Context, trackerID, externalKey string) (*StoredIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[compositeKey(trackerID, externalKey)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *MemoryStore) Create(_ context.Context, rec *StoredIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := compositeKey(rec.TrackerID, rec.ExternalKey)
	if _, exists := s.records[key]; exists {
		return errors.New("issue record already exists")
	}
	clone := *rec
	s.records[key] = &clone
	return nil
}

func (s *MemoryStore) Update(_ context.Context, rec *StoredIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := compositeKey(rec.TrackerID, rec.ExternalKey)
	existing, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}
	existing.Title = rec.Title
	existing.Description = rec.Description
	existing.Status = rec.Status
	existing.Priority = rec.Priority
	existing.URL = rec.URL
	existing.UpdatedAt = rec.UpdatedAt
	existing.Raw = rec.Raw
	return nil
}

func (s *MemoryStore) Count(_ context.Context, trackerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.records {
		if len(key) > len(trackerID) && key[:len(trackerID)] == trackerID && key[len(trackerID)] == '\x00' {
			n++
		}
	}
	return n, nil
}
