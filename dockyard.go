// Package dockyard provides a minimal public API for embedding the tracker
// integration layer in other Go programs.
//
// Most callers should use the dockyard CLI. This package exports only the
// essential types and constructors needed to drive provider clients and the
// reconciler programmatically.
package dockyard

import (
	"github.com/steffonell/dockyard/internal/reconcile"
	"github.com/steffonell/dockyard/internal/tracker"
	"github.com/steffonell/dockyard/internal/types"

	// Providers self-register with the tracker registry.
	_ "github.com/steffonell/dockyard/internal/jira"
	_ "github.com/steffonell/dockyard/internal/teamwork"
)

// Core types for working with normalized issues.
type (
	Issue        = types.NormalizedIssue
	Project      = types.NormalizedProject
	User         = types.NormalizedUser
	Status       = types.Status
	SyncResult   = types.SyncResult
	Client       = tracker.Client
	Credentials  = tracker.Credentials
	FetchOptions = tracker.FetchOptions
)

// Status constants (the shared vocabulary).
const (
	StatusOpen       = types.StatusOpen
	StatusInProgress = types.StatusInProgress
	StatusDone       = types.StatusDone
	StatusClosed     = types.StatusClosed
	StatusCancelled  = types.StatusCancelled
)

// NewClient creates a client for the named provider ("jira", "teamwork").
func NewClient(name string, creds *Credentials) (Client, error) {
	return tracker.New(name, creds)
}

// Providers returns the registered provider names.
func Providers() []string {
	return tracker.Providers()
}

// IssueStore is the persistence contract the reconciler writes through.
type IssueStore = reconcile.IssueStore

// NewReconciler creates a reconciler that upserts fetched issues into store,
// keyed on (tracker, external key).
func NewReconciler(store IssueStore) *reconcile.Reconciler {
	return reconcile.NewReconciler(store)
}

// NewMemoryStore returns an in-memory IssueStore, useful for tests and dry
// runs.
func NewMemoryStore() IssueStore {
	return reconcile.NewMemoryStore()
}
