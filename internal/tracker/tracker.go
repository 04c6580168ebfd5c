// Package tracker defines the client contract that every external tracker
// integration must implement, plus the shared helpers (HTTP wrapper, retry,
// generic normalization) the provider clients are built on.
//
// Each external system (Jira, Teamwork, future providers) registers a factory
// with the package registry; the caller constructs clients by provider name
// from a Credentials value. Providers share helpers by composition, not
// inheritance.
package tracker

import (
	"context"
	"time"

	"github.com/steffonell/dockyard/internal/types"
)

// FetchOptions narrows an issue listing.
type FetchOptions struct {
	// Statuses filters by shared-vocabulary status values. Providers translate
	// these to their native vocabulary before querying. Empty means all.
	Statuses []types.Status

	// UpdatedSince limits results to issues updated after this time.
	UpdatedSince *time.Time

	// Limit caps the number of issues fetched (0 = provider default).
	Limit int
}

// Client is the capability set every tracker provider must satisfy.
//
// All operations may fail; failures carry a human-readable message. The
// single-record lookups (GetProject, GetIssue) return (nil, nil) when the
// record does not exist, reserving errors for connectivity and parse
// failures.
type Client interface {
	// Name returns the lowercase provider identifier (e.g. "jira").
	Name() string

	// DisplayName returns the human-readable provider name (e.g. "Jira").
	DisplayName() string

	// Authenticate ensures the client holds working credentials, refreshing
	// them when the provider supports it. It returns false (without error)
	// when credentials are missing or expired beyond repair and the caller
	// must re-authorize out of band.
	Authenticate(ctx context.Context) (bool, error)

	// TestConnection verifies connectivity with the current credentials.
	TestConnection(ctx context.Context) error

	// GetProjects lists all projects visible to the credential.
	GetProjects(ctx context.Context) ([]types.NormalizedProject, error)

	// GetProject fetches a single project by key. Returns nil, nil if absent.
	GetProject(ctx context.Context, key string) (*types.NormalizedProject, error)

	// GetIssues lists issues for a project, subject to opts. An empty
	// projectKey lists across all projects where the provider supports it.
	GetIssues(ctx context.Context, projectKey string, opts FetchOptions) ([]types.NormalizedIssue, error)

	// GetIssue fetches a single issue by key. Returns nil, nil if absent.
	GetIssue(ctx context.Context, key string) (*types.NormalizedIssue, error)

	// GetUsers lists users, scoped to a project when projectKey is non-empty.
	GetUsers(ctx context.Context, projectKey string) ([]types.NormalizedUser, error)

	// SyncIssues fetches issues updated since lastSync (all issues when nil)
	// and reports what was fetched. It does not persist anything; the
	// reconciler owns persistence and accurate create/update accounting.
	SyncIssues(ctx context.Context, projectKey string, lastSync *time.Time) (*types.SyncResult, error)

	// Close releases resources held by the client.
	Close() error
}

// SyncPageSize is the page size SyncIssues requests from providers.
const SyncPageSize = 1000
