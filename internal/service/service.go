// Package service wraps tracker clients with a read-through response cache
// and request metrics. Read operations (projects, issues, users) are served
// from cache within their TTL; mutating or freshness-critical operations
// (Authenticate, TestConnection, SyncIssues) always hit the provider.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steffonell/dockyard/internal/cache"
	"github.com/steffonell/dockyard/internal/telemetry"
	"github.com/steffonell/dockyard/internal/tracker"
	"github.com/steffonell/dockyard/internal/types"
)

const scopeName = "github.com/steffonell/dockyard/service"

// Cache TTLs per operation class. Project lists move slowly; issue lists
// churn and go stale fast.
const (
	ProjectsTTL = 10 * time.Minute
	IssuesTTL   = 2 * time.Minute
	UsersTTL    = 10 * time.Minute
)

// TrackerService decorates a tracker.Client with caching and metrics.
// It implements tracker.Client itself, so callers are oblivious.
type TrackerService struct {
	client tracker.Client
	cache  *cache.Cache

	requests metric.Int64Counter
	hits     metric.Int64Counter
}

var _ tracker.Client = (*TrackerService)(nil)

// New wraps client with the given cache. A nil cache disables caching but
// keeps the metrics, which makes the wrapper safe to apply unconditionally.
func New(client tracker.Client, c *cache.Cache) *TrackerService {
	m := telemetry.Meter(scopeName)
	requests, _ := m.Int64Counter("dockyard.tracker.requests",
		metric.WithDescription("Tracker operations routed through the service"),
	)
	hits, _ := m.Int64Counter("dockyard.tracker.cache_hits",
		metric.WithDescription("Tracker operations served from cache"),
	)
	return &TrackerService{client: client, cache: c, requests: requests, hits: hits}
}

func (s *TrackerService) Name() string        { return s.client.Name() }
func (s *TrackerService) DisplayName() string { return s.client.DisplayName() }

// Authenticate always reaches the provider; cached state is useless for
// credential checks.
func (s *TrackerService) Authenticate(ctx context.Context) (bool, error) {
	s.count(ctx, "authenticate", false)
	return s.client.Authenticate(ctx)
}

// TestConnection bypasses the cache for the same reason.
func (s *TrackerService) TestConnection(ctx context.Context) error {
	s.count(ctx, "test_connection", false)
	return s.client.TestConnection(ctx)
}

func (s *TrackerService) GetProjects(ctx context.Context) ([]types.NormalizedProject, error) {
	key := s.key("projects")
	if v, ok := s.lookup(ctx, "get_projects", key); ok {
		return v.([]types.NormalizedProject), nil
	}
	projects, err := s.client.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	s.store(key, projects, ProjectsTTL)
	return projects, nil
}

func (s *TrackerService) GetProject(ctx context.Context, projectKey string) (*types.NormalizedProject, error) {
	key := s.key("project", projectKey)
	if v, ok := s.lookup(ctx, "get_project", key); ok {
		return v.(*types.NormalizedProject), nil
	}
	project, err := s.client.GetProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	if project != nil {
		// Absent projects are not cached: a project created moments later
		// should be visible immediately.
		s.store(key, project, ProjectsTTL)
	}
	return project, nil
}

func (s *TrackerService) GetIssues(ctx context.Context, projectKey string, opts tracker.FetchOptions) ([]types.NormalizedIssue, error) {
	key := s.key("issues", projectKey, fetchOptionsKey(opts))
	if v, ok := s.lookup(ctx, "get_issues", key); ok {
		return v.([]types.NormalizedIssue), nil
	}
	issues, err := s.client.GetIssues(ctx, projectKey, opts)
	if err != nil {
		return nil, err
	}
	s.store(key, issues, IssuesTTL)
	return issues, nil
}

func (s *TrackerService) GetIssue(ctx context.Context, issueKey string) (*types.NormalizedIssue, error) {
	key := s.key("issue", issueKey)
	if v, ok := s.lookup(ctx, "get_issue", key); ok {
		return v.(*types.NormalizedIssue), nil
	}
	issue, err := s.client.GetIssue(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	if issue != nil {
		s.store(key, issue, IssuesTTL)
	}
	return issue, nil
}

func (s *TrackerService) GetUsers(ctx context.Context, projectKey string) ([]types.NormalizedUser, error) {
	key := s.key("users", projectKey)
	if v, ok := s.lookup(ctx, "get_users", key); ok {
		return v.([]types.NormalizedUser), nil
	}
	users, err := s.client.GetUsers(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	s.store(key, users, UsersTTL)
	return users, nil
}

// SyncIssues always fetches fresh data and invalidates the provider's
// cached issue lists, which are stale the moment a sync completes.
func (s *TrackerService) SyncIssues(ctx context.Context, projectKey string, lastSync *time.Time) (*types.SyncResult, error) {
	s.count(ctx, "sync_issues", false)
	result, err := s.client.SyncIssues(ctx, projectKey, lastSync)
	if err == nil && s.cache != nil {
		s.cache.Clear()
	}
	return result, err
}

func (s *TrackerService) Close() error { return s.client.Close() }

// Refresh drops every cached response for this service's provider.
func (s *TrackerService) Refresh() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// key builds a cache key of the form op:provider:part:part.
func (s *TrackerService) key(op string, parts ...string) string {
	elems := append([]string{op, s.client.Name()}, parts...)
	return strings.Join(elems, ":")
}

func (s *TrackerService) lookup(ctx context.Context, op, key string) (interface{}, bool) {
	if s.cache == nil {
		s.count(ctx, op, false)
		return nil, false
	}
	v, ok := s.cache.Get(key)
	s.count(ctx, op, ok)
	return v, ok
}

func (s *TrackerService) store(key string, value interface{}, ttl time.Duration) {
	if s.cache != nil {
		s.cache.Set(key, value, ttl)
	}
}

func (s *TrackerService) count(ctx context.Context, op string, hit bool) {
	attrs := metric.WithAttributes(
		attribute.String("provider", s.client.Name()),
		attribute.String("operation", op),
	)
	s.requests.Add(ctx, 1, attrs)
	if hit {
		s.hits.Add(ctx, 1, attrs)
	}
}

// fetchOptionsKey renders opts into a stable cache-key fragment.
func fetchOptionsKey(opts tracker.FetchOptions) string {
	var b strings.Builder
	for i, st := range opts.Statuses {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(st))
	}
	since := ""
	if opts.UpdatedSince != nil {
		since = opts.UpdatedSince.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s:%s:%d", b.String(), since, opts.Limit)
}
