package teamwork

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/steffonell/dockyard/internal/ratelimit"
	"github.com/steffonell/dockyard/internal/tracker"
)

const (
	// DefaultRateLimit is the number of requests admitted per window.
	// Deliberately conservative relative to Teamwork's documented allowance.
	DefaultRateLimit = 30
	// DefaultRateWindow is the fixed-window length.
	DefaultRateWindow = 60 * time.Second

	defaultPageSize = 250
)

// Client provides HTTP access to a Teamwork site. Authentication is HTTP
// Basic built from the API key (key as username, literal "x" as password).
//
// Every call passes the fixed-window rate limiter, keyed by the API key,
// before the request is performed; a rejection raises a
// tracker.RateLimitError without touching the network.
type Client struct {
	creds   *tracker.Credentials
	api     *tracker.HTTPClient
	limiter *ratelimit.Limiter
}

// NewClient creates a Teamwork client sharing the given limiter. Callers
// that run several clients against the same site should pass one limiter so
// the per-key budget is enforced process-wide.
func NewClient(creds *tracker.Credentials, limiter *ratelimit.Limiter) *Client {
	c := &Client{
		creds:   creds,
		limiter: limiter,
	}
	c.api = tracker.NewHTTPClient(creds.Site, c.authHeaders, 0)
	return c
}

// authHeaders builds the Basic auth header from the API key.
func (c *Client) authHeaders() (map[string]string, error) {
	if c.creds.APIKey == "" {
		return nil, fmt.Errorf("teamwork: no api key: %w", tracker.ErrAuthRequired)
	}
	token := base64.StdEncoding.EncodeToString([]byte(c.creds.APIKey + ":x"))
	return map[string]string{
		"Authorization": "Basic " + token,
	}, nil
}

// get performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if ok, resetAt := c.limiter.Allow(c.creds.APIKey); !ok {
		return tracker.NewRateLimitError(resetAt)
	}
	return c.api.DoJSON(ctx, "GET", path, query, nil, out)
}

// Projects lists projects. pageSize of 0 uses the provider default.
func (c *Client) Projects(ctx context.Context, pageSize int) ([]Project, error) {
	query := url.Values{}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	var resp projectsResponse
	if err := c.get(ctx, "/projects/api/v3/projects.json", query, &resp); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return resp.Projects, nil
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	// ProjectID scopes the listing; 0 selects the global all-tasks endpoint.
	ProjectID int64
	// UpdatedAfter is sent as updatedAfter=YYYY-MM-DD.
	UpdatedAfter *time.Time
	// Statuses are native Teamwork status values, sent as repeated status[].
	Statuses []string
	// PageSize caps the page; 0 uses the provider default.
	PageSize int
}

// Tasks lists tasks subject to the filter. With no project, the global
// all-tasks endpoint is used.
func (c *Client) Tasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	path := "/projects/api/v3/tasks.json"
	if filter.ProjectID > 0 {
		path = fmt.Sprintf("/projects/api/v3/projects/%d/tasks.json", filter.ProjectID)
	}

	query := url.Values{}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	query.Set("pageSize", strconv.Itoa(pageSize))
	if filter.UpdatedAfter != nil {
		query.Set("updatedAfter", filter.UpdatedAfter.Format("2006-01-02"))
	}
	for _, status := range filter.Statuses {
		query.Add("status[]", status)
	}

	var resp tasksResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return resp.Tasks, nil
}

// Task fetches a single task by id.
func (c *Client) Task(ctx context.Context, id int64) (*Task, error) {
	path := fmt.Sprintf("/projects/api/v3/tasks/%d.json", id)
	var resp taskResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// People lists users, scoped to a project when projectID is non-zero.
func (c *Client) People(ctx context.Context, projectID int64) ([]Person, error) {
	path := "/projects/api/v3/people.json"
	if projectID > 0 {
		path = fmt.Sprintf("/projects/api/v3/projects/%d/people.json", projectID)
	}
	var resp peopleResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	return resp.People, nil
}
