package teamwork

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/steffonell/dockyard/internal/ratelimit"
	"github.com/steffonell/dockyard/internal/tracker"
	"github.com/steffonell/dockyard/internal/types"
)

func init() {
	tracker.Register("teamwork", func(creds *tracker.Credentials) (tracker.Client, error) {
		// Registry construction gets a dedicated limiter keyed by the API
		// key; callers wanting one limiter across clients use NewTracker.
		return NewTracker(creds, ratelimit.New(DefaultRateLimit, DefaultRateWindow)), nil
	})
}

// Tracker implements tracker.Client for Teamwork.
type Tracker struct {
	client  *Client
	creds   *tracker.Credentials
	limiter *ratelimit.Limiter

	retryOpts []tracker.RetryOption
}

// NewTracker creates the Teamwork adapter using the given shared limiter.
func NewTracker(creds *tracker.Credentials, limiter *ratelimit.Limiter) *Tracker {
	return &Tracker{
		client:  NewClient(creds, limiter),
		creds:   creds,
		limiter: limiter,
	}
}

func (t *Tracker) Name() string        { return "teamwork" }
func (t *Tracker) DisplayName() string { return "Teamwork" }

// Close stops the limiter's background sweep.
func (t *Tracker) Close() error {
	t.limiter.Stop()
	return nil
}

// Authenticate reports whether the API key works. Teamwork keys are static:
// there is nothing to refresh, so this is a connection probe.
func (t *Tracker) Authenticate(ctx context.Context) (bool, error) {
	if err := t.TestConnection(ctx); err != nil {
		return false, nil
	}
	return true, nil
}

// TestConnection verifies the API key against the projects endpoint.
func (t *Tracker) TestConnection(ctx context.Context) error {
	if _, err := t.client.Projects(ctx, 1); err != nil {
		return fmt.Errorf("teamwork connection test failed: %w", err)
	}
	return nil
}

func (t *Tracker) GetProjects(ctx context.Context) ([]types.NormalizedProject, error) {
	var projects []Project
	err := tracker.Retry(ctx, func() error {
		var err error
		projects, err = t.client.Projects(ctx, 0)
		return err
	}, t.retryOpts...)
	if err != nil {
		return nil, err
	}

	result := make([]types.NormalizedProject, 0, len(projects))
	for i := range projects {
		result = append(result, t.normalizeProject(&projects[i]))
	}
	return result, nil
}

func (t *Tracker) GetProject(ctx context.Context, key string) (*types.NormalizedProject, error) {
	// Teamwork has no direct fetch-by-key; list and match on id or name.
	projects, err := t.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == key || strings.EqualFold(projects[i].Name, key) {
			return &projects[i], nil
		}
	}
	return nil, nil
}

func (t *Tracker) GetIssues(ctx context.Context, projectKey string, opts tracker.FetchOptions) ([]types.NormalizedIssue, error) {
	filter := TaskFilter{
		UpdatedAfter: opts.UpdatedSince,
		PageSize:     opts.Limit,
	}
	if projectKey != "" {
		id, err := strconv.ParseInt(projectKey, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("teamwork project key %q is not a numeric id", projectKey)
		}
		filter.ProjectID = id
	}
	for _, s := range opts.Statuses {
		filter.Statuses = append(filter.Statuses, StatusToNative(s))
	}

	var tasks []Task
	err := tracker.Retry(ctx, func() error {
		var err error
		tasks, err = t.client.Tasks(ctx, filter)
		return err
	}, t.retryOpts...)
	if err != nil {
		return nil, err
	}

	result := make([]types.NormalizedIssue, 0, len(tasks))
	for i := range tasks {
		result = append(result, t.normalizeTask(&tasks[i]))
	}
	return result, nil
}

func (t *Tracker) GetIssue(ctx context.Context, key string) (*types.NormalizedIssue, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("teamwork task key %q is not a numeric id", key)
	}
	task, err := t.client.Task(ctx, id)
	if err != nil {
		if tracker.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", key, err)
	}
	ni := t.normalizeTask(task)
	return &ni, nil
}

func (t *Tracker) GetUsers(ctx context.Context, projectKey string) ([]types.NormalizedUser, error) {
	var projectID int64
	if projectKey != "" {
		id, err := strconv.ParseInt(projectKey, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("teamwork project key %q is not a numeric id", projectKey)
		}
		projectID = id
	}

	people, err := t.client.People(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := make([]types.NormalizedUser, 0, len(people))
	for i := range people {
		result = append(result, normalizePerson(&people[i]))
	}
	return result, nil
}

// SyncIssues fetches tasks updated since lastSync and reports what was
// fetched; the reconciler owns persistence.
func (t *Tracker) SyncIssues(ctx context.Context, projectKey string, lastSync *time.Time) (*types.SyncResult, error) {
	opts := tracker.FetchOptions{
		UpdatedSince: lastSync,
		Limit:        tracker.SyncPageSize,
	}
	issues, err := t.GetIssues(ctx, projectKey, opts)
	if err != nil {
		return &types.SyncResult{Success: false, Errors: []string{err.Error()}, LastSyncTime: time.Now()}, err
	}
	return &types.SyncResult{
		Success:      true,
		Processed:    len(issues),
		LastSyncTime: time.Now(),
	}, nil
}

// normalizeTask maps a Teamwork task field-by-field into the common shape.
func (t *Tracker) normalizeTask(task *Task) types.NormalizedIssue {
	id := strconv.FormatInt(task.ID, 10)
	ni := types.NormalizedIssue{
		ID:          id,
		Key:         id,
		Title:       task.Name,
		Description: task.Description,
		Status:      StatusFromNative(task.Status),
		Priority:    task.Priority,
		URL:         t.taskURL(task.ID),
	}

	for _, tag := range task.Tags {
		if tag.Name != "" {
			ni.Labels = append(ni.Labels, tag.Name)
		}
	}
	if len(task.AssigneeIDs) > 0 {
		assigneeID := strconv.FormatInt(task.AssigneeIDs[0], 10)
		ni.Assignee = &types.NormalizedUser{ID: assigneeID}
	}

	if ts, err := tracker.ParseTimestamp(task.CreatedOn); err == nil {
		ni.CreatedAt = ts
	}
	if ts, err := tracker.ParseTimestamp(task.LastChangedOn); err == nil {
		ni.UpdatedAt = ts
	}

	if data, err := json.Marshal(task); err == nil {
		ni.Raw = data
	}

	ni.Normalize()
	return ni
}

func (t *Tracker) normalizeProject(p *Project) types.NormalizedProject {
	id := strconv.FormatInt(p.ID, 10)
	return types.NormalizedProject{
		ID:          id,
		Key:         id,
		Name:        p.Name,
		Description: p.Description,
		URL:         strings.TrimSuffix(t.creds.Site, "/") + "/app/projects/" + id,
	}
}

func normalizePerson(p *Person) types.NormalizedUser {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	return types.NormalizedUser{
		ID:          strconv.FormatInt(p.ID, 10),
		Name:        name,
		Email:       p.Email,
		DisplayName: name,
	}
}

func (t *Tracker) taskURL(id int64) string {
	return strings.TrimSuffix(t.creds.Site, "/") + "/app/tasks/" + strconv.FormatInt(id, 10)
}
