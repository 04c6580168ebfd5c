package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/steffonell/dockyard/internal/tracker"
	"github.com/steffonell/dockyard/internal/types"
)

func init() {
	tracker.Register("jira", func(creds *tracker.Credentials) (tracker.Client, error) {
		return NewTracker(creds), nil
	})
}

// Tracker implements tracker.Client for Jira Cloud.
type Tracker struct {
	client *Client
	creds  *tracker.Credentials

	// retryOpts tune the shared retry helper; tests shorten the delays.
	retryOpts []tracker.RetryOption
}

// NewTracker creates the Jira adapter for the given credentials.
func NewTracker(creds *tracker.Credentials) *Tracker {
	return &Tracker{
		client: NewClient(creds),
		creds:  creds,
	}
}

func (t *Tracker) Name() string        { return "jira" }
func (t *Tracker) DisplayName() string { return "Jira" }
func (t *Tracker) Close() error        { return nil }

// Authenticate checks whether the current access token still works and, if
// not, attempts one refresh-token exchange. It fails open (false, nil) when
// no refresh token is held: the caller must drive the authorization-code
// flow out of band (see Client.AuthCodeURL).
func (t *Tracker) Authenticate(ctx context.Context) (bool, error) {
	if t.creds.Token.AccessToken != "" {
		if err := t.TestConnection(ctx); err == nil {
			return true, nil
		}
	}

	if t.creds.Token.RefreshToken == "" {
		return false, nil
	}

	if err := t.client.RefreshToken(ctx); err != nil {
		return false, fmt.Errorf("jira: refresh token exchange failed: %w", err)
	}
	if err := t.TestConnection(ctx); err != nil {
		return false, fmt.Errorf("jira: refreshed token rejected: %w", err)
	}
	return true, nil
}

// TestConnection verifies connectivity via GET /rest/api/3/myself.
func (t *Tracker) TestConnection(ctx context.Context) error {
	if err := t.client.Myself(ctx); err != nil {
		return fmt.Errorf("jira connection test failed: %w", err)
	}
	return nil
}

func (t *Tracker) GetProjects(ctx context.Context) ([]types.NormalizedProject, error) {
	var projects []Project
	err := tracker.Retry(ctx, func() error {
		var err error
		projects, err = t.client.Projects(ctx)
		return err
	}, t.retryOpts...)
	if err != nil {
		return nil, err
	}

	result := make([]types.NormalizedProject, 0, len(projects))
	for i := range projects {
		result = append(result, normalizeProject(&projects[i], t.creds.Site))
	}
	return result, nil
}

func (t *Tracker) GetProject(ctx context.Context, key string) (*types.NormalizedProject, error) {
	project, err := t.client.Project(ctx, key)
	if err != nil {
		if tracker.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project %s: %w", key, err)
	}
	np := normalizeProject(project, t.creds.Site)
	return &np, nil
}

func (t *Tracker) GetIssues(ctx context.Context, projectKey string, opts tracker.FetchOptions) ([]types.NormalizedIssue, error) {
	jql := buildJQL(projectKey, opts)

	var issues []Issue
	err := tracker.Retry(ctx, func() error {
		var err error
		issues, err = t.client.SearchAll(ctx, jql, opts.Limit)
		return err
	}, t.retryOpts...)
	if err != nil {
		return nil, err
	}

	result := make([]types.NormalizedIssue, 0, len(issues))
	for i := range issues {
		result = append(result, normalizeIssue(&issues[i], t.creds.Site))
	}
	return result, nil
}

func (t *Tracker) GetIssue(ctx context.Context, key string) (*types.NormalizedIssue, error) {
	issue, err := t.client.Issue(ctx, key)
	if err != nil {
		if tracker.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	ni := normalizeIssue(issue, t.creds.Site)
	return &ni, nil
}

func (t *Tracker) GetUsers(ctx context.Context, projectKey string) ([]types.NormalizedUser, error) {
	users, err := t.client.Users(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	result := make([]types.NormalizedUser, 0, len(users))
	for i := range users {
		result = append(result, normalizeUser(&users[i]))
	}
	return result, nil
}

// SyncIssues fetches issues updated since lastSync and reports what was
// fetched. Persistence and accurate create/update accounting belong to the
// reconciler.
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

// buildJQL composes the query-language filter: project scope, optional
// "updated since" clause, optional status-in clause, newest first.
func buildJQL(projectKey string, opts tracker.FetchOptions) string {
	var clauses []string
	if projectKey != "" {
		clauses = append(clauses, fmt.Sprintf("project = %q", projectKey))
	}
	if opts.UpdatedSince != nil {
		clauses = append(clauses, fmt.Sprintf("updated >= %q", opts.UpdatedSince.Format("2006-01-02 15:04")))
	}
	if len(opts.Statuses) > 0 {
		var names []string
		for _, s := range opts.Statuses {
			for _, name := range sharedToJiraStatuses(s) {
				names = append(names, fmt.Sprintf("%q", name))
			}
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(names, ", ")))
	}

	jql := strings.Join(clauses, " AND ")
	if jql != "" {
		jql += " "
	}
	return jql + "ORDER BY updated DESC"
}

// normalizeIssue maps a Jira issue field-by-field into the common shape.
func normalizeIssue(ji *Issue, site string) types.NormalizedIssue {
	ni := types.NormalizedIssue{
		ID:          ji.ID,
		Key:         ji.Key,
		Title:       ji.Fields.Summary,
		Description: DescriptionToPlainText(ji.Fields.Description),
		Labels:      ji.Fields.Labels,
		URL:         browseURL(site, ji.Key),
	}

	if ji.Fields.Status != nil {
		ni.Status = jiraStatusToShared(ji.Fields.Status)
	}
	if ji.Fields.Priority != nil {
		ni.Priority = ji.Fields.Priority.Name
	}
	if ji.Fields.Assignee != nil {
		u := normalizeUser(ji.Fields.Assignee)
		ni.Assignee = &u
	}
	if ji.Fields.Reporter != nil {
		u := normalizeUser(ji.Fields.Reporter)
		ni.Reporter = &u
	}

	if t, err := tracker.ParseTimestamp(ji.Fields.Created); err == nil {
		ni.CreatedAt = t
	}
	if t, err := tracker.ParseTimestamp(ji.Fields.Updated); err == nil {
		ni.UpdatedAt = t
	}

	if data, err := json.Marshal(ji); err == nil {
		ni.Raw = data
	}

	ni.Normalize()
	return ni
}

func normalizeProject(jp *Project, site string) types.NormalizedProject {
	return types.NormalizedProject{
		ID:          jp.ID,
		Key:         jp.Key,
		Name:        jp.Name,
		Description: jp.Description,
		URL:         strings.TrimSuffix(site, "/") + "/browse/" + jp.Key,
	}
}

func normalizeUser(ju *UserField) types.NormalizedUser {
	return types.NormalizedUser{
		ID:          ju.AccountID,
		Name:        ju.DisplayName,
		Email:       ju.EmailAddress,
		DisplayName: ju.DisplayName,
	}
}

// jiraStatusToShared maps a Jira status onto the shared vocabulary, using
// the status category when the name itself is not conclusive.
func jiraStatusToShared(sf *StatusField) types.Status {
	switch strings.ToLower(sf.Name) {
	case "closed":
		return types.StatusClosed
	case "cancelled", "canceled", "won't do", "wont do":
		return types.StatusCancelled
	case "done", "resolved":
		return types.StatusDone
	case "in progress", "in review":
		return types.StatusInProgress
	case "open", "to do", "backlog", "reopened":
		return types.StatusOpen
	}
	if sf.StatusCategory != nil {
		switch sf.StatusCategory.Key {
		case "new":
			return types.StatusOpen
		case "indeterminate":
			return types.StatusInProgress
		case "done":
			return types.StatusDone
		}
	}
	return types.StatusOpen
}

// sharedToJiraStatuses maps a shared status onto the Jira status names used
// in JQL status-in clauses.
func sharedToJiraStatuses(s types.Status) []string {
	switch s {
	case types.StatusOpen:
		return []string{"Open", "To Do", "Backlog"}
	case types.StatusInProgress:
		return []string{"In Progress"}
	case types.StatusDone:
		return []string{"Done", "Resolved"}
	case types.StatusClosed:
		return []string{"Closed"}
	case types.StatusCancelled:
		return []string{"Cancelled"}
	default:
		return nil
	}
}

func browseURL(site, key string) string {
	if site == "" || key == "" {
		return ""
	}
	return strings.TrimSuffix(site, "/") + "/browse/" + key
}
