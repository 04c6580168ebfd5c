package jira

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/steffonell/dockyard/internal/tracker"
)

const (
	// AuthorizeURL is Atlassian's OAuth2 authorization endpoint.
	AuthorizeURL = "https://auth.atlassian.com/authorize"
	// DefaultAuthBase hosts the OAuth2 token endpoint.
	DefaultAuthBase = "https://auth.atlassian.com"

	apiAudience = "api.atlassian.com"
	oauthScope  = "read:jira-work read:jira-user offline_access"

	defaultPageSize = 100
)

// searchFields is the field set requested in search/get queries.
var searchFields = []string{
	"summary", "description", "status", "priority",
	"project", "assignee", "reporter", "labels", "created", "updated",
}

// Client provides HTTP access to a Jira Cloud instance using OAuth2 bearer
// tokens. Token state lives in the shared Credentials value; a successful
// refresh mutates it in place and reports through OnTokenRefresh.
type Client struct {
	creds *tracker.Credentials
	api   *tracker.HTTPClient

	// AuthBase is the token endpoint host, overridable in tests.
	AuthBase string
	auth     *tracker.HTTPClient
}

// NewClient creates a Jira client for the given credentials.
func NewClient(creds *tracker.Credentials) *Client {
	c := &Client{
		creds:    creds,
		AuthBase: DefaultAuthBase,
	}
	c.api = tracker.NewHTTPClient(creds.Site, c.authHeaders, 0)
	return c
}

// authHeaders supplies the bearer token header for API calls.
func (c *Client) authHeaders() (map[string]string, error) {
	if c.creds.Token.AccessToken == "" {
		return nil, fmt.Errorf("jira: no access token: %w", tracker.ErrAuthRequired)
	}
	return map[string]string{
		"Authorization": "Bearer " + c.creds.Token.AccessToken,
	}, nil
}

// authClient lazily builds the HTTP wrapper for the token endpoint, which
// lives on a different host than the site API.
func (c *Client) authClient() *tracker.HTTPClient {
	if c.auth == nil || c.auth.BaseURL != c.AuthBase {
		c.auth = tracker.NewHTTPClient(c.AuthBase, nil, 0)
	}
	return c.auth
}

// Myself probes GET /rest/api/3/myself to verify the current token works.
func (c *Client) Myself(ctx context.Context) error {
	return c.api.DoJSON(ctx, "GET", "/rest/api/3/myself", nil, nil, nil)
}

// Projects lists all projects visible to the token.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.api.DoJSON(ctx, "GET", "/rest/api/3/project", nil, nil, &projects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Project fetches a single project by key.
func (c *Client) Project(ctx context.Context, key string) (*Project, error) {
	var project Project
	path := "/rest/api/3/project/" + url.PathEscape(key)
	if err := c.api.DoJSON(ctx, "GET", path, nil, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Search runs one page of a JQL query via POST /rest/api/3/search.
func (c *Client) Search(ctx context.Context, jql string, startAt, maxResults int) (*SearchResult, error) {
	if maxResults <= 0 {
		maxResults = defaultPageSize
	}
	req := SearchRequest{
		JQL:        jql,
		StartAt:    startAt,
		MaxResults: maxResults,
		Fields:     searchFields,
	}
	var result SearchResult
	if err := c.api.DoJSON(ctx, "POST", "/rest/api/3/search", nil, &req, &result); err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	return &result, nil
}

// SearchAll pages through a JQL query until limit issues are collected
// (0 = everything).
func (c *Client) SearchAll(ctx context.Context, jql string, limit int) ([]Issue, error) {
	var all []Issue
	startAt := 0
	for {
		pageSize := defaultPageSize
		if limit > 0 && limit-len(all) < pageSize {
			pageSize = limit - len(all)
		}
		result, err := c.Search(ctx, jql, startAt, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Issues...)
		startAt += len(result.Issues)
		if len(result.Issues) == 0 || startAt >= result.Total {
			break
		}
		if limit > 0 && len(all) >= limit {
			all = all[:limit]
			break
		}
	}
	return all, nil
}

// Issue fetches a single issue by key (e.g. "PROJ-123").
func (c *Client) Issue(ctx context.Context, key string) (*Issue, error) {
	query := url.Values{"fields": {joinFields()}}
	path := "/rest/api/3/issue/" + url.PathEscape(key)
	var issue Issue
	if err := c.api.DoJSON(ctx, "GET", path, query, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Users lists users, scoped to assignable users of a project when
// projectKey is non-empty.
func (c *Client) Users(ctx context.Context, projectKey string) ([]UserField, error) {
	path := "/rest/api/3/users/search"
	query := url.Values{}
	if projectKey != "" {
		path = "/rest/api/3/user/assignable/search"
		query.Set("project", projectKey)
	}
	var users []UserField
	if err := c.api.DoJSON(ctx, "GET", path, query, nil, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AuthCodeURL builds the authorization-code URL the user must visit to
// grant access. state is echoed back on the redirect.
func (c *Client) AuthCodeURL(state string) string {
	params := url.Values{
		"audience":      {apiAudience},
		"client_id":     {c.creds.ClientID},
		"scope":         {oauthScope},
		"redirect_uri":  {c.creds.RedirectURI},
		"response_type": {"code"},
	}
	if state != "" {
		params.Set("state", state)
	}
	return AuthorizeURL + "?" + params.Encode()
}

// ExchangeCode performs the authorization_code grant and stores the
// resulting token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	return c.tokenGrant(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     c.creds.ClientID,
		"client_secret": c.creds.ClientSecret,
		"code":          code,
		"redirect_uri":  c.creds.RedirectURI,
	})
}

// RefreshToken exchanges the held refresh token for a new access/refresh
// pair. Returns ErrAuthRequired when no refresh token is held.
func (c *Client) RefreshToken(ctx context.Context) error {
	if c.creds.Token.RefreshToken == "" {
		return fmt.Errorf("jira: no refresh token: %w", tracker.ErrAuthRequired)
	}
	return c.tokenGrant(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.creds.ClientID,
		"client_secret": c.creds.ClientSecret,
		"refresh_token": c.creds.Token.RefreshToken,
	})
}

// tokenGrant posts to the token endpoint and updates the credential's token
// record in place.
func (c *Client) tokenGrant(ctx context.Context, form map[string]string) error {
	var resp tokenResponse
	if err := c.authClient().DoJSON(ctx, "POST", "/oauth/token", nil, form, &resp); err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("token exchange: empty access token in response")
	}

	c.creds.Token.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		c.creds.Token.RefreshToken = resp.RefreshToken
	}
	if resp.ExpiresIn > 0 {
		c.creds.Token.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if c.creds.OnTokenRefresh != nil {
		c.creds.OnTokenRefresh(c.creds.Token)
	}
	return nil
}

func joinFields() string {
	return strings.Join(searchFields, ",")
}
