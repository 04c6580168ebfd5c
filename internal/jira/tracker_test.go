package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/steffonell/dockyard/internal/tracker"
	"github.com/steffonell/dockyard/internal/types"
)

func TestProviderIsRegistered(t *testing.T) {
	client, err := tracker.New("jira", oauthCreds("https://example.atlassian.net"))
	if err != nil {
		t.Fatalf("tracker.New(jira): %v", err)
	}
	if client.Name() != "jira" || client.DisplayName() != "Jira" {
		t.Errorf("identity = %q/%q", client.Name(), client.DisplayName())
	}
}

func TestBuildJQL(t *testing.T) {
	since := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name       string
		projectKey string
		opts       tracker.FetchOptions
		want       string
	}{
		{
			name: "no filters",
			want: "ORDER BY updated DESC",
		},
		{
			name:       "project only",
			projectKey: "PROJ",
			want:       `project = "PROJ" ORDER BY updated DESC`,
		},
		{
			name:       "project and updated since",
			projectKey: "PROJ",
			opts:       tracker.FetchOptions{UpdatedSince: &since},
			want:       `project = "PROJ" AND updated >= "2024-03-01 09:30" ORDER BY updated DESC`,
		},
		{
			name: "statuses expand to native names",
			opts: tracker.FetchOptions{Statuses: []types.Status{types.StatusOpen, types.StatusDone}},
			want: `status IN ("Open", "To Do", "Backlog", "Done", "Resolved") ORDER BY updated DESC`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildJQL(tt.projectKey, tt.opts); got != tt.want {
				t.Errorf("buildJQL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status StatusField
		want   types.Status
	}{
		{StatusField{Name: "Open"}, types.StatusOpen},
		{StatusField{Name: "To Do"}, types.StatusOpen},
		{StatusField{Name: "In Progress"}, types.StatusInProgress},
		{StatusField{Name: "In Review"}, types.StatusInProgress},
		{StatusField{Name: "Done"}, types.StatusDone},
		{StatusField{Name: "Resolved"}, types.StatusDone},
		{StatusField{Name: "Closed"}, types.StatusClosed},
		{StatusField{Name: "Won't Do"}, types.StatusCancelled},
		// Custom names fall back to the status category.
		{StatusField{Name: "Triage", StatusCategory: &StatusCategory{Key: "new"}}, types.StatusOpen},
		{StatusField{Name: "Shipping", StatusCategory: &StatusCategory{Key: "indeterminate"}}, types.StatusInProgress},
		{StatusField{Name: "Landed", StatusCategory: &StatusCategory{Key: "done"}}, types.StatusDone},
		// Unknown everything defaults to open.
		{StatusField{Name: "Mystery"}, types.StatusOpen},
	}
	for _, tt := range tests {
		if got := jiraStatusToShared(&tt.status); got != tt.want {
			t.Errorf("jiraStatusToShared(%q) = %q, want %q", tt.status.Name, got, tt.want)
		}
	}
}

func TestNormalizeIssueFields(t *testing.T) {
	ji := Issue{
		ID:  "10001",
		Key: "PROJ-7",
		Fields: IssueFields{
			Summary:     "Fix login",
			Description: json.RawMessage(`{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"details"}]}]}`),
			Status:      &StatusField{Name: "In Progress"},
			Priority:    &PriorityField{Name: "High"},
			Assignee:    &UserField{AccountID: "a1", DisplayName: "Alice", EmailAddress: "alice@example.com"},
			Labels:      []string{"auth"},
			Created:     "2024-03-01T09:00:00.000+0000",
			Updated:     "2024-03-02T10:00:00.000+0000",
		},
	}

	ni := normalizeIssue(&ji, "https://example.atlassian.net/")
	if ni.ID != "10001" || ni.Key != "PROJ-7" {
		t.Errorf("identity = %q/%q", ni.ID, ni.Key)
	}
	if ni.Title != "Fix login" || ni.Description != "details" {
		t.Errorf("title/description = %q/%q", ni.Title, ni.Description)
	}
	if ni.Status != types.StatusInProgress || ni.Priority != "High" {
		t.Errorf("status/priority = %q/%q", ni.Status, ni.Priority)
	}
	if ni.Assignee == nil || ni.Assignee.ID != "a1" || ni.Assignee.Email != "alice@example.com" {
		t.Errorf("assignee = %+v", ni.Assignee)
	}
	if ni.URL != "https://example.atlassian.net/browse/PROJ-7" {
		t.Errorf("url = %q", ni.URL)
	}
	wantCreated := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if !ni.CreatedAt.Equal(wantCreated) {
		t.Errorf("created = %v, want %v", ni.CreatedAt, wantCreated)
	}
	if len(ni.Raw) == 0 {
		t.Error("raw payload not retained")
	}

	again := normalizeIssue(&ji, "https://example.atlassian.net/")
	if !reflect.DeepEqual(ni, again) {
		t.Error("normalizing the same issue twice produced different values")
	}
}

func TestGetIssuesRetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(searchPage(0, 1, "PROJ-1"))
	}))
	defer srv.Close()

	tr := NewTracker(oauthCreds(srv.URL))
	tr.retryOpts = []tracker.RetryOption{tracker.WithBaseDelay(time.Millisecond)}

	issues, err := tr.GetIssues(context.Background(), "PROJ", tracker.FetchOptions{})
	if err != nil {
		t.Fatalf("GetIssues: %v", err)
	}
	if len(issues) != 1 || issues[0].Key != "PROJ-1" {
		t.Errorf("issues = %+v", issues)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestGetIssueAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such issue", http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewTracker(oauthCreds(srv.URL))
	issue, err := tr.GetIssue(context.Background(), "PROJ-404")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue != nil {
		t.Errorf("issue = %+v, want nil for absent issue", issue)
	}
}

func TestSyncIssuesReportsFetchOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.JQL, "updated >=") {
			t.Errorf("incremental sync JQL missing updated clause: %q", req.JQL)
		}
		_ = json.NewEncoder(w).Encode(searchPage(0, 2, "PROJ-1", "PROJ-2"))
	}))
	defer srv.Close()

	tr := NewTracker(oauthCreds(srv.URL))
	lastSync := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	result, err := tr.SyncIssues(context.Background(), "PROJ", &lastSync)
	if err != nil {
		t.Fatalf("SyncIssues: %v", err)
	}
	if !result.Success || result.Processed != 2 {
		t.Errorf("result = %+v, want success with 2 processed", result)
	}
	if result.Created != 0 || result.Updated != 0 {
		t.Errorf("created/updated = %d/%d, want 0/0 (persistence is elsewhere)", result.Created, result.Updated)
	}
}

func TestAuthenticateFailsOpenWithoutRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := oauthCreds(srv.URL)
	creds.Token.RefreshToken = ""
	tr := NewTracker(creds)

	ok, err := tr.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ok {
		t.Error("Authenticate = true with a rejected token and no refresh token")
	}
}

func TestAuthenticateRefreshesExpiredToken(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"accountId":"me"}`))
	}))
	defer apiSrv.Close()

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "fresh", ExpiresIn: 3600})
	}))
	defer authSrv.Close()

	creds := oauthCreds(apiSrv.URL)
	creds.Token.AccessToken = "stale"
	tr := NewTracker(creds)
	tr.client.AuthBase = authSrv.URL

	ok, err := tr.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !ok {
		t.Error("Authenticate = false after a successful refresh")
	}
	if creds.Token.AccessToken != "fresh" {
		t.Errorf("access token = %q, want refreshed value", creds.Token.AccessToken)
	}
}
