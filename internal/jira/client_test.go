package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/steffonell/dockyard/internal/tracker"
)

func oauthCreds(site string) *tracker.Credentials {
	return &tracker.Credentials{
		AuthType:     tracker.AuthOAuth2,
		Site:         site,
		ClientID:     "client",
		ClientSecret: "secret",
		Token:        tracker.TokenRecord{AccessToken: "tok", RefreshToken: "refresh"},
	}
}

func searchPage(startAt, total int, keys ...string) SearchResult {
	issues := make([]Issue, 0, len(keys))
	for i, key := range keys {
		issues = append(issues, Issue{
			ID:  fmt.Sprintf("%d", 10000+startAt+i),
			Key: key,
			Fields: IssueFields{
				Summary: "Issue " + key,
				Status:  &StatusField{Name: "Open"},
				Created: "2024-03-01T09:00:00.000+0000",
				Updated: "2024-03-02T10:00:00.000+0000",
			},
		})
	}
	return SearchResult{StartAt: startAt, MaxResults: len(keys), Total: total, Issues: issues}
}

func TestSearchSendsBearerAndJQL(t *testing.T) {
	var gotAuth string
	var gotReq SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/search" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(searchPage(0, 1, "PROJ-1"))
	}))
	defer srv.Close()

	client := NewClient(oauthCreds(srv.URL))
	result, err := client.Search(context.Background(), `project = "PROJ" ORDER BY updated DESC`, 0, 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.JQL != `project = "PROJ" ORDER BY updated DESC` {
		t.Errorf("JQL = %q", gotReq.JQL)
	}
	if gotReq.MaxResults != 50 {
		t.Errorf("MaxResults = %d", gotReq.MaxResults)
	}
	if len(result.Issues) != 1 || result.Issues[0].Key != "PROJ-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestSearchAllPaginates(t *testing.T) {
	pages := []SearchResult{
		searchPage(0, 3, "PROJ-1", "PROJ-2"),
		searchPage(2, 3, "PROJ-3"),
	}
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		page := pages[0]
		if req.StartAt >= 2 {
			page = pages[1]
		}
		calls++
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := NewClient(oauthCreds(srv.URL))
	issues, err := client.SearchAll(context.Background(), "ORDER BY updated DESC", 0)
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("issues = %d, want 3", len(issues))
	}
	if issues[2].Key != "PROJ-3" {
		t.Errorf("last issue = %q", issues[2].Key)
	}
	if calls != 2 {
		t.Errorf("search calls = %d, want 2", calls)
	}
}

func TestSearchAllHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.MaxResults > 2 {
			t.Errorf("MaxResults = %d, want page trimmed to limit", req.MaxResults)
		}
		_ = json.NewEncoder(w).Encode(searchPage(0, 100, "PROJ-1", "PROJ-2"))
	}))
	defer srv.Close()

	client := NewClient(oauthCreds(srv.URL))
	issues, err := client.SearchAll(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(issues) != 2 {
		t.Errorf("issues = %d, want 2", len(issues))
	}
}

func TestIssueNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(oauthCreds(srv.URL))
	_, err := client.Issue(context.Background(), "PROJ-404")
	if !tracker.IsNotFound(err) {
		t.Errorf("Issue = %v, want not-found", err)
	}
}

func TestMissingAccessToken(t *testing.T) {
	creds := oauthCreds("https://example.atlassian.net")
	creds.Token.AccessToken = ""
	creds.Token.RefreshToken = ""
	client := NewClient(creds)
	if err := client.Myself(context.Background()); err == nil {
		t.Fatal("Myself succeeded without a token")
	}
}

func TestRefreshTokenUpdatesCredentials(t *testing.T) {
	var gotForm map[string]string
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotForm)
		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    3600,
		})
	}))
	defer authSrv.Close()

	creds := oauthCreds("https://example.atlassian.net")
	var persisted tracker.TokenRecord
	creds.OnTokenRefresh = func(tok tracker.TokenRecord) { persisted = tok }

	client := NewClient(creds)
	client.AuthBase = authSrv.URL

	if err := client.RefreshToken(context.Background()); err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if gotForm["grant_type"] != "refresh_token" || gotForm["refresh_token"] != "refresh" {
		t.Errorf("token request form = %v", gotForm)
	}
	if creds.Token.AccessToken != "new-access" || creds.Token.RefreshToken != "new-refresh" {
		t.Errorf("token record = %+v", creds.Token)
	}
	if creds.Token.Expiry.IsZero() {
		t.Error("token expiry not set")
	}
	if persisted.AccessToken != "new-access" {
		t.Errorf("OnTokenRefresh saw %+v", persisted)
	}
}

func TestRefreshTokenWithoutRefreshToken(t *testing.T) {
	creds := oauthCreds("https://example.atlassian.net")
	creds.Token.RefreshToken = ""
	client := NewClient(creds)
	err := client.RefreshToken(context.Background())
	if err == nil {
		t.Fatal("RefreshToken succeeded without a refresh token")
	}
}

func TestAuthCodeURL(t *testing.T) {
	creds := oauthCreds("https://example.atlassian.net")
	creds.RedirectURI = "https://localhost/callback"
	client := NewClient(creds)

	u := client.AuthCodeURL("xyz")
	for _, want := range []string{
		"client_id=client",
		"response_type=code",
		"state=xyz",
		"audience=api.atlassian.com",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("AuthCodeURL missing %q: %s", want, u)
		}
	}
}
