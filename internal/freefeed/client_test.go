package freefeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"freefeed-mcp/internal/logging"
)

// recordedRequest captures what the fake upstream saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Token  string
	Body   map[string]any
}

// newFakeUpstream starts a server that records every request and answers
// with the configured status and body.
func newFakeUpstream(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Token:  r.Header.Get("X-Authentication-Token"),
		}
		if r.Body != nil {
			var decoded map[string]any
			if err := json.NewDecoder(r.Body).Decode(&decoded); err == nil {
				rec.Body = decoded
			}
		}
		requests = append(requests, rec)

		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func newTestClient(baseURL string, opts Options) *Client {
	opts.BaseURL = baseURL
	if opts.Logger == nil {
		opts.Logger, _ = logging.NewTestLogger()
	}
	return NewClient(opts)
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantErr   bool
	}{
		{"top level token", http.StatusOK, `{"authToken": "tok-1"}`, "tok-1", false},
		{"nested token", http.StatusOK, `{"users": {"authToken": "tok-2"}}`, "tok-2", false},
		{"rejected", http.StatusUnauthorized, `{}`, "", true},
		{"no token in response", http.StatusOK, `{"users": {}}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newFakeUpstream(t, tt.status, tt.body)
			client := newTestClient(server.URL, Options{Username: "alice", Password: "secret"})

			err := client.Authenticate(context.Background())

			if tt.wantErr {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("Expected an AuthError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate failed: %v", err)
			}
			if client.AuthToken() != tt.wantToken {
				t.Errorf("AuthToken = %q, want %q", client.AuthToken(), tt.wantToken)
			}
			if got := (*requests)[0].Path; got != "/v4/session" {
				t.Errorf("Unexpected session path: %s", got)
			}
		})
	}
}

func TestAuthenticate_RequiresCredentials(t *testing.T) {
	client := newTestClient("https://freefeed.net", Options{})

	err := client.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected an AuthError without credentials, got %v", err)
	}
}

func TestGetPost_SendsVersionedPathAndToken(t *testing.T) {
	server, requests := newFakeUpstream(t, http.StatusOK, `{"posts": {"id": "p1"}}`)
	client := newTestClient(server.URL, Options{AuthToken: "tok", APIVersion: 2})

	result, err := client.GetPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	req := (*requests)[0]
	if req.Path != "/v2/posts/p1" {
		t.Errorf("Unexpected path: %s", req.Path)
	}
	if req.Token != "tok" {
		t.Errorf("Expected auth token header, got %q", req.Token)
	}
	if _, ok := result["posts"]; !ok {
		t.Error("Expected posts in the decoded payload")
	}
}

func TestDoJSON_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantAuth bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"server error", http.StatusInternalServerError, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newFakeUpstream(t, tt.status, `{}`)
			client := newTestClient(server.URL, Options{AuthToken: "tok"})

			_, err := client.GetPost(context.Background(), "p1")
			if err == nil {
				t.Fatal("Expected an error")
			}

			var authErr *AuthError
			var apiErr *APIError
			if tt.wantAuth {
				if !errors.As(err, &authErr) {
					t.Errorf("Expected an AuthError for status %d, got %v", tt.status, err)
				}
			} else {
				if !errors.As(err, &apiErr) {
					t.Fatalf("Expected an APIError for status %d, got %v", tt.status, err)
				}
				if apiErr.StatusCode != tt.status {
					t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
				}
			}
		})
	}
}

func TestDoJSON_EmptyBodyBecomesSuccess(t *testing.T) {
	server, _ := newFakeUpstream(t, http.StatusOK, "")
	client := newTestClient(server.URL, Options{AuthToken: "tok"})

	result, err := client.LikePost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("LikePost failed: %v", err)
	}
	if result["success"] != true {
		t.Errorf("Expected synthesized success payload, got %v", result)
	}
}

func TestGetTimeline_Routing(t *testing.T) {
	tests := []struct {
		name     string
		query    TimelineQuery
		wantPath string
		wantErr  bool
	}{
		{"home", TimelineQuery{Type: "home"}, "/v4/timelines/home", false},
		{"empty type is home", TimelineQuery{}, "/v4/timelines/home", false},
		{"discussions", TimelineQuery{Type: "discussions"}, "/v4/timelines/filter/discussions", false},
		{"directs", TimelineQuery{Type: "directs"}, "/v4/timelines/filter/directs", false},
		{"user posts", TimelineQuery{Type: "posts", Username: "alice"}, "/v4/timelines/alice", false},
		{"user likes", TimelineQuery{Type: "likes", Username: "alice"}, "/v4/timelines/alice/likes", false},
		{"user comments", TimelineQuery{Type: "comments", Username: "alice"}, "/v4/timelines/alice/comments", false},
		{"posts without username", TimelineQuery{Type: "posts"}, "", true},
		{"unknown type", TimelineQuery{Type: "bookmarks", Username: "alice"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newFakeUpstream(t, http.StatusOK, `{"posts": []}`)
			client := newTestClient(server.URL, Options{AuthToken: "tok"})

			_, err := client.GetTimeline(context.Background(), tt.query)

			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				if len(*requests) != 0 {
					t.Error("Expected no HTTP request for an invalid query")
				}
				return
			}
			if err != nil {
				t.Fatalf("GetTimeline failed: %v", err)
			}
			if got := (*requests)[0].Path; got != tt.wantPath {
				t.Errorf("Path = %s, want %s", got, tt.wantPath)
			}
		})
	}
}

func TestGetTimeline_Pagination(t *testing.T) {
	server, requests := newFakeUpstream(t, http.StatusOK, `{"posts": []}`)
	client := newTestClient(server.URL, Options{AuthToken: "tok"})

	_, err := client.GetTimeline(context.Background(), TimelineQuery{Type: "home", Limit: 25, Offset: 50})
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}

	query := (*requests)[0].Query
	if !strings.Contains(query, "limit=25") || !strings.Contains(query, "offset=50") {
		t.Errorf("Expected pagination parameters, got %q", query)
	}
}

func TestCreatePost_DefaultsToOwnFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v4/users/whoami" {
			w.Write([]byte(`{"users": {"username": "alice"}}`))
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		meta := body["meta"].(map[string]any)
		feeds := meta["feeds"].([]any)
		if len(feeds) != 1 || feeds[0] != "alice" {
			t.Errorf("Expected post to target alice's feed, got %v", feeds)
		}
		w.Write([]byte(`{"posts": {"id": "p1"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, Options{AuthToken: "tok"})

	_, err := client.CreatePost(context.Background(), CreatePostParams{Body: "hello"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
}

func TestCreatePost_GroupTargets(t *testing.T) {
	server, requests := newFakeUpstream(t, http.StatusOK, `{"posts": {"id": "p1"}}`)
	client := newTestClient(server.URL, Options{AuthToken: "tok", Username: "alice"})

	_, err := client.CreatePost(context.Background(), CreatePostParams{
		Body:       "hello",
		GroupNames: []string{"cats", "dogs"},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	body := (*requests)[0].Body
	meta := body["meta"].(map[string]any)
	feeds := meta["feeds"].([]any)
	if len(feeds) != 2 || feeds[0] != "cats" || feeds[1] != "dogs" {
		t.Errorf("Expected group feeds, got %v", feeds)
	}
	post := body["post"].(map[string]any)
	if post["body"] != "hello" {
		t.Errorf("Unexpected post body: %v", post["body"])
	}
}

func TestCreateDirectPost_RequiresRecipients(t *testing.T) {
	client := newTestClient("https://freefeed.net", Options{AuthToken: "tok"})

	_, err := client.CreateDirectPost(context.Background(), "hi", nil, nil, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected an APIError without recipients, got %v", err)
	}
}

func TestLeaveDirect_ValidatesUUID(t *testing.T) {
	server, requests := newFakeUpstream(t, http.StatusOK, "")
	client := newTestClient(server.URL, Options{AuthToken: "tok"})

	_, err := client.LeaveDirect(context.Background(), "not-a-uuid")
	if err == nil {
		t.Fatal("Expected an error for a malformed post id")
	}
	if len(*requests) != 0 {
		t.Error("Expected no HTTP request for a malformed post id")
	}

	_, err = client.LeaveDirect(context.Background(), "2c9f4c73-3b65-4a4b-9c9e-2f62dbd473c5")
	if err != nil {
		t.Fatalf("LeaveDirect failed: %v", err)
	}
	if got := (*requests)[0].Path; got != "/v4/posts/2c9f4c73-3b65-4a4b-9c9e-2f62dbd473c5/leave" {
		t.Errorf("Unexpected path: %s", got)
	}
}

func TestGetMyGroups(t *testing.T) {
	body := `{
		"users": {"username": "alice"},
		"subscriptions": [
			{"id": "g1", "username": "cats", "screenName": "Cats", "type": "group"},
			{"id": "u2", "username": "bob", "type": "user"},
			{"id": "g2", "username": "dogs", "screenName": "Dogs", "type": "group"}
		]
	}`
	server, _ := newFakeUpstream(t, http.StatusOK, body)
	client := newTestClient(server.URL, Options{AuthToken: "tok"})

	result, err := client.GetMyGroups(context.Background())
	if err != nil {
		t.Fatalf("GetMyGroups failed: %v", err)
	}

	if result["count"] != 2 {
		t.Errorf("Expected 2 groups, got %v", result["count"])
	}
	groups := result["groups"].([]map[string]any)
	if groups[0]["username"] != "cats" || groups[1]["username"] != "dogs" {
		t.Errorf("Unexpected groups: %v", groups)
	}
}

func TestExtractPostsFeedID(t *testing.T) {
	info := map[string]any{
		"users": map[string]any{
			"subscriptions": []any{
				map[string]any{"id": "f1", "name": "Comments"},
				map[string]any{"id": "f2", "name": "Posts"},
			},
		},
	}

	if got := extractPostsFeedID(info); got != "f2" {
		t.Errorf("extractPostsFeedID = %q, want %q", got, "f2")
	}
	if got := extractPostsFeedID(map[string]any{}); got != "" {
		t.Errorf("Expected empty id for an empty payload, got %q", got)
	}
}
