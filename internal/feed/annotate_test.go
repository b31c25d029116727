package feed

import "testing"

const base = "https://freefeed.net"

func TestAddPostURLs_ListPayload(t *testing.T) {
	payload := Payload{
		"posts": []any{
			map[string]any{"id": "p1", "shortId": "abc", "createdBy": "u1"},
			map[string]any{"id": "p2", "createdBy": "unknown-user"},
		},
		"users": []any{
			map[string]any{"id": "u1", "username": "alice"},
		},
	}

	result := AddPostURLs(payload, base)

	posts := result.Posts()
	if got := posts[0]["postUrl"]; got != "https://freefeed.net/alice/abc" {
		t.Errorf("Expected pretty URL for known author, got %v", got)
	}
	if got := posts[1]["postUrl"]; got != "https://freefeed.net/posts/p2" {
		t.Errorf("Expected id fallback URL for unknown author, got %v", got)
	}
}

func TestAddPostURLs_SingletonPayload(t *testing.T) {
	payload := Payload{
		"posts": map[string]any{"id": "p1", "shortId": "abc", "createdBy": "u1"},
		"users": map[string]any{"id": "u1", "username": "alice"},
	}

	result := AddPostURLs(payload, base)

	post, _ := result.Post()
	if got := post["postUrl"]; got != "https://freefeed.net/alice/abc" {
		t.Errorf("Expected pretty URL on singleton post, got %v", got)
	}
}

func TestAddPostURLs_Idempotent(t *testing.T) {
	payload := Payload{
		"posts": []any{map[string]any{"id": "p1", "shortId": "abc", "createdBy": "u1"}},
		"users": []any{map[string]any{"id": "u1", "username": "alice"}},
	}

	first := AddPostURLs(payload, base)
	url1 := first.Posts()[0]["postUrl"]
	second := AddPostURLs(first, base)
	url2 := second.Posts()[0]["postUrl"]

	if url1 != url2 {
		t.Errorf("Expected annotation to be idempotent, got %v then %v", url1, url2)
	}
}

func TestAddPostURLs_PostWithoutIDUntouched(t *testing.T) {
	payload := Payload{
		"posts": []any{map[string]any{"body": "no id here"}},
	}

	result := AddPostURLs(payload, base)

	if _, ok := result.Posts()[0]["postUrl"]; ok {
		t.Error("Expected no postUrl on a post without an id")
	}
}

func TestAddPostURLs_NilPayload(t *testing.T) {
	if got := AddPostURLs(nil, base); got != nil {
		t.Errorf("Expected nil payload to pass through, got %v", got)
	}
}
