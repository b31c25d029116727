package optout

import (
	"reflect"
	"testing"

	"freefeed-mcp/internal/feed"
)

// timelinePayload builds a two-post payload where p1 belongs to an opted-out
// author and p2 to a clean one.
func timelinePayload() feed.Payload {
	return feed.Payload{
		"posts": []any{
			map[string]any{"id": "p1", "createdBy": "u1", "body": "first"},
			map[string]any{"id": "p2", "createdBy": "u2", "body": "second"},
		},
		"users": []any{
			map[string]any{"id": "u1", "username": "bob", "description": "no robots please #noai"},
			map[string]any{"id": "u2", "username": "carol", "description": "hello"},
		},
		"timelines": map[string]any{"posts": []any{"p1", "p2"}},
		"comments": []any{
			map[string]any{"id": "c1", "postId": "p1"},
			map[string]any{"id": "c2", "postId": "p2"},
		},
		"attachments": []any{
			map[string]any{"id": "a1", "postId": "p1"},
		},
	}
}

func postIDs(p feed.Payload) []string {
	var ids []string
	for _, post := range p.Posts() {
		if id, ok := post["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func TestFilterPayload_DisabledIsNoOp(t *testing.T) {
	payload := timelinePayload()

	result := FilterPayload(payload, Default())

	if got := postIDs(result); !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Errorf("Expected both posts to survive under a disabled policy, got %v", got)
	}
	if _, ok := result["filtered_users"]; ok {
		t.Error("Expected no filtered_users under a disabled policy")
	}
}

func TestFilterPayload_RemovesOptedOutAuthors(t *testing.T) {
	result := FilterPayload(timelinePayload(), enabledPolicy())

	if got := postIDs(result); !reflect.DeepEqual(got, []string{"p2"}) {
		t.Errorf("Expected only p2 to survive, got %v", got)
	}

	timelines := result["timelines"].(map[string]any)
	if got := timelines["posts"].([]any); !reflect.DeepEqual(got, []any{"p2"}) {
		t.Errorf("Expected timelines.posts to drop p1, got %v", got)
	}

	comments := result["comments"].([]any)
	if len(comments) != 1 || comments[0].(map[string]any)["id"] != "c2" {
		t.Errorf("Expected only the comment on p2 to survive, got %v", comments)
	}

	attachments := result["attachments"].([]any)
	if len(attachments) != 0 {
		t.Errorf("Expected attachments on p1 to be dropped, got %v", attachments)
	}

	if got := result["filtered_users"].([]string); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Errorf("Expected filtered_users [bob], got %v", got)
	}
	if result["filter_reason"] != FilterReason {
		t.Errorf("Expected filter_reason %q, got %v", FilterReason, result["filter_reason"])
	}
}

func TestFilterPayload_NoRemovalsAddsNoMarkers(t *testing.T) {
	payload := timelinePayload()
	users := payload["users"].([]any)
	users[0].(map[string]any)["description"] = "nothing special"

	result := FilterPayload(payload, enabledPolicy())

	if got := postIDs(result); !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Errorf("Expected both posts to survive, got %v", got)
	}
	if _, ok := result["filtered_users"]; ok {
		t.Error("Expected no filtered_users when nothing was removed")
	}
	if _, ok := result["filter_reason"]; ok {
		t.Error("Expected no filter_reason when nothing was removed")
	}
}

func TestFilterPayload_FilteredUsersSortedAndUnique(t *testing.T) {
	payload := feed.Payload{
		"posts": []any{
			map[string]any{"id": "p1", "createdBy": "u1"},
			map[string]any{"id": "p2", "createdBy": "u1"},
			map[string]any{"id": "p3", "createdBy": "u2"},
		},
		"users": []any{
			map[string]any{"id": "u1", "username": "zoe", "description": "#noai"},
			map[string]any{"id": "u2", "username": "adam", "description": "#noai"},
		},
	}

	result := FilterPayload(payload, enabledPolicy())

	if got := result["filtered_users"].([]string); !reflect.DeepEqual(got, []string{"adam", "zoe"}) {
		t.Errorf("Expected sorted unique filtered_users, got %v", got)
	}
}

func TestFilterPayload_NonListPostsUntouched(t *testing.T) {
	payload := feed.Payload{
		"posts": map[string]any{"id": "p1", "createdBy": "u1"},
		"users": []any{
			map[string]any{"id": "u1", "username": "bob", "description": "#noai"},
		},
	}

	result := FilterPayload(payload, enabledPolicy())

	if _, ok := result["posts"].(map[string]any); !ok {
		t.Error("Expected a singleton post payload to pass through unchanged")
	}
}

func TestExcludedAuthor(t *testing.T) {
	payload := feed.Payload{
		"posts": map[string]any{"id": "p1", "createdBy": "u1"},
		"users": []any{
			map[string]any{"id": "u1", "username": "bob", "description": "#noai"},
		},
	}

	username, excluded := ExcludedAuthor(payload, enabledPolicy())
	if !excluded || username != "bob" {
		t.Errorf("Expected bob to be excluded, got (%q, %v)", username, excluded)
	}

	username, excluded = ExcludedAuthor(payload, Default())
	if excluded {
		t.Errorf("Expected no exclusion under a disabled policy, got %q", username)
	}
}

func TestExclusion(t *testing.T) {
	payload := Exclusion("Post author opted out of AI interactions", "bob")

	if payload["error"] != "Post author opted out of AI interactions" {
		t.Errorf("Unexpected error message: %v", payload["error"])
	}
	if got := payload["filtered_users"].([]string); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Errorf("Expected filtered_users [bob], got %v", got)
	}
	if payload["filter_reason"] != FilterReason {
		t.Errorf("Expected filter_reason %q, got %v", FilterReason, payload["filter_reason"])
	}
}
