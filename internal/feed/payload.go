// Package feed models the JSON payloads returned by the FreeFeed API.
//
// Upstream responses carry many fields this gateway never interprets, so the
// unit of exchange is Payload, a decoded JSON object that passes unknown
// fields through untouched. The handful of fields the filtering and
// annotation engines do inspect are exposed as typed views with explicit
// presence handling instead of ad hoc key chains.
package feed

// Payload is a decoded JSON object from the FreeFeed API.
type Payload map[string]any

// UserProfile is a typed view over the fragment of a user object that the
// opt-out engine inspects. Absent fields stay at their zero values.
type UserProfile struct {
	ID       string
	Username string
	IsGone   bool
	// IsPrivate is "0" or "1". The upstream API sends it as a string, not a
	// boolean, and the distinction is load-bearing: only the exact string
	// "1" marks an account private.
	IsPrivate   string
	Description string
}

// UserProfileFrom extracts the typed view from a raw user object.
func UserProfileFrom(raw map[string]any) UserProfile {
	var p UserProfile
	p.ID = stringField(raw, "id")
	p.Username = stringField(raw, "username")
	p.IsPrivate = stringField(raw, "isPrivate")
	p.Description = stringField(raw, "description")
	if gone, ok := raw["isGone"].(bool); ok {
		p.IsGone = gone
	}
	return p
}

// Posts returns the payload's post list, or nil when the payload is not
// list-shaped (single-entity responses carry posts as one object).
func (p Payload) Posts() []map[string]any {
	raw, ok := p["posts"].([]any)
	if !ok {
		return nil
	}
	posts := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if post, ok := item.(map[string]any); ok {
			posts = append(posts, post)
		}
	}
	return posts
}

// Post returns the payload's singleton post object, as returned by the
// single-post endpoint.
func (p Payload) Post() (map[string]any, bool) {
	post, ok := p["posts"].(map[string]any)
	return post, ok
}

// UserMap builds an id -> raw user object map from the payload's users
// field, handling both the single-object and list shapes the API produces.
func (p Payload) UserMap() map[string]map[string]any {
	users := make(map[string]map[string]any)

	switch raw := p["users"].(type) {
	case map[string]any:
		if id := stringField(raw, "id"); id != "" {
			users[id] = raw
		}
	case []any:
		for _, item := range raw {
			user, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if id := stringField(user, "id"); id != "" {
				users[id] = user
			}
		}
	}

	return users
}

// Attachments returns the payload's attachment objects, tolerating the
// single-object shape some responses use.
func (p Payload) Attachments() []map[string]any {
	switch raw := p["attachments"].(type) {
	case map[string]any:
		return []map[string]any{raw}
	case []any:
		atts := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if att, ok := item.(map[string]any); ok {
				atts = append(atts, att)
			}
		}
		return atts
	}
	return nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}
