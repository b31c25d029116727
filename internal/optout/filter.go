package optout

import (
	"sort"

	"freefeed-mcp/internal/feed"
)

// FilterPayload removes posts authored by opted-out users from a list-shaped
// payload and drops the entries in timelines.posts, comments and attachments
// that referenced them, so no collection points at a removed post. Payloads
// without a posts list, and any payload under a disabled policy, are
// returned unchanged. When something was removed the payload gains a sorted
// filtered_users list and a filter_reason string; their absence only means
// nothing was removed, not that filtering was skipped.
func FilterPayload(p feed.Payload, policy Policy) feed.Payload {
	if p == nil || !policy.Enabled {
		return p
	}
	if _, ok := p["posts"].([]any); !ok {
		return p
	}

	userMap := p.UserMap()
	kept := make([]any, 0, len(p.Posts()))
	filteredUsers := map[string]struct{}{}
	removedIDs := map[string]struct{}{}

	for _, post := range p.Posts() {
		profile := feed.UserProfileFrom(userMap[postAuthorID(post)])
		if profile.Username != "" && ShouldExclude(profile.Username, profile, policy) {
			filteredUsers[profile.Username] = struct{}{}
			if id, ok := post["id"].(string); ok && id != "" {
				removedIDs[id] = struct{}{}
			}
			continue
		}
		kept = append(kept, post)
	}

	p["posts"] = kept

	if len(removedIDs) == 0 {
		return p
	}

	if timelines, ok := p["timelines"].(map[string]any); ok {
		if ids, ok := timelines["posts"].([]any); ok {
			surviving := make([]any, 0, len(ids))
			for _, id := range ids {
				if s, ok := id.(string); ok {
					if _, removed := removedIDs[s]; removed {
						continue
					}
				}
				surviving = append(surviving, id)
			}
			timelines["posts"] = surviving
		}
	}

	if _, ok := p["comments"].([]any); ok {
		p["comments"] = dropByPostID(p["comments"], removedIDs)
	}
	if _, ok := p["attachments"].([]any); ok {
		p["attachments"] = dropByPostID(p["attachments"], removedIDs)
	}

	names := make([]string, 0, len(filteredUsers))
	for name := range filteredUsers {
		names = append(names, name)
	}
	sort.Strings(names)
	p["filtered_users"] = names
	p["filter_reason"] = FilterReason

	return p
}

// Exclusion is the error-shaped payload that replaces an entire
// single-entity result when its author has opted out. It substitutes the
// whole response; nothing of the original payload survives.
func Exclusion(message, username string) feed.Payload {
	return feed.Payload{
		"error":          message,
		"filtered_users": []string{username},
		"filter_reason":  FilterReason,
	}
}

// ExcludedAuthor resolves the author of a payload's singleton post and
// judges them, returning the username and true when the whole payload must
// be substituted.
func ExcludedAuthor(p feed.Payload, policy Policy) (string, bool) {
	post, ok := p.Post()
	if !ok {
		return "", false
	}
	profile := feed.UserProfileFrom(p.UserMap()[postAuthorID(post)])
	if profile.Username == "" {
		return "", false
	}
	if ShouldExclude(profile.Username, profile, policy) {
		return profile.Username, true
	}
	return "", false
}

func postAuthorID(post map[string]any) string {
	id, _ := post["createdBy"].(string)
	return id
}

func dropByPostID(value any, removedIDs map[string]struct{}) any {
	items, ok := value.([]any)
	if !ok {
		return value
	}
	surviving := make([]any, 0, len(items))
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			if postID, ok := entry["postId"].(string); ok {
				if _, removed := removedIDs[postID]; removed {
					continue
				}
			}
		}
		surviving = append(surviving, item)
	}
	return surviving
}
