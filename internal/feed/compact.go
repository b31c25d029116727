package feed

// compactUserFields is the subset of user fields kept by the compact whoami
// transform; everything else is dropped to keep tool payloads small.
var compactUserFields = []string{"id", "username", "screenName", "type", "isPrivate", "isProtected"}

func compactUser(user map[string]any) map[string]any {
	out := make(map[string]any, len(compactUserFields))
	for _, key := range compactUserFields {
		if value, ok := user[key]; ok {
			out[key] = value
		}
	}
	return out
}

func compactUserList(items any) []map[string]any {
	raw, ok := items.([]any)
	if !ok {
		return []map[string]any{}
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if user, ok := item.(map[string]any); ok {
			out = append(out, compactUser(user))
		}
	}
	return out
}

// CompactWhoami trims a whoami response down to identity fields plus
// subscription/subscriber counts.
func CompactWhoami(p Payload) Payload {
	compacted := Payload{}

	if user, ok := p["users"].(map[string]any); ok {
		compacted["users"] = compactUser(user)
	}

	subscriptions, hasSubscriptions := p["subscriptions"]
	subscribers, hasSubscribers := p["subscribers"]

	summary := map[string]any{"subscriptions": 0, "subscribers": 0}
	if hasSubscriptions {
		list := compactUserList(subscriptions)
		compacted["subscriptions"] = list
		summary["subscriptions"] = len(list)
	}
	if hasSubscribers {
		list := compactUserList(subscribers)
		compacted["subscribers"] = list
		summary["subscribers"] = len(list)
	}
	compacted["summary"] = summary

	return compacted
}
