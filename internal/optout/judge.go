package optout

import (
	"strings"

	"freefeed-mcp/internal/feed"
)

// ShouldExclude reports whether content authored by username must be
// withheld under the policy. The rules are a pure OR; they are checked
// cheapest first and short-circuit on the first match.
func ShouldExclude(username string, profile feed.UserProfile, policy Policy) bool {
	if !policy.Enabled {
		return false
	}

	if _, listed := policy.Users[username]; listed {
		return true
	}

	if policy.RespectPaused && profile.IsGone {
		return true
	}

	// isPrivate is a "0"/"1" string upstream; only the exact "1" counts.
	if policy.RespectPrivate && profile.IsPrivate == "1" {
		return true
	}

	description := strings.ToLower(profile.Description)
	for _, tag := range policy.Tags {
		// Plain substring match, intentionally permissive: "#noai" inside a
		// longer word still opts the author out.
		if strings.Contains(description, tag) {
			return true
		}
	}

	return false
}
