package optout

import (
	"testing"

	"freefeed-mcp/internal/feed"
)

func enabledPolicy() Policy {
	policy := Default()
	policy.Enabled = true
	return policy
}

func TestShouldExclude(t *testing.T) {
	tests := []struct {
		name    string
		policy  func() Policy
		profile feed.UserProfile
		want    bool
	}{
		{
			name:    "disabled policy never excludes",
			policy:  Default,
			profile: feed.UserProfile{Username: "alice", Description: "#noai"},
			want:    false,
		},
		{
			name: "listed user",
			policy: func() Policy {
				p := enabledPolicy()
				p.Users = map[string]struct{}{"alice": {}}
				return p
			},
			profile: feed.UserProfile{Username: "alice"},
			want:    true,
		},
		{
			name:    "paused account",
			policy:  enabledPolicy,
			profile: feed.UserProfile{Username: "alice", IsGone: true},
			want:    true,
		},
		{
			name: "paused account ignored when respect_paused off",
			policy: func() Policy {
				p := enabledPolicy()
				p.RespectPaused = false
				return p
			},
			profile: feed.UserProfile{Username: "alice", IsGone: true},
			want:    false,
		},
		{
			name:    "private account",
			policy:  enabledPolicy,
			profile: feed.UserProfile{Username: "alice", IsPrivate: "1"},
			want:    true,
		},
		{
			name:    "private flag other than exact 1 does not count",
			policy:  enabledPolicy,
			profile: feed.UserProfile{Username: "alice", IsPrivate: "true"},
			want:    false,
		},
		{
			name: "private account ignored when respect_private off",
			policy: func() Policy {
				p := enabledPolicy()
				p.RespectPrivate = false
				return p
			},
			profile: feed.UserProfile{Username: "alice", IsPrivate: "1"},
			want:    false,
		},
		{
			name:    "tag in description",
			policy:  enabledPolicy,
			profile: feed.UserProfile{Username: "bob", Description: "please #NoAI here"},
			want:    true,
		},
		{
			name:    "tag matches as substring",
			policy:  enabledPolicy,
			profile: feed.UserProfile{Username: "bob", Description: "x#noaiy"},
			want:    true,
		},
		{
			name:    "clean profile",
			policy:  enabledPolicy,
			profile: feed.UserProfile{Username: "bob", Description: "just a feed"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldExclude(tt.profile.Username, tt.profile, tt.policy())
			if got != tt.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.profile.Username, got, tt.want)
			}
		})
	}
}
