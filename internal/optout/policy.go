// Package optout implements the opt-out content-filtering engine.
//
// Authors can signal that they do not want AI systems to process their
// content: by being listed explicitly, by pausing or privatizing their
// account, or by carrying an opt-out tag in their profile description. The
// policy describing which of those signals to honor is rebuilt from its file
// and environment sources on every filtering operation, so configuration
// changes take effect without a restart and nothing has to be invalidated.
package optout

import (
	"encoding/json"
	"os"
	"strings"

	"freefeed-mcp/internal/logging"
)

// FilterReason is the human-readable explanation attached to every payload
// that had content withheld.
const FilterReason = "User opted out of AI interactions"

// DefaultTags are matched case-insensitively as substrings of the profile
// description.
var DefaultTags = []string{"#noai", "#opt-out-ai", "#no-bots", "#ai-free"}

const (
	envEnabled        = "FREEFEED_OPTOUT_ENABLED"
	envUsers          = "FREEFEED_OPTOUT_USERS"
	envTags           = "FREEFEED_OPTOUT_TAGS"
	envRespectPrivate = "FREEFEED_OPTOUT_RESPECT_PRIVATE"
	envRespectPaused  = "FREEFEED_OPTOUT_RESPECT_PAUSED"
)

// Policy is the opt-out configuration in effect for one filtering operation.
// It is immutable once built; Load constructs a fresh value every time.
type Policy struct {
	Enabled        bool
	Users          map[string]struct{}
	Tags           []string
	RespectPrivate bool
	RespectPaused  bool
}

// fileConfig mirrors the opt-out JSON file. Pointer fields distinguish
// "absent" from "false" so the file only overrides what it actually sets.
type fileConfig struct {
	Enabled        *bool    `json:"enabled"`
	ManualOptOut   []string `json:"manual_opt_out"`
	Tags           []string `json:"tags"`
	RespectPrivate *bool    `json:"respect_private"`
	RespectPaused  *bool    `json:"respect_paused"`
}

// Default returns the built-in policy: filtering disabled, default tag list,
// both respect switches on, no explicit users.
func Default() Policy {
	return Policy{
		Enabled:        false,
		Users:          map[string]struct{}{},
		Tags:           append([]string(nil), DefaultTags...),
		RespectPrivate: true,
		RespectPaused:  true,
	}
}

// Load builds the effective policy: defaults, overlaid by the JSON file at
// path (skipped when unreadable or malformed), overlaid by individual
// environment variables. It never fails; the worst case is the defaults.
func Load(path string) Policy {
	policy := Default()

	if path != "" {
		applyFile(&policy, path)
	}
	applyEnv(&policy)

	return policy
}

func applyFile(policy *Policy, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to read opt-out config", "path", path, "error", err)
		}
		return
	}

	var file fileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		logging.Warn("Failed to parse opt-out config", "path", path, "error", err)
		return
	}

	if file.Enabled != nil {
		policy.Enabled = *file.Enabled
	}
	if file.ManualOptOut != nil {
		policy.Users = splitToSet(file.ManualOptOut)
	}
	if file.Tags != nil {
		policy.Tags = trimList(file.Tags)
	}
	if file.RespectPrivate != nil {
		policy.RespectPrivate = *file.RespectPrivate
	}
	if file.RespectPaused != nil {
		policy.RespectPaused = *file.RespectPaused
	}
}

func applyEnv(policy *Policy) {
	if enabled := parseBool(os.Getenv(envEnabled)); enabled != nil {
		policy.Enabled = *enabled
	}
	if users, ok := os.LookupEnv(envUsers); ok {
		policy.Users = splitToSet(strings.Split(users, ","))
	}
	if tags, ok := os.LookupEnv(envTags); ok {
		policy.Tags = trimList(strings.Split(tags, ","))
	}
	if respect := parseBool(os.Getenv(envRespectPrivate)); respect != nil {
		policy.RespectPrivate = *respect
	}
	if respect := parseBool(os.Getenv(envRespectPaused)); respect != nil {
		policy.RespectPaused = *respect
	}
}

// parseBool is tri-state: recognized true/false spellings return a value,
// anything else (including empty) returns nil meaning "keep previous".
func parseBool(value string) *bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		t := true
		return &t
	case "0", "false", "no", "off":
		f := false
		return &f
	}
	return nil
}

func splitToSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
