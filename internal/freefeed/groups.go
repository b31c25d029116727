package freefeed

import (
	"context"
	"net/http"
	"net/url"

	"freefeed-mcp/internal/feed"
)

// GetGroupInfo fetches a group's profile. Groups are users of type "group"
// upstream, so this is the same endpoint as user profiles.
func (c *Client) GetGroupInfo(ctx context.Context, groupName string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodGet, "users/"+url.PathEscape(groupName), nil, nil)
}

func (c *Client) GetGroupTimeline(ctx context.Context, groupName string, limit, offset int) (feed.Payload, error) {
	return c.GetTimeline(ctx, TimelineQuery{Username: groupName, Type: "posts", Limit: limit, Offset: offset})
}

// GetMyGroups derives the current user's group memberships from the whoami
// subscriptions list; there is no dedicated upstream endpoint.
func (c *Client) GetMyGroups(ctx context.Context) (feed.Payload, error) {
	whoami, err := c.Whoami(ctx)
	if err != nil {
		return nil, err
	}

	groups := []map[string]any{}
	if subscriptions, ok := whoami["subscriptions"].([]any); ok {
		for _, item := range subscriptions {
			sub, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if subType, _ := sub["type"].(string); subType != "group" {
				continue
			}
			groups = append(groups, map[string]any{
				"id":         sub["id"],
				"username":   sub["username"],
				"screenName": sub["screenName"],
				"type":       sub["type"],
			})
		}
	}

	return feed.Payload{"groups": groups, "count": len(groups)}, nil
}

// ResolveFeedIDs maps group names to their Posts feed ids. Groups that
// cannot be resolved are skipped with a warning rather than failing the
// whole lookup.
func (c *Client) ResolveFeedIDs(ctx context.Context, groupNames []string) ([]string, error) {
	feedIDs := make([]string, 0, len(groupNames))
	for _, name := range groupNames {
		info, err := c.GetGroupInfo(ctx, name)
		if err != nil {
			c.logger.Warn("Could not resolve group", "group", name, "error", err)
			continue
		}
		if id := extractPostsFeedID(info); id != "" {
			feedIDs = append(feedIDs, id)
		}
	}
	return feedIDs, nil
}

// extractPostsFeedID digs the "Posts" feed id out of a group info payload.
func extractPostsFeedID(info feed.Payload) string {
	user, ok := info["users"].(map[string]any)
	if !ok {
		return ""
	}
	subscriptions, ok := user["subscriptions"].([]any)
	if !ok {
		return ""
	}
	for _, item := range subscriptions {
		sub, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := sub["name"].(string); name == "Posts" {
			id, _ := sub["id"].(string)
			return id
		}
	}
	return ""
}
