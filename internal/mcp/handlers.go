package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"freefeed-mcp/internal/attachments"
	"freefeed-mcp/internal/feed"
	"freefeed-mcp/internal/freefeed"
	"freefeed-mcp/internal/optout"
)

const (
	postExcludedMessage = "Post author opted out of AI interactions"
	userExcludedMessage = "User opted out of AI interactions"
)

func (s *Server) handleGetTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timelineType, err := request.RequireString("timeline_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.GetTimeline(ctx, freefeed.TimelineQuery{
		Username: request.GetString("username", ""),
		Type:     timelineType,
		Limit:    request.GetInt("limit", 0),
		Offset:   request.GetInt("offset", 0),
	})
	if err != nil {
		return s.errorResult("get_timeline", err), nil
	}
	return s.finish(result), nil
}

func (s *Server) handleGetDirects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.GetDirects(ctx, request.GetInt("limit", 0), request.GetInt("offset", 0))
	if err != nil {
		return s.errorResult("get_directs", err), nil
	}
	return s.finish(result), nil
}

func (s *Server) handleGetPost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.GetPost(ctx, postID)
	if err != nil {
		return s.errorResult("get_post", err), nil
	}
	if username, excluded := optout.ExcludedAuthor(result, s.policy()); excluded {
		return jsonResult(optout.Exclusion(postExcludedMessage, username)), nil
	}
	return s.annotateOnly(result), nil
}

func (s *Server) handleCreatePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.CreatePost(ctx, freefeed.CreatePostParams{
		Body:            body,
		AttachmentFiles: request.GetStringSlice("attachment_paths", nil),
		GroupNames:      request.GetStringSlice("group_names", nil),
	})
	if err != nil {
		return s.errorResult("create_post", err), nil
	}
	return s.annotateOnly(result), nil
}

func (s *Server) handleCreateDirectPost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recipients := request.GetStringSlice("recipients", nil)
	if len(recipients) == 0 {
		return mcp.NewToolResultError("at least one recipient is required"), nil
	}
	result, err := s.client.CreateDirectPost(ctx, body, recipients, nil, request.GetStringSlice("attachment_paths", nil))
	if err != nil {
		return s.errorResult("create_direct_post", err), nil
	}
	return s.annotateOnly(result), nil
}

func (s *Server) handleUpdatePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.UpdatePost(ctx, postID, body)
	if err != nil {
		return s.errorResult("update_post", err), nil
	}
	return s.annotateOnly(result), nil
}

func (s *Server) handleDeletePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.DeletePost(ctx, postID)
	if err != nil {
		return s.errorResult("delete_post", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleLeaveDirect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.LeaveDirect(ctx, postID)
	if err != nil {
		return s.errorResult("leave_direct", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleLikePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.postAction(ctx, request, "like_post", s.client.LikePost)
}

func (s *Server) handleUnlikePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.postAction(ctx, request, "unlike_post", s.client.UnlikePost)
}

func (s *Server) handleHidePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.postAction(ctx, request, "hide_post", s.client.HidePost)
}

func (s *Server) handleUnhidePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.postAction(ctx, request, "unhide_post", s.client.UnhidePost)
}

// postAction covers the four like/hide toggles, which share a signature.
func (s *Server) postAction(ctx context.Context, request mcp.CallToolRequest, tool string,
	action func(context.Context, string) (feed.Payload, error)) (*mcp.CallToolResult, error) {
	postID, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := action(ctx, postID)
	if err != nil {
		return s.errorResult(tool, err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleUploadAttachment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.UploadAttachmentFile(ctx, filePath)
	if err != nil {
		return s.errorResult("upload_attachment", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleDownloadAttachment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	attachmentURL, err := request.RequireString("attachment_url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if savePath := request.GetString("save_path", ""); savePath != "" {
		saved, err := s.client.DownloadAttachmentToFile(ctx, attachmentURL, savePath)
		if err != nil {
			return s.errorResult("download_attachment", err), nil
		}
		return jsonResult(feed.Payload{
			"success":  true,
			"saved_to": saved,
			"message":  fmt.Sprintf("Attachment saved to %s", saved),
		}), nil
	}

	res := s.resolver.Fetch(ctx, attachmentURL, s.maxBytes(request))
	if res.Err != attachments.ErrNone {
		return jsonResult(s.fetchFailure(res)), nil
	}
	if request.GetBool("prefer_image", true) && res.IsImage() {
		return s.imageResult(res), nil
	}
	return jsonResult(feed.Payload{
		"success":      true,
		"data":         base64.StdEncoding.EncodeToString(res.Data),
		"size":         res.Size,
		"content_type": res.ContentType,
		"url":          res.URL,
		"message":      "Attachment downloaded as base64 data",
	}), nil
}

func (s *Server) handleGetAttachmentImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	attachmentURL, err := request.RequireString("attachment_url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := s.resolver.Fetch(ctx, attachmentURL, s.maxBytes(request))
	if res.Err != attachments.ErrNone {
		return jsonResult(s.fetchFailure(res)), nil
	}
	if !res.IsImage() {
		return jsonResult(feed.Payload{
			"success":      false,
			"message":      "Attachment is not an image",
			"content_type": res.ContentType,
			"url":          res.URL,
			"size":         res.Size,
		}), nil
	}
	return s.imageResult(res), nil
}

// maxBytes resolves the inline-data ceiling for a request, falling back to
// the configured default for absent or nonsensical values.
func (s *Server) maxBytes(request mcp.CallToolRequest) int64 {
	v := int64(request.GetInt("max_bytes", 0))
	if v <= 0 {
		return s.config.ImageMaxBytes
	}
	return v
}

// fetchFailure maps a resolver failure into the JSON condition document the
// tools return instead of a protocol error.
func (s *Server) fetchFailure(res attachments.FetchResult) feed.Payload {
	p := feed.Payload{
		"success": false,
		"error":   string(res.Err),
		"url":     res.URL,
	}
	switch res.Err {
	case attachments.ErrTooLarge:
		p["message"] = "Attachment exceeds the inline size limit; use the URL instead"
		p["size"] = res.Size
		p["content_type"] = res.ContentType
	case attachments.ErrNotFound:
		p["message"] = "Attachment not found on any known host"
	case attachments.ErrHTMLResponse:
		p["message"] = "Attachment URL returned an HTML page instead of file content"
	case attachments.ErrInvalidURL:
		p["message"] = "URL does not look like a FreeFeed attachment"
	default:
		p["message"] = "Failed to download attachment"
	}
	return p
}

func (s *Server) imageResult(res attachments.FetchResult) *mcp.CallToolResult {
	meta := feed.Payload{
		"success":      true,
		"content_type": res.ContentType,
		"size":         res.Size,
		"url":          res.URL,
	}
	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Unexpected error: %v", err))
	}
	return mcp.NewToolResultImage(string(encoded),
		base64.StdEncoding.EncodeToString(res.Data), res.ContentType)
}

func (s *Server) handleGetPostAttachments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.GetPost(ctx, postID)
	if err != nil {
		return s.errorResult("get_post_attachments", err), nil
	}
	if username, excluded := optout.ExcludedAuthor(result, s.policy()); excluded {
		return jsonResult(optout.Exclusion(postExcludedMessage, username)), nil
	}

	items := make([]feed.Payload, 0)
	for _, att := range result.Attachments() {
		entry := feed.Payload{
			"url":       s.client.AttachmentURL(att, "original"),
			"thumbnail": s.client.AttachmentURL(att, "thumbnail"),
		}
		if id, ok := att["id"].(string); ok {
			entry["id"] = id
		}
		if name, ok := att["fileName"].(string); ok {
			entry["fileName"] = name
		}
		if mediaType, ok := att["mediaType"].(string); ok {
			entry["mediaType"] = mediaType
		}
		if size, ok := att["fileSize"]; ok {
			entry["fileSize"] = size
		}
		if sizes, ok := att["imageSizes"]; ok {
			entry["imageSizes"] = sizes
		}
		items = append(items, entry)
	}
	return jsonResult(feed.Payload{
		"post_id":     postID,
		"attachments": items,
		"count":       len(items),
	}), nil
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.AddComment(ctx, postID, body)
	if err != nil {
		return s.errorResult("add_comment", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleUpdateComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	commentID, err := request.RequireString("comment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.UpdateComment(ctx, commentID, body)
	if err != nil {
		return s.errorResult("update_comment", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleDeleteComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	commentID, err := request.RequireString("comment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.DeleteComment(ctx, commentID)
	if err != nil {
		return s.errorResult("delete_comment", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleSearchPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.SearchPosts(ctx, query, request.GetInt("limit", 0), request.GetInt("offset", 0))
	if err != nil {
		return s.errorResult("search_posts", err), nil
	}
	return s.finish(result), nil
}

func (s *Server) handleGetUserProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.GetUserProfile(ctx, username)
	if err != nil {
		return s.errorResult("get_user_profile", err), nil
	}
	if raw, ok := result["users"].(map[string]any); ok {
		profile := feed.UserProfileFrom(raw)
		if profile.Username != "" && optout.ShouldExclude(profile.Username, profile, s.policy()) {
			return jsonResult(optout.Exclusion(userExcludedMessage, profile.Username)), nil
		}
	}
	return jsonResult(result), nil
}

func (s *Server) handleWhoami(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.Whoami(ctx)
	if err != nil {
		return s.errorResult("whoami", err), nil
	}
	if request.GetBool("compact", false) {
		result = feed.CompactWhoami(result)
	}
	return jsonResult(result), nil
}

func (s *Server) handleGetSubscribers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.userAction(ctx, request, "get_subscribers", s.client.GetSubscribers)
}

func (s *Server) handleGetSubscriptions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.userAction(ctx, request, "get_subscriptions", s.client.GetSubscriptions)
}

func (s *Server) handleSubscribeUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.userAction(ctx, request, "subscribe_user", s.client.SubscribeUser)
}

func (s *Server) handleUnsubscribeUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.userAction(ctx, request, "unsubscribe_user", s.client.UnsubscribeUser)
}

func (s *Server) userAction(ctx context.Context, request mcp.CallToolRequest, tool string,
	action func(context.Context, string) (feed.Payload, error)) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := action(ctx, username)
	if err != nil {
		return s.errorResult(tool, err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleGetMyGroups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.client.GetMyGroups(ctx)
	if err != nil {
		return s.errorResult("get_my_groups", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleGetGroupTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupName, err := request.RequireString("group_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.GetGroupTimeline(ctx, groupName, request.GetInt("limit", 0), request.GetInt("offset", 0))
	if err != nil {
		return s.errorResult("get_group_timeline", err), nil
	}
	return s.finish(result), nil
}

func (s *Server) handleGetGroupInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupName, err := request.RequireString("group_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.client.GetGroupInfo(ctx, groupName)
	if err != nil {
		return s.errorResult("get_group_info", err), nil
	}
	return jsonResult(result), nil
}
