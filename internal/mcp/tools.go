package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools declares every tool the server exposes. Handlers live in
// handlers.go.
func (s *Server) registerTools() {
	// Timeline tools
	s.mcpServer.AddTool(mcp.NewTool("get_timeline",
		mcp.WithDescription("Get timeline feed from FreeFeed. Can get home feed, user posts, "+
			"user likes, user comments, or discussions feed. "+
			"Timeline types: 'home', 'posts', 'likes', 'comments', 'discussions'"),
		mcp.WithString("timeline_type", mcp.Required(),
			mcp.Enum("home", "posts", "likes", "comments", "discussions"),
			mcp.Description("Type of timeline to retrieve")),
		mcp.WithString("username", mcp.Description("Username (required for posts/likes/comments timelines)")),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(100), mcp.Description("Number of posts to return")),
		mcp.WithNumber("offset", mcp.Min(0), mcp.Description("Offset for pagination")),
	), s.handleGetTimeline)

	s.mcpServer.AddTool(mcp.NewTool("get_directs",
		mcp.WithDescription("Get the direct messages timeline for the current user"),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(100), mcp.Description("Number of posts to return")),
		mcp.WithNumber("offset", mcp.Min(0), mcp.Description("Offset for pagination")),
	), s.handleGetDirects)

	// Post tools
	s.mcpServer.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Get a specific post by ID with all comments"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID")),
	), s.handleGetPost)

	s.mcpServer.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Create a new post on FreeFeed with optional file attachments and optional group posting"),
		mcp.WithString("body", mcp.Required(), mcp.Description("Post text content")),
		mcp.WithArray("attachment_paths", mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("List of file paths to attach (will be uploaded automatically)")),
		mcp.WithArray("group_names", mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("List of group usernames to post to (e.g., ['mygroup', 'anothergroup'])")),
	), s.handleCreatePost)

	s.mcpServer.AddTool(mcp.NewTool("create_direct_post",
		mcp.WithDescription("Send a direct post to one or more users"),
		mcp.WithString("body", mcp.Required(), mcp.Description("Post text content")),
		mcp.WithArray("recipients", mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Usernames to receive the direct post")),
		mcp.WithArray("attachment_paths", mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("List of file paths to attach (will be uploaded automatically)")),
	), s.handleCreateDirectPost)

	s.mcpServer.AddTool(mcp.NewTool("update_post",
		mcp.WithDescription("Update an existing post"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to update")),
		mcp.WithString("body", mcp.Required(), mcp.Description("New post text content")),
	), s.handleUpdatePost)

	s.mcpServer.AddTool(mcp.NewTool("delete_post",
		mcp.WithDescription("Delete a post"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to delete")),
	), s.handleDeletePost)

	s.mcpServer.AddTool(mcp.NewTool("leave_direct",
		mcp.WithDescription("Leave a direct post thread"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID of the direct thread to leave")),
	), s.handleLeaveDirect)

	s.mcpServer.AddTool(mcp.NewTool("like_post",
		mcp.WithDescription("Like a post"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to like")),
	), s.handleLikePost)

	s.mcpServer.AddTool(mcp.NewTool("unlike_post",
		mcp.WithDescription("Remove like from a post"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to unlike")),
	), s.handleUnlikePost)

	s.mcpServer.AddTool(mcp.NewTool("hide_post",
		mcp.WithDescription("Hide a post from your feed"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to hide")),
	), s.handleHidePost)

	s.mcpServer.AddTool(mcp.NewTool("unhide_post",
		mcp.WithDescription("Unhide a previously hidden post"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to unhide")),
	), s.handleUnhidePost)

	// Attachment tools
	s.mcpServer.AddTool(mcp.NewTool("upload_attachment",
		mcp.WithDescription("Upload a file attachment (image, video, etc.) to FreeFeed. "+
			"Returns attachment ID that can be used in posts."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to the file to upload")),
	), s.handleUploadAttachment)

	s.mcpServer.AddTool(mcp.NewTool("download_attachment",
		mcp.WithDescription("Download an attachment from a FreeFeed post. If the file is an image and "+
			"small enough, returns image content plus a URL fallback; otherwise returns a URL. "+
			"Can also save to file."),
		mcp.WithString("attachment_url", mcp.Required(),
			mcp.Description("URL of the attachment to download (from post/comment data)")),
		mcp.WithString("save_path",
			mcp.Description("Optional path to save file. If not provided, returns base64-encoded data.")),
		mcp.WithBoolean("prefer_image", mcp.DefaultBool(true),
			mcp.Description("Return image content when possible")),
		mcp.WithNumber("max_bytes", mcp.Min(256000),
			mcp.Description("Maximum bytes to return for inline image data")),
	), s.handleDownloadAttachment)

	s.mcpServer.AddTool(mcp.NewTool("get_attachment_image",
		mcp.WithDescription("Download an attachment and return image content when possible. "+
			"Returns image content plus a URL fallback; for large files, returns only the URL."),
		mcp.WithString("attachment_url", mcp.Required(),
			mcp.Description("URL of the attachment to download (from post/comment data)")),
		mcp.WithNumber("max_bytes", mcp.Min(256000),
			mcp.Description("Maximum bytes to return for inline image data")),
	), s.handleGetAttachmentImage)

	s.mcpServer.AddTool(mcp.NewTool("get_post_attachments",
		mcp.WithDescription("Extract attachment URLs and metadata from a post. "+
			"Returns list of attachments with URLs for downloading."),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to get attachments from")),
	), s.handleGetPostAttachments)

	// Comment tools
	s.mcpServer.AddTool(mcp.NewTool("add_comment",
		mcp.WithDescription("Add a comment to a post"),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID to comment on")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Comment text")),
	), s.handleAddComment)

	s.mcpServer.AddTool(mcp.NewTool("update_comment",
		mcp.WithDescription("Update an existing comment"),
		mcp.WithString("comment_id", mcp.Required(), mcp.Description("Comment ID to update")),
		mcp.WithString("body", mcp.Required(), mcp.Description("New comment text")),
	), s.handleUpdateComment)

	s.mcpServer.AddTool(mcp.NewTool("delete_comment",
		mcp.WithDescription("Delete a comment"),
		mcp.WithString("comment_id", mcp.Required(), mcp.Description("Comment ID to delete")),
	), s.handleDeleteComment)

	// Search tools
	s.mcpServer.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Search posts on FreeFeed. Supports search operators: "+
			"intitle:query (search in post text), "+
			"incomment:query (search in comments), "+
			"from:username (search by author), "+
			"AND/OR (logical operators)"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query with optional operators")),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(100), mcp.Description("Number of results to return")),
		mcp.WithNumber("offset", mcp.Min(0), mcp.Description("Offset for pagination")),
	), s.handleSearchPosts)

	// User tools
	s.mcpServer.AddTool(mcp.NewTool("get_user_profile",
		mcp.WithDescription("Get user profile information"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Username to get profile for")),
	), s.handleGetUserProfile)

	s.mcpServer.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Get current authenticated user information"),
		mcp.WithBoolean("compact", mcp.DefaultBool(false),
			mcp.Description("Return a compact response to avoid large payloads")),
	), s.handleWhoami)

	s.mcpServer.AddTool(mcp.NewTool("get_subscribers",
		mcp.WithDescription("Get list of user's subscribers (followers)"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Username to get subscribers for")),
	), s.handleGetSubscribers)

	s.mcpServer.AddTool(mcp.NewTool("get_subscriptions",
		mcp.WithDescription("Get list of user's subscriptions (following)"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Username to get subscriptions for")),
	), s.handleGetSubscriptions)

	s.mcpServer.AddTool(mcp.NewTool("subscribe_user",
		mcp.WithDescription("Subscribe to (follow) a user"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Username to subscribe to")),
	), s.handleSubscribeUser)

	s.mcpServer.AddTool(mcp.NewTool("unsubscribe_user",
		mcp.WithDescription("Unsubscribe from (unfollow) a user"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Username to unsubscribe from")),
	), s.handleUnsubscribeUser)

	// Group tools
	s.mcpServer.AddTool(mcp.NewTool("get_my_groups",
		mcp.WithDescription("Get list of groups that current user is a member of"),
	), s.handleGetMyGroups)

	s.mcpServer.AddTool(mcp.NewTool("get_group_timeline",
		mcp.WithDescription("Get posts from a specific group"),
		mcp.WithString("group_name", mcp.Required(), mcp.Description("Group username/name")),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(100), mcp.Description("Number of posts to return")),
		mcp.WithNumber("offset", mcp.Min(0), mcp.Description("Offset for pagination")),
	), s.handleGetGroupTimeline)

	s.mcpServer.AddTool(mcp.NewTool("get_group_info",
		mcp.WithDescription("Get information about a specific group"),
		mcp.WithString("group_name", mcp.Required(), mcp.Description("Group username/name")),
	), s.handleGetGroupInfo)
}
