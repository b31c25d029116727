package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"freefeed-mcp/internal/feed"
	"freefeed-mcp/internal/freefeed"
	"freefeed-mcp/internal/optout"
)

const (
	postExcludedMessage = "Post author opted out of AI interactions"
	userExcludedMessage = "User opted out of AI interactions"
)

type sessionRequest struct {
	AuthToken  string `json:"auth_token"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	BaseURL    string `json:"base_url"`
	APIVersion int    `json:"api_version"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	client, err := s.clientFromCredentials(c.Request.Context(), credentials{
		AuthToken:  req.AuthToken,
		Username:   req.Username,
		Password:   req.Password,
		BaseURL:    req.BaseURL,
		APIVersion: req.APIVersion,
	})
	if err != nil {
		s.abortError(c, err)
		return
	}

	user, err := client.Whoami(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	if client.AuthToken() == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "FreeFeed auth failed"})
		return
	}

	token := s.sessions.Create(sessionData{
		AuthToken:  client.AuthToken(),
		BaseURL:    client.BaseURL(),
		APIVersion: req.APIVersion,
		Username:   req.Username,
	})
	c.JSON(http.StatusOK, gin.H{"session_token": token, "user": user})
}

// intQuery parses an optional integer query parameter, treating absent or
// malformed values as zero.
func intQuery(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}

// finish threads a list-shaped payload through the opt-out filter and the
// URL annotator, then writes it.
func (s *Server) finish(c *gin.Context, client *freefeed.Client, payload feed.Payload) {
	payload = optout.FilterPayload(payload, s.policy())
	payload = feed.AddPostURLs(payload, client.BaseURL())
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleGetTimeline(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	timelineType := c.Query("timeline_type")
	if timelineType == "" {
		timelineType = "home"
	}
	result, err := client.GetTimeline(c.Request.Context(), freefeed.TimelineQuery{
		Username: c.Query("username"),
		Type:     timelineType,
		Limit:    intQuery(c, "limit"),
		Offset:   intQuery(c, "offset"),
	})
	if err != nil {
		s.abortError(c, err)
		return
	}
	s.finish(c, client, result)
}

func (s *Server) handleGetDirects(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.GetDirects(c.Request.Context(), intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	s.finish(c, client, result)
}

func (s *Server) handleGetPost(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.GetPost(c.Request.Context(), c.Param("post_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	if username, excluded := optout.ExcludedAuthor(result, s.policy()); excluded {
		c.JSON(http.StatusOK, optout.Exclusion(postExcludedMessage, username))
		return
	}
	c.JSON(http.StatusOK, feed.AddPostURLs(result, client.BaseURL()))
}

func (s *Server) handleCreatePost(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}

	body := c.PostForm("body")
	if body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "body is required"})
		return
	}

	var groups []string
	if raw := c.PostForm("group_names"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				groups = append(groups, name)
			}
		}
	}

	var attachmentIDs []string
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				s.abortError(c, err)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				s.abortError(c, err)
				return
			}
			uploaded, err := client.UploadAttachment(c.Request.Context(), fh.Filename, data)
			if err != nil {
				s.abortError(c, err)
				return
			}
			if id := freefeed.ExtractAttachmentID(uploaded); id != "" {
				attachmentIDs = append(attachmentIDs, id)
			}
		}
	}

	result, err := client.CreatePost(c.Request.Context(), freefeed.CreatePostParams{
		Body:        body,
		Attachments: attachmentIDs,
		GroupNames:  groups,
	})
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed.AddPostURLs(result, client.BaseURL()))
}

type bodyRequest struct {
	Body string `json:"body" binding:"required"`
}

func (s *Server) handleUpdatePost(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	var req bodyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	result, err := client.UpdatePost(c.Request.Context(), c.Param("post_id"), req.Body)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed.AddPostURLs(result, client.BaseURL()))
}

func (s *Server) handleDeletePost(c *gin.Context) {
	s.postAction(c, (*freefeed.Client).DeletePost)
}

func (s *Server) handleLikePost(c *gin.Context) {
	s.postAction(c, (*freefeed.Client).LikePost)
}

func (s *Server) handleUnlikePost(c *gin.Context) {
	s.postAction(c, (*freefeed.Client).UnlikePost)
}

func (s *Server) handleHidePost(c *gin.Context) {
	s.postAction(c, (*freefeed.Client).HidePost)
}

func (s *Server) handleUnhidePost(c *gin.Context) {
	s.postAction(c, (*freefeed.Client).UnhidePost)
}

func (s *Server) handleLeaveDirect(c *gin.Context) {
	s.postAction(c, (*freefeed.Client).LeaveDirect)
}

func (s *Server) postAction(c *gin.Context, action func(*freefeed.Client, context.Context, string) (feed.Payload, error)) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := action(client, c.Request.Context(), c.Param("post_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAddComment(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	var req bodyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	result, err := client.AddComment(c.Request.Context(), c.Param("post_id"), req.Body)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleUpdateComment(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	var req bodyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	result, err := client.UpdateComment(c.Request.Context(), c.Param("comment_id"), req.Body)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.DeleteComment(c.Request.Context(), c.Param("comment_id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleUploadAttachment(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.abortError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.abortError(c, err)
		return
	}
	result, err := client.UploadAttachment(c.Request.Context(), fh.Filename, data)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetPostAttachments(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	postID := c.Param("post_id")
	result, err := client.GetPost(c.Request.Context(), postID)
	if err != nil {
		s.abortError(c, err)
		return
	}
	if username, excluded := optout.ExcludedAuthor(result, s.policy()); excluded {
		c.JSON(http.StatusOK, optout.Exclusion(postExcludedMessage, username))
		return
	}

	items := make([]feed.Payload, 0)
	for _, att := range result.Attachments() {
		entry := feed.Payload{
			"url":          client.AttachmentURL(att, "original"),
			"thumbnailUrl": client.AttachmentURL(att, "thumbnail"),
		}
		for _, key := range []string{"id", "fileName", "fileSize", "mediaType"} {
			if v, ok := att[key]; ok {
				entry[key] = v
			}
		}
		items = append(items, entry)
	}
	c.JSON(http.StatusOK, gin.H{
		"post_id":     postID,
		"attachments": items,
		"count":       len(items),
	})
}

func (s *Server) handleDownloadAttachment(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "url is required"})
		return
	}
	data, err := client.DownloadAttachment(c.Request.Context(), rawURL)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleSearchPosts(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
		return
	}
	result, err := client.SearchPosts(c.Request.Context(), query, intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	s.finish(c, client, result)
}

func (s *Server) handleGetUserProfile(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.GetUserProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	if raw, isMap := result["users"].(map[string]any); isMap {
		profile := feed.UserProfileFrom(raw)
		if profile.Username != "" && optout.ShouldExclude(profile.Username, profile, s.policy()) {
			c.JSON(http.StatusOK, optout.Exclusion(userExcludedMessage, profile.Username))
			return
		}
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleWhoami(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.Whoami(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	if compact, _ := strconv.ParseBool(c.Query("compact")); compact {
		result = feed.CompactWhoami(result)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetSubscribers(c *gin.Context) {
	s.userAction(c, (*freefeed.Client).GetSubscribers)
}

func (s *Server) handleGetSubscriptions(c *gin.Context) {
	s.userAction(c, (*freefeed.Client).GetSubscriptions)
}

func (s *Server) handleSubscribeUser(c *gin.Context) {
	s.userAction(c, (*freefeed.Client).SubscribeUser)
}

func (s *Server) handleUnsubscribeUser(c *gin.Context) {
	s.userAction(c, (*freefeed.Client).UnsubscribeUser)
}

func (s *Server) userAction(c *gin.Context, action func(*freefeed.Client, context.Context, string) (feed.Payload, error)) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := action(client, c.Request.Context(), c.Param("username"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetMyGroups(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.GetMyGroups(c.Request.Context())
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetGroupInfo(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.GetGroupInfo(c.Request.Context(), c.Param("group_name"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetGroupTimeline(c *gin.Context) {
	client, ok := s.requestClient(c)
	if !ok {
		return
	}
	result, err := client.GetGroupTimeline(c.Request.Context(), c.Param("group_name"), intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	s.finish(c, client, result)
}
