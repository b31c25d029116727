// Package freefeed is the HTTP client for the FreeFeed API.
//
// Every method maps to one upstream call and returns the parsed JSON body as
// a feed.Payload, or a typed *APIError / *AuthError. The client holds no
// state beyond its credentials; filtering and attachment resolution live in
// their own packages and consume this one as a capability.
package freefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"freefeed-mcp/internal/feed"
	"freefeed-mcp/internal/logging"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the public FreeFeed instance.
	DefaultBaseURL = "https://freefeed.net"
	// MediaHost serves attachment binaries for the public instance.
	MediaHost = "media.freefeed.net"

	defaultAPIVersion = 4
	requestTimeout    = 30 * time.Second

	authTokenHeader = "X-Authentication-Token"
	jsonContentType = "application/json"
)

// Options configures a Client. Zero values fall back to the public instance,
// API v4, the default logger and a 30 second timeout.
type Options struct {
	BaseURL    string
	APIVersion int
	Username   string
	Password   string
	AuthToken  string

	// UploadDir and DownloadDir confine file paths handed to
	// UploadAttachmentFile and DownloadAttachmentToFile.
	UploadDir   string
	DownloadDir string

	HTTPClient *http.Client
	Logger     *logging.AppLogger
}

type Client struct {
	baseURL     string
	apiVersion  int
	username    string
	password    string
	authToken   string
	uploadDir   string
	downloadDir string

	httpClient *http.Client
	logger     *logging.AppLogger
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiVersion := opts.APIVersion
	if apiVersion <= 0 {
		apiVersion = defaultAPIVersion
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}
	uploadDir := opts.UploadDir
	if uploadDir == "" {
		uploadDir = "."
	}
	downloadDir := opts.DownloadDir
	if downloadDir == "" {
		downloadDir = "./downloads"
	}

	return &Client{
		baseURL:     baseURL,
		apiVersion:  apiVersion,
		username:    opts.Username,
		password:    opts.Password,
		authToken:   opts.AuthToken,
		uploadDir:   uploadDir,
		downloadDir: downloadDir,
		httpClient:  httpClient,
		logger:      logger,
	}
}

func (c *Client) BaseURL() string   { return c.baseURL }
func (c *Client) AuthToken() string { return c.authToken }
func (c *Client) Username() string  { return c.username }

// apiURL builds a versioned API URL for FreeFeed endpoints.
func (c *Client) apiURL(path string) string {
	return fmt.Sprintf("%s/v%d/%s", c.baseURL, c.apiVersion, strings.TrimLeft(path, "/"))
}

// Authenticate exchanges username/password for a session token.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return &AuthError{Message: "username and password required for authentication"}
	}

	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return &AuthError{Message: fmt.Sprintf("encoding credentials: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL("session"), bytes.NewReader(body))
	if err != nil {
		return &AuthError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", jsonContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Message: fmt.Sprintf("authentication error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &AuthError{Message: fmt.Sprintf("authentication failed: %d", resp.StatusCode)}
	}

	var result feed.Payload
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &AuthError{Message: fmt.Sprintf("decoding session response: %v", err)}
	}

	if token, ok := result["authToken"].(string); ok && token != "" {
		c.authToken = token
	} else if users, ok := result["users"].(map[string]any); ok {
		token, _ := users["authToken"].(string)
		if token == "" {
			return &AuthError{Message: "auth token not found in response"}
		}
		c.authToken = token
	} else {
		return &AuthError{Message: "auth token not found in response"}
	}

	c.logger.Info("Authenticated with FreeFeed", "username", c.username)
	return nil
}

// doJSON issues one API request and decodes the JSON response. Empty
// response bodies (some mutations return nothing) become {"success": true}.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload any) (feed.Payload, error) {
	endpoint := c.apiURL(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Message: fmt.Sprintf("encoding request: %v", err)}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("Accept", jsonContentType)
	if c.authToken != "" {
		req.Header.Set(authTokenHeader, c.authToken)
	}

	c.logger.Debug("HTTP request", "method", method, "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("%s %s: %v", method, path, err)}
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP response", "method", method, "url", endpoint, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Message: fmt.Sprintf("%s %s: %d", method, path, resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s %s", method, path)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("reading response: %v", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return feed.Payload{"success": true}, nil
	}

	var result feed.Payload
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return result, nil
}

// TimelineQuery names a timeline and its pagination window.
type TimelineQuery struct {
	Username string
	Type     string // home, posts, likes, comments, discussions, directs
	Limit    int
	Offset   int
}

func paginate(limit, offset int) url.Values {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	return query
}

// GetTimeline fetches one timeline feed.
func (c *Client) GetTimeline(ctx context.Context, q TimelineQuery) (feed.Payload, error) {
	var path string
	switch {
	case q.Type == "home" || q.Type == "":
		path = "timelines/home"
	case q.Type == "discussions":
		path = "timelines/filter/discussions"
	case q.Type == "directs":
		path = "timelines/filter/directs"
	case q.Username == "":
		return nil, &APIError{Message: "username required for user timeline"}
	case q.Type == "posts":
		path = "timelines/" + url.PathEscape(q.Username)
	case q.Type == "likes":
		path = "timelines/" + url.PathEscape(q.Username) + "/likes"
	case q.Type == "comments":
		path = "timelines/" + url.PathEscape(q.Username) + "/comments"
	default:
		return nil, &APIError{Message: "unknown timeline type: " + q.Type}
	}

	return c.doJSON(ctx, http.MethodGet, path, paginate(q.Limit, q.Offset), nil)
}

// GetDirects fetches the direct-message timeline of the current user.
func (c *Client) GetDirects(ctx context.Context, limit, offset int) (feed.Payload, error) {
	return c.GetTimeline(ctx, TimelineQuery{Type: "directs", Limit: limit, Offset: offset})
}

func (c *Client) GetPost(ctx context.Context, postID string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodGet, "posts/"+url.PathEscape(postID), nil, nil)
}

// CreatePostParams describes a new post. Feeds and GroupNames are both feed
// names; when neither is given the post goes to the caller's own feed.
type CreatePostParams struct {
	Body            string
	Attachments     []string // already-uploaded attachment ids
	AttachmentFiles []string // local paths, uploaded before posting
	Feeds           []string
	GroupNames      []string
}

func (c *Client) CreatePost(ctx context.Context, params CreatePostParams) (feed.Payload, error) {
	attachmentIDs := append([]string(nil), params.Attachments...)

	for _, path := range params.AttachmentFiles {
		c.logger.Info("Uploading attachment", "path", path)
		result, err := c.UploadAttachmentFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if id := ExtractAttachmentID(result); id != "" {
			attachmentIDs = append(attachmentIDs, id)
		}
	}

	feedNames := append([]string(nil), params.Feeds...)
	feedNames = append(feedNames, params.GroupNames...)
	if len(feedNames) == 0 {
		name, err := c.defaultFeedName(ctx)
		if err != nil {
			return nil, err
		}
		feedNames = []string{name}
	}

	post := map[string]any{"body": params.Body}
	if len(attachmentIDs) > 0 {
		post["attachments"] = attachmentIDs
	}
	payload := map[string]any{
		"post": post,
		"meta": map[string]any{"feeds": feedNames},
	}

	return c.doJSON(ctx, http.MethodPost, "posts", nil, payload)
}

// CreateDirectPost sends a direct post to one or more recipients.
func (c *Client) CreateDirectPost(ctx context.Context, body string, recipients []string, attachments, attachmentFiles []string) (feed.Payload, error) {
	if len(recipients) == 0 {
		return nil, &APIError{Message: "direct post requires at least one recipient"}
	}
	return c.CreatePost(ctx, CreatePostParams{
		Body:            body,
		Attachments:     attachments,
		AttachmentFiles: attachmentFiles,
		Feeds:           recipients,
	})
}

// LeaveDirect removes the current user from a direct post thread.
func (c *Client) LeaveDirect(ctx context.Context, postID string) (feed.Payload, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, &APIError{Message: "invalid post_id format"}
	}
	return c.doJSON(ctx, http.MethodPost, "posts/"+url.PathEscape(postID)+"/leave", nil, nil)
}

// defaultFeedName is the feed a post lands in when no target is named: the
// configured username, or the authenticated identity from whoami.
func (c *Client) defaultFeedName(ctx context.Context) (string, error) {
	if c.username != "" {
		return c.username, nil
	}

	whoami, err := c.Whoami(ctx)
	if err != nil {
		return "", err
	}
	if users, ok := whoami["users"].(map[string]any); ok {
		if username, ok := users["username"].(string); ok && username != "" {
			c.username = username
			return username, nil
		}
	}
	return "", &APIError{Message: "unable to determine username for posting"}
}

func (c *Client) UpdatePost(ctx context.Context, postID, body string) (feed.Payload, error) {
	payload := map[string]any{"post": map[string]any{"body": body}}
	return c.doJSON(ctx, http.MethodPut, "posts/"+url.PathEscape(postID), nil, payload)
}

func (c *Client) DeletePost(ctx context.Context, postID string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodDelete, "posts/"+url.PathEscape(postID), nil, nil)
}

func (c *Client) LikePost(ctx context.Context, postID string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodPost, "posts/"+url.PathEscape(postID)+"/like", nil, nil)
}

func (c *Client) UnlikePost(ctx context.Context, postID string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodPost, "posts/"+url.PathEscape(postID)+"/unlike", nil, nil)
}

func (c *Client) HidePost(ctx context.Context, postID string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodPost, "posts/"+url.PathEscape(postID)+"/hide", nil, nil)
}

func (c *Client) UnhidePost(ctx context.Context, postID string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodPost, "posts/"+url.PathEscape(postID)+"/unhide", nil, nil)
}

func (c *Client) AddComment(ctx context.Context, postID, body string) (feed.Payload, error) {
	payload := map[string]any{
		"comment": map[string]any{
			"body":   body,
			"postId": postID,
		},
	}
	return c.doJSON(ctx, http.MethodPost, "comments", nil, payload)
}

func (c *Client) UpdateComment(ctx context.Context, commentID, body string) (feed.Payload, error) {
	payload := map[string]any{"comment": map[string]any{"body": body}}
	return c.doJSON(ctx, http.MethodPut, "comments/"+url.PathEscape(commentID), nil, payload)
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodDelete, "comments/"+url.PathEscape(commentID), nil, nil)
}

// SearchPosts runs a post search. The query supports the upstream operators
// (intitle:, incomment:, from:, AND, OR).
func (c *Client) SearchPosts(ctx context.Context, query string, limit, offset int) (feed.Payload, error) {
	params := paginate(limit, offset)
	params.Set("query", query)
	return c.doJSON(ctx, http.MethodGet, "search", params, nil)
}

func (c *Client) GetUserProfile(ctx context.Context, username string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodGet, "users/"+url.PathEscape(username), nil, nil)
}

func (c *Client) Whoami(ctx context.Context) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodGet, "users/whoami", nil, nil)
}

func (c *Client) GetSubscribers(ctx context.Context, username string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodGet, "users/"+url.PathEscape(username)+"/subscribers", nil, nil)
}

func (c *Client) GetSubscriptions(ctx context.Context, username string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodGet, "users/"+url.PathEscape(username)+"/subscriptions", nil, nil)
}

func (c *Client) SubscribeUser(ctx context.Context, username string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodPost, "users/"+url.PathEscape(username)+"/subscribe", nil, nil)
}

func (c *Client) UnsubscribeUser(ctx context.Context, username string) (feed.Payload, error) {
	return c.doJSON(ctx, http.MethodPost, "users/"+url.PathEscape(username)+"/unsubscribe", nil, nil)
}
