package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"freefeed-mcp/internal/freefeed"
)

// sharedClient returns the process-wide client built from environment
// credentials. Construction failures are not cached; a request after the
// upstream recovers gets a fresh attempt.
func (s *Server) sharedClient(ctx context.Context) (*freefeed.Client, error) {
	s.sharedMu.Lock()
	defer s.sharedMu.Unlock()

	if s.sharedInit {
		return s.shared, nil
	}

	if s.config.AppToken == "" && (s.config.Username == "" || s.config.Password == "") {
		return nil, &freefeed.AuthError{
			Message: "set FREEFEED_APP_TOKEN or FREEFEED_USERNAME and FREEFEED_PASSWORD",
		}
	}

	client := freefeed.NewClient(freefeed.Options{
		BaseURL:     s.config.BaseURL,
		APIVersion:  s.config.APIVersion,
		Username:    s.config.Username,
		Password:    s.config.Password,
		AuthToken:   s.config.AppToken,
		UploadDir:   s.config.UploadDir,
		DownloadDir: s.config.DownloadDir,
		Logger:      s.logger,
	})
	if s.config.AppToken == "" {
		if err := client.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	s.shared = client
	s.sharedInit = true
	s.logger.Info("Shared FreeFeed client initialized")
	return client, nil
}

// credentials carries what a caller supplied, from headers or the session
// body. Token and username/password are mutually exclusive.
type credentials struct {
	AuthToken  string
	Username   string
	Password   string
	BaseURL    string
	APIVersion int
}

var (
	errBothCredentials = errors.New("use either auth_token or username/password, not both")
	errNoCredentials   = errors.New("provide auth_token or username and password")
)

// clientFromCredentials builds and verifies a client for explicit
// credentials. Token callers are verified with a whoami round trip so a bad
// token fails here rather than on the first real call.
func (s *Server) clientFromCredentials(ctx context.Context, creds credentials) (*freefeed.Client, error) {
	if creds.AuthToken != "" && (creds.Username != "" || creds.Password != "") {
		return nil, errBothCredentials
	}
	if creds.AuthToken == "" && (creds.Username == "" || creds.Password == "") {
		return nil, errNoCredentials
	}

	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = s.config.BaseURL
	}

	client := freefeed.NewClient(freefeed.Options{
		BaseURL:     baseURL,
		APIVersion:  creds.APIVersion,
		Username:    creds.Username,
		Password:    creds.Password,
		AuthToken:   creds.AuthToken,
		UploadDir:   s.config.UploadDir,
		DownloadDir: s.config.DownloadDir,
		Logger:      s.logger,
	})

	if creds.AuthToken != "" {
		if _, err := client.Whoami(ctx); err != nil {
			return nil, err
		}
	} else if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// requestClient resolves the client a request should use: explicit header
// credentials first, then a session token, then the shared env client.
func (s *Server) requestClient(c *gin.Context) (*freefeed.Client, bool) {
	ctx := c.Request.Context()

	token := c.GetHeader("X-Freefeed-Auth-Token")
	if token == "" {
		if auth := c.GetHeader("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
	}
	username := c.GetHeader("X-Freefeed-Username")
	password := c.GetHeader("X-Freefeed-Password")

	if token != "" || (username != "" && password != "") {
		client, err := s.clientFromCredentials(ctx, credentials{
			AuthToken: token,
			Username:  username,
			Password:  password,
			BaseURL:   c.GetHeader("X-Freefeed-Base-Url"),
		})
		if err != nil {
			s.abortError(c, err)
			return nil, false
		}
		return client, true
	}

	if sessionToken := c.GetHeader("X-Session-Token"); sessionToken != "" {
		session, ok := s.sessions.Get(sessionToken)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid session token"})
			return nil, false
		}
		return freefeed.NewClient(freefeed.Options{
			BaseURL:     session.BaseURL,
			APIVersion:  session.APIVersion,
			AuthToken:   session.AuthToken,
			UploadDir:   s.config.UploadDir,
			DownloadDir: s.config.DownloadDir,
			Logger:      s.logger,
		}), true
	}

	client, err := s.sharedClient(ctx)
	if err != nil {
		s.abortError(c, err)
		return nil, false
	}
	return client, true
}

// abortError maps an error to the REST status convention: auth failures are
// 401, upstream rejections 400, credential shape problems 400, the rest 500.
func (s *Server) abortError(c *gin.Context, err error) {
	var authErr *freefeed.AuthError
	var apiErr *freefeed.APIError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &apiErr):
		status = http.StatusBadRequest
	case errors.Is(err, errBothCredentials), errors.Is(err, errNoCredentials):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"detail": err.Error()})
}
