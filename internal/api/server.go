// Package api is the REST facade. It exposes the same operations as the
// stdio tool server over HTTP, with per-request credential resolution so one
// process can serve many FreeFeed accounts.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"freefeed-mcp/internal/config"
	"freefeed-mcp/internal/freefeed"
	"freefeed-mcp/internal/logging"
	"freefeed-mcp/internal/optout"
)

type Server struct {
	config *config.Config
	logger *logging.AppLogger

	sessions *sessionStore

	// shared is the env-credential client used when a request carries no
	// credentials of its own. Built once, on first use.
	sharedMu   sync.Mutex
	shared     *freefeed.Client
	sharedInit bool
	sharedErr  error
}

func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Server{
		config:   cfg,
		logger:   logger,
		sessions: newSessionStore(),
	}
}

// Router builds the gin engine with all routes configured.
func (s *Server) Router() *gin.Engine {
	if !s.config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+
			"X-Freefeed-Auth-Token, X-Freefeed-Username, X-Freefeed-Password, X-Freefeed-Base-Url, X-Session-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes(r)
	return r
}

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/session", s.handleCreateSession)

		api.GET("/timeline", s.handleGetTimeline)

		api.POST("/posts", s.handleCreatePost)
		api.GET("/posts/:post_id", s.handleGetPost)
		api.PUT("/posts/:post_id", s.handleUpdatePost)
		api.DELETE("/posts/:post_id", s.handleDeletePost)
		api.POST("/posts/:post_id/like", s.handleLikePost)
		api.POST("/posts/:post_id/unlike", s.handleUnlikePost)
		api.POST("/posts/:post_id/hide", s.handleHidePost)
		api.POST("/posts/:post_id/unhide", s.handleUnhidePost)
		api.POST("/posts/:post_id/leave", s.handleLeaveDirect)
		api.POST("/posts/:post_id/comments", s.handleAddComment)
		api.GET("/posts/:post_id/attachments", s.handleGetPostAttachments)

		api.PUT("/comments/:comment_id", s.handleUpdateComment)
		api.DELETE("/comments/:comment_id", s.handleDeleteComment)

		api.POST("/attachments", s.handleUploadAttachment)
		api.GET("/attachments/download", s.handleDownloadAttachment)

		api.GET("/search", s.handleSearchPosts)

		api.GET("/directs", s.handleGetDirects)

		api.GET("/users/me", s.handleWhoami)
		api.GET("/users/:username", s.handleGetUserProfile)
		api.GET("/users/:username/subscribers", s.handleGetSubscribers)
		api.GET("/users/:username/subscriptions", s.handleGetSubscriptions)
		api.POST("/users/:username/subscribe", s.handleSubscribeUser)
		api.POST("/users/:username/unsubscribe", s.handleUnsubscribeUser)

		api.GET("/groups/my", s.handleGetMyGroups)
		api.GET("/groups/:group_name", s.handleGetGroupInfo)
		api.GET("/groups/:group_name/timeline", s.handleGetGroupTimeline)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.APIHost, s.config.APIPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("REST facade listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// policy re-reads the opt-out configuration on every request, mirroring the
// tool server.
func (s *Server) policy() optout.Policy {
	return optout.Load(s.config.OptOutConfigPath)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "FreeFeed API",
		"version": s.config.Version,
		"status":  "running",
		"health":  "/health",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	client, err := s.sharedClient(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"authenticated": client.AuthToken() != "",
	})
}
