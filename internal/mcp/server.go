// Package mcp implements the Model Context Protocol server for the FreeFeed
// gateway using the mcp-go library.
//
// The server exposes the FreeFeed account operations as MCP tools over
// stdio (JSON-RPC 2.0). Every tool result passes through the opt-out
// content filter and the post-URL annotator before it reaches the caller;
// the two attachment-retrieval tools go through the attachment resolver
// instead of the filtering path.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"freefeed-mcp/internal/attachments"
	"freefeed-mcp/internal/config"
	"freefeed-mcp/internal/feed"
	"freefeed-mcp/internal/freefeed"
	"freefeed-mcp/internal/logging"
	"freefeed-mcp/internal/optout"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server represents an MCP server instance using mcp-go
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	client    *freefeed.Client
	resolver  *attachments.Resolver
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	return &Server{
		config: cfg,
		logger: logger,
	}
}

// Start initializes the FreeFeed client, registers the tools and serves
// stdio until the transport closes.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Initializing MCP server")

	if err := s.initClient(ctx); err != nil {
		return err
	}

	s.mcpServer = server.NewMCPServer("freefeed-mcp", s.config.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()

	s.logger.Info("MCP server created, starting stdio communication")

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// initClient constructs the shared, request-independent API client the
// tools dispatch through. Ownership stays here; nothing lazily constructs
// it on first use.
func (s *Server) initClient(ctx context.Context) error {
	if s.config.AppToken == "" && (s.config.Username == "" || s.config.Password == "") {
		return &freefeed.AuthError{Message: "set FREEFEED_APP_TOKEN or FREEFEED_USERNAME and FREEFEED_PASSWORD"}
	}

	s.client = freefeed.NewClient(freefeed.Options{
		BaseURL:     s.config.BaseURL,
		APIVersion:  s.config.APIVersion,
		Username:    s.config.Username,
		Password:    s.config.Password,
		AuthToken:   s.config.AppToken,
		UploadDir:   s.config.UploadDir,
		DownloadDir: s.config.DownloadDir,
		Logger:      s.logger,
	})

	if s.config.AppToken != "" {
		s.logger.Info("FreeFeed client initialized with application token")
	} else {
		if err := s.client.Authenticate(ctx); err != nil {
			return err
		}
		s.logger.Info("FreeFeed client initialized and authenticated")
	}

	s.resolver = attachments.NewResolver(s.client, s.client.BaseURL(), s.logger)
	return nil
}

// policy re-reads the opt-out configuration; called once per tool
// invocation so changes take effect without restarting.
func (s *Server) policy() optout.Policy {
	return optout.Load(s.config.OptOutConfigPath)
}

// jsonResult renders a payload the way every non-image tool returns it.
func jsonResult(payload any) *mcp.CallToolResult {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Unexpected error: %v", err))
	}
	return mcp.NewToolResultText(string(encoded))
}

// errorResult maps an upstream failure to the short textual error callers
// see. API errors are never retried here.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	s.logger.Error("Tool call failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err))
}

// finish threads a list-shaped payload through the opt-out filter and the
// URL annotator before returning it.
func (s *Server) finish(payload feed.Payload) *mcp.CallToolResult {
	payload = optout.FilterPayload(payload, s.policy())
	payload = feed.AddPostURLs(payload, s.client.BaseURL())
	return jsonResult(payload)
}

// annotateOnly skips the payload filter for shapes it does not apply to.
func (s *Server) annotateOnly(payload feed.Payload) *mcp.CallToolResult {
	return jsonResult(feed.AddPostURLs(payload, s.client.BaseURL()))
}
