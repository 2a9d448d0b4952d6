package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yanqian/health-journal/internal/domain/journal"
)

const (
	serverName    = "health-journal"
	serverVersion = "1.0.0"
)

// Server exposes the journal service as MCP tools.
type Server struct {
	mcpServer *mcp.Server
	svc       journal.Service
	logger    *slog.Logger
}

// NewServer registers the journal tools on a fresh MCP server.
func NewServer(svc journal.Service, logger *slog.Logger) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		svc:       svc,
		logger:    logger.With("component", "mcp.server"),
	}
	s.registerTools()
	return s
}

// Serve blocks on the stdio transport until ctx is cancelled or the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving mcp over stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
