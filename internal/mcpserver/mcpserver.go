// Package mcpserver exposes a saved line-count history to LLM clients over MCP.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultHistoryPath is read when a tool call does not name a history file.
const DefaultHistoryPath = "repo_history.json"

// Server wraps the MCP server and registers the history tools.
type Server struct {
	server      *mcp.Server
	historyPath string
	squash      bool
}

// Option configures a Server.
type Option func(*Server)

// WithHistoryPath sets the history file used when a call omits "path".
func WithHistoryPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.historyPath = path
		}
	}
}

// WithSquash controls whether raw histories are squashed to one revision per day on load.
func WithSquash(squash bool) Option {
	return func(s *Server) {
		s.squash = squash
	}
}

// NewServer creates a new MCP server with all history tools registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "locplot",
			Version: version,
		},
		nil,
	)

	s := &Server{
		server:      server,
		historyPath: DefaultHistoryPath,
		squash:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history_languages",
		Description: describeLanguages(),
	}, s.handleLanguages)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history_series",
		Description: describeSeries(),
	}, s.handleSeries)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history_summary",
		Description: describeSummary(),
	}, s.handleSummary)
}
