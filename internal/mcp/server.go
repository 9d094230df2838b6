package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its tool dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Catalog      Catalog
	Orchestrator Orchestrator
	Library      Library
}

// NewServer creates a configured MCP server with the book tools
// registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "bookchat-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_books",
		Description: "Search the public-domain book catalog by title or author. Returns ranked matches with catalog IDs.",
	}, makeSearchBooksHandler(cfg.Catalog))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_book",
		Description: "Download and index a book so it can be discussed. Takes the first catalog match for the title and returns the verified title to use as active_title.",
	}, makeOpenBookHandler(cfg.Catalog, cfg.Orchestrator))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat",
		Description: "Run one conversation turn about the active book: ask a question, request a summary, continue the story, or switch books. Pass the active_title returned by the previous call.",
	}, makeChatHandler(cfg.Orchestrator))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "library_status",
		Description: "List every ingested book and the total number of indexed chunks.",
	}, makeLibraryStatusHandler(cfg.Library))

	return &Server{server: server}
}

// Run starts the server on stdio (blocks until the client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
