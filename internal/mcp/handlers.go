package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inkwell/bookchat/internal/gutenberg"
	"github.com/inkwell/bookchat/internal/storage"
)

// Catalog is the slice of the book catalog the tools need.
type Catalog interface {
	Search(ctx context.Context, query string) ([]gutenberg.Book, error)
}

// Orchestrator executes conversation turns and book activation.
type Orchestrator interface {
	Orchestrate(ctx context.Context, utterance, activeTitle string) (string, string)
	EnsureAvailable(ctx context.Context, book gutenberg.Book) (string, error)
}

// Library reads index-wide statistics.
type Library interface {
	ListBooks(ctx context.Context) ([]string, error)
	GetCollectionInfo(ctx context.Context) (*storage.CollectionInfo, error)
}

// makeSearchBooksHandler creates the search_books tool handler.
func makeSearchBooksHandler(catalog Catalog) func(
	context.Context, *mcp.CallToolRequest, SearchBooksInput,
) (*mcp.CallToolResult, SearchBooksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchBooksInput) (
		*mcp.CallToolResult, SearchBooksOutput, error,
	) {
		books, err := catalog.Search(ctx, input.Query)
		if err != nil {
			return nil, SearchBooksOutput{}, fmt.Errorf("catalog search failed: %w", err)
		}

		if len(books) == 0 {
			return nil, SearchBooksOutput{
				Results: []BookResult{},
				Message: "No books found. Try a different title or author.",
			}, nil
		}

		results := make([]BookResult, len(books))
		for i, book := range books {
			results[i] = BookResult{
				Title:  book.Title,
				Author: book.Author,
				ID:     book.ID,
			}
		}

		return nil, SearchBooksOutput{Results: results}, nil
	}
}

// makeOpenBookHandler creates the open_book tool handler: search the
// catalog, take the first match, download and ingest it. Failures come
// back as a message, not a protocol error, so the client can relay them
// to the user.
func makeOpenBookHandler(catalog Catalog, orch Orchestrator) func(
	context.Context, *mcp.CallToolRequest, OpenBookInput,
) (*mcp.CallToolResult, OpenBookOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input OpenBookInput) (
		*mcp.CallToolResult, OpenBookOutput, error,
	) {
		books, err := catalog.Search(ctx, input.Title)
		if err != nil {
			return nil, OpenBookOutput{}, fmt.Errorf("catalog search failed: %w", err)
		}
		if len(books) == 0 {
			return nil, OpenBookOutput{
				Message: fmt.Sprintf("No catalog match for '%s'.", input.Title),
			}, nil
		}

		verified, err := orch.EnsureAvailable(ctx, books[0])
		if err != nil {
			return nil, OpenBookOutput{
				Message: fmt.Sprintf("Could not make '%s' available: %v", books[0].Title, err),
			}, nil
		}

		return nil, OpenBookOutput{Title: verified, Opened: true}, nil
	}
}

// makeChatHandler creates the chat tool handler. One call is one
// conversation turn; the caller carries active_title between calls.
func makeChatHandler(orch Orchestrator) func(
	context.Context, *mcp.CallToolRequest, ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ChatInput) (
		*mcp.CallToolResult, ChatOutput, error,
	) {
		response, title := orch.Orchestrate(ctx, input.Utterance, input.ActiveTitle)
		return nil, ChatOutput{Response: response, ActiveTitle: title}, nil
	}
}

// makeLibraryStatusHandler creates the library_status tool handler.
func makeLibraryStatusHandler(library Library) func(
	context.Context, *mcp.CallToolRequest, LibraryStatusInput,
) (*mcp.CallToolResult, LibraryStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LibraryStatusInput) (
		*mcp.CallToolResult, LibraryStatusOutput, error,
	) {
		books, err := library.ListBooks(ctx)
		if err != nil {
			return nil, LibraryStatusOutput{}, fmt.Errorf("failed to list books: %w", err)
		}
		if books == nil {
			books = []string{}
		}

		info, err := library.GetCollectionInfo(ctx)
		if err != nil {
			return nil, LibraryStatusOutput{}, fmt.Errorf("failed to get collection info: %w", err)
		}

		return nil, LibraryStatusOutput{
			Books:       books,
			TotalChunks: int(info.PointsCount),
		}, nil
	}
}
