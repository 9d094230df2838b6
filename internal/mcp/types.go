// Package mcp exposes the book companion as MCP tools over stdio.
package mcp

// SearchBooksInput defines the input for the search_books tool.
type SearchBooksInput struct {
	// Query is the title or author to search the catalog for.
	Query string `json:"query" jsonschema:"required,description=Book title or author to search the public-domain catalog for"`
}

// BookResult is one catalog match.
type BookResult struct {
	// Title is the catalog title of the book.
	Title string `json:"title"`
	// Author is the primary author name.
	Author string `json:"author"`
	// ID is the catalog identifier used to download the text.
	ID int `json:"id"`
}

// SearchBooksOutput contains catalog search results in relevance order.
type SearchBooksOutput struct {
	// Results is the ranked list of matches.
	Results []BookResult `json:"results"`
	// Message provides informational context when no match is found.
	Message string `json:"message,omitempty"`
}

// OpenBookInput defines the input for the open_book tool.
type OpenBookInput struct {
	// Title is the book to make available for conversation.
	Title string `json:"title" jsonschema:"required,description=Title of the book to download and index"`
}

// OpenBookOutput reports the outcome of opening a book.
type OpenBookOutput struct {
	// Title is the verified catalog title that became active.
	Title string `json:"title,omitempty"`
	// Opened indicates whether the book is ready for questions.
	Opened bool `json:"opened"`
	// Message explains a failure to open the book.
	Message string `json:"message,omitempty"`
}

// ChatInput defines the input for the chat tool.
type ChatInput struct {
	// Utterance is the user's free-form request.
	Utterance string `json:"utterance" jsonschema:"required,description=The user's chat message"`
	// ActiveTitle is the currently active book, empty for none. Pass
	// back the active_title from the previous chat result.
	ActiveTitle string `json:"active_title,omitempty" jsonschema:"description=The currently active book title from the previous turn"`
}

// ChatOutput is one completed conversation turn.
type ChatOutput struct {
	// Response is the assistant's reply.
	Response string `json:"response"`
	// ActiveTitle is the book the conversation is now scoped to.
	// Callers must persist exactly this value for the next turn.
	ActiveTitle string `json:"active_title,omitempty"`
}

// LibraryStatusInput defines the input for the library_status tool.
// The tool takes no parameters.
type LibraryStatusInput struct{}

// LibraryStatusOutput lists the ingested library.
type LibraryStatusOutput struct {
	// Books is the display title of every ingested book.
	Books []string `json:"books"`
	// TotalChunks is the number of indexed chunks across all books.
	TotalChunks int `json:"total_chunks"`
}
