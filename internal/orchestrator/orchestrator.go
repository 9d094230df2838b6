// Package orchestrator is the top-level state machine behind every
// conversation turn: it combines intent resolution, book availability,
// retrieval and prompt assembly into one response.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkwell/bookchat/internal/gutenberg"
	"github.com/inkwell/bookchat/internal/intent"
	"github.com/inkwell/bookchat/internal/prompt"
)

// Defaults for retrieval breadth and prompt-context size. The summary
// query retrieves broadly since the context is truncated anyway.
const (
	DefaultTopKSummary   = 10
	DefaultTopKQuestion  = 5
	DefaultContextBudget = 3000
)

// Catalog searches and downloads books from the external archive.
type Catalog interface {
	Search(ctx context.Context, query string) ([]gutenberg.Book, error)
	FetchText(ctx context.Context, id int) (string, error)
}

// Resolver classifies an utterance against the active book.
type Resolver interface {
	Resolve(ctx context.Context, utterance, currentTitle string) intent.Result
}

// Retriever is the read side of the embedding index. Both operations
// degrade to empty results instead of failing.
type Retriever interface {
	Query(ctx context.Context, title, query string, topK int) []string
	LastChunk(ctx context.Context, title string) string
}

// Ingestor makes a book queryable, idempotently.
type Ingestor interface {
	EnsureIngested(ctx context.Context, title, rawText string) error
}

// TextStore is the durable raw-text store keyed by title.
type TextStore interface {
	Has(title string) bool
	Read(title string) (string, error)
	Write(title, text string) error
}

// Completer is the single-turn language-model service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options tune retrieval and context assembly. Zero values select the
// defaults.
type Options struct {
	TopKSummary   int
	TopKQuestion  int
	ContextBudget int
}

// Orchestrator executes conversation turns. It is the sole writer of
// the active-book title: callers must persist exactly what Orchestrate
// returns and never infer the title themselves.
type Orchestrator struct {
	resolver Resolver
	catalog  Catalog
	books    TextStore
	ingestor Ingestor
	index    Retriever
	llm      Completer
	opts     Options
	logger   *slog.Logger
}

// New creates an Orchestrator. A nil logger selects slog.Default.
func New(resolver Resolver, catalog Catalog, books TextStore, ingestor Ingestor, index Retriever, llm Completer, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.TopKSummary <= 0 {
		opts.TopKSummary = DefaultTopKSummary
	}
	if opts.TopKQuestion <= 0 {
		opts.TopKQuestion = DefaultTopKQuestion
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultContextBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		resolver: resolver,
		catalog:  catalog,
		books:    books,
		ingestor: ingestor,
		index:    index,
		llm:      llm,
		opts:     opts,
		logger:   logger,
	}
}

// Orchestrate handles one utterance and returns the response together
// with the new active title. Every failure path returns the prior title
// unchanged; no turn can corrupt state for the next.
func (o *Orchestrator) Orchestrate(ctx context.Context, utterance, activeTitle string) (string, string) {
	res := o.resolver.Resolve(ctx, utterance, activeTitle)
	o.logger.Debug("resolved intent", "intent", res.Intent, "candidate_title", res.Title, "active_title", activeTitle)

	if res.Intent == intent.SwitchBook {
		if res.Title == "" {
			return "Please provide a book title to switch to.", activeTitle
		}
		return o.switchBook(ctx, res.Title, activeTitle)
	}

	if activeTitle == "" {
		return "Please specify which book you are asking about, or search for one first (e.g., 'tell me about Moby Dick').", activeTitle
	}

	switch res.Intent {
	case intent.Summary:
		return o.summarize(ctx, activeTitle), activeTitle
	case intent.Continuation:
		return o.continueStory(ctx, activeTitle), activeTitle
	case intent.Question:
		return o.answerQuestion(ctx, activeTitle, utterance), activeTitle
	default:
		return "Sorry, I didn't understand your request.", activeTitle
	}
}

// switchBook resolves a candidate title against the catalog, makes the
// first match available, and activates it. Any failure leaves the prior
// active book in place.
func (o *Orchestrator) switchBook(ctx context.Context, candidate, activeTitle string) (string, string) {
	books, err := o.catalog.Search(ctx, candidate)
	if err != nil {
		o.logger.Warn("catalog search failed", "query", candidate, "error", err)
		return fmt.Sprintf("Could not search for '%s' right now. Continuing with %s.", candidate, orNoBook(activeTitle)), activeTitle
	}
	if len(books) == 0 {
		return fmt.Sprintf("Cannot find book '%s' to switch to. Continuing with %s.", candidate, orNoBook(activeTitle)), activeTitle
	}

	verified, err := o.EnsureAvailable(ctx, books[0])
	if err != nil {
		o.logger.Warn("could not make book available", "title", books[0].Title, "error", err)
		return fmt.Sprintf("Could not make '%s' available. Continuing with %s. Try another title.", candidate, orNoBook(activeTitle)), activeTitle
	}

	return fmt.Sprintf("Switched to '%s'. How can I help you with this book?", verified), verified
}

// EnsureAvailable downloads the book text if it is not stored yet and
// guarantees it is ingested into the index. Returns the verified title
// the conversation should switch to.
func (o *Orchestrator) EnsureAvailable(ctx context.Context, book gutenberg.Book) (string, error) {
	var raw string
	if o.books.Has(book.Title) {
		text, err := o.books.Read(book.Title)
		if err != nil {
			return "", err
		}
		raw = text
	} else {
		o.logger.Info("downloading book", "title", book.Title, "id", book.ID)
		text, err := o.catalog.FetchText(ctx, book.ID)
		if err != nil {
			return "", fmt.Errorf("downloading %q: %w", book.Title, err)
		}
		if err := o.books.Write(book.Title, text); err != nil {
			return "", err
		}
		raw = text
	}

	if err := o.ingestor.EnsureIngested(ctx, book.Title, raw); err != nil {
		return "", err
	}

	return book.Title, nil
}

func (o *Orchestrator) summarize(ctx context.Context, title string) string {
	query := fmt.Sprintf("summarize the book %s", title)
	chunks := o.index.Query(ctx, title, query, o.opts.TopKSummary)

	context := o.assembleContext(chunks)
	if context == "" {
		return fmt.Sprintf("I don't have enough information to summarize '%s'. It might not be fully ingested yet.", title)
	}

	return o.complete(ctx, prompt.Summary(title, context))
}

func (o *Orchestrator) continueStory(ctx context.Context, title string) string {
	last := o.index.LastChunk(ctx, title)
	if last == "" {
		return fmt.Sprintf("I cannot find the last part of '%s' to continue the story.", title)
	}

	return o.complete(ctx, prompt.Continuation(title, last))
}

func (o *Orchestrator) answerQuestion(ctx context.Context, title, utterance string) string {
	chunks := o.index.Query(ctx, title, utterance, o.opts.TopKQuestion)

	context := o.assembleContext(chunks)
	if context == "" {
		return fmt.Sprintf("I couldn't find information related to that in '%s'. The book might not be fully ingested or the question is too specific.", title)
	}

	return o.complete(ctx, prompt.Question(title, context, utterance))
}

// assembleContext joins retrieved chunks, closest first, and truncates
// the result to the character budget. Truncating from the end keeps the
// most relevant content.
func (o *Orchestrator) assembleContext(chunks []string) string {
	joined := strings.TrimSpace(strings.Join(chunks, "\n\n"))
	if runes := []rune(joined); len(runes) > o.opts.ContextBudget {
		o.logger.Warn("retrieved context exceeds budget, truncating", "length", len(runes), "budget", o.opts.ContextBudget)
		joined = string(runes[:o.opts.ContextBudget])
	}
	return joined
}

func (o *Orchestrator) complete(ctx context.Context, p string) string {
	response, err := o.llm.Complete(ctx, p)
	if err != nil {
		o.logger.Warn("completion failed", "error", err)
		return "The language model is unavailable right now. Please try again."
	}
	return response
}

func orNoBook(title string) string {
	if title == "" {
		return "no book"
	}
	return fmt.Sprintf("'%s'", title)
}
