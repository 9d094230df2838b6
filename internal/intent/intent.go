// Package intent classifies what the user wants from a chat utterance
// and whether they are switching to a different book.
//
// The language model proposes an intent and a candidate title, but its
// output is a hint, not ground truth: a deterministic correction pass
// decides whether a mentioned title is actually a new book. A cheap
// string-containment check is strictly more reliable for that one
// decision than the model's own label, so it takes precedence.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkwell/bookchat/internal/bookkey"
)

// Intent is the action the user is asking for.
type Intent string

const (
	Question     Intent = "question"
	Summary      Intent = "summary"
	Continuation Intent = "continuation"
	SwitchBook   Intent = "switch_book"
	Unknown      Intent = "unknown"
)

// Result is the per-turn classification outcome. Title is the candidate
// new book title, empty unless the user mentioned a book other than the
// active one (or explicitly asked to switch).
type Result struct {
	Intent Intent
	Title  string
}

// Completer is the single-turn language-model service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Resolver extracts intent and candidate title from utterances.
type Resolver struct {
	llm    Completer
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger selects slog.Default.
func NewResolver(llm Completer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{llm: llm, logger: logger}
}

// modelResult mirrors the JSON shape the classification prompt requests.
type modelResult struct {
	Intent string  `json:"intent"`
	Title  *string `json:"title"`
}

// Resolve classifies the utterance given the currently active title
// (empty for none). It never fails: any model or parse problem falls
// back to a plain question with no candidate title.
func (r *Resolver) Resolve(ctx context.Context, utterance, currentTitle string) Result {
	raw, err := r.llm.Complete(ctx, classificationPrompt(utterance, currentTitle))
	if err != nil {
		r.logger.Warn("intent classification call failed, defaulting to question", "error", err)
		return Result{Intent: Question}
	}

	parsed := parseModelResult(raw, r.logger)
	return correct(parsed, currentTitle)
}

// parseModelResult extracts the JSON object from a model response,
// tolerating prose around it: only the span from the first '{' to the
// last '}' is parsed. Any failure, including an intent outside the four
// valid values, falls back to question with no title.
func parseModelResult(raw string, logger *slog.Logger) Result {
	fallback := Result{Intent: Question}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		logger.Warn("model response contains no JSON object", "response", raw)
		return fallback
	}

	var mr modelResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &mr); err != nil {
		logger.Warn("could not parse model response as JSON", "response", raw, "error", err)
		return fallback
	}

	switch Intent(mr.Intent) {
	case Question, Summary, Continuation, SwitchBook:
	default:
		logger.Warn("model returned invalid intent, defaulting to question", "intent", mr.Intent)
		return fallback
	}

	result := Result{Intent: Intent(mr.Intent)}
	if mr.Title != nil {
		result.Title = strings.TrimSpace(*mr.Title)
	}
	return result
}

// correct applies the deterministic override pass to the model's hint.
func correct(res Result, currentTitle string) Result {
	if res.Title != "" {
		sameBook := bookkey.Same(res.Title, currentTitle)

		// A clearly different title always means a switch, whatever
		// the model labeled the utterance.
		if !sameBook {
			res.Intent = SwitchBook
		}

		// A mention of the already-active book must not trigger a
		// redundant switch.
		if sameBook && res.Intent != SwitchBook {
			res.Title = ""
		}
	}

	// switch_book with no surviving title: the caller must ask the
	// user for one.
	return res
}

// classificationPrompt instructs the model to return {intent, title}
// JSON for the utterance, given the active book.
func classificationPrompt(utterance, currentTitle string) string {
	current := currentTitle
	if current == "" {
		current = "None"
	}

	return fmt.Sprintf(`You are a helpful assistant that extracts the user's intent and, if a new book is explicitly mentioned, the book title they are asking about.

**Strict Rule:** If the user clearly mentions a book title that is *different* from the Current active book, the intent MUST be "switch_book", and the title MUST be the new book's title. Otherwise, the intent should be based on the action requested (question, summary, continuation).

User input: %q
Current active book: %q

Return a JSON object with two fields:
- intent: one of ["question", "summary", "continuation", "switch_book"]
- title: the book title mentioned by the user (string), or null if no *new* book title is explicitly mentioned.

Examples:
Input: "Who are the characters in Pride and Prejudice?"
Current active book: "None"
Output: { "intent": "question", "title": "Pride and Prejudice" }

Input: "Can you summarize Crime and Punishment?"
Current active book: "A Tale of Two Cities"
Output: { "intent": "switch_book", "title": "Crime and Punishment" }

Input: "What happens next in Dracula?"
Current active book: "Dracula"
Output: { "intent": "continuation", "title": null }

Input: "Tell me about Moby Dick instead."
Current active book: "Pride and Prejudice"
Output: { "intent": "switch_book", "title": "Moby Dick" }

Input: "summarize"
Current active book: "Frankenstein"
Output: { "intent": "summary", "title": null }

Input: "who is scrooge"
Current active book: "A Christmas Carol"
Output: { "intent": "question", "title": null }

Now analyze the user input and provide only the JSON output.`, utterance, current)
}
