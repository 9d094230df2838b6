package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/bookchat/internal/bookkey"
	"github.com/inkwell/bookchat/internal/gutenberg"
	"github.com/inkwell/bookchat/internal/intent"
)

// fixedResolver returns a canned intent result, standing in for the
// model-backed resolver.
type fixedResolver struct {
	result intent.Result
}

func (f *fixedResolver) Resolve(_ context.Context, _, _ string) intent.Result {
	return f.result
}

type fakeCatalog struct {
	books     []gutenberg.Book
	searchErr error
	texts     map[int]string
	fetchErr  error
}

func (f *fakeCatalog) Search(_ context.Context, _ string) ([]gutenberg.Book, error) {
	return f.books, f.searchErr
}

func (f *fakeCatalog) FetchText(_ context.Context, id int) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return f.texts[id], nil
}

type memTextStore struct {
	texts map[string]string
}

func newMemTextStore() *memTextStore {
	return &memTextStore{texts: make(map[string]string)}
}

func (m *memTextStore) Has(title string) bool {
	_, ok := m.texts[bookkey.Normalize(title)]
	return ok
}

func (m *memTextStore) Read(title string) (string, error) {
	text, ok := m.texts[bookkey.Normalize(title)]
	if !ok {
		return "", errors.New("not stored")
	}
	return text, nil
}

func (m *memTextStore) Write(title, text string) error {
	m.texts[bookkey.Normalize(title)] = text
	return nil
}

type fakeIngestor struct {
	ingested map[string]bool
	err      error
}

func (f *fakeIngestor) EnsureIngested(_ context.Context, title, _ string) error {
	if f.err != nil {
		return f.err
	}
	if f.ingested == nil {
		f.ingested = make(map[string]bool)
	}
	f.ingested[bookkey.Normalize(title)] = true
	return nil
}

type fakeRetriever struct {
	chunks map[string][]string
	last   map[string]string
}

func (f *fakeRetriever) Query(_ context.Context, title, _ string, _ int) []string {
	return f.chunks[bookkey.Normalize(title)]
}

func (f *fakeRetriever) LastChunk(_ context.Context, title string) string {
	return f.last[bookkey.Normalize(title)]
}

// echoCompleter returns the prompt it was given, so tests can assert on
// prompt contents.
type echoCompleter struct {
	err error
}

func (e *echoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return prompt, nil
}

type fixture struct {
	resolver  *fixedResolver
	catalog   *fakeCatalog
	store     *memTextStore
	ingestor  *fakeIngestor
	retriever *fakeRetriever
	llm       *echoCompleter
}

func newFixture() *fixture {
	return &fixture{
		resolver:  &fixedResolver{},
		catalog:   &fakeCatalog{texts: make(map[int]string)},
		store:     newMemTextStore(),
		ingestor:  &fakeIngestor{},
		retriever: &fakeRetriever{chunks: make(map[string][]string), last: make(map[string]string)},
		llm:       &echoCompleter{},
	}
}

func (f *fixture) orchestrator(opts Options) *Orchestrator {
	return New(f.resolver, f.catalog, f.store, f.ingestor, f.retriever, f.llm, opts, nil)
}

func TestOrchestrate_NoActiveBookRefusesTasks(t *testing.T) {
	for _, in := range []intent.Intent{intent.Summary, intent.Question, intent.Continuation} {
		f := newFixture()
		f.resolver.result = intent.Result{Intent: in}
		o := f.orchestrator(Options{})

		response, title := o.Orchestrate(context.Background(), "summarize", "")
		assert.Contains(t, response, "specify which book", "intent %s", in)
		assert.Equal(t, "", title)
	}
}

func TestOrchestrate_Continuation(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Continuation}
	f.retriever.last["moby dick"] = "Call me Ishmael."
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "continue the story", "Moby Dick")
	assert.Contains(t, response, `"""Call me Ishmael."""`, "continuation prompt must embed the last chunk verbatim")
	assert.Equal(t, "Moby Dick", title)
}

func TestOrchestrate_ContinuationWithoutChunks(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Continuation}
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "continue", "Moby Dick")
	assert.Contains(t, response, "cannot find the last part")
	assert.Equal(t, "Moby Dick", title)
}

func TestOrchestrate_SummaryRetrievalMiss(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Summary}
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "summarize", "Moby Dick")
	assert.Contains(t, response, "don't have enough information")
	assert.Equal(t, "Moby Dick", title)
}

func TestOrchestrate_SummaryBuildsPromptFromChunks(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Summary}
	f.retriever.chunks["moby dick"] = []string{"chunk one", "chunk two"}
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "summarize", "Moby Dick")
	assert.Contains(t, response, "chunk one\n\nchunk two")
	assert.Contains(t, response, "Moby Dick")
	assert.Equal(t, "Moby Dick", title)
}

func TestOrchestrate_QuestionUsesUtteranceAsQuery(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Question}
	f.retriever.chunks["dracula"] = []string{"The castle stood upon the edge of a terrible precipice."}
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "where is the castle?", "Dracula")
	assert.Contains(t, response, "where is the castle?")
	assert.Contains(t, response, "terrible precipice")
	assert.Equal(t, "Dracula", title)
}

// Context assembled from chunks beyond the budget is truncated to
// exactly the budget, keeping the earliest-ranked content.
func TestOrchestrate_ContextTruncation(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Summary}
	chunks := []string{
		strings.Repeat("a", 1500),
		strings.Repeat("b", 1000),
		strings.Repeat("c", 1000),
	}
	f.retriever.chunks["moby dick"] = chunks
	o := f.orchestrator(Options{ContextBudget: 3000})

	response, _ := o.Orchestrate(context.Background(), "summarize", "Moby Dick")

	full := strings.Join(chunks, "\n\n")
	want := full[:3000]
	assert.Contains(t, response, want)
	assert.NotContains(t, response, full, "context beyond the budget must be dropped")
}

func TestOrchestrate_UnknownIntent(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Unknown}
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "???", "Moby Dick")
	assert.Contains(t, response, "didn't understand")
	assert.Equal(t, "Moby Dick", title)
}

func TestOrchestrate_SwitchBook(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.SwitchBook, Title: "Frankenstein"}
	f.catalog.books = []gutenberg.Book{
		{ID: 84, Title: "Frankenstein; Or, The Modern Prometheus", Author: "Shelley, Mary"},
		{ID: 85, Title: "Frankenstein (other edition)", Author: "Shelley, Mary"},
	}
	f.catalog.texts[84] = "raw frankenstein text"
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "tell me about Frankenstein", "Dracula")
	assert.Contains(t, response, "Switched to 'Frankenstein; Or, The Modern Prometheus'")
	assert.Equal(t, "Frankenstein; Or, The Modern Prometheus", title, "first catalog match wins")
	assert.True(t, f.ingestor.ingested["frankenstein or the modern prometheus"])
	assert.True(t, f.store.Has("Frankenstein; Or, The Modern Prometheus"), "downloaded text must be persisted")
}

func TestOrchestrate_SwitchBookWithoutTitle(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.SwitchBook}
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "switch books", "Dracula")
	assert.Contains(t, response, "provide a book title")
	assert.Equal(t, "Dracula", title)
}

func TestOrchestrate_SwitchBookFailuresKeepState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"search error", func(f *fixture) { f.catalog.searchErr = errors.New("network down") }},
		{"no results", func(f *fixture) { f.catalog.books = nil }},
		{"download fails", func(f *fixture) {
			f.catalog.books = []gutenberg.Book{{ID: 84, Title: "Frankenstein"}}
			f.catalog.fetchErr = errors.New("timeout")
		}},
		{"ingestion fails", func(f *fixture) {
			f.catalog.books = []gutenberg.Book{{ID: 84, Title: "Frankenstein"}}
			f.catalog.texts[84] = "raw text"
			f.ingestor.err = errors.New("embedding backend down")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.resolver.result = intent.Result{Intent: intent.SwitchBook, Title: "Frankenstein"}
			tt.setup(f)
			o := f.orchestrator(Options{})

			_, title := o.Orchestrate(context.Background(), "read Frankenstein", "Dracula")
			assert.Equal(t, "Dracula", title, "failed switch must not change the active book")
		})
	}
}

func TestOrchestrate_CompletionFailureKeepsState(t *testing.T) {
	f := newFixture()
	f.resolver.result = intent.Result{Intent: intent.Summary}
	f.retriever.chunks["moby dick"] = []string{"some context"}
	f.llm.err = errors.New("model offline")
	o := f.orchestrator(Options{})

	response, title := o.Orchestrate(context.Background(), "summarize", "Moby Dick")
	assert.Contains(t, response, "unavailable")
	assert.Equal(t, "Moby Dick", title)
}

func TestEnsureAvailable_SkipsDownloadWhenStored(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Write("Moby Dick", "stored text"))
	f.catalog.fetchErr = errors.New("must not be called")
	o := f.orchestrator(Options{})

	title, err := o.EnsureAvailable(context.Background(), gutenberg.Book{ID: 2701, Title: "Moby Dick"})
	require.NoError(t, err)
	assert.Equal(t, "Moby Dick", title)
	assert.True(t, f.ingestor.ingested["moby dick"])
}
