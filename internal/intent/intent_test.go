package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCompleter struct {
	response string
	err      error
	prompt   string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func resolve(t *testing.T, response, utterance, currentTitle string) Result {
	t.Helper()
	r := NewResolver(&stubCompleter{response: response}, nil)
	return r.Resolve(context.Background(), utterance, currentTitle)
}

// The model's intent label is overridden whenever a clearly different
// title is mentioned.
func TestResolve_TitleMismatchForcesSwitch(t *testing.T) {
	got := resolve(t, `{"intent":"question","title":"Frankenstein"}`, "tell me about Frankenstein", "Dracula")
	assert.Equal(t, Result{Intent: SwitchBook, Title: "Frankenstein"}, got)
}

// A mention of the already-active book must not trigger a redundant
// switch; the candidate title is discarded.
func TestResolve_SameBookSuppressesTitle(t *testing.T) {
	got := resolve(t, `{"intent":"question","title":"Christmas Carol"}`, "who is scrooge in Christmas Carol", "A Christmas Carol")
	assert.Equal(t, Result{Intent: Question, Title: ""}, got)
}

func TestResolve_SameBookExplicitSwitchKeepsTitle(t *testing.T) {
	got := resolve(t, `{"intent":"switch_book","title":"A Christmas Carol"}`, "switch to A Christmas Carol", "Christmas Carol")
	assert.Equal(t, Result{Intent: SwitchBook, Title: "A Christmas Carol"}, got)
}

func TestResolve_NoActiveBookMentionIsSwitch(t *testing.T) {
	got := resolve(t, `{"intent":"question","title":"Pride and Prejudice"}`, "who are the characters in Pride and Prejudice?", "")
	assert.Equal(t, Result{Intent: SwitchBook, Title: "Pride and Prejudice"}, got)
}

func TestResolve_SwitchWithoutTitle(t *testing.T) {
	got := resolve(t, `{"intent":"switch_book","title":null}`, "let's read something else", "Dracula")
	assert.Equal(t, Result{Intent: SwitchBook, Title: ""}, got)
}

func TestResolve_PlainIntentsPassThrough(t *testing.T) {
	tests := []struct {
		response string
		want     Intent
	}{
		{`{"intent":"summary","title":null}`, Summary},
		{`{"intent":"continuation","title":null}`, Continuation},
		{`{"intent":"question","title":null}`, Question},
	}
	for _, tt := range tests {
		got := resolve(t, tt.response, "do the thing", "Dracula")
		assert.Equal(t, Result{Intent: tt.want, Title: ""}, got)
	}
}

// Parse must tolerate prose around the JSON object.
func TestResolve_JSONEmbeddedInProse(t *testing.T) {
	response := "Sure! Here is the classification:\n{\"intent\":\"summary\",\"title\":null}\nLet me know if you need more."
	got := resolve(t, response, "summarize", "Dracula")
	assert.Equal(t, Result{Intent: Summary, Title: ""}, got)
}

func TestResolve_ParseFailureFallsBackToQuestion(t *testing.T) {
	tests := []string{
		"I could not classify that.",
		"{not valid json}",
		`{"intent":"interpretive_dance","title":null}`,
		"",
	}
	for _, response := range tests {
		got := resolve(t, response, "hmm", "Dracula")
		assert.Equal(t, Result{Intent: Question, Title: ""}, got, "response: %q", response)
	}
}

func TestResolve_CompleterErrorFallsBackToQuestion(t *testing.T) {
	r := NewResolver(&stubCompleter{err: errors.New("model offline")}, nil)
	got := r.Resolve(context.Background(), "summarize", "Dracula")
	assert.Equal(t, Result{Intent: Question, Title: ""}, got)
}

func TestResolve_PromptCarriesUtteranceAndActiveTitle(t *testing.T) {
	stub := &stubCompleter{response: `{"intent":"question","title":null}`}
	r := NewResolver(stub, nil)

	r.Resolve(context.Background(), "who is the count?", "Dracula")
	assert.Contains(t, stub.prompt, `"who is the count?"`)
	assert.Contains(t, stub.prompt, `"Dracula"`)

	r.Resolve(context.Background(), "summarize", "")
	assert.Contains(t, stub.prompt, `"None"`)
}
