// Package llm provides the single-turn text completion gateway.
//
// The model holds no server-side memory: every call carries its full
// context in the prompt, and the caller owns all conversation state.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = openai.ChatModelGPT4oMini

	// DefaultTimeout bounds one completion call. Long generations run
	// for seconds; a hung call must not stall the conversation turn
	// indefinitely.
	DefaultTimeout = 60 * time.Second

	// maxCompletionTokens caps generation length. Summaries and story
	// continuations fit comfortably; anything longer is runaway output.
	maxCompletionTokens = 500
)

// Gateway is the language-model completion service.
type Gateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewGateway creates a Gateway around an existing OpenAI client.
// Empty model and zero timeout select the defaults.
func NewGateway(client *openai.Client, model string, timeout time.Duration) *Gateway {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

// Complete sends a single-turn prompt and returns the trimmed response
// text. A timeout is surfaced as an error, never as an empty result.
func (g *Gateway) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:               g.model,
		Temperature:         openai.Float(0.7),
		MaxCompletionTokens: openai.Int(maxCompletionTokens),
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("completion timed out after %s: %w", g.timeout, err)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
