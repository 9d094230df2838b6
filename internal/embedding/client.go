// Package embedding generates vector embeddings for book text via OpenAI.
package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// Client wraps the OpenAI client shared by embedding and completion calls.
type Client struct {
	client *openai.Client
}

// NewClient creates the OpenAI client. It requires OPENAI_API_KEY in the
// environment and fails fast when it is missing.
func NewClient() (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// openai-go reads OPENAI_API_KEY from the environment itself.
	client := openai.NewClient()

	return &Client{client: &client}, nil
}

// Client exposes the underlying OpenAI client so the completion gateway
// can reuse the same connection and credentials.
func (c *Client) Client() *openai.Client {
	return c.client
}
