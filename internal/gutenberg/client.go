// Package gutenberg is the book catalog client, backed by the Gutendex
// JSON API over the Project Gutenberg archive.
package gutenberg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBaseURL is the public Gutendex endpoint.
const DefaultBaseURL = "https://gutendex.com"

// maxResults caps how many catalog matches a search returns.
const maxResults = 10

var (
	// ErrNoTextFormat is returned when a book has no plain-text format.
	ErrNoTextFormat = errors.New("no plain text version available")

	// ErrNotFound is returned when the catalog has no such book.
	ErrNotFound = errors.New("book not found")
)

// Book is one catalog search result.
type Book struct {
	ID     int
	Title  string
	Author string
}

// Client talks to the Gutendex catalog. Search and download operations
// are idempotent reads and retry transient failures with exponential
// backoff; on exhausted retries or non-text content they return an
// error, never a partial result.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a catalog client. An empty baseURL selects the
// public Gutendex endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// gutendex response shapes, reduced to the fields we read.
type searchResponse struct {
	Results []bookRecord `json:"results"`
}

type bookRecord struct {
	ID      int               `json:"id"`
	Title   string            `json:"title"`
	Authors []authorRecord    `json:"authors"`
	Formats map[string]string `json:"formats"`
}

type authorRecord struct {
	Name string `json:"name"`
}

// Search returns up to ten catalog matches for the query, in the
// relevance order the catalog gives them.
func (c *Client) Search(ctx context.Context, query string) ([]Book, error) {
	endpoint := fmt.Sprintf("%s/books/?search=%s", c.baseURL, url.QueryEscape(query))

	body, _, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("catalog search for %q: %w", query, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("catalog search for %q: decoding response: %w", query, err)
	}

	books := make([]Book, 0, len(resp.Results))
	for _, rec := range resp.Results {
		if len(books) == maxResults {
			break
		}
		author := "Unknown"
		if len(rec.Authors) > 0 {
			author = rec.Authors[0].Name
		}
		books = append(books, Book{
			ID:     rec.ID,
			Title:  rec.Title,
			Author: author,
		})
	}

	return books, nil
}

// FetchText downloads the full plain text of a book. It resolves the
// book's format map first, preferring UTF-8 plain text, then downloads
// the content.
func (c *Client) FetchText(ctx context.Context, id int) (string, error) {
	endpoint := fmt.Sprintf("%s/books/%d", c.baseURL, id)

	body, _, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("fetching book %d: %w", id, err)
	}

	var rec bookRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return "", fmt.Errorf("fetching book %d: decoding response: %w", id, err)
	}

	textURL := pickTextFormat(rec.Formats)
	if textURL == "" {
		return "", fmt.Errorf("book %d: %w", id, ErrNoTextFormat)
	}

	text, contentType, err := c.getWithRetry(ctx, textURL)
	if err != nil {
		return "", fmt.Errorf("downloading book %d text: %w", id, err)
	}
	if contentType != "" && !strings.Contains(contentType, "text/plain") {
		return "", fmt.Errorf("book %d: unexpected content type %q: %w", id, contentType, ErrNoTextFormat)
	}

	return string(text), nil
}

// pickTextFormat selects a plain-text download URL from a Gutendex
// format map, preferring UTF-8.
func pickTextFormat(formats map[string]string) string {
	for _, key := range []string{
		"text/plain; charset=utf-8",
		"text/plain",
		"text/plain; charset=us-ascii",
	} {
		if u, ok := formats[key]; ok {
			return u
		}
	}
	return ""
}

// getWithRetry performs a GET with exponential backoff on transient
// failures. Server errors (5xx) and network errors retry; client errors
// are permanent. Returns the body and the Content-Type header.
func (c *Client) getWithRetry(ctx context.Context, endpoint string) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error: %s", resp.Status)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("request failed: %s", resp.Status))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, "", err
	}

	return body, contentType, nil
}
