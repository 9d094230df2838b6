// Package ingest turns raw book text into indexed chunks, exactly once
// per title.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/inkwell/bookchat/internal/bookkey"
	"github.com/inkwell/bookchat/internal/chunker"
	"github.com/inkwell/bookchat/internal/normalize"
)

// ErrNothingToIngest is returned when the normalized text is empty or
// produces zero chunks.
var ErrNothingToIngest = errors.New("no text chunks to ingest")

// Index is the slice of the embedding index ingestion needs.
type Index interface {
	Exists(ctx context.Context, title string) bool
	Upsert(ctx context.Context, title string, chunks []chunker.Chunk) error
}

// Coordinator guarantees a book is normalized, chunked, embedded and
// present in the index exactly once. Re-ingestion of an already-indexed
// title is a no-op, checked before any embedding work is done.
type Coordinator struct {
	index   Index
	chunker *chunker.Chunker
	group   singleflight.Group
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator. A nil logger selects
// slog.Default.
func NewCoordinator(index Index, ck *chunker.Chunker, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		index:   index,
		chunker: ck,
		logger:  logger,
	}
}

// EnsureIngested makes the book queryable. Returns nil when the book is
// already indexed or was ingested successfully, ErrNothingToIngest when
// the text normalizes to nothing, and the underlying error when
// embedding or storage fails.
//
// Concurrent calls for the same title are collapsed into one flight so
// the embedding work runs once. The existence check is not atomic with
// the upsert, but the deterministic chunk IDs make a duplicate pass
// overwrite rather than duplicate.
func (c *Coordinator) EnsureIngested(ctx context.Context, title, rawText string) error {
	key := bookkey.Normalize(title)

	_, err, _ := c.group.Do(key, func() (any, error) {
		return nil, c.ingest(ctx, title, rawText)
	})
	return err
}

func (c *Coordinator) ingest(ctx context.Context, title, rawText string) error {
	if c.index.Exists(ctx, title) {
		c.logger.Debug("book already ingested, skipping", "title", title)
		return nil
	}

	clean := normalize.StripBoilerplate(rawText)
	if strings.TrimSpace(clean) == "" {
		return fmt.Errorf("%w: %q normalized to empty text", ErrNothingToIngest, title)
	}

	chunks := c.chunker.Split(clean)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %q produced zero chunks", ErrNothingToIngest, title)
	}

	start := time.Now()
	if err := c.index.Upsert(ctx, title, chunks); err != nil {
		return fmt.Errorf("indexing %q: %w", title, err)
	}

	c.logger.Info("book ingested", "title", title, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}
