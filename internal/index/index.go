// Package index is the per-book embedding index: the one component every
// user-facing turn goes through.
//
// Query, Exists and LastChunk sit on the critical path of conversation
// turns, so they never propagate backend failures outward: embedding
// errors, connectivity errors and malformed metadata all degrade to an
// empty or neutral result with a logged warning. Upsert is the
// exception; ingestion must know when indexing failed.
package index

import (
	"context"
	"log/slog"

	"github.com/inkwell/bookchat/internal/bookkey"
	"github.com/inkwell/bookchat/internal/chunker"
	"github.com/inkwell/bookchat/internal/storage"
)

// Embedder produces one fixed-dimension vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the nearest-neighbor backend, partitioned by title key.
type Store interface {
	UpsertChunks(ctx context.Context, titleKey, displayTitle string, chunks []*storage.Chunk) error
	HasBook(ctx context.Context, titleKey string) (bool, error)
	SearchChunks(ctx context.Context, titleKey string, embedding []float32, limit int) ([]storage.StoredChunk, error)
	AllChunks(ctx context.Context, titleKey string) ([]storage.StoredChunk, int, error)
}

// Index combines the embedding function with the vector store.
type Index struct {
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

// New creates an Index. A nil logger selects slog.Default.
func New(embedder Embedder, store Store, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Upsert embeds the chunks and stores them under the title's partition.
// Point IDs are deterministic in (title, seq), so calling this again for
// the same book overwrites rather than duplicates.
func (ix *Index) Upsert(ctx context.Context, title string, chunks []chunker.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	stored := make([]*storage.Chunk, len(chunks))
	for i, c := range chunks {
		stored[i] = &storage.Chunk{
			Seq:       c.Index,
			Text:      c.Text,
			Embedding: vectors[i],
		}
	}

	return ix.store.UpsertChunks(ctx, bookkey.Normalize(title), title, stored)
}

// Exists reports whether any chunk is indexed for the title. Backend
// errors degrade to false; the worst case is redundant ingestion work,
// which the deterministic point IDs make harmless.
func (ix *Index) Exists(ctx context.Context, title string) bool {
	ok, err := ix.store.HasBook(ctx, bookkey.Normalize(title))
	if err != nil {
		ix.logger.Warn("existence check failed, assuming not ingested", "title", title, "error", err)
		return false
	}
	return ok
}

// Query embeds the query text and returns up to topK chunk texts from
// the title's partition, closest first. Any failure returns an empty
// slice, never an error.
func (ix *Index) Query(ctx context.Context, title, query string, topK int) []string {
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		ix.logger.Warn("query embedding failed", "title", title, "error", err)
		return nil
	}

	results, err := ix.store.SearchChunks(ctx, bookkey.Normalize(title), vectors[0], topK)
	if err != nil {
		ix.logger.Warn("similarity search failed", "title", title, "error", err)
		return nil
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}
	return texts
}

// LastChunk returns the text of the chunk with the highest sequence
// index for the title, or "" when the partition is empty or the lookup
// fails. Entries with malformed chunk metadata are skipped with a
// warning.
func (ix *Index) LastChunk(ctx context.Context, title string) string {
	chunks, skipped, err := ix.store.AllChunks(ctx, bookkey.Normalize(title))
	if err != nil {
		ix.logger.Warn("last-chunk scan failed", "title", title, "error", err)
		return ""
	}
	if skipped > 0 {
		ix.logger.Warn("skipped chunks with malformed chunk_id metadata", "title", title, "skipped", skipped)
	}

	maxSeq := -1
	var last string
	for _, c := range chunks {
		if c.Seq > maxSeq {
			maxSeq = c.Seq
			last = c.Text
		}
	}
	return last
}
