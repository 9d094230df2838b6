// Package storage persists embedded book chunks in Qdrant, partitioned
// by canonical title key.
package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStorage wraps the Qdrant client with connection management and
// health checks.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs a health check with retry on startup and fails fast if
// Qdrant is unreachable.
func NewQdrantStorage(host string, port int) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs a health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection ensures the books collection exists with proper
// configuration: 1536-dimension cosine vectors plus payload indexes on
// the partition and ordering fields. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return s.createPayloadIndexes(ctx)
}

// createPayloadIndexes indexes the fields every lookup filters on.
// Without these, title-scoped queries degrade to full scans.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "title",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field title: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "chunk_id",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field chunk_id: %w", err)
	}

	return nil
}

// ClearCollection deletes all points in the collection and recreates it.
// Admin operation for full re-indexing.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// PointID derives the deterministic point ID for a chunk of a book.
// Re-ingesting a book therefore overwrites the same points instead of
// duplicating them.
func PointID(titleKey string, seq int) string {
	name := titleKey + "#" + strconv.Itoa(seq)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// upsertWithRetry performs an upsert with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, exponentialBackoff)
}

// UpsertChunks stores a book's embedded chunks. titleKey is the
// canonical partition key; displayTitle is kept alongside for listing.
// Chunks are batched in groups of 100, and the deterministic IDs give
// the operation overwrite semantics.
func (s *QdrantStorage) UpsertChunks(ctx context.Context, titleKey, displayTitle string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if len(chunk.Embedding) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), VectorDimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(PointID(titleKey, chunk.Seq)),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"title":         titleKey,
					"display_title": displayTitle,
					"chunk_id":      chunk.Seq,
					"text":          chunk.Text,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// HasBook reports whether at least one chunk is stored for the title.
func (s *QdrantStorage) HasBook(ctx context.Context, titleKey string) (bool, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("title", titleKey),
			},
		},
		Limit: qdrant.PtrOf(uint32(1)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check for book %q: %w", titleKey, err)
	}

	return len(results) > 0, nil
}

// SearchChunks performs vector similarity search restricted to one
// book's partition. Returns up to limit chunks, closest first.
func (s *QdrantStorage) SearchChunks(ctx context.Context, titleKey string, embedding []float32, limit int) ([]StoredChunk, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), VectorDimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("title", titleKey),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	chunks := make([]StoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		chunks = append(chunks, StoredChunk{
			Seq:  int(payload["chunk_id"].GetIntegerValue()),
			Text: payload["text"].GetStringValue(),
		})
	}

	return chunks, nil
}

// AllChunks scrolls every stored chunk for a title. Entries whose
// chunk_id payload is missing or not an integer cannot be ordered and
// are skipped; the count of skipped entries is returned so the caller
// can log it.
func (s *QdrantStorage) AllChunks(ctx context.Context, titleKey string) ([]StoredChunk, int, error) {
	var (
		chunks  []StoredChunk
		skipped int
		offset  *qdrant.PointId
	)

	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{
					qdrant.NewMatch("title", titleKey),
				},
			},
			Limit:       qdrant.PtrOf(batchSize),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayloadInclude("chunk_id", "text"),
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scroll chunks: %w", err)
		}

		for _, result := range results {
			payload := result.Payload
			idVal, ok := payload["chunk_id"]
			if !ok {
				skipped++
				continue
			}
			if _, isInt := idVal.GetKind().(*qdrant.Value_IntegerValue); !isInt {
				skipped++
				continue
			}
			chunks = append(chunks, StoredChunk{
				Seq:  int(idVal.GetIntegerValue()),
				Text: payload["text"].GetStringValue(),
			})
		}

		if uint32(len(results)) < batchSize {
			break
		}

		offset = results[len(results)-1].Id
	}

	return chunks, skipped, nil
}

// ListBooks returns the display title of every ingested book, keyed and
// deduplicated by canonical title.
func (s *QdrantStorage) ListBooks(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var titles []string
	var offset *qdrant.PointId

	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("title", "display_title"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll books: %w", err)
		}

		for _, result := range results {
			payload := result.Payload
			key := payload["title"].GetStringValue()
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true

			display := payload["display_title"].GetStringValue()
			if display == "" {
				display = key
			}
			titles = append(titles, display)
		}

		if uint32(len(results)) < batchSize {
			break
		}

		offset = results[len(results)-1].Id
	}

	return titles, nil
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	PointsCount uint64
}

// GetCollectionInfo retrieves total stored chunk count across all books.
func (s *QdrantStorage) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &CollectionInfo{
		PointsCount: collection.GetPointsCount(),
	}, nil
}
