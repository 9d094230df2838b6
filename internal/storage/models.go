package storage

// Chunk is one embedded window of a book held in the index.
// Seq is dense and zero-based in text order; together with the book's
// canonical title key it forms the chunk's deterministic point ID.
type Chunk struct {
	Seq       int       // Position in the book (0, 1, 2...)
	Text      string    // Window text content
	Embedding []float32 // 1536-dim vector (text-embedding-3-small)
}

// StoredChunk is a chunk read back from the index.
type StoredChunk struct {
	Seq  int
	Text string
}

// CollectionName is the single Qdrant collection holding every book.
// Books are partitioned inside it by the "title" payload field.
const CollectionName = "books"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
