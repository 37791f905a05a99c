package port

import (
	"context"

	"docintel/internal/domain"
)

// DocumentStore persists documents and their embeddings and answers
// similarity queries. Inserting a document and inserting its embedding are
// two separate writes; nothing makes them atomic.
type DocumentStore interface {
	// InsertDocument stores content and metadata, assigning ID and CreatedAt.
	InsertDocument(ctx context.Context, content string, metadata map[string]string) (domain.Document, error)

	// InsertEmbedding stores the vector for an existing document. It returns
	// ErrDimensionMismatch before writing when len(vector) != Dimension(),
	// and ErrNotFound when the document does not exist.
	InsertEmbedding(ctx context.Context, documentID string, vector []float32) (domain.Embedding, error)

	GetDocument(ctx context.Context, id string) (domain.Document, error)

	// GetEmbedding returns nil without error when the document has none.
	GetEmbedding(ctx context.Context, documentID string) (*domain.Embedding, error)

	// FindByContentHash looks up a document by its content_hash metadata.
	FindByContentHash(ctx context.Context, hash string) (domain.Document, bool, error)

	// MatchDocuments returns at most limit documents whose cosine similarity
	// to query is >= threshold, ordered by similarity descending.
	MatchDocuments(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.Match, error)

	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListOrphans returns documents that have no embedding.
	ListOrphans(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and its embedding.
	DeleteDocument(ctx context.Context, id string) error

	Stats(ctx context.Context) (domain.Stats, error)

	Dimension() int

	Close() error
}
