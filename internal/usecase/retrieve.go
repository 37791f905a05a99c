package usecase

import (
	"context"
	"fmt"

	"docintel/internal/domain"
	"docintel/internal/port"
)

// Retrieval parameters. Matches must reach MatchThreshold cosine similarity
// and at most MatchCount are returned.
const (
	MatchThreshold = 0.7
	MatchCount     = 10
)

// RetrieveUseCase handles semantic search.
type RetrieveUseCase struct {
	embedder port.Embedder
	store    port.DocumentStore
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(embedder port.Embedder, store port.DocumentStore) *RetrieveUseCase {
	return &RetrieveUseCase{
		embedder: embedder,
		store:    store,
	}
}

// Retrieve embeds query and returns the stored documents most similar to it.
// An empty result is not an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, apiKey string, query string) ([]domain.Match, error) {
	vector, err := u.embedder.Embed(ctx, apiKey, query)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckDimension(vector, u.store.Dimension()); err != nil {
		return nil, err
	}

	matches, err := u.store.MatchDocuments(ctx, vector, MatchThreshold, MatchCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}
	return matches, nil
}
