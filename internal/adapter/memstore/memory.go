package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docintel/internal/adapter/store"
	"docintel/internal/domain"
)

// MemoryStore is a process-local DocumentStore. Nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	dimension  int
	docs       map[string]domain.Document
	order      []string
	embeddings map[string]domain.Embedding
}

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension:  dimension,
		docs:       make(map[string]domain.Document),
		embeddings: make(map[string]domain.Embedding),
	}
}

func (s *MemoryStore) Dimension() int {
	return s.dimension
}

func (s *MemoryStore) InsertDocument(ctx context.Context, content string, metadata map[string]string) (domain.Document, error) {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	doc := domain.Document{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.order = append(s.order, doc.ID)
	return doc, nil
}

func (s *MemoryStore) InsertEmbedding(ctx context.Context, documentID string, vector []float32) (domain.Embedding, error) {
	if err := domain.CheckDimension(vector, s.dimension); err != nil {
		return domain.Embedding{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[documentID]; !ok {
		return domain.Embedding{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}
	if _, ok := s.embeddings[documentID]; ok {
		return domain.Embedding{}, fmt.Errorf("%w: document %s already has an embedding", domain.ErrPersistence, documentID)
	}

	emb := domain.Embedding{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Vector:     append([]float32(nil), vector...),
		CreatedAt:  time.Now().UTC(),
	}
	s.embeddings[documentID] = emb
	return emb, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

func (s *MemoryStore) GetEmbedding(ctx context.Context, documentID string) (*domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emb, ok := s.embeddings[documentID]
	if !ok {
		return nil, nil
	}
	return &emb, nil
}

func (s *MemoryStore) FindByContentHash(ctx context.Context, hash string) (domain.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if doc := s.docs[id]; doc.Metadata[domain.MetaContentHash] == hash {
			return doc, true, nil
		}
	}
	return domain.Document{}, false, nil
}

func (s *MemoryStore) MatchDocuments(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.Match, error) {
	if err := domain.CheckDimension(query, s.dimension); err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]store.Candidate, 0, len(s.embeddings))
	for _, id := range s.order {
		if emb, ok := s.embeddings[id]; ok {
			candidates = append(candidates, store.Candidate{Document: s.docs[id], Vector: emb.Vector})
		}
	}
	s.mu.RUnlock()

	return store.RankMatches(query, candidates, threshold, limit)
}

func (s *MemoryStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.docs[id])
	}
	return docs, nil
}

func (s *MemoryStore) ListOrphans(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for _, id := range s.order {
		if _, ok := s.embeddings[id]; !ok {
			docs = append(docs, s.docs[id])
		}
	}
	return docs, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	delete(s.docs, id)
	delete(s.embeddings, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Stats{
		Documents:  len(s.docs),
		Embeddings: len(s.embeddings),
		Orphans:    len(s.docs) - len(s.embeddings),
	}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
