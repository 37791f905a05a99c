package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"docintel/internal/domain"
)

var (
	bucketDocuments  = []byte("documents")
	bucketEmbeddings = []byte("embeddings")
	bucketMeta       = []byte("meta")
)

// BoltStore keeps documents and embeddings in a single bbolt file. Embeddings
// are keyed by document ID, so each document has at most one.
type BoltStore struct {
	db        *bbolt.DB
	dimension int
}

type storedDocument struct {
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

type storedEmbedding struct {
	ID        string    `json:"id"`
	Vector    []float32 `json:"v"`
	CreatedAt time.Time `json:"created_at"`
}

func NewBoltStore(path string, dimension int) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt db: %w", domain.ErrPersistence, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocuments, bucketEmbeddings, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	s := &BoltStore{db: db, dimension: dimension}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) Dimension() int {
	return s.dimension
}

func (s *BoltStore) InsertDocument(ctx context.Context, content string, metadata map[string]string) (domain.Document, error) {
	doc := domain.Document{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  copyMetadata(metadata),
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(storedDocument{Content: doc.Content, Metadata: doc.Metadata, CreatedAt: doc.CreatedAt})
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(doc.ID), data)
	})
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: insert document: %w", domain.ErrPersistence, err)
	}
	return doc, nil
}

func (s *BoltStore) InsertEmbedding(ctx context.Context, documentID string, vector []float32) (domain.Embedding, error) {
	if err := domain.CheckDimension(vector, s.dimension); err != nil {
		return domain.Embedding{}, err
	}

	emb := domain.Embedding{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Vector:     append([]float32(nil), vector...),
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(storedEmbedding{ID: emb.ID, Vector: emb.Vector, CreatedAt: emb.CreatedAt})
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(documentID)
		if tx.Bucket(bucketDocuments).Get(key) == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
		}
		b := tx.Bucket(bucketEmbeddings)
		if b.Get(key) != nil {
			return fmt.Errorf("%w: document %s already has an embedding", domain.ErrPersistence, documentID)
		}
		return b.Put(key, data)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrPersistence) {
			return domain.Embedding{}, err
		}
		return domain.Embedding{}, fmt.Errorf("%w: insert embedding: %w", domain.ErrPersistence, err)
	}
	return emb, nil
}

func (s *BoltStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		var err error
		doc, err = decodeDocument(id, data)
		return err
	})
	return doc, err
}

func (s *BoltStore) GetEmbedding(ctx context.Context, documentID string) (*domain.Embedding, error) {
	var emb *domain.Embedding
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get([]byte(documentID))
		if data == nil {
			return nil
		}
		var stored storedEmbedding
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("%w: corrupt embedding for %s: %w", domain.ErrPersistence, documentID, err)
		}
		emb = &domain.Embedding{
			ID:         stored.ID,
			DocumentID: documentID,
			Vector:     stored.Vector,
			CreatedAt:  stored.CreatedAt,
		}
		return nil
	})
	return emb, err
}

func (s *BoltStore) FindByContentHash(ctx context.Context, hash string) (domain.Document, bool, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return domain.Document{}, false, err
	}
	for _, doc := range docs {
		if doc.Metadata[domain.MetaContentHash] == hash {
			return doc, true, nil
		}
	}
	return domain.Document{}, false, nil
}

func (s *BoltStore) MatchDocuments(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.Match, error) {
	if err := domain.CheckDimension(query, s.dimension); err != nil {
		return nil, err
	}

	var candidates []Candidate
	err := s.db.View(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		return tx.Bucket(bucketEmbeddings).ForEach(func(k, v []byte) error {
			var stored storedEmbedding
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt embedding for %s: %w", k, err)
			}
			data := docs.Get(k)
			if data == nil {
				return nil
			}
			doc, err := decodeDocument(string(k), data)
			if err != nil {
				return err
			}
			candidates = append(candidates, Candidate{Document: doc, Vector: stored.Vector})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	return RankMatches(query, candidates, threshold, limit)
}

func (s *BoltStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.listDocuments(func(tx *bbolt.Tx, id []byte) bool { return true })
}

func (s *BoltStore) ListOrphans(ctx context.Context) ([]domain.Document, error) {
	return s.listDocuments(func(tx *bbolt.Tx, id []byte) bool {
		return tx.Bucket(bucketEmbeddings).Get(id) == nil
	})
}

func (s *BoltStore) listDocuments(keep func(tx *bbolt.Tx, id []byte) bool) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			if !keep(tx, k) {
				return nil
			}
			doc, err := decodeDocument(string(k), v)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

func (s *BoltStore) DeleteDocument(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(id)
		docs := tx.Bucket(bucketDocuments)
		if docs.Get(key) == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		if err := tx.Bucket(bucketEmbeddings).Delete(key); err != nil {
			return err
		}
		return docs.Delete(key)
	})
}

func (s *BoltStore) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		embeddings := tx.Bucket(bucketEmbeddings)
		stats.Embeddings = countKeys(embeddings)
		return tx.Bucket(bucketDocuments).ForEach(func(k, _ []byte) error {
			stats.Documents++
			if embeddings.Get(k) == nil {
				stats.Orphans++
			}
			return nil
		})
	})
	return stats, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func countKeys(b *bbolt.Bucket) int {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

func decodeDocument(id string, data []byte) (domain.Document, error) {
	var stored storedDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return domain.Document{}, fmt.Errorf("%w: corrupt document %s: %w", domain.ErrPersistence, id, err)
	}
	if stored.Metadata == nil {
		stored.Metadata = map[string]string{}
	}
	return domain.Document{
		ID:        id,
		Content:   stored.Content,
		Metadata:  stored.Metadata,
		CreatedAt: stored.CreatedAt,
	}, nil
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
