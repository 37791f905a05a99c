package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"docintel/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS document_embeddings (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL UNIQUE REFERENCES documents(id) ON DELETE CASCADE,
	embedding   BLOB NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteStore is the single-file SQL backend. Similarity is computed in
// process over all stored vectors.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

func NewSQLiteStore(ctx context.Context, path string, dimension int) (*SQLiteStore, error) {
	dsn := "file:" + path + "?" + url.Values{"_pragma": {"foreign_keys(1)", "busy_timeout(5000)"}}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite db: %w", domain.ErrPersistence, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, dimension: dimension}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("%w: create schema: %w", domain.ErrPersistence, err)
	}

	info, err := s.SchemaInfo(ctx)
	if err != nil {
		return err
	}
	if info.Dimension != 0 && info.Dimension != s.dimension {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_embeddings`).Scan(&n); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		if n > 0 {
			return fmt.Errorf("%w: store holds %d-dimensional embeddings, configured dimension is %d",
				domain.ErrDimensionMismatch, info.Dimension, s.dimension)
		}
	}

	for k, v := range map[string]string{
		"schema_version": strconv.Itoa(CurrentSchemaVersion),
		"dimension":      strconv.Itoa(s.dimension),
	} {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO store_meta(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v)
		if err != nil {
			return fmt.Errorf("%w: write schema info: %w", domain.ErrPersistence, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SchemaInfo(ctx context.Context) (SchemaInfo, error) {
	info := SchemaInfo{Backend: "sqlite"}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM store_meta`)
	if err != nil {
		return info, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return info, err
		}
		switch k {
		case "schema_version":
			info.Version, _ = strconv.Atoi(v)
		case "dimension":
			info.Dimension, _ = strconv.Atoi(v)
		}
	}
	return info, rows.Err()
}

func (s *SQLiteStore) Dimension() int {
	return s.dimension
}

func (s *SQLiteStore) InsertDocument(ctx context.Context, content string, metadata map[string]string) (domain.Document, error) {
	doc := domain.Document{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  copyMetadata(metadata),
		CreatedAt: time.Now().UTC(),
	}
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents(id, content, metadata, created_at) VALUES(?, ?, ?, ?)`,
		doc.ID, doc.Content, string(meta), doc.CreatedAt.Format(sqliteTimeLayout))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: insert document: %w", domain.ErrPersistence, err)
	}
	return doc, nil
}

func (s *SQLiteStore) InsertEmbedding(ctx context.Context, documentID string, vector []float32) (domain.Embedding, error) {
	if err := domain.CheckDimension(vector, s.dimension); err != nil {
		return domain.Embedding{}, err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, documentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Embedding{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	emb := domain.Embedding{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Vector:     append([]float32(nil), vector...),
		CreatedAt:  time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO document_embeddings(id, document_id, embedding, created_at) VALUES(?, ?, ?, ?)`,
		emb.ID, emb.DocumentID, encodeVector(emb.Vector), emb.CreatedAt.Format(sqliteTimeLayout))
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("%w: insert embedding: %w", domain.ErrPersistence, err)
	}
	return emb, nil
}

// Fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const documentColumns = `d.id, d.content, d.metadata, d.created_at`

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id = ?`, id)
	doc, err := scanSQLiteDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, err
}

func (s *SQLiteStore) GetEmbedding(ctx context.Context, documentID string) (*domain.Embedding, error) {
	var (
		emb     domain.Embedding
		blob    []byte
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, embedding, created_at FROM document_embeddings WHERE document_id = ?`, documentID).
		Scan(&emb.ID, &emb.DocumentID, &blob, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if emb.Vector, err = decodeVector(blob); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if emb.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return &emb, nil
}

func (s *SQLiteStore) FindByContentHash(ctx context.Context, hash string) (domain.Document, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE json_extract(d.metadata, '$.content_hash') = ? LIMIT 1`, hash)
	doc, err := scanSQLiteDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, err
	}
	return doc, true, nil
}

func (s *SQLiteStore) MatchDocuments(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.Match, error) {
	if err := domain.CheckDimension(query, s.dimension); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+`, e.embedding FROM document_embeddings e JOIN documents d ON d.id = e.document_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var (
			doc           domain.Document
			meta, created string
			blob          []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &created, &blob); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		if err := fillDocument(&doc, meta, created); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		candidates = append(candidates, Candidate{Document: doc, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	return RankMatches(query, candidates, threshold, limit)
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents d ORDER BY d.created_at`)
}

func (s *SQLiteStore) ListOrphans(ctx context.Context) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents d
		LEFT JOIN document_embeddings e ON e.document_id = d.id
		WHERE e.id IS NULL ORDER BY d.created_at`)
}

func (s *SQLiteStore) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM documents),
		(SELECT COUNT(*) FROM document_embeddings),
		(SELECT COUNT(*) FROM documents d LEFT JOIN document_embeddings e ON e.document_id = d.id WHERE e.id IS NULL)`).
		Scan(&stats.Documents, &stats.Embeddings, &stats.Orphans)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDocument(row rowScanner) (domain.Document, error) {
	var (
		doc           domain.Document
		meta, created string
	)
	if err := row.Scan(&doc.ID, &doc.Content, &meta, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doc, err
		}
		return doc, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	err := fillDocument(&doc, meta, created)
	return doc, err
}

func fillDocument(doc *domain.Document, meta, created string) error {
	doc.Metadata = map[string]string{}
	if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
		return fmt.Errorf("%w: corrupt metadata for %s: %w", domain.ErrPersistence, doc.ID, err)
	}
	t, err := time.Parse(sqliteTimeLayout, created)
	if err != nil {
		return fmt.Errorf("%w: corrupt timestamp for %s: %w", domain.ErrPersistence, doc.ID, err)
	}
	doc.CreatedAt = t
	return nil
}
