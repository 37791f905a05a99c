package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"docintel/internal/domain"
)

// PostgresStore keeps documents in Postgres and delegates similarity search
// to the match_documents SQL function.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

// migratePostgres applies PostgresSchema over a plain connection so the
// vector extension exists before pooled connections register its types.
// The DDL is a multi-statement batch and goes through the simple protocol.
func migratePostgres(ctx context.Context, dsn string, dimension int, rlsRole string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", domain.ErrPersistence, err)
	}
	defer conn.Close(ctx)

	if _, err := conn.PgConn().Exec(ctx, PostgresSchema(dimension, rlsRole)).ReadAll(); err != nil {
		return fmt.Errorf("%w: apply schema: %w", domain.ErrPersistence, err)
	}
	return nil
}

func NewPostgresStore(ctx context.Context, dsn string, dimension int, rlsRole string) (*PostgresStore, error) {
	if err := migratePostgres(ctx, dsn, dimension, rlsRole); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %w", domain.ErrPersistence, err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open pool: %w", domain.ErrPersistence, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrPersistence, err)
	}
	return &PostgresStore{pool: pool, dimension: dimension}, nil
}

func (s *PostgresStore) Dimension() int {
	return s.dimension
}

func (s *PostgresStore) SchemaInfo(ctx context.Context) (SchemaInfo, error) {
	info := SchemaInfo{Backend: "postgres", Version: CurrentSchemaVersion}
	err := s.pool.QueryRow(ctx, `select atttypmod from pg_attribute
		where attrelid = 'document_embeddings'::regclass and attname = 'embedding'`).Scan(&info.Dimension)
	if err != nil {
		return info, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return info, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, content string, metadata map[string]string) (domain.Document, error) {
	doc := domain.Document{Content: content, Metadata: copyMetadata(metadata)}
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	err = s.pool.QueryRow(ctx,
		`insert into documents (content, metadata) values ($1, $2::jsonb) returning id::text, created_at`,
		content, string(meta)).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: insert document: %w", domain.ErrPersistence, err)
	}
	return doc, nil
}

func (s *PostgresStore) InsertEmbedding(ctx context.Context, documentID string, vector []float32) (domain.Embedding, error) {
	if err := domain.CheckDimension(vector, s.dimension); err != nil {
		return domain.Embedding{}, err
	}
	if _, err := uuid.Parse(documentID); err != nil {
		return domain.Embedding{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}

	emb := domain.Embedding{DocumentID: documentID, Vector: append([]float32(nil), vector...)}
	err := s.pool.QueryRow(ctx,
		`insert into document_embeddings (document_id, embedding) values ($1::uuid, $2) returning id::text, created_at`,
		documentID, pgvector.NewVector(emb.Vector)).Scan(&emb.ID, &emb.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.Embedding{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
		}
		return domain.Embedding{}, fmt.Errorf("%w: insert embedding: %w", domain.ErrPersistence, err)
	}
	return emb, nil
}

const pgDocumentColumns = `d.id::text, d.content, d.metadata::text, d.created_at`

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	row := s.pool.QueryRow(ctx, `select `+pgDocumentColumns+` from documents d where d.id = $1::uuid`, id)
	doc, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, err
}

func (s *PostgresStore) GetEmbedding(ctx context.Context, documentID string) (*domain.Embedding, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, nil
	}
	var (
		emb domain.Embedding
		vec pgvector.Vector
	)
	err := s.pool.QueryRow(ctx,
		`select id::text, document_id::text, embedding, created_at from document_embeddings where document_id = $1::uuid`,
		documentID).Scan(&emb.ID, &emb.DocumentID, &vec, &emb.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	emb.Vector = vec.Slice()
	return &emb, nil
}

func (s *PostgresStore) FindByContentHash(ctx context.Context, hash string) (domain.Document, bool, error) {
	row := s.pool.QueryRow(ctx,
		`select `+pgDocumentColumns+` from documents d where d.metadata->>'content_hash' = $1 limit 1`, hash)
	doc, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, err
	}
	return doc, true, nil
}

func (s *PostgresStore) MatchDocuments(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.Match, error) {
	if err := domain.CheckDimension(query, s.dimension); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`select d.id::text, d.content, d.metadata::text, d.created_at, d.similarity
		from match_documents($1, $2, $3) d`,
		pgvector.NewVector(query), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: match_documents: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var (
			m    domain.Match
			meta string
		)
		if err := rows.Scan(&m.Document.ID, &m.Document.Content, &meta, &m.Document.CreatedAt, &m.Similarity); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		if err := decodeMetadata(&m.Document, meta); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return matches, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `select `+pgDocumentColumns+` from documents d order by d.created_at`)
}

func (s *PostgresStore) ListOrphans(ctx context.Context) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `select `+pgDocumentColumns+` from documents d
		left join document_embeddings e on e.document_id = d.id
		where e.id is null order by d.created_at`)
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanPgDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return docs, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	tag, err := s.pool.Exec(ctx, `delete from documents where id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.pool.QueryRow(ctx, `select
		(select count(*) from documents)::int,
		(select count(*) from document_embeddings)::int,
		(select count(*) from documents d left join document_embeddings e on e.document_id = d.id where e.id is null)::int`).
		Scan(&stats.Documents, &stats.Embeddings, &stats.Orphans)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return stats, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgDocument(row pgx.Row) (domain.Document, error) {
	var (
		doc  domain.Document
		meta string
	)
	if err := row.Scan(&doc.ID, &doc.Content, &meta, &doc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return doc, err
		}
		return doc, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	err := decodeMetadata(&doc, meta)
	return doc, err
}

func decodeMetadata(doc *domain.Document, meta string) error {
	doc.Metadata = map[string]string{}
	if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
		return fmt.Errorf("%w: corrupt metadata for %s: %w", domain.ErrPersistence, doc.ID, err)
	}
	return nil
}
