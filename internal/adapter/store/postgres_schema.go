package store

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// PostgresSchema renders the DDL for a pgvector-backed store. The
// match_documents function ranks by cosine similarity and keeps rows at or
// above match_threshold. rlsRole, when set, enables row-level security with
// a full-access policy for that role.
func PostgresSchema(dimension int, rlsRole string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `create extension if not exists vector;

create table if not exists documents (
	id         uuid primary key default gen_random_uuid(),
	content    text not null,
	metadata   jsonb not null default '{}'::jsonb,
	created_at timestamptz not null default now()
);

create table if not exists document_embeddings (
	id          uuid primary key default gen_random_uuid(),
	document_id uuid not null unique references documents(id) on delete cascade,
	embedding   vector(%[1]d) not null,
	created_at  timestamptz not null default now()
);

create index if not exists document_embeddings_embedding_idx
	on document_embeddings using hnsw (embedding vector_cosine_ops);

create index if not exists document_embeddings_document_id_idx
	on document_embeddings (document_id);

create or replace function match_documents(
	query_embedding vector(%[1]d),
	match_threshold float,
	match_count int
)
returns table (id uuid, content text, metadata jsonb, created_at timestamptz, similarity float)
language sql stable
as $$
	select d.id, d.content, d.metadata, d.created_at,
		1 - (e.embedding <=> query_embedding) as similarity
	from document_embeddings e
	join documents d on d.id = e.document_id
	where 1 - (e.embedding <=> query_embedding) >= match_threshold
	order by e.embedding <=> query_embedding
	limit match_count;
$$;
`, dimension)

	if rlsRole != "" {
		role := pgx.Identifier{rlsRole}.Sanitize()
		for _, table := range []string{"documents", "document_embeddings"} {
			policy := "docintel_" + table + "_rw"
			fmt.Fprintf(&b, `
alter table %[1]s enable row level security;
do $$
begin
	if not exists (select 1 from pg_policies where tablename = '%[1]s' and policyname = '%[2]s') then
		create policy %[2]s on %[1]s for all to %[3]s using (true) with check (true);
	end if;
end
$$;
`, table, policy, role)
		}
	}
	return b.String()
}
