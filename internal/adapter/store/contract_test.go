package store_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"docintel/internal/domain"
	"docintel/internal/port"
)

const contractDim = 4

type openFunc func(t *testing.T, dimension int) port.DocumentStore

// runContract exercises behavior every DocumentStore backend must share.
func runContract(t *testing.T, open openFunc) {
	ctx := context.Background()

	t.Run("DocumentRoundTrip", func(t *testing.T) {
		s := open(t, contractDim)
		meta := map[string]string{domain.MetaSource: "inbox/a.pdf", domain.MetaFileName: "a.pdf", "page_count": "2"}
		doc, err := s.InsertDocument(ctx, "Invoice #1042\ntotal due $250", meta)
		if err != nil {
			t.Fatalf("InsertDocument failed: %v", err)
		}
		if doc.ID == "" || doc.CreatedAt.IsZero() {
			t.Fatalf("expected ID and CreatedAt to be assigned, got %+v", doc)
		}

		got, err := s.GetDocument(ctx, doc.ID)
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if got.Content != "Invoice #1042\ntotal due $250" {
			t.Errorf("content changed: %q", got.Content)
		}
		if !reflect.DeepEqual(got.Metadata, meta) {
			t.Errorf("expected metadata %v, got %v", meta, got.Metadata)
		}
	})

	t.Run("EmbeddingRoundTrip", func(t *testing.T) {
		s := open(t, contractDim)
		doc := mustInsert(t, s, "text")
		vec := []float32{0.1, 0.2, 0.3, 0.4}
		emb, err := s.InsertEmbedding(ctx, doc.ID, vec)
		if err != nil {
			t.Fatalf("InsertEmbedding failed: %v", err)
		}
		if emb.DocumentID != doc.ID {
			t.Errorf("expected document id %s, got %s", doc.ID, emb.DocumentID)
		}

		got, err := s.GetEmbedding(ctx, doc.ID)
		if err != nil || got == nil {
			t.Fatalf("GetEmbedding failed: %v", err)
		}
		if !reflect.DeepEqual(got.Vector, vec) {
			t.Errorf("expected vector %v, got %v", vec, got.Vector)
		}
	})

	t.Run("SelfMatch", func(t *testing.T) {
		s := open(t, contractDim)
		doc := mustInsert(t, s, "self")
		vec := []float32{0.3, -0.2, 0.9, 0.1}
		mustEmbed(t, s, doc.ID, vec)
		mustEmbed(t, s, mustInsert(t, s, "other").ID, []float32{-0.3, 0.2, -0.9, 0.1})

		matches, err := s.MatchDocuments(ctx, vec, 0.7, 10)
		if err != nil {
			t.Fatalf("MatchDocuments failed: %v", err)
		}
		if len(matches) != 1 || matches[0].Document.ID != doc.ID {
			t.Fatalf("expected only the document itself, got %+v", matches)
		}
		if math.Abs(matches[0].Similarity-1) > 1e-4 {
			t.Errorf("expected similarity ~1, got %f", matches[0].Similarity)
		}
	})

	t.Run("ThresholdAndLimit", func(t *testing.T) {
		s := open(t, contractDim)
		for i := 0; i < 12; i++ {
			doc := mustInsert(t, s, "close")
			mustEmbed(t, s, doc.ID, []float32{1, float32(i) * 0.05, 0, 0})
		}
		for i := 0; i < 3; i++ {
			doc := mustInsert(t, s, "far")
			mustEmbed(t, s, doc.ID, []float32{0, 1, 0, 0})
		}
		edge := mustInsert(t, s, "below threshold")
		mustEmbed(t, s, edge.ID, []float32{1, 1.1, 0, 0})

		matches, err := s.MatchDocuments(ctx, []float32{1, 0, 0, 0}, 0.7, 10)
		if err != nil {
			t.Fatalf("MatchDocuments failed: %v", err)
		}
		if len(matches) != 10 {
			t.Fatalf("expected 10 matches, got %d", len(matches))
		}
		for i, m := range matches {
			if m.Similarity < 0.7 {
				t.Errorf("match %d below threshold: %f", i, m.Similarity)
			}
			if m.Document.Content != "close" {
				t.Errorf("unexpected document %q in results", m.Document.Content)
			}
			if i > 0 && m.Similarity > matches[i-1].Similarity+1e-9 {
				t.Errorf("results not ordered by similarity at %d", i)
			}
		}
	})

	t.Run("EmptyStore", func(t *testing.T) {
		s := open(t, contractDim)
		matches, err := s.MatchDocuments(ctx, []float32{1, 0, 0, 0}, 0.7, 10)
		if err != nil {
			t.Fatalf("MatchDocuments failed: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("expected no matches, got %d", len(matches))
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		s := open(t, contractDim)
		doc := mustInsert(t, s, "text")
		if _, err := s.InsertEmbedding(ctx, doc.ID, []float32{1, 2, 3}); !errors.Is(err, domain.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch on insert, got %v", err)
		}
		if _, err := s.MatchDocuments(ctx, []float32{1, 2, 3, 4, 5}, 0.7, 10); !errors.Is(err, domain.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch on match, got %v", err)
		}
		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Embeddings != 0 {
			t.Errorf("expected no embeddings written, got %d", stats.Embeddings)
		}
	})

	t.Run("EmbeddingForMissingDocument", func(t *testing.T) {
		s := open(t, contractDim)
		if _, err := s.InsertEmbedding(ctx, uuid.NewString(), []float32{1, 0, 0, 0}); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Orphans", func(t *testing.T) {
		s := open(t, contractDim)
		orphan := mustInsert(t, s, "orphan")
		whole := mustInsert(t, s, "whole")
		mustEmbed(t, s, whole.ID, []float32{1, 0, 0, 0})

		orphans, err := s.ListOrphans(ctx)
		if err != nil {
			t.Fatalf("ListOrphans failed: %v", err)
		}
		if len(orphans) != 1 || orphans[0].ID != orphan.ID {
			t.Errorf("expected only %s as orphan, got %+v", orphan.ID, orphans)
		}

		emb, err := s.GetEmbedding(ctx, orphan.ID)
		if err != nil || emb != nil {
			t.Errorf("expected no embedding for orphan, got %v, %v", emb, err)
		}

		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		want := domain.Stats{Documents: 2, Embeddings: 1, Orphans: 1}
		if stats != want {
			t.Errorf("expected stats %+v, got %+v", want, stats)
		}

		docs, err := s.ListDocuments(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 2 || docs[0].ID != orphan.ID {
			t.Errorf("expected documents in insertion order, got %+v", docs)
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		s := open(t, contractDim)
		doc := mustInsert(t, s, "to delete")
		mustEmbed(t, s, doc.ID, []float32{1, 0, 0, 0})

		if err := s.DeleteDocument(ctx, doc.ID); err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if _, err := s.GetDocument(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if emb, _ := s.GetEmbedding(ctx, doc.ID); emb != nil {
			t.Error("expected embedding to be deleted with its document")
		}
		if err := s.DeleteDocument(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("FindByContentHash", func(t *testing.T) {
		s := open(t, contractDim)
		doc, err := s.InsertDocument(ctx, "hashed", map[string]string{domain.MetaContentHash: "abc123"})
		if err != nil {
			t.Fatal(err)
		}

		found, ok, err := s.FindByContentHash(ctx, "abc123")
		if err != nil || !ok || found.ID != doc.ID {
			t.Errorf("expected to find %s, got %+v ok=%v err=%v", doc.ID, found, ok, err)
		}
		if _, ok, err := s.FindByContentHash(ctx, "missing"); err != nil || ok {
			t.Errorf("expected no match, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("UnknownDocument", func(t *testing.T) {
		s := open(t, contractDim)
		if _, err := s.GetDocument(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func mustInsert(t *testing.T, s port.DocumentStore, content string) domain.Document {
	t.Helper()
	doc, err := s.InsertDocument(context.Background(), content, map[string]string{domain.MetaSource: content})
	if err != nil {
		t.Fatalf("InsertDocument failed: %v", err)
	}
	return doc
}

func mustEmbed(t *testing.T, s port.DocumentStore, id string, vec []float32) {
	t.Helper()
	if _, err := s.InsertEmbedding(context.Background(), id, vec); err != nil {
		t.Fatalf("InsertEmbedding failed: %v", err)
	}
}
