package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"docintel/internal/domain"
	"docintel/internal/port"
)

// ReconcileMode chooses what a sweep does with orphaned documents.
type ReconcileMode string

const (
	ReconcileReembed ReconcileMode = "reembed"
	ReconcileDelete  ReconcileMode = "delete"
)

// ReconcileResult contains the results of a sweep.
type ReconcileResult struct {
	Mode     ReconcileMode `json:"mode"`
	Orphans  int           `json:"orphans"`
	Repaired int           `json:"repaired"`
	Deleted  int           `json:"deleted"`
	Errors   []string      `json:"errors,omitempty"`
}

// ReconcileUseCase repairs documents whose embedding insert failed.
type ReconcileUseCase struct {
	embedder port.Embedder
	store    port.DocumentStore
}

func NewReconcileUseCase(embedder port.Embedder, store port.DocumentStore) *ReconcileUseCase {
	return &ReconcileUseCase{embedder: embedder, store: store}
}

// Sweep visits every orphan once. Per-document failures are collected and
// the sweep continues.
func (u *ReconcileUseCase) Sweep(ctx context.Context, apiKey string, mode ReconcileMode) (*ReconcileResult, error) {
	if mode != ReconcileReembed && mode != ReconcileDelete {
		return nil, fmt.Errorf("unknown reconcile mode: %s", mode)
	}

	orphans, err := u.store.ListOrphans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphans: %w", err)
	}

	result := &ReconcileResult{Mode: mode, Orphans: len(orphans)}
	for _, doc := range orphans {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var err error
		switch mode {
		case ReconcileDelete:
			if err = u.store.DeleteDocument(ctx, doc.ID); err == nil {
				result.Deleted++
			}
		case ReconcileReembed:
			if err = u.reembed(ctx, apiKey, doc); err == nil {
				result.Repaired++
			}
		}
		if err != nil {
			slog.Warn("orphan not reconciled", "document_id", doc.ID, "mode", mode, "err", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", doc.ID, err))
		}
	}
	return result, nil
}

func (u *ReconcileUseCase) reembed(ctx context.Context, apiKey string, doc domain.Document) error {
	vector, err := u.embedder.Embed(ctx, apiKey, doc.Content)
	if err != nil {
		return err
	}
	_, err = u.store.InsertEmbedding(ctx, doc.ID, vector)
	return err
}
