package domain

import (
	"errors"
	"fmt"
)

// Failure classes. Adapters and use cases wrap these with %w so callers can
// classify any error with errors.Is.
var (
	ErrRecognition = errors.New("recognition failed")
	ErrEmbedding   = errors.New("embedding failed")
	ErrPersistence = errors.New("persistence failed")
	ErrRetrieval   = errors.New("retrieval failed")
	ErrCompletion  = errors.New("completion failed")

	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrOrphanedDocument  = errors.New("document stored without embedding")
	ErrNotFound          = errors.New("not found")
	ErrNotPDF            = errors.New("file is not a PDF")
	ErrDuplicate         = errors.New("duplicate content")
)

// OrphanError reports a document row that was persisted while its embedding
// insert failed. The document is left in place for a reconciliation sweep.
type OrphanError struct {
	DocumentID string
	Err        error
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("document %s stored without embedding: %v", e.DocumentID, e.Err)
}

func (e *OrphanError) Unwrap() []error {
	return []error{ErrOrphanedDocument, e.Err}
}

// CheckDimension returns ErrDimensionMismatch when len(vec) != want.
func CheckDimension(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, want, len(vec))
	}
	return nil
}
