package port

import (
	"context"

	"docintel/internal/domain"
)

// OCREngine starts recognition sessions. A session holds engine resources
// (scratch space, loaded language data) for the length of one batch.
type OCREngine interface {
	Open(ctx context.Context) (OCRSession, error)
	Name() string
}

// OCRSession recognizes text in PDF files. Close must be called on every
// exit path, success or failure.
type OCRSession interface {
	Recognize(ctx context.Context, path string) (domain.Recognition, error)
	Close() error
}
