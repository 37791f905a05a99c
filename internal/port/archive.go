package port

import "context"

// Archiver copies a source file to durable object storage and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, key string, path string) (string, error)
}
