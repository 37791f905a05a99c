package port

import "context"

// Embedder turns text into a fixed-dimension vector using a remote model.
type Embedder interface {
	// Embed returns the vector for text. apiKey is supplied by the caller on
	// every call; implementations never read credentials themselves.
	Embed(ctx context.Context, apiKey string, text string) ([]float32, error)

	// Dimension returns the number of components every vector must have.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
