package embedding

import (
	"context"
	"hash/fnv"

	"docintel/internal/adapter/analyzer"
)

// biasWeight is added to a dedicated component so that any two non-empty
// texts sharing a few words land above the retrieval threshold while
// unrelated texts stay well below it.
const biasWeight = 1.5

// MockEmbedder hashes words into buckets. It needs no network or credential
// and is used for dry runs and tests.
type MockEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension, tokenizer: analyzer.NewTokenizer()}
}

func (e *MockEmbedder) Embed(ctx context.Context, apiKey string, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dimension)
	if e.dimension < 2 {
		return vec, nil
	}

	seen := false
	for _, w := range e.tokenizer.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[1+int(h.Sum32()%uint32(e.dimension-1))]++
		seen = true
	}
	if seen {
		vec[0] = biasWeight
	}
	return vec, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
