package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"docintel/internal/domain"
)

// Candidate is a stored document with its vector, before scoring.
type Candidate struct {
	Document domain.Document
	Vector   []float32
}

// RankMatches scores candidates against query by cosine similarity, keeps
// those >= threshold and returns at most limit of them, best first.
// Backends without native vector search use it for brute-force matching.
func RankMatches(query []float32, candidates []Candidate, threshold float64, limit int) ([]domain.Match, error) {
	if limit <= 0 {
		return nil, nil
	}

	matches := make([]domain.Match, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			return nil, fmt.Errorf("%w: stored vector for %s has %d components, query has %d",
				domain.ErrDimensionMismatch, c.Document.ID, len(c.Vector), len(query))
		}
		sim := CosineSimilarity(query, c.Vector)
		if sim >= threshold {
			matches = append(matches, domain.Match{Document: c.Document, Similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CosineSimilarity returns 0 for zero-magnitude vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// encodeVector packs a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
