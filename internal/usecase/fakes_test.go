package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"docintel/internal/domain"
	"docintel/internal/port"
)

// fakeOCR recognizes files by base name.
type fakeOCR struct {
	texts   map[string]string
	info    map[string]map[string]string
	conf    float64
	fail    map[string]error
	openErr error

	mu     sync.Mutex
	opened int
	closed int
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) Open(ctx context.Context) (port.OCRSession, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	return &fakeSession{engine: f}, nil
}

type fakeSession struct {
	engine *fakeOCR
}

func (s *fakeSession) Recognize(ctx context.Context, path string) (domain.Recognition, error) {
	name := filepath.Base(path)
	if err := s.engine.fail[name]; err != nil {
		return domain.Recognition{}, err
	}
	return domain.Recognition{
		Text:       s.engine.texts[name],
		Pages:      1,
		Info:       s.engine.info[name],
		Confidence: s.engine.conf,
	}, nil
}

func (s *fakeSession) Close() error {
	s.engine.mu.Lock()
	s.engine.closed++
	s.engine.mu.Unlock()
	return nil
}

// failingEmbeddingStore persists documents but rejects every embedding.
type failingEmbeddingStore struct {
	port.DocumentStore
}

func (s failingEmbeddingStore) InsertEmbedding(ctx context.Context, documentID string, vector []float32) (domain.Embedding, error) {
	return domain.Embedding{}, errors.New("connection reset")
}

// failingMatchStore rejects every similarity search.
type failingMatchStore struct {
	port.DocumentStore
	err error
}

func (s failingMatchStore) MatchDocuments(ctx context.Context, query []float32, threshold float64, count int) ([]domain.Match, error) {
	return nil, s.err
}

type failingEmbedder struct {
	dimension int
}

func (e failingEmbedder) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	return nil, errors.Join(domain.ErrEmbedding, errors.New("401 unauthorized"))
}
func (e failingEmbedder) Dimension() int    { return e.dimension }
func (e failingEmbedder) ModelName() string { return "failing" }

type fakeArchiver struct {
	keys []string
}

func (a *fakeArchiver) Archive(ctx context.Context, key, path string) (string, error) {
	a.keys = append(a.keys, key)
	return "s3://bucket/" + key, nil
}

// writePDFs creates minimal PDF files and returns them as batch inputs.
func writePDFs(t *testing.T, names ...string) []SourceFile {
	t.Helper()
	dir := t.TempDir()
	files := make([]SourceFile, len(names))
	for i, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("%PDF-1.4\n%fake\n"), 0644); err != nil {
			t.Fatal(err)
		}
		files[i] = SourceFile{Path: p}
	}
	return files
}
