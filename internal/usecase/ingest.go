package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"docintel/internal/adapter/analyzer"
	"docintel/internal/adapter/ocr"
	"docintel/internal/domain"
	"docintel/internal/port"
)

// FileStatus is the outcome of ingesting one file.
type FileStatus string

const (
	FileIngested  FileStatus = "ingested"
	FileDuplicate FileStatus = "duplicate"
	FileFailed    FileStatus = "failed"
)

// SourceFile is one input to a batch. Name becomes the file_name metadata;
// Origin, when set, replaces Path as the source metadata.
type SourceFile struct {
	Path   string
	Name   string
	Origin string
}

// FileResult reports what happened to one file.
type FileResult struct {
	Path       string     `json:"path"`
	Name       string     `json:"file_name"`
	Status     FileStatus `json:"status"`
	DocumentID string     `json:"document_id,omitempty"`
	Pages      int        `json:"pages,omitempty"`
	Words      int        `json:"words,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Error      string     `json:"error,omitempty"`
	Err        error      `json:"-"`
}

// IngestResult contains the results of a batch.
type IngestResult struct {
	Files      []FileResult  `json:"files"`
	Ingested   int           `json:"ingested"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Orphaned   int           `json:"orphaned"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

func (r *IngestResult) add(fr FileResult) {
	r.Files = append(r.Files, fr)
	switch fr.Status {
	case FileIngested:
		r.Ingested++
	case FileDuplicate:
		r.Duplicates++
	case FileFailed:
		r.Failed++
		if errors.Is(fr.Err, domain.ErrOrphanedDocument) {
			r.Orphaned++
		}
	}
}

// ProgressFunc is called after each file of a batch.
type ProgressFunc func(done, total int, result FileResult)

// IngestUseCase turns PDFs into stored, embedded documents: recognize,
// embed, insert document, insert embedding.
type IngestUseCase struct {
	ocr            port.OCREngine
	embedder       port.Embedder
	store          port.DocumentStore
	archiver       port.Archiver
	skipDuplicates bool
}

// NewIngestUseCase creates a new ingest use case. archiver may be nil.
func NewIngestUseCase(
	engine port.OCREngine,
	embedder port.Embedder,
	store port.DocumentStore,
	archiver port.Archiver,
	skipDuplicates bool,
) *IngestUseCase {
	return &IngestUseCase{
		ocr:            engine,
		embedder:       embedder,
		store:          store,
		archiver:       archiver,
		skipDuplicates: skipDuplicates,
	}
}

// IngestBatch processes files in order under a single OCR session. A failure
// on one file is recorded in its FileResult and does not stop the batch.
// The returned error is non-nil only when the session cannot be opened or
// ctx is canceled.
func (u *IngestUseCase) IngestBatch(ctx context.Context, apiKey string, files []SourceFile, progress ProgressFunc) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{}

	session, err := u.ocr.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", u.ocr.Name(), err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.Warn("failed to release OCR session", "engine", u.ocr.Name(), "err", cerr)
		}
	}()

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}

		fr := u.ingestFile(ctx, session, apiKey, f)
		result.add(fr)

		if fr.Status == FileFailed {
			slog.Error("file not ingested", "path", f.Path, "err", fr.Err)
		} else {
			slog.Info("file processed", "path", f.Path, "status", fr.Status, "document_id", fr.DocumentID, "words", fr.Words, "confidence", fr.Confidence)
		}
		if progress != nil {
			progress(i+1, len(files), fr)
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

func (u *IngestUseCase) ingestFile(ctx context.Context, session port.OCRSession, apiKey string, f SourceFile) FileResult {
	name := f.Name
	if name == "" {
		name = filepath.Base(f.Path)
	}
	fr := FileResult{Path: f.Path, Name: name, Status: FileFailed}
	fail := func(err error) FileResult {
		fr.Err = err
		fr.Error = err.Error()
		return fr
	}

	if err := ocr.DetectPDF(f.Path); err != nil {
		return fail(err)
	}

	rec, err := session.Recognize(ctx, f.Path)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(rec.Text) == "" {
		return fail(fmt.Errorf("%w: no text recognized in %s", domain.ErrRecognition, name))
	}
	fr.Pages = rec.Pages
	fr.Words = analyzer.CountWords(rec.Text)
	fr.Confidence = rec.Confidence

	hash := ContentHash(rec.Text)
	if u.skipDuplicates {
		existing, ok, err := u.store.FindByContentHash(ctx, hash)
		if err != nil {
			return fail(err)
		}
		if ok {
			fr = fail(fmt.Errorf("%w: same text as document %s", domain.ErrDuplicate, existing.ID))
			fr.Status = FileDuplicate
			fr.DocumentID = existing.ID
			return fr
		}
	}

	vector, err := u.embedder.Embed(ctx, apiKey, rec.Text)
	if err != nil {
		return fail(err)
	}
	if err := domain.CheckDimension(vector, u.store.Dimension()); err != nil {
		return fail(err)
	}

	source := f.Origin
	if source == "" {
		source = f.Path
	}
	metadata := make(map[string]string, len(rec.Info)+5)
	for k, v := range rec.Info {
		if !domain.IsReservedMetaKey(k) {
			metadata[k] = v
		}
	}
	metadata[domain.MetaFileName] = name
	metadata[domain.MetaSource] = source
	metadata[domain.MetaContentHash] = hash
	metadata[domain.MetaPageCount] = strconv.Itoa(rec.Pages)

	if u.archiver != nil {
		uri, err := u.archiver.Archive(ctx, hash[:16]+"/"+name, f.Path)
		if err != nil {
			return fail(fmt.Errorf("%w: archive: %w", domain.ErrPersistence, err))
		}
		metadata[domain.MetaArchiveURI] = uri
	}

	doc, err := u.store.InsertDocument(ctx, rec.Text, metadata)
	if err != nil {
		return fail(err)
	}
	fr.DocumentID = doc.ID

	if _, err := u.store.InsertEmbedding(ctx, doc.ID, vector); err != nil {
		return fail(&domain.OrphanError{DocumentID: doc.ID, Err: err})
	}

	fr.Status = FileIngested
	return fr
}

// ContentHash is the hex SHA-256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
