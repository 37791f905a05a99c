package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"docintel/internal/domain"
	"docintel/internal/port"
)

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// TesseractEngine rasterizes PDF pages with pdftoppm, reads document info
// with pdfinfo and recognizes each page with tesseract.
type TesseractEngine struct {
	Language      string
	DPI           int
	PdftoppmPath  string
	PdfinfoPath   string
	TesseractPath string

	run      Runner
	lookPath func(string) (string, error)
}

func NewTesseractEngine(language string, dpi int, pdftoppmPath, tesseractPath string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	if dpi <= 0 {
		dpi = 300
	}
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	if tesseractPath == "" {
		tesseractPath = "tesseract"
	}
	return &TesseractEngine{
		Language:      language,
		DPI:           dpi,
		PdftoppmPath:  pdftoppmPath,
		PdfinfoPath:   "pdfinfo",
		TesseractPath: tesseractPath,
		run:           execRunner,
		lookPath:      exec.LookPath,
	}
}

// WithRunner replaces command execution, mainly for tests.
func (e *TesseractEngine) WithRunner(r Runner) *TesseractEngine {
	e.run = r
	e.lookPath = func(name string) (string, error) { return name, nil }
	return e
}

func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Open checks that the tools are installed and allocates a scratch
// directory that lives until the session is closed.
func (e *TesseractEngine) Open(ctx context.Context) (port.OCRSession, error) {
	for _, bin := range []string{e.PdftoppmPath, e.PdfinfoPath, e.TesseractPath} {
		if _, err := e.lookPath(bin); err != nil {
			return nil, fmt.Errorf("%w: %s not available: %w", domain.ErrRecognition, bin, err)
		}
	}

	workDir, err := os.MkdirTemp("", "docintel-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create scratch dir: %w", domain.ErrRecognition, err)
	}
	return &tesseractSession{engine: e, workDir: workDir}, nil
}

type tesseractSession struct {
	engine  *TesseractEngine
	workDir string

	mu     sync.Mutex
	closed bool
}

var errSessionClosed = errors.New("ocr session closed")

func (s *tesseractSession) Recognize(ctx context.Context, path string) (domain.Recognition, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return domain.Recognition{}, fmt.Errorf("%w: %w", domain.ErrRecognition, errSessionClosed)
	}

	pageDir, err := os.MkdirTemp(s.workDir, "doc-*")
	if err != nil {
		return domain.Recognition{}, fmt.Errorf("%w: %w", domain.ErrRecognition, err)
	}
	defer os.RemoveAll(pageDir)

	e := s.engine
	prefix := filepath.Join(pageDir, "page")
	if _, err := e.run(ctx, e.PdftoppmPath, "-r", strconv.Itoa(e.DPI), "-png", path, prefix); err != nil {
		return domain.Recognition{}, fmt.Errorf("%w: rasterize %s: %w", domain.ErrRecognition, path, err)
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return domain.Recognition{}, fmt.Errorf("%w: %w", domain.ErrRecognition, err)
	}
	if len(pages) == 0 {
		return domain.Recognition{}, fmt.Errorf("%w: %s produced no pages", domain.ErrRecognition, path)
	}
	sort.Slice(pages, func(i, j int) bool { return pageNumber(pages[i]) < pageNumber(pages[j]) })

	var (
		text      strings.Builder
		confSum   float64
		confWords int
	)
	for _, page := range pages {
		outBase := strings.TrimSuffix(page, ".png")
		if _, err := e.run(ctx, e.TesseractPath, page, outBase, "-l", e.Language, "txt", "tsv"); err != nil {
			return domain.Recognition{}, fmt.Errorf("%w: recognize %s: %w", domain.ErrRecognition, filepath.Base(page), err)
		}
		out, err := os.ReadFile(outBase + ".txt")
		if err != nil {
			return domain.Recognition{}, fmt.Errorf("%w: read %s text: %w", domain.ErrRecognition, filepath.Base(page), err)
		}
		text.Write(out)

		if tsv, err := os.ReadFile(outBase + ".tsv"); err == nil {
			sum, n := wordConfidence(tsv)
			confSum += sum
			confWords += n
		}
	}

	rec := domain.Recognition{Text: text.String(), Pages: len(pages), Info: s.documentInfo(ctx, path)}
	if confWords > 0 {
		rec.Confidence = confSum / float64(confWords)
	}
	return rec, nil
}

// documentInfo returns the PDF's info dictionary as reported by pdfinfo.
// Missing info is not a recognition failure.
func (s *tesseractSession) documentInfo(ctx context.Context, path string) map[string]string {
	e := s.engine
	out, err := e.run(ctx, e.PdfinfoPath, "-enc", "UTF-8", path)
	if err != nil {
		slog.Warn("pdfinfo failed", "path", path, "err", err)
		return nil
	}
	return parsePdfinfo(out)
}

// parsePdfinfo reads "Key:   value" lines. Empty values are dropped.
func parsePdfinfo(out []byte) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		info[key] = value
	}
	return info
}

// wordConfidence sums the conf column of word rows (level 5) in tesseract
// TSV output. Rows with conf < 0 carry no recognized word.
func wordConfidence(tsv []byte) (sum float64, words int) {
	lines := strings.Split(string(tsv), "\n")
	if len(lines) == 0 {
		return 0, 0
	}
	header := strings.Split(strings.TrimSpace(lines[0]), "\t")
	levelCol, confCol := -1, -1
	for i, name := range header {
		switch name {
		case "level":
			levelCol = i
		case "conf":
			confCol = i
		}
	}
	if levelCol < 0 || confCol < 0 {
		return 0, 0
	}

	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		if len(fields) <= confCol || len(fields) <= levelCol || fields[levelCol] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(fields[confCol]), 64)
		if err != nil || conf < 0 {
			continue
		}
		sum += conf
		words++
	}
	return sum, words
}

// pageNumber extracts N from ".../page-N.png". pdftoppm zero-pads N to the
// width of the page count, so numeric ordering is needed only across widths.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndex(base, "-")
	n, _ := strconv.Atoi(base[idx+1:])
	return n
}

func (s *tesseractSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return os.RemoveAll(s.workDir)
}
