package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"docintel/config"
	"docintel/internal/bootstrap"
	"docintel/internal/domain"
)

func writeConfig(t *testing.T, dir, yaml string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "docintel.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	content := strings.Repeat("é", 149) + "€uro\nline"
	got := preview(content, 150)
	if !utf8.ValidString(got) {
		t.Fatalf("preview cut a rune: %q", got)
	}
	if !strings.HasSuffix(got, "€...") {
		t.Errorf("expected 150 runes then ellipsis, got %q", got)
	}
	if got := preview("a\nb", 150); got != "a b" {
		t.Errorf("expected newlines flattened, got %q", got)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "store:\n  backend: cassandra\n")

	err := run(context.Background(), &bytes.Buffer{}, dir, "invoice", 5)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestRunNeedsEmbeddings(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "store:\n  backend: sqlite\nembedding:\n  provider: mock\n")

	err := run(context.Background(), &bytes.Buffer{}, dir, "invoice", 5)
	if err == nil || !strings.Contains(err.Error(), "no embeddings stored") {
		t.Errorf("expected empty store error, got %v", err)
	}
}

func TestRunReportsMatches(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeConfig(t, dir, "store:\n  backend: sqlite\nembedding:\n  provider: mock\n")

	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	st, err := bootstrap.OpenStore(ctx, cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		t.Fatal(err)
	}
	text := "Invoice #1042 total due $250"
	vec, err := embedder.Embed(ctx, "", text)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := st.InsertDocument(ctx, text, map[string]string{domain.MetaFileName: "invoice.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertEmbedding(ctx, doc.ID, vec); err != nil {
		t.Fatal(err)
	}
	st.Close()

	var out bytes.Buffer
	if err := run(ctx, &out, dir, text, 5); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	report := out.String()
	if !strings.Contains(report, "[MATCH 1.000] invoice.pdf") {
		t.Errorf("expected exact match reported, got:\n%s", report)
	}
	if !strings.Contains(report, "Retrieved matches:  1") {
		t.Errorf("expected one retrieved match, got:\n%s", report)
	}
}
