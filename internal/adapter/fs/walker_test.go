package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWalkDefaultIncludesPDFs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.pdf", "nested/b.PDF", "notes.txt", "archive/old/c.pdf")

	files, err := NewWalker(nil, []string{"archive/**"}).Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	got := map[string]bool{}
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		got[filepath.ToSlash(rel)] = true
	}
	if len(got) != 2 || !got["a.pdf"] || !got["nested/b.PDF"] {
		t.Errorf("unexpected files %v", got)
	}
}

func TestExpandMixesFilesAndDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "dir/a.pdf", "dir/b.pdf", "single.bin")

	w := NewWalker(nil, nil)
	files, err := w.Expand([]string{
		filepath.Join(root, "single.bin"),
		filepath.Join(root, "dir"),
		filepath.Join(root, "dir", "a.pdf"),
	})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 unique files, got %d: %+v", len(files), files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1].Path >= files[i].Path {
			t.Errorf("expected sorted paths, got %s before %s", files[i-1].Path, files[i].Path)
		}
	}
}

func TestExpandMissingPath(t *testing.T) {
	if _, err := NewWalker(nil, nil).Expand([]string{filepath.Join(t.TempDir(), "nope.pdf")}); err == nil {
		t.Error("expected error for missing path")
	}
}
