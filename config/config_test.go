package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Embedding.Dimension != 384 {
		t.Errorf("expected Dimension=384, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Chat.Model != "mistral-large-latest" {
		t.Errorf("expected chat model mistral-large-latest, got %s", cfg.Chat.Model)
	}
	if cfg.Store.Backend != "bolt" {
		t.Errorf("expected bolt backend, got %s", cfg.Store.Backend)
	}
	if cfg.RemoteTimeout() != 60*time.Second {
		t.Errorf("expected 60s timeout, got %s", cfg.RemoteTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docintel.yaml")

	content := `
embedding:
  provider: ollama
  model: all-minilm
store:
  backend: sqlite
remote:
  max_retries: 0
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "all-minilm" {
		t.Errorf("expected ollama/all-minilm, got %s/%s", cfg.Embedding.Provider, cfg.Embedding.Model)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", cfg.Store.Backend)
	}
	if cfg.Remote.MaxRetries != 0 {
		t.Errorf("expected MaxRetries=0, got %d", cfg.Remote.MaxRetries)
	}
	// untouched sections keep their defaults
	if cfg.Embedding.Dimension != 384 {
		t.Errorf("expected default Dimension=384, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Chat.APIKeyEnv != "MISTRAL_API_KEY" {
		t.Errorf("expected default chat key env, got %s", cfg.Chat.APIKeyEnv)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "docintel.yaml")
	os.WriteFile(configPath, []byte("store: [unclosed"), 0644)

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := EnsureDataDir(tmpDir); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(tmpDir, ".docintel", "config.yaml"), []byte("store:\n  backend: memory\n"), 0644)

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected memory backend from .docintel/config.yaml, got %s", cfg.Store.Backend)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docintel.yaml")
	cfg := DefaultConfig()
	cfg.Ingest.SkipDuplicates = true
	cfg.Archive.Bucket = "scans"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.Ingest.SkipDuplicates || loaded.Archive.Bucket != "scans" {
		t.Errorf("saved values not loaded back: %+v", loaded.Ingest)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"postgres without dsn env", func(c *Config) { c.Store.Backend = "postgres"; c.Store.DSNEnv = "" }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }},
		{"negative retries", func(c *Config) { c.Remote.MaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStorePath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.StorePath("/work"); got != filepath.Join("/work", ".docintel", "docs.db") {
		t.Errorf("unexpected bolt path %s", got)
	}
	cfg.Store.Backend = "sqlite"
	if got := cfg.StorePath("/work"); got != filepath.Join("/work", ".docintel", "docs.sqlite") {
		t.Errorf("unexpected sqlite path %s", got)
	}
	cfg.Store.Path = "/data/custom.db"
	if got := cfg.StorePath("/work"); got != "/data/custom.db" {
		t.Errorf("expected absolute path kept, got %s", got)
	}
}
