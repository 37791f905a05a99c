package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docintel/config"
	"docintel/internal/adapter/embedding"
	"docintel/internal/adapter/llm"
	"docintel/internal/adapter/memstore"
	"docintel/internal/adapter/ocr"
	"docintel/internal/adapter/remote"
	"docintel/internal/adapter/store"
)

func TestNewEmbedderProviders(t *testing.T) {
	for _, provider := range []string{"openai", "mistral", "ollama", "mock"} {
		cfg := config.DefaultConfig()
		cfg.Embedding.Provider = provider
		e, err := NewEmbedder(cfg)
		if err != nil {
			t.Fatalf("%s: %v", provider, err)
		}
		if e.Dimension() != cfg.Embedding.Dimension {
			t.Errorf("%s: dimension = %d", provider, e.Dimension())
		}
	}

	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	e, _ := NewEmbedder(cfg)
	if _, ok := e.(*embedding.MockEmbedder); !ok {
		t.Errorf("mock provider built %T", e)
	}
}

func TestNewEmbedderRejects(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "custom"
	if _, err := NewEmbedder(cfg); err == nil {
		t.Error("expected error for custom provider without base_url")
	}

	cfg.Embedding.Provider = "nope"
	if _, err := NewEmbedder(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewChat(t *testing.T) {
	cfg := config.DefaultConfig()
	chat, err := NewChat(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := chat.(*llm.Client); !ok {
		t.Errorf("default provider built %T", chat)
	}

	cfg.Chat.Provider = "mock"
	chat, _ = NewChat(cfg)
	if _, ok := chat.(*llm.MockChat); !ok {
		t.Errorf("mock provider built %T", chat)
	}

	cfg.Chat.Provider = "unknown"
	if _, err := NewChat(cfg); err == nil {
		t.Error("expected error for unknown provider without base_url")
	}
}

func TestNewArchiverDisabled(t *testing.T) {
	a, err := NewArchiver(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Errorf("expected nil archiver, got %T", a)
	}
}

func TestNewOCR(t *testing.T) {
	cfg := config.DefaultConfig()
	if _, err := NewOCR(cfg); err != nil {
		t.Fatal(err)
	}
	cfg.OCR.Engine = "abbyy"
	if _, err := NewOCR(cfg); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestNewOCRPdfinfoPath(t *testing.T) {
	cfg := config.DefaultConfig()
	engine, err := NewOCR(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := engine.(*ocr.TesseractEngine).PdfinfoPath; got != "pdfinfo" {
		t.Errorf("default pdfinfo path = %q", got)
	}

	cfg.OCR.PdfinfoPath = "/opt/poppler/bin/pdfinfo"
	engine, _ = NewOCR(cfg)
	if got := engine.(*ocr.TesseractEngine).PdfinfoPath; got != cfg.OCR.PdfinfoPath {
		t.Errorf("configured pdfinfo path = %q", got)
	}
}

func TestRemotePolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Remote.TimeoutSecs = 0
	cfg.Remote.BaseDelayMillis = 0
	cfg.Remote.MaxRetries = 0

	p := RemotePolicy(cfg)
	def := remote.DefaultPolicy()
	if p.Timeout != def.Timeout || p.BaseDelay != def.BaseDelay {
		t.Errorf("unset durations should fall back to defaults, got %+v", p)
	}
	if p.MaxRetries != 0 {
		t.Errorf("explicit zero retries must be kept, got %d", p.MaxRetries)
	}

	cfg.Remote.TimeoutSecs = 5
	cfg.Remote.BaseDelayMillis = 20
	cfg.Remote.MaxRetries = 7
	p = RemotePolicy(cfg)
	if p.Timeout != 5*time.Second || p.BaseDelay != 20*time.Millisecond || p.MaxRetries != 7 {
		t.Errorf("configured values not applied, got %+v", p)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "e-key")
	t.Setenv("TEST_CHAT_KEY", "c-key")

	cfg := config.DefaultConfig()
	cfg.Embedding.APIKeyEnv = "TEST_EMBED_KEY"
	cfg.Chat.APIKeyEnv = "TEST_CHAT_KEY"

	creds := Credentials(cfg)
	if creds.Embedding != "e-key" || creds.Chat != "c-key" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		backend string
		check   func(t *testing.T, dir string, st any)
	}{
		{"bolt", func(t *testing.T, dir string, st any) {
			if _, ok := st.(*store.BoltStore); !ok {
				t.Errorf("built %T", st)
			}
			if _, err := os.Stat(filepath.Join(dir, ".docintel", "docs.db")); err != nil {
				t.Errorf("bolt file not created: %v", err)
			}
		}},
		{"sqlite", func(t *testing.T, dir string, st any) {
			if _, ok := st.(*store.SQLiteStore); !ok {
				t.Errorf("built %T", st)
			}
		}},
		{"memory", func(t *testing.T, dir string, st any) {
			if _, ok := st.(*memstore.MemoryStore); !ok {
				t.Errorf("built %T", st)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.DefaultConfig()
			cfg.Store.Backend = tt.backend

			st, err := OpenStore(ctx, cfg, dir)
			if err != nil {
				t.Fatal(err)
			}
			defer st.Close()
			if st.Dimension() != cfg.Embedding.Dimension {
				t.Errorf("dimension = %d", st.Dimension())
			}
			tt.check(t, dir, st)
		})
	}
}

func TestOpenStorePostgresNeedsDSN(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Backend = "postgres"
	cfg.Store.DSNEnv = "TEST_UNSET_DSN"
	t.Setenv("TEST_UNSET_DSN", "")

	if _, err := OpenStore(context.Background(), cfg, t.TempDir()); err == nil {
		t.Error("expected error without DSN")
	}
}

func TestOpenStorePostgresReopens(t *testing.T) {
	dsn := os.Getenv("DOCINTEL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCINTEL_TEST_POSTGRES_DSN not set")
	}
	t.Setenv("TEST_PG_DSN", dsn)
	cfg := config.DefaultConfig()
	cfg.Store.Backend = "postgres"
	cfg.Store.DSNEnv = "TEST_PG_DSN"

	for i := 0; i < 2; i++ {
		st, err := OpenStore(context.Background(), cfg, t.TempDir())
		if err != nil {
			t.Fatalf("open %d: %v", i+1, err)
		}
		if _, ok := st.(*store.PostgresStore); !ok {
			t.Errorf("built %T", st)
		}
		st.Close()
	}
}
