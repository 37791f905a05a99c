// Package bootstrap builds adapters from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"docintel/config"
	"docintel/internal/adapter/archive"
	"docintel/internal/adapter/embedding"
	"docintel/internal/adapter/llm"
	"docintel/internal/adapter/memstore"
	"docintel/internal/adapter/ocr"
	"docintel/internal/adapter/remote"
	"docintel/internal/adapter/store"
	"docintel/internal/domain"
	"docintel/internal/port"
)

const mistralBaseURL = "https://api.mistral.ai/v1"

// OpenStore opens the configured backend. File backends live under dir;
// Postgres is migrated before use.
func OpenStore(ctx context.Context, cfg *config.Config, dir string) (port.DocumentStore, error) {
	dim := cfg.Embedding.Dimension

	switch cfg.Store.Backend {
	case "bolt":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create .docintel directory: %w", err)
		}
		return store.NewBoltStore(cfg.StorePath(dir), dim)
	case "sqlite":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create .docintel directory: %w", err)
		}
		return store.NewSQLiteStore(ctx, cfg.StorePath(dir), dim)
	case "postgres":
		dsn := os.Getenv(cfg.Store.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("environment variable %s is not set", cfg.Store.DSNEnv)
		}
		return store.NewPostgresStore(ctx, dsn, dim, cfg.Store.RLSRole)
	case "memory":
		slog.Warn("memory store selected, documents are lost on exit")
		return memstore.NewMemoryStore(dim), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// RemotePolicy bounds embedding and chat calls. Unset durations keep the
// defaults of remote.DefaultPolicy.
func RemotePolicy(c *config.Config) remote.Policy {
	p := remote.DefaultPolicy()
	if d := c.RemoteTimeout(); d > 0 {
		p.Timeout = d
	}
	if d := c.RemoteBaseDelay(); d > 0 {
		p.BaseDelay = d
	}
	if c.Remote.MaxRetries >= 0 {
		p.MaxRetries = c.Remote.MaxRetries
	}
	return p
}

func NewEmbedder(c *config.Config) (port.Embedder, error) {
	e := c.Embedding
	policy := RemotePolicy(c)

	switch e.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(e.Model, e.Dimension, policy).
			WithSendDimensions(e.SendDimensions), nil
	case "mistral":
		baseURL := e.BaseURL
		if baseURL == "" {
			baseURL = mistralBaseURL
		}
		return embedding.NewOpenAICompatibleEmbedder(e.Model, baseURL, e.Dimension, policy), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL, e.Dimension, policy), nil
	case "custom":
		if e.BaseURL == "" {
			return nil, fmt.Errorf("embedding.base_url is required for the custom provider")
		}
		return embedding.NewOpenAICompatibleEmbedder(e.Model, e.BaseURL, e.Dimension, policy).
			WithSendDimensions(e.SendDimensions), nil
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}

func NewChat(c *config.Config) (port.ChatModel, error) {
	ch := c.Chat
	if ch.Provider == "mock" {
		return llm.NewMockChat("This is a mock answer."), nil
	}
	return llm.NewClient(llm.Options{
		Provider:    ch.Provider,
		Model:       ch.Model,
		BaseURL:     ch.BaseURL,
		Temperature: ch.Temperature,
		MaxTokens:   ch.MaxTokens,
		Policy:      RemotePolicy(c),
	})
}

func NewOCR(c *config.Config) (port.OCREngine, error) {
	switch c.OCR.Engine {
	case "tesseract", "":
		engine := ocr.NewTesseractEngine(c.OCR.Language, c.OCR.DPI, c.OCR.PdftoppmPath, c.OCR.TesseractPath)
		if c.OCR.PdfinfoPath != "" {
			engine.PdfinfoPath = c.OCR.PdfinfoPath
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unsupported ocr engine: %s", c.OCR.Engine)
	}
}

// NewArchiver returns nil when archiving is disabled.
func NewArchiver(c *config.Config) (port.Archiver, error) {
	a := c.Archive
	if !a.Enabled {
		return nil, nil
	}
	archiver, err := archive.NewS3Archiver(archive.Config{
		Bucket:    a.Bucket,
		Prefix:    a.Prefix,
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		AccessKey: os.Getenv(a.AccessKeyEnv),
		SecretKey: os.Getenv(a.SecretKeyEnv),
	})
	if err != nil {
		return nil, err
	}
	return archiver, nil
}

// Credentials reads API keys from the environment variables the config
// names. Callers resolve them once and pass them down explicitly.
func Credentials(c *config.Config) domain.Credentials {
	var out domain.Credentials
	if c.Embedding.APIKeyEnv != "" {
		out.Embedding = os.Getenv(c.Embedding.APIKeyEnv)
	}
	if c.Chat.APIKeyEnv != "" {
		out.Chat = os.Getenv(c.Chat.APIKeyEnv)
	}
	return out
}
