package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docintel.
type Config struct {
	OCR       OCRConfig       `yaml:"ocr"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Remote    RemoteConfig    `yaml:"remote"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// OCRConfig holds text recognition configuration.
type OCRConfig struct {
	Engine        string `yaml:"engine"`   // "tesseract"
	Language      string `yaml:"language"` // tesseract language code, e.g. "eng", "eng+fra"
	DPI           int    `yaml:"dpi"`
	PdftoppmPath  string `yaml:"pdftoppm_path"`
	PdfinfoPath   string `yaml:"pdfinfo_path"`
	TesseractPath string `yaml:"tesseract_path"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "mistral", "ollama", "custom", "mock"
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimension      int    `yaml:"dimension"`
	SendDimensions bool   `yaml:"send_dimensions"`
}

// ChatConfig holds chat completion configuration.
type ChatConfig struct {
	Provider    string  `yaml:"provider"` // "mistral", "openai", "deepseek", "local", "custom", "mock"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// StoreConfig selects and locates the document store.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "bolt", "sqlite", "postgres", "memory"
	Path    string `yaml:"path"`    // bolt/sqlite file, relative to the working dir
	DSNEnv  string `yaml:"dsn_env"` // environment variable holding the postgres DSN
	RLSRole string `yaml:"rls_role"`
}

// IngestConfig holds batch ingestion configuration.
type IngestConfig struct {
	Includes       []string `yaml:"includes"`
	Excludes       []string `yaml:"excludes"`
	SkipDuplicates bool     `yaml:"skip_duplicates"`
}

// ArchiveConfig holds optional S3 source archiving configuration.
type ArchiveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// RemoteConfig bounds calls to the embedding and chat services.
type RemoteConfig struct {
	TimeoutSecs     int `yaml:"timeout_secs"`
	MaxRetries      int `yaml:"max_retries"`
	BaseDelayMillis int `yaml:"base_delay_ms"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Engine:   "tesseract",
			Language: "eng",
			DPI:      300,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      384,
			SendDimensions: true,
		},
		Chat: ChatConfig{
			Provider:    "mistral",
			Model:       "mistral-large-latest",
			APIKeyEnv:   "MISTRAL_API_KEY",
			Temperature: 0,
		},
		Store: StoreConfig{
			Backend: "bolt",
			DSNEnv:  "DOCINTEL_POSTGRES_DSN",
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.pdf", "**/*.PDF"},
			Excludes: []string{"**/.git/**", "**/.docintel/**"},
		},
		Archive: ArchiveConfig{
			Region:       "us-east-1",
			Prefix:       "originals",
			AccessKeyEnv: "DOCINTEL_S3_ACCESS_KEY",
			SecretKeyEnv: "DOCINTEL_S3_SECRET_KEY",
		},
		Remote: RemoteConfig{
			TimeoutSecs:     60,
			MaxRetries:      3,
			BaseDelayMillis: 500,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	switch c.Store.Backend {
	case "bolt", "sqlite", "memory":
	case "postgres":
		if c.Store.DSNEnv == "" {
			return fmt.Errorf("store.dsn_env is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend: %q", c.Store.Backend)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive is enabled")
	}
	if c.Remote.MaxRetries < 0 {
		return fmt.Errorf("remote.max_retries must not be negative")
	}
	return nil
}

// RemoteTimeout returns the per-attempt timeout.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSecs) * time.Second
}

// RemoteBaseDelay returns the first retry delay.
func (c *Config) RemoteBaseDelay() time.Duration {
	return time.Duration(c.Remote.BaseDelayMillis) * time.Millisecond
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docintel.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docintel.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docintel", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the bolt or sqlite file path for dir.
func (c *Config) StorePath(dir string) string {
	if c.Store.Path != "" {
		if filepath.IsAbs(c.Store.Path) {
			return c.Store.Path
		}
		return filepath.Join(dir, c.Store.Path)
	}
	name := "docs.db"
	if c.Store.Backend == "sqlite" {
		name = "docs.sqlite"
	}
	return filepath.Join(dir, ".docintel", name)
}

// EnsureDataDir ensures the .docintel directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docintel"), 0755)
}
