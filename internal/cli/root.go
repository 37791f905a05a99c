package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docintel/config"
	"docintel/internal/bootstrap"
	"docintel/internal/domain"
	"docintel/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	creds    domain.Credentials
)

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Document intelligence - OCR, embed and ask questions about PDFs",
	Long: `docintel extracts text from PDFs with OCR, stores each document with a
vector embedding, and answers questions using the most similar documents as
context for a chat model.

Example usage:
  docintel ingest ./invoices                 # OCR and store every PDF
  docintel search -q "invoice total"         # Find similar documents
  docintel ask -q "What is the total due?"   # Answer from stored documents
  docintel serve --addr :8080                # Run the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := loadDotEnv(rootDir); err != nil {
			return err
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		if err := logging.Setup(os.Stderr, level, cfg.Logging.Format); err != nil {
			return err
		}

		creds = bootstrap.Credentials(cfg)
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context, which aborts in-flight OCR and remote calls.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docintel.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadDotEnv reads .env from dir when present. Variables already set in the
// environment win.
func loadDotEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
