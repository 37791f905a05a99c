package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docintel/internal/bootstrap"
	"docintel/internal/server"
	"docintel/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve upload, search and question answering over HTTP.

Requests may carry X-Embedding-Key and X-Chat-Key headers; otherwise the
keys from the configured environment variables are used.

Examples:
  docintel serve
  docintel serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	engine, err := bootstrap.NewOCR(cfg)
	if err != nil {
		return err
	}
	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	chat, err := bootstrap.NewChat(cfg)
	if err != nil {
		return err
	}
	archiver, err := bootstrap.NewArchiver(cfg)
	if err != nil {
		return err
	}
	st, err := bootstrap.OpenStore(ctx, cfg, GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	retrieveUC := usecase.NewRetrieveUseCase(embedder, st)
	state := &server.State{
		Ingest:         usecase.NewIngestUseCase(engine, embedder, st, archiver, cfg.Ingest.SkipDuplicates),
		Retrieve:       retrieveUC,
		Answer:         usecase.NewAnswerUseCase(retrieveUC, chat),
		Store:          st,
		Credentials:    creds,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return server.Run(ctx, addr, server.NewRouter(state))
}
