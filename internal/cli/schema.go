package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docintel/internal/adapter/store"
	"docintel/internal/bootstrap"
)

var schemaInfo bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the Postgres schema for the configured dimension",
	Long: `Print the SQL that creates the documents and document_embeddings tables,
the vector index and the match_documents function. With --info, report the
schema version and vector dimension of the configured store instead.

Examples:
  docintel schema > schema.sql
  docintel schema --info`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaInfo, "info", false, "show the configured store's schema version and dimension")
}

type schemaReporter interface {
	SchemaInfo(ctx context.Context) (store.SchemaInfo, error)
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if !schemaInfo {
		fmt.Print(store.PostgresSchema(cfg.Embedding.Dimension, cfg.Store.RLSRole))
		return nil
	}

	ctx := cmd.Context()
	st, err := bootstrap.OpenStore(ctx, cfg, GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	reporter, ok := st.(schemaReporter)
	if !ok {
		fmt.Printf("Backend %s keeps no schema.\n", cfg.Store.Backend)
		return nil
	}
	info, err := reporter.SchemaInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Backend:   %s\n", info.Backend)
	fmt.Printf("Version:   %d (current %d)\n", info.Version, store.CurrentSchemaVersion)
	fmt.Printf("Dimension: %d\n", info.Dimension)
	return nil
}
