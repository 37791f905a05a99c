package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docintel/internal/bootstrap"
	"docintel/internal/usecase"
)

var (
	reconcileDelete bool
	reconcileJSON   bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair documents stored without an embedding",
	Long: `Find documents whose embedding insert failed and either embed them again
(default) or delete them.

Examples:
  docintel reconcile
  docintel reconcile --delete`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().BoolVar(&reconcileDelete, "delete", false, "delete orphaned documents instead of re-embedding them")
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "output as JSON")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	st, err := bootstrap.OpenStore(ctx, cfg, GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	mode := usecase.ReconcileReembed
	if reconcileDelete {
		mode = usecase.ReconcileDelete
	}

	result, err := usecase.NewReconcileUseCase(embedder, st).Sweep(ctx, creds.Embedding, mode)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if reconcileJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Reconcile (%s) complete:\n", result.Mode)
		fmt.Printf("  Orphans found: %d\n", result.Orphans)
		fmt.Printf("  Repaired:      %d\n", result.Repaired)
		fmt.Printf("  Deleted:       %d\n", result.Deleted)
		if len(result.Errors) > 0 {
			fmt.Printf("\nErrors:\n")
			for _, e := range result.Errors {
				fmt.Printf("  - %s\n", e)
			}
		}
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d orphans could not be reconciled", len(result.Errors))
	}
	return nil
}
