package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"docintel/internal/bootstrap"
	"docintel/internal/domain"
)

var docJSON bool

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Inspect and manage stored documents",
}

var docShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a document and whether it has an embedding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := bootstrap.OpenStore(ctx, GetConfig(), GetRootDir())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		doc, err := st.GetDocument(ctx, args[0])
		if err != nil {
			return err
		}
		emb, err := st.GetEmbedding(ctx, doc.ID)
		if err != nil {
			return err
		}

		if docJSON {
			output, _ := json.MarshalIndent(struct {
				domain.Document
				HasEmbedding bool `json:"has_embedding"`
			}{doc, emb != nil}, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("ID:        %s\n", doc.ID)
		fmt.Printf("Created:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Embedding: %v\n", emb != nil)
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, doc.Metadata[k])
		}
		fmt.Println()
		fmt.Println(doc.Content)
		return nil
	},
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := bootstrap.OpenStore(ctx, GetConfig(), GetRootDir())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		docs, err := st.ListDocuments(ctx)
		if err != nil {
			return err
		}
		printDocuments(docs)
		return nil
	},
}

var docOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List documents stored without an embedding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := bootstrap.OpenStore(ctx, GetConfig(), GetRootDir())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		docs, err := st.ListOrphans(ctx)
		if err != nil {
			return err
		}
		printDocuments(docs)
		return nil
	},
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its embedding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := bootstrap.OpenStore(ctx, GetConfig(), GetRootDir())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		if err := st.DeleteDocument(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document, embedding and orphan counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := bootstrap.OpenStore(ctx, GetConfig(), GetRootDir())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		if docJSON {
			output, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		fmt.Printf("Store:      %s\n", GetConfig().Store.Backend)
		fmt.Printf("Documents:  %d\n", stats.Documents)
		fmt.Printf("Embeddings: %d\n", stats.Embeddings)
		fmt.Printf("Orphans:    %d\n", stats.Orphans)
		return nil
	},
}

func init() {
	docCmd.PersistentFlags().BoolVar(&docJSON, "json", false, "output as JSON")
	statsCmd.Flags().BoolVar(&docJSON, "json", false, "output as JSON")
	docCmd.AddCommand(docShowCmd, docListCmd, docOrphansCmd, docDeleteCmd)
	rootCmd.AddCommand(docCmd, statsCmd)
}

func printDocuments(docs []domain.Document) {
	if docJSON {
		if docs == nil {
			docs = []domain.Document{}
		}
		output, _ := json.MarshalIndent(docs, "", "  ")
		fmt.Println(string(output))
		return
	}
	if len(docs) == 0 {
		fmt.Println("No documents.")
		return
	}
	for _, d := range docs {
		fmt.Printf("%s  %s  %s\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04"), d.Metadata[domain.MetaFileName])
	}
}
