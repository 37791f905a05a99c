package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docintel/internal/bootstrap"
	"docintel/internal/domain"
	"docintel/internal/usecase"
)

var (
	searchText string
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find stored documents similar to a query",
	Long: fmt.Sprintf(`Embed the query and list stored documents with cosine similarity of at
least %.2f, most similar first, at most %d.

Examples:
  docintel search -q "invoice total"
  docintel search -q "lease agreement" --json`, usecase.MatchThreshold, usecase.MatchCount),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	matches, err := usecase.NewRetrieveUseCase(embedder, st).Retrieve(ctx, creds.Embedding, searchText)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if matches == nil {
			matches = []domain.Match{}
		}
		output, _ := json.MarshalIndent(matches, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(matches) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(matches), searchText)
	printMatches(matches)
	return nil
}

func printMatches(matches []domain.Match) {
	for i, m := range matches {
		fmt.Printf("--- [%d] %s (similarity: %.3f) ---\n", i+1, displayName(m.Document), m.Similarity)
		fmt.Println(truncate(m.Document.Content, 500))
		fmt.Println()
	}
}

func displayName(doc domain.Document) string {
	if name := doc.Metadata[domain.MetaFileName]; name != "" {
		return name + " " + doc.ID
	}
	return doc.ID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
