package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"docintel/config"
	"docintel/internal/bootstrap"
	"docintel/internal/domain"
	"docintel/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Working directory holding docintel.yaml and .docintel/")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results, including those under the match threshold")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./data -q \"query\"")
		fmt.Println("\nShows the similarity of the closest stored documents, including")
		fmt.Println("those that fall under the retrieval threshold, to help judge")
		fmt.Println("whether the embedding model separates related and unrelated text.")
		os.Exit(1)
	}

	if err := run(context.Background(), os.Stdout, *dir, *query, *topK); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, dir, query string, topK int) error {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	st, err := bootstrap.OpenStore(ctx, cfg, dir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("embedder not available: %w", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}
	if stats.Embeddings == 0 {
		return errors.New("no embeddings stored - run 'docintel ingest' first")
	}

	fmt.Fprintln(w, "SIMILARITY BENCHMARK")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Embeddings stored: %d\n", stats.Embeddings)
	fmt.Fprintf(w, "Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Fprintf(w, "Dimension: %d\n", embedder.Dimension())
	fmt.Fprintf(w, "Match threshold: %.2f\n", usecase.MatchThreshold)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Query: \"%s\"\n", query)
	fmt.Fprintln(w, strings.Repeat("-", 70))

	start := time.Now()
	queryVec, err := embedder.Embed(ctx, bootstrap.Credentials(cfg).Embedding, query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}
	embedTime := time.Since(start)
	fmt.Fprintf(w, "Query embedded: %d dimensions in %s\n\n", len(queryVec), embedTime.Round(time.Millisecond))

	start = time.Now()
	results, err := st.MatchDocuments(ctx, queryVec, -1, topK)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	searchTime := time.Since(start)

	fmt.Fprintf(w, "Top %d by similarity:\n\n", len(results))

	matched := 0
	for i, r := range results {
		rating := "BELOW"
		if r.Similarity >= usecase.MatchThreshold {
			rating = "MATCH"
			matched++
		}

		fmt.Fprintf(w, "%d. [%s %.3f] %s\n", i+1, rating, r.Similarity, label(r.Document))
		fmt.Fprintf(w, "   %s\n\n", preview(r.Document.Content, 150))
	}

	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "QUALITY METRICS:\n")
	if len(results) > 0 {
		fmt.Fprintf(w, "  Top-1 similarity:   %.3f\n", results[0].Similarity)
		if len(results) > matched && matched > 0 {
			gap := results[matched-1].Similarity - results[matched].Similarity
			fmt.Fprintf(w, "  Threshold gap:      %.3f\n", gap)
		}
	}
	fmt.Fprintf(w, "  Retrieved matches:  %d\n", matched)
	fmt.Fprintf(w, "  Search time:        %s\n", searchTime.Round(time.Microsecond))
	return nil
}

// preview flattens content to one line of at most n runes.
func preview(content string, n int) string {
	r := []rune(strings.ReplaceAll(content, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

func label(doc domain.Document) string {
	if name := doc.Metadata[domain.MetaFileName]; name != "" {
		return name
	}
	return doc.ID
}
