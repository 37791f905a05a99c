package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docintel/internal/adapter/fs"
	"docintel/internal/bootstrap"
	"docintel/internal/usecase"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "OCR PDFs and store them with embeddings",
	Long: `Recognize the text of each PDF, embed it, and store the document and its
embedding. Directories are searched with the ingest include/exclude globs.

Examples:
  docintel ingest invoice.pdf
  docintel ingest ./scans ./more-scans --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the batch report as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	found, err := walker.Expand(args)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("no PDF files found")
	}

	engine, err := bootstrap.NewOCR(cfg)
	if err != nil {
		return err
	}
	embedder, err := bootstrap.NewEmbedder(cfg)
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

	files := make([]usecase.SourceFile, len(found))
	for i, f := range found {
		files[i] = usecase.SourceFile{Path: f.Path}
	}

	ingestUC := usecase.NewIngestUseCase(engine, embedder, st, archiver, cfg.Ingest.SkipDuplicates)

	var progress usecase.ProgressFunc
	if !ingestJSON {
		progress = newIngestProgress()
	}

	result, err := ingestUC.IngestBatch(ctx, creds.Embedding, files, progress)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printIngestReport(result)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", result.Failed, len(result.Files))
	}
	return nil
}

// newIngestProgress draws a progress bar on stderr with a running ETA.
func newIngestProgress() usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(done, total int, _ usecase.FileResult) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}
}

func printIngestReport(result *usecase.IngestResult) {
	fmt.Println()
	for _, f := range result.Files {
		switch f.Status {
		case usecase.FileIngested:
			fmt.Printf("  %-9s %s: Extracted %d words (%d pages, %.0f%% confidence) -> %s\n", f.Status, f.Name, f.Words, f.Pages, f.Confidence, f.DocumentID)
		case usecase.FileDuplicate:
			fmt.Printf("  %-9s %s: same text as %s\n", f.Status, f.Name, f.DocumentID)
		default:
			fmt.Printf("  %-9s %s: %s\n", f.Status, f.Name, f.Error)
		}
	}

	fmt.Printf("\nIngest complete in %s:\n", formatDuration(result.Elapsed))
	fmt.Printf("  Ingested:   %d\n", result.Ingested)
	fmt.Printf("  Duplicates: %d\n", result.Duplicates)
	fmt.Printf("  Failed:     %d\n", result.Failed)
	if result.Orphaned > 0 {
		fmt.Printf("\n%d documents were stored without an embedding. Run 'docintel reconcile' to repair them.\n", result.Orphaned)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
