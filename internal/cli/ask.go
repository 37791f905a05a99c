package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"docintel/internal/adapter/llm"
	"docintel/internal/bootstrap"
	"docintel/internal/usecase"
)

var (
	askQuestion    string
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from stored documents",
	Long: `Retrieve the documents most similar to the question and ask the chat model
to answer using them as context.

Examples:
  docintel ask -q "What is the total due on invoice 1042?"
  docintel ask -q "Who signed the lease?" --show-context`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved context sent to the model")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		return err
	}
	chat, err := bootstrap.NewChat(cfg)
	if err != nil {
		return err
	}
	st, err := bootstrap.OpenStore(ctx, cfg, GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	answerUC := usecase.NewAnswerUseCase(usecase.NewRetrieveUseCase(embedder, st), chat)
	answer, err := answerUC.Answer(ctx, creds, askQuestion)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askShowContext {
		fmt.Println("=== Context ===")
		if len(answer.Matches) == 0 {
			fmt.Println("(no matching documents)")
		} else {
			fmt.Println(usecase.BuildContext(answer.Matches))
		}
		fmt.Println()
	}

	fmt.Println("=== Answer ===")
	fmt.Println(answer.Text)

	if len(answer.Matches) > 0 {
		fmt.Println("\n=== Sources ===")
		for i, m := range answer.Matches {
			fmt.Printf("  [%d] %s (similarity: %.3f)\n", i+1, displayName(m.Document), m.Similarity)
		}
	}

	fmt.Printf("\nResponse time: %.2fs\n", answer.Elapsed.Seconds())

	if client, ok := chat.(*llm.Client); ok {
		s := client.Stats()
		slog.Debug("chat usage", "model", client.ModelName(), "calls", s.TotalCalls,
			"input_chars", s.TotalInputChars, "output_chars", s.TotalOutputChars)
	}
	return nil
}
