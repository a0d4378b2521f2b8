package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"ragtutor/internal/domain"
	"ragtutor/internal/usecase"
)

var (
	askTopK      int
	askThreshold float64
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed corpus",
	Long: `Answer a question using only passages retrieved from the indexed
chapters, with citations back to the sections the answer came from.

Examples:
  tutor ask "What is a proprioceptive sensor?"
  tutor ask "How do actuators work?" --top-k 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "minimum similarity score (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

// askResponse is the JSON shape of an answered question.
type askResponse struct {
	Answer     string          `json:"answer"`
	Sources    []domain.Source `json:"sources"`
	TokensUsed int             `json:"tokens_used"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	idx, closeIdx, err := newIndex(cfg)
	if err != nil {
		return err
	}
	defer closeIdx()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}
	threshold := cfg.Retrieve.ScoreThreshold
	if askThreshold > 0 {
		threshold = askThreshold
	}

	askUC := usecase.NewAskUseCase(
		usecase.NewRetriever(embedder, idx, cfg.Index.Collection),
		usecase.NewSynthesizer(newGenerator(cfg), cfg.Generator.AnswerMaxTokens),
		st,
		topK, threshold,
	)

	answer, err := askUC.Ask(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(askResponse{
			Answer:     answer.Text,
			Sources:    answer.Sources,
			TokensUsed: answer.TokensUsed,
		})
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range answer.Sources {
			fmt.Printf("  - %s / %s (%.2f)\n", s.DocumentID, s.SectionTitle, s.Similarity)
		}
	}
	return nil
}
