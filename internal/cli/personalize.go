package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"ragtutor/internal/domain"
	"ragtutor/internal/usecase"
)

var (
	personalizeLevel   string
	personalizeRefresh bool
)

var personalizeCmd = &cobra.Command{
	Use:   "personalize <document-id>",
	Short: "Rewrite a chapter for a reading level",
	Long: `Produce a variant of an ingested chapter adapted to a reading
level (beginner, intermediate or advanced). Variants are cached; a
repeated request returns the cached copy without regenerating.

Examples:
  tutor personalize chapter-01 --level beginner
  tutor personalize chapter-03 --level advanced --refresh`,
	Args: cobra.ExactArgs(1),
	RunE: runPersonalize,
}

func init() {
	rootCmd.AddCommand(personalizeCmd)
	personalizeCmd.Flags().StringVarP(&personalizeLevel, "level", "l", "beginner", "reading level: beginner, intermediate, advanced")
	personalizeCmd.Flags().BoolVar(&personalizeRefresh, "refresh", false, "regenerate even if a cached variant exists")
}

func runPersonalize(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	docID := args[0]

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.GetDocument(cmd.Context(), docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %q is not ingested. Run 'tutor ingest' first", docID)
		}
		return err
	}

	transformUC := usecase.NewTransformUseCase(st, newGenerator(cfg),
		cfg.Generator.AdaptMaxTokens, cfg.Generator.TranslateMaxTokens, cfg.Generator.TargetLanguage)

	result, err := transformUC.Personalize(cmd.Context(), docID, doc.RawText, personalizeLevel, personalizeRefresh)
	if err != nil {
		return fmt.Errorf("personalize failed: %w", err)
	}

	fmt.Println(result.Content)
	if result.Cached {
		fmt.Fprintln(cmd.ErrOrStderr(), "(cached)")
	}
	return nil
}
