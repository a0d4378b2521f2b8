package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"ragtutor/internal/domain"
	"ragtutor/internal/usecase"
)

var (
	translateLanguage string
	translateRefresh  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <document-id>",
	Short: "Translate a chapter",
	Long: `Produce a translated variant of an ingested chapter. Translations
are cached per language; a repeated request returns the cached copy.

Examples:
  tutor translate chapter-01
  tutor translate chapter-01 --language Spanish --refresh`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVarP(&translateLanguage, "language", "L", "", "target language (default from config)")
	translateCmd.Flags().BoolVar(&translateRefresh, "refresh", false, "regenerate even if a cached variant exists")
}

func runTranslate(cmd *cobra.Command, args []string) error {
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

	result, err := transformUC.Translate(cmd.Context(), docID, doc.RawText, translateLanguage, translateRefresh)
	if err != nil {
		return fmt.Errorf("translate failed: %w", err)
	}

	fmt.Println(result.Content)
	if result.Cached {
		fmt.Fprintln(cmd.ErrOrStderr(), "(cached)")
	}
	return nil
}
