package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"ragtutor/internal/adapter/chunker"
	"ragtutor/internal/usecase"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored documents",
	Long: `Re-chunk and re-embed every stored document and replace the vector
index contents. Useful after changing the embedding model or index
provider.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
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

	ingestUC := usecase.NewIngestUseCase(chunker.NewSectionChunker(), embedder, idx, st, cfg.Index.Collection)
	result, err := ingestUC.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("Indexed %d passages into %q\n", result.PassagesIndexed, cfg.Index.Collection)
	return nil
}
