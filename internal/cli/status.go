package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"ragtutor/internal/adapter/index"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and provider health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	fmt.Printf("Embedding:  %s (%s)\n", cfg.Embedding.Provider, cfg.Embedding.Model)
	fmt.Printf("Index:      %s, collection %q\n", cfg.Index.Provider, cfg.Index.Collection)
	fmt.Printf("Generator:  %s\n", cfg.Generator.Model)

	gen := newGenerator(cfg)
	if !gen.Configured() {
		fmt.Println("Generation: not configured (set ANTHROPIC_API_KEY)")
	} else if err := gen.Ping(ctx); err != nil {
		fmt.Printf("Generation: unreachable (%v)\n", err)
	} else {
		fmt.Println("Generation: ok")
	}

	if cfg.Index.Provider == "qdrant" {
		pingQdrant(ctx)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Documents:  %d ingested\n", len(docs))
	return nil
}

func pingQdrant(ctx context.Context) {
	idx, _, err := newIndex(GetConfig())
	if err != nil {
		fmt.Printf("Index:      %v\n", err)
		return
	}
	if q, ok := idx.(*index.QdrantIndex); ok {
		if err := q.Ping(ctx); err != nil {
			fmt.Printf("Index:      unreachable (%v)\n", err)
		} else {
			fmt.Println("Index:      ok")
		}
	}
}
