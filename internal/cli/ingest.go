package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"ragtutor/internal/adapter/chunker"
	"ragtutor/internal/domain"
	"ragtutor/internal/usecase"
)

var ingestPattern string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index chapter files for retrieval",
	Long: `Ingest chapter files from the given directory (default: current
directory) and rebuild the vector index. Each matching file becomes a
document whose id is the file name without extension.

Examples:
  tutor ingest ./docs
  tutor ingest ./docs --pattern "**/chapter-*.{md,mdx}"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestPattern, "pattern", "**/chapter-*.{md,mdx}", "glob pattern for chapter files")
}

func runIngest(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root)
	}

	docs, err := loadChapters(root, ingestPattern)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no chapter files matching %q under %s", ingestPattern, root)
	}

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

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetDescription("Chunking chapters"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	ingestUC.SetProgress(func(processed, total int) {
		bar.Set(processed)
	})

	fmt.Printf("Ingesting %d chapter(s) from %s...\n", len(docs), root)
	result, err := ingestUC.IngestCorpus(cmd.Context(), docs)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("Indexed %d passages from %d documents into %q\n",
		result.PassagesIndexed, result.DocumentsIngested, cfg.Index.Collection)
	return nil
}

// loadChapters reads every file under root matching the glob pattern.
// The document id is the base name without extension, so chapter-01.mdx
// and a later chapter-01.md overwrite the same document.
func loadChapters(root, pattern string) ([]domain.Document, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	docs := make([]domain.Document, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(filepath.Join(root, m))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", m, err)
		}
		base := filepath.Base(m)
		id := strings.TrimSuffix(base, filepath.Ext(base))
		docs = append(docs, domain.Document{ID: id, RawText: string(data)})
	}
	return docs, nil
}
