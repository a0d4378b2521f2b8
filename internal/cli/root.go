package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"ragtutor/config"
	"ragtutor/internal/logger"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Textbook tutor - index chapters and answer questions from them",
	Long: `tutor indexes textbook chapters into a vector index and answers
questions grounded in the indexed content, with citations back to the
chapters and sections the answer came from. It can also produce cached
reading-level and translation variants of chapter content.

Example usage:
  tutor ingest ./docs              # Index chapter files
  tutor ask "What is a sensor?"    # Answer from the indexed corpus
  tutor personalize chapter-01 --level beginner
  tutor translate chapter-01 --language Urdu`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine, environment variables still apply.
		_ = godotenv.Load()

		logger.SetVerbose(verbose)

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(".")
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tutor.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
