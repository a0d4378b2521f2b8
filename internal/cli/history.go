package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent question/answer exchanges",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of exchanges to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.RecentExchanges(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No exchanges recorded yet.")
		return nil
	}
	for _, r := range records {
		fmt.Printf("[%s] Q: %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Question)
		fmt.Printf("   A: %s\n\n", r.Answer)
	}
	return nil
}
