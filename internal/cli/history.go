package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [table] [id]",
	Short: "Show the change history of a record",
	Long: `Show the change history of a record, oldest first.

Examples:
  invoicer history clients 4
  invoicer history invoices 12 --limit 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1], "record")
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetUint64("limit")

		records, err := appInstance.HistoryService.List(cmd.Context(), args[0], id, limit, 0)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No history found")
			return nil
		}

		for _, r := range records {
			doc := r.Changes
			if doc == nil {
				doc = r.Value
			}
			raw, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to render history: %w", err)
			}
			fmt.Printf("%s  %-6s user #%-4d %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Kind, r.UserID, raw)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Uint64("limit", 20, "Maximum number of records")
}
