package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every table and recreate an empty database",
	Long: `Drop every table and recreate an empty database, including users,
history and the invoice counter.

Examples:
  invoicer reset          # asks for confirmation
  invoicer reset --yes    # no confirmation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirmPrompt("This will delete ALL data (users, clients, invoices, history). Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.DB.Reset(); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}

		fmt.Println("All data has been deleted.")
		return nil
	},
}

func confirmPrompt(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}
