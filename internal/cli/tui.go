package cli

import (
	"context"

	"github.com/andy/invoicer/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the terminal UI",
	Long: `Launch the interactive terminal user interface.

Changes made from the TUI are attributed to the --as user.`,
	RunE: launchTUI,
}

func launchTUI(cmd *cobra.Command, args []string) error {
	return runAs(cmd, func(ctx context.Context) error {
		return tui.Run(ctx, appInstance)
	})
}
