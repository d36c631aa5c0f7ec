package cli

import (
	"context"
	"fmt"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/spf13/cobra"
)

var appInstance *app.App

// actingAs is the email of the user mutations are attributed to
var actingAs string

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Back-office for clients, services and invoices",
	Long: `Invoicer manages clients, a service catalog and invoices with Swiss QR-bill
payment slips. Every change is recorded in an audit history.

By default, running invoicer without arguments launches the interactive TUI.
Use "invoicer serve" to expose the HTTP API.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return launchTUI(cmd, args)
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

// runAs runs fn under the identity of --as, or anonymously. Anonymous
// changes are applied but not recorded in the history.
func runAs(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	userID := reqctx.AnonymousUserID
	if actingAs != "" {
		user, err := appInstance.UserRepo.GetByEmail(ctx, actingAs)
		if err != nil {
			return fmt.Errorf("failed to resolve --as user: %w", err)
		}
		userID = user.ID
	}

	return reqctx.Run(ctx, userID, func(ctx context.Context) error {
		ctx = reqctx.WithLogger(ctx, appInstance.Logger)
		return fn(ctx)
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actingAs, "as", "", "Email of the user performing the changes")
	// Read by main before the app is built; declared here for help and parsing.
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default ~/.config/invoicer/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
