package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
	"github.com/spf13/cobra"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Manage invoices",
	Long:  `List invoices, change their state, generate their PDF and export a year.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := repository.InvoiceFilter{Newest: true, WithLines: true}

		if cmd.Flags().Changed("client") {
			id, _ := cmd.Flags().GetInt64("client")
			filter.ClientID = &id
		}
		if cmd.Flags().Changed("state") {
			raw, _ := cmd.Flags().GetString("state")
			state, err := domain.ParseInvoiceState(raw)
			if err != nil {
				return err
			}
			filter.State = &state
		}
		filter.Year, _ = cmd.Flags().GetInt("year")
		filter.IncludeArchived, _ = cmd.Flags().GetBool("archived")

		invoices, err := appInstance.InvoiceService.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices found")
			return nil
		}

		fmt.Printf("%-5s %-10s %-25s %-20s %-12s %-10s %-12s\n", "ID", "Number", "Name", "Client", "Total", "State", "Due")
		fmt.Println("--------------------------------------------------------------------------------------------------")

		var sum float64
		for _, invoice := range invoices {
			clientName := fmt.Sprintf("Client #%d", invoice.ClientID)
			if invoice.Client != nil {
				clientName = invoice.Client.Name
			}
			due := "-"
			if invoice.DueAt.Valid {
				due = invoice.DueAt.Time.Format("2006-01-02")
			}

			fmt.Printf("%-5d %-10s %-25s %-20s %-12.2f %-10s %-12s\n",
				invoice.ID,
				invoice.Number,
				truncate(invoice.Name, 25),
				truncate(clientName, 20),
				invoice.Total(),
				invoice.State,
				due,
			)
			sum += invoice.Total()
		}

		fmt.Printf("\nTotal: %d invoice(s), %.2f %s\n", len(invoices), sum, appInstance.Config.Invoice.Currency)
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an invoice with its lines and activity log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "invoice")
		if err != nil {
			return err
		}

		invoice, err := appInstance.InvoiceService.Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		fmt.Printf("Invoice %s: %s\n", invoice.Number, invoice.Name)
		if invoice.Client != nil {
			fmt.Printf("  Client:    %s\n", invoice.Client.Name)
		}
		fmt.Printf("  State:     %s\n", invoice.State)
		fmt.Printf("  Reference: %s\n", invoice.Reference)
		fmt.Println()

		for _, line := range invoice.ActiveLines() {
			name := fmt.Sprintf("Service #%d", line.ServiceID)
			if line.Service != nil {
				name = line.Service.Name
			}
			fmt.Printf("  %-30s %8.2f x %10.2f = %10.2f\n", truncate(name, 30), line.Quantity, line.Amount, line.Total())
		}
		fmt.Printf("  %-30s %35.2f\n", "Total", invoice.Total())
		fmt.Println()

		for _, log := range invoice.Logs {
			fmt.Printf("  %s  %-10s %s\n", log.CreatedAt.Local().Format("2006-01-02 15:04"), log.Code, log.Details)
		}
		return nil
	},
}

var invoicesStateCmd = &cobra.Command{
	Use:   "state [id] [state]",
	Short: "Set the state of an invoice",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "invoice")
		if err != nil {
			return err
		}
		state, err := domain.ParseInvoiceState(args[1])
		if err != nil {
			return err
		}

		return runAs(cmd, func(ctx context.Context) error {
			invoice, err := appInstance.InvoiceService.ChangeState(ctx, id, state)
			if err != nil {
				return fmt.Errorf("failed to change state: %w", err)
			}
			fmt.Printf("✓ Invoice %s is now %s\n", invoice.Number, invoice.State)
			return nil
		})
	},
}

var invoicesGenerateCmd = &cobra.Command{
	Use:   "generate [id]",
	Short: "Generate the PDF of an invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "invoice")
		if err != nil {
			return err
		}

		return runAs(cmd, func(ctx context.Context) error {
			generated, err := appInstance.InvoiceService.Generate(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to generate invoice: %w", err)
			}

			fmt.Printf("✓ Invoice %s generated\n", generated.Invoice.Number)
			fmt.Printf("  Total: %.2f %s\n", generated.Total, appInstance.Config.Invoice.Currency)
			if generated.Invoice.DueAt.Valid {
				fmt.Printf("  Due:   %s\n", generated.Invoice.DueAt.Time.Format("2006-01-02"))
			}
			if generated.Path != "" {
				fmt.Printf("  File:  %s\n", generated.Path)
			}
			return nil
		})
	},
}

var invoicesExportCmd = &cobra.Command{
	Use:   "export [year]",
	Short: "Export the invoices of a year to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year: %w", err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("invoices_%d.xlsx", year)
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()

		if err := appInstance.InvoiceService.Export(cmd.Context(), year, f); err != nil {
			return fmt.Errorf("failed to export invoices: %w", err)
		}

		fmt.Printf("✓ Invoices of %d exported to %s\n", year, output)
		return f.Close()
	},
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", what, s)
	}
	return id, nil
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesStateCmd)
	invoicesCmd.AddCommand(invoicesGenerateCmd)
	invoicesCmd.AddCommand(invoicesExportCmd)

	invoicesListCmd.Flags().Int64("client", 0, "Filter by client ID")
	invoicesListCmd.Flags().String("state", "", "Filter by state (CREATED, GENERATED, SENT, PAID, ...)")
	invoicesListCmd.Flags().Int("year", 0, "Filter by creation year")
	invoicesListCmd.Flags().Bool("archived", false, "Include archived invoices")

	invoicesExportCmd.Flags().StringP("output", "o", "", "Output file (default invoices_<year>.xlsx)")
}
