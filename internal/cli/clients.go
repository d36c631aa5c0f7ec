package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/andy/invoicer/internal/service"
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage clients",
	Long:  `List, add, and archive clients.`,
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		includeArchived, _ := cmd.Flags().GetBool("archived")

		clients, err := appInstance.ClientRepo.List(cmd.Context(), includeArchived)
		if err != nil {
			return fmt.Errorf("failed to list clients: %w", err)
		}

		if len(clients) == 0 {
			fmt.Println("No clients found")
			return nil
		}

		fmt.Printf("%-5s %-30s %-25s %-20s %-10s\n", "ID", "Name", "Contact", "City", "Status")
		fmt.Println("------------------------------------------------------------------------------------------")

		for _, client := range clients {
			status := "Active"
			if client.Archived {
				status = "Archived"
			}
			fmt.Printf("%-5d %-30s %-25s %-20s %-10s\n",
				client.ID,
				truncate(client.Name, 30),
				truncate(client.ContactName(), 25),
				truncate(client.City.String, 20),
				status,
			)
		}

		fmt.Printf("\nTotal: %d client(s)\n", len(clients))
		return nil
	},
}

var clientsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := service.ClientInput{Name: args[0]}
		input.Firstname, _ = cmd.Flags().GetString("firstname")
		input.Lastname, _ = cmd.Flags().GetString("lastname")
		input.Email, _ = cmd.Flags().GetString("email")
		input.Address, _ = cmd.Flags().GetString("street")
		input.AddressNumber, _ = cmd.Flags().GetString("number")
		input.PostalCode, _ = cmd.Flags().GetString("postal-code")
		input.City, _ = cmd.Flags().GetString("city")

		return runAs(cmd, func(ctx context.Context) error {
			client, err := appInstance.ClientService.Create(ctx, input)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			fmt.Printf("✓ Client created: %s (ID: %d)\n", client.Name, client.ID)
			return nil
		})
	},
}

var clientsArchiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid client ID: %w", err)
		}

		return runAs(cmd, func(ctx context.Context) error {
			if err := appInstance.ClientService.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to archive client: %w", err)
			}
			fmt.Printf("✓ Client archived (ID: %d)\n", id)
			return nil
		})
	},
}

func init() {
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsAddCmd)
	clientsCmd.AddCommand(clientsArchiveCmd)

	clientsListCmd.Flags().Bool("archived", false, "Include archived clients")

	clientsAddCmd.Flags().String("firstname", "", "Contact first name (required)")
	clientsAddCmd.Flags().String("lastname", "", "Contact last name (required)")
	_ = clientsAddCmd.MarkFlagRequired("firstname")
	_ = clientsAddCmd.MarkFlagRequired("lastname")
	clientsAddCmd.Flags().String("email", "", "Contact email")
	clientsAddCmd.Flags().String("street", "", "Street")
	clientsAddCmd.Flags().String("number", "", "Building number")
	clientsAddCmd.Flags().String("postal-code", "", "Postal code")
	clientsAddCmd.Flags().String("city", "", "City")
}
