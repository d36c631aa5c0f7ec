package cli

import (
	"context"
	"fmt"
	"strconv"
	"syscall"

	"github.com/andy/invoicer/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage back-office users",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user (prompts for the password)",
	RunE: func(cmd *cobra.Command, args []string) error {
		firstname, _ := cmd.Flags().GetString("firstname")
		lastname, _ := cmd.Flags().GetString("lastname")
		email, _ := cmd.Flags().GetString("email")

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		return runAs(cmd, func(ctx context.Context) error {
			user, err := appInstance.UserService.Create(ctx, service.CreateUserInput{
				Firstname: firstname,
				Lastname:  lastname,
				Email:     email,
				Password:  string(password),
			})
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			fmt.Printf("✓ User created: %s <%s> (ID: %d)\n", user.FullName(), user.Email, user.ID)
			return nil
		})
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := appInstance.UserService.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		if len(users) == 0 {
			fmt.Println("No users found")
			return nil
		}

		fmt.Printf("%-5s %-30s %-35s %-20s\n", "ID", "Name", "Email", "Last login")
		fmt.Println("------------------------------------------------------------------------------------------")
		for _, u := range users {
			last := "never"
			if u.LastConnexionAt.Valid {
				last = u.LastConnexionAt.Time.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%-5d %-30s %-35s %-20s\n", u.ID, truncate(u.FullName(), 30), truncate(u.Email, 35), last)
		}

		fmt.Printf("\nTotal: %d user(s)\n", len(users))
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user ID: %w", err)
		}

		if !confirmPrompt(fmt.Sprintf("Delete user #%d?", id)) {
			fmt.Println("Cancelled.")
			return nil
		}

		return runAs(cmd, func(ctx context.Context) error {
			if err := appInstance.UserService.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}
			fmt.Printf("✓ User deleted (ID: %d)\n", id)
			return nil
		})
	},
}

func init() {
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDeleteCmd)

	usersCreateCmd.Flags().String("firstname", "", "First name (required)")
	usersCreateCmd.Flags().String("lastname", "", "Last name (required)")
	usersCreateCmd.Flags().String("email", "", "Login email (required)")
	_ = usersCreateCmd.MarkFlagRequired("firstname")
	_ = usersCreateCmd.MarkFlagRequired("lastname")
	_ = usersCreateCmd.MarkFlagRequired("email")
}
