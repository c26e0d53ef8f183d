package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/reportkit/internal/content"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var username, email, password, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := client.CreateUser(cmd.Context(), content.UserInput{
				Username: username,
				Email:    email,
				Password: password,
				Role:     role,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Printf("Created user %d: %s (%s)\n", user.ID, user.Username, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "New account username")
	cmd.Flags().StringVar(&email, "email", "", "New account email")
	cmd.Flags().StringVar(&password, "password", "", "New account password")
	cmd.Flags().StringVar(&role, "role", "", "Role for the new account")
	return cmd
}
