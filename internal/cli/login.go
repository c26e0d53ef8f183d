package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a session",
		Long:  "Authenticate against the content API and persist the session locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				fmt.Print("Username: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read username: %w", err)
				}
				username = strings.TrimSpace(line)
			}
			if username == "" {
				return fmt.Errorf("username cannot be empty")
			}

			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(raw)
			}
			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}

			sess, err := manager.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			fmt.Printf("Signed in as %s (%s)\n", sess.User.DisplayName, sess.User.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username (prompted if omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted if omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager.Logout()
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !manager.IsAuthenticated() {
				return fmt.Errorf("not signed in (run `reportkit login`)")
			}
			sess := manager.Session()

			fmt.Printf("%s (%s)\n", sess.User.DisplayName, sess.User.Username)
			if sess.User.Email != "" {
				fmt.Printf("Email: %s\n", sess.User.Email)
			}
			if len(sess.User.Roles) > 0 {
				fmt.Printf("Roles: %s\n", strings.Join(sess.User.Roles, ", "))
			}
			fmt.Printf("Signed in since: %s\n", sess.IssuedAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}
