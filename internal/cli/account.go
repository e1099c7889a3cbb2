package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agroloop/agroloop/internal/daemon"
	"github.com/agroloop/agroloop/internal/domain"
)

// ─── Account commands ───────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(signupCmd, signinCmd, signoutCmd, whoamiCmd, deleteAccountCmd)

	for _, c := range []*cobra.Command{signupCmd, signinCmd} {
		c.Flags().StringP("email", "e", "", "Account email")
		c.Flags().StringP("password", "p", "", "Password (read from stdin when omitted)")
		c.MarkFlagRequired("email")
	}
	deleteAccountCmd.Flags().StringP("password", "p", "", "Password (read from stdin when omitted)")
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd, func(app *daemon.App, email, password string) (domain.User, error) {
			return app.Session.SignUp(email, password)
		}, "Account created")
	},
}

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in to an existing account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd, func(app *daemon.App, email, password string) (domain.User, error) {
			return app.Session.SignIn(email, password)
		}, "Signed in")
	},
}

func withCredentials(cmd *cobra.Command, fn func(*daemon.App, string, string) (domain.User, error), done string) error {
	email, _ := cmd.Flags().GetString("email")
	password, err := passwordFlag(cmd)
	if err != nil {
		return err
	}
	return withApp(cmd, func(app *daemon.App, out io.Writer) error {
		u, err := fn(app, email, password)
		if err != nil {
			return err
		}
		return printResult(cmd, u, func(w io.Writer) {
			fmt.Fprintf(w, "✅ %s as %s\n", done, u.Email)
		})
	})
}

// passwordFlag returns --password or the first line of stdin.
func passwordFlag(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			if err := app.Session.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Signed out.")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			u, ok := app.Session.Current()
			if !ok {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}
			return printResult(cmd, u, func(w io.Writer) {
				totals := app.Ledger.Totals(u.UID)
				fmt.Fprintf(w, "%s (uid %s)\n", u.Email, u.UID)
				fmt.Fprintf(w, "  Eco-credits:  %d\n", totals.EcoCredits)
				fmt.Fprintf(w, "  Waste logged: %d\n", totals.WasteLogged)
			})
		})
	},
}

var deleteAccountCmd = &cobra.Command{
	Use:   "delete-account",
	Short: "Permanently delete the signed-in account and its data",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordFlag(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			if err := app.Session.DeleteAccount(password); err != nil {
				return err
			}
			fmt.Fprintln(out, "Account deleted.")
			return nil
		})
	},
}
