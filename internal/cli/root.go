// Package cli implements the agroloop command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agroloop/agroloop/internal/daemon"
)

var rootCmd = &cobra.Command{
	Use:   "agroloop",
	Short: "Turn crop residue into eco-credits",
	Long: `AgroLoop records crop residue collected from farmers, credits it with
eco-credits once a verification code confirms the pickup, and lets farmers
spend those credits on rewards. It also offers crop disease detection and a
farming advisor that work offline.

Data lives in $AGROLOOP_HOME (default ~/.agroloop).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("home", "", "Data directory (overrides $AGROLOOP_HOME)")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openApp loads the configuration and opens the wired services.
func openApp(cmd *cobra.Command) (*daemon.App, error) {
	home, _ := cmd.Flags().GetString("home")
	cfg, err := daemon.Load(home)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.Home, err)
	}
	return daemon.Open(cfg)
}

// withApp runs fn against an open app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(app *daemon.App, out io.Writer) error) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app, cmd.OutOrStdout())
}

// printResult prints v as JSON when --json is set, otherwise calls text.
func printResult(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

// requireUID returns the signed-in uid with a hint when nobody is signed in.
func requireUID(app *daemon.App) (string, error) {
	uid, err := app.Session.UID()
	if err != nil {
		return "", fmt.Errorf("%w\nSign in with 'agroloop signin -e <email>'", err)
	}
	return uid, nil
}
