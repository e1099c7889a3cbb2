package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agroloop/agroloop/internal/daemon"
	"github.com/agroloop/agroloop/internal/domain"
)

// ─── ledger ─────────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd, ledgerSummaryCmd, ledgerClearCmd, ledgerRecomputeCmd)

	ledgerListCmd.Flags().StringP("type", "t", "", "Filter by type (waste_log, disease_detection, reward_redemption)")
	ledgerClearCmd.Flags().Bool("yes", false, "Confirm clearing all activities")
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the activity ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			uid, err := requireUID(app)
			if err != nil {
				return err
			}
			list := app.Ledger.Activities(uid)
			if t, _ := cmd.Flags().GetString("type"); t != "" {
				at := domain.ActivityType(t)
				if !at.Valid() {
					return domain.Invalid("type", "unknown activity type "+t)
				}
				list = app.Ledger.ByType(uid, at)
			}
			return printResult(cmd, list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "No activities yet.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tTYPE\tTITLE\tCREDITS")
				for _, a := range list {
					credits := ""
					if a.Credits != nil {
						credits = fmt.Sprintf("%+d", *a.Credits)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Date, a.Type, a.Title, credits)
				}
				tw.Flush()
			})
		})
	},
}

var ledgerSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show credit balance and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			uid, err := requireUID(app)
			if err != nil {
				return err
			}
			s := app.Ledger.Summarize(uid)
			return printResult(cmd, s, func(w io.Writer) {
				fmt.Fprintf(w, "Eco-credits:        %d\n", s.EcoCredits)
				fmt.Fprintf(w, "Waste logged:       %d\n", s.WasteLogged)
				fmt.Fprintf(w, "Credits earned:     %d\n", s.EarnedCredits)
				fmt.Fprintf(w, "Credits spent:      %d\n", s.SpentCredits)
				fmt.Fprintf(w, "Disease detections: %d\n", s.Detections)
				fmt.Fprintf(w, "Rewards redeemed:   %d\n", s.Redemptions)
				fmt.Fprintf(w, "Credits per log:    mean %.1f, median %.1f\n", s.MeanCreditsPerLog, s.MedianCreditsPerLog)
			})
		})
	},
}

var ledgerClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every activity and reset the counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to clear the ledger without --yes")
		}
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			uid, err := requireUID(app)
			if err != nil {
				return err
			}
			if err := app.Ledger.Clear(uid); err != nil {
				return err
			}
			fmt.Fprintln(out, "Ledger cleared.")
			return nil
		})
	},
}

var ledgerRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild the cached counters from the activity list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			uid, err := requireUID(app)
			if err != nil {
				return err
			}
			t, err := app.Ledger.Recompute(uid)
			if err != nil {
				return err
			}
			return printResult(cmd, t, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Counters rebuilt: %d eco-credits, %d waste logs\n", t.EcoCredits, t.WasteLogged)
			})
		})
	},
}
