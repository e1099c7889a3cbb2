package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agroloop/agroloop/internal/app/farm"
	"github.com/agroloop/agroloop/internal/daemon"
	"github.com/agroloop/agroloop/internal/domain"
)

// ─── waste / reward / scan ──────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(wasteCmd, rewardCmd, scanCmd)
	wasteCmd.AddCommand(wasteLogCmd, wasteTypesCmd)
	rewardCmd.AddCommand(rewardListCmd, rewardRedeemCmd)

	wasteLogCmd.Flags().StringP("type", "t", "", "Waste type id (see 'agroloop waste types')")
	wasteLogCmd.Flags().Float64P("quantity", "q", 0, "Quantity in kg")
	wasteLogCmd.Flags().StringP("location", "l", "", "Collection location")
	wasteLogCmd.Flags().StringP("code", "c", "", "Verification code")
	rewardListCmd.Flags().String("category", "", "fertilizer, seeds, tools or services")
}

var wasteCmd = &cobra.Command{
	Use:   "waste",
	Short: "Log crop residue for eco-credits",
}

var wasteTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List waste types and credit rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		types := farm.WasteTypes()
		return printResult(cmd, types, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tCREDITS/KG")
			for _, t := range types {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", t.ID, t.Label, t.CreditsPerKg)
			}
			tw.Flush()
		})
	},
}

var wasteLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Log collected waste with its verification code",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			uid, err := requireUID(app)
			if err != nil {
				return err
			}
			var req farm.WasteLog
			req.WasteTypeID, _ = cmd.Flags().GetString("type")
			req.Quantity, _ = cmd.Flags().GetFloat64("quantity")
			req.Location, _ = cmd.Flags().GetString("location")
			req.Code, _ = cmd.Flags().GetString("code")

			a, err := app.Farm.LogWaste(uid, req)
			if err != nil {
				return err
			}
			return printResult(cmd, a, func(w io.Writer) {
				fmt.Fprintf(w, "✅ %s: +%d eco-credits\n", a.Title, a.CreditDelta())
				fmt.Fprintf(w, "   Balance: %d\n", app.Ledger.Totals(uid).EcoCredits)
			})
		})
	},
}

var rewardCmd = &cobra.Command{
	Use:   "reward",
	Short: "Spend eco-credits on rewards",
}

var rewardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rewards",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _ := cmd.Flags().GetString("category")
		list := farm.Rewards(domain.RewardCategory(cat))
		return printResult(cmd, list, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tCREDITS")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.ID, r.Title, r.Category, r.Credits)
			}
			tw.Flush()
		})
	},
}

var rewardRedeemCmd = &cobra.Command{
	Use:   "redeem REWARD_ID",
	Short: "Redeem a reward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			uid, err := requireUID(app)
			if err != nil {
				return err
			}
			a, err := app.Farm.RedeemReward(uid, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, a, func(w io.Writer) {
				fmt.Fprintf(w, "✅ %s (%d credits)\n", a.Title, a.CreditDelta())
				fmt.Fprintf(w, "   Balance: %d\n", app.Ledger.Totals(uid).EcoCredits)
			})
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan IMAGE",
	Short: "Check a crop photo for disease",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			uid, err := requireUID(app)
			if err != nil {
				return err
			}
			scan, err := app.Farm.ScanCrop(cmd.Context(), uid, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, scan, func(w io.Writer) {
				printDisease(w, scan.Result)
			})
		})
	},
}

func printDisease(w io.Writer, r domain.DiseaseResult) {
	if r.Detected {
		fmt.Fprintf(w, "⚠️  %s (%d%% confidence, %s severity)\n", r.DiseaseName, r.Confidence, r.Severity)
	} else {
		fmt.Fprintf(w, "No disease detected (%d%% confidence)\n", r.Confidence)
	}
	if r.Description != "" {
		fmt.Fprintf(w, "   %s\n", r.Description)
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "   • %s\n", rec)
	}
	if len(r.TreatmentOptions) > 0 {
		fmt.Fprintln(w, "   Treatment options:")
		for _, t := range r.TreatmentOptions {
			fmt.Fprintf(w, "   • %s\n", t)
		}
	}
	fmt.Fprintf(w, "   Source: %s\n", r.Provenance.Service)
}
