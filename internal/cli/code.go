package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agroloop/agroloop/internal/daemon"
	"github.com/agroloop/agroloop/internal/domain"
)

// ─── code ───────────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(codeCmd)
	codeCmd.AddCommand(codeIssueCmd, codeRedeemCmd, codeListCmd, codeStatsCmd, codeCleanupCmd)

	codeIssueCmd.Flags().String("farmer", "", "Farmer id (default: signed-in user)")
	codeIssueCmd.Flags().StringP("waste", "w", "", "Waste type id")
	codeIssueCmd.Flags().Float64P("quantity", "q", 0, "Quantity in kg")
	codeIssueCmd.Flags().StringP("location", "l", "", "Collection location")
	for _, c := range []*cobra.Command{codeListCmd, codeStatsCmd} {
		c.Flags().String("farmer", "", "Farmer id (default: signed-in user)")
	}
}

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Issue and manage verification codes",
	Long: `Verification codes confirm a residue pickup. An officer issues a code
for a farmer; the farmer enters it when logging the waste. Codes expire
after 24 hours and can be used once.`,
}

// farmerFlag is --farmer or the signed-in uid. A session is required either way.
func farmerFlag(cmd *cobra.Command, app *daemon.App) (string, error) {
	uid, err := requireUID(app)
	if err != nil {
		return "", err
	}
	if f, _ := cmd.Flags().GetString("farmer"); f != "" {
		return f, nil
	}
	return uid, nil
}

var codeIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a verification code",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			farmer, err := farmerFlag(cmd, app)
			if err != nil {
				return err
			}
			waste, _ := cmd.Flags().GetString("waste")
			qty, _ := cmd.Flags().GetFloat64("quantity")
			loc, _ := cmd.Flags().GetString("location")
			code, err := app.Codes.Issue(domain.VerificationRequest{
				WasteType: waste,
				Quantity:  qty,
				Location:  loc,
				FarmerID:  farmer,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, code, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Verification code: %s\n", code.Code)
				fmt.Fprintf(w, "   Farmer:  %s\n", code.FarmerID)
				fmt.Fprintf(w, "   Expires: %s\n", code.ExpiresAt.Local().Format(time.DateTime))
			})
		})
	},
}

var codeRedeemCmd = &cobra.Command{
	Use:   "redeem CODE",
	Short: "Redeem one of your codes without logging waste",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			farmer, err := requireUID(app)
			if err != nil {
				return err
			}
			code, err := app.Codes.Redeem(args[0], farmer)
			if err != nil {
				return err
			}
			return printResult(cmd, code, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Code %s redeemed (%s, %.1f kg)\n", code.Code, code.WasteType, code.Quantity)
			})
		})
	},
}

var codeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a farmer's codes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			farmer, err := farmerFlag(cmd, app)
			if err != nil {
				return err
			}
			codes := app.Codes.List(farmer)
			return printResult(cmd, codes, func(w io.Writer) {
				if len(codes) == 0 {
					fmt.Fprintln(w, "No verification codes.")
					return
				}
				now := time.Now()
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tWASTE\tQTY\tLOCATION\tSTATUS\tEXPIRES")
				for _, c := range codes {
					fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%s\t%s\n",
						c.Code, c.WasteType, c.Quantity, c.Location, codeStatus(c, now),
						c.ExpiresAt.Local().Format(time.DateTime))
				}
				tw.Flush()
			})
		})
	},
}

func codeStatus(c domain.VerificationCode, now time.Time) string {
	switch {
	case c.IsUsed:
		return "used"
	case c.Expired(now):
		return "expired"
	}
	return "active"
}

var codeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show code counts for a farmer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			farmer, err := farmerFlag(cmd, app)
			if err != nil {
				return err
			}
			s := app.Codes.Stats(farmer)
			return printResult(cmd, s, func(w io.Writer) {
				fmt.Fprintf(w, "Total: %d  Used: %d  Active: %d  Expired: %d\n", s.Total, s.Used, s.Active, s.Expired)
			})
		})
	},
}

var codeCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired, unused codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			n, err := app.Codes.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d expired codes.\n", n)
			return nil
		})
	},
}
