package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ccoveille/go-safecast"
	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"
	"github.com/quietdash/quietdash/internal/notify/email"
	"github.com/quietdash/quietdash/internal/waitlist"
	"github.com/spf13/cobra"
)

var waitlistCmd = &cobra.Command{
	Use:   "waitlist",
	Short: "Inspect the launch waitlist",
}

var waitlistStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show waitlist statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		mailer, err := email.New(cfg.Email, cfg.MarketingURL)
		if err != nil {
			return err
		}
		stats, err := waitlist.New(db, mailer, cfg.ReferralBaseURL).Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Waitlist Statistics:")
		fmt.Printf("Total Signups: %s\n", humanize.Comma(stats.TotalSignups))
		fmt.Printf("Verified: %s\n", humanize.Comma(stats.TotalVerified))
		fmt.Printf("Joined Today: %s\n", humanize.Comma(stats.JoinedToday))
		fmt.Printf("Verification Rate: %d%%\n", stats.VerificationRate)
		return nil
	},
}

var waitlistListFlags struct {
	Limit uint
	Page  uint
}

var waitlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List waitlist entries in queue order",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := safecast.Convert[int](waitlistListFlags.Limit)
		if err != nil {
			return fmt.Errorf("invalid limit: %w", err)
		}
		page, err := safecast.Convert[int](waitlistListFlags.Page)
		if err != nil {
			return fmt.Errorf("invalid page: %w", err)
		}
		if page < 1 {
			page = 1
		}

		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		entries, err := db.GetWaitlistEntries(cmd.Context(), limit, (page-1)*limit)
		if err != nil {
			return fmt.Errorf("failed to list waitlist entries: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No waitlist entries found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tEMAIL\tVERIFIED\tREFERRALS\tTIER\tJOINED") //nolint:errcheck
		for _, e := range entries {
			verified := "no"
			if e.IsVerified {
				verified = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", //nolint:errcheck
				humanize.Comma(int64(e.QueuePosition)),
				e.Email,
				verified,
				e.ReferralCount,
				waitlist.TierFor(e.ReferralCount),
				timediff.TimeDiff(e.CreatedAt),
			)
		}
		return w.Flush()
	},
}

func init() {
	waitlistListCmd.Flags().UintVar(&waitlistListFlags.Limit, "limit", 20, "Number of entries per page")
	waitlistListCmd.Flags().UintVar(&waitlistListFlags.Page, "page", 1, "Page to show")

	waitlistCmd.AddCommand(waitlistStatsCmd, waitlistListCmd)
	rootCmd.AddCommand(waitlistCmd)
}
