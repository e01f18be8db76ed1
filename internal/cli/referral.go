package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmpay/internal/domain"
)

func init() {
	referralCmd.AddCommand(referralRegisterCmd, referralShowCmd)
	rootCmd.AddCommand(referralCmd)
}

var referralCmd = &cobra.Command{
	Use:   "referral",
	Short: "Register and inspect referrers",
}

var referralRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the local identity as a referrer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		info, err := d.Referrals.Register(cmd.Context(), d.Identity())
		if err != nil {
			return err
		}
		return printReferral(info)
	},
}

var referralShowCmd = &cobra.Command{
	Use:   "show [REFERRER]",
	Short: "Show a referrer (defaults to the local identity)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		referrer := d.Identity()
		if len(args) == 1 {
			if referrer, err = domain.ParseIdentity(args[0]); err != nil {
				return err
			}
		}
		info, err := d.Referrals.Get(cmd.Context(), referrer)
		if err != nil {
			return err
		}
		return printReferral(info)
	},
}

func printReferral(r *domain.ReferralInfo) error {
	if jsonOutput {
		return printJSON(r)
	}
	fmt.Printf("ID:               %s\n", r.ID)
	fmt.Printf("Referrer:         %s\n", r.Referrer)
	fmt.Printf("Total rewards:    %d\n", r.TotalRewards)
	fmt.Printf("Active referrals: %d\n", r.ActiveReferrals)
	fmt.Printf("Registered:       %s\n", formatTime(r.CreatedAt))
	return nil
}
