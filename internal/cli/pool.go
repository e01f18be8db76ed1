package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmpay/internal/domain"
)

func init() {
	poolInitCmd.Flags().Uint64Var(&poolMinStake, "min-stake", 0, "Minimum stake")
	poolInitCmd.Flags().Uint64Var(&poolLeaderBonus, "leader-bonus", 10, "Leader bonus percent (0-100)")
	poolInitCmd.Flags().Uint64Var(&poolReferralBonus, "referral-bonus", 5, "Referral bonus percent (0-100)")

	poolCmd.AddCommand(poolInitCmd, poolShowCmd, poolFundCmd)
	rootCmd.AddCommand(poolCmd)
}

var (
	poolMinStake      uint64
	poolLeaderBonus   uint64
	poolReferralBonus uint64
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Manage the stake pool",
}

var poolInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the stake pool with the local identity as authority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		pool, err := d.Pools.Initialize(cmd.Context(), d.Identity(), poolMinStake, poolLeaderBonus, poolReferralBonus)
		if err != nil {
			return err
		}
		return printPool(pool, 0)
	},
}

var poolShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stake pool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		pool, err := d.Pools.Current(cmd.Context())
		if err != nil {
			return err
		}
		reserve, err := d.Credit.Balance(cmd.Context(), pool.ReserveAccount())
		if err != nil {
			return err
		}
		return printPool(pool, reserve)
	},
}

var poolFundCmd = &cobra.Command{
	Use:   "fund-reserve AMOUNT",
	Short: "Move funds from the local account into the leader bonus reserve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}

		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		pool, err := d.Pools.Current(cmd.Context())
		if err != nil {
			return err
		}
		reserve, err := d.Pools.FundReserve(cmd.Context(), pool.ID, domain.IdentityAccount(d.Identity()), amount)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"pool": pool.ID, "reserve": reserve})
		}
		fmt.Printf("Reserve of pool %s is now %d\n", pool.ID, reserve)
		return nil
	},
}

func printPool(p *domain.Pool, reserve int64) error {
	if jsonOutput {
		return printJSON(map[string]any{"pool": p, "reserve": reserve})
	}
	fmt.Printf("ID:             %s\n", p.ID)
	fmt.Printf("Authority:      %s\n", p.Authority)
	fmt.Printf("Reward rate:    %d\n", p.RewardRate)
	fmt.Printf("Min stake:      %d\n", p.MinStake)
	fmt.Printf("Total staked:   %d\n", p.TotalStaked)
	fmt.Printf("Leader bonus:   %d%%\n", p.LeaderBonus)
	fmt.Printf("Referral bonus: %d%%\n", p.ReferralBonus)
	fmt.Printf("Reserve:        %d\n", reserve)
	fmt.Printf("Created:        %s\n", formatTime(p.CreatedAt))
	return nil
}
