package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmpay/internal/daemon"
	"github.com/tutu-network/swarmpay/internal/domain"
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")
	fundCmd.Flags().StringVar(&fundTo, "to", "", "Account to fund (defaults to the local account)")
	fundCmd.Flags().StringVar(&fundReason, "reason", "cli fund", "Ledger memo")

	rootCmd.AddCommand(balanceCmd, historyCmd, fundCmd)
}

var (
	historyLimit int
	fundTo       string
	fundReason   string
)

// accountArg resolves an optional ACCOUNT argument, defaulting to the
// local identity's account.
func accountArg(d *daemon.Daemon, args []string) (domain.Account, error) {
	if len(args) == 0 {
		return domain.IdentityAccount(d.Identity()), nil
	}
	return parseAccountArg(args[0])
}

var balanceCmd = &cobra.Command{
	Use:   "balance [ACCOUNT]",
	Short: "Show an account balance (defaults to the local account)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		acct, err := accountArg(d, args)
		if err != nil {
			return err
		}
		bal, err := d.Credit.Balance(cmd.Context(), acct)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"account": acct, "balance": bal})
		}
		fmt.Printf("%s: %d\n", acct, bal)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [ACCOUNT]",
	Short: "Show ledger entries for an account, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		acct, err := accountArg(d, args)
		if err != nil {
			return err
		}
		entries, err := d.Credit.History(cmd.Context(), acct, historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Printf("No ledger entries for %s.\n", acct)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTYPE\tSIDE\tAMOUNT\tBALANCE\tTASK\tMEMO")
		for _, e := range entries {
			task := e.TaskID
			if task == "" {
				task = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				formatTime(e.Timestamp), e.Type, e.EntryType, e.Amount, e.Balance, task, e.Description)
		}
		return w.Flush()
	},
}

var fundCmd = &cobra.Command{
	Use:   "fund AMOUNT",
	Short: "Mint funds into an account on the local ledger",
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

		acct := domain.IdentityAccount(d.Identity())
		if fundTo != "" {
			if acct, err = parseAccountArg(fundTo); err != nil {
				return err
			}
		}
		bal, err := d.Credit.Fund(cmd.Context(), acct, amount, fundReason)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"account": acct, "balance": bal})
		}
		fmt.Printf("Funded %s with %d; balance %d\n", acct, amount, bal)
		return nil
	},
}
