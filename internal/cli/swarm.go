package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmpay/internal/app/verify"
	"github.com/tutu-network/swarmpay/internal/domain"
)

func init() {
	swarmCreateCmd.Flags().Uint64Var(&swarmPower, "power", 0, "Total compute power of the swarm")
	swarmListCmd.Flags().IntVar(&swarmLimit, "limit", 20, "Maximum swarms to show")

	swarmCmd.AddCommand(swarmCreateCmd, swarmShowCmd, swarmListCmd, swarmSignCmd)
	rootCmd.AddCommand(swarmCmd)
}

var (
	swarmPower uint64
	swarmLimit int
)

var swarmCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Register swarms and sign task attestations",
}

var swarmCreateCmd = &cobra.Command{
	Use:   "create MEMBER...",
	Short: "Register a swarm led by the local identity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		members := make([]domain.Identity, 0, len(args))
		for _, a := range args {
			id, err := domain.ParseIdentity(a)
			if err != nil {
				return fmt.Errorf("member %q: %w", a, err)
			}
			members = append(members, id)
		}

		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		sw, err := d.Swarms.CreateSwarm(cmd.Context(), d.Identity(), members, swarmPower)
		if err != nil {
			return err
		}
		return printSwarm(sw)
	},
}

var swarmShowCmd = &cobra.Command{
	Use:   "show SWARM_ID",
	Short: "Show a swarm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		sw, err := d.Swarms.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printSwarm(sw)
	},
}

var swarmListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List swarms, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		swarms, err := d.Swarms.List(cmd.Context(), swarmLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(swarms)
		}
		if len(swarms) == 0 {
			fmt.Println("No swarms registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLEADER\tMEMBERS\tPOWER\tSCORE\tCREATED")
		for _, s := range swarms {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				s.ID, s.Leader.Short(), len(s.Members), s.TotalPower, s.PerformanceScore, formatTime(s.CreatedAt))
		}
		return w.Flush()
	},
}

var swarmSignCmd = &cobra.Command{
	Use:   "sign TASK_ID",
	Short: "Sign a task hash as a swarm member, printing IDENTITY:SIGNATURE",
	Long: `Sign a task's hash with the local key. Pass the output to
'swarmpay task complete --member' on the worker's node.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		task, err := d.Tasks.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		sig := d.Keypair.SignDigest(verify.TaskHash(task))
		fmt.Printf("%s:%s\n", d.Identity(), sig)
		return nil
	},
}

func printSwarm(s *domain.Swarm) error {
	if jsonOutput {
		return printJSON(s)
	}
	fmt.Printf("ID:          %s\n", s.ID)
	fmt.Printf("Leader:      %s\n", s.Leader)
	fmt.Printf("Power:       %d\n", s.TotalPower)
	fmt.Printf("Score:       %d\n", s.PerformanceScore)
	fmt.Printf("Completed:   %d\n", s.TasksCompleted)
	fmt.Printf("Created:     %s\n", formatTime(s.CreatedAt))
	fmt.Println("Members:")
	for _, m := range s.Members {
		fmt.Printf("  %s\n", m)
	}
	return nil
}
