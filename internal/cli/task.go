package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmpay/internal/app/verify"
	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/security"
)

func init() {
	taskCreateCmd.Flags().Uint64Var(&taskUnits, "units", 0, "Computation units")
	taskCreateCmd.Flags().Uint64Var(&taskReward, "reward", 0, "Reward to escrow")
	taskCreateCmd.MarkFlagRequired("reward")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (OPEN, COMPLETED, FAILED)")
	taskListCmd.Flags().StringVar(&taskCreator, "creator", "", "Filter by creator identity")
	taskListCmd.Flags().IntVar(&taskLimit, "limit", 20, "Maximum tasks to show")

	taskCompleteCmd.Flags().StringVar(&completeResult, "result", "", "Result hash (hex)")
	taskCompleteCmd.Flags().StringVar(&completeLeader, "leader", "", "Swarm leader identity (defaults to the local identity)")
	taskCompleteCmd.Flags().StringArrayVar(&completeMembers, "member", nil, "Swarm member as IDENTITY[:SIGNATURE]; repeatable")
	taskCompleteCmd.Flags().Uint64Var(&completePower, "power", 0, "Swarm total compute power")
	taskCompleteCmd.MarkFlagRequired("result")

	taskCmd.AddCommand(taskCreateCmd, taskShowCmd, taskListCmd, taskCompleteCmd, taskFailCmd, taskHashCmd)
	rootCmd.AddCommand(taskCmd)
}

var (
	taskUnits   uint64
	taskReward  uint64
	taskStatus  string
	taskCreator string
	taskLimit   int

	completeResult  string
	completeLeader  string
	completeMembers []string
	completePower   uint64
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, inspect and settle tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task, escrowing its reward from the local account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		task, err := d.Tasks.CreateTask(cmd.Context(), d.Identity(), taskUnits, taskReward)
		if err != nil {
			return err
		}
		return printTask(task)
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show TASK_ID",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
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
		return printTask(task)
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := domain.TaskFilter{Limit: taskLimit}
		if taskStatus != "" {
			st, err := domain.ParseTaskStatus(taskStatus)
			if err != nil {
				return err
			}
			f.Status = &st
		}
		if taskCreator != "" {
			id, err := domain.ParseIdentity(taskCreator)
			if err != nil {
				return err
			}
			f.Creator = &id
		}

		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		tasks, err := d.Tasks.List(cmd.Context(), f)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(tasks)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks. Run 'swarmpay task create --reward N' to open one.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tUNITS\tREWARD\tCREATOR\tCREATED")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
				t.ID, t.Status, t.ComputationUnits, t.Reward, t.Creator.Short(), formatTime(t.CreatedAt))
		}
		return w.Flush()
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete TASK_ID",
	Short: "Submit a completion as the local identity and collect the reward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := domain.ParseDigest(completeResult)
		if err != nil {
			return fmt.Errorf("result: %w", err)
		}

		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		task, err := d.Tasks.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		proof, err := buildProof(d.Keypair, verify.TaskHash(task))
		if err != nil {
			return err
		}

		st, err := d.Rewards.Complete(cmd.Context(), task.ID, d.Identity(), result, proof)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(st)
		}
		fmt.Printf("Task %s completed: reward %d + bonus %d = %d paid to %s\n",
			task.ID, st.Reward, st.Bonus, st.Total, st.Worker.Short())
		return nil
	},
}

var taskFailCmd = &cobra.Command{
	Use:   "fail TASK_ID",
	Short: "Fail an open task and refund its escrow to the creator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		task, err := d.Tasks.FailTask(cmd.Context(), args[0], d.Identity())
		if err != nil {
			return err
		}
		return printTask(task)
	},
}

var taskHashCmd = &cobra.Command{
	Use:   "hash TASK_ID",
	Short: "Print the hash swarm members sign for a task",
	Args:  cobra.ExactArgs(1),
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
		fmt.Println(verify.TaskHash(task))
		return nil
	},
}

// buildProof assembles a swarm proof from the --leader, --member and
// --power flags. Without members the local identity is a swarm of one.
// Local members listed without a signature are signed with the local key.
func buildProof(kp *security.Keypair, taskHash domain.Digest) (domain.SwarmProof, error) {
	self := kp.Identity()
	proof := domain.SwarmProof{Leader: self, TotalPower: completePower, TaskHash: taskHash}
	if completeLeader != "" {
		leader, err := domain.ParseIdentity(completeLeader)
		if err != nil {
			return proof, fmt.Errorf("leader: %w", err)
		}
		proof.Leader = leader
	}

	members := completeMembers
	if len(members) == 0 {
		members = []string{self.String()}
	}
	for _, m := range members {
		id, sig, err := parseMember(m)
		if err != nil {
			return proof, fmt.Errorf("member %q: %w", m, err)
		}
		if id == self && sig == (domain.Signature{}) {
			sig = kp.SignDigest(taskHash)
		}
		proof.Members = append(proof.Members, id)
		proof.Signatures = append(proof.Signatures, sig)
	}
	return proof, nil
}

func printTask(t *domain.Task) error {
	if jsonOutput {
		return printJSON(t)
	}
	fmt.Printf("ID:        %s\n", t.ID)
	fmt.Printf("Status:    %s\n", t.Status)
	fmt.Printf("Pool:      %s\n", t.PoolID)
	fmt.Printf("Creator:   %s\n", t.Creator)
	fmt.Printf("Units:     %d\n", t.ComputationUnits)
	fmt.Printf("Reward:    %d\n", t.Reward)
	fmt.Printf("Created:   %s\n", formatTime(t.CreatedAt))
	if c := t.Completion; c != nil {
		fmt.Printf("Worker:    %s\n", c.Worker)
		fmt.Printf("Result:    %s\n", c.ResultHash)
		fmt.Printf("Leader:    %s\n", c.Proof.Leader)
		fmt.Printf("Members:   %d\n", len(c.Proof.Members))
		fmt.Printf("Completed: %s\n", formatTime(c.CompletedAt))
	}
	return nil
}
