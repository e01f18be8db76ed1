// Package cli implements the swarmpay command-line interface using Cobra.
// Commands operate on the local store with the local keypair as caller.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "swarmpay",
	Short: "Escrowed rewards for swarm compute",
	Long: `swarmpay runs a compute marketplace ledger: creators escrow rewards
for tasks, swarms of workers complete them, and verified completions are
paid exactly once with a leader bonus from the stake pool reserve.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log service activity to stdout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
