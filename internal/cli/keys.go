package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmpay/internal/daemon"
	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/security"
)

func init() {
	rootCmd.AddCommand(keysCmd)
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show the local identity, creating a keypair if none exists",
	RunE:  runKeys,
}

func runKeys(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	kp, err := security.LoadOrCreateKeypair(cfg.Store.Dir)
	if err != nil {
		return err
	}
	pub, priv := security.KeyPaths(cfg.Store.Dir)
	id := kp.Identity()

	if jsonOutput {
		return printJSON(map[string]any{
			"identity":    id,
			"account":     domain.IdentityAccount(id),
			"public_key":  pub,
			"private_key": priv,
		})
	}
	fmt.Printf("Identity:    %s\n", id)
	fmt.Printf("Account:     %s\n", domain.IdentityAccount(id))
	fmt.Printf("Public key:  %s\n", pub)
	fmt.Printf("Private key: %s\n", priv)
	return nil
}
