package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the deployed raffle on the block explorer",
	Long: `Submit the raffle source to the network's Etherscan-compatible API and
wait for the verdict. The API key comes from ETHER_SCAN_KEY or
explorer_keys.<network> in config.json.

Examples:
  rafflekit verify --network sepolia`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		if n.Development {
			return fmt.Errorf("%s is a development chain, nothing to verify", n.Name)
		}
		v, err := newVerifier(n)
		if err != nil {
			return err
		}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			spin := ui.NewSpinner(cmd.ErrOrStderr(), "Verifying...")
			spin.Start()
			err := env.Verify(ctx, v)
			spin.Stop()
			if err != nil {
				return err
			}
			r, _ := env.Raffle()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Success("Raffle verified"))
			if n.Explorer != "" {
				fmt.Fprintln(out, ui.Hint(n.Explorer+"/address/"+r.Address().Hex()+"#code"))
			}
			return nil
		})
	},
}
