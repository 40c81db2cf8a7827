package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var (
	exportAddresses string
	exportABI       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the raffle address and ABI for the web front-end",
	Long: `Write the deployed raffle's address (keyed by chain id) and ABI to the
front-end constants files, like the 02-update-front-end script, whether or
not front_end.update is set.

Examples:
  rafflekit export --network localhost
  rafflekit export --addresses web/contract.json --abi web/abi.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fe := cfg.FrontEnd
		if exportAddresses != "" {
			fe.AddressesFile = exportAddresses
		}
		if exportABI != "" {
			fe.ABIFile = exportABI
		}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if err := env.ExportFrontEnd(fe); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Success("Front-end constants updated"))
			fmt.Fprintln(out, ui.Meta("  addresses: "+fe.AddressesFile))
			fmt.Fprintln(out, ui.Meta("  abi:       "+fe.ABIFile))
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportAddresses, "addresses", "", "addresses file (default: front_end.addresses_file)")
	exportCmd.Flags().StringVar(&exportABI, "abi", "", "ABI file (default: front_end.abi_file)")
}
