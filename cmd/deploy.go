package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var (
	deployTags  []string
	deployReset bool
	deployYes   bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the deploy scripts",
	Long: `Run the deploy scripts in order:

  00-deploy-mocks      VRF coordinator mock (development chains only)
  01-deploy-raffle     subscription, raffle, consumer registration, verification
  02-update-front-end  address and ABI export (front_end.update or UPDATE_FRONT_END)

Contracts already deployed on the network are reused. --reset wipes the
network first.

Examples:
  rafflekit deploy
  rafflekit deploy --tags mocks
  rafflekit deploy --network localhost --reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		if deployReset && n.Persistent && !deployYes {
			if !ui.ConfirmDanger(cmd.InOrStdin(), out, fmt.Sprintf("Wipe every contract and balance on %s?", n.Name)) {
				fmt.Fprintln(out, ui.Meta("Aborted."))
				return nil
			}
		}

		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			spin := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Deploying to %s...", n.Name))
			spin.Start()
			err := env.Deploy(ctx, deployReset, deployTags...)
			spin.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Deployed to %s", ui.NetworkName(n.DisplayName))))
			fmt.Fprintln(out, deploymentsTable(env))
			return nil
		})
	},
}

func deploymentsTable(env *devnet.Env) string {
	t := ui.NewTable([]ui.Column{
		{Title: "Contract", Width: 26},
		{Title: "Address", Width: 44},
		{Title: "Block", Width: 8},
		{Title: "Deployer", Width: 14},
	})
	for _, e := range env.Registry().Network(env.Network().Name) {
		t.AddRow(ui.Row{
			e.Name,
			ui.Addr(e.Address.Hex()),
			fmt.Sprintf("%d", e.Block),
			ui.TruncateAddr(e.Deployer.Hex()),
		})
	}
	return t.Render()
}

func init() {
	deployCmd.Flags().StringSliceVar(&deployTags, "tags", nil, "only run scripts with these tags (all, mocks, raffle, frontend)")
	deployCmd.Flags().BoolVar(&deployReset, "reset", false, "wipe the network before deploying")
	deployCmd.Flags().BoolVarP(&deployYes, "yes", "y", false, "skip the reset confirmation")
}
