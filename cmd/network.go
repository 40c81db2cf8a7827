package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Inspect networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 10},
			{Title: "Display", Width: 22},
			{Title: "Chain ID", Width: 10},
			{Title: "Type", Width: 12},
			{Title: "Confirms", Width: 8},
			{Title: "Fee (ETH)", Width: 10},
		})
		for _, n := range reg.All() {
			name := n.Name
			if n.Name == cfg.DefaultNetwork {
				name += " *"
			}
			t.AddRow(ui.Row{
				ui.NetworkName(name),
				n.DisplayName,
				fmt.Sprintf("%d", n.ChainID),
				networkKind(n),
				fmt.Sprintf("%d", n.BlockConfirmations),
				chain.FormatEther(n.Raffle.EntranceFee),
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta("* default network"))
		return nil
	},
}

var networkShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a network's deploy parameters",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			networkFlag = args[0]
		}
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		p := n.Raffle
		pairs := [][2]string{
			{"Chain ID", fmt.Sprintf("%d", n.ChainID)},
			{"Type", networkKind(*n)},
			{"Confirmations", fmt.Sprintf("%d", n.BlockConfirmations)},
			{"Entrance fee", chain.FormatEther(p.EntranceFee) + " ETH"},
			{"Interval", p.Interval.String()},
			{"Gas lane", p.GasLane.Hex()},
			{"Callback gas", fmt.Sprintf("%d", p.CallbackGasLimit)},
		}
		if !n.Development {
			pairs = append(pairs,
				[2]string{"VRF coordinator", p.VRFCoordinator.Hex()},
				[2]string{"Explorer", n.Explorer})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock(n.DisplayName, pairs))
		return nil
	},
}

func networkKind(n chain.Network) string {
	switch {
	case n.Development && !n.Persistent:
		return "dev (memory)"
	case n.Development:
		return "dev"
	default:
		return "live"
	}
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkShowCmd)
}
