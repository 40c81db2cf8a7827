package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Fprintln(out, string(data))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configSetNetworkCmd = &cobra.Command{
	Use:   "set-network [name]",
	Short: "Set the default network",
	Long: `Set the network commands run against when --network is not given.
Without a name an interactive picker is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			items := make([]ui.PickerItem, 0, len(reg.All()))
			for _, n := range reg.All() {
				items = append(items, ui.PickerItem{
					Label:    n.Name,
					SubLabel: fmt.Sprintf("%s, chain %d", n.DisplayName, n.ChainID),
					Value:    n.Name,
				})
			}
			picked, err := ui.PickItem("Select default network", items, cfg.DefaultNetwork)
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
				return nil
			}
			name = picked
		}

		n, err := reg.GetByName(name)
		if err != nil {
			return fmt.Errorf("unknown network %q, run `rafflekit network list` to see all networks", name)
		}
		cfg.DefaultNetwork = n.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default network set to %q", n.Name)))
		return nil
	},
}

var configSetExplorerKeyCmd = &cobra.Command{
	Use:   "set-explorer-key <network> <key>",
	Short: "Store the block explorer API key used for verification",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("unknown network %q", args[0])
		}
		cfg.SetExplorerKey(n.Name, args[1])
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Explorer key for %s saved", n.Name)))
		return nil
	},
}

var configSetFrontEndCmd = &cobra.Command{
	Use:   "set-front-end <on|off>",
	Short: "Enable or disable the front-end export on deploy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "on", "true":
			cfg.FrontEnd.Update = true
		case "off", "false":
			cfg.FrontEnd.Update = false
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Front-end export %s", args[0])))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configSetNetworkCmd, configSetExplorerKeyCmd, configSetFrontEndCmd)
}
