package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var increaseNoMine bool

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Control the block clock",
}

var timeIncreaseCmd = &cobra.Command{
	Use:   "increase <seconds>",
	Short: "Move the next block's timestamp forward (evm_increaseTime)",
	Long: `Move the timestamp of the next block forward and mine it, like
evm_increaseTime followed by evm_mine. Accepts seconds or a duration.

Examples:
  rafflekit time increase 31
  rafflekit time increase 2m --no-mine`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseSeconds(args[0])
		if err != nil {
			return err
		}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if err := env.IncreaseTime(d); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if increaseNoMine {
				fmt.Fprintln(out, ui.Success(fmt.Sprintf("Next block will be at least %s later", d.Truncate(time.Second))))
				return nil
			}
			num, ts := env.Mine()
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Mined block %d at %s", num, ts.UTC().Format(time.RFC3339))))
			return nil
		})
	},
}

var timeMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine an empty block (evm_mine)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			num, ts := env.Mine()
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Mined block %d at %s", num, ts.UTC().Format(time.RFC3339))))
			return nil
		})
	},
}

func init() {
	timeIncreaseCmd.Flags().BoolVar(&increaseNoMine, "no-mine", false, "only shift the clock, leave mining to the next transaction")
	timeCmd.AddCommand(timeIncreaseCmd, timeMineCmd)
}
