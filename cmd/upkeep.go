package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var fulfillWords []string

var upkeepCmd = &cobra.Command{
	Use:   "upkeep",
	Short: "Call the automation interface",
}

var upkeepCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Call checkUpkeep (read-only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if _, err := env.Raffle(); err != nil {
				return err
			}
			needed, _ := env.CheckUpkeep(ctx)
			out := cmd.OutOrStdout()
			if needed {
				fmt.Fprintln(out, ui.Success("upkeepNeeded: true"))
				return nil
			}
			fmt.Fprintln(out, ui.Warn("upkeepNeeded: false"))
			fmt.Fprintln(out, ui.Hint("needs an open raffle, players, a balance and the interval to have passed"))
			return nil
		})
	},
}

var upkeepPerformCmd = &cobra.Command{
	Use:   "perform",
	Short: "Send performUpkeep and request a random winner",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			id, err := env.PerformUpkeep(ctx, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Requested raffle winner, request id %d", id)))
			fmt.Fprintln(out, ui.Hint(fmt.Sprintf("Answer it with: rafflekit fulfill %d", id)))
			return nil
		})
	},
}

var fulfillCmd = &cobra.Command{
	Use:   "fulfill <request-id>",
	Short: "Answer a randomness request through the coordinator mock",
	Long: `Fulfill a pending randomness request the way the coordinator mock's
fulfillRandomWords does. Words are derived from the request id unless
--word is given.

Examples:
  rafflekit fulfill 1
  rafflekit fulfill 1 --word 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid request id %q", args[0])
		}
		words, err := parseWords(fulfillWords)
		if err != nil {
			return err
		}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if err := env.Fulfill(ctx, id, words); err != nil {
				return err
			}
			r, _ := env.Raffle()
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Request %d fulfilled, winner %s",
				id, ui.Addr(r.RecentWinner().Hex()))))
			return nil
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Replace a randomness request that was never answered",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			id, err := env.Retry(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Randomness requested again, request id %d", id)))
			return nil
		})
	},
}

func init() {
	upkeepCmd.AddCommand(upkeepCheckCmd, upkeepPerformCmd)
	fulfillCmd.Flags().StringSliceVar(&fulfillWords, "word", nil, "random word to deliver instead of the derived one (repeatable)")
}
