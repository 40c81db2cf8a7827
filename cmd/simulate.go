package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/accounts"
	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	simPlayers int
	simFee     string
	simTimeout time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a full round on a development chain",
	Long: `Play one raffle round end to end: deploy if needed, enter players,
jump past the interval and let the keeper and the mock oracle pick and pay
a winner.

Examples:
  rafflekit simulate
  rafflekit simulate --players 8 --fee 0.1
  rafflekit simulate --network localhost`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		if !n.Development {
			return fmt.Errorf("simulate: %w", devnet.ErrNotDevelopment)
		}
		if simPlayers < 1 || simPlayers >= accounts.DevCount() {
			return fmt.Errorf("--players must be between 1 and %d", accounts.DevCount()-1)
		}
		fee, err := parseEther(simFee)
		if err != nil {
			return err
		}
		if fee != nil {
			n.Raffle.EntranceFee = fee
		}

		ctx := cmdContext(cmd)
		env, err := openEnv(ctx, n)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := env.Close(); err == nil {
				err = cerr
			}
		}()
		return simulateRound(ctx, cmd, env, fee)
	},
}

func simulateRound(ctx context.Context, cmd *cobra.Command, env *devnet.Env, fee *big.Int) error {
	out := cmd.OutOrStdout()
	if _, err := env.Raffle(); errors.Is(err, devnet.ErrNotDeployed) {
		if err := env.Deploy(ctx, false); err != nil {
			return err
		}
	}
	r, err := env.Raffle()
	if err != nil {
		return err
	}
	if fee != nil && fee.Cmp(r.EntranceFee()) != 0 {
		fmt.Fprintln(out, ui.Warn(fmt.Sprintf("raffle already deployed with fee %s ETH, --fee ignored (deploy --reset to change it)",
			chain.FormatEther(r.EntranceFee()))))
	}

	if p, ok := r.PendingRequest(); ok {
		fmt.Fprintln(out, ui.Info(fmt.Sprintf("settling round %d first, request %d is still pending", r.Round()+1, p.ID)))
		if err := answerRestored(ctx, env); err != nil {
			return err
		}
		if s := r.State(); s != raffle.StateOpen {
			return fmt.Errorf("raffle is %s after answering request %d", s, p.ID)
		}
	}

	sub := env.Bus.Subscribe(64)
	defer sub.Unsubscribe()

	devs, err := accounts.DevAccounts(simPlayers + 1)
	if err != nil {
		return err
	}
	before := make(map[common.Address]*big.Int, simPlayers)
	for _, p := range devs[1:] {
		before[p.Address] = env.Ledger.BalanceOf(p.Address)
		if err := env.Enter(ctx, p.Address, nil); err != nil {
			return fmt.Errorf("entering %s: %w", p.Name, err)
		}
	}
	pot := r.Balance()
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("%d players entered, pot %s ETH", r.NumPlayers(), chain.FormatEther(pot))))

	if err := env.IncreaseTime(r.Interval() + time.Second); err != nil {
		return err
	}
	env.Mine()

	actx, cancel := context.WithTimeout(ctx, simTimeout)
	defer cancel()
	wait, err := startAutomation(actx, env, 0, true)
	if err != nil {
		return err
	}
	winner, err := awaitWinner(actx, out, sub.C())
	cancel()
	if werr := wait(); err == nil {
		err = werr
	}
	if err != nil {
		return err
	}

	gain := new(big.Int).Sub(env.Ledger.BalanceOf(winner.Winner), before[winner.Winner])
	fmt.Fprintln(out, ui.KeyValueBlock(fmt.Sprintf("Round %d", winner.Round), [][2]string{
		{"Winner", winner.Winner.Hex()},
		{"Prize", chain.FormatEther(pot) + " ETH"},
		{"Net gain", chain.FormatEther(gain) + " ETH"},
		{"Block", fmt.Sprintf("%d", winner.Block)},
		{"State", r.State().String()},
		{"Players left", fmt.Sprintf("%d", r.NumPlayers())},
	}))
	return nil
}

// awaitWinner prints events until WinnerPicked arrives.
func awaitWinner(ctx context.Context, out io.Writer, evs <-chan events.Event) (events.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return events.Event{}, fmt.Errorf("no winner picked: %w", ctx.Err())
		case e, ok := <-evs:
			if !ok {
				return events.Event{}, errors.New("event stream closed")
			}
			fmt.Fprintln(out, ui.Info(fmt.Sprintf("block %d  %s  %s", e.Block, e.Name, eventFields(e))))
			if e.Name == events.WinnerPicked {
				return e, nil
			}
		}
	}
}

func init() {
	simulateCmd.Flags().IntVar(&simPlayers, "players", 4, "number of development accounts to enter")
	simulateCmd.Flags().StringVar(&simFee, "fee", "", "entrance fee in ether for a fresh deployment")
	simulateCmd.Flags().DurationVar(&simTimeout, "timeout", 30*time.Second, "give up if no winner is picked in time")
}
