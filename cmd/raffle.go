package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	enterFrom  string
	enterValue string
)

var enterCmd = &cobra.Command{
	Use:   "enter",
	Short: "Enter the raffle",
	Long: `Send an enterRaffle transaction. The entrance fee is paid unless
--value is given.

Examples:
  rafflekit enter --from player
  rafflekit enter --from account3 --value 0.05
  rafflekit enter --from 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sender, err := resolveAccount(enterFrom)
		if err != nil {
			return err
		}
		value, err := parseEther(enterValue)
		if err != nil {
			return err
		}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if err := env.Enter(ctx, sender, value); err != nil {
				return err
			}
			r, _ := env.Raffle()
			paid := value
			if paid == nil {
				paid = r.EntranceFee()
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s entered with %s ETH (%d players)",
				ui.Addr(sender.Hex()), chain.FormatEther(paid), r.NumPlayers())))
			return nil
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the raffle's read-only views",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			s, err := raffleStatus(ctx, env)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Raffle on "+s.Network, statusPairs(s)))
			return nil
		})
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the entrants of the current round",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			r, err := env.Raffle()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			players := r.Players()
			if len(players) == 0 {
				fmt.Fprintln(out, ui.Meta("No players in this round."))
				return nil
			}
			t := ui.NewTable([]ui.Column{
				{Title: "#", Width: 4},
				{Title: "Player", Width: 44},
				{Title: "Balance (ETH)", Width: 22},
			})
			for i, p := range players {
				t.AddRow(ui.Row{
					fmt.Sprintf("%d", i),
					ui.Addr(p.Hex()),
					chain.FormatEther(env.Ledger.BalanceOf(p)),
				})
			}
			fmt.Fprintln(out, t.Render())
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d entries, pot %s ETH", len(players), chain.FormatEther(r.Balance()))))
			return nil
		})
	},
}

// raffleStatus reads every view the dashboard and `state` show.
func raffleStatus(ctx context.Context, env *devnet.Env) (ui.RaffleStatus, error) {
	r, err := env.Raffle()
	if err != nil {
		return ui.RaffleStatus{}, err
	}
	block, ts := env.Clock.Head()
	s := ui.RaffleStatus{
		Network:     env.Network().Name,
		Address:     r.Address().Hex(),
		State:       r.State().String(),
		Players:     r.NumPlayers(),
		Balance:     chain.FormatEther(r.Balance()),
		EntranceFee: chain.FormatEther(r.EntranceFee()),
		Block:       block,
		BlockTime:   ts,
		Round:       r.Round(),
	}
	if left := r.Interval() - ts.Sub(r.LatestTimestamp()); left > 0 {
		s.NextDraw = left
	}
	s.UpkeepNeeded, _ = env.CheckUpkeep(ctx)
	if p, ok := r.PendingRequest(); ok {
		s.PendingID = p.ID
	}
	if w := r.RecentWinner(); w != (common.Address{}) {
		s.RecentWinner = w.Hex()
	}
	return s, nil
}

func statusPairs(s ui.RaffleStatus) [][2]string {
	next := "due"
	if s.NextDraw > 0 {
		next = s.NextDraw.Round(time.Second).String()
	}
	winner := "none yet"
	if s.RecentWinner != "" {
		winner = s.RecentWinner
	}
	pairs := [][2]string{
		{"Address", s.Address},
		{"State", s.State},
		{"Players", fmt.Sprintf("%d", s.Players)},
		{"Pot", s.Balance + " ETH"},
		{"Entrance fee", s.EntranceFee + " ETH"},
		{"Block", fmt.Sprintf("%d (%s)", s.Block, s.BlockTime.UTC().Format(time.RFC3339))},
		{"Next draw", next},
		{"Upkeep needed", fmt.Sprintf("%t", s.UpkeepNeeded)},
		{"Round", fmt.Sprintf("%d", s.Round)},
		{"Recent winner", winner},
	}
	if s.PendingID != 0 {
		pairs = append(pairs, [2]string{"Pending request", fmt.Sprintf("%d", s.PendingID)})
	}
	return pairs
}

func init() {
	enterCmd.Flags().StringVar(&enterFrom, "from", "player", "account to enter from (role, accountN, imported name or address)")
	enterCmd.Flags().StringVar(&enterValue, "value", "", "ether to send (default: the entrance fee)")
}
