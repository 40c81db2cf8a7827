package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/store"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	eventsName  string
	eventsLimit int
	eventsSince time.Duration
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List emitted events",
	Long: `List the events recorded on the selected network, oldest first.

Examples:
  rafflekit events
  rafflekit events --name WinnerPicked
  rafflekit events --since 10m --limit 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := store.EventFilter{Name: events.Name(eventsName), Limit: eventsLimit}
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if eventsSince > 0 {
				// Events carry block time.
				_, head := env.Clock.Head()
				f.Since = head.Add(-eventsSince)
			}
			evs, err := env.Events(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(evs) == 0 {
				fmt.Fprintln(out, ui.Meta("No events."))
				return nil
			}
			fmt.Fprintln(out, eventsTable(evs))
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d events", len(evs))))
			return nil
		})
	},
}

func eventsTable(evs []events.Event) string {
	t := ui.NewTable([]ui.Column{
		{Title: "Block", Width: 7},
		{Title: "Event", Width: 22},
		{Title: "Account", Width: 14},
		{Title: "Details", Width: 36},
	})
	for _, e := range evs {
		t.AddRow(ui.Row{
			fmt.Sprintf("%d", e.Block),
			string(e.Name),
			ui.TruncateAddr(eventSubject(e).Hex()),
			eventFields(e),
		})
	}
	return t.Render()
}

func eventSubject(e events.Event) common.Address {
	if e.Name == events.WinnerPicked {
		return e.Winner
	}
	if e.Player != (common.Address{}) {
		return e.Player
	}
	return e.Contract
}

func eventFields(e events.Event) string {
	var parts []string
	if e.RequestID != 0 {
		parts = append(parts, fmt.Sprintf("request=%d", e.RequestID))
	}
	if e.SubID != 0 {
		parts = append(parts, fmt.Sprintf("sub=%d", e.SubID))
	}
	if e.Amount != nil && e.Amount.Sign() > 0 {
		parts = append(parts, "amount="+chain.FormatEther(e.Amount))
	}
	if e.Name == events.WinnerPicked {
		parts = append(parts, fmt.Sprintf("round=%d", e.Round))
	}
	if e.Name == events.RandomWordsFulfilled {
		parts = append(parts, fmt.Sprintf("success=%t", e.Success))
	}
	return strings.Join(parts, " ")
}

func init() {
	eventsCmd.Flags().StringVar(&eventsName, "name", "", "only events with this name (e.g. RaffleEntered)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 0, "show at most this many events")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "only events within this much block time of the head (e.g. 10m)")
}
