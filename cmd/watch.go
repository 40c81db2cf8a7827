package cmd

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/ui"
	"github.com/spf13/cobra"
)

var (
	watchNoAutomation bool
	watchBlockTime    time.Duration
	watchRefresh      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live raffle dashboard",
	Long: `Show the raffle state and stream its events in a live TUI while the
keeper and the mock oracle run. The dashboard saves the network when it
exits, so run other commands against the same persistent network after
closing it.

Keyboard controls:
  ↑↓ / j k   navigate rows
  c          clear events
  q          quit

Examples:
  rafflekit watch
  rafflekit watch --block-time 1s
  rafflekit watch --no-automation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, env *devnet.Env) error {
			if _, err := env.Raffle(); err != nil {
				return err
			}
			sub := env.Bus.Subscribe(256)
			defer sub.Unsubscribe()

			actx, cancel := context.WithCancel(ctx)
			defer cancel()
			wait, err := startAutomation(actx, env, watchBlockTime, !watchNoAutomation)
			if err != nil {
				return err
			}

			poll := func() (ui.RaffleStatus, error) { return raffleStatus(actx, env) }
			m := ui.NewWatchModel(poll, sub.C(), watchRefresh)
			_, err = ui.NewWatch(m).Run()
			cancel()
			if werr := wait(); err == nil {
				err = werr
			}
			return err
		})
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoAutomation, "no-automation", false, "do not run the keeper and the mock oracle")
	watchCmd.Flags().DurationVar(&watchBlockTime, "block-time", 0, "mine an empty block this often (0: only on transactions)")
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", time.Second, "status refresh interval")
}
