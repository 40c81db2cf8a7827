package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// startAutomation runs interval mining when blockTime is set and, with
// oracle, the mock oracle and the upkeep keeper, until ctx is done. The
// returned wait blocks until all of them have stopped.
func startAutomation(ctx context.Context, env *devnet.Env, blockTime time.Duration, oracle bool) (wait func() error, err error) {
	g, gctx := errgroup.WithContext(ctx)
	if oracle {
		f, err := env.Fulfiller(vrf.WithDelay(cfg.OracleDelay()))
		if err != nil {
			return nil, err
		}
		k := env.Keeper(cfg.KeeperEvery())
		g.Go(func() error {
			if err := answerRestored(gctx, env); err != nil {
				log.Warn("restored request not answered", zap.Error(err))
			}
			return f.Run(gctx)
		})
		g.Go(func() error { return k.Run(gctx) })
	}
	if blockTime > 0 {
		g.Go(func() error {
			t := time.NewTicker(blockTime)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					env.Mine()
				}
			}
		})
	}
	return g.Wait, nil
}

// answerRestored fulfills the request that was pending when the network was
// saved. Restored requests are not on the coordinator queue. A request that
// is already answered or being answered is not an error.
func answerRestored(ctx context.Context, env *devnet.Env) error {
	r, err := env.Raffle()
	if err != nil {
		return err
	}
	p, ok := r.PendingRequest()
	if !ok {
		return nil
	}
	err = env.Fulfill(ctx, p.ID, nil)
	if errors.Is(err, vrf.ErrNonexistentRequest) || errors.Is(err, vrf.ErrRequestInFlight) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("answering pending request %d: %w", p.ID, err)
	}
	return nil
}
