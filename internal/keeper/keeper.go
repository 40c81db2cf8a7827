// Package keeper plays the automation network: it polls a contract's upkeep
// check and performs the upkeep whenever the check passes.
package keeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Upkeeper is a contract compatible with the automation interface.
type Upkeeper interface {
	CheckUpkeep(ctx context.Context) (bool, []byte)
	PerformUpkeep(ctx context.Context, performData []byte) (uint64, error)
}

// ErrSkipped reports a tick whose check did not pass.
var ErrSkipped = errors.New("upkeep not needed")

// Keeper polls one Upkeeper on a fixed interval.
type Keeper struct {
	target    Upkeeper
	interval  time.Duration
	log       *zap.Logger
	onPerform func(requestID uint64, err error)
}

// Option configures a Keeper.
type Option func(*Keeper)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(k *Keeper) { k.log = l }
}

// OnPerform is called after every performUpkeep attempt.
func OnPerform(fn func(requestID uint64, err error)) Option {
	return func(k *Keeper) { k.onPerform = fn }
}

// New creates a keeper for target polling every interval.
func New(target Upkeeper, interval time.Duration, opts ...Option) *Keeper {
	if interval <= 0 {
		interval = time.Second
	}
	k := &Keeper{
		target:   target,
		interval: interval,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Tick runs one check and, if it passes, one perform. It returns ErrSkipped
// when the check fails.
func (k *Keeper) Tick(ctx context.Context) (uint64, error) {
	needed, data := k.target.CheckUpkeep(ctx)
	if !needed {
		return 0, ErrSkipped
	}
	id, err := k.target.PerformUpkeep(ctx, data)
	if k.onPerform != nil {
		k.onPerform(id, err)
	}
	if err != nil {
		// Another caller can perform between our check and perform.
		k.log.Warn("performUpkeep failed", zap.Error(err))
		return 0, err
	}
	k.log.Info("upkeep performed", zap.Uint64("requestId", id))
	return id, nil
}

// Run ticks until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.Tick(ctx) //nolint:errcheck
		}
	}
}
