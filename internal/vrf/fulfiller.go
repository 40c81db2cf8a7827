package vrf

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Fulfiller plays the off-chain oracle node: it reads requests from the
// coordinator queue, waits for the confirmation delay and delivers words to
// the consumer registered under the requesting address.
type Fulfiller struct {
	coord   *Coordinator
	delay   time.Duration
	timeout time.Duration
	log     *zap.Logger

	mu        sync.RWMutex
	consumers map[common.Address]Consumer
	onResult  func(Request, error)
}

// FulfillerOption configures a Fulfiller.
type FulfillerOption func(*Fulfiller)

// WithDelay waits d before answering each request.
func WithDelay(d time.Duration) FulfillerOption {
	return func(f *Fulfiller) { f.delay = d }
}

// WithTimeout bounds each fulfillment call.
func WithTimeout(d time.Duration) FulfillerOption {
	return func(f *Fulfiller) { f.timeout = d }
}

// WithFulfillerLogger sets the logger.
func WithFulfillerLogger(l *zap.Logger) FulfillerOption {
	return func(f *Fulfiller) { f.log = l }
}

// OnResult is called after every fulfillment attempt.
func OnResult(fn func(Request, error)) FulfillerOption {
	return func(f *Fulfiller) { f.onResult = fn }
}

// NewFulfiller creates a fulfiller for coord.
func NewFulfiller(coord *Coordinator, opts ...FulfillerOption) *Fulfiller {
	f := &Fulfiller{
		coord:     coord,
		timeout:   30 * time.Second,
		log:       zap.NewNop(),
		consumers: make(map[common.Address]Consumer),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register routes requests from addr to consumer.
func (f *Fulfiller) Register(addr common.Address, consumer Consumer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumers[addr] = consumer
}

// Run processes requests until ctx is cancelled.
func (f *Fulfiller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-f.coord.Requests():
			if f.delay > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(f.delay):
				}
			}
			err := f.fulfill(ctx, req)
			if f.onResult != nil {
				f.onResult(req, err)
			}
		}
	}
}

func (f *Fulfiller) fulfill(ctx context.Context, req Request) error {
	f.mu.RLock()
	consumer, ok := f.consumers[req.Consumer]
	f.mu.RUnlock()
	if !ok {
		f.log.Warn("no consumer registered for request", zap.Uint64("requestId", req.ID), zap.String("consumer", req.Consumer.Hex()))
		return ErrInvalidConsumer
	}

	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	err := f.coord.FulfillRandomWords(cctx, req.ID, consumer)
	switch {
	case err == nil:
		f.log.Info("request fulfilled", zap.Uint64("requestId", req.ID))
	case errors.Is(err, ErrNonexistentRequest), errors.Is(err, ErrRequestInFlight):
		// Already answered, cancelled or being answered by hand.
		f.log.Debug("request no longer pending", zap.Uint64("requestId", req.ID))
	default:
		f.log.Error("fulfillment failed", zap.Uint64("requestId", req.ID), zap.Error(err))
	}
	return err
}
