// Package raffle implements the lottery state machine: players buy entries
// while the raffle is open, a keeper triggers a randomness request once the
// interval has passed, and the oracle's answer picks and pays the winner.
package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// State is the raffle lifecycle state.
type State uint8

const (
	StateOpen State = iota
	StateCalculating
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateCalculating:
		return "CALCULATING"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Coordinator issues randomness requests.
type Coordinator interface {
	RequestRandomWords(ctx context.Context, p vrf.RequestParams) (uint64, error)
}

// Canceller is implemented by coordinators that can drop a request. A retry
// cancels the request it replaces when the coordinator supports it.
type Canceller interface {
	CancelRequest(consumer common.Address, requestID uint64) error
}

// Ledger moves and reports native balances.
type Ledger interface {
	BalanceOf(addr common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
}

// Clock reports the current block time.
type Clock interface {
	Now() time.Time
}

// Config holds the constructor arguments.
type Config struct {
	Address          common.Address
	EntranceFee      *big.Int
	Interval         time.Duration
	GasLane          common.Hash
	SubscriptionID   uint64
	CallbackGasLimit uint32
	Confirmations    uint16
	NumWords         uint32
}

// Deps are the collaborators a raffle calls into. Emitter may be nil.
type Deps struct {
	Coordinator Coordinator
	Ledger      Ledger
	Clock       Clock
	Emitter     events.Emitter
}

// PendingRequest is the in-flight randomness request.
type PendingRequest struct {
	ID          uint64
	NumPlayers  int
	RequestedAt time.Time
}

// Raffle is a single lottery instance. All mutating calls are serialized by
// one lock; reads see a consistent snapshot.
type Raffle struct {
	cfg     Config
	deps    Deps
	log     *zap.Logger
	timeout time.Duration

	mu           sync.RWMutex
	state        State
	players      []common.Address
	latest       time.Time
	recentWinner common.Address
	pending      *PendingRequest
	round        uint64
}

// Option configures a Raffle.
type Option func(*Raffle)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Raffle) { r.log = l }
}

// WithRequestTimeout sets how long a randomness request may stay unanswered
// before RetryRandomness is allowed.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Raffle) { r.timeout = d }
}

// New creates an open raffle. LatestTimestamp starts at the current block time.
func New(cfg Config, deps Deps, opts ...Option) (*Raffle, error) {
	if cfg.EntranceFee == nil || cfg.EntranceFee.Sign() <= 0 {
		return nil, errors.New("entrance fee must be positive")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if deps.Coordinator == nil || deps.Ledger == nil || deps.Clock == nil {
		return nil, errors.New("coordinator, ledger and clock are required")
	}
	if cfg.NumWords == 0 {
		cfg.NumWords = 1
	}
	cfg.EntranceFee = new(big.Int).Set(cfg.EntranceFee)

	r := &Raffle{
		cfg:     cfg,
		deps:    deps,
		log:     zap.NewNop(),
		timeout: 5 * time.Minute,
		state:   StateOpen,
		latest:  deps.Clock.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("raffle", cfg.Address.Hex()))
	return r, nil
}

// Enter buys one entry for sender, paying payment into the raffle.
func (r *Raffle) Enter(ctx context.Context, sender common.Address, payment *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if payment == nil {
		payment = new(big.Int)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.Cmp(r.cfg.EntranceFee) < 0 {
		return fmt.Errorf("%w: sent %s, fee is %s", ErrInsufficientFee, payment, r.cfg.EntranceFee)
	}
	if r.state != StateOpen {
		return fmt.Errorf("%w: state is %s", ErrNotOpen, r.state)
	}
	if err := r.deps.Ledger.Transfer(sender, r.cfg.Address, payment); err != nil {
		return fmt.Errorf("paying entrance fee: %w", err)
	}

	r.players = append(r.players, sender)
	r.log.Info("raffle entered", zap.String("player", sender.Hex()), zap.Int("players", len(r.players)))
	r.emit(events.Event{Name: events.RaffleEntered, Player: sender, Amount: new(big.Int).Set(payment), Round: r.round})
	return nil
}

// CheckUpkeep reports whether PerformUpkeep would succeed right now. It never
// changes state. performData is always empty.
func (r *Raffle) CheckUpkeep(ctx context.Context) (bool, []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.upkeepNeeded() == nil, []byte{}
}

// PerformUpkeep closes the raffle and requests randomness. The upkeep
// condition is evaluated again here; performData is ignored.
func (r *Raffle) PerformUpkeep(ctx context.Context, performData []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.upkeepNeeded(); err != nil {
		return 0, err
	}
	id, err := r.request(ctx)
	if err != nil {
		return 0, err
	}
	r.state = StateCalculating
	r.log.Info("upkeep performed", zap.Uint64("requestId", id), zap.Int("players", len(r.players)))
	r.emit(events.Event{Name: events.RequestedRaffleWinner, RequestID: id, Round: r.round})
	return id, nil
}

// FulfillRandomWords settles the raffle with the oracle's answer. Answers for
// any request other than the pending one are ignored.
func (r *Raffle) FulfillRandomWords(ctx context.Context, requestID uint64, words []*big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil || r.pending.ID != requestID {
		r.log.Warn("ignoring fulfillment for unknown request", zap.Uint64("requestId", requestID))
		return nil
	}
	if len(words) == 0 || words[0] == nil {
		return ErrNoRandomWords
	}
	if r.state != StateCalculating || len(r.players) != r.pending.NumPlayers || len(r.players) == 0 {
		// Unreachable while Enter is blocked during CALCULATING.
		return fmt.Errorf("player list changed while calculating: %d at request, %d now", r.pending.NumPlayers, len(r.players))
	}

	idx := new(big.Int).Mod(words[0], big.NewInt(int64(r.pending.NumPlayers))).Int64()
	winner := r.players[idx]
	prize := r.deps.Ledger.BalanceOf(r.cfg.Address)

	// Nothing is mutated before the payout, so a failed transfer leaves the
	// raffle calculating with the same pending request.
	if err := r.deps.Ledger.Transfer(r.cfg.Address, winner, prize); err != nil {
		r.log.Error("winner payout failed", zap.String("winner", winner.Hex()), zap.String("prize", prize.String()), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	r.players = nil
	r.state = StateOpen
	r.latest = r.deps.Clock.Now()
	r.recentWinner = winner
	r.pending = nil
	r.round++

	r.log.Info("winner picked",
		zap.String("winner", winner.Hex()),
		zap.String("prize", prize.String()),
		zap.Uint64("round", r.round))
	r.emit(events.Event{Name: events.WinnerPicked, Winner: winner, RequestID: requestID, Amount: prize, Round: r.round})
	return nil
}

// RetryRandomness replaces a request that has gone unanswered for longer
// than the request timeout. The old id becomes stale.
func (r *Raffle) RetryRandomness(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCalculating || r.pending == nil {
		return 0, ErrNoPendingRequest
	}
	age := r.deps.Clock.Now().Sub(r.pending.RequestedAt)
	if age < r.timeout {
		return 0, fmt.Errorf("%w: pending for %s of %s", ErrRequestNotExpired, age, r.timeout)
	}
	old := r.pending.ID
	id, err := r.request(ctx)
	if err != nil {
		return 0, err
	}
	if c, ok := r.deps.Coordinator.(Canceller); ok {
		if err := c.CancelRequest(r.cfg.Address, old); err != nil {
			r.log.Debug("stale request not cancelled", zap.Uint64("stale", old), zap.Error(err))
		}
	}
	r.log.Warn("randomness request replaced", zap.Uint64("stale", old), zap.Uint64("requestId", id))
	r.emit(events.Event{Name: events.RequestedRaffleWinner, RequestID: id, Round: r.round})
	return id, nil
}

// --- internal ---

// upkeepNeeded returns nil when upkeep may run. Callers hold the lock.
func (r *Raffle) upkeepNeeded() error {
	balance := r.deps.Ledger.BalanceOf(r.cfg.Address)
	open := r.state == StateOpen
	elapsed := r.deps.Clock.Now().Sub(r.latest) >= r.cfg.Interval
	if open && elapsed && len(r.players) > 0 && balance.Sign() > 0 {
		return nil
	}
	return &UpkeepNotNeededError{
		Balance:    balance,
		NumPlayers: len(r.players),
		State:      r.state,
		Elapsed:    elapsed,
	}
}

// request asks the coordinator for randomness and records it as pending.
// Callers hold the lock.
func (r *Raffle) request(ctx context.Context) (uint64, error) {
	id, err := r.deps.Coordinator.RequestRandomWords(ctx, vrf.RequestParams{
		Consumer:         r.cfg.Address,
		KeyHash:          r.cfg.GasLane,
		SubID:            r.cfg.SubscriptionID,
		Confirmations:    r.cfg.Confirmations,
		CallbackGasLimit: r.cfg.CallbackGasLimit,
		NumWords:         r.cfg.NumWords,
	})
	if err != nil {
		return 0, fmt.Errorf("requesting randomness: %w", err)
	}
	r.pending = &PendingRequest{ID: id, NumPlayers: len(r.players), RequestedAt: r.deps.Clock.Now()}
	return id, nil
}

func (r *Raffle) emit(e events.Event) {
	if r.deps.Emitter == nil {
		return
	}
	e.Contract = r.cfg.Address
	r.deps.Emitter.Emit(e)
}
