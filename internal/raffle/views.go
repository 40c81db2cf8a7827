package raffle

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Address returns the raffle's address.
func (r *Raffle) Address() common.Address { return r.cfg.Address }

// Config returns the constructor arguments.
func (r *Raffle) Config() Config {
	c := r.cfg
	c.EntranceFee = new(big.Int).Set(r.cfg.EntranceFee)
	return c
}

// EntranceFee returns the fee required to enter.
func (r *Raffle) EntranceFee() *big.Int { return new(big.Int).Set(r.cfg.EntranceFee) }

// Interval returns the minimum time between settlements.
func (r *Raffle) Interval() time.Duration { return r.cfg.Interval }

// State returns the current lifecycle state.
func (r *Raffle) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Player returns the i-th entrant.
func (r *Raffle) Player(i int) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.players) {
		return common.Address{}, fmt.Errorf("%w: %d of %d", ErrPlayerIndex, i, len(r.players))
	}
	return r.players[i], nil
}

// Players returns a copy of the entrants in entry order.
func (r *Raffle) Players() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]common.Address(nil), r.players...)
}

// NumPlayers returns the number of entries.
func (r *Raffle) NumPlayers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// LatestTimestamp returns the time of construction or the last settlement.
func (r *Raffle) LatestTimestamp() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// RecentWinner returns the last winner (zero address before the first round).
func (r *Raffle) RecentWinner() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recentWinner
}

// PendingRequest returns the in-flight request, if any.
func (r *Raffle) PendingRequest() (PendingRequest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pending == nil {
		return PendingRequest{}, false
	}
	return *r.pending, true
}

// Round returns the number of completed settlements.
func (r *Raffle) Round() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.round
}

// Balance returns the prize pool currently held by the raffle.
func (r *Raffle) Balance() *big.Int {
	return r.deps.Ledger.BalanceOf(r.cfg.Address)
}

// Snapshot is the persisted mutable state of a raffle.
type Snapshot struct {
	State        State
	Players      []common.Address
	Latest       time.Time
	RecentWinner common.Address
	Pending      *PendingRequest
	Round        uint64
}

// Snapshot returns a copy of the mutable state.
func (r *Raffle) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{
		State:        r.state,
		Players:      append([]common.Address(nil), r.players...),
		Latest:       r.latest,
		RecentWinner: r.recentWinner,
		Round:        r.round,
	}
	if r.pending != nil {
		p := *r.pending
		s.Pending = &p
	}
	return s
}

// Restore replaces the mutable state with s.
func (r *Raffle) Restore(s Snapshot) error {
	if s.State == StateCalculating && s.Pending == nil {
		return fmt.Errorf("calculating raffle without a pending request")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s.State
	r.players = append([]common.Address(nil), s.Players...)
	r.latest = s.Latest
	r.recentWinner = s.RecentWinner
	r.round = s.Round
	r.pending = nil
	if s.Pending != nil {
		p := *s.Pending
		r.pending = &p
	}
	return nil
}
