// Package store persists the state of a simulated network between runs.
package store

import (
	"errors"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/ledger"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoState is returned by LoadState for a network never saved.
var ErrNoState = errors.New("no saved state")

// State is everything needed to resume a network.
type State struct {
	Clock  chain.ClockSnapshot
	Ledger ledger.Snapshot
	Nonces map[common.Address]uint64

	// CoordinatorAddress is zero until a coordinator has been deployed.
	CoordinatorAddress common.Address
	Coordinator        vrf.Snapshot

	// Raffle is nil until the raffle has been deployed.
	Raffle *RaffleState
}

// RaffleState is a deployed raffle: constructor arguments plus mutable state.
type RaffleState struct {
	Config raffle.Config
	raffle.Snapshot
}

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	Name  events.Name
	Since time.Time
	Limit int
}

// Storage persists network state and the event log.
type Storage interface {
	SaveState(network string, s State) error
	LoadState(network string) (*State, error)
	Reset(network string) error

	RecordEvent(network string, e events.Event) error
	ListEvents(network string, f EventFilter) ([]events.Event, error)

	Close() error
}
