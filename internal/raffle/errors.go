package raffle

import (
	"errors"
	"fmt"
	"math/big"
)

// Errors.
var (
	ErrInsufficientFee   = errors.New("not enough entrance fee")
	ErrNotOpen           = errors.New("raffle not open")
	ErrUpkeepNotNeeded   = errors.New("upkeep not needed")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrNoRandomWords     = errors.New("no random words")
	ErrNoPendingRequest  = errors.New("no pending randomness request")
	ErrRequestNotExpired = errors.New("randomness request not expired")
	ErrPlayerIndex       = errors.New("player index out of range")
)

// UpkeepNotNeededError carries the raffle figures that failed the upkeep
// check. It matches ErrUpkeepNotNeeded with errors.Is.
type UpkeepNotNeededError struct {
	Balance    *big.Int
	NumPlayers int
	State      State
	Elapsed    bool
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("%s: balance=%s players=%d state=%s interval_passed=%t",
		ErrUpkeepNotNeeded, e.Balance, e.NumPlayers, e.State, e.Elapsed)
}

func (e *UpkeepNotNeededError) Is(target error) bool { return target == ErrUpkeepNotNeeded }
