package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRecipientRejected   = errors.New("recipient rejected transfer")
	ErrNegativeAmount      = errors.New("negative amount")
)

// Ledger holds native balances for every address on the simulated chain.
type Ledger struct {
	mu        sync.RWMutex
	balances  map[common.Address]*big.Int
	rejecting map[common.Address]bool
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:  make(map[common.Address]*big.Int),
		rejecting: make(map[common.Address]bool),
	}
}

// BalanceOf returns a copy of the balance of addr (zero if unknown).
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Mint credits addr out of thin air. Used for genesis funding.
func (l *Ledger) Mint(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, amount)
	return nil
}

// Transfer moves amount from one address to another. Either both sides
// change or neither does.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rejecting[to] {
		return fmt.Errorf("%w: %s", ErrRecipientRejected, to.Hex())
	}
	bal := l.balances[from]
	if bal == nil {
		bal = new(big.Int)
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.balances[from] = new(big.Int).Sub(bal, amount)
	l.credit(to, amount)
	return nil
}

// SetRejecting marks addr as refusing incoming transfers, the way a contract
// without a payable fallback would.
func (l *Ledger) SetRejecting(addr common.Address, reject bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if reject {
		l.rejecting[addr] = true
		return
	}
	delete(l.rejecting, addr)
}

// Accounts returns every address with a recorded balance, sorted.
func (l *Ledger) Accounts() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]common.Address, 0, len(l.balances))
	for a := range l.balances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Snapshot is the persisted form of the ledger.
type Snapshot struct {
	Balances  map[common.Address]*big.Int
	Rejecting []common.Address
}

// Snapshot returns a deep copy of the ledger contents.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Snapshot{Balances: make(map[common.Address]*big.Int, len(l.balances))}
	for a, b := range l.balances {
		s.Balances[a] = new(big.Int).Set(b)
	}
	for a := range l.rejecting {
		s.Rejecting = append(s.Rejecting, a)
	}
	return s
}

// Restore replaces the ledger contents with s.
func (l *Ledger) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[common.Address]*big.Int, len(s.Balances))
	for a, b := range s.Balances {
		l.balances[a] = new(big.Int).Set(b)
	}
	l.rejecting = make(map[common.Address]bool, len(s.Rejecting))
	for _, a := range s.Rejecting {
		l.rejecting[a] = true
	}
}

func (l *Ledger) credit(addr common.Address, amount *big.Int) {
	cur := l.balances[addr]
	if cur == nil {
		cur = new(big.Int)
	}
	l.balances[addr] = new(big.Int).Add(cur, amount)
}
