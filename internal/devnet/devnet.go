// Package devnet is the simulated network a command runs against. It owns
// the block clock, the ledger, the deployed contracts and the event bus,
// restores them from the store and executes transactions one at a time.
package devnet

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/accounts"
	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/config"
	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/Mohsinsiddi/rafflekit/internal/deploy"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/keeper"
	"github.com/Mohsinsiddi/rafflekit/internal/ledger"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/store"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Errors.
var (
	ErrNotDeployed     = errors.New("raffle not deployed, run deploy first")
	ErrNoDeployerKey   = errors.New("PRIVATE_KEY is required on live networks")
	ErrNotDevelopment  = errors.New("only available on development chains")
	ErrInvalidDuration = errors.New("duration must be positive")
)

// Options configures Open.
type Options struct {
	Network *chain.Network
	// DSN of the state database. Empty keeps state in memory.
	DSN      string
	Registry *contract.Registry

	FundEther      int // genesis balance per funded account
	FrontEnd       config.FrontEnd
	RequestTimeout time.Duration
	PrivateKey     string // deployer key on live networks
	Verifier       deploy.Verifier

	Log  *zap.Logger
	Wall func() time.Time
}

// Env is one open network.
type Env struct {
	Clock  *chain.Clock
	Ledger *ledger.Ledger
	Bus    *events.Bus

	network  *chain.Network
	opts     Options
	store    *store.SqliteStorage
	registry *contract.Registry
	emitter  events.Emitter
	deployer accounts.Account
	log      *zap.Logger

	// mu serializes transactions.
	mu     sync.Mutex
	nonces map[common.Address]uint64
	coord  *vrf.Coordinator
	raffle *raffle.Raffle
}

// Open opens the network, resuming its saved state or starting from genesis.
func Open(opts Options) (*Env, error) {
	if opts.Network == nil {
		return nil, errors.New("network is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = contract.NewRegistry("")
	}
	if opts.DSN == "" {
		opts.DSN = store.MemoryDSN
	}

	deployer, err := deployerFor(opts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(opts.DSN, opts.Log.Named("store"))
	if err != nil {
		return nil, err
	}

	clock := chain.NewClock(opts.Wall)
	bus := events.NewBus(nil)
	e := &Env{
		Clock:    clock,
		Ledger:   ledger.New(),
		Bus:      bus,
		network:  opts.Network,
		opts:     opts,
		store:    st,
		registry: opts.Registry,
		deployer: deployer,
		log:      opts.Log.With(zap.String("network", opts.Network.Name)),
		nonces:   make(map[common.Address]uint64),
	}
	e.emitter = stamper{head: clock, next: events.Multi{bus, st.Emitter(opts.Network.Name)}}

	saved, err := st.LoadState(opts.Network.Name)
	switch {
	case errors.Is(err, store.ErrNoState):
		err = e.genesis()
	case err == nil:
		err = e.restore(saved)
	}
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return e, nil
}

func deployerFor(opts Options) (accounts.Account, error) {
	if opts.Network.Development {
		return accounts.Named(accounts.Deployer)
	}
	if opts.PrivateKey == "" {
		return accounts.Account{}, ErrNoDeployerKey
	}
	return accounts.FromHex(accounts.Deployer, opts.PrivateKey)
}

// genesis funds the accounts of a fresh network.
func (e *Env) genesis() error {
	fund := chain.Ether(fmt.Sprint(e.opts.FundEther))
	funded := []accounts.Account{e.deployer}
	if e.network.Development {
		devs, err := accounts.DevAccounts(accounts.DevCount())
		if err != nil {
			return err
		}
		funded = devs
	}
	for _, a := range funded {
		if err := e.Ledger.Mint(a.Address, fund); err != nil {
			return err
		}
	}
	e.log.Debug("genesis", zap.Int("accounts", len(funded)), zap.String("balance", chain.FormatEther(fund)))
	return nil
}

func (e *Env) restore(s *store.State) error {
	e.Clock.Restore(s.Clock)
	e.Ledger.Restore(s.Ledger)
	maps.Copy(e.nonces, s.Nonces)

	if s.CoordinatorAddress != (common.Address{}) {
		e.coord = e.newCoordinator(s.CoordinatorAddress)
		e.coord.Restore(s.Coordinator)
	}
	if s.Raffle == nil {
		return nil
	}
	if e.coord == nil {
		return errors.New("saved raffle has no coordinator")
	}
	r, err := raffle.New(s.Raffle.Config, e.raffleDeps(),
		raffle.WithLogger(e.log.Named("raffle")),
		raffle.WithRequestTimeout(e.opts.RequestTimeout))
	if err != nil {
		return err
	}
	if err := r.Restore(s.Raffle.Snapshot); err != nil {
		return err
	}
	e.raffle = r
	e.log.Debug("state restored", zap.Uint64("block", s.Clock.Number), zap.String("raffle", r.Address().Hex()))
	return nil
}

func (e *Env) newCoordinator(addr common.Address) *vrf.Coordinator {
	return vrf.NewCoordinator(big.NewInt(config.MockBaseFee), big.NewInt(config.MockGasPriceLink), e.emitter,
		vrf.WithAddress(addr),
		vrf.WithLogger(e.log.Named("vrf")))
}

func (e *Env) raffleDeps() raffle.Deps {
	return raffle.Deps{Coordinator: e.coord, Ledger: e.Ledger, Clock: e.Clock, Emitter: e.emitter}
}

// Network returns the network this env runs.
func (e *Env) Network() *chain.Network { return e.network }

// Deployer returns the account deployments are sent from.
func (e *Env) Deployer() accounts.Account { return e.deployer }

// Registry returns the deployment registry.
func (e *Env) Registry() *contract.Registry { return e.registry }

// Raffle returns the deployed raffle.
func (e *Env) Raffle() (*raffle.Raffle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.raffle == nil {
		return nil, ErrNotDeployed
	}
	return e.raffle, nil
}

// Coordinator returns the deployed VRF coordinator.
func (e *Env) Coordinator() (*vrf.Coordinator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.coord == nil {
		return nil, ErrNotDeployed
	}
	return e.coord, nil
}

// Nonce returns the next nonce of addr.
func (e *Env) Nonce(addr common.Address) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nonces[addr]
}

// Deploy runs the deploy scripts matching tags. reset wipes the network
// first so every contract is deployed again.
func (e *Env) Deploy(ctx context.Context, reset bool, tags ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reset {
		if err := e.resetLocked(); err != nil {
			return err
		}
	}

	d := &deploy.Env{
		Network:        e.network,
		Clock:          e.Clock,
		Ledger:         e.Ledger,
		Emitter:        e.emitter,
		Registry:       e.registry,
		Deployer:       e.deployer,
		Nonces:         e.nonces,
		FrontEnd:       e.opts.FrontEnd,
		Verifier:       e.opts.Verifier,
		RequestTimeout: e.opts.RequestTimeout,
		Log:            e.log.Named("deploy"),
		Coordinator:    e.coord,
		Raffle:         e.raffle,
	}
	err := deploy.Run(ctx, d, tags...)
	// Keep whatever got deployed before a failing script.
	e.coord, e.raffle = d.Coordinator, d.Raffle
	if err != nil {
		return err
	}
	if err := e.registry.Save(); err != nil {
		return fmt.Errorf("saving deployments: %w", err)
	}
	return e.saveLocked()
}

func (e *Env) resetLocked() error {
	e.log.Info("resetting network")
	e.registry.Reset(e.network.Name)
	if err := e.store.Reset(e.network.Name); err != nil {
		return err
	}
	e.coord, e.raffle = nil, nil
	e.nonces = make(map[common.Address]uint64)
	e.Ledger.Restore(ledger.Snapshot{})
	return e.genesis()
}

// Verify submits the deployed raffle to v.
func (e *Env) Verify(ctx context.Context, v deploy.Verifier) error {
	e.mu.Lock()
	r, coord := e.raffle, e.coord
	e.mu.Unlock()
	if r == nil {
		return ErrNotDeployed
	}
	return deploy.VerifyRaffle(ctx, v, coord.Address(), r.Config())
}

// ExportFrontEnd writes the raffle address and ABI to fe regardless of
// fe.Update.
func (e *Env) ExportFrontEnd(fe config.FrontEnd) error {
	return deploy.ExportFrontEnd(fe, e.registry, e.network)
}

// Enter sends an enterRaffle transaction from sender paying payment. A nil
// payment pays the entrance fee.
func (e *Env) Enter(ctx context.Context, sender common.Address, payment *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.raffle == nil {
		return ErrNotDeployed
	}
	if payment == nil {
		payment = e.raffle.EntranceFee()
	}
	e.transact(sender)
	return e.raffle.Enter(ctx, sender, payment)
}

// CheckUpkeep calls checkUpkeep. It is a read and mines nothing.
func (e *Env) CheckUpkeep(ctx context.Context) (bool, []byte) {
	r, err := e.Raffle()
	if err != nil {
		return false, nil
	}
	return r.CheckUpkeep(ctx)
}

// PerformUpkeep sends a performUpkeep transaction from the deployer.
func (e *Env) PerformUpkeep(ctx context.Context, performData []byte) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.raffle == nil {
		return 0, ErrNotDeployed
	}
	e.transact(e.deployer.Address)
	return e.raffle.PerformUpkeep(ctx, performData)
}

// Retry sends a retry transaction for an expired randomness request.
func (e *Env) Retry(ctx context.Context) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.raffle == nil {
		return 0, ErrNotDeployed
	}
	e.transact(e.deployer.Address)
	return e.raffle.RetryRandomness(ctx)
}

// Fulfill answers requestID through the coordinator the way the mock's
// fulfillRandomWords does. Nil words are derived from the request id.
func (e *Env) Fulfill(ctx context.Context, requestID uint64, words []*big.Int) error {
	coord, err := e.Coordinator()
	if err != nil {
		return err
	}
	if _, err := e.Raffle(); err != nil {
		return err
	}
	if words == nil {
		return coord.FulfillRandomWords(ctx, requestID, consumer{e})
	}
	return coord.FulfillRandomWordsWithOverride(ctx, requestID, consumer{e}, words)
}

// consumer delivers fulfillments as transactions. The coordinator calls it
// without holding its own lock.
type consumer struct{ e *Env }

func (c consumer) FulfillRandomWords(ctx context.Context, requestID uint64, words []*big.Int) error {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	c.e.transact(c.e.deployer.Address)
	return c.e.raffle.FulfillRandomWords(ctx, requestID, words)
}

// Fulfiller returns an oracle that answers the raffle's requests as they
// arrive.
func (e *Env) Fulfiller(opts ...vrf.FulfillerOption) (*vrf.Fulfiller, error) {
	coord, err := e.Coordinator()
	if err != nil {
		return nil, err
	}
	r, err := e.Raffle()
	if err != nil {
		return nil, err
	}
	opts = append([]vrf.FulfillerOption{vrf.WithFulfillerLogger(e.log.Named("oracle"))}, opts...)
	f := vrf.NewFulfiller(coord, opts...)
	f.Register(r.Address(), consumer{e})
	return f, nil
}

// Keeper returns an automation loop polling the raffle every interval.
func (e *Env) Keeper(every time.Duration, opts ...keeper.Option) *keeper.Keeper {
	opts = append([]keeper.Option{keeper.WithLogger(e.log.Named("keeper"))}, opts...)
	return keeper.New(e, every, opts...)
}

// IncreaseTime moves the time of the next block forward (evm_increaseTime).
func (e *Env) IncreaseTime(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	e.Clock.IncreaseTime(d)
	return nil
}

// Mine mines an empty block (evm_mine).
func (e *Env) Mine() (uint64, time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Clock.Mine()
}

// Fund mints amount to addr. Development chains only.
func (e *Env) Fund(addr common.Address, amount *big.Int) error {
	if !e.network.Development {
		return ErrNotDevelopment
	}
	return e.Ledger.Mint(addr, amount)
}

// Events lists recorded events, oldest first.
func (e *Env) Events(f store.EventFilter) ([]events.Event, error) {
	return e.store.ListEvents(e.network.Name, f)
}

// Save persists the network state.
func (e *Env) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked()
}

func (e *Env) saveLocked() error {
	s := store.State{
		Clock:  e.Clock.Snapshot(),
		Ledger: e.Ledger.Snapshot(),
		Nonces: maps.Clone(e.nonces),
	}
	if e.coord != nil {
		s.CoordinatorAddress = e.coord.Address()
		s.Coordinator = e.coord.Snapshot()
	}
	if e.raffle != nil {
		s.Raffle = &store.RaffleState{Config: e.raffle.Config(), Snapshot: e.raffle.Snapshot()}
	}
	return e.store.SaveState(e.network.Name, s)
}

// Close saves the state and closes the store.
func (e *Env) Close() error {
	err := e.Save()
	if cerr := e.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// transact mines the block a transaction from sender lands in.
func (e *Env) transact(sender common.Address) {
	e.nonces[sender]++
	e.Clock.Mine()
}

// stamper sets the block of events emitted without one.
type stamper struct {
	head events.Head
	next events.Emitter
}

func (s stamper) Emit(ev events.Event) {
	if ev.Block == 0 {
		ev.Block, ev.Time = s.head.Head()
	}
	s.next.Emit(ev)
}
