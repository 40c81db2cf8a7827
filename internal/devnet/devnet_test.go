package devnet_test

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/accounts"
	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/Mohsinsiddi/rafflekit/internal/devnet"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/store"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func network(t *testing.T, name string, fee string) *chain.Network {
	t.Helper()
	n, err := chain.NewRegistry().GetByName(name)
	require.NoError(t, err)
	cp := *n
	if fee != "" {
		cp.Raffle.EntranceFee = chain.Ether(fee)
	}
	return &cp
}

func open(t *testing.T, opts devnet.Options) *devnet.Env {
	t.Helper()
	if opts.Network == nil {
		opts.Network = network(t, "hardhat", "0.1")
	}
	if opts.FundEther == 0 {
		opts.FundEther = 10000
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = time.Minute
	}
	opts.Log = zaptest.NewLogger(t)
	env, err := devnet.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func players(t *testing.T, n int) []accounts.Account {
	t.Helper()
	devs, err := accounts.DevAccounts(n + 1)
	require.NoError(t, err)
	return devs[1:]
}

// passInterval pushes block time past the raffle interval.
func passInterval(t *testing.T, env *devnet.Env) {
	t.Helper()
	r, err := env.Raffle()
	require.NoError(t, err)
	require.NoError(t, env.IncreaseTime(r.Interval()+time.Second))
	env.Mine()
}

func TestGenesisFundsDevAccounts(t *testing.T) {
	env := open(t, devnet.Options{})
	for _, a := range players(t, 3) {
		assert.Equal(t, chain.Ether("10000"), env.Ledger.BalanceOf(a.Address))
	}
	assert.Equal(t, chain.Ether("10000"), env.Ledger.BalanceOf(env.Deployer().Address))

	_, err := env.Raffle()
	assert.ErrorIs(t, err, devnet.ErrNotDeployed)
	assert.ErrorIs(t, env.Enter(context.Background(), env.Deployer().Address, nil), devnet.ErrNotDeployed)
}

func TestLiveNetworkNeedsKey(t *testing.T) {
	_, err := devnet.Open(devnet.Options{Network: network(t, "sepolia", ""), Log: zaptest.NewLogger(t)})
	assert.ErrorIs(t, err, devnet.ErrNoDeployerKey)
}

func TestLiveNetworkFundsOnlyDeployer(t *testing.T) {
	env := open(t, devnet.Options{Network: network(t, "sepolia", ""), PrivateKey: testKey})
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", env.Deployer().Address.Hex())
	assert.Len(t, env.Ledger.Accounts(), 1)

	require.NoError(t, env.Deploy(context.Background(), false))
	coord, err := env.Coordinator()
	require.NoError(t, err)
	assert.Equal(t, env.Network().Raffle.VRFCoordinator, coord.Address())
	assert.ErrorIs(t, env.Fund(env.Deployer().Address, big.NewInt(1)), devnet.ErrNotDevelopment)
}

// Four players enter at 0.1 ETH, the interval passes, the keeper performs
// upkeep and the oracle answers: the winner collects 0.4 ETH and the raffle
// reopens empty.
func TestRaffleRoundEndToEnd(t *testing.T) {
	env := open(t, devnet.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, env.Deploy(ctx, false))
	r, err := env.Raffle()
	require.NoError(t, err)
	sub := env.Bus.Subscribe(64)
	defer sub.Unsubscribe()

	entrants := players(t, 4)
	for _, p := range entrants {
		require.NoError(t, env.Enter(ctx, p.Address, nil))
	}
	assert.Equal(t, 4, r.NumPlayers())
	assert.Equal(t, chain.Ether("0.4"), r.Balance())

	start := make(map[string]*big.Int)
	for _, p := range entrants {
		start[p.Address.Hex()] = env.Ledger.BalanceOf(p.Address)
	}
	opened := r.LatestTimestamp()

	needed, _ := env.CheckUpkeep(ctx)
	assert.False(t, needed)
	passInterval(t, env)
	needed, _ = env.CheckUpkeep(ctx)
	require.True(t, needed)

	f, err := env.Fulfiller()
	require.NoError(t, err)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = f.Run(runCtx) }()
	go func() { _ = env.Keeper(10 * time.Millisecond).Run(runCtx) }()

	var picked events.Event
	for picked.Name != events.WinnerPicked {
		select {
		case picked = <-sub.C():
		case <-ctx.Done():
			t.Fatal("no winner picked")
		}
	}
	stop()

	words, err := vrf.DeriveWords(1, 1)
	require.NoError(t, err)
	idx := new(big.Int).Mod(words[0], big.NewInt(4)).Int64()
	winner := entrants[idx].Address

	assert.Equal(t, winner, picked.Winner)
	assert.Equal(t, winner, r.RecentWinner())
	assert.Equal(t, raffle.StateOpen, r.State())
	assert.Equal(t, 0, r.NumPlayers())
	assert.Equal(t, 0, r.Balance().Sign())
	assert.True(t, r.LatestTimestamp().After(opened))
	assert.Equal(t, uint64(1), r.Round())

	want := new(big.Int).Add(start[winner.Hex()], chain.Ether("0.4"))
	assert.Equal(t, want, env.Ledger.BalanceOf(winner))

	entered, err := env.Events(store.EventFilter{Name: events.RaffleEntered})
	require.NoError(t, err)
	require.Len(t, entered, 4)
	for i, e := range entered {
		assert.Equal(t, entrants[i].Address, e.Player)
		assert.NotZero(t, e.Block)
		assert.Equal(t, r.Address(), e.Contract)
	}
	won, err := env.Events(store.EventFilter{Name: events.WinnerPicked})
	require.NoError(t, err)
	require.Len(t, won, 1)
	assert.Equal(t, winner, won[0].Winner)
}

func TestManualFulfillment(t *testing.T) {
	ctx := context.Background()
	env := open(t, devnet.Options{})
	require.NoError(t, env.Deploy(ctx, false))
	p := players(t, 1)[0]

	require.NoError(t, env.Enter(ctx, p.Address, nil))
	_, err := env.PerformUpkeep(ctx, nil)
	assert.ErrorIs(t, err, raffle.ErrUpkeepNotNeeded)

	passInterval(t, env)
	id, err := env.PerformUpkeep(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	require.NoError(t, env.Fulfill(ctx, id, []*big.Int{big.NewInt(7)}))
	r, _ := env.Raffle()
	assert.Equal(t, p.Address, r.RecentWinner())

	assert.ErrorIs(t, env.Fulfill(ctx, id, nil), vrf.ErrNonexistentRequest)
}

func TestRetryMakesOldRequestStale(t *testing.T) {
	ctx := context.Background()
	env := open(t, devnet.Options{})
	require.NoError(t, env.Deploy(ctx, false))
	require.NoError(t, env.Enter(ctx, players(t, 1)[0].Address, nil))
	passInterval(t, env)

	first, err := env.PerformUpkeep(ctx, nil)
	require.NoError(t, err)
	_, err = env.Retry(ctx)
	assert.ErrorIs(t, err, raffle.ErrRequestNotExpired)

	require.NoError(t, env.IncreaseTime(2*time.Minute))
	env.Mine()
	second, err := env.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	r, _ := env.Raffle()
	coord, _ := env.Coordinator()
	assert.Equal(t, []uint64{second}, coord.Pending())
	assert.ErrorIs(t, env.Fulfill(ctx, first, nil), vrf.ErrNonexistentRequest)
	assert.Equal(t, raffle.StateCalculating, r.State())

	require.NoError(t, env.Fulfill(ctx, second, nil))
	assert.Equal(t, raffle.StateOpen, r.State())
}

func TestDeployTransactionsBumpNonces(t *testing.T) {
	ctx := context.Background()
	env := open(t, devnet.Options{})
	require.NoError(t, env.Deploy(ctx, false))
	from := env.Deployer().Address
	assert.Equal(t, uint64(5), env.Nonce(from))

	r, _ := env.Raffle()
	assert.Equal(t, contract.DeploymentAddress(from, 3), r.Address())

	p := players(t, 1)[0]
	require.NoError(t, env.Enter(ctx, p.Address, nil))
	assert.Equal(t, uint64(1), env.Nonce(p.Address))
}

func TestStatePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	opts := func() devnet.Options {
		return devnet.Options{
			Network:  network(t, "localhost", "0.1"),
			DSN:      filepath.Join(dir, "localhost-devnet.db"),
			Registry: contract.NewRegistry(filepath.Join(dir, "deployments.json")),
		}
	}

	first := open(t, opts())
	require.NoError(t, first.Deploy(ctx, false))
	p := players(t, 1)[0]
	require.NoError(t, first.Enter(ctx, p.Address, nil))
	r, _ := first.Raffle()
	addr := r.Address()
	head, _ := first.Clock.Head()
	require.NoError(t, first.Close())

	reg := contract.NewRegistry(filepath.Join(dir, "deployments.json"))
	require.NoError(t, reg.Load())
	o := opts()
	o.Registry = reg
	second := open(t, o)

	r2, err := second.Raffle()
	require.NoError(t, err)
	assert.Equal(t, addr, r2.Address())
	assert.Equal(t, []common.Address{p.Address}, r2.Players())
	assert.Equal(t, chain.Ether("0.1"), r2.Balance())
	assert.Equal(t, uint64(1), second.Nonce(p.Address))
	got, _ := second.Clock.Head()
	assert.Equal(t, head, got)

	entry, err := reg.Get(contract.RaffleName, "localhost")
	require.NoError(t, err)
	assert.Equal(t, addr, entry.Address)
}

func TestDeployResetStartsOver(t *testing.T) {
	ctx := context.Background()
	env := open(t, devnet.Options{})
	require.NoError(t, env.Deploy(ctx, false))
	first, _ := env.Raffle()
	require.NoError(t, env.Enter(ctx, players(t, 1)[0].Address, nil))

	require.NoError(t, env.Deploy(ctx, true))
	second, err := env.Raffle()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Address(), second.Address())
	assert.Equal(t, 0, second.NumPlayers())
	assert.Equal(t, chain.Ether("10000"), env.Ledger.BalanceOf(players(t, 1)[0].Address))

	evs, err := env.Events(store.EventFilter{Name: events.RaffleEntered})
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestIncreaseTimeRejectsNonPositive(t *testing.T) {
	env := open(t, devnet.Options{})
	assert.ErrorIs(t, env.IncreaseTime(0), devnet.ErrInvalidDuration)
}
