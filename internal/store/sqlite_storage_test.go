package store_test

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/ledger"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/store"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	alice      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob        = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	raffleAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	coordAddr  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	genesis    = time.Unix(1_700_000_000, 0).UTC()
)

func openMemory(t *testing.T) *store.SqliteStorage {
	t.Helper()
	s, err := store.Open(store.MemoryDSN, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleState() store.State {
	return store.State{
		Clock: chain.ClockSnapshot{Number: 12, Stamp: genesis.Add(45 * time.Second), Offset: 31 * time.Second, Floor: genesis.Add(76 * time.Second)},
		Ledger: ledger.Snapshot{
			Balances: map[common.Address]*big.Int{
				alice:      chain.Ether("9999.9"),
				bob:        chain.Ether("9999.9"),
				raffleAddr: chain.Ether("0.2"),
			},
			Rejecting: []common.Address{bob},
		},
		Coordinator: vrf.Snapshot{
			NextSub: 1,
			NextReq: 3,
			Subscriptions: []vrf.Subscription{{
				ID: 1, Owner: alice, Balance: chain.Ether("9.5"),
				Consumers: []common.Address{raffleAddr},
			}},
			Requests: []vrf.Request{{
				ID: 3,
				RequestParams: vrf.RequestParams{
					Consumer:         raffleAddr,
					KeyHash:          common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc"),
					SubID:            1,
					Confirmations:    3,
					CallbackGasLimit: 500000,
					NumWords:         1,
				},
			}},
		},
		Nonces:             map[common.Address]uint64{alice: 4, raffleAddr: 1},
		CoordinatorAddress: coordAddr,
		Raffle: &store.RaffleState{
			Config: raffle.Config{
				Address:          raffleAddr,
				EntranceFee:      chain.Ether("0.1"),
				Interval:         30 * time.Second,
				GasLane:          common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc"),
				SubscriptionID:   1,
				CallbackGasLimit: 500000,
				Confirmations:    3,
				NumWords:         1,
			},
			Snapshot: raffle.Snapshot{
				State:        raffle.StateCalculating,
				Players:      []common.Address{alice, bob},
				Latest:       genesis,
				RecentWinner: bob,
				Round:        2,
				Pending:      &raffle.PendingRequest{ID: 3, NumPlayers: 2, RequestedAt: genesis.Add(44 * time.Second)},
			},
		},
	}
}

func TestLoadStateMissing(t *testing.T) {
	s := openMemory(t)
	_, err := s.LoadState("localhost")
	assert.ErrorIs(t, err, store.ErrNoState)
}

func TestSaveAndLoadState(t *testing.T) {
	s := openMemory(t)
	want := sampleState()
	require.NoError(t, s.SaveState("localhost", want))

	got, err := s.LoadState("localhost")
	require.NoError(t, err)

	assert.Equal(t, want.Clock.Number, got.Clock.Number)
	assert.True(t, want.Clock.Stamp.Equal(got.Clock.Stamp))
	assert.Equal(t, want.Clock.Offset, got.Clock.Offset)
	assert.True(t, want.Clock.Floor.Equal(got.Clock.Floor))

	require.Len(t, got.Ledger.Balances, 3)
	for a, wei := range want.Ledger.Balances {
		assert.Equal(t, 0, wei.Cmp(got.Ledger.Balances[a]), "balance of %s", a.Hex())
	}
	assert.ElementsMatch(t, want.Ledger.Rejecting, got.Ledger.Rejecting)
	assert.Equal(t, want.Nonces, got.Nonces)
	assert.Equal(t, coordAddr, got.CoordinatorAddress)

	assert.Equal(t, uint64(1), got.Coordinator.NextSub)
	assert.Equal(t, uint64(3), got.Coordinator.NextReq)
	require.Len(t, got.Coordinator.Subscriptions, 1)
	assert.Equal(t, alice, got.Coordinator.Subscriptions[0].Owner)
	assert.Equal(t, 0, chain.Ether("9.5").Cmp(got.Coordinator.Subscriptions[0].Balance))
	assert.Equal(t, []common.Address{raffleAddr}, got.Coordinator.Subscriptions[0].Consumers)
	assert.Equal(t, want.Coordinator.Requests, got.Coordinator.Requests)

	require.NotNil(t, got.Raffle)
	assert.Equal(t, raffleAddr, got.Raffle.Config.Address)
	assert.Equal(t, 0, chain.Ether("0.1").Cmp(got.Raffle.Config.EntranceFee))
	assert.Equal(t, 30*time.Second, got.Raffle.Config.Interval)
	assert.Equal(t, want.Raffle.Config.GasLane, got.Raffle.Config.GasLane)
	assert.Equal(t, uint32(500000), got.Raffle.Config.CallbackGasLimit)
	assert.Equal(t, uint16(3), got.Raffle.Config.Confirmations)
	assert.Equal(t, raffle.StateCalculating, got.Raffle.State)
	assert.Equal(t, []common.Address{alice, bob}, got.Raffle.Players)
	assert.True(t, genesis.Equal(got.Raffle.Latest))
	assert.Equal(t, bob, got.Raffle.RecentWinner)
	assert.Equal(t, uint64(2), got.Raffle.Round)
	require.NotNil(t, got.Raffle.Pending)
	assert.Equal(t, uint64(3), got.Raffle.Pending.ID)
	assert.Equal(t, 2, got.Raffle.Pending.NumPlayers)
}

func TestSaveStateReplacesPrevious(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.SaveState("localhost", sampleState()))

	next := sampleState()
	next.Raffle.State = raffle.StateOpen
	next.Raffle.Players = nil
	next.Raffle.Pending = nil
	next.Raffle.Round = 3
	next.Coordinator.Requests = nil
	next.Ledger.Rejecting = nil
	require.NoError(t, s.SaveState("localhost", next))

	got, err := s.LoadState("localhost")
	require.NoError(t, err)
	assert.Empty(t, got.Raffle.Players)
	assert.Nil(t, got.Raffle.Pending)
	assert.Equal(t, uint64(3), got.Raffle.Round)
	assert.Empty(t, got.Coordinator.Requests)
	assert.Empty(t, got.Ledger.Rejecting)
}

func TestStateWithoutRaffle(t *testing.T) {
	s := openMemory(t)
	st := sampleState()
	st.Raffle = nil
	require.NoError(t, s.SaveState("hardhat", st))

	got, err := s.LoadState("hardhat")
	require.NoError(t, err)
	assert.Nil(t, got.Raffle)
}

func TestNetworksAreIsolated(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.SaveState("localhost", sampleState()))

	_, err := s.LoadState("sepolia")
	assert.ErrorIs(t, err, store.ErrNoState)

	require.NoError(t, s.Reset("localhost"))
	_, err = s.LoadState("localhost")
	assert.ErrorIs(t, err, store.ErrNoState)
}

func TestEventLog(t *testing.T) {
	s := openMemory(t)
	sink := s.Emitter("localhost")

	sink.Emit(events.Event{Name: events.RaffleEntered, Contract: raffleAddr, Block: 5, Time: genesis, Player: alice, Amount: chain.Ether("0.1")})
	sink.Emit(events.Event{Name: events.RaffleEntered, Contract: raffleAddr, Block: 6, Time: genesis.Add(time.Second), Player: bob, Amount: chain.Ether("0.1")})
	sink.Emit(events.Event{Name: events.RequestedRaffleWinner, Contract: raffleAddr, Block: 7, Time: genesis.Add(40 * time.Second), RequestID: 1})
	sink.Emit(events.Event{Name: events.WinnerPicked, Contract: raffleAddr, Block: 8, Time: genesis.Add(41 * time.Second), Winner: bob, Round: 1, Amount: chain.Ether("0.2")})
	require.NoError(t, s.RecordEvent("sepolia", events.Event{Name: events.RaffleEntered, Time: genesis}))

	all, err := s.ListEvents("localhost", store.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, events.RaffleEntered, all[0].Name)
	assert.Equal(t, alice, all[0].Player)
	assert.Equal(t, 0, chain.Ether("0.1").Cmp(all[0].Amount))
	assert.Equal(t, events.WinnerPicked, all[3].Name)
	assert.Equal(t, bob, all[3].Winner)
	assert.Equal(t, uint64(1), all[3].Round)

	entered, err := s.ListEvents("localhost", store.EventFilter{Name: events.RaffleEntered})
	require.NoError(t, err)
	assert.Len(t, entered, 2)

	last, err := s.ListEvents("localhost", store.EventFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, events.RequestedRaffleWinner, last[0].Name)
	assert.Equal(t, events.WinnerPicked, last[1].Name)

	since, err := s.ListEvents("localhost", store.EventFilter{Since: genesis.Add(30 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	require.NoError(t, s.Reset("localhost"))
	all, err = s.ListEvents("localhost", store.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localhost-devnet.db")

	s, err := store.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveState("localhost", sampleState()))
	require.NoError(t, s.Close())

	reopened, err := store.Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LoadState("localhost")
	require.NoError(t, err)
	assert.Len(t, got.Raffle.Players, 2)
}
