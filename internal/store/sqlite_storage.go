package store

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/Mohsinsiddi/rafflekit/internal/raffle"
	"github.com/Mohsinsiddi/rafflekit/internal/vrf"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SqliteStorage is the gorm/sqlite Storage.
type SqliteStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (or creates) the database at dsn and migrates the schema.
func Open(dsn string, log *zap.Logger) (*SqliteStorage, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("initializing database...", zap.String("dsn", dsn))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&ChainRow{},
		&BalanceRow{},
		&RaffleRow{},
		&PlayerRow{},
		&CoordinatorRow{},
		&SubscriptionRow{},
		&RequestRow{},
		&EventRow{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SqliteStorage{db: db, log: log}, nil
}

// SaveState replaces the stored state of network in one transaction.
func (s *SqliteStorage) SaveState(network string, st State) error {
	s.log.Debug("saving state...", zap.String("network", network), zap.Uint64("block", st.Clock.Number))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteState(tx, network); err != nil {
			return err
		}

		head := &ChainRow{
			Network:     network,
			BlockNumber: st.Clock.Number,
			BlockTime:   st.Clock.Stamp.UTC(),
			OffsetNanos: int64(st.Clock.Offset),
		}
		if !st.Clock.Floor.IsZero() {
			floor := st.Clock.Floor.UTC()
			head.NextMinTime = &floor
		}
		err := tx.Create(head).Error
		if err != nil {
			return err
		}

		if err := saveAccounts(tx, network, st); err != nil {
			return err
		}

		if err := saveCoordinator(tx, network, st.CoordinatorAddress, st.Coordinator); err != nil {
			return err
		}

		if st.Raffle != nil {
			if err := saveRaffle(tx, network, st.Raffle); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving state for %s: %w", network, err)
	}

	s.log.Debug("saving state...done")
	return nil
}

// LoadState reads the stored state of network.
func (s *SqliteStorage) LoadState(network string) (*State, error) {
	var head ChainRow
	err := s.db.Where("network = ?", network).First(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w for %s", ErrNoState, network)
	}
	if err != nil {
		return nil, err
	}

	st := &State{}
	st.Clock.Number = head.BlockNumber
	st.Clock.Stamp = head.BlockTime.UTC()
	st.Clock.Offset = time.Duration(head.OffsetNanos)
	if head.NextMinTime != nil {
		st.Clock.Floor = head.NextMinTime.UTC()
	}

	var balances []BalanceRow
	if err := s.db.Where("network = ?", network).Find(&balances).Error; err != nil {
		return nil, err
	}
	st.Ledger.Balances = make(map[common.Address]*big.Int, len(balances))
	st.Nonces = make(map[common.Address]uint64)
	for _, b := range balances {
		a := common.HexToAddress(b.Address)
		wei, ok := new(big.Int).SetString(b.Wei, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt balance for %s: %q", b.Address, b.Wei)
		}
		st.Ledger.Balances[a] = wei
		if b.Nonce > 0 {
			st.Nonces[a] = b.Nonce
		}
		if b.Rejecting {
			st.Ledger.Rejecting = append(st.Ledger.Rejecting, a)
		}
	}

	if st.CoordinatorAddress, st.Coordinator, err = s.loadCoordinator(network); err != nil {
		return nil, err
	}

	var rr RaffleRow
	err = s.db.Where("network = ?", network).First(&rr).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, err
	default:
		rs, err := s.loadRaffle(network, rr)
		if err != nil {
			return nil, err
		}
		st.Raffle = rs
	}
	return st, nil
}

// Reset deletes the state and event log of network.
func (s *SqliteStorage) Reset(network string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteState(tx, network); err != nil {
			return err
		}
		return tx.Where("network = ?", network).Delete(&EventRow{}).Error
	})
}

// RecordEvent appends e to the event log of network.
func (s *SqliteStorage) RecordEvent(network string, e events.Event) error {
	row := EventRow{
		Network:   network,
		Name:      string(e.Name),
		Contract:  e.Contract.Hex(),
		Block:     e.Block,
		Time:      e.Time.UTC(),
		RequestID: e.RequestID,
		SubID:     e.SubID,
		Round:     e.Round,
		Success:   e.Success,
	}
	if e.Player != (common.Address{}) {
		row.Player = e.Player.Hex()
	}
	if e.Winner != (common.Address{}) {
		row.Winner = e.Winner.Hex()
	}
	if e.Amount != nil {
		row.Amount = e.Amount.String()
	}
	return s.db.Create(&row).Error
}

// ListEvents returns the event log of network, oldest first. With a Limit
// only the most recent Limit events are returned.
func (s *SqliteStorage) ListEvents(network string, f EventFilter) ([]events.Event, error) {
	q := s.db.Where("network = ?", network)
	if f.Name != "" {
		q = q.Where("name = ?", string(f.Name))
	}
	if !f.Since.IsZero() {
		q = q.Where("time >= ?", f.Since.UTC())
	}
	q = q.Order("id desc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []EventRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]events.Event, len(rows))
	for i, r := range rows {
		e := events.Event{
			Name:      events.Name(r.Name),
			Contract:  common.HexToAddress(r.Contract),
			Block:     r.Block,
			Time:      r.Time.UTC(),
			RequestID: r.RequestID,
			SubID:     r.SubID,
			Round:     r.Round,
			Success:   r.Success,
		}
		if r.Player != "" {
			e.Player = common.HexToAddress(r.Player)
		}
		if r.Winner != "" {
			e.Winner = common.HexToAddress(r.Winner)
		}
		if r.Amount != "" {
			e.Amount, _ = new(big.Int).SetString(r.Amount, 10)
		}
		out[len(rows)-1-i] = e
	}
	return out, nil
}

// Emitter adapts the event log to events.Emitter. Write failures are logged.
func (s *SqliteStorage) Emitter(network string) events.Emitter {
	return eventSink{s: s, network: network}
}

// Close closes the underlying connection.
func (s *SqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type eventSink struct {
	s       *SqliteStorage
	network string
}

func (e eventSink) Emit(ev events.Event) {
	if err := e.s.RecordEvent(e.network, ev); err != nil {
		e.s.log.Error("recording event", zap.String("event", string(ev.Name)), zap.Error(err))
	}
}

// --- helpers ---

func deleteState(tx *gorm.DB, network string) error {
	for _, model := range []any{
		&ChainRow{}, &BalanceRow{}, &RaffleRow{}, &PlayerRow{},
		&CoordinatorRow{}, &SubscriptionRow{}, &RequestRow{},
	} {
		if err := tx.Where("network = ?", network).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func saveAccounts(tx *gorm.DB, network string, st State) error {
	rows := make(map[common.Address]*BalanceRow)
	row := func(a common.Address) *BalanceRow {
		r, ok := rows[a]
		if !ok {
			r = &BalanceRow{Network: network, Address: a.Hex(), Wei: "0"}
			rows[a] = r
		}
		return r
	}
	for a, wei := range st.Ledger.Balances {
		row(a).Wei = wei.String()
	}
	for _, a := range st.Ledger.Rejecting {
		row(a).Rejecting = true
	}
	for a, n := range st.Nonces {
		row(a).Nonce = n
	}
	if len(rows) == 0 {
		return nil
	}
	list := make([]BalanceRow, 0, len(rows))
	for _, r := range rows {
		list = append(list, *r)
	}
	return tx.CreateInBatches(list, 100).Error
}

func saveCoordinator(tx *gorm.DB, network string, addr common.Address, c vrf.Snapshot) error {
	err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&CoordinatorRow{
		Network: network,
		Address: addr.Hex(),
		NextSub: c.NextSub,
		NextReq: c.NextReq,
	}).Error
	if err != nil {
		return err
	}

	for _, sub := range c.Subscriptions {
		consumers := make([]string, len(sub.Consumers))
		for i, a := range sub.Consumers {
			consumers[i] = a.Hex()
		}
		balance := "0"
		if sub.Balance != nil {
			balance = sub.Balance.String()
		}
		err := tx.Create(&SubscriptionRow{
			Network:   network,
			SubID:     sub.ID,
			Owner:     sub.Owner.Hex(),
			Balance:   balance,
			Consumers: strings.Join(consumers, ","),
		}).Error
		if err != nil {
			return err
		}
	}

	for _, r := range c.Requests {
		err := tx.Create(&RequestRow{
			Network:          network,
			RequestID:        r.ID,
			Consumer:         r.Consumer.Hex(),
			KeyHash:          r.KeyHash.Hex(),
			SubID:            r.SubID,
			Confirmations:    r.Confirmations,
			CallbackGasLimit: r.CallbackGasLimit,
			NumWords:         r.NumWords,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SqliteStorage) loadCoordinator(network string) (common.Address, vrf.Snapshot, error) {
	var snap vrf.Snapshot

	var head CoordinatorRow
	err := s.db.Where("network = ?", network).First(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.Address{}, snap, nil
	}
	if err != nil {
		return common.Address{}, snap, err
	}
	addr := common.HexToAddress(head.Address)
	snap.NextSub, snap.NextReq = head.NextSub, head.NextReq

	var subs []SubscriptionRow
	if err := s.db.Where("network = ?", network).Order("sub_id").Find(&subs).Error; err != nil {
		return addr, snap, err
	}
	for _, row := range subs {
		bal, ok := new(big.Int).SetString(row.Balance, 10)
		if !ok {
			return addr, snap, fmt.Errorf("corrupt subscription balance %q", row.Balance)
		}
		sub := vrf.Subscription{ID: row.SubID, Owner: common.HexToAddress(row.Owner), Balance: bal}
		if row.Consumers != "" {
			for _, a := range strings.Split(row.Consumers, ",") {
				sub.Consumers = append(sub.Consumers, common.HexToAddress(a))
			}
		}
		snap.Subscriptions = append(snap.Subscriptions, sub)
	}

	var reqs []RequestRow
	if err := s.db.Where("network = ?", network).Order("request_id").Find(&reqs).Error; err != nil {
		return addr, snap, err
	}
	for _, row := range reqs {
		snap.Requests = append(snap.Requests, vrf.Request{
			ID: row.RequestID,
			RequestParams: vrf.RequestParams{
				Consumer:         common.HexToAddress(row.Consumer),
				KeyHash:          common.HexToHash(row.KeyHash),
				SubID:            row.SubID,
				Confirmations:    row.Confirmations,
				CallbackGasLimit: row.CallbackGasLimit,
				NumWords:         row.NumWords,
			},
		})
	}
	return addr, snap, nil
}

func saveRaffle(tx *gorm.DB, network string, r *RaffleState) error {
	fee := "0"
	if r.Config.EntranceFee != nil {
		fee = r.Config.EntranceFee.String()
	}
	row := RaffleRow{
		Network:          network,
		Address:          r.Config.Address.Hex(),
		EntranceFee:      fee,
		IntervalSeconds:  int64(r.Config.Interval / time.Second),
		GasLane:          r.Config.GasLane.Hex(),
		SubscriptionID:   r.Config.SubscriptionID,
		CallbackGasLimit: r.Config.CallbackGasLimit,
		Confirmations:    r.Config.Confirmations,
		NumWords:         r.Config.NumWords,
		State:            uint8(r.State),
		LatestTimestamp:  r.Latest.UTC(),
		Round:            r.Round,
	}
	if r.RecentWinner != (common.Address{}) {
		row.RecentWinner = r.RecentWinner.Hex()
	}
	if r.Pending != nil {
		row.HasPending = true
		row.PendingID = r.Pending.ID
		row.PendingPlayers = r.Pending.NumPlayers
		row.PendingAt = r.Pending.RequestedAt.UTC()
	}
	if err := tx.Create(&row).Error; err != nil {
		return err
	}

	if len(r.Players) == 0 {
		return nil
	}
	players := make([]PlayerRow, len(r.Players))
	for i, p := range r.Players {
		players[i] = PlayerRow{Network: network, Position: i, Address: p.Hex()}
	}
	return tx.CreateInBatches(players, 100).Error
}

func (s *SqliteStorage) loadRaffle(network string, row RaffleRow) (*RaffleState, error) {
	fee, ok := new(big.Int).SetString(row.EntranceFee, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt entrance fee %q", row.EntranceFee)
	}
	rs := &RaffleState{
		Config: raffle.Config{
			Address:          common.HexToAddress(row.Address),
			EntranceFee:      fee,
			Interval:         time.Duration(row.IntervalSeconds) * time.Second,
			GasLane:          common.HexToHash(row.GasLane),
			SubscriptionID:   row.SubscriptionID,
			CallbackGasLimit: row.CallbackGasLimit,
			Confirmations:    row.Confirmations,
			NumWords:         row.NumWords,
		},
		Snapshot: raffle.Snapshot{
			State:  raffle.State(row.State),
			Latest: row.LatestTimestamp.UTC(),
			Round:  row.Round,
		},
	}
	if row.RecentWinner != "" {
		rs.RecentWinner = common.HexToAddress(row.RecentWinner)
	}
	if row.HasPending {
		rs.Pending = &raffle.PendingRequest{
			ID:          row.PendingID,
			NumPlayers:  row.PendingPlayers,
			RequestedAt: row.PendingAt.UTC(),
		}
	}

	var players []PlayerRow
	if err := s.db.Where("network = ?", network).Order("position").Find(&players).Error; err != nil {
		return nil, err
	}
	for _, p := range players {
		rs.Players = append(rs.Players, common.HexToAddress(p.Address))
	}
	return rs, nil
}
