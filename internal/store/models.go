package store

import "time"

// ChainRow is the block clock of one network.
type ChainRow struct {
	Network     string `gorm:"primaryKey"`
	BlockNumber uint64 `gorm:"not null"`
	BlockTime   time.Time
	OffsetNanos int64 `gorm:"default:0"`
	NextMinTime *time.Time
	UpdatedAt   time.Time
}

// BalanceRow is one account: ledger balance (base-10 wei) and nonce.
type BalanceRow struct {
	Network   string `gorm:"primaryKey"`
	Address   string `gorm:"primaryKey"`
	Wei       string `gorm:"not null"`
	Nonce     uint64 `gorm:"default:0"`
	Rejecting bool   `gorm:"default:false"`
}

// RaffleRow is the deployed raffle of one network.
type RaffleRow struct {
	Network string `gorm:"primaryKey"`
	Address string `gorm:"not null"`

	EntranceFee      string `gorm:"not null"`
	IntervalSeconds  int64  `gorm:"not null"`
	GasLane          string
	SubscriptionID   uint64
	CallbackGasLimit uint32
	Confirmations    uint16
	NumWords         uint32

	State           uint8 `gorm:"default:0"`
	LatestTimestamp time.Time
	RecentWinner    string
	Round           uint64 `gorm:"default:0"`
	HasPending      bool   `gorm:"default:false"`
	PendingID       uint64
	PendingPlayers  int
	PendingAt       time.Time
}

// PlayerRow is one entry, ordered by Position.
type PlayerRow struct {
	ID       int64  `gorm:"primaryKey"`
	Network  string `gorm:"index:idx_player_network_position"`
	Position int    `gorm:"index:idx_player_network_position"`
	Address  string `gorm:"not null"`
}

// CoordinatorRow holds the coordinator's id counters.
type CoordinatorRow struct {
	Network string `gorm:"primaryKey"`
	Address string
	NextSub uint64
	NextReq uint64
}

// SubscriptionRow is one VRF subscription. Consumers is a comma-separated
// address list.
type SubscriptionRow struct {
	Network   string `gorm:"primaryKey"`
	SubID     uint64 `gorm:"primaryKey;autoIncrement:false"`
	Owner     string
	Balance   string
	Consumers string
}

// RequestRow is one pending VRF request.
type RequestRow struct {
	Network          string `gorm:"primaryKey"`
	RequestID        uint64 `gorm:"primaryKey;autoIncrement:false"`
	Consumer         string
	KeyHash          string
	SubID            uint64
	Confirmations    uint16
	CallbackGasLimit uint32
	NumWords         uint32
}

// EventRow is one emitted log.
type EventRow struct {
	ID        int64  `gorm:"primaryKey"`
	Network   string `gorm:"index:idx_event_network_name"`
	Name      string `gorm:"index:idx_event_network_name"`
	Contract  string
	Block     uint64
	Time      time.Time
	Player    string
	Winner    string
	RequestID uint64
	SubID     uint64
	Amount    string
	Round     uint64
	Success   bool
}
