package config

import "time"

// Timeouts used across cmd and the devnet.
const (
	FixtureTimeout   = 30 * time.Second // deploying the full fixture
	WinnerTimeout    = 2 * time.Minute  // waiting for WinnerPicked in simulate/watch
	VerifyTimeout    = 60 * time.Second // explorer verification round trip
	FulfillTimeout   = 30 * time.Second // one oracle callback
	DefaultMockDelay = 200 * time.Millisecond
)

// VRF mock pricing: 0.25 LINK base fee, 1e9 juels per gas.
const (
	MockBaseFee      = int64(250_000_000_000_000_000)
	MockGasPriceLink = int64(1_000_000_000)
	MockSubFund      = "10" // LINK funded into the dev subscription
)

// Raffle contract constants.
const (
	RequestConfirmations = uint16(3)
	NumWords             = uint32(1)
)
