package chain

import (
	"sync"
	"time"
)

// Clock is the block clock of the simulated chain. Every mined block gets a
// timestamp strictly greater than its parent, and time can be pushed forward
// the way evm_increaseTime does.
type Clock struct {
	mu     sync.Mutex
	number uint64
	stamp  time.Time // timestamp of the latest block
	offset time.Duration
	floor  time.Time // earliest stamp of the next block, zero when unset
	wall   func() time.Time
}

// NewClock creates a clock whose genesis block is stamped at wall().
// wall defaults to time.Now.
func NewClock(wall func() time.Time) *Clock {
	if wall == nil {
		wall = time.Now
	}
	return &Clock{stamp: wall().Truncate(time.Second), wall: wall}
}

// Now returns the timestamp of the latest block. Contracts read block time,
// not wall time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stamp
}

// Head returns the latest block number and timestamp.
func (c *Clock) Head() (uint64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.number, c.stamp
}

// IncreaseTime shifts the time of the next mined block forward by d. The
// next block is stamped at least d after the latest one.
func (c *Clock) IncreaseTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d = d.Truncate(time.Second)
	c.offset += d
	base := c.stamp
	if !c.floor.IsZero() {
		base = c.floor
	}
	c.floor = base.Add(d)
}

// Mine produces a new block and returns its number and timestamp.
func (c *Clock) Mine() (uint64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.wall().Truncate(time.Second).Add(c.offset)
	if next.Before(c.floor) {
		next = c.floor
	}
	c.floor = time.Time{}
	if !next.After(c.stamp) {
		next = c.stamp.Add(time.Second)
	}
	c.number++
	c.stamp = next
	return c.number, c.stamp
}

// MineN mines n blocks and returns the last one.
func (c *Clock) MineN(n uint64) (uint64, time.Time) {
	num, ts := c.Head()
	for i := uint64(0); i < n; i++ {
		num, ts = c.Mine()
	}
	return num, ts
}

// ClockSnapshot is the persisted form of a Clock.
type ClockSnapshot struct {
	Number uint64
	Stamp  time.Time
	Offset time.Duration
	Floor  time.Time
}

// Snapshot returns the clock state.
func (c *Clock) Snapshot() ClockSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClockSnapshot{Number: c.number, Stamp: c.stamp, Offset: c.offset, Floor: c.floor}
}

// Restore replaces the clock state with s.
func (c *Clock) Restore(s ClockSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.number, c.stamp, c.offset, c.floor = s.Number, s.Stamp, s.Offset, s.Floor
}
