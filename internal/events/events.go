package events

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Name identifies an event the way a contract log would.
type Name string

// Raffle events.
const (
	RaffleEntered         Name = "RaffleEntered"
	RequestedRaffleWinner Name = "RequestedRaffleWinner"
	WinnerPicked          Name = "WinnerPicked"
)

// Coordinator events.
const (
	RandomWordsRequested Name = "RandomWordsRequested"
	RandomWordsFulfilled Name = "RandomWordsFulfilled"
	SubscriptionCreated  Name = "SubscriptionCreated"
	SubscriptionFunded   Name = "SubscriptionFunded"
	ConsumerAdded        Name = "ConsumerAdded"
)

// Event is a single emitted log. Unused fields stay zero.
type Event struct {
	Name      Name
	Contract  common.Address
	Block     uint64
	Time      time.Time
	Player    common.Address
	Winner    common.Address
	RequestID uint64
	SubID     uint64
	Amount    *big.Int
	Round     uint64
	Success   bool
}

// Emitter receives events from contracts.
type Emitter interface {
	Emit(Event)
}

// Head reports the current block so the bus can stamp events.
type Head interface {
	Head() (uint64, time.Time)
}

// Bus fans events out to subscribers. Delivery never blocks the emitter:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
	head Head
}

// Subscription is a registered listener.
type Subscription struct {
	ch  chan Event
	bus *Bus
}

// C returns the delivery channel. It is closed on Unsubscribe.
func (s *Subscription) C() <-chan Event { return s.ch }

// Unsubscribe removes the listener and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s]; ok {
		delete(s.bus.subs, s)
		close(s.ch)
	}
}

// NewBus creates an event bus. head may be nil.
func NewBus(head Head) *Bus {
	return &Bus{subs: make(map[*Subscription]struct{}), head: head}
}

// Subscribe registers a listener with the given buffer size.
func (b *Bus) Subscribe(buf int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Subscription{ch: make(chan Event, buf), bus: b}
	b.subs[s] = struct{}{}
	return s
}

// Emit stamps e with the current block (when unset) and delivers it.
func (b *Bus) Emit(e Event) {
	if b.head != nil && e.Block == 0 {
		e.Block, e.Time = b.head.Head()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Once blocks until an event with the given name is emitted or ctx is done.
func (b *Bus) Once(ctx context.Context, name Name) (Event, error) {
	sub := b.Subscribe(16)
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case e := <-sub.C():
			if e.Name == name {
				return e, nil
			}
		}
	}
}

// Recorder keeps every emitted event in memory. Tests use it in place of
// receipts.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// All returns a copy of the recorded events.
func (r *Recorder) All() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name Name) []Event {
	var out []Event
	for _, e := range r.All() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Multi emits to several emitters in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(e Event) {
	for _, em := range m {
		if em != nil {
			em.Emit(e)
		}
	}
}
