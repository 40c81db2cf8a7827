package vrf

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sort"
	"sync"

	"github.com/Mohsinsiddi/rafflekit/internal/events"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Limits enforced by the coordinator.
const (
	MaxNumWords        = 500
	MaxCallbackGas     = 2_500_000
	MaxConsumers       = 100
	requestQueueLength = 64
)

// Errors.
var (
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrInvalidConsumer     = errors.New("invalid consumer")
	ErrTooManyConsumers    = errors.New("too many consumers")
	ErrInsufficientBalance = errors.New("insufficient subscription balance")
	ErrNonexistentRequest  = errors.New("nonexistent request")
	ErrRequestInFlight     = errors.New("request is being fulfilled")
	ErrTooManyWords        = errors.New("too many words requested")
	ErrGasLimitTooBig      = errors.New("callback gas limit too big")
)

// RequestParams is what a consumer passes when asking for randomness.
type RequestParams struct {
	Consumer         common.Address
	KeyHash          common.Hash
	SubID            uint64
	Confirmations    uint16
	CallbackGasLimit uint32
	NumWords         uint32
}

// Request is an outstanding randomness request.
type Request struct {
	ID uint64
	RequestParams
}

// Subscription funds requests for a set of consumers.
type Subscription struct {
	ID        uint64
	Owner     common.Address
	Balance   *big.Int
	Consumers []common.Address
}

// Consumer receives fulfilled random words.
type Consumer interface {
	FulfillRandomWords(ctx context.Context, requestID uint64, words []*big.Int) error
}

// Coordinator is an in-process stand-in for the VRF coordinator used on
// development chains.
type Coordinator struct {
	address      common.Address
	baseFee      *big.Int
	gasPriceLink *big.Int
	emitter      events.Emitter
	log          *zap.Logger

	mu       sync.Mutex
	nextSub  uint64
	nextReq  uint64
	subs     map[uint64]*Subscription
	requests map[uint64]*Request
	inFlight map[uint64]bool
	queue    chan Request
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithAddress sets the address the coordinator is deployed at.
func WithAddress(a common.Address) Option {
	return func(c *Coordinator) { c.address = a }
}

// NewCoordinator creates a coordinator charging baseFee plus gasPriceLink per
// unit of callback gas for each fulfillment. emitter may be nil.
func NewCoordinator(baseFee, gasPriceLink *big.Int, emitter events.Emitter, opts ...Option) *Coordinator {
	c := &Coordinator{
		baseFee:      nonNil(baseFee),
		gasPriceLink: nonNil(gasPriceLink),
		emitter:      emitter,
		log:          zap.NewNop(),
		subs:         make(map[uint64]*Subscription),
		requests:     make(map[uint64]*Request),
		inFlight:     make(map[uint64]bool),
		queue:        make(chan Request, requestQueueLength),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the coordinator's address.
func (c *Coordinator) Address() common.Address { return c.address }

// Requests delivers every accepted request. A Fulfiller drains it.
func (c *Coordinator) Requests() <-chan Request { return c.queue }

// CreateSubscription opens an empty subscription owned by owner.
func (c *Coordinator) CreateSubscription(owner common.Address) uint64 {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = &Subscription{ID: id, Owner: owner, Balance: new(big.Int)}
	c.mu.Unlock()

	c.emit(events.Event{Name: events.SubscriptionCreated, SubID: id, Player: owner})
	return id
}

// FundSubscription adds amount to a subscription balance.
func (c *Coordinator) FundSubscription(subID uint64, amount *big.Int) error {
	c.mu.Lock()
	sub, ok := c.subs[subID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidSubscription, subID)
	}
	sub.Balance = new(big.Int).Add(sub.Balance, nonNil(amount))
	c.mu.Unlock()

	c.emit(events.Event{Name: events.SubscriptionFunded, SubID: subID, Amount: new(big.Int).Set(nonNil(amount))})
	return nil
}

// AddConsumer allows consumer to request randomness on subID.
func (c *Coordinator) AddConsumer(subID uint64, consumer common.Address) error {
	c.mu.Lock()
	sub, ok := c.subs[subID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidSubscription, subID)
	}
	if slices.Contains(sub.Consumers, consumer) {
		c.mu.Unlock()
		return nil
	}
	if len(sub.Consumers) >= MaxConsumers {
		c.mu.Unlock()
		return ErrTooManyConsumers
	}
	sub.Consumers = append(sub.Consumers, consumer)
	c.mu.Unlock()

	c.emit(events.Event{Name: events.ConsumerAdded, SubID: subID, Player: consumer})
	return nil
}

// RemoveConsumer revokes consumer from subID.
func (c *Coordinator) RemoveConsumer(subID uint64, consumer common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[subID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidSubscription, subID)
	}
	idx := slices.Index(sub.Consumers, consumer)
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrInvalidConsumer, consumer.Hex())
	}
	sub.Consumers = slices.Delete(sub.Consumers, idx, idx+1)
	return nil
}

// Subscription returns a copy of a subscription.
func (c *Coordinator) Subscription(subID uint64) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[subID]
	if !ok {
		return Subscription{}, fmt.Errorf("%w: %d", ErrInvalidSubscription, subID)
	}
	return copySub(sub), nil
}

// RequestRandomWords records a request and queues it for fulfillment.
func (c *Coordinator) RequestRandomWords(ctx context.Context, p RequestParams) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.NumWords > MaxNumWords {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyWords, p.NumWords, MaxNumWords)
	}
	if p.CallbackGasLimit > MaxCallbackGas {
		return 0, fmt.Errorf("%w: %d > %d", ErrGasLimitTooBig, p.CallbackGasLimit, MaxCallbackGas)
	}

	c.mu.Lock()
	sub, ok := c.subs[p.SubID]
	if !ok {
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: %d", ErrInvalidSubscription, p.SubID)
	}
	if !slices.Contains(sub.Consumers, p.Consumer) {
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: %s on subscription %d", ErrInvalidConsumer, p.Consumer.Hex(), p.SubID)
	}
	c.nextReq++
	req := Request{ID: c.nextReq, RequestParams: p}
	c.requests[req.ID] = &req
	c.mu.Unlock()

	select {
	case c.queue <- req:
	default:
		c.log.Warn("request queue full, fulfillment must be triggered manually", zap.Uint64("requestId", req.ID))
	}

	c.log.Debug("randomness requested",
		zap.Uint64("requestId", req.ID),
		zap.Uint64("subId", p.SubID),
		zap.String("consumer", p.Consumer.Hex()))
	c.emit(events.Event{Name: events.RandomWordsRequested, RequestID: req.ID, SubID: p.SubID, Player: p.Consumer})
	return req.ID, nil
}

// FulfillRandomWords answers requestID with words derived from the request id.
func (c *Coordinator) FulfillRandomWords(ctx context.Context, requestID uint64, consumer Consumer) error {
	c.mu.Lock()
	req, ok := c.requests[requestID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNonexistentRequest, requestID)
	}
	words, err := DeriveWords(requestID, req.NumWords)
	if err != nil {
		return err
	}
	return c.FulfillRandomWordsWithOverride(ctx, requestID, consumer, words)
}

// FulfillRandomWordsWithOverride answers requestID with caller-chosen words.
// The request stays pending when the consumer rejects the callback, so it can
// be delivered again. A request is delivered to one caller at a time; others
// get ErrRequestInFlight until that delivery finishes.
func (c *Coordinator) FulfillRandomWordsWithOverride(ctx context.Context, requestID uint64, consumer Consumer, words []*big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	req, ok := c.requests[requestID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNonexistentRequest, requestID)
	}
	sub, ok := c.subs[req.SubID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidSubscription, req.SubID)
	}
	payment := c.payment(req.CallbackGasLimit)
	if sub.Balance.Cmp(payment) < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: subscription %d has %s, needs %s", ErrInsufficientBalance, sub.ID, sub.Balance, payment)
	}
	if c.inFlight[requestID] {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrRequestInFlight, requestID)
	}
	c.inFlight[requestID] = true
	r := *req
	c.mu.Unlock()

	// The consumer runs without the coordinator lock held.
	cbErr := consumer.FulfillRandomWords(ctx, requestID, words)
	if cbErr != nil {
		c.mu.Lock()
		delete(c.inFlight, requestID)
		c.mu.Unlock()
		c.log.Warn("consumer rejected fulfillment",
			zap.Uint64("requestId", requestID),
			zap.String("consumer", r.Consumer.Hex()),
			zap.Error(cbErr))
		c.emit(events.Event{Name: events.RandomWordsFulfilled, RequestID: requestID, SubID: r.SubID, Success: false})
		return fmt.Errorf("fulfilling request %d: %w", requestID, cbErr)
	}

	c.mu.Lock()
	delete(c.inFlight, requestID)
	_, live := c.requests[requestID]
	delete(c.requests, requestID)
	if sub, ok := c.subs[r.SubID]; ok && live {
		sub.Balance = new(big.Int).Sub(sub.Balance, payment)
	}
	c.mu.Unlock()
	if !live {
		c.log.Debug("cancelled request delivered, not charged", zap.Uint64("requestId", requestID))
		return nil
	}

	c.log.Debug("randomness fulfilled", zap.Uint64("requestId", requestID), zap.String("payment", payment.String()))
	c.emit(events.Event{Name: events.RandomWordsFulfilled, RequestID: requestID, SubID: r.SubID, Amount: payment, Success: true})
	return nil
}

// CancelRequest drops an outstanding request without charging its
// subscription. Only the consumer that made the request may cancel it.
func (c *Coordinator) CancelRequest(consumer common.Address, requestID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests[requestID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNonexistentRequest, requestID)
	}
	if req.Consumer != consumer {
		return fmt.Errorf("%w: %s did not make request %d", ErrInvalidConsumer, consumer.Hex(), requestID)
	}
	delete(c.requests, requestID)
	return nil
}

// Pending returns the ids of outstanding requests in ascending order.
func (c *Coordinator) Pending() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, 0, len(c.requests))
	for id := range c.requests {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Request returns an outstanding request by id.
func (c *Coordinator) Request(id uint64) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.requests[id]
	if !ok {
		return Request{}, false
	}
	return *r, true
}

// DeriveWords computes word i as keccak256(abi.encode(requestId, i)).
func DeriveWords(requestID uint64, n uint32) ([]*big.Int, error) {
	uint256, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: uint256}, {Type: uint256}}
	words := make([]*big.Int, n)
	for i := range words {
		packed, err := args.Pack(new(big.Int).SetUint64(requestID), big.NewInt(int64(i)))
		if err != nil {
			return nil, fmt.Errorf("encoding word %d: %w", i, err)
		}
		words[i] = new(big.Int).SetBytes(crypto.Keccak256(packed))
	}
	return words, nil
}

// Snapshot is the persisted form of the coordinator.
type Snapshot struct {
	NextSub       uint64
	NextReq       uint64
	Subscriptions []Subscription
	Requests      []Request
}

// Snapshot returns a copy of the coordinator state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{NextSub: c.nextSub, NextReq: c.nextReq}
	for _, sub := range c.subs {
		s.Subscriptions = append(s.Subscriptions, copySub(sub))
	}
	for _, r := range c.requests {
		s.Requests = append(s.Requests, *r)
	}
	sort.Slice(s.Subscriptions, func(i, j int) bool { return s.Subscriptions[i].ID < s.Subscriptions[j].ID })
	sort.Slice(s.Requests, func(i, j int) bool { return s.Requests[i].ID < s.Requests[j].ID })
	return s
}

// Restore replaces the coordinator state with s. Restored requests are not
// re-queued; they are fulfilled by id.
func (c *Coordinator) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub, c.nextReq = s.NextSub, s.NextReq
	c.subs = make(map[uint64]*Subscription, len(s.Subscriptions))
	for _, sub := range s.Subscriptions {
		cp := copySub(&sub)
		c.subs[sub.ID] = &cp
	}
	c.requests = make(map[uint64]*Request, len(s.Requests))
	c.inFlight = make(map[uint64]bool)
	for _, r := range s.Requests {
		r := r
		c.requests[r.ID] = &r
	}
}

func (c *Coordinator) payment(gasLimit uint32) *big.Int {
	p := new(big.Int).Mul(c.gasPriceLink, new(big.Int).SetUint64(uint64(gasLimit)))
	return p.Add(p, c.baseFee)
}

func (c *Coordinator) emit(e events.Event) {
	if c.emitter == nil {
		return
	}
	e.Contract = c.address
	c.emitter.Emit(e)
}

func copySub(s *Subscription) Subscription {
	return Subscription{
		ID:        s.ID,
		Owner:     s.Owner,
		Balance:   new(big.Int).Set(s.Balance),
		Consumers: append([]common.Address(nil), s.Consumers...),
	}
}

func nonNil(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return b
}
