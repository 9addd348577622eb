package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
)

// Kind names the payload carried by an Event.
type Kind string

const (
	KindPoolCreated Kind = "poolCreated"
	KindMint        Kind = "mint"
	KindBurn        Kind = "burn"
	KindSwap        Kind = "swap"
	KindSync        Kind = "sync"
	KindTransfer    Kind = "transfer"
)

// PoolCreated is emitted by the registry for every new pool.
type PoolCreated struct {
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`
	Pool   common.Address `json:"pool"`
	Index  uint64         `json:"index"` // number of pools after this one was created
}

// Mint is emitted when liquidity is added.
type Mint struct {
	Actor   common.Address `json:"actor"`
	Amount0 *uint256.Int   `json:"amount0"`
	Amount1 *uint256.Int   `json:"amount1"`
	Shares  *uint256.Int   `json:"shares"`
}

// Burn is emitted when liquidity is removed.
type Burn struct {
	Actor     common.Address `json:"actor"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
	Shares    *uint256.Int   `json:"shares"`
	Recipient common.Address `json:"recipient"`
}

// Swap is emitted for every trade. Exactly one of the In amounts and one of
// the Out amounts is non-zero.
type Swap struct {
	Actor      common.Address `json:"actor"`
	Amount0In  *uint256.Int   `json:"amount0In"`
	Amount1In  *uint256.Int   `json:"amount1In"`
	Amount0Out *uint256.Int   `json:"amount0Out"`
	Amount1Out *uint256.Int   `json:"amount1Out"`
	Recipient  common.Address `json:"recipient"`
}

// Sync carries the reserves a pool holds after a resync.
type Sync struct {
	Reserve0 *uint256.Int `json:"reserve0"`
	Reserve1 *uint256.Int `json:"reserve1"`
}

// Transfer is emitted when LP shares change owner.
type Transfer struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Shares *uint256.Int   `json:"shares"`
}

// Event is the envelope delivered to subscribers. Exactly one payload is set, matching Kind.
type Event struct {
	Kind Kind           `json:"kind"`
	Pool common.Address `json:"pool"`

	// Sequence is assigned by the registry: 1 for the first event it forwards.
	Sequence uint64 `json:"sequence"`

	PoolCreated *PoolCreated `json:"poolCreated,omitempty"`
	Mint        *Mint        `json:"mint,omitempty"`
	Burn        *Burn        `json:"burn,omitempty"`
	Swap        *Swap        `json:"swap,omitempty"`
	Sync        *Sync        `json:"sync,omitempty"`
	Transfer    *Transfer    `json:"transfer,omitempty"`
}

// Emitter receives the events of committed operations, in commit order.
type Emitter interface {
	Emit(ev Event)
}

// Feed fans events out to subscribers. Emit blocks until every subscriber has
// accepted the event, so subscribers should use buffered channels and keep up.
type Feed struct {
	feed event.Feed
}

// NewFeed creates a feed without subscribers.
func NewFeed() *Feed {
	return &Feed{}
}

// Emit implements Emitter.
func (f *Feed) Emit(ev Event) {
	f.feed.Send(ev)
}

// Subscribe delivers every future event to ch until the subscription is cancelled.
func (f *Feed) Subscribe(ch chan<- Event) event.Subscription {
	return f.feed.Subscribe(ch)
}

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events, in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
