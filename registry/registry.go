package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/events"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/pool"
	"github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrIdenticalTokens = pool.ErrIdenticalTokens
	ErrZeroAddress     = pool.ErrZeroAddress
	// ErrPoolAlreadyExists is returned by CreatePool for a pair that already has a pool.
	ErrPoolAlreadyExists = errors.New("pool already exists")
)

// poolInitCodeHash stands in for the pool bytecode hash in address derivation.
var poolInitCodeHash = crypto.Keccak256([]byte("defistate-amm/pool/v1"))

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the dependencies of a registry.
type Config struct {
	// Address is the registry's own identity; pool addresses derive from it.
	Address    common.Address
	Ledger     ledger.Ledger
	Logger     Logger
	Registerer prometheus.Registerer
	// Feed receives the events of the registry and of all its pools. A new
	// feed is created when nil.
	Feed *events.Feed
}

func (c *Config) validate() error {
	if c.Address == (common.Address{}) {
		return fmt.Errorf("config: Address: %w", ErrZeroAddress)
	}
	if c.Ledger == nil {
		return errors.New("config: Ledger cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registerer == nil {
		return errors.New("config: Registerer cannot be nil")
	}
	return nil
}

// tokenSource is implemented by ledgers that know token metadata.
type tokenSource interface {
	Token(address common.Address) (ledger.TokenInfo, bool)
}

type pairKey struct {
	x common.Address
	y common.Address
}

// Registry creates pools and indexes them by token pair, by address and by
// creation order. There is at most one pool per unordered pair.
type Registry struct {
	address     common.Address
	ledger      ledger.Ledger
	logger      Logger
	feed        *events.Feed
	sequencer   *sequencer
	metrics     *Metrics
	poolMetrics *pool.Metrics

	mu        sync.RWMutex
	getPool   map[pairKey]*pool.Pool // both orderings of every pair
	byAddress map[common.Address]*pool.Pool
	allPools  []*pool.Pool
	tokens    []common.Address // first-seen order; a token's ID is its index plus one
	tokenSeen map[common.Address]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *Config) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	feed := cfg.Feed
	if feed == nil {
		feed = events.NewFeed()
	}

	return &Registry{
		address:     cfg.Address,
		ledger:      cfg.Ledger,
		logger:      cfg.Logger,
		feed:        feed,
		sequencer:   &sequencer{next: feed},
		metrics:     NewMetrics(cfg.Registerer),
		poolMetrics: pool.NewMetrics(cfg.Registerer),
		getPool:     make(map[pairKey]*pool.Pool),
		byAddress:   make(map[common.Address]*pool.Pool),
		tokenSeen:   make(map[common.Address]struct{}),
	}, nil
}

// SortTokens returns the pair in canonical order, smaller address first.
func SortTokens(x, y common.Address) (token0, token1 common.Address, err error) {
	if x == y {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: %s", ErrIdenticalTokens, x.Hex())
	}
	token0, token1 = x, y
	if bytes.Compare(x[:], y[:]) > 0 {
		token0, token1 = y, x
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	return token0, token1, nil
}

// PoolAddress derives the address of the pool for a pair created by the
// registry at registry, without any lookup. The pair may be given in either order.
func PoolAddress(registry, x, y common.Address) (common.Address, error) {
	token0, token1, err := SortTokens(x, y)
	if err != nil {
		return common.Address{}, err
	}
	salt := crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
	return crypto.CreateAddress2(registry, salt, poolInitCodeHash), nil
}

// CreatePool creates the pool for a pair that has none yet.
func (r *Registry) CreatePool(ctx context.Context, x, y common.Address) (p *pool.Pool, err error) {
	defer func() {
		r.metrics.observeCreate(err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token0, token1, err := SortTokens(x, y)
	if err != nil {
		return nil, err
	}
	address, err := PoolAddress(r.address, token0, token1)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.getPool[pairKey{token0, token1}]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrPoolAlreadyExists, existing.Address().Hex())
	}

	p, err = pool.New(&pool.Config{
		ID:      uint64(len(r.allPools)) + 1,
		Address: address,
		TokenA:  token0,
		TokenB:  token1,
		Ledger:  r.ledger,
		Emitter: r.sequencer,
		Logger:  r.logger,
		Metrics: r.poolMetrics,
	})
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	r.getPool[pairKey{token0, token1}] = p
	r.getPool[pairKey{token1, token0}] = p
	r.byAddress[address] = p
	r.allPools = append(r.allPools, p)
	for _, token := range [2]common.Address{token0, token1} {
		if _, ok := r.tokenSeen[token]; !ok {
			r.tokenSeen[token] = struct{}{}
			r.tokens = append(r.tokens, token)
		}
	}
	index := uint64(len(r.allPools))
	r.mu.Unlock()

	r.metrics.pools.Set(float64(index))
	r.logger.Info("pool created", "token0", token0, "token1", token1, "pool", address, "index", index)

	r.sequencer.Emit(events.Event{
		Kind:        events.KindPoolCreated,
		Pool:        address,
		PoolCreated: &events.PoolCreated{Token0: token0, Token1: token1, Pool: address, Index: index},
	})
	return p, nil
}

// GetPool returns the pool of a pair given in either order.
func (r *Registry) GetPool(x, y common.Address) (*pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.getPool[pairKey{x, y}]
	return p, ok
}

// AllPoolsLength returns the number of pools created so far.
func (r *Registry) AllPoolsLength() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.allPools)
}

// PoolAt returns the i-th pool in creation order, starting at 0.
func (r *Registry) PoolAt(i int) (*pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.allPools) {
		return nil, false
	}
	return r.allPools[i], true
}

// PoolByAddress returns the pool with the given address.
func (r *Registry) PoolByAddress(address common.Address) (*pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byAddress[address]
	return p, ok
}

// Address returns the registry's identity.
func (r *Registry) Address() common.Address {
	return r.address
}

// Feed returns the feed carrying the registry's and its pools' events.
func (r *Registry) Feed() *events.Feed {
	return r.feed
}

// Sequence returns the number of events forwarded so far.
func (r *Registry) Sequence() uint64 {
	return r.sequencer.current()
}

// Snapshot returns the state of every pool in creation order, together with
// the tokens those pools trade.
func (r *Registry) Snapshot() *engine.State {
	seq := r.sequencer.current()

	r.mu.RLock()
	pools := make([]*pool.Pool, len(r.allPools))
	copy(pools, r.allPools)
	tokens := make([]common.Address, len(r.tokens))
	copy(tokens, r.tokens)
	r.mu.RUnlock()

	views := make([]uniswapv2.Pool, len(pools))
	for i, p := range pools {
		views[i] = p.View()
	}
	return &engine.State{
		Registry:  r.address,
		Sequence:  seq,
		Timestamp: uint64(time.Now().UnixNano()),
		Pools:     views,
		Tokens:    r.tokenViews(tokens),
	}
}

func (r *Registry) tokenViews(addresses []common.Address) []tokenregistry.Token {
	source, _ := r.ledger.(tokenSource)
	tokens := make([]tokenregistry.Token, len(addresses))
	for i, address := range addresses {
		tokens[i] = tokenregistry.Token{ID: uint64(i) + 1, Address: address}
		if source == nil {
			continue
		}
		if info, ok := source.Token(address); ok {
			tokens[i].Symbol = info.Symbol
			tokens[i].Decimals = info.Decimals
			tokens[i].FeeOnTransferBps = info.FeeOnTransferBps
		}
	}
	return tokens
}

// sequencer numbers events and forwards them in that order.
type sequencer struct {
	mu   sync.Mutex // serializes numbering and delivery
	seq  atomic.Uint64
	next events.Emitter
}

func (s *sequencer) Emit(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Sequence = s.seq.Add(1)
	s.next.Emit(ev)
}

// current must not take mu: subscribers call it while a delivery may be blocked on them.
func (s *sequencer) current() uint64 {
	return s.seq.Load()
}
