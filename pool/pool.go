package pool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/defistate/defistate-amm-go/events"
	"github.com/defistate/defistate-amm-go/guard"
	"github.com/defistate/defistate-amm-go/ledger"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MinimumLockedShares is subtracted from the first deposit and never minted to anyone.
const MinimumLockedShares uint64 = 1000

// FeeBps is the swap fee charged on the input side.
const FeeBps = calculator.FeeBps

var (
	minimumLocked = uint256.NewInt(MinimumLockedShares)

	// MaxReserve bounds each reserve so that reserveA*reserveB always fits in 256 bits.
	MaxReserve = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 112), uint256.NewInt(1))
)

const (
	opAddLiquidity    = "add_liquidity"
	opRemoveLiquidity = "remove_liquidity"
	opSwap            = "swap"
	opSync            = "sync"
	opTransferShares  = "transfer_shares"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the dependencies of a single pool.
type Config struct {
	ID      uint64
	Address common.Address
	TokenA  common.Address
	TokenB  common.Address
	Ledger  ledger.Ledger
	// Emitter receives the events of an operation before the operation
	// releases the pool, so a pool's events arrive in commit order.
	Emitter events.Emitter
	Logger  Logger
	Metrics *Metrics
}

func (c *Config) validate() error {
	if c.Address == (common.Address{}) {
		return fmt.Errorf("config: Address: %w", ErrZeroAddress)
	}
	if c.TokenA == (common.Address{}) || c.TokenB == (common.Address{}) {
		return fmt.Errorf("config: tokens: %w", ErrZeroAddress)
	}
	if c.TokenA == c.TokenB {
		return fmt.Errorf("config: %w", ErrIdenticalTokens)
	}
	if bytes.Compare(c.TokenA[:], c.TokenB[:]) > 0 {
		return errors.New("config: TokenA must sort before TokenB")
	}
	if c.Ledger == nil {
		return errors.New("config: Ledger cannot be nil")
	}
	if c.Emitter == nil {
		return errors.New("config: Emitter cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Metrics == nil {
		return errors.New("config: Metrics cannot be nil")
	}
	return nil
}

// Pool is a two-token constant-product pool. It owns its reserves and LP
// share balances; token balances live in the ledger.
//
// Mutating operations hold a guard from entry until their events are emitted
// and settle inside one ledger unit of work, so a failed operation leaves no
// trace. A mutating call that arrives while another holds the guard fails with
// ErrReentrancy; it never waits. Read methods see the last committed state and
// never block on a running operation.
type Pool struct {
	id      uint64
	address common.Address
	tokenA  common.Address
	tokenB  common.Address
	ledger  ledger.Ledger
	emitter events.Emitter
	logger  Logger
	metrics *Metrics
	guard   *guard.Guard

	mu          sync.RWMutex
	reserveA    *uint256.Int
	reserveB    *uint256.Int
	totalShares *uint256.Int
	shares      map[common.Address]*uint256.Int
}

// New creates an empty pool.
func New(cfg *Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Pool{
		id:          cfg.ID,
		address:     cfg.Address,
		tokenA:      cfg.TokenA,
		tokenB:      cfg.TokenB,
		ledger:      cfg.Ledger,
		emitter:     cfg.Emitter,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		guard:       guard.New(),
		reserveA:    new(uint256.Int),
		reserveB:    new(uint256.Int),
		totalShares: new(uint256.Int),
		shares:      make(map[common.Address]*uint256.Int),
	}, nil
}

// pending is the working copy of an operation. Values are replaced, never
// mutated in place, so the committed state stays untouched until commit.
type pending struct {
	reserveA    *uint256.Int
	reserveB    *uint256.Int
	totalShares *uint256.Int
	shares      map[common.Address]*uint256.Int
	events      []events.Event
}

// begin MUST be called while holding the guard.
func (p *Pool) begin() *pending {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &pending{
		reserveA:    p.reserveA,
		reserveB:    p.reserveB,
		totalShares: p.totalShares,
		shares:      make(map[common.Address]*uint256.Int),
	}
}

// sharesOf MUST be called while holding the guard.
func (p *Pool) sharesOf(st *pending, owner common.Address) *uint256.Int {
	if s, ok := st.shares[owner]; ok {
		return s
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.shares[owner]; ok {
		return s
	}
	return new(uint256.Int)
}

func (p *Pool) emit(st *pending, ev events.Event) {
	ev.Pool = p.address
	st.events = append(st.events, ev)
}

// sync records the pending reserves unless the last queued event already did.
func (p *Pool) sync(st *pending) {
	if n := len(st.events); n > 0 && st.events[n-1].Kind == events.KindSync {
		last := st.events[n-1].Sync
		if last.Reserve0.Eq(st.reserveA) && last.Reserve1.Eq(st.reserveB) {
			return
		}
	}
	p.emit(st, events.Event{
		Kind: events.KindSync,
		Sync: &events.Sync{Reserve0: st.reserveA.Clone(), Reserve1: st.reserveB.Clone()},
	})
}

// resync loads the pool's actual token balances from tx into st.
func (p *Pool) resync(tx ledger.Tx, st *pending) (changed bool, err error) {
	balA := tx.BalanceOf(p.tokenA, p.address)
	balB := tx.BalanceOf(p.tokenB, p.address)
	if balA.Gt(MaxReserve) || balB.Gt(MaxReserve) {
		return false, fmt.Errorf("%w: reserves %s/%s exceed the maximum", ErrOverflow, balA.Dec(), balB.Dec())
	}
	changed = !balA.Eq(st.reserveA) || !balB.Eq(st.reserveB)
	st.reserveA, st.reserveB = balA.Clone(), balB.Clone()
	return changed, nil
}

func (p *Pool) commit(st *pending) {
	p.mu.Lock()
	p.reserveA = st.reserveA
	p.reserveB = st.reserveB
	p.totalShares = st.totalShares
	for owner, s := range st.shares {
		if s.IsZero() {
			delete(p.shares, owner)
			continue
		}
		p.shares[owner] = s
	}
	p.mu.Unlock()

	p.metrics.setState(p.address, p.tokenA, p.tokenB, st.reserveA, st.reserveB, st.totalShares)
}

// execute runs fn as one guarded, all-or-nothing operation. The reserves in st
// are resynced before fn runs; fn must resync again after its own transfers.
func (p *Pool) execute(ctx context.Context, op string, fn func(ctx context.Context, tx ledger.Tx, st *pending) error) (err error) {
	start := time.Now()
	defer func() {
		p.metrics.observe(p.address, op, err, time.Since(start))
	}()

	ctx, release, err := p.guard.Enter(ctx)
	if err != nil {
		p.logger.Warn("pool operation rejected", "pool", p.address, "op", op, "error", err)
		return err
	}

	st := p.begin()
	err = p.ledger.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		changed, err := p.resync(tx, st)
		if err != nil {
			return err
		}
		if changed {
			p.sync(st)
		}
		if err := fn(ctx, tx, st); err != nil {
			return err
		}
		p.sync(st)
		return nil
	})
	if err != nil {
		release()
		p.logger.Debug("pool operation rolled back", "pool", p.address, "op", op, "error", err)
		return err
	}
	p.commit(st)
	for _, ev := range st.events {
		p.emitter.Emit(ev)
	}
	release()
	return nil
}

// checkRecipient rejects destinations that would strand or loop funds.
func (p *Pool) checkRecipient(to common.Address) error {
	switch to {
	case common.Address{}, p.address, p.tokenA, p.tokenB:
		return fmt.Errorf("%w: %s", ErrInvalidRecipient, to.Hex())
	}
	return nil
}

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}

// ID returns the creation ordinal assigned by the registry.
func (p *Pool) ID() uint64 { return p.id }

// Address returns the pool's identity on the ledger.
func (p *Pool) Address() common.Address { return p.address }

// TokenA returns the smaller token address of the pair.
func (p *Pool) TokenA() common.Address { return p.tokenA }

// TokenB returns the larger token address of the pair.
func (p *Pool) TokenB() common.Address { return p.tokenB }

// GetReserves returns the committed reserves.
func (p *Pool) GetReserves() (reserveA, reserveB *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserveA.Clone(), p.reserveB.Clone()
}

// TotalShares returns the outstanding LP shares, excluding the locked minimum.
func (p *Pool) TotalShares() *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalShares.Clone()
}

// BalanceOf returns the LP shares held by owner.
func (p *Pool) BalanceOf(owner common.Address) *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.shares[owner]; ok {
		return s.Clone()
	}
	return new(uint256.Int)
}

// GetAmountOut quotes a swap against the committed reserves. Donations made
// since the last operation are not reflected until the next resync.
func (p *Pool) GetAmountOut(amountIn *uint256.Int, inputIsTokenA bool) (*uint256.Int, error) {
	reserveA, reserveB := p.GetReserves()
	if inputIsTokenA {
		return calculator.AmountOut(amountIn, reserveA, reserveB, FeeBps)
	}
	return calculator.AmountOut(amountIn, reserveB, reserveA, FeeBps)
}

// View returns a snapshot of the pool for the state stream.
func (p *Pool) View() uniswapv2.Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return uniswapv2.Pool{
		ID:          p.id,
		Address:     p.address,
		Token0:      p.tokenA,
		Token1:      p.tokenB,
		Reserve0:    p.reserveA.Clone(),
		Reserve1:    p.reserveB.Clone(),
		TotalShares: p.totalShares.Clone(),
		FeeBps:      FeeBps,
	}
}
