package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	basisPointDivisor = uint256.NewInt(10000)

	// MaxAllowance is an approval that is never decremented by pulls.
	MaxAllowance = new(uint256.Int).SetAllOne()
)

type holdingKey struct {
	token  common.Address
	holder common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// txKey identifies the Tx of a specific Memory ledger carried in a context.
type txKey struct {
	ledger *Memory
}

// Memory is an in-process multi-token ledger.
//
// A single lock guards every token, and the outermost Atomic call holds it
// for its whole duration. Units of work are therefore serialized across all
// pools settling against the same ledger, even pools that share no token.
// Atomic calls nested through the ctx of a running unit (for example from a
// hook) become savepoints of that unit instead of waiting on the lock.
//
// While a hook runs, an outermost Atomic that finds the lock taken fails with
// ErrUnitInProgress instead of waiting, since the hook may be the lock holder
// calling back with a ctx that lost the unit. Mint, Approve, RegisterToken and
// SetHook take the lock and must not be called from a hook.
type Memory struct {
	mu         sync.Mutex
	inHook     atomic.Int32
	tokens     map[common.Address]TokenInfo
	hooks      map[common.Address]Hook
	balances   map[holdingKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	supply     map[common.Address]*uint256.Int
}

// NewMemory creates an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		tokens:     make(map[common.Address]TokenInfo),
		hooks:      make(map[common.Address]Hook),
		balances:   make(map[holdingKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		supply:     make(map[common.Address]*uint256.Int),
	}
}

// RegisterToken adds a token to the ledger.
func (l *Memory) RegisterToken(info TokenInfo) error {
	if info.Address == (common.Address{}) {
		return fmt.Errorf("%w: zero token address", ErrUnknownToken)
	}
	if info.FeeOnTransferBps > 10000 {
		return fmt.Errorf("fee on transfer %d bps exceeds 100%%", info.FeeOnTransferBps)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.tokens[info.Address]; exists {
		return fmt.Errorf("%w: %s", ErrTokenExists, info.Address.Hex())
	}
	l.tokens[info.Address] = info
	l.supply[info.Address] = new(uint256.Int)
	return nil
}

// Token returns the metadata of a registered token.
func (l *Memory) Token(token common.Address) (TokenInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.tokens[token]
	return info, ok
}

// SetHook installs (or, with a nil hook, removes) the transfer hook of a token.
func (l *Memory) SetHook(token common.Address, hook Hook) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[token]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	if hook == nil {
		delete(l.hooks, token)
		return nil
	}
	l.hooks[token] = hook
	return nil
}

// Mint credits amount of token to holder and grows the token's supply.
func (l *Memory) Mint(token, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[token]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}

	key := holdingKey{token: token, holder: to}
	balance := l.balanceLocked(key)
	newBalance, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return fmt.Errorf("mint overflows balance of %s", to.Hex())
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(l.supply[token], amount)
	if overflow {
		return fmt.Errorf("mint overflows supply of %s", token.Hex())
	}
	l.balances[key] = newBalance
	l.supply[token] = newSupply
	return nil
}

// Approve sets the amount spender may pull from owner's balance of token.
func (l *Memory) Approve(token, owner, spender common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[token]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	l.allowances[allowanceKey{token: token, owner: owner, spender: spender}] = amount.Clone()
	return nil
}

// Allowance returns the committed allowance of spender over owner's token balance.
func (l *Memory) Allowance(token, owner, spender common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.allowances[allowanceKey{token: token, owner: owner, spender: spender}]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

// TotalSupply returns the committed supply of token. Fees on transfer are burned.
func (l *Memory) TotalSupply(token common.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.supply[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	return s.Clone(), nil
}

// BalanceOf returns holder's balance of token. Inside a unit of work it reads
// the unit's staged view.
func (l *Memory) BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	if tx, ok := ctx.Value(txKey{ledger: l}).(*memTx); ok {
		if _, known := l.tokens[token]; !known {
			return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
		}
		return tx.BalanceOf(token, holder), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[token]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	return l.balanceLocked(holdingKey{token: token, holder: holder}).Clone(), nil
}

// Atomic implements Ledger.
func (l *Memory) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if parent, ok := ctx.Value(txKey{ledger: l}).(*memTx); ok {
		child := newMemTx(l, parent)
		if err := fn(context.WithValue(ctx, txKey{ledger: l}, child), child); err != nil {
			return err
		}
		child.commit()
		return nil
	}

	if !l.mu.TryLock() {
		if l.inHook.Load() > 0 {
			return ErrUnitInProgress
		}
		l.mu.Lock()
	}
	defer l.mu.Unlock()

	tx := newMemTx(l, nil)
	if err := fn(context.WithValue(ctx, txKey{ledger: l}, tx), tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// balanceLocked MUST be called with l.mu held. The returned value must not be modified.
func (l *Memory) balanceLocked(key holdingKey) *uint256.Int {
	if b, ok := l.balances[key]; ok {
		return b
	}
	return new(uint256.Int)
}

// memTx stages writes on top of its parent (another memTx or, at the root,
// the committed ledger maps).
type memTx struct {
	ledger     *Memory
	parent     *memTx
	balances   map[holdingKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	supply     map[common.Address]*uint256.Int
}

func newMemTx(l *Memory, parent *memTx) *memTx {
	return &memTx{
		ledger:     l,
		parent:     parent,
		balances:   make(map[holdingKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		supply:     make(map[common.Address]*uint256.Int),
	}
}

func (tx *memTx) balance(key holdingKey) *uint256.Int {
	if b, ok := tx.balances[key]; ok {
		return b
	}
	if tx.parent != nil {
		return tx.parent.balance(key)
	}
	return tx.ledger.balanceLocked(key)
}

func (tx *memTx) allowance(key allowanceKey) *uint256.Int {
	if a, ok := tx.allowances[key]; ok {
		return a
	}
	if tx.parent != nil {
		return tx.parent.allowance(key)
	}
	if a, ok := tx.ledger.allowances[key]; ok {
		return a
	}
	return new(uint256.Int)
}

func (tx *memTx) totalSupply(token common.Address) *uint256.Int {
	if s, ok := tx.supply[token]; ok {
		return s
	}
	if tx.parent != nil {
		return tx.parent.totalSupply(token)
	}
	return tx.ledger.supply[token]
}

// BalanceOf implements Tx.
func (tx *memTx) BalanceOf(token, holder common.Address) *uint256.Int {
	return tx.balance(holdingKey{token: token, holder: holder}).Clone()
}

// Transfer implements Tx. The token hook runs first; a failing hook aborts the transfer.
func (tx *memTx) Transfer(ctx context.Context, t Transfer) error {
	if t.Amount == nil {
		return ErrZeroAmount
	}
	info, ok := tx.ledger.tokens[t.Token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, t.Token.Hex())
	}

	if hook := tx.ledger.hooks[t.Token]; hook != nil {
		if err := tx.callHook(ctx, hook, t); err != nil {
			return fmt.Errorf("%w: %w", ErrHookFailed, err)
		}
	}

	if t.IsPull() {
		key := allowanceKey{token: t.Token, owner: t.From, spender: t.Spender}
		allowance := tx.allowance(key)
		if allowance.Lt(t.Amount) {
			return fmt.Errorf("%w: %s approved %s for %s, needs %s",
				ErrInsufficientAllowance, t.From.Hex(), t.Spender.Hex(), allowance.Dec(), t.Amount.Dec())
		}
		if !allowance.Eq(MaxAllowance) {
			tx.allowances[key] = new(uint256.Int).Sub(allowance, t.Amount)
		}
	}

	fromKey := holdingKey{token: t.Token, holder: t.From}
	fromBalance := tx.balance(fromKey)
	if fromBalance.Lt(t.Amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s",
			ErrInsufficientBalance, t.From.Hex(), fromBalance.Dec(), info.Symbol, t.Amount.Dec())
	}
	tx.balances[fromKey] = new(uint256.Int).Sub(fromBalance, t.Amount)

	delivered := t.Amount
	if info.FeeOnTransferBps > 0 {
		fee, overflow := new(uint256.Int).MulDivOverflow(t.Amount, uint256.NewInt(uint64(info.FeeOnTransferBps)), basisPointDivisor)
		if overflow {
			return fmt.Errorf("%w: fee on %s %s", ErrAmountOverflow, t.Amount.Dec(), info.Symbol)
		}
		delivered = new(uint256.Int).Sub(t.Amount, fee)
		tx.supply[t.Token] = new(uint256.Int).Sub(tx.totalSupply(t.Token), fee)
	}

	toKey := holdingKey{token: t.Token, holder: t.To}
	tx.balances[toKey] = new(uint256.Int).Add(tx.balance(toKey), delivered)
	return nil
}

func (tx *memTx) callHook(ctx context.Context, hook Hook, t Transfer) error {
	tx.ledger.inHook.Add(1)
	defer tx.ledger.inHook.Add(-1)
	return hook(ctx, tx, t)
}

// commit folds the staged writes into the parent, or into the ledger at the root.
func (tx *memTx) commit() {
	if tx.parent != nil {
		for k, v := range tx.balances {
			tx.parent.balances[k] = v
		}
		for k, v := range tx.allowances {
			tx.parent.allowances[k] = v
		}
		for k, v := range tx.supply {
			tx.parent.supply[k] = v
		}
		return
	}

	l := tx.ledger
	for k, v := range tx.balances {
		l.balances[k] = v
	}
	for k, v := range tx.allowances {
		l.allowances[k] = v
	}
	for k, v := range tx.supply {
		l.supply[k] = v
	}
}
