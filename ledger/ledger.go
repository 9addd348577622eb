package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientBalance is returned when the sender cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a spender pulls more than it was approved for.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrUnknownToken is returned for operations on a token the ledger does not know.
	ErrUnknownToken = errors.New("unknown token")
	// ErrZeroAmount is returned when a transfer, mint or approval carries a nil amount.
	ErrZeroAmount = errors.New("amount must be non-nil")
	// ErrTokenExists is returned when registering a token twice.
	ErrTokenExists = errors.New("token already registered")
	// ErrHookFailed wraps an error returned by a token transfer hook.
	ErrHookFailed = errors.New("token hook failed")
	// ErrUnitInProgress is returned when a unit of work is opened without the
	// ctx of the unit already running, while that unit is inside a hook.
	ErrUnitInProgress = errors.New("unit of work already in progress")
	// ErrAmountOverflow is returned when arithmetic on a transfer amount exceeds 256 bits.
	ErrAmountOverflow = errors.New("amount overflows 256 bits")
)

// Transfer moves Amount of Token from From to To.
// When Spender is set and differs from From, the transfer is a pull and
// consumes Spender's allowance over From's balance.
type Transfer struct {
	Token   common.Address `json:"token"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Spender common.Address `json:"spender,omitempty"`
	Amount  *uint256.Int   `json:"amount"`
}

// IsPull reports whether the transfer is executed on behalf of From by a third party.
func (t Transfer) IsPull() bool {
	return t.Spender != (common.Address{}) && t.Spender != t.From
}

// Tx is a unit of work against the ledger. Transfers made through a Tx are
// staged and only become visible outside of it once the enclosing Atomic call commits.
type Tx interface {
	BalanceOf(token, holder common.Address) *uint256.Int
	Transfer(ctx context.Context, t Transfer) error
}

// Ledger is the external token ledger the pool engine settles against.
type Ledger interface {
	// BalanceOf returns the committed balance of holder in token.
	BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error)

	// Atomic runs fn inside an all-or-nothing unit. Every transfer made through
	// the Tx is discarded if fn returns an error.
	// Implementations must propagate ctx (including its values) to any callback
	// they invoke while executing a transfer.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// TokenInfo describes a token held by the memory ledger.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`

	// FeeOnTransferBps burns this share of every transfer, so the receiver gets
	// less than the sender sent.
	FeeOnTransferBps uint16 `json:"feeOnTransferBps"`
}

// Hook is invoked before each transfer of the token it is registered for.
// It runs inside the transfer's unit of work and receives the caller's ctx,
// so it can observe or re-enter whatever initiated the transfer.
type Hook func(ctx context.Context, tx Tx, t Transfer) error
