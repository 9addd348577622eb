package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrReentrancy is returned when an operation is invoked while another
	// operation holds the guard.
	ErrReentrancy = errors.New("reentrant call")
	// ErrTransferFailed wraps any failure reported by the token ledger.
	ErrTransferFailed = errors.New("token transfer failed")
)

type markerKey struct{}

// Guard is the in-progress flag of one pool's mutating operations.
//
// Entry never waits: while an operation holds the guard every other Enter
// fails with ErrReentrancy, whether it comes from a token hook that dropped
// the ctx it was given or from an unrelated caller. Callers that want to queue
// for their turn must do so above the pool.
//
// When the ctx carries a guard marker the error names the nesting. A marker
// from another guard is rejected too, since a nested pool would commit its
// state before the enclosing ledger transaction is known to succeed.
type Guard struct {
	slot chan struct{}
}

// New creates an idle guard.
func New() *Guard {
	return &Guard{slot: make(chan struct{}, 1)}
}

// Enter acquires the guard. The returned release func must be called exactly once.
func (g *Guard) Enter(ctx context.Context) (context.Context, func(), error) {
	if held, ok := ctx.Value(markerKey{}).(*Guard); ok {
		if held == g {
			return nil, nil, ErrReentrancy
		}
		return nil, nil, fmt.Errorf("%w: called from another pool's operation", ErrReentrancy)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	select {
	case g.slot <- struct{}{}:
	default:
		return nil, nil, fmt.Errorf("%w: operation in progress", ErrReentrancy)
	}

	release := func() { <-g.slot }
	return context.WithValue(ctx, markerKey{}, g), release, nil
}

// Active reports whether an operation currently holds the guard.
func (g *Guard) Active() bool {
	return len(g.slot) > 0
}

// Pull builds a transfer that moves amount of token from owner into pool,
// spending pool's allowance.
func Pull(token, owner, pool common.Address, amount *uint256.Int) ledger.Transfer {
	return ledger.Transfer{Token: token, From: owner, To: pool, Spender: pool, Amount: amount}
}

// Push builds a transfer that pays amount of token out of pool to recipient.
func Push(token, pool, recipient common.Address, amount *uint256.Int) ledger.Transfer {
	return ledger.Transfer{Token: token, From: pool, To: recipient, Amount: amount}
}

// SafeTransfer applies transfers in order and stops at the first failure.
// The caller's enclosing unit of work is expected to discard partial effects.
func SafeTransfer(ctx context.Context, tx ledger.Tx, transfers ...ledger.Transfer) error {
	for _, t := range transfers {
		if err := tx.Transfer(ctx, t); err != nil {
			return fmt.Errorf("%w: %s -> %s of %s: %w", ErrTransferFailed, t.From.Hex(), t.To.Hex(), t.Token.Hex(), err)
		}
	}
	return nil
}
