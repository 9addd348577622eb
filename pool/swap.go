package pool

import (
	"context"
	"fmt"

	"github.com/defistate/defistate-amm-go/events"
	"github.com/defistate/defistate-amm-go/guard"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Swap sells amountIn of one pool token from caller and sends the output to recipient.
func (p *Pool) Swap(ctx context.Context, caller common.Address, amountIn *uint256.Int, inputIsTokenA bool, amountOutMin *uint256.Int, recipient common.Address) (*uint256.Int, error) {
	if caller == (common.Address{}) {
		return nil, fmt.Errorf("caller: %w", ErrZeroAddress)
	}
	if err := p.checkRecipient(recipient); err != nil {
		return nil, err
	}
	if amountIn == nil {
		return nil, ErrNilAmount
	}
	if amountIn.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	amountOutMin = orZero(amountOutMin)

	tokenIn, tokenOut := p.tokenA, p.tokenB
	if !inputIsTokenA {
		tokenIn, tokenOut = p.tokenB, p.tokenA
	}

	var amountOut *uint256.Int
	err := p.execute(ctx, opSwap, func(ctx context.Context, tx ledger.Tx, st *pending) error {
		reserveIn, reserveOut := st.reserveA, st.reserveB
		if !inputIsTokenA {
			reserveIn, reserveOut = st.reserveB, st.reserveA
		}

		out, err := calculator.AmountOut(amountIn, reserveIn, reserveOut, FeeBps)
		if err != nil {
			return err
		}
		if out.IsZero() {
			return ErrInsufficientOutputAmount
		}
		if out.Lt(amountOutMin) {
			return fmt.Errorf("%w: amountOut %s below minimum %s", ErrSlippageExceeded, out.Dec(), amountOutMin.Dec())
		}

		if err := guard.SafeTransfer(ctx, tx,
			guard.Pull(tokenIn, caller, p.address, amountIn),
			guard.Push(tokenOut, p.address, recipient, out),
		); err != nil {
			return err
		}
		if _, err := p.resync(tx, st); err != nil {
			return err
		}

		newIn, newOut := st.reserveA, st.reserveB
		if !inputIsTokenA {
			newIn, newOut = st.reserveB, st.reserveA
		}
		// Reserves are bounded by MaxReserve, so neither product overflows.
		before := new(uint256.Int).Mul(reserveIn, reserveOut)
		after := new(uint256.Int).Mul(newIn, newOut)
		if after.Lt(before) {
			return fmt.Errorf("%w: k decreased from %s to %s", ErrInvariantViolated, before.Dec(), after.Dec())
		}

		received := new(uint256.Int)
		if newIn.Gt(reserveIn) {
			received.Sub(newIn, reserveIn)
		}
		ev := &events.Swap{
			Actor:      caller,
			Amount0In:  new(uint256.Int),
			Amount1In:  new(uint256.Int),
			Amount0Out: new(uint256.Int),
			Amount1Out: new(uint256.Int),
			Recipient:  recipient,
		}
		if inputIsTokenA {
			ev.Amount0In, ev.Amount1Out = received, out.Clone()
		} else {
			ev.Amount1In, ev.Amount0Out = received, out.Clone()
		}
		p.emit(st, events.Event{Kind: events.KindSwap, Swap: ev})
		amountOut = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("swap executed", "pool", p.address, "caller", caller, "amountIn", amountIn.Dec(), "amountOut", amountOut.Dec())
	return amountOut, nil
}

// Sync adopts the pool's actual ledger balances as its reserves, absorbing
// any tokens sent to the pool outside of an operation.
func (p *Pool) Sync(ctx context.Context) error {
	return p.execute(ctx, opSync, func(context.Context, ledger.Tx, *pending) error {
		return nil
	})
}
