package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/defistate/defistate-amm-go/events"
	"github.com/defistate/defistate-amm-go/guard"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AddLiquidity deposits both tokens from caller and mints LP shares to caller.
//
// An empty pool takes the desired amounts as given. Otherwise the deposit is
// reduced on one side to match the current price, and the reduced side must
// stay at or above its minimum. Shares are minted against the amounts the pool
// actually received.
func (p *Pool) AddLiquidity(ctx context.Context, caller common.Address, amountADesired, amountBDesired, amountAMin, amountBMin *uint256.Int) (*uint256.Int, error) {
	if caller == (common.Address{}) {
		return nil, fmt.Errorf("caller: %w", ErrZeroAddress)
	}
	if amountADesired == nil || amountBDesired == nil {
		return nil, ErrNilAmount
	}
	if amountADesired.IsZero() || amountBDesired.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	amountAMin, amountBMin = orZero(amountAMin), orZero(amountBMin)

	var minted *uint256.Int
	err := p.execute(ctx, opAddLiquidity, func(ctx context.Context, tx ledger.Tx, st *pending) error {
		first := st.totalShares.IsZero()

		amountA, amountB := amountADesired, amountBDesired
		if !first {
			var err error
			amountA, amountB, err = optimalAmounts(amountADesired, amountBDesired, amountAMin, amountBMin, st.reserveA, st.reserveB)
			if err != nil {
				return err
			}
		}
		if _, err := p.shareQuote(first, amountA, amountB, st.reserveA, st.reserveB, st.totalShares); err != nil {
			return err
		}

		reserveA, reserveB := st.reserveA, st.reserveB
		if err := guard.SafeTransfer(ctx, tx,
			guard.Pull(p.tokenA, caller, p.address, amountA),
			guard.Pull(p.tokenB, caller, p.address, amountB),
		); err != nil {
			return err
		}
		if _, err := p.resync(tx, st); err != nil {
			return err
		}
		if st.reserveA.Lt(reserveA) || st.reserveB.Lt(reserveB) {
			return fmt.Errorf("%w: reserves decreased during deposit", ErrInvariantViolated)
		}
		receivedA := new(uint256.Int).Sub(st.reserveA, reserveA)
		receivedB := new(uint256.Int).Sub(st.reserveB, reserveB)

		shares, err := p.shareQuote(first, receivedA, receivedB, reserveA, reserveB, st.totalShares)
		if err != nil {
			return err
		}

		st.shares[caller] = new(uint256.Int).Add(p.sharesOf(st, caller), shares)
		st.totalShares = new(uint256.Int).Add(st.totalShares, shares)
		p.emit(st, events.Event{
			Kind: events.KindMint,
			Mint: &events.Mint{Actor: caller, Amount0: receivedA, Amount1: receivedB, Shares: shares.Clone()},
		})
		minted = shares
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("liquidity added", "pool", p.address, "caller", caller, "shares", minted.Dec())
	return minted, nil
}

// shareQuote returns the shares minted for a deposit of amountA and amountB.
func (p *Pool) shareQuote(first bool, amountA, amountB, reserveA, reserveB, totalShares *uint256.Int) (*uint256.Int, error) {
	if first {
		// Any dust left from earlier depositors is swept into this position.
		return calculator.InitialShares(amountA, amountB, minimumLocked)
	}
	shares, err := calculator.ProportionalShares(amountA, amountB, reserveA, reserveB, totalShares)
	if err != nil {
		return nil, err
	}
	if shares.IsZero() {
		return nil, ErrNoLiquidityMinted
	}
	return shares, nil
}

// optimalAmounts fits a deposit to the reserve ratio, keeping one side at its desired amount.
func optimalAmounts(amountADesired, amountBDesired, amountAMin, amountBMin, reserveA, reserveB *uint256.Int) (amountA, amountB *uint256.Int, err error) {
	amountBOptimal, err := calculator.Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !amountBOptimal.Gt(amountBDesired) {
		if amountBOptimal.Lt(amountBMin) {
			return nil, nil, fmt.Errorf("%w: amountB %s below minimum %s", ErrSlippageExceeded, amountBOptimal.Dec(), amountBMin.Dec())
		}
		return amountADesired, amountBOptimal, nil
	}

	amountAOptimal, err := calculator.Quote(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if amountAOptimal.Gt(amountADesired) {
		return nil, nil, fmt.Errorf("%w: amountA %s above desired %s", ErrInvariantViolated, amountAOptimal.Dec(), amountADesired.Dec())
	}
	if amountAOptimal.Lt(amountAMin) {
		return nil, nil, fmt.Errorf("%w: amountA %s below minimum %s", ErrSlippageExceeded, amountAOptimal.Dec(), amountAMin.Dec())
	}
	return amountAOptimal, amountBDesired, nil
}

// RemoveLiquidity burns shares held by caller and pays the proportional part
// of both reserves to recipient.
func (p *Pool) RemoveLiquidity(ctx context.Context, caller common.Address, shares, amountAMin, amountBMin *uint256.Int, recipient common.Address) (amountA, amountB *uint256.Int, err error) {
	if caller == (common.Address{}) {
		return nil, nil, fmt.Errorf("caller: %w", ErrZeroAddress)
	}
	if err := p.checkRecipient(recipient); err != nil {
		return nil, nil, err
	}
	if shares == nil {
		return nil, nil, ErrNilAmount
	}
	if shares.IsZero() {
		return nil, nil, ErrInsufficientBurnAmount
	}
	amountAMin, amountBMin = orZero(amountAMin), orZero(amountBMin)

	err = p.execute(ctx, opRemoveLiquidity, func(ctx context.Context, tx ledger.Tx, st *pending) error {
		balance := p.sharesOf(st, caller)
		if shares.Gt(balance) {
			return fmt.Errorf("%w: has %s, burning %s", ErrInsufficientShares, balance.Dec(), shares.Dec())
		}

		outA, err := calculator.ProportionalAmount(shares, st.reserveA, st.totalShares)
		if err != nil {
			return err
		}
		outB, err := calculator.ProportionalAmount(shares, st.reserveB, st.totalShares)
		if err != nil {
			return err
		}
		if outA.IsZero() || outB.IsZero() {
			return ErrInsufficientBurnAmount
		}
		if outA.Lt(amountAMin) {
			return fmt.Errorf("%w: amountA %s below minimum %s", ErrSlippageExceeded, outA.Dec(), amountAMin.Dec())
		}
		if outB.Lt(amountBMin) {
			return fmt.Errorf("%w: amountB %s below minimum %s", ErrSlippageExceeded, outB.Dec(), amountBMin.Dec())
		}

		if err := guard.SafeTransfer(ctx, tx,
			guard.Push(p.tokenA, p.address, recipient, outA),
			guard.Push(p.tokenB, p.address, recipient, outB),
		); err != nil {
			return err
		}
		if _, err := p.resync(tx, st); err != nil {
			return err
		}

		st.shares[caller] = new(uint256.Int).Sub(balance, shares)
		st.totalShares = new(uint256.Int).Sub(st.totalShares, shares)
		p.emit(st, events.Event{
			Kind: events.KindBurn,
			Burn: &events.Burn{Actor: caller, Amount0: outA, Amount1: outB, Shares: shares.Clone(), Recipient: recipient},
		})
		amountA, amountB = outA.Clone(), outB.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	p.logger.Debug("liquidity removed", "pool", p.address, "caller", caller, "shares", shares.Dec())
	return amountA, amountB, nil
}

// TransferShares moves LP shares from one owner to another.
func (p *Pool) TransferShares(ctx context.Context, from, to common.Address, amount *uint256.Int) (err error) {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil {
		return ErrNilAmount
	}

	start := time.Now()
	defer func() {
		p.metrics.observe(p.address, opTransferShares, err, time.Since(start))
	}()

	_, release, err := p.guard.Enter(ctx)
	if err != nil {
		return err
	}

	st := p.begin()
	balance := p.sharesOf(st, from)
	if amount.Gt(balance) {
		release()
		return fmt.Errorf("%w: has %s, sending %s", ErrInsufficientShares, balance.Dec(), amount.Dec())
	}
	if from != to {
		st.shares[from] = new(uint256.Int).Sub(balance, amount)
		st.shares[to] = new(uint256.Int).Add(p.sharesOf(st, to), amount)
	}
	p.emit(st, events.Event{
		Kind:     events.KindTransfer,
		Transfer: &events.Transfer{From: from, To: to, Shares: amount.Clone()},
	})
	p.commit(st)
	for _, ev := range st.events {
		p.emitter.Emit(ev)
	}
	release()
	return nil
}
