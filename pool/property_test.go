package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"
)

func drawAmount(t *rapid.T, label string) *uint256.Int {
	// 10^4 .. 10^28 base units keeps the first deposit above the locked minimum.
	mantissa := rapid.Uint64Range(1, 1_000_000).Draw(t, label+"Mantissa")
	exp := rapid.Uint64Range(4, 22).Draw(t, label+"Exp")
	return new(uint256.Int).Mul(uint256.NewInt(mantissa), new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(exp)))
}

func TestSwapNeverDecreasesProduct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		if _, err := f.pool.AddLiquidity(ctx, alice, drawAmount(t, "reserveA"), drawAmount(t, "reserveB"), nil, nil); err != nil {
			t.Fatalf("seed: %v", err)
		}

		steps := rapid.IntRange(1, 8).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			reserveA, reserveB := f.pool.GetReserves()
			before := new(uint256.Int).Mul(reserveA, reserveB)

			_, err := f.pool.Swap(ctx, bob, drawAmount(t, "amountIn"), rapid.Bool().Draw(t, "inputIsTokenA"), nil, bob)
			if err != nil {
				if !errors.Is(err, ErrInsufficientOutputAmount) {
					t.Fatalf("swap %d: %v", i, err)
				}
				continue
			}

			reserveA, reserveB = f.pool.GetReserves()
			after := new(uint256.Int).Mul(reserveA, reserveB)
			if after.Lt(before) {
				t.Fatalf("swap %d: k decreased from %s to %s", i, before.Dec(), after.Dec())
			}
		}
	})
}

func TestRemoveLiquidityIsProportional(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		total, err := f.pool.AddLiquidity(ctx, alice, drawAmount(t, "amountA"), drawAmount(t, "amountB"), nil, nil)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		if rapid.Bool().Draw(t, "swapFirst") {
			_, _ = f.pool.Swap(ctx, bob, drawAmount(t, "amountIn"), rapid.Bool().Draw(t, "inputIsTokenA"), nil, bob)
		}

		burn, _ := new(uint256.Int).MulDivOverflow(total, uint256.NewInt(rapid.Uint64Range(1, 1000).Draw(t, "permille")), uint256.NewInt(1000))
		reserveA, reserveB := f.pool.GetReserves()
		totalShares := f.pool.TotalShares()
		wantA := new(uint256.Int).Div(new(uint256.Int).Mul(burn, reserveA), totalShares)
		wantB := new(uint256.Int).Div(new(uint256.Int).Mul(burn, reserveB), totalShares)

		amountA, amountB, err := f.pool.RemoveLiquidity(ctx, alice, burn, nil, nil, alice)
		if err != nil {
			if errors.Is(err, ErrInsufficientBurnAmount) && (wantA.IsZero() || wantB.IsZero()) {
				return
			}
			t.Fatalf("remove %s of %s: %v", burn.Dec(), total.Dec(), err)
		}
		if !amountA.Eq(wantA) || !amountB.Eq(wantB) {
			t.Fatalf("got %s/%s, want %s/%s", amountA.Dec(), amountB.Dec(), wantA.Dec(), wantB.Dec())
		}
		if !f.pool.BalanceOf(alice).Eq(new(uint256.Int).Sub(total, burn)) {
			t.Fatalf("balance not decreased by exactly %s", burn.Dec())
		}
	})
}

func TestDepositWithdrawRoundTripNeverProfits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		if _, err := f.pool.AddLiquidity(ctx, alice, drawAmount(t, "seedA"), drawAmount(t, "seedB"), nil, nil); err != nil {
			t.Fatalf("seed: %v", err)
		}

		bobA := f.balance(t, testTokenA, bob)
		bobB := f.balance(t, testTokenB, bob)

		shares, err := f.pool.AddLiquidity(ctx, bob, drawAmount(t, "amountA"), drawAmount(t, "amountB"), nil, nil)
		if err != nil {
			if errors.Is(err, ErrNoLiquidityMinted) {
				return
			}
			t.Fatalf("deposit: %v", err)
		}
		if _, _, err := f.pool.RemoveLiquidity(ctx, bob, shares, nil, nil, bob); err != nil && !errors.Is(err, ErrInsufficientBurnAmount) {
			t.Fatalf("withdraw: %v", err)
		}

		if f.balance(t, testTokenA, bob).Gt(bobA) || f.balance(t, testTokenB, bob).Gt(bobB) {
			t.Fatalf("round trip returned more than was deposited")
		}
	})
}

func TestShareTransferCannotDrain(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		total, err := f.pool.AddLiquidity(ctx, alice, drawAmount(t, "amountA"), drawAmount(t, "amountB"), nil, nil)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}

		moved, _ := new(uint256.Int).MulDivOverflow(total, uint256.NewInt(rapid.Uint64Range(1, 1000).Draw(t, "permille")), uint256.NewInt(1000))
		if moved.IsZero() {
			return
		}
		if err := f.pool.TransferShares(ctx, alice, carol, moved); err != nil {
			t.Fatalf("transfer: %v", err)
		}

		// alice no longer holds the full position.
		if err := f.pool.TransferShares(ctx, alice, carol, total); !errors.Is(err, ErrInsufficientShares) {
			t.Fatalf("expected insufficient shares, got %v", err)
		}

		reserveA, reserveB := f.pool.GetReserves()
		totalShares := f.pool.TotalShares()
		amountA, amountB, err := f.pool.RemoveLiquidity(ctx, carol, moved, nil, nil, carol)
		if err != nil {
			if errors.Is(err, ErrInsufficientBurnAmount) {
				return
			}
			t.Fatalf("remove: %v", err)
		}
		maxA := new(uint256.Int).Div(new(uint256.Int).Mul(moved, reserveA), totalShares)
		maxB := new(uint256.Int).Div(new(uint256.Int).Mul(moved, reserveB), totalShares)
		if amountA.Gt(maxA) || amountB.Gt(maxB) {
			t.Fatalf("withdrew %s/%s, more than the share of reserves %s/%s", amountA.Dec(), amountB.Dec(), maxA.Dec(), maxB.Dec())
		}
	})
}
