package calculator

import (
	"errors"
	"fmt"

	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// FeeBps is the single fee tier: 0.30% taken from the input side of a swap.
	FeeBps uint16 = 30
	// BasisPointDivisor represents 100% in basis points.
	BasisPointDivisor uint64 = 10000
)

var (
	basisPointDivisor = uint256.NewInt(BasisPointDivisor)
	one               = uint256.NewInt(1)
	ten               = uint256.NewInt(10)
	hundred           = uint256.NewInt(100)

	// precomputed 10^dec for typical ERC20 decimals (0..18)
	precomputedScales [19]*uint256.Int

	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrInsufficientInputAmount is returned when a swap or quote is asked for a zero input.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrInsufficientOutputAmount is returned when a zero output is requested or produced.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrInsufficientLiquidity is returned when a reserve is empty or smaller than the requested output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientInitialLiquidity is returned when a first deposit does not clear the locked share floor.
	ErrInsufficientInitialLiquidity = errors.New("insufficient initial liquidity")
	// ErrOverflow is returned when an intermediate or final value does not fit in 256 bits.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrInvalidFee is returned for a fee of 100% or more.
	ErrInvalidFee = errors.New("fee must be below 10000 bps")
	// ErrTokenMismatch is returned when the specified input/output tokens do not match the pool's tokens.
	ErrTokenMismatch = errors.New("token mismatch")
)

func init() {
	precomputedScales[0] = uint256.NewInt(1)
	for i := 1; i < len(precomputedScales); i++ {
		precomputedScales[i] = new(uint256.Int).Mul(precomputedScales[i-1], ten)
	}
}

// GetScaledDecimal returns 10^dec. The returned value MUST NOT be modified.
func GetScaledDecimal(dec uint8) *uint256.Int {
	if int(dec) < len(precomputedScales) {
		return precomputedScales[dec]
	}
	return new(uint256.Int).Exp(ten, uint256.NewInt(uint64(dec)))
}

func feeMultiplier(feeBps uint16) (*uint256.Int, error) {
	if uint64(feeBps) >= BasisPointDivisor {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFee, feeBps)
	}
	return uint256.NewInt(BasisPointDivisor - uint64(feeBps)), nil
}

// AmountOut returns the output of selling amountIn against the given reserves:
//
//	amountOut = amountIn*(10000-fee)*reserveOut / (reserveIn*10000 + amountIn*(10000-fee))
//
// The fee is taken from the input before the constant-product formula is applied,
// so reserveIn*reserveOut never decreases across the trade.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountIn == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilAmount
	}
	if amountIn.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	feeMul, err := feeMultiplier(feeBps)
	if err != nil {
		return nil, err
	}

	amountInWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, feeMul)
	if overflow {
		return nil, fmt.Errorf("%w: amountIn with fee", ErrOverflow)
	}
	denominator, overflow := new(uint256.Int).MulOverflow(reserveIn, basisPointDivisor)
	if overflow {
		return nil, fmt.Errorf("%w: scaled reserveIn", ErrOverflow)
	}
	if _, overflow = denominator.AddOverflow(denominator, amountInWithFee); overflow {
		return nil, fmt.Errorf("%w: swap denominator", ErrOverflow)
	}

	// amountInWithFee*reserveOut can exceed 256 bits; MulDivOverflow keeps the full product.
	amountOut, overflow := new(uint256.Int).MulDivOverflow(amountInWithFee, reserveOut, denominator)
	if overflow {
		return nil, fmt.Errorf("%w: amountOut", ErrOverflow)
	}
	return amountOut, nil
}

// AmountIn returns the input required to receive amountOut, rounded up:
//
//	amountIn = reserveIn*amountOut*10000 / ((reserveOut-amountOut)*(10000-fee)) + 1
func AmountIn(amountOut, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountOut == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilAmount
	}
	if amountOut.IsZero() {
		return nil, ErrInsufficientOutputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("%w: requested amountOut (%s) with reserveOut (%s)", ErrInsufficientLiquidity, amountOut.Dec(), reserveOut.Dec())
	}
	feeMul, err := feeMultiplier(feeBps)
	if err != nil {
		return nil, err
	}

	scaledReserveIn, overflow := new(uint256.Int).MulOverflow(reserveIn, basisPointDivisor)
	if overflow {
		return nil, fmt.Errorf("%w: scaled reserveIn", ErrOverflow)
	}
	denominator := new(uint256.Int).Sub(reserveOut, amountOut)
	if _, overflow = denominator.MulOverflow(denominator, feeMul); overflow {
		return nil, fmt.Errorf("%w: amountIn denominator", ErrOverflow)
	}

	amountIn, overflow := new(uint256.Int).MulDivOverflow(scaledReserveIn, amountOut, denominator)
	if overflow {
		return nil, fmt.Errorf("%w: amountIn", ErrOverflow)
	}
	if _, overflow = amountIn.AddOverflow(amountIn, one); overflow {
		return nil, fmt.Errorf("%w: amountIn", ErrOverflow)
	}
	return amountIn, nil
}

// Quote returns the amount of B that matches amountA at the reserveA:reserveB ratio.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || reserveA == nil || reserveB == nil {
		return nil, ErrNilAmount
	}
	if amountA.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	amountB, overflow := new(uint256.Int).MulDivOverflow(amountA, reserveB, reserveA)
	if overflow {
		return nil, fmt.Errorf("%w: quote", ErrOverflow)
	}
	return amountB, nil
}

// InitialShares returns floor(sqrt(amountA*amountB)) - locked, the shares of a
// first deposit. The geometric mean must strictly exceed locked.
func InitialShares(amountA, amountB, locked *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || amountB == nil || locked == nil {
		return nil, ErrNilAmount
	}
	product, overflow := new(uint256.Int).MulOverflow(amountA, amountB)
	if overflow {
		return nil, fmt.Errorf("%w: initial deposit product", ErrOverflow)
	}
	root := new(uint256.Int).Sqrt(product)
	if !root.Gt(locked) {
		return nil, fmt.Errorf("%w: sqrt(%s*%s) = %s does not exceed %s",
			ErrInsufficientInitialLiquidity, amountA.Dec(), amountB.Dec(), root.Dec(), locked.Dec())
	}
	return root.Sub(root, locked), nil
}

// ProportionalShares returns min(amountA*totalShares/reserveA, amountB*totalShares/reserveB).
func ProportionalShares(amountA, amountB, reserveA, reserveB, totalShares *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || amountB == nil || reserveA == nil || reserveB == nil || totalShares == nil {
		return nil, ErrNilAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	sharesA, overflow := new(uint256.Int).MulDivOverflow(amountA, totalShares, reserveA)
	if overflow {
		return nil, fmt.Errorf("%w: shares for token A", ErrOverflow)
	}
	sharesB, overflow := new(uint256.Int).MulDivOverflow(amountB, totalShares, reserveB)
	if overflow {
		return nil, fmt.Errorf("%w: shares for token B", ErrOverflow)
	}
	if sharesA.Lt(sharesB) {
		return sharesA, nil
	}
	return sharesB, nil
}

// ProportionalAmount returns shares*reserve/totalShares, the part of reserve owned by shares.
func ProportionalAmount(shares, reserve, totalShares *uint256.Int) (*uint256.Int, error) {
	if shares == nil || reserve == nil || totalShares == nil {
		return nil, ErrNilAmount
	}
	if totalShares.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	amount, overflow := new(uint256.Int).MulDivOverflow(shares, reserve, totalShares)
	if overflow {
		return nil, fmt.Errorf("%w: proportional amount", ErrOverflow)
	}
	return amount, nil
}

// GetAmountOut calculates the output amount for a swap against a pool snapshot.
func GetAmountOut(amountIn *uint256.Int, tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (*uint256.Int, error) {
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	return AmountOut(amountIn, reserveIn, reserveOut, pool.FeeBps)
}

// GetAmountIn calculates the input required for a desired output against a pool snapshot.
func GetAmountIn(amountOut *uint256.Int, tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (*uint256.Int, error) {
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	return AmountIn(amountOut, reserveIn, reserveOut, pool.FeeBps)
}

// SimulateSwap calculates the result of a swap and the pool snapshot after it.
// The input snapshot is not modified.
func SimulateSwap(amountIn *uint256.Int, tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (*uint256.Int, uniswapv2.Pool, error) {
	amountOut, err := GetAmountOut(amountIn, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, uniswapv2.Pool{}, err
	}

	newPoolState := pool
	if tokenIn == pool.Token0 {
		newPoolState.Reserve0 = new(uint256.Int).Add(pool.Reserve0, amountIn)
		newPoolState.Reserve1 = new(uint256.Int).Sub(pool.Reserve1, amountOut)
	} else { // tokenIn == pool.Token1
		newPoolState.Reserve1 = new(uint256.Int).Add(pool.Reserve1, amountIn)
		newPoolState.Reserve0 = new(uint256.Int).Sub(pool.Reserve0, amountOut)
	}
	if pool.TotalShares != nil {
		newPoolState.TotalShares = pool.TotalShares.Clone()
	}

	return amountOut, newPoolState, nil
}

// GetReserves returns the reserves for the given token pair.
func GetReserves(tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (reserveIn, reserveOut *uint256.Int, err error) {
	if tokenIn == pool.Token0 && tokenOut == pool.Token1 {
		return pool.Reserve0, pool.Reserve1, nil
	} else if tokenIn == pool.Token1 && tokenOut == pool.Token0 {
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: pool %s does not contain the pair %s -> %s", ErrTokenMismatch, pool.Address.Hex(), tokenIn.Hex(), tokenOut.Hex())
}

// GetExchangeRate returns how much tokenOut one whole unit of tokenIn buys,
// sampled with a trade of 1% of the input reserve so the fee and price impact are included.
func GetExchangeRate(tokenIn, tokenOut common.Address, decimalsIn uint8, pool uniswapv2.Pool) (*uint256.Int, error) {
	reserveIn, _, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn == nil || reserveIn.IsZero() {
		return nil, fmt.Errorf("%w: zero reserve for %s", ErrInsufficientLiquidity, tokenIn.Hex())
	}

	amountIn := new(uint256.Int).Div(reserveIn, hundred)
	if amountIn.IsZero() {
		return nil, fmt.Errorf("%w: reserve of %s too small to sample", ErrInsufficientInputAmount, tokenIn.Hex())
	}

	amountOut, err := GetAmountOut(amountIn, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}

	rate, overflow := new(uint256.Int).MulDivOverflow(GetScaledDecimal(decimalsIn), amountOut, amountIn)
	if overflow {
		return nil, fmt.Errorf("%w: exchange rate", ErrOverflow)
	}
	return rate, nil
}
