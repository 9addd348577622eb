package pool

import (
	"errors"

	"github.com/defistate/defistate-amm-go/guard"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/calculator"
)

// Input validation.
var (
	// ErrIdenticalTokens is returned when both sides of a pair are the same token.
	ErrIdenticalTokens = errors.New("identical tokens")
	// ErrZeroAddress is returned when a token, pool or caller identity is the zero address.
	ErrZeroAddress = errors.New("zero address")
	// ErrInvalidRecipient is returned when funds would be sent to the zero address, a pool token or the pool itself.
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrNilAmount               = calculator.ErrNilAmount
	ErrInsufficientInputAmount = calculator.ErrInsufficientInputAmount
)

// Invariant and liquidity failures.
var (
	ErrInsufficientInitialLiquidity = calculator.ErrInsufficientInitialLiquidity
	ErrInsufficientLiquidity        = calculator.ErrInsufficientLiquidity
	ErrInsufficientOutputAmount     = calculator.ErrInsufficientOutputAmount
	ErrOverflow                     = calculator.ErrOverflow

	// ErrNoLiquidityMinted is returned when a deposit would mint zero shares.
	ErrNoLiquidityMinted = errors.New("no liquidity minted")
	// ErrInsufficientBurnAmount is returned when a withdrawal would pay out zero of either token.
	ErrInsufficientBurnAmount = errors.New("insufficient liquidity burned")
	// ErrInsufficientShares is returned when an owner burns or transfers more shares than it holds.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrInvariantViolated is returned when balances after settlement break the pool's invariants.
	ErrInvariantViolated = errors.New("pool invariant violated")
)

// ErrSlippageExceeded is returned when a computed amount falls outside the caller's bound.
var ErrSlippageExceeded = errors.New("slippage exceeded")

// Settlement and reentrancy.
var (
	ErrTransferFailed = guard.ErrTransferFailed
	ErrReentrancy     = guard.ErrReentrancy
)
