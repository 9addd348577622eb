package calculator

import (
	"reflect"
	"testing"

	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usdc = common.HexToAddress("0x0000000000000000000000000000000000000001")
	weth = common.HexToAddress("0x0000000000000000000000000000000000000002")
	dai  = common.HexToAddress("0x0000000000000000000000000000000000000099")
)

func u(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

func usdcWethPool(feeBps uint16) uniswapv2.Pool {
	return uniswapv2.Pool{
		ID:       1,
		Token0:   usdc,
		Token1:   weth,
		Reserve0: uint256.NewInt(100_000_000), // 100 USDC
		Reserve1: u("50000000000000000000"),   // 50 WETH (18 decimals)
		FeeBps:   feeBps,
	}
}

func TestAmountOut(t *testing.T) {
	testCases := []struct {
		name           string
		amountIn       *uint256.Int
		reserveIn      *uint256.Int
		reserveOut     *uint256.Int
		feeBps         uint16
		expectedAmount *uint256.Int
		expectedErr    error
	}{
		{
			name:           "documented scenario: 10e18 into 100e18/200e18",
			amountIn:       u("10000000000000000000"),
			reserveIn:      u("100000000000000000000"),
			reserveOut:     u("200000000000000000000"),
			feeBps:         FeeBps,
			expectedAmount: u("18132217877602982631"),
		},
		{
			name:           "zero fee is plain constant product",
			amountIn:       uint256.NewInt(100),
			reserveIn:      uint256.NewInt(1000),
			reserveOut:     uint256.NewInt(1000),
			feeBps:         0,
			expectedAmount: uint256.NewInt(90),
		},
		{
			name:           "tiny input rounds to zero",
			amountIn:       uint256.NewInt(1),
			reserveIn:      u("1000000000000000000"),
			reserveOut:     uint256.NewInt(1000),
			feeBps:         FeeBps,
			expectedAmount: uint256.NewInt(0),
		},
		{
			name:        "zero input",
			amountIn:    uint256.NewInt(0),
			reserveIn:   uint256.NewInt(1000),
			reserveOut:  uint256.NewInt(1000),
			feeBps:      FeeBps,
			expectedErr: ErrInsufficientInputAmount,
		},
		{
			name:        "empty input reserve",
			amountIn:    uint256.NewInt(10),
			reserveIn:   uint256.NewInt(0),
			reserveOut:  uint256.NewInt(1000),
			feeBps:      FeeBps,
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "nil amount",
			amountIn:    nil,
			reserveIn:   uint256.NewInt(1000),
			reserveOut:  uint256.NewInt(1000),
			expectedErr: ErrNilAmount,
		},
		{
			name:        "fee of 100%",
			amountIn:    uint256.NewInt(10),
			reserveIn:   uint256.NewInt(1000),
			reserveOut:  uint256.NewInt(1000),
			feeBps:      10000,
			expectedErr: ErrInvalidFee,
		},
		{
			name:        "overflowing input",
			amountIn:    new(uint256.Int).SetAllOne(),
			reserveIn:   uint256.NewInt(1000),
			reserveOut:  uint256.NewInt(1000),
			feeBps:      FeeBps,
			expectedErr: ErrOverflow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountOut, err := AmountOut(tc.amountIn, tc.reserveIn, tc.reserveOut, tc.feeBps)
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedAmount.Dec(), amountOut.Dec())
		})
	}
}

func TestAmountOut_ProductNeverDecreases(t *testing.T) {
	reserveIn := u("100000000000000000000")
	reserveOut := u("200000000000000000000")
	amountIn := u("10000000000000000000")

	amountOut, err := AmountOut(amountIn, reserveIn, reserveOut, FeeBps)
	require.NoError(t, err)

	before := new(uint256.Int).Mul(reserveIn, reserveOut)
	after := new(uint256.Int).Mul(
		new(uint256.Int).Add(reserveIn, amountIn),
		new(uint256.Int).Sub(reserveOut, amountOut),
	)
	assert.True(t, after.Gt(before), "product must strictly grow with a non-zero fee: before %s after %s", before.Dec(), after.Dec())
}

func TestGetAmountOut(t *testing.T) {
	testCases := []struct {
		name           string
		amountIn       *uint256.Int
		tokenIn        common.Address
		tokenOut       common.Address
		pool           uniswapv2.Pool
		expectedAmount *uint256.Int
		expectedErr    error
	}{
		{
			name:           "Standard Swap (Token0 -> Token1)",
			amountIn:       uint256.NewInt(1_000_000), // 1 USDC (6 decimals)
			tokenIn:        usdc,
			tokenOut:       weth,
			pool:           usdcWethPool(30),
			expectedAmount: u("493579017198530649"),
		},
		{
			name:           "Standard Swap (Token1 -> Token0)",
			amountIn:       u("1000000000000000000"), // 1 WETH
			tokenIn:        weth,
			tokenOut:       usdc,
			pool:           usdcWethPool(30),
			expectedAmount: uint256.NewInt(1955016),
		},
		{
			name:           "Swap with Different Fee",
			amountIn:       uint256.NewInt(1_000_000),
			tokenIn:        usdc,
			tokenOut:       weth,
			pool:           usdcWethPool(100), // 1% fee
			expectedAmount: u("490147539360332706"),
		},
		{
			name:     "Edge Case: Zero Liquidity",
			amountIn: uint256.NewInt(1_000_000),
			tokenIn:  usdc,
			tokenOut: weth,
			pool: uniswapv2.Pool{
				ID:       3,
				Token0:   usdc,
				Token1:   weth,
				Reserve0: uint256.NewInt(0),
				Reserve1: u("50000000000000000000"),
				FeeBps:   30,
			},
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "Invalid Input: Token Mismatch",
			amountIn:    uint256.NewInt(1_000_000),
			tokenIn:     dai,
			tokenOut:    weth,
			pool:        usdcWethPool(30),
			expectedErr: ErrTokenMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountOut, err := GetAmountOut(tc.amountIn, tc.tokenIn, tc.tokenOut, tc.pool)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, amountOut)
			assert.Equal(t, tc.expectedAmount.Dec(), amountOut.Dec())
		})
	}
}

func TestGetAmountIn(t *testing.T) {
	testCases := []struct {
		name           string
		amountOut      *uint256.Int
		tokenIn        common.Address
		tokenOut       common.Address
		pool           uniswapv2.Pool
		expectedAmount *uint256.Int
		expectedErr    error
	}{
		{
			name:           "Standard Swap (Token0 -> Token1)",
			amountOut:      u("493579017198530649"),
			tokenIn:        usdc,
			tokenOut:       weth,
			pool:           usdcWethPool(30),
			expectedAmount: uint256.NewInt(1000000),
		},
		{
			name:           "Standard Swap (Token1 -> Token0)",
			amountOut:      uint256.NewInt(1955016),
			tokenIn:        weth,
			tokenOut:       usdc,
			pool:           usdcWethPool(30),
			expectedAmount: u("999999498234537320"),
		},
		{
			name:        "Invalid Input: Zero AmountOut",
			amountOut:   uint256.NewInt(0),
			tokenIn:     usdc,
			tokenOut:    weth,
			pool:        usdcWethPool(30),
			expectedErr: ErrInsufficientOutputAmount,
		},
		{
			name:        "Invalid State: Insufficient Liquidity",
			amountOut:   u("60000000000000000000"), // Request more than is in the pool
			tokenIn:     usdc,
			tokenOut:    weth,
			pool:        usdcWethPool(30),
			expectedErr: ErrInsufficientLiquidity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountIn, err := GetAmountIn(tc.amountOut, tc.tokenIn, tc.tokenOut, tc.pool)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, amountIn)
			assert.Equal(t, tc.expectedAmount.Dec(), amountIn.Dec())
		})
	}
}

func TestQuote(t *testing.T) {
	amountB, err := Quote(uint256.NewInt(50), uint256.NewInt(100), uint256.NewInt(200))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), amountB.Uint64())

	// rounds down
	amountB, err = Quote(uint256.NewInt(1), uint256.NewInt(3), uint256.NewInt(2))
	require.NoError(t, err)
	assert.True(t, amountB.IsZero())

	_, err = Quote(uint256.NewInt(1), uint256.NewInt(0), uint256.NewInt(2))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = Quote(uint256.NewInt(0), uint256.NewInt(1), uint256.NewInt(2))
	assert.ErrorIs(t, err, ErrInsufficientInputAmount)
}

func TestInitialShares(t *testing.T) {
	locked := uint256.NewInt(1000)

	shares, err := InitialShares(u("100000000000000000000"), u("200000000000000000000"), locked)
	require.NoError(t, err)
	assert.Equal(t, "141421356237309503880", shares.Dec())

	// sqrt(1000*1000) == locked is not enough
	_, err = InitialShares(uint256.NewInt(1000), uint256.NewInt(1000), locked)
	assert.ErrorIs(t, err, ErrInsufficientInitialLiquidity)

	shares, err = InitialShares(uint256.NewInt(1001), uint256.NewInt(1001), locked)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), shares.Uint64())

	_, err = InitialShares(new(uint256.Int).SetAllOne(), uint256.NewInt(2), locked)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestProportionalShares(t *testing.T) {
	// the scarcer side wins
	shares, err := ProportionalShares(uint256.NewInt(10), uint256.NewInt(30), uint256.NewInt(100), uint256.NewInt(200), uint256.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), shares.Uint64())

	_, err = ProportionalShares(uint256.NewInt(10), uint256.NewInt(30), uint256.NewInt(0), uint256.NewInt(200), uint256.NewInt(1000))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestProportionalAmount(t *testing.T) {
	amount, err := ProportionalAmount(uint256.NewInt(1), uint256.NewInt(10), uint256.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), amount.Uint64())

	_, err = ProportionalAmount(uint256.NewInt(1), uint256.NewInt(10), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestSimulateSwap(t *testing.T) {
	pool := usdcWethPool(30)
	amountIn := uint256.NewInt(1_000_000)

	amountOut, newPool, err := SimulateSwap(amountIn, usdc, weth, pool)
	require.NoError(t, err)

	assert.Equal(t, "493579017198530649", amountOut.Dec())

	expectedReserve0 := new(uint256.Int).Add(pool.Reserve0, amountIn)
	expectedReserve1 := new(uint256.Int).Sub(pool.Reserve1, amountOut)
	assert.True(t, expectedReserve0.Eq(newPool.Reserve0))
	assert.True(t, expectedReserve1.Eq(newPool.Reserve1))
}

// TestSimulateSwap_IdempotencyAndStateIsolation verifies that the simulation
// does not mutate its inputs and that the returned state owns its reserves.
func TestSimulateSwap_IdempotencyAndStateIsolation(t *testing.T) {
	originalPool := usdcWethPool(30)
	amountIn := uint256.NewInt(1_000_000)

	amountOut1, newPoolState1, err1 := SimulateSwap(amountIn, usdc, weth, originalPool)
	require.NoError(t, err1, "First simulation should succeed")

	amountOut2, newPoolState2, err2 := SimulateSwap(amountIn, usdc, weth, originalPool)
	require.NoError(t, err2, "Second simulation should succeed")

	t.Run("Idempotency Check", func(t *testing.T) {
		assert.Equal(t, amountOut1.Dec(), amountOut2.Dec(), "Amount out should be identical on consecutive runs")
		assert.True(t, reflect.DeepEqual(newPoolState1, newPoolState2), "The new pool state should be identical on consecutive runs")
	})

	t.Run("Deep Copy Check (Reserves)", func(t *testing.T) {
		assert.NotSame(t, originalPool.Reserve0, newPoolState1.Reserve0)
		assert.NotSame(t, originalPool.Reserve1, newPoolState1.Reserve1)
	})

	t.Run("Result Isolation Check", func(t *testing.T) {
		originalReserve2 := newPoolState2.Reserve0.Clone()
		newPoolState1.Reserve0.Add(newPoolState1.Reserve0, uint256.NewInt(12345))

		assert.NotEqual(t, newPoolState1.Reserve0.Dec(), newPoolState2.Reserve0.Dec(), "Modifying state 1 should not affect state 2")
		assert.Equal(t, originalReserve2.Dec(), newPoolState2.Reserve0.Dec(), "State 2's Reserve0 should remain pristine")
	})
}

func TestGetExchangeRate(t *testing.T) {
	// Token0 is WETH (18 decimals), Token1 is USDC (6 decimals), 3,000 USDC per WETH.
	wethAddr := common.HexToAddress("0x00000000000000000000000000000000000000a0")
	usdcAddr := common.HexToAddress("0x00000000000000000000000000000000000000b0")
	reserve0 := new(uint256.Int).Mul(uint256.NewInt(1000), GetScaledDecimal(18))  // 1,000 WETH
	reserve1 := new(uint256.Int).Mul(uint256.NewInt(3000000), GetScaledDecimal(6)) // 3,000,000 USDC

	mockPool := uniswapv2.Pool{
		Token0:   wethAddr,
		Token1:   usdcAddr,
		Reserve0: reserve0,
		Reserve1: reserve1,
	}

	testCases := []struct {
		name          string
		tokenIn       common.Address
		tokenOut      common.Address
		decimalsIn    uint8
		pool          uniswapv2.Pool
		expectedPrice string
		expectError   bool
	}{
		{
			name:          "Native Direction: WETH (18) -> USDC (6)",
			tokenIn:       wethAddr,
			tokenOut:      usdcAddr,
			decimalsIn:    18,
			pool:          mockPool,
			expectedPrice: "2970297029",
		},
		{
			name:          "Inverse Direction: USDC (6) -> WETH (18)",
			tokenIn:       usdcAddr,
			tokenOut:      wethAddr,
			decimalsIn:    6,
			pool:          mockPool,
			expectedPrice: "330033003300330",
		},
		{
			name:        "Mismatched Tokens",
			tokenIn:     dai,
			tokenOut:    wethAddr,
			decimalsIn:  18,
			pool:        mockPool,
			expectError: true,
		},
		{
			name:       "Zero Reserve",
			tokenIn:    wethAddr,
			tokenOut:   usdcAddr,
			decimalsIn: 18,
			pool: uniswapv2.Pool{
				Token0:   wethAddr,
				Token1:   usdcAddr,
				Reserve0: uint256.NewInt(0),
				Reserve1: reserve1,
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rate, err := GetExchangeRate(tc.tokenIn, tc.tokenOut, tc.decimalsIn, tc.pool)
			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedPrice, rate.Dec())
		})
	}
}

// result is a package-level variable to ensure the compiler does not optimize away the benchmarked call.
var result *uint256.Int

func BenchmarkAmountOut(b *testing.B) {
	reserveIn := u("1000000000000000000000")
	reserveOut := u("2000000000000")
	amountIn := u("1000000000000000000")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		result, _ = AmountOut(amountIn, reserveIn, reserveOut, FeeBps)
	}
}
