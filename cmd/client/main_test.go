package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/defistate/defistate-amm-go/cmd/client/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	tokenindexer "github.com/defistate/defistate-amm-go/protocols/tokenregistry/indexer"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/calculator"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/indexer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	usdc := common.HexToAddress("0x0a")
	taxd := common.HexToAddress("0x0b")
	bare := common.HexToAddress("0x0c")
	pools := []uniswapv2.Pool{
		{ID: 1, Address: common.HexToAddress("0xf1"), Token0: usdc, Token1: taxd, Reserve0: uint256.NewInt(5_000_000_000), Reserve1: uint256.NewInt(7_000_000_000), TotalShares: uint256.NewInt(1), FeeBps: 30},
		{ID: 2, Address: common.HexToAddress("0xf2"), Token0: usdc, Token1: bare, Reserve0: uint256.NewInt(3_000_000_000), Reserve1: uint256.NewInt(9_000_000_000), TotalShares: uint256.NewInt(1), FeeBps: 30},
	}
	state := &engine.State{
		Sequence: 4,
		Pools:    pools,
		Tokens: []tokenregistry.Token{
			{ID: 1, Address: usdc, Symbol: "USDC", Decimals: 6},
			{ID: 2, Address: taxd, Symbol: "TAX", Decimals: 9, FeeOnTransferBps: 100},
			{ID: 3, Address: bare},
		},
	}

	rate := func(p uniswapv2.Pool, in, out common.Address, decimals uint8) string {
		r, err := calculator.GetExchangeRate(in, out, decimals, p)
		require.NoError(t, err)
		return r.Dec()
	}

	testCases := []struct {
		name        string
		watch       common.Address
		contains    []string
		notContains []string
	}{
		{
			name:  "all pools",
			watch: common.Address{},
			contains: []string{
				"quote_0_to_1=" + rate(pools[0], usdc, taxd, 6),
				"quote_1_to_0=" + rate(pools[0], taxd, usdc, 9),
				"token1_transfer_fee_bps=100",
				"quote_1_to_0=" + rate(pools[1], bare, usdc, 18),
			},
			notContains: []string{"token0_transfer_fee_bps"},
		},
		{
			name:        "watched pool",
			watch:       pools[1].Address,
			contains:    []string{"pool=" + strings.ToLower(pools[1].Address.Hex())},
			notContains: []string{strings.ToLower(pools[0].Address.Hex())},
		},
		{
			name:     "watched pool missing",
			watch:    common.HexToAddress("0xf9"),
			contains: []string{"Watched pool not in state"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			cfg := &config.ClientConfig{WatchPool: tc.watch, QuoteDecimals: 18}

			report(logger, indexer.New().Index(state.Pools), tokenindexer.New().Index(state.Tokens), state, cfg)

			for _, s := range tc.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tc.notContains {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}
