package config

import (
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:8545", cfg.StateStreamURL)
		assert.Equal(t, common.Address{}, cfg.WatchPool)
		assert.Equal(t, uint8(18), cfg.QuoteDecimals)
		assert.Equal(t, uint(100), cfg.BufferSize)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	})

	t.Run("env then flags", func(t *testing.T) {
		t.Setenv("AMM_STREAM_URL", "ws://node:8545")
		t.Setenv("AMM_QUOTE_DECIMALS", "6")
		t.Setenv("AMM_LOG_LEVEL", "warn")

		cfg, err := LoadConfig([]string{"-pool", "0x00000000000000000000000000000000000000aa", "-url", "ws://other:8545"})
		require.NoError(t, err)
		assert.Equal(t, "ws://other:8545", cfg.StateStreamURL)
		assert.Equal(t, common.HexToAddress("0xaa"), cfg.WatchPool)
		assert.Equal(t, uint8(6), cfg.QuoteDecimals)
		assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	})

	testCases := []struct {
		name        string
		env         map[string]string
		args        []string
		expectedErr string
	}{
		{name: "empty url", args: []string{"-url", ""}, expectedErr: "StateStreamURL is required"},
		{name: "zero buffer", env: map[string]string{"AMM_BUFFER_SIZE": "0"}, expectedErr: "BufferSize must be greater than 0"},
		{name: "malformed decimals", env: map[string]string{"AMM_QUOTE_DECIMALS": "300"}, expectedErr: "parse env"},
		{name: "malformed pool flag", args: []string{"-pool", "nope"}, expectedErr: "invalid value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(tc.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}
