package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// ClientConfig is the configuration of the state stream client.
type ClientConfig struct {
	StateStreamURL string `env:"AMM_STREAM_URL" envDefault:"ws://localhost:8545"`
	// WatchPool restricts the report to one pool when set.
	WatchPool common.Address `env:"AMM_WATCH_POOL"`
	// QuoteDecimals is used for spot quotes when the stream has no metadata for the input token.
	QuoteDecimals uint8      `env:"AMM_QUOTE_DECIMALS" envDefault:"18"`
	BufferSize    uint       `env:"AMM_BUFFER_SIZE" envDefault:"100"`
	LogLevel      slog.Level `env:"AMM_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads the environment, then parses args on top of it.
func LoadConfig(args []string) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&cfg.StateStreamURL, "url", cfg.StateStreamURL, "WebSocket URL of the state stream")
	fs.TextVar(&cfg.WatchPool, "pool", cfg.WatchPool, "only report this pool")
	fs.TextVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "minimum log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.StateStreamURL == "" {
		return nil, errors.New("config: StateStreamURL is required")
	}
	if cfg.BufferSize == 0 {
		return nil, errors.New("config: BufferSize must be greater than 0")
	}
	return cfg, nil
}
