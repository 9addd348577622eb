package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the node configuration. Environment variables provide the
// defaults and command-line flags override them.
type Config struct {
	ListenAddr      string         `env:"AMMD_LISTEN_ADDR" envDefault:":8545"`
	MetricsAddr     string         `env:"AMMD_METRICS_ADDR" envDefault:":9090"`
	RegistryAddress common.Address `env:"AMMD_REGISTRY_ADDRESS" envDefault:"0x00000000000000000000000000000000000a3300"`
	CORSOrigins     []string       `env:"AMMD_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel        slog.Level     `env:"AMMD_LOG_LEVEL" envDefault:"info"`
}

// Load reads the environment, then parses args on top of it.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("ammd", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address of the JSON-RPC server (HTTP and WebSocket)")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "address of the prometheus endpoint")
	fs.TextVar(&cfg.RegistryAddress, "registry", cfg.RegistryAddress, "identity of the pool registry")
	fs.TextVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "minimum log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: ListenAddr is required")
	}
	if c.MetricsAddr == "" {
		return errors.New("config: MetricsAddr is required")
	}
	if c.MetricsAddr == c.ListenAddr {
		return errors.New("config: MetricsAddr must differ from ListenAddr")
	}
	if c.RegistryAddress == (common.Address{}) {
		return errors.New("config: RegistryAddress cannot be the zero address")
	}
	return nil
}
