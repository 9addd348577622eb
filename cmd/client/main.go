package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/defistate/defistate-amm-go/cmd/client/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/patcher"
	tokenindexer "github.com/defistate/defistate-amm-go/protocols/tokenregistry/indexer"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/calculator"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/indexer"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/client"
	"github.com/ethereum/go-ethereum/common"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load configuration", "error", err)
		os.Exit(2)
	}

	// create the log handler
	rootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	close := func() {
		os.Exit(1)
	}

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statePatcher, err := patcher.NewStatePatcher(&patcher.StatePatcherConfig{})
	if err != nil {
		rootLogger.Error("Failed to initialize State Patcher", "error", err)
		close()
	}

	client, err := client.NewClient(
		ctx,
		client.Config{
			URL:          cfg.StateStreamURL,
			Logger:       rootLogger.With("component", "jsonrpc-client"),
			BufferSize:   cfg.BufferSize,
			StatePatcher: statePatcher.Patch,
		},
	)
	if err != nil {
		rootLogger.Error("Failed to initialize Client", "url", cfg.StateStreamURL, "error", err)
		close()
	}

	poolIndexer := indexer.New()
	tokenIndexer := tokenindexer.New()
	for {
		select {
		case state := <-client.State():
			report(rootLogger, poolIndexer.Index(state.Pools), tokenIndexer.Index(state.Tokens), state, cfg)
		case err, ok := <-client.Err():
			if ok && err != nil {
				rootLogger.Error("Fatal client error", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// report logs the reserves and spot quotes of the watched pools.
func report(logger *slog.Logger, pools indexer.IndexedUniswapV2, tokens tokenindexer.IndexedTokenSystem, state *engine.State, cfg *config.ClientConfig) {
	watched := pools.All()
	if cfg.WatchPool != (common.Address{}) {
		p, ok := pools.GetByAddress(cfg.WatchPool)
		if !ok {
			logger.Warn("Watched pool not in state", "pool", cfg.WatchPool, "sequence", state.Sequence)
			return
		}
		watched = []uniswapv2.Pool{p}
	}

	for _, p := range watched {
		attrs := []any{
			"sequence", state.Sequence,
			"pool", p.Address,
			"token0", p.Token0,
			"token1", p.Token1,
			"reserve0", p.Reserve0,
			"reserve1", p.Reserve1,
			"total_shares", p.TotalShares,
		}
		if rate, err := calculator.GetExchangeRate(p.Token0, p.Token1, tokens.Decimals(p.Token0, cfg.QuoteDecimals), p); err == nil {
			attrs = append(attrs, "quote_0_to_1", rate)
		}
		if rate, err := calculator.GetExchangeRate(p.Token1, p.Token0, tokens.Decimals(p.Token1, cfg.QuoteDecimals), p); err == nil {
			attrs = append(attrs, "quote_1_to_0", rate)
		}
		if t, ok := tokens.GetByAddress(p.Token0); ok && t.FeeOnTransferBps > 0 {
			attrs = append(attrs, "token0_transfer_fee_bps", t.FeeOnTransferBps)
		}
		if t, ok := tokens.GetByAddress(p.Token1); ok && t.FeeOnTransferBps > 0 {
			attrs = append(attrs, "token1_transfer_fee_bps", t.FeeOnTransferBps)
		}
		logger.Info("Pool", attrs...)
	}
}
