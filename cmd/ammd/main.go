package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/defistate/defistate-amm-go/cmd/ammd/config"
	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/registry"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/server"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load configuration", "error", err)
		os.Exit(2)
	}

	rootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, rootLogger); err != nil {
		rootLogger.Error("Node stopped with error", "error", err)
		os.Exit(1)
	}
	rootLogger.Info("Node stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tokenLedger := ledger.NewMemory()
	poolRegistry, err := registry.NewRegistry(&registry.Config{
		Address:    cfg.RegistryAddress,
		Ledger:     tokenLedger,
		Logger:     logger.With("component", "registry"),
		Registerer: promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}

	stateDiffer, err := differ.NewStateDiffer(&differ.StateDifferConfig{
		Registry: promRegistry,
		Logger:   logger.With("component", "differ"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize differ: %w", err)
	}

	rpcServer, err := server.NewServer(&server.Config{
		Registry: poolRegistry,
		Differ:   stateDiffer,
		Ledger:   tokenLedger,
		Logger:   logger.With("component", "jsonrpc-server"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize RPC server: %w", err)
	}
	defer rpcServer.Stop()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	rpcHTTP := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           corsHandler.Handler(rpcHandler(rpcServer, cfg.CORSOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{Registry: promRegistry}))
	metricsHTTP := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("JSON-RPC server listening", "addr", cfg.ListenAddr, "registry", cfg.RegistryAddress)
		return serve(rpcHTTP)
	})
	g.Go(func() error {
		logger.Info("Metrics server listening", "addr", cfg.MetricsAddr)
		return serve(metricsHTTP)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(rpcHTTP.Shutdown(shutdownCtx), metricsHTTP.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func serve(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", s.Addr, err)
	}
	return nil
}

// rpcHandler serves WebSocket upgrades and plain HTTP JSON-RPC on the same path.
func rpcHandler(srv *rpc.Server, origins []string) http.Handler {
	ws := srv.WebsocketHandler(origins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWebsocket(r) {
			ws.ServeHTTP(w, r)
			return
		}
		srv.ServeHTTP(w, r)
	})
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
