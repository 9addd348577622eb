package server

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/registry"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultBufferSize        = 256
	DefaultSnapshotCacheSize = 16
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the dependencies of the RPC services.
type Config struct {
	Registry *registry.Registry
	Differ   *differ.StateDiffer
	// Ledger enables the ledger namespace when set.
	Ledger *ledger.Memory
	Logger Logger
	// BufferSize is the per-subscription event buffer. Defaults to DefaultBufferSize.
	BufferSize int
	// SnapshotCacheSize bounds the number of encoded full states kept for new
	// subscribers. Defaults to DefaultSnapshotCacheSize.
	SnapshotCacheSize int
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Differ == nil {
		return errors.New("config: Differ cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.BufferSize < 0 || c.SnapshotCacheSize < 0 {
		return errors.New("config: sizes cannot be negative")
	}
	return nil
}

// fullState is a snapshot together with its encoded stream payload.
type fullState struct {
	state   *engine.State
	payload []byte
}

// API is the pool service, registered under the jsonrpc.Namespace namespace.
type API struct {
	registry   *registry.Registry
	differ     *differ.StateDiffer
	logger     Logger
	bufferSize int
	snapshots  *lru.Cache[uint64, fullState]
	turns      *turns
}

// NewAPI creates the pool service.
func NewAPI(cfg *Config) (*API, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	bufferSize := cfg.BufferSize
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	}
	cacheSize := cfg.SnapshotCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultSnapshotCacheSize
	}
	snapshots, err := lru.New[uint64, fullState](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}

	return &API{
		registry:   cfg.Registry,
		differ:     cfg.Differ,
		logger:     cfg.Logger,
		bufferSize: bufferSize,
		snapshots:  snapshots,
		turns:      newTurns(),
	}, nil
}

// NewServer returns an RPC server with the pool service and, when a ledger is
// configured, the ledger service registered.
func NewServer(cfg *Config) (*rpc.Server, error) {
	api, err := NewAPI(cfg)
	if err != nil {
		return nil, err
	}

	srv := rpc.NewServer()
	if err := srv.RegisterName(jsonrpc.Namespace, api); err != nil {
		return nil, fmt.Errorf("failed to register %s API: %w", jsonrpc.Namespace, err)
	}
	if cfg.Ledger != nil {
		if err := srv.RegisterName(jsonrpc.LedgerNamespace, NewLedgerAPI(cfg.Ledger)); err != nil {
			return nil, fmt.Errorf("failed to register %s API: %w", jsonrpc.LedgerNamespace, err)
		}
	}
	return srv, nil
}
