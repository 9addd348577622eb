package differ

import (
	"errors"
	"fmt"
	"time"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolsDiffer computes the change between two pool snapshots.
type PoolsDiffer func(old, new []uniswapv2.Pool) uniswapv2.SystemDiff

// TokensDiffer computes the change between two token snapshots.
type TokensDiffer func(old, new []tokenregistry.Token) tokenregistry.TokenSystemDiff

// StateDifferConfig holds the differ function and dependencies.
type StateDifferConfig struct {
	// PoolsDiffer defaults to uniswapv2.Differ.
	PoolsDiffer  PoolsDiffer
	// TokensDiffer defaults to tokenregistry.Differ.
	TokensDiffer TokensDiffer
	Registry     prometheus.Registerer
	Logger       Logger
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *StateDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// StateDiffer turns consecutive states into diffs for the state stream.
type StateDiffer struct {
	metrics      *Metrics
	logger       Logger
	poolsDiffer  PoolsDiffer
	tokensDiffer TokensDiffer
}

// NewStateDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewStateDiffer(cfg *StateDifferConfig) (*StateDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	poolsDiffer := cfg.PoolsDiffer
	if poolsDiffer == nil {
		poolsDiffer = uniswapv2.Differ
	}
	tokensDiffer := cfg.TokensDiffer
	if tokensDiffer == nil {
		tokensDiffer = tokenregistry.Differ
	}

	return &StateDiffer{
		metrics:      NewMetrics(cfg.Registry),
		logger:       cfg.Logger,
		poolsDiffer:  poolsDiffer,
		tokensDiffer: tokensDiffer,
	}, nil
}

// Diff computes the changes that take old to new. Both states must belong to
// the same registry and new must not be older than old.
func (d *StateDiffer) Diff(old, new *engine.State) (*StateDiff, error) {
	totalTimer := prometheus.NewTimer(d.metrics.diffDuration.WithLabelValues())
	defer totalTimer.ObserveDuration()

	if old == nil || new == nil {
		return nil, errors.New("differ: states cannot be nil")
	}
	if old.Registry != new.Registry {
		return nil, fmt.Errorf("differ: registry mismatch (old=%s, new=%s)", old.Registry.Hex(), new.Registry.Hex())
	}
	if new.Sequence < old.Sequence {
		return nil, fmt.Errorf("differ: new sequence %d is older than %d", new.Sequence, old.Sequence)
	}

	pools := d.poolsDiffer(old.Pools, new.Pools)
	d.metrics.poolChanges.WithLabelValues("addition").Add(float64(len(pools.Additions)))
	d.metrics.poolChanges.WithLabelValues("update").Add(float64(len(pools.Updates)))
	d.metrics.poolChanges.WithLabelValues("deletion").Add(float64(len(pools.Deletions)))

	if len(pools.Deletions) > 0 {
		// Pools are never destroyed; a deletion means the inputs came from different sources.
		d.logger.Warn("diff reports deleted pools", "deletions", pools.Deletions, "fromSequence", old.Sequence, "toSequence", new.Sequence)
	}

	tokens := d.tokensDiffer(old.Tokens, new.Tokens)

	return &StateDiff{
		Registry:     new.Registry,
		Timestamp:    uint64(time.Now().UnixNano()),
		FromSequence: old.Sequence,
		ToSequence:   new.Sequence,
		Pools:        pools,
		Tokens:       tokens,
	}, nil
}
