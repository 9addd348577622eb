package patcher

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
)

// PoolsPatcher applies a pool diff to a previous snapshot.
//
// CONTRACT: implementations MUST NOT mutate prevState. They must create a copy.
type PoolsPatcher func(prevState []uniswapv2.Pool, diff uniswapv2.SystemDiff) ([]uniswapv2.Pool, error)

// TokensPatcher applies a token diff to a previous snapshot under the same contract.
type TokensPatcher func(prevState []tokenregistry.Token, diff tokenregistry.TokenSystemDiff) ([]tokenregistry.Token, error)

type StatePatcherConfig struct {
	// PoolsPatcher defaults to uniswapv2.Patcher.
	PoolsPatcher  PoolsPatcher
	// TokensPatcher defaults to tokenregistry.Patcher.
	TokensPatcher TokensPatcher
}

func (c *StatePatcherConfig) validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	return nil
}

// StatePatcher rebuilds states from a previous state and a diff.
type StatePatcher struct {
	poolsPatcher  PoolsPatcher
	tokensPatcher TokensPatcher
}

// NewStatePatcher constructs a new patcher from a configuration.
func NewStatePatcher(cfg *StatePatcherConfig) (*StatePatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	poolsPatcher := cfg.PoolsPatcher
	if poolsPatcher == nil {
		poolsPatcher = uniswapv2.Patcher
	}
	tokensPatcher := cfg.TokensPatcher
	if tokensPatcher == nil {
		tokensPatcher = tokenregistry.Patcher
	}
	return &StatePatcher{poolsPatcher: poolsPatcher, tokensPatcher: tokensPatcher}, nil
}

// Patch creates a new State by applying the Diff to the Old State. The diff
// must start at the old state's sequence and belong to the same registry.
func (p *StatePatcher) Patch(oldState *engine.State, diff *differ.StateDiff) (*engine.State, error) {
	if oldState == nil || diff == nil {
		return nil, errors.New("patcher: state and diff cannot be nil")
	}
	if oldState.Sequence != diff.FromSequence {
		return nil, fmt.Errorf("patcher: mismatch fromSequence (state=%d, diff=%d)", oldState.Sequence, diff.FromSequence)
	}
	if oldState.Registry != diff.Registry {
		return nil, fmt.Errorf("patcher: registry mismatch (state=%s, diff=%s)", oldState.Registry.Hex(), diff.Registry.Hex())
	}

	pools, err := p.poolsPatcher(oldState.Pools, diff.Pools)
	if err != nil {
		return nil, fmt.Errorf("patcher: failed to patch pools: %w", err)
	}
	tokens, err := p.tokensPatcher(oldState.Tokens, diff.Tokens)
	if err != nil {
		return nil, fmt.Errorf("patcher: failed to patch tokens: %w", err)
	}

	return &engine.State{
		Registry:  oldState.Registry,
		Sequence:  diff.ToSequence,
		Timestamp: diff.Timestamp,
		Pools:     pools,
		Tokens:    tokens,
	}, nil
}
