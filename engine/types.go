package engine

import (
	"github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
)

// State is the main data structure broadcast to subscribers.
type State struct {
	Registry common.Address `json:"registry"`

	// Sequence counts the committed operations reflected in this state. It
	// increases by one per operation, so consumers can detect missed updates.
	Sequence  uint64           `json:"sequence"`
	Timestamp uint64           `json:"timestamp"` // unix nanoseconds at capture
	Pools     []uniswapv2.Pool `json:"pools"`     // ordered by ID
	// Tokens lists every token that appears in a pool, ordered by ID.
	Tokens []tokenregistry.Token `json:"tokens"`
}

// Pool returns the snapshot of the pool with the given ID.
func (state *State) Pool(id uint64) (uniswapv2.Pool, bool) {
	// IDs are creation ordinals starting at 1, so a full snapshot is dense.
	if id > 0 && id <= uint64(len(state.Pools)) && state.Pools[id-1].ID == id {
		return state.Pools[id-1], true
	}
	for _, p := range state.Pools {
		if p.ID == id {
			return p, true
		}
	}
	return uniswapv2.Pool{}, false
}
