package indexer

import (
	"bytes"

	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
)

type pairKey struct {
	token0 common.Address
	token1 common.Address
}

func newPairKey(x, y common.Address) pairKey {
	if bytes.Compare(x[:], y[:]) > 0 {
		x, y = y, x
	}
	return pairKey{token0: x, token1: y}
}

// Indexer builds indexed views over pool snapshots.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed system from a raw slice of pools.
func (i *Indexer) Index(pools []uniswapv2.Pool) IndexedUniswapV2 {
	return NewIndexableUniswapV2System(pools)
}

// IndexableUniswapV2System provides fast, indexed access to pool snapshots.
type IndexableUniswapV2System struct {
	byID      map[uint64]uniswapv2.Pool
	byAddress map[common.Address]uniswapv2.Pool
	byPair    map[pairKey]uniswapv2.Pool
	all       []uniswapv2.Pool
}

// NewIndexableUniswapV2System creates a new indexed system.
func NewIndexableUniswapV2System(pools []uniswapv2.Pool) *IndexableUniswapV2System {
	byID := make(map[uint64]uniswapv2.Pool, len(pools))
	byAddress := make(map[common.Address]uniswapv2.Pool, len(pools))
	byPair := make(map[pairKey]uniswapv2.Pool, len(pools))

	for _, p := range pools {
		byID[p.ID] = p
		byAddress[p.Address] = p
		byPair[newPairKey(p.Token0, p.Token1)] = p
	}

	return &IndexableUniswapV2System{
		byID:      byID,
		byAddress: byAddress,
		byPair:    byPair,
		all:       pools,
	}
}

// GetByID retrieves a pool by its creation ordinal.
func (ius *IndexableUniswapV2System) GetByID(id uint64) (uniswapv2.Pool, bool) {
	p, ok := ius.byID[id]
	return p, ok
}

// GetByAddress retrieves a pool by its ledger address.
func (ius *IndexableUniswapV2System) GetByAddress(address common.Address) (uniswapv2.Pool, bool) {
	p, ok := ius.byAddress[address]
	return p, ok
}

// GetByPair retrieves the pool of a token pair given in either order.
func (ius *IndexableUniswapV2System) GetByPair(tokenX, tokenY common.Address) (uniswapv2.Pool, bool) {
	p, ok := ius.byPair[newPairKey(tokenX, tokenY)]
	return p, ok
}

// All returns a copy of the slice of all pools.
func (ius *IndexableUniswapV2System) All() []uniswapv2.Pool {
	allCopy := make([]uniswapv2.Pool, len(ius.all))
	copy(allCopy, ius.all)
	return allCopy
}
