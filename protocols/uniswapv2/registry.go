package uniswapv2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is the externally visible state of one constant-product pool.
type Pool struct {
	ID          uint64         `json:"id"` // creation ordinal in the registry
	Address     common.Address `json:"address"`
	Token0      common.Address `json:"token0"` // always the smaller address
	Token1      common.Address `json:"token1"`
	Reserve0    *uint256.Int   `json:"reserve0"`
	Reserve1    *uint256.Int   `json:"reserve1"`
	TotalShares *uint256.Int   `json:"totalShares"`
	FeeBps      uint16         `json:"feeBps"` // i.e 30 for 0.3%
}
