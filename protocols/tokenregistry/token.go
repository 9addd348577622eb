package tokenregistry

import "github.com/ethereum/go-ethereum/common"

// Token is the metadata of a pool token as published on the state stream.
type Token struct {
	ID      uint64         `json:"id"` // order in which the registry first saw the token
	Address common.Address `json:"address"`
	Symbol  string         `json:"symbol,omitempty"`
	// Decimals and FeeOnTransferBps are zero until the token is known to the ledger.
	Decimals         uint8  `json:"decimals"`
	FeeOnTransferBps uint16 `json:"feeOnTransferBps"`
}
