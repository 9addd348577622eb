package indexer

import (
	tokenregistry "github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// IndexedTokenSystem answers the token questions of pool displays and quotes.
type IndexedTokenSystem interface {
	GetByID(id uint64) (tokenregistry.Token, bool)
	GetByAddress(address common.Address) (tokenregistry.Token, bool)
	All() []tokenregistry.Token

	// Label is the token's symbol, or its short address while unknown.
	Label(address common.Address) string
	// Decimals returns fallback while the token's metadata is unknown.
	Decimals(address common.Address, fallback uint8) uint8
	// Delivered is what a recipient gets when amount of the token is sent.
	Delivered(address common.Address, amount *uint256.Int) *uint256.Int
	// FeeOnTransfer lists the tokens that burn part of every transfer.
	FeeOnTransfer() []tokenregistry.Token
}
