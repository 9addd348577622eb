package indexer

import (
	tokenregistry "github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var basisPoints = uint256.NewInt(10000)

// Indexer builds lookup tables over the tokens of a state snapshot.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index builds a TokenIndex over tokens.
func (i *Indexer) Index(tokens []tokenregistry.Token) IndexedTokenSystem {
	return NewTokenIndex(tokens)
}

// TokenIndex is an IndexedTokenSystem over one snapshot's token list. IDs are
// registry ordinals, so positions are looked up through both keys.
type TokenIndex struct {
	tokens    []tokenregistry.Token
	byID      map[uint64]int
	byAddress map[common.Address]int
	withFee   []int
}

func NewTokenIndex(tokens []tokenregistry.Token) *TokenIndex {
	idx := &TokenIndex{
		tokens:    make([]tokenregistry.Token, len(tokens)),
		byID:      make(map[uint64]int, len(tokens)),
		byAddress: make(map[common.Address]int, len(tokens)),
	}
	copy(idx.tokens, tokens)
	for i, t := range idx.tokens {
		idx.byID[t.ID] = i
		idx.byAddress[t.Address] = i
		if t.FeeOnTransferBps > 0 {
			idx.withFee = append(idx.withFee, i)
		}
	}
	return idx
}

func (idx *TokenIndex) GetByID(id uint64) (tokenregistry.Token, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return tokenregistry.Token{}, false
	}
	return idx.tokens[i], true
}

func (idx *TokenIndex) GetByAddress(address common.Address) (tokenregistry.Token, bool) {
	i, ok := idx.byAddress[address]
	if !ok {
		return tokenregistry.Token{}, false
	}
	return idx.tokens[i], true
}

// All returns the tokens in snapshot order. The slice is never nil.
func (idx *TokenIndex) All() []tokenregistry.Token {
	out := make([]tokenregistry.Token, len(idx.tokens))
	copy(out, idx.tokens)
	return out
}

// known reports whether the ledger has published metadata for the token.
func known(t tokenregistry.Token) bool {
	return t.Symbol != "" || t.Decimals != 0 || t.FeeOnTransferBps != 0
}

func (idx *TokenIndex) Label(address common.Address) string {
	if t, ok := idx.GetByAddress(address); ok && t.Symbol != "" {
		return t.Symbol
	}
	hex := address.Hex()
	return hex[:6] + ".." + hex[len(hex)-4:]
}

func (idx *TokenIndex) Decimals(address common.Address, fallback uint8) uint8 {
	if t, ok := idx.GetByAddress(address); ok && known(t) {
		return t.Decimals
	}
	return fallback
}

// Delivered rounds the fee down, like the ledger does. Unknown tokens carry no fee.
func (idx *TokenIndex) Delivered(address common.Address, amount *uint256.Int) *uint256.Int {
	t, ok := idx.GetByAddress(address)
	if !ok || t.FeeOnTransferBps == 0 {
		return amount.Clone()
	}
	// bps <= 10000 keeps the quotient within 256 bits.
	fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(t.FeeOnTransferBps)), basisPoints)
	return fee.Sub(amount, fee)
}

func (idx *TokenIndex) FeeOnTransfer() []tokenregistry.Token {
	out := make([]tokenregistry.Token, 0, len(idx.withFee))
	for _, i := range idx.withFee {
		out = append(out, idx.tokens[i])
	}
	return out
}
