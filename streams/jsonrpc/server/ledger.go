package server

import (
	"context"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenArgs are the parameters of registerToken.
type TokenArgs struct {
	Address          common.Address `json:"address"`
	Symbol           string         `json:"symbol"`
	Decimals         uint8          `json:"decimals"`
	FeeOnTransferBps uint16         `json:"feeOnTransferBps,omitempty"`
}

// ApproveArgs are the parameters of approve. From is the token owner.
type ApproveArgs struct {
	From    common.Address `json:"from"`
	Token   common.Address `json:"token"`
	Spender common.Address `json:"spender"`
	Amount  *uint256.Int   `json:"amount"`
}

// LedgerAPI exposes the in-memory token ledger, registered under the
// jsonrpc.LedgerNamespace namespace. It lets a standalone node be funded
// without an external token system.
type LedgerAPI struct {
	ledger *ledger.Memory
}

func NewLedgerAPI(l *ledger.Memory) *LedgerAPI {
	return &LedgerAPI{ledger: l}
}

func (api *LedgerAPI) RegisterToken(args TokenArgs) error {
	return api.ledger.RegisterToken(ledger.TokenInfo{
		Address:          args.Address,
		Symbol:           args.Symbol,
		Decimals:         args.Decimals,
		FeeOnTransferBps: args.FeeOnTransferBps,
	})
}

func (api *LedgerAPI) Mint(token, to common.Address, amount *uint256.Int) error {
	return api.ledger.Mint(token, to, amount)
}

func (api *LedgerAPI) Approve(args ApproveArgs) error {
	return api.ledger.Approve(args.Token, args.From, args.Spender, args.Amount)
}

func (api *LedgerAPI) BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	return api.ledger.BalanceOf(ctx, token, holder)
}
