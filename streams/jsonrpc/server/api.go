package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/pool"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrPoolNotFound is returned when a call names an address that is not a pool of the registry.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrIndexOutOfRange is returned by AllPools for an index past the last pool.
	ErrIndexOutOfRange = errors.New("pool index out of range")
)

// Reserves is the result of getReserves.
type Reserves struct {
	ReserveA *uint256.Int `json:"reserveA"`
	ReserveB *uint256.Int `json:"reserveB"`
}

// AddLiquidityArgs are the parameters of addLiquidity. From is the caller; the
// transport that submits calls is trusted to have authenticated it.
type AddLiquidityArgs struct {
	From           common.Address `json:"from"`
	Pool           common.Address `json:"pool"`
	AmountADesired *uint256.Int   `json:"amountADesired"`
	AmountBDesired *uint256.Int   `json:"amountBDesired"`
	AmountAMin     *uint256.Int   `json:"amountAMin,omitempty"`
	AmountBMin     *uint256.Int   `json:"amountBMin,omitempty"`
}

// RemoveLiquidityArgs are the parameters of removeLiquidity.
type RemoveLiquidityArgs struct {
	From       common.Address `json:"from"`
	Pool       common.Address `json:"pool"`
	Shares     *uint256.Int   `json:"shares"`
	AmountAMin *uint256.Int   `json:"amountAMin,omitempty"`
	AmountBMin *uint256.Int   `json:"amountBMin,omitempty"`
	Recipient  common.Address `json:"recipient"`
}

// RemoveLiquidityResult carries the amounts paid out by removeLiquidity.
type RemoveLiquidityResult struct {
	AmountA *uint256.Int `json:"amountA"`
	AmountB *uint256.Int `json:"amountB"`
}

// SwapArgs are the parameters of swap.
type SwapArgs struct {
	From          common.Address `json:"from"`
	Pool          common.Address `json:"pool"`
	AmountIn      *uint256.Int   `json:"amountIn"`
	InputIsTokenA bool           `json:"inputIsTokenA"`
	AmountOutMin  *uint256.Int   `json:"amountOutMin,omitempty"`
	Recipient     common.Address `json:"recipient"`
}

// TransferSharesArgs are the parameters of transferShares.
type TransferSharesArgs struct {
	From   common.Address `json:"from"`
	Pool   common.Address `json:"pool"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func (api *API) pool(address common.Address) (*pool.Pool, error) {
	p, ok := api.registry.PoolByAddress(address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, address.Hex())
	}
	return p, nil
}

// exclusive looks up a pool and waits for its turn. release must be called
// once the mutating call returns.
func (api *API) exclusive(ctx context.Context, address common.Address) (p *pool.Pool, release func(), err error) {
	if p, err = api.pool(address); err != nil {
		return nil, nil, err
	}
	if release, err = api.turns.take(ctx, address); err != nil {
		return nil, nil, err
	}
	return p, release, nil
}

// CreatePool creates the pool of a token pair and returns its initial view.
func (api *API) CreatePool(ctx context.Context, tokenX, tokenY common.Address) (*uniswapv2.Pool, error) {
	p, err := api.registry.CreatePool(ctx, tokenX, tokenY)
	if err != nil {
		return nil, err
	}
	view := p.View()
	return &view, nil
}

// GetPool returns the pool of a pair given in either order, or null.
func (api *API) GetPool(tokenX, tokenY common.Address) *uniswapv2.Pool {
	p, ok := api.registry.GetPool(tokenX, tokenY)
	if !ok {
		return nil
	}
	view := p.View()
	return &view
}

func (api *API) AllPoolsLength() int {
	return api.registry.AllPoolsLength()
}

// AllPools returns the address of the i-th pool in creation order.
func (api *API) AllPools(i int) (common.Address, error) {
	p, ok := api.registry.PoolAt(i)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return p.Address(), nil
}

func (api *API) GetReserves(address common.Address) (*Reserves, error) {
	p, err := api.pool(address)
	if err != nil {
		return nil, err
	}
	reserveA, reserveB := p.GetReserves()
	return &Reserves{ReserveA: reserveA, ReserveB: reserveB}, nil
}

func (api *API) GetAmountOut(address common.Address, amountIn *uint256.Int, inputIsTokenA bool) (*uint256.Int, error) {
	p, err := api.pool(address)
	if err != nil {
		return nil, err
	}
	return p.GetAmountOut(amountIn, inputIsTokenA)
}

func (api *API) BalanceOf(address, owner common.Address) (*uint256.Int, error) {
	p, err := api.pool(address)
	if err != nil {
		return nil, err
	}
	return p.BalanceOf(owner), nil
}

func (api *API) TotalShares(address common.Address) (*uint256.Int, error) {
	p, err := api.pool(address)
	if err != nil {
		return nil, err
	}
	return p.TotalShares(), nil
}

// AddLiquidity returns the number of shares minted to args.From.
func (api *API) AddLiquidity(ctx context.Context, args AddLiquidityArgs) (*uint256.Int, error) {
	p, release, err := api.exclusive(ctx, args.Pool)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.AddLiquidity(ctx, args.From, args.AmountADesired, args.AmountBDesired, args.AmountAMin, args.AmountBMin)
}

func (api *API) RemoveLiquidity(ctx context.Context, args RemoveLiquidityArgs) (*RemoveLiquidityResult, error) {
	p, release, err := api.exclusive(ctx, args.Pool)
	if err != nil {
		return nil, err
	}
	defer release()
	amountA, amountB, err := p.RemoveLiquidity(ctx, args.From, args.Shares, args.AmountAMin, args.AmountBMin, args.Recipient)
	if err != nil {
		return nil, err
	}
	return &RemoveLiquidityResult{AmountA: amountA, AmountB: amountB}, nil
}

// Swap returns the amount sent to args.Recipient.
func (api *API) Swap(ctx context.Context, args SwapArgs) (*uint256.Int, error) {
	p, release, err := api.exclusive(ctx, args.Pool)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.Swap(ctx, args.From, args.AmountIn, args.InputIsTokenA, args.AmountOutMin, args.Recipient)
}

func (api *API) Sync(ctx context.Context, address common.Address) error {
	p, release, err := api.exclusive(ctx, address)
	if err != nil {
		return err
	}
	defer release()
	return p.Sync(ctx)
}

func (api *API) TransferShares(ctx context.Context, args TransferSharesArgs) error {
	p, release, err := api.exclusive(ctx, args.Pool)
	if err != nil {
		return err
	}
	defer release()
	return p.TransferShares(ctx, args.From, args.To, args.Amount)
}
