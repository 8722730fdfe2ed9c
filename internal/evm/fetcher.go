// Package evm reads native and ERC-20 balances from EVM chains through the
// resilient endpoint selector.
package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/example/chainbadge/internal/chainlist"
	"github.com/example/chainbadge/internal/endpoint"
	"github.com/example/chainbadge/internal/units"
)

// ErrDecode means an endpoint answered but the payload could not be decoded.
var ErrDecode = errors.New("evm: decode failed")

// Result is a balance together with the chain it was read from.
type Result struct {
	Amount units.Amount
	Chain  *chainlist.Chain
	Symbol string
}

type Fetcher struct {
	sel  *endpoint.Selector
	dial Dialer
}

// NewFetcher returns a Fetcher. A nil dial uses Dial.
func NewFetcher(sel *endpoint.Selector, dial Dialer) *Fetcher {
	if dial == nil {
		dial = Dial
	}
	return &Fetcher{sel: sel, dial: dial}
}

// NativeBalance returns the native coin balance of addr. Decimals and symbol
// come from the chain record.
func (f *Fetcher) NativeBalance(ctx context.Context, chainID *big.Int, addr common.Address) (Result, error) {
	return endpoint.Try(ctx, f.sel, chainID, func(ctx context.Context, chain *chainlist.Chain, url string) (Result, error) {
		b, err := f.dial(ctx, url)
		if err != nil {
			return Result{}, errors.Wrap(err, "dial")
		}
		defer b.Close()

		bal, err := b.BalanceAt(ctx, addr)
		if err != nil {
			return Result{}, errors.Wrap(err, "eth_getBalance")
		}
		if bal == nil {
			return Result{}, errors.Wrap(ErrDecode, "eth_getBalance: empty result")
		}
		return Result{
			Amount: units.NewAmount(bal, chain.NativeCurrency.Decimals),
			Chain:  chain,
			Symbol: chain.NativeCurrency.Symbol,
		}, nil
	})
}

// ERC20Balance returns addr's balance of the token at contract. balanceOf,
// decimals and symbol are read in one batch from the same endpoint; any
// failure in the batch fails the whole attempt.
func (f *Fetcher) ERC20Balance(ctx context.Context, chainID *big.Int, contract, addr common.Address) (Result, error) {
	return endpoint.Try(ctx, f.sel, chainID, func(ctx context.Context, chain *chainlist.Chain, url string) (Result, error) {
		calls, err := newTokenCalls(contract, addr)
		if err != nil {
			return Result{}, err
		}
		b, err := f.dial(ctx, url)
		if err != nil {
			return Result{}, errors.Wrap(err, "dial")
		}
		defer b.Close()

		if err := b.BatchCall(ctx, calls.elems); err != nil {
			return Result{}, errors.Wrap(err, "batch eth_call")
		}
		if err := calls.err(); err != nil {
			return Result{}, errors.Wrap(err, "eth_call")
		}
		bal, dec, sym, err := calls.decode()
		if err != nil {
			return Result{}, err
		}
		return Result{
			Amount: units.NewAmount(bal, dec),
			Chain:  chain,
			Symbol: sym,
		}, nil
	})
}
