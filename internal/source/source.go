// Package source dispatches balance queries to the matching chain fetcher and
// builds explorer links for them.
package source

import (
	"context"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/example/chainbadge/internal/bitcoin"
	"github.com/example/chainbadge/internal/chainlist"
	"github.com/example/chainbadge/internal/endpoint"
	"github.com/example/chainbadge/internal/evm"
	"github.com/example/chainbadge/internal/query"
	"github.com/example/chainbadge/internal/units"
)

var (
	ErrUnsupportedQuery = errors.New("unsupported query")
	ErrNoExplorer       = errors.New("chain has no block explorer")

	ErrChainNotFound        = chainlist.ErrChainNotFound
	ErrDirectoryFetchFailed = chainlist.ErrFetchFailed
	ErrAllEndpointsFailed   = endpoint.ErrAllEndpointsFailed
	ErrDecode               = evm.ErrDecode
	ErrUnderflow            = bitcoin.ErrUnderflow
)

// IsClientError reports whether err was caused by a malformed or unsupported
// request rather than by an upstream failure.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrUnsupportedQuery,
		query.ErrBadSource,
		query.ErrBadChainID,
		query.ErrBadType,
		query.ErrBadAddress,
		query.ErrBadNetwork,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Response is a fetched amount and its metadata.
type Response struct {
	Amount   units.Amount
	Metadata Metadata
}

func (r *Response) Formatted() units.Formatted { return units.Format(r.Amount) }

type EVMFetcher interface {
	NativeBalance(ctx context.Context, chainID *big.Int, addr common.Address) (evm.Result, error)
	ERC20Balance(ctx context.Context, chainID *big.Int, contract, addr common.Address) (evm.Result, error)
}

type BitcoinFetcher interface {
	NativeBalance(ctx context.Context, n bitcoin.Network, address string) (units.Amount, error)
	ScannerLink(n bitcoin.Network, address string) string
}

type Source struct {
	evm    EVMFetcher
	btc    BitcoinFetcher
	chains endpoint.Resolver
}

// New wires the facade. chains is only used for explorer lookups.
func New(e EVMFetcher, b BitcoinFetcher, chains endpoint.Resolver) *Source {
	return &Source{evm: e, btc: b, chains: chains}
}

// Fetch runs q against its data source.
func (s *Source) Fetch(ctx context.Context, q query.Query) (*Response, error) {
	switch q := q.(type) {
	case query.EvmNativeBalance:
		res, err := s.evm.NativeBalance(ctx, q.ChainID, q.Address)
		if err != nil {
			return nil, err
		}
		return &Response{
			Amount:   res.Amount,
			Metadata: EvmMetadata{Chain: res.Chain, Source: EvmSource{Kind: Native, Symbol: res.Symbol}},
		}, nil
	case query.EvmERC20Balance:
		res, err := s.evm.ERC20Balance(ctx, q.ChainID, q.Contract, q.Address)
		if err != nil {
			return nil, err
		}
		contract := q.Contract
		return &Response{
			Amount:   res.Amount,
			Metadata: EvmMetadata{Chain: res.Chain, Source: EvmSource{Kind: ERC20, Symbol: res.Symbol, Contract: &contract}},
		}, nil
	case query.BitcoinNativeBalance:
		amt, err := s.btc.NativeBalance(ctx, q.Network, q.Address)
		if err != nil {
			return nil, err
		}
		return &Response{Amount: amt, Metadata: BitcoinMetadata{Network: q.Network}}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedQuery, "%T", q)
}

// ScannerLink returns a block explorer URL for q. EVM links need the chain
// record but never touch an RPC endpoint.
func (s *Source) ScannerLink(ctx context.Context, q query.Query) (string, error) {
	switch q := q.(type) {
	case query.EvmNativeBalance:
		base, err := s.explorer(ctx, q.ChainID)
		if err != nil {
			return "", err
		}
		return base + "/address/" + q.Address.Hex(), nil
	case query.EvmERC20Balance:
		base, err := s.explorer(ctx, q.ChainID)
		if err != nil {
			return "", err
		}
		return base + "/token/" + q.Contract.Hex() + "?a=" + url.QueryEscape(q.Address.Hex()), nil
	case query.BitcoinNativeBalance:
		return s.btc.ScannerLink(q.Network, q.Address), nil
	}
	return "", errors.Wrapf(ErrUnsupportedQuery, "%T", q)
}

func (s *Source) explorer(ctx context.Context, chainID *big.Int) (string, error) {
	chain, err := s.chains.Chain(ctx, chainID)
	if err != nil {
		return "", err
	}
	ex, ok := chain.Explorer()
	if !ok || ex.URL == "" {
		return "", errors.Wrapf(ErrNoExplorer, "chain %s", chain.Key())
	}
	return strings.TrimRight(ex.URL, "/"), nil
}
