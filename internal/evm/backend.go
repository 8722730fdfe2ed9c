package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the subset of an Ethereum JSON-RPC client the fetchers need.
type Backend interface {
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	BatchCall(ctx context.Context, b []rpc.BatchElem) error
	Close()
}

// Dialer opens a Backend for one endpoint URL.
type Dialer func(ctx context.Context, url string) (Backend, error)

type rpcBackend struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

// Dial is the default Dialer, backed by go-ethereum's rpc and ethclient.
func Dial(ctx context.Context, url string) (Backend, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &rpcBackend{rpc: c, eth: ethclient.NewClient(c)}, nil
}

func (b *rpcBackend) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return b.eth.BalanceAt(ctx, addr, nil)
}

func (b *rpcBackend) BatchCall(ctx context.Context, elems []rpc.BatchElem) error {
	return b.rpc.BatchCallContext(ctx, elems)
}

func (b *rpcBackend) Close() { b.eth.Close() }
