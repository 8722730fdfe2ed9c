package evm

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

const erc20JSON = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// some early tokens (MKR, SAI) return symbol as bytes32
const erc20Bytes32SymbolJSON = `[
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`

var (
	erc20ABI       = mustABI(erc20JSON)
	erc20LegacyABI = mustABI(erc20Bytes32SymbolJSON)
)

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// tokenCalls is one batch of balanceOf, decimals and symbol eth_calls.
type tokenCalls struct {
	balance, decimals, symbol hexutil.Bytes
	elems                     []rpc.BatchElem
}

func newTokenCalls(contract, owner common.Address) (*tokenCalls, error) {
	balData, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	decData, err := erc20ABI.Pack("decimals")
	if err != nil {
		return nil, err
	}
	symData, err := erc20ABI.Pack("symbol")
	if err != nil {
		return nil, err
	}
	tc := &tokenCalls{}
	tc.elems = []rpc.BatchElem{
		{Method: "eth_call", Args: []interface{}{callArgs{To: contract, Data: balData}, "latest"}, Result: &tc.balance},
		{Method: "eth_call", Args: []interface{}{callArgs{To: contract, Data: decData}, "latest"}, Result: &tc.decimals},
		{Method: "eth_call", Args: []interface{}{callArgs{To: contract, Data: symData}, "latest"}, Result: &tc.symbol},
	}
	return tc, nil
}

// err returns the first per-call error of the batch.
func (tc *tokenCalls) err() error {
	for _, e := range tc.elems {
		if e.Error != nil {
			return e.Error
		}
	}
	return nil
}

func (tc *tokenCalls) decode() (*big.Int, uint8, string, error) {
	out, err := erc20ABI.Unpack("balanceOf", tc.balance)
	if err != nil {
		return nil, 0, "", errors.Wrapf(ErrDecode, "balanceOf: %v", err)
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, 0, "", errors.Wrap(ErrDecode, "balanceOf: unexpected type")
	}

	out, err = erc20ABI.Unpack("decimals", tc.decimals)
	if err != nil {
		return nil, 0, "", errors.Wrapf(ErrDecode, "decimals: %v", err)
	}
	dec, ok := out[0].(uint8)
	if !ok {
		return nil, 0, "", errors.Wrap(ErrDecode, "decimals: unexpected type")
	}

	sym, err := decodeSymbol(tc.symbol)
	if err != nil {
		return nil, 0, "", err
	}
	return bal, dec, sym, nil
}

func decodeSymbol(data []byte) (string, error) {
	if out, err := erc20ABI.Unpack("symbol", data); err == nil {
		if s, ok := out[0].(string); ok {
			return s, nil
		}
	}
	out, err := erc20LegacyABI.Unpack("symbol", data)
	if err != nil {
		return "", errors.Wrapf(ErrDecode, "symbol: %v", err)
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return "", errors.Wrap(ErrDecode, "symbol: unexpected type")
	}
	return string(bytes.TrimRight(raw[:], "\x00")), nil
}
