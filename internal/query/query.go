// Package query parses balance query paths such as
//
//	evm/1/balance/0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
//	evm/1/erc20_balance/0xdAC17F958D2ee523a2206206994597C13D831ec7/0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
//	bitcoin/mainnet/balance/bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4
package query

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/example/chainbadge/internal/bitcoin"
)

var (
	ErrBadSource  = errors.New("query: unknown source")
	ErrBadChainID = errors.New("query: bad chain id")
	ErrBadType    = errors.New("query: bad query type")
	ErrBadAddress = errors.New("query: bad address")
	ErrBadNetwork = errors.New("query: bad network")
)

// Query is one of EvmNativeBalance, EvmERC20Balance or BitcoinNativeBalance.
type Query interface {
	// Key is a canonical form, equal for equivalent queries.
	Key() string
	isQuery()
}

type EvmNativeBalance struct {
	ChainID *big.Int
	Address common.Address
}

type EvmERC20Balance struct {
	ChainID  *big.Int
	Contract common.Address
	Address  common.Address
}

type BitcoinNativeBalance struct {
	Network bitcoin.Network
	Address string
}

func (EvmNativeBalance) isQuery()     {}
func (EvmERC20Balance) isQuery()      {}
func (BitcoinNativeBalance) isQuery() {}

func (q EvmNativeBalance) Key() string {
	return fmt.Sprintf("evm/%s/balance/%s", q.ChainID, strings.ToLower(q.Address.Hex()))
}

func (q EvmERC20Balance) Key() string {
	return fmt.Sprintf("evm/%s/erc20_balance/%s/%s", q.ChainID,
		strings.ToLower(q.Contract.Hex()), strings.ToLower(q.Address.Hex()))
}

func (q BitcoinNativeBalance) Key() string {
	return fmt.Sprintf("bitcoin/%s/balance/%s", q.Network, q.Address)
}

// Parse turns a slash separated path into a Query. Leading and trailing
// slashes are ignored; source and type tokens are case-insensitive.
func Parse(path string) (Query, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch strings.ToLower(parts[0]) {
	case "evm":
		return parseEVM(parts[1:])
	case "bitcoin":
		return parseBitcoin(parts[1:])
	}
	return nil, errors.Wrapf(ErrBadSource, "%q", parts[0])
}

func parseEVM(parts []string) (Query, error) {
	if len(parts) == 0 {
		return nil, ErrBadChainID
	}
	id, err := ParseUint256(parts[0])
	if err != nil {
		return nil, errors.Wrapf(ErrBadChainID, "%q: %v", parts[0], err)
	}
	if len(parts) < 2 {
		return nil, ErrBadType
	}
	rest := parts[2:]

	switch strings.ToLower(parts[1]) {
	case "balance":
		if len(rest) != 1 {
			return nil, errors.Wrap(ErrBadAddress, "want one address")
		}
		addr, err := parseAddress(rest[0])
		if err != nil {
			return nil, err
		}
		return EvmNativeBalance{ChainID: id, Address: addr}, nil
	case "erc20_balance":
		if len(rest) != 2 {
			return nil, errors.Wrap(ErrBadAddress, "want contract and owner addresses")
		}
		contract, err := parseAddress(rest[0])
		if err != nil {
			return nil, err
		}
		addr, err := parseAddress(rest[1])
		if err != nil {
			return nil, err
		}
		return EvmERC20Balance{ChainID: id, Contract: contract, Address: addr}, nil
	}
	return nil, errors.Wrapf(ErrBadType, "%q", parts[1])
}

func parseBitcoin(parts []string) (Query, error) {
	if len(parts) == 0 {
		return nil, ErrBadNetwork
	}
	n, err := bitcoin.ParseNetwork(parts[0])
	if err != nil {
		return nil, errors.Wrap(ErrBadNetwork, err.Error())
	}
	if len(parts) < 2 || strings.ToLower(parts[1]) != "balance" {
		return nil, ErrBadType
	}
	if len(parts) != 3 {
		return nil, errors.Wrap(ErrBadAddress, "want one address")
	}
	if err := bitcoin.ValidateAddress(n, parts[2]); err != nil {
		return nil, errors.Wrap(ErrBadAddress, err.Error())
	}
	return BitcoinNativeBalance{Network: n, Address: parts[2]}, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(ErrBadAddress, "%q", s)
	}
	return common.HexToAddress(s), nil
}
