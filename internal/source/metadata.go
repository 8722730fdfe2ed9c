package source

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/example/chainbadge/internal/bitcoin"
	"github.com/example/chainbadge/internal/chainlist"
)

// Metadata describes where an amount came from, for labelling.
type Metadata interface {
	Symbol() string
	Label() string
	Icon() string
}

type TokenKind string

const (
	Native TokenKind = "native"
	ERC20  TokenKind = "erc20"
)

type EvmSource struct {
	Kind     TokenKind
	Symbol   string
	Contract *common.Address // nil for Native
}

type EvmMetadata struct {
	Chain  *chainlist.Chain
	Source EvmSource
}

func (m EvmMetadata) Symbol() string { return m.Source.Symbol }
func (m EvmMetadata) Label() string  { return m.Chain.Name }

// Icon is the chain icon for native balances. Tokens have no icon source.
func (m EvmMetadata) Icon() string {
	if m.Source.Kind == ERC20 {
		return ""
	}
	return m.Chain.Icon
}

type BitcoinMetadata struct {
	Network bitcoin.Network
}

func (BitcoinMetadata) Symbol() string { return bitcoin.Symbol }
func (BitcoinMetadata) Label() string  { return "Bitcoin" }
func (BitcoinMetadata) Icon() string   { return "bitcoin" }
