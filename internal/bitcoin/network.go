package bitcoin

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
)

type Network int

const (
	Mainnet Network = iota
	Testnet
	Signet
)

var (
	ErrUnknownNetwork = errors.New("bitcoin: unknown network")
	ErrInvalidAddress = errors.New("bitcoin: invalid address")
)

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Signet:
		return "signet"
	default:
		return "unknown"
	}
}

// MarshalText lets Network appear by name in JSON.
func (n Network) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// ParseNetwork accepts mainnet, testnet or signet, case-insensitively.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(s) {
	case "mainnet":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	case "signet":
		return Signet, nil
	}
	return 0, errors.Wrapf(ErrUnknownNetwork, "%q", s)
}

func (n Network) params() *chaincfg.Params {
	switch n {
	case Testnet:
		return &chaincfg.TestNet3Params
	case Signet:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// ValidateAddress checks that address decodes and belongs to network.
func ValidateAddress(n Network, address string) error {
	p := n.params()
	a, err := btcutil.DecodeAddress(address, p)
	if err != nil {
		return errors.Wrapf(ErrInvalidAddress, "%s: %v", address, err)
	}
	if !a.IsForNet(p) {
		return errors.Wrapf(ErrInvalidAddress, "%s: not a %s address", address, n)
	}
	return nil
}
