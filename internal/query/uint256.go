package query

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var (
	ErrInvalidUint256    = errors.New("invalid uint256 string")
	ErrInvalidUint256Hex = errors.New("invalid uint256 hex")
)

// ParseUint256 parses a base-10 or 0x-prefixed base-16 unsigned integer that
// fits in 256 bits. Leading zeros are allowed.
func ParseUint256(s string) (*big.Int, error) {
	if strings.HasPrefix(s, "0x") {
		h := strings.TrimPrefix(s, "0x")
		if strings.TrimSpace(h) == "" {
			return nil, ErrInvalidUint256Hex
		}
		v, ok := new(big.Int).SetString(h, 16)
		if !ok || v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
			return nil, ErrInvalidUint256Hex
		}
		return v, nil
	}

	if strings.TrimSpace(s) == "" {
		return nil, ErrInvalidUint256
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
		return nil, ErrInvalidUint256
	}
	return v, nil
}
