// Package units renders fixed-point on-chain quantities as decimal strings.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// tinyDigits is the number of fractional digits kept by the tiny format.
const tinyDigits = 4

// Amount is a raw integer value paired with the number of decimal places it carries.
type Amount struct {
	Value    *big.Int
	Decimals uint8
}

// NewAmount builds an Amount, treating a nil value as zero.
func NewAmount(v *big.Int, decimals uint8) Amount {
	if v == nil {
		v = new(big.Int)
	}
	return Amount{Value: v, Decimals: decimals}
}

// Formatted holds the full and the compact rendering of an Amount.
type Formatted struct {
	Full string
	Tiny string
}

func (a Amount) String() string { return Format(a).Full }

// Format renders a. It never panics: if formatting fails the raw integer is
// returned in both fields.
func Format(a Amount) (out Formatted) {
	raw := "0"
	if a.Value != nil {
		raw = a.Value.String()
	}
	defer func() {
		if r := recover(); r != nil {
			out = Formatted{Full: raw, Tiny: raw}
		}
	}()
	if a.Value == nil {
		return Formatted{Full: raw, Tiny: raw}
	}

	full := decimal.NewFromBigInt(a.Value, -int32(a.Decimals)).String()
	return Formatted{Full: full, Tiny: tiny(a.Value, full)}
}

// tiny truncates full to at most four fractional digits. A nonzero value that
// truncates to zero is shown as "~0".
func tiny(v *big.Int, full string) string {
	intPart, frac, ok := strings.Cut(full, ".")
	if !ok {
		return intPart
	}
	if len(frac) > tinyDigits {
		frac = frac[:tinyDigits]
	}
	frac = strings.TrimRight(frac, "0")
	switch {
	case frac == "" && intPart == "0" && v.Sign() != 0:
		return "~0"
	case frac == "":
		return intPart
	default:
		return intPart + "." + frac
	}
}

// Parse is the inverse of Format(...).Full: it reads a decimal string and
// scales it back to a raw integer with the given number of decimals.
func Parse(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", s)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("parse %q: negative amount", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("parse %q: more than %d fractional digits", s, decimals)
	}
	return scaled.BigInt(), nil
}
