// Package fixedpoint implements the integer fixed-point arithmetic used for
// all on-chain monetary values. USD values carry 30 decimals, token amounts
// carry the token's own decimals, and factors are scaled by 10^30.
//
// Every operation allocates a fresh *big.Int and never mutates its inputs.
// Division truncates toward zero, matching the contracts.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// USDDecimals is the decimal exponent of USD values and prices.
	USDDecimals = 30

	// BasisPointsDivisor is the divisor for values expressed in basis points.
	BasisPointsDivisor = 10000
)

// ErrInvalidNumber is returned when a string is not a base-10 integer.
var ErrInvalidNumber = errors.New("fixedpoint: invalid integer")

var (
	precision = ExpandDecimals(1, USDDecimals)
	bpsDiv    = big.NewInt(BasisPointsDivisor)
)

// Precision returns 10^30.
func Precision() *big.Int {
	return new(big.Int).Set(precision)
}

// BPS returns the basis points divisor as a big integer.
func BPS() *big.Int {
	return new(big.Int).Set(bpsDiv)
}

// Zero returns a new zero value.
func Zero() *big.Int {
	return new(big.Int)
}

// ExpandDecimals returns n * 10^decimals.
func ExpandDecimals(n int64, decimals int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return scale.Mul(scale, big.NewInt(n))
}

// USD returns n whole dollars as a 30-decimal value.
func USD(n int64) *big.Int {
	return ExpandDecimals(n, USDDecimals)
}

// Parse reads a base-10 integer string.
func Parse(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) *big.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// OrZero returns v, or a new zero when v is nil.
func OrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Copy returns a copy of v, preserving nil.
func Copy(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// IsPositive reports whether v is non-nil and greater than zero.
func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// MulDiv returns a * b / c, or nil when c is zero.
func MulDiv(a, b, c *big.Int) *big.Int {
	if c == nil || c.Sign() == 0 {
		return nil
	}
	r := new(big.Int).Mul(a, b)
	return r.Quo(r, c)
}

// ApplyFactor returns value * factor / 10^30.
func ApplyFactor(value, factor *big.Int) *big.Int {
	return MulDiv(value, factor, precision)
}

// ApplyBPS returns value * bps / 10000.
func ApplyBPS(value, bps *big.Int) *big.Int {
	return MulDiv(value, bps, bpsDiv)
}

// ToBPS returns numerator * 10000 / denominator, or zero when the
// denominator is zero.
func ToBPS(numerator, denominator *big.Int) *big.Int {
	r := MulDiv(numerator, bpsDiv, denominator)
	if r == nil {
		return new(big.Int)
	}
	return r
}

// ConvertToUSD converts a token amount to a 30-decimal USD value.
// Returns nil when either input is missing.
func ConvertToUSD(amount *big.Int, decimals int, price *big.Int) *big.Int {
	if amount == nil || price == nil {
		return nil
	}
	return MulDiv(amount, price, ExpandDecimals(1, decimals))
}

// ConvertToTokenAmount converts a USD value to token units at price.
// Returns nil when the price is missing or not positive.
func ConvertToTokenAmount(usd *big.Int, decimals int, price *big.Int) *big.Int {
	if usd == nil || !IsPositive(price) {
		return nil
	}
	return MulDiv(usd, ExpandDecimals(1, decimals), price)
}

// Min returns the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Abs returns |v|.
func Abs(v *big.Int) *big.Int {
	return new(big.Int).Abs(v)
}
