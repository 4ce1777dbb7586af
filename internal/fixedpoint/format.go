package fixedpoint

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder is rendered in place of values that are not loaded yet.
const Placeholder = "..."

// DefaultTokenDisplayDecimals is the number of fraction digits shown for
// token amounts.
const DefaultTokenDisplayDecimals = 4

// ToDecimal converts a fixed-point integer to a decimal with the given
// number of implied fraction digits.
func ToDecimal(v *big.Int, decimals int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

// FromDecimal converts a decimal into a fixed-point integer with the given
// number of fraction digits, truncating any excess precision.
func FromDecimal(d decimal.Decimal, decimals int) *big.Int {
	return d.Shift(int32(decimals)).Truncate(0).BigInt()
}

// FormatAmount renders v with displayDecimals fraction digits and
// thousands separators.
func FormatAmount(v *big.Int, decimals, displayDecimals int) string {
	if v == nil {
		return Placeholder
	}
	return withThousands(ToDecimal(v, decimals).StringFixed(int32(displayDecimals)))
}

// FormatUSD renders a 30-decimal USD value as "$1,234.56". Negative values
// render as "-$1,234.56".
func FormatUSD(v *big.Int) string {
	if v == nil {
		return Placeholder
	}
	s := FormatAmount(new(big.Int).Abs(v), USDDecimals, 2)
	if v.Sign() < 0 {
		return "-$" + s
	}
	return "$" + s
}

// FormatTokenAmount renders a token amount as "1,234.5678 ETH".
func FormatTokenAmount(v *big.Int, decimals int, symbol string) string {
	if v == nil {
		return Placeholder
	}
	s := FormatAmount(v, decimals, DefaultTokenDisplayDecimals)
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

// FormatBPS renders basis points as a signed percentage, e.g. "-0.15%".
func FormatBPS(bps *big.Int) string {
	if bps == nil {
		return Placeholder
	}
	return ToDecimal(bps, 2).StringFixed(2) + "%"
}

func withThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
