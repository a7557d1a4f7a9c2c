package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseBigInt parses a base-10 or 0x-prefixed hexadecimal integer.
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")

	var (
		n  *big.Int
		ok bool
	)
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		n, ok = new(big.Int).SetString(body[2:], 16)
	} else {
		n, ok = new(big.Int).SetString(body, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// ParseUnits converts a decimal amount such as "100" or "0.5" into base units
// with the given number of decimals. Excess fractional digits are an error.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") {
		return ParseBigInt(s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))
	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

// FormatUnits renders raw base units as a decimal string, trimming trailing
// zeros in the fractional part.
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	if decimals <= 0 {
		return raw.String()
	}
	neg := raw.Sign() < 0
	digits := new(big.Int).Abs(raw).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// WeiToETH formats a wei amount with 18 decimals.
func WeiToETH(wei *big.Int) string {
	return FormatUnits(wei, 18)
}
