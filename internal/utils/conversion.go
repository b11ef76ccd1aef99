/*
This file contains common utility functions for converting raw on-chain fixed-point values
into plain decimals. On-chain rates, indexes and balances arrive as integers scaled by a
protocol-specific power of ten (1e16, 1e18, 1e27 or the token's 10^decimals).
*/

package utils

import (
	"math"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Common scale exponents.
const (
	PercentWadDecimals = 16 // rates expressed as a percentage of 1e18
	WadDecimals        = 18
	RayDecimals        = 27
)

// Normalize converts a raw fixed-point Int into a float64 by dividing by 10^decimals.
// A nil or zero amount normalizes to 0.
func Normalize(raw sdkmath.Int, decimals int) float64 {
	if raw.IsNil() || raw.IsZero() {
		return 0
	}
	return NormalizeBig(raw.BigInt(), decimals)
}

// NormalizeBig is Normalize for a *big.Int. The quotient is computed exactly and rounded once.
func NormalizeBig(raw *big.Int, decimals int) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}
	value, _ := decimal.NewFromBigInt(raw, -int32(decimals)).Float64()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// NormalizeString is Normalize for a big-integer-safe numeric string.
// Empty or unparseable input normalizes to 0.
func NormalizeString(raw string, decimals int) float64 {
	value, ok := ParseInt(raw)
	if !ok {
		return 0
	}
	return Normalize(value, decimals)
}

// ParseInt parses a decimal or 0x-prefixed hex integer string.
func ParseInt(raw string) (sdkmath.Int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sdkmath.ZeroInt(), false
	}

	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw = raw[2:]
		base = 16
	}

	value, ok := new(big.Int).SetString(raw, base)
	if !ok || value.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.ZeroInt(), false
	}
	return sdkmath.NewIntFromBigInt(value), true
}

// IntFromAny converts a decoded ABI value into an Int.
// Unsupported or oversized values convert to zero.
func IntFromAny(v any) sdkmath.Int {
	switch value := v.(type) {
	case sdkmath.Int:
		if value.IsNil() {
			return sdkmath.ZeroInt()
		}
		return value
	case *big.Int:
		if value == nil || value.BitLen() > sdkmath.MaxBitLen {
			return sdkmath.ZeroInt()
		}
		return sdkmath.NewIntFromBigInt(value)
	case big.Int:
		return IntFromAny(&value)
	case uint8:
		return sdkmath.NewIntFromUint64(uint64(value))
	case uint16:
		return sdkmath.NewIntFromUint64(uint64(value))
	case uint32:
		return sdkmath.NewIntFromUint64(uint64(value))
	case uint64:
		return sdkmath.NewIntFromUint64(value)
	case int:
		return sdkmath.NewInt(int64(value))
	case int64:
		return sdkmath.NewInt(value)
	case string:
		parsed, ok := ParseInt(value)
		if !ok {
			return sdkmath.ZeroInt()
		}
		return parsed
	default:
		return sdkmath.ZeroInt()
	}
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
