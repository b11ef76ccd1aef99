package utils

import (
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestNormalizeZero(t *testing.T) {
	for _, decimals := range []int{0, 6, PercentWadDecimals, WadDecimals, RayDecimals} {
		require.Zero(t, Normalize(sdkmath.ZeroInt(), decimals))
		require.Zero(t, Normalize(sdkmath.Int{}, decimals))
		require.Zero(t, NormalizeBig(nil, decimals))
		require.Zero(t, NormalizeString("", decimals))
		require.Zero(t, NormalizeString("not-a-number", decimals))
	}
}

func TestNormalizeExact(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int
		want     float64
	}{
		{name: "percent wad rate", raw: "5000000000000000", decimals: PercentWadDecimals, want: 0.5},
		{name: "wad ltv", raw: "800000000000000000", decimals: WadDecimals, want: 0.8},
		{name: "ray rate", raw: "35000000000000000000000000", decimals: RayDecimals, want: 0.035},
		{name: "six decimal balance", raw: "1234567890", decimals: 6, want: 1234.56789},
		{name: "beyond 2^53", raw: "123456789012345678901234567890", decimals: 18, want: 123456789012.34567890123456789},
		{name: "hex input", raw: "0x0de0b6b3a7640000", decimals: WadDecimals, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeString(tt.raw, tt.decimals))
		})
	}
}

func TestNormalizeMatchesDivision(t *testing.T) {
	for _, raw := range []int64{1, 7, 250, 1 << 40, 9007199254740991} {
		for _, decimals := range []int{0, 1, 2, 3} {
			scale := 1.0
			for i := 0; i < decimals; i++ {
				scale *= 10
			}
			require.Equal(t, float64(raw)/scale, Normalize(sdkmath.NewInt(raw), decimals))
		}
	}
}

func TestParseInt(t *testing.T) {
	value, ok := ParseInt(" 42 ")
	require.True(t, ok)
	require.Equal(t, int64(42), value.Int64())

	_, ok = ParseInt("1.5")
	require.False(t, ok)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 300)
	_, ok = ParseInt(tooBig.String())
	require.False(t, ok)
}

func TestIntFromAny(t *testing.T) {
	require.Equal(t, int64(18), IntFromAny(uint8(18)).Int64())
	require.Equal(t, int64(7500), IntFromAny(big.NewInt(7500)).Int64())
	require.Equal(t, int64(3), IntFromAny("3").Int64())
	require.True(t, IntFromAny(nil).IsZero())
	require.True(t, IntFromAny((*big.Int)(nil)).IsZero())
	require.True(t, IntFromAny(struct{}{}).IsZero())
}
