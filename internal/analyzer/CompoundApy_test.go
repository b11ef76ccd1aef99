package analyzer

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestPowerSum(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		x          float64
		want       float64
	}{
		{name: "half from zero", start: 0, end: 5, x: 0.5, want: 1.96875},
		{name: "half from one", start: 1, end: 5, x: 0.5, want: 0.96875},
		{name: "zero ratio includes x^0", start: 0, end: 5, x: 0, want: 1},
		{name: "zero ratio from one", start: 1, end: 5, x: 0, want: 0},
		{name: "empty range", start: 1, end: 0, x: 0.7, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PowerSum(tt.start, tt.end, tt.x))
		})
	}
}

func TestCompoundApyConcreteScenario(t *testing.T) {
	apy := CompoundApy(0.05, 0.08, 0.5, 5)
	require.InDelta(t, 2.09375, apy, 1e-12)
}

func TestCompoundApyZeroRates(t *testing.T) {
	for _, ratio := range []float64{0, 0.1, 0.5, 0.9, 0.9999} {
		for depth := 0; depth <= 8; depth++ {
			require.Zero(t, CompoundApy(0, 0, ratio, depth))
		}
	}
}

func TestCompoundApyWithoutLeverage(t *testing.T) {
	for _, supply := range []float64{0, 0.0123, 0.05, 0.63, 1.7} {
		for _, depth := range []int{-3, 0, 1, 5, 20} {
			require.Equal(t, supply*100, CompoundApy(supply, 0.99, 0, depth))
		}
	}
}

func TestCompoundApyZeroDepthIgnoresBorrowRate(t *testing.T) {
	require.Equal(t, 0.05*100, CompoundApy(0.05, 0.5, 0.8, 0))
}

func TestCompoundApyMonotonic(t *testing.T) {
	ratios := []float64{0.01, 0.25, 0.5, 0.75, 0.9999}
	for _, ratio := range ratios {
		// Decreasing in borrow rate.
		prev := math.Inf(1)
		for _, borrow := range []float64{0, 0.01, 0.05, 0.1, 0.5} {
			apy := CompoundApy(0.04, borrow, ratio, DefaultLoopDepth)
			require.Less(t, apy, prev)
			prev = apy
		}

		// Increasing in supply rate.
		prev = math.Inf(-1)
		for _, supply := range []float64{0, 0.01, 0.05, 0.1, 0.5} {
			apy := CompoundApy(supply, 0.06, ratio, DefaultLoopDepth)
			require.Greater(t, apy, prev)
			prev = apy
		}
	}
}

func TestCompoundApyCanBeNegative(t *testing.T) {
	// Stablecoin markets run with fixed 0.63/0.99 inputs; heavy looping turns the yield negative.
	require.Less(t, CompoundApy(0.63, 0.99, 0.9, DefaultLoopDepth), 0.0)
}

func TestClampRatio(t *testing.T) {
	require.Equal(t, 0.0, ClampRatio(-0.2, DefaultRatioCeiling))
	require.Equal(t, 0.0, ClampRatio(math.NaN(), DefaultRatioCeiling))
	require.Equal(t, 0.42, ClampRatio(0.42, DefaultRatioCeiling))
	require.Equal(t, DefaultRatioCeiling, ClampRatio(1, DefaultRatioCeiling))
	require.Equal(t, DefaultRatioCeiling, ClampRatio(math.Inf(1), DefaultRatioCeiling))
}

func TestUtilization(t *testing.T) {
	require.Equal(t, 0.25, Utilization(sdkmath.NewInt(250), sdkmath.NewInt(1000)))
	require.Zero(t, Utilization(sdkmath.NewInt(250), sdkmath.ZeroInt()))
	require.Zero(t, Utilization(sdkmath.Int{}, sdkmath.NewInt(1000)))
	require.Zero(t, Utilization(sdkmath.NewInt(5), sdkmath.Int{}))

	// Same scale, 18 decimals.
	assets, ok := sdkmath.NewIntFromString("2000000000000000000000")
	require.True(t, ok)
	borrows, ok := sdkmath.NewIntFromString("1500000000000000000000")
	require.True(t, ok)
	require.Equal(t, 0.75, Utilization(borrows, assets))
}
