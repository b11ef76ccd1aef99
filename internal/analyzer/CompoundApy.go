package analyzer

import (
	"math"
)

const (
	// DefaultLoopDepth is the number of recursive deposit/borrow loops modelled by CompoundApy.
	DefaultLoopDepth = 5
	// DefaultRatioCeiling keeps the loop ratio strictly below 1.
	DefaultRatioCeiling = 0.9999
	// PercentageMultiplier converts a decimal rate into a percentage.
	PercentageMultiplier = 100
)

// PowerSum returns x^start + x^(start+1) + ... + x^end. An empty range sums to 0.
func PowerSum(start, end int, x float64) float64 {
	var sum float64
	for i := start; i <= end; i++ {
		sum += math.Pow(x, float64(i))
	}
	return sum
}

// CompoundApy returns the effective supply APY, in percent, of a position that is
// deposited, borrowed against at the given ratio and redeposited up to depth times.
//
// With S0 = sum(ratio^i, i=0..depth) and S1 = sum(ratio^i, i=1..depth) the result is
// (supplyRate*S0 - borrowRate*S1) * 100. Rates are decimals (0.05 == 5%).
// The ratio must already be clamped into [0, 1). A negative depth is treated as 0.
func CompoundApy(supplyRate, borrowRate, ratio float64, depth int) float64 {
	if depth < 0 {
		depth = 0
	}
	s0 := PowerSum(0, depth, ratio)
	s1 := PowerSum(1, depth, ratio)
	return (supplyRate*s0 - borrowRate*s1) * PercentageMultiplier
}

// ClampRatio maps r into [0, ceiling]. NaN and negative ratios become 0.
func ClampRatio(r, ceiling float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > ceiling {
		return ceiling
	}
	return r
}
