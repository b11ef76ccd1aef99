package analyzer

import (
	sdkmath "cosmossdk.io/math"
)

// Utilization returns liabilities/assets as a float64. Both values must share a scale.
// Missing or non-positive assets yield 0, as does a quotient that overflows LegacyDec.
func Utilization(liabilities, assets sdkmath.Int) (ratio float64) {
	defer func() {
		if r := recover(); r != nil {
			ratio = 0
		}
	}()

	if assets.IsNil() || !assets.IsPositive() {
		return 0
	}
	if liabilities.IsNil() || !liabilities.IsPositive() {
		return 0
	}

	quotient, err := sdkmath.LegacyNewDecFromInt(liabilities).QuoInt(assets).Float64()
	if err != nil {
		return 0
	}
	return quotient
}
