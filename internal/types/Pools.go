/*

This file contains the per-market raw snapshot read from chain and the normalized
pool record emitted to the yield index.

*/

package types

import (
	"cosmossdk.io/math"
)

// MarketCategory selects which rate inputs feed the leverage compounder for a market.
type MarketCategory string

const (
	CategoryStable    MarketCategory = "STABLE"
	CategoryBaseAsset MarketCategory = "BASE_ASSET"
	CategoryGeneric   MarketCategory = "GENERIC"
)

// Valid reports whether c is one of the known categories.
func (c MarketCategory) Valid() bool {
	switch c {
	case CategoryStable, CategoryBaseAsset, CategoryGeneric:
		return true
	}
	return false
}

// RawMarketState is a read-only snapshot of one lending market, rebuilt on every pass.
type RawMarketState struct {
	MarketID         string   // Registry identifier, e.g. asset address or "poolId/asset"
	AssetAddress     string   // Lowercase hex address of the underlying token
	AssetSymbol      string   // e.g. "USDE"
	AssetDecimals    int      // Token decimals used to scale TotalAssets/TotalLiabilities
	TotalAssets      math.Int // Total supplied, in token base units
	TotalLiabilities math.Int // Total borrowed, in token base units
	UtilizationOrLtv math.Int // Raw ratio input for protocols that report one directly
	SupplyRateRaw    math.Int // Supply rate scaled by the protocol rate base
	BorrowRateRaw    math.Int // Borrow rate scaled by the protocol rate base
	RiskLtvRaw       math.Int // Risk-engine LTV, zero or nil when unavailable
	Borrowable       *bool    // Protocol-reported borrow flag, nil when not reported
	URLSuffix        string   // Appended to the protocol url for this market
}

// NormalizedPool is the uniform yield record. Field names follow the yield index wire shape.
type NormalizedPool struct {
	PoolID           string   `json:"pool"`
	Chain            string   `json:"chain"`
	Project          string   `json:"project"`
	Symbol           string   `json:"symbol"`
	TvlUsd           float64  `json:"tvlUsd"`
	ApyBase          float64  `json:"apyBase"`
	ApyBaseBorrow    float64  `json:"apyBaseBorrow"`
	TotalSupplyUsd   float64  `json:"totalSupplyUsd"`
	TotalBorrowUsd   float64  `json:"totalBorrowUsd"`
	UnderlyingTokens []string `json:"underlyingTokens"`
	Ltv              *float64 `json:"ltv"`
	Borrowable       bool     `json:"borrowable"`
	URL              string   `json:"url"`
	PoolMeta         *string  `json:"poolMeta"`
}
