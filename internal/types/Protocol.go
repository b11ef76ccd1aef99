/*

This file contains the per-protocol configuration consumed by the adaptors and the pool assembler.
A ProtocolConfig is loaded once per process and never mutated afterwards.

*/

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrDuplicateAddress = errors.New("address configured in more than one category")

// RateSourceKind selects between protocol-wide constants and live on-chain rates.
type RateSourceKind string

const (
	RateSourceFixed RateSourceKind = "fixed"
	RateSourceLive  RateSourceKind = "live"
)

// RateSource describes where a category's supply/borrow inputs come from.
// SupplyRate and BorrowRate are decimals (0.05 == 5%) and only used for fixed sources.
type RateSource struct {
	Kind       RateSourceKind `yaml:"kind" json:"kind"`
	SupplyRate float64        `yaml:"supplyRate" json:"supply_rate,omitempty"`
	BorrowRate float64        `yaml:"borrowRate" json:"borrow_rate,omitempty"`
}

// FixedRates returns a fixed rate source.
func FixedRates(supplyRate, borrowRate float64) RateSource {
	return RateSource{Kind: RateSourceFixed, SupplyRate: supplyRate, BorrowRate: borrowRate}
}

// LiveRates returns a rate source backed by on-chain rates.
func LiveRates() RateSource {
	return RateSource{Kind: RateSourceLive}
}

// RatioMode selects how the leverage loop ratio is derived from raw market state.
type RatioMode string

const (
	RatioUtilization RatioMode = "utilization" // TotalLiabilities / TotalAssets
	RatioLtv         RatioMode = "ltv"         // UtilizationOrLtv / 10^RatioDecimals
)

// TvlConvention selects what tvlUsd means for a protocol.
type TvlConvention string

const (
	TvlTotalSupply TvlConvention = "total_supply" // tvl = total supplied
	TvlNetDeposits TvlConvention = "net_deposits" // tvl = supplied - borrowed
)

// LtvSource selects what the output ltv field reports.
type LtvSource string

const (
	LtvFromRatio LtvSource = "ratio" // the clamped loop ratio
	LtvFromRisk  LtvSource = "risk"  // RiskLtvRaw / 10^LtvDecimals
	LtvNone      LtvSource = "none"
)

// CategoryConfig holds the rate source and address set of a single market category.
type CategoryConfig struct {
	Rates     RateSource `yaml:"rates"`
	PoolMeta  string     `yaml:"poolMeta"`
	Addresses []string   `yaml:"addresses"`
}

// MarketEntry is a statically configured market for protocols without an on-chain registry.
type MarketEntry struct {
	ID        string `yaml:"id"`
	URLSuffix string `yaml:"urlSuffix"`
}

// ProtocolConfig holds everything needed to normalize one protocol's markets.
type ProtocolConfig struct {
	Project       string                            `yaml:"project"`
	Adaptor       string                            `yaml:"adaptor"`
	Chain         string                            `yaml:"chain"`
	URL           string                            `yaml:"url"`
	Depth         int                               `yaml:"depth"`
	MaxRatio      float64                           `yaml:"maxRatio"`
	RatioMode     RatioMode                         `yaml:"ratioMode"`
	RatioDecimals int                               `yaml:"ratioDecimals"`
	RateDecimals  int                               `yaml:"rateDecimals"`
	LtvSource     LtvSource                         `yaml:"ltvSource"`
	LtvDecimals   int                               `yaml:"ltvDecimals"`
	Tvl           TvlConvention                     `yaml:"tvl"`
	Borrowable    bool                              `yaml:"borrowable"`
	Contracts     map[string]string                 `yaml:"contracts"`
	Markets       []MarketEntry                     `yaml:"markets"`
	Categories    map[MarketCategory]CategoryConfig `yaml:"categories"`

	// Classification is built from Categories when the configuration is loaded.
	Classification ClassificationTable `yaml:"-"`
}

// Contract returns the configured address for a named contract role.
func (p ProtocolConfig) Contract(role string) (string, error) {
	address, ok := p.Contracts[role]
	if !ok || strings.TrimSpace(address) == "" {
		return "", fmt.Errorf("protocol %s has no %q contract configured", p.Project, role)
	}
	return address, nil
}

// ClassificationTable maps a lowercase asset address to its category.
type ClassificationTable map[string]MarketCategory

// NewClassificationTable builds the lookup table for a protocol's category address sets.
// An address listed under two categories is rejected.
func NewClassificationTable(categories map[MarketCategory]CategoryConfig) (ClassificationTable, error) {
	names := make([]string, 0, len(categories))
	for category := range categories {
		names = append(names, string(category))
	}
	sort.Strings(names)

	table := make(ClassificationTable)
	for _, name := range names {
		category := MarketCategory(name)
		for _, address := range categories[category].Addresses {
			key := strings.ToLower(strings.TrimSpace(address))
			if key == "" {
				continue
			}
			if existing, ok := table[key]; ok && existing != category {
				return nil, fmt.Errorf("%w: %s is in %s and %s", ErrDuplicateAddress, key, existing, category)
			}
			table[key] = category
		}
	}
	return table, nil
}

// Classify looks up the category of an asset address. Lookup is case-insensitive.
func (t ClassificationTable) Classify(address string) (MarketCategory, bool) {
	category, ok := t[strings.ToLower(strings.TrimSpace(address))]
	return category, ok
}
