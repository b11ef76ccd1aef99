/*
This file contains the pool assembler.

For one protocol it discovers markets, fetches each market's raw state concurrently,
classifies the asset, resolves the category's rate source, compounds the leveraged supply
APY, prices the asset-denominated totals in one batched lookup and emits normalized pools.

A failure on one market is logged and recorded but never stops the others. Nothing past
Assemble returns an error: the caller gets the pools that could be built.
*/

package assembler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yieldindex/lendnorm/internal/analyzer"
	"github.com/yieldindex/lendnorm/internal/datafetcher"
	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
	"github.com/yieldindex/lendnorm/internal/utils"
)

const (
	DefaultMaxConcurrency = 8
	UnknownSymbol         = "Unknown"
)

// MarketRef identifies one market returned by a protocol registry.
// Data carries adaptor-private state from discovery to Fetch.
type MarketRef struct {
	ID   string
	Data any
}

// MarketSource is implemented by every protocol adaptor.
type MarketSource interface {
	Discover(ctx context.Context) ([]MarketRef, error)
	Fetch(ctx context.Context, ref MarketRef) (types.RawMarketState, error)
}

// Recorder receives one outcome per market per pass.
type Recorder interface {
	RecordMarket(project string, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordMarket(string, string) {}

// Assembler builds normalized pools for a single protocol.
type Assembler struct {
	protocol       types.ProtocolConfig
	source         MarketSource
	prices         datafetcher.PriceFeed
	recorder       Recorder
	maxConcurrency int
	logger         zerolog.Logger
}

// New creates an assembler. A nil recorder discards outcomes; a non-positive
// maxConcurrency falls back to DefaultMaxConcurrency.
func New(protocol types.ProtocolConfig, source MarketSource, prices datafetcher.PriceFeed, recorder Recorder, maxConcurrency int) *Assembler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Assembler{
		protocol:       protocol,
		source:         source,
		prices:         prices,
		recorder:       recorder,
		maxConcurrency: maxConcurrency,
		logger:         logger.GetForComponent("assembler").With().Str("project", protocol.Project).Logger(),
	}
}

// Project returns the project name of the protocol this assembler serves.
func (a *Assembler) Project() string {
	return a.protocol.Project
}

// Assemble runs one pass and returns the emitted pools in discovery order.
func (a *Assembler) Assemble(ctx context.Context) []types.NormalizedPool {
	refs, err := a.source.Discover(ctx)
	if err != nil {
		a.logger.Error().
			Err(fmt.Errorf("%w: %w", ErrBatchFailure, err)).
			Msg("Market discovery failed - returning no pools")
		return []types.NormalizedPool{}
	}

	a.logger.Debug().Int("markets", len(refs)).Msg("Discovered markets")

	markets := make([]*market, len(refs))
	for i, ref := range refs {
		markets[i] = &market{ref: ref, state: StateDiscovered}
	}

	var g errgroup.Group
	g.SetLimit(a.maxConcurrency)
	for _, m := range markets {
		m := m
		g.Go(func() error {
			a.fetchAndRate(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	a.price(ctx, markets)

	pools := make([]types.NormalizedPool, 0, len(markets))
	var emitted, skipped, failed int
	for _, m := range markets {
		if m.state == StatePriced {
			a.emit(m)
		}

		switch m.state {
		case StateEmitted:
			emitted++
			pools = append(pools, m.pool)
		case StateSkipped:
			skipped++
			a.logger.Debug().
				Str("marketId", m.id()).
				Str("asset", m.raw.AssetAddress).
				Msg("Asset not classified - skipping market")
		case StateFailed:
			failed++
			a.logger.Warn().
				Err(m.err).
				Str("marketId", m.id()).
				Str("asset", m.raw.AssetAddress).
				Msg("Market failed - excluded from output")
		}
		a.recorder.RecordMarket(a.protocol.Project, m.state.String())
	}

	a.logger.Info().
		Int("discovered", len(markets)).
		Int("emitted", emitted).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("Assembly pass completed")

	return pools
}

// fetchAndRate moves a market from DISCOVERED to RATES_FETCHED, or to a terminal state.
func (a *Assembler) fetchAndRate(ctx context.Context, m *market) {
	raw, err := a.source.Fetch(ctx, m.ref)
	if err != nil {
		m.fail(fmt.Errorf("%w: fetch %s: %w", ErrTransport, m.ref.ID, err))
		return
	}
	if raw.MarketID == "" {
		raw.MarketID = m.ref.ID
	}
	m.raw = raw

	category, ok := a.protocol.Classification.Classify(raw.AssetAddress)
	if !ok {
		m.state = StateSkipped
		m.err = ErrClassificationMiss
		return
	}
	m.category = category
	m.state = StateClassified

	categoryConfig, ok := a.protocol.Categories[category]
	if !ok {
		m.fail(fmt.Errorf("%w: category %s has no configuration", ErrClassificationMiss, category))
		return
	}

	liveSupply := utils.Normalize(raw.SupplyRateRaw, a.protocol.RateDecimals)
	liveBorrow := utils.Normalize(raw.BorrowRateRaw, a.protocol.RateDecimals)

	supplyRate, borrowRate := liveSupply, liveBorrow
	if categoryConfig.Rates.Kind == types.RateSourceFixed {
		supplyRate, borrowRate = categoryConfig.Rates.SupplyRate, categoryConfig.Rates.BorrowRate
	}

	m.ratio = analyzer.ClampRatio(a.loopRatio(raw), a.protocol.MaxRatio)
	m.apyBase = analyzer.CompoundApy(supplyRate, borrowRate, m.ratio, a.protocol.Depth)
	m.apyBaseBorrow = liveBorrow * analyzer.PercentageMultiplier
	m.state = StateRatesFetched

	a.logger.Debug().
		Str("marketId", raw.MarketID).
		Str("category", string(category)).
		Str("rateSource", string(categoryConfig.Rates.Kind)).
		Float64("supplyRate", supplyRate).
		Float64("borrowRate", borrowRate).
		Float64("ratio", m.ratio).
		Float64("apyBase", m.apyBase).
		Msg("Compounded market yield")
}

func (a *Assembler) loopRatio(raw types.RawMarketState) float64 {
	if a.protocol.RatioMode == types.RatioLtv {
		return utils.Normalize(raw.UtilizationOrLtv, a.protocol.RatioDecimals)
	}
	return analyzer.Utilization(raw.TotalLiabilities, raw.TotalAssets)
}

// price resolves USD prices for every RATES_FETCHED market with a single feed call.
func (a *Assembler) price(ctx context.Context, markets []*market) {
	var addresses []string
	for _, m := range markets {
		if m.state == StateRatesFetched {
			addresses = append(addresses, m.raw.AssetAddress)
		}
	}
	if len(addresses) == 0 {
		return
	}

	prices, err := a.prices.GetCurrentPrices(ctx, a.protocol.Chain, addresses)
	for _, m := range markets {
		if m.state != StateRatesFetched {
			continue
		}
		if err != nil {
			m.fail(fmt.Errorf("%w: price lookup: %w", ErrTransport, err))
			continue
		}
		price, ok := prices[datafetcher.PriceKey(a.protocol.Chain, m.raw.AssetAddress)]
		if !ok || !utils.IsFinite(price.Price) || price.Price <= 0 {
			m.fail(fmt.Errorf("%w: %s", ErrPriceUnavailable, m.raw.AssetAddress))
			continue
		}
		m.price = price
		m.state = StatePriced
	}
}

// emit builds the normalized record for a PRICED market.
func (a *Assembler) emit(m *market) {
	raw := m.raw

	decimals := raw.AssetDecimals
	if decimals <= 0 {
		decimals = m.price.Decimals
	}
	totalSupplyUsd := utils.Normalize(raw.TotalAssets, decimals) * m.price.Price
	totalBorrowUsd := utils.Normalize(raw.TotalLiabilities, decimals) * m.price.Price

	tvlUsd := totalSupplyUsd
	if a.protocol.Tvl == types.TvlNetDeposits {
		tvlUsd = totalSupplyUsd - totalBorrowUsd
	}
	tvlUsd = math.Max(tvlUsd, 0)

	var ltv *float64
	riskLtv := utils.Normalize(raw.RiskLtvRaw, a.protocol.LtvDecimals)
	switch a.protocol.LtvSource {
	case types.LtvFromRatio:
		ratio := m.ratio
		ltv = &ratio
	case types.LtvFromRisk:
		if riskLtv != 0 {
			ltv = &riskLtv
		}
	}

	borrowable := a.protocol.Borrowable
	switch {
	case raw.Borrowable != nil:
		borrowable = *raw.Borrowable
	case a.protocol.LtvSource == types.LtvFromRisk:
		borrowable = riskLtv != 0
	}

	symbol := raw.AssetSymbol
	if symbol == "" {
		symbol = m.price.Symbol
	}
	if symbol == "" {
		symbol = UnknownSymbol
	}

	var poolMeta *string
	if meta := a.protocol.Categories[m.category].PoolMeta; meta != "" {
		poolMeta = &meta
	}

	pool := types.NormalizedPool{
		PoolID:           strings.ToLower(fmt.Sprintf("%s-%s", raw.MarketID, a.protocol.Chain)),
		Chain:            a.protocol.Chain,
		Project:          a.protocol.Project,
		Symbol:           symbol,
		TvlUsd:           tvlUsd,
		ApyBase:          m.apyBase,
		ApyBaseBorrow:    m.apyBaseBorrow,
		TotalSupplyUsd:   totalSupplyUsd,
		TotalBorrowUsd:   totalBorrowUsd,
		UnderlyingTokens: []string{raw.AssetAddress},
		Ltv:              ltv,
		Borrowable:       borrowable,
		URL:              poolURL(a.protocol.URL, raw.URLSuffix),
		PoolMeta:         poolMeta,
	}

	if err := validateFinalPool(pool); err != nil {
		m.fail(err)
		return
	}
	m.pool = pool
	m.state = StateEmitted
}

func poolURL(base, suffix string) string {
	if suffix == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(suffix, "/")
}

// validateFinalPool rejects records that would carry NaN or infinite numbers to the index.
func validateFinalPool(pool types.NormalizedPool) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"tvlUsd", pool.TvlUsd},
		{"apyBase", pool.ApyBase},
		{"apyBaseBorrow", pool.ApyBaseBorrow},
		{"totalSupplyUsd", pool.TotalSupplyUsd},
		{"totalBorrowUsd", pool.TotalBorrowUsd},
	}
	for _, field := range fields {
		if !utils.IsFinite(field.value) {
			return fmt.Errorf("%w: %s %s is not finite", ErrInvalidPool, pool.PoolID, field.name)
		}
	}
	if pool.Ltv != nil && !utils.IsFinite(*pool.Ltv) {
		return fmt.Errorf("%w: %s ltv is not finite", ErrInvalidPool, pool.PoolID)
	}
	if pool.TvlUsd < 0 {
		return fmt.Errorf("%w: %s has negative TVL: %f", ErrInvalidPool, pool.PoolID, pool.TvlUsd)
	}
	if len(pool.UnderlyingTokens) == 0 || pool.UnderlyingTokens[0] == "" {
		return fmt.Errorf("%w: %s has no underlying token", ErrInvalidPool, pool.PoolID)
	}
	return nil
}
