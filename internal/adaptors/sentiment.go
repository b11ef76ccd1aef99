package adaptors

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yieldindex/lendnorm/internal/assembler"
	"github.com/yieldindex/lendnorm/internal/chain"
	"github.com/yieldindex/lendnorm/internal/datafetcher"
	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
)

type sentimentMarket struct {
	poolID    *big.Int
	urlSuffix string
}

// Sentiment reads a fixed set of base pools from the sentiment pool contract, its super
// pool lens and its risk engine.
type Sentiment struct {
	caller     chain.Caller
	tokens     datafetcher.TokenMetadata
	pool       chain.Contract
	lens       chain.Contract
	riskEngine chain.Contract
	markets    []types.MarketEntry
	logger     zerolog.Logger
}

var _ assembler.MarketSource = (*Sentiment)(nil)

// NewSentiment validates the configured pool ids up front so Discover cannot fail.
func NewSentiment(protocol types.ProtocolConfig, caller chain.Caller, tokens datafetcher.TokenMetadata) (*Sentiment, error) {
	pool, err := contract(protocol, "pool", SentimentPoolABI)
	if err != nil {
		return nil, err
	}
	lens, err := contract(protocol, "lens", SentimentLensABI)
	if err != nil {
		return nil, err
	}
	riskEngine, err := contract(protocol, "riskEngine", SentimentRiskEngineABI)
	if err != nil {
		return nil, err
	}
	for _, market := range protocol.Markets {
		if _, ok := new(big.Int).SetString(market.ID, 10); !ok {
			return nil, fmt.Errorf("%w: pool id %q is not a decimal integer", ErrInvalidMarket, market.ID)
		}
	}
	if tokens == nil {
		tokens = datafetcher.NewTokenReader(caller)
	}

	return &Sentiment{
		caller:     caller,
		tokens:     tokens,
		pool:       pool,
		lens:       lens,
		riskEngine: riskEngine,
		markets:    protocol.Markets,
		logger:     logger.GetForComponent("sentiment_adaptor"),
	}, nil
}

func (s *Sentiment) Discover(context.Context) ([]assembler.MarketRef, error) {
	refs := make([]assembler.MarketRef, 0, len(s.markets))
	for _, market := range s.markets {
		poolID, _ := new(big.Int).SetString(market.ID, 10)
		refs = append(refs, assembler.MarketRef{
			ID:   market.ID,
			Data: sentimentMarket{poolID: poolID, urlSuffix: market.URLSuffix},
		})
	}
	return refs, nil
}

// Fetch resolves the pool asset first, then reads metadata, totals, rates and the risk
// LTV concurrently. A failing ltvFor yields a zero LTV rather than a failed market.
func (s *Sentiment) Fetch(ctx context.Context, ref assembler.MarketRef) (types.RawMarketState, error) {
	market, ok := ref.Data.(sentimentMarket)
	if !ok {
		return types.RawMarketState{}, fmt.Errorf("%w: market %s has no pool id", ErrInvalidMarket, ref.ID)
	}

	values, err := s.caller.Call(ctx, s.pool, "getPoolAssetFor", market.poolID)
	if err != nil {
		return types.RawMarketState{}, fmt.Errorf("getPoolAssetFor(%s): %w", ref.ID, err)
	}
	asset, err := chain.AddressOutput(values, 0)
	if err != nil {
		return types.RawMarketState{}, fmt.Errorf("getPoolAssetFor(%s): %w", ref.ID, err)
	}

	var (
		token                     types.Token
		totalAssets, totalBorrows sdkmath.Int
		supplyRate, borrowRate    sdkmath.Int
		riskLtv                   = sdkmath.ZeroInt()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		token = s.tokens.Metadata(gctx, asset)
		return nil
	})
	g.Go(func() (err error) {
		totalAssets, err = s.readUint(gctx, s.pool, "getTotalAssets", market.poolID)
		return err
	})
	g.Go(func() (err error) {
		totalBorrows, err = s.readUint(gctx, s.pool, "getTotalBorrows", market.poolID)
		return err
	})
	g.Go(func() (err error) {
		supplyRate, err = s.readUint(gctx, s.lens, "getPoolSupplyRate", market.poolID)
		return err
	})
	g.Go(func() (err error) {
		borrowRate, err = s.readUint(gctx, s.lens, "getPoolBorrowRate", market.poolID)
		return err
	})
	g.Go(func() error {
		ltv, err := s.readUint(gctx, s.riskEngine, "ltvFor", market.poolID, common.HexToAddress(asset))
		if err != nil {
			s.logger.Debug().Err(err).Str("poolId", ref.ID).Str("asset", asset).Msg("ltvFor failed - treating LTV as zero")
			return nil
		}
		riskLtv = ltv
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.RawMarketState{}, err
	}

	return types.RawMarketState{
		MarketID:         ref.ID + "/" + asset,
		AssetAddress:     asset,
		AssetSymbol:      token.Symbol,
		AssetDecimals:    token.Decimals,
		TotalAssets:      totalAssets,
		TotalLiabilities: totalBorrows,
		SupplyRateRaw:    supplyRate,
		BorrowRateRaw:    borrowRate,
		RiskLtvRaw:       riskLtv,
		URLSuffix:        strings.TrimSpace(market.urlSuffix),
	}, nil
}

func (s *Sentiment) readUint(ctx context.Context, target chain.Contract, method string, params ...any) (sdkmath.Int, error) {
	values, err := s.caller.Call(ctx, target, method, params...)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%s: %w", method, err)
	}
	value, err := chain.BigOutput(values, 0)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%s: %w", method, err)
	}
	return toInt(value), nil
}
