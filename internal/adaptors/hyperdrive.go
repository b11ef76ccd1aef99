package adaptors

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/yieldindex/lendnorm/internal/assembler"
	"github.com/yieldindex/lendnorm/internal/chain"
	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
)

// maxHyperdriveMarkets bounds the registry walk in case the factory reports garbage.
const maxHyperdriveMarkets = 1024

// hyperdriveMarketQuery mirrors the lens getMarketQuery tuple.
type hyperdriveMarketQuery struct {
	MarketAsset         common.Address
	MarketAssetSymbol   string
	MarketAssetDecimals uint8
	MaxSupply           *big.Int
	TotalShares         *big.Int
	TotalAssets         *big.Int
	ExchangeRate        *big.Int
	TotalReserveAssets  *big.Int
	TotalLiabilities    *big.Int
	Utilization         *big.Int
	BorrowRate          *big.Int
	SupplyRate          *big.Int
}

// Hyperdrive reads markets from the hyperdrive factory and its market lens.
type Hyperdrive struct {
	caller  chain.Caller
	factory chain.Contract
	lens    chain.Contract
	logger  zerolog.Logger
}

var _ assembler.MarketSource = (*Hyperdrive)(nil)

func NewHyperdrive(protocol types.ProtocolConfig, caller chain.Caller) (*Hyperdrive, error) {
	factory, err := contract(protocol, "factory", HyperdriveFactoryABI)
	if err != nil {
		return nil, err
	}
	lens, err := contract(protocol, "lens", HyperdriveLensABI)
	if err != nil {
		return nil, err
	}
	return &Hyperdrive{
		caller:  caller,
		factory: factory,
		lens:    lens,
		logger:  logger.GetForComponent("hyperdrive_adaptor"),
	}, nil
}

// Discover reads the market count and batches every getMarketQuery into one multicall.
// Each ref carries its own query result; a reverted slot fails only that market in Fetch.
func (h *Hyperdrive) Discover(ctx context.Context) ([]assembler.MarketRef, error) {
	values, err := h.caller.Call(ctx, h.factory, "getMarketCount")
	if err != nil {
		return nil, fmt.Errorf("getMarketCount: %w", err)
	}
	count, err := chain.BigOutput(values, 0)
	if err != nil {
		return nil, fmt.Errorf("getMarketCount: %w", err)
	}
	if !count.IsInt64() || count.Int64() > maxHyperdriveMarkets {
		return nil, fmt.Errorf("%w: market count %s", ErrInvalidMarket, count)
	}

	n := int(count.Int64())
	if n == 0 {
		return []assembler.MarketRef{}, nil
	}

	params := make([][]any, n)
	for i := range params {
		params[i] = []any{big.NewInt(int64(i))}
	}
	results, err := h.caller.Multicall(ctx, h.lens, "getMarketQuery", params)
	if err != nil {
		return nil, fmt.Errorf("getMarketQuery batch: %w", err)
	}
	if len(results) != n {
		return nil, fmt.Errorf("%w: %d query results for %d markets", ErrInvalidMarket, len(results), n)
	}

	refs := make([]assembler.MarketRef, n)
	for i := range refs {
		refs[i] = assembler.MarketRef{ID: strconv.Itoa(i), Data: results[i]}
	}

	h.logger.Debug().Int("markets", n).Msg("Hyperdrive markets discovered")
	return refs, nil
}

// Fetch decodes the query result attached to ref during discovery.
func (h *Hyperdrive) Fetch(_ context.Context, ref assembler.MarketRef) (types.RawMarketState, error) {
	result, ok := ref.Data.(chain.CallResult)
	if !ok {
		return types.RawMarketState{}, fmt.Errorf("%w: market %s has no query result", ErrInvalidMarket, ref.ID)
	}
	if result.Err != nil {
		return types.RawMarketState{}, fmt.Errorf("getMarketQuery(%s): %w", ref.ID, result.Err)
	}
	value, err := chain.Output(result.Values, 0)
	if err != nil {
		return types.RawMarketState{}, err
	}
	query, err := chain.Decode[hyperdriveMarketQuery](value)
	if err != nil {
		return types.RawMarketState{}, fmt.Errorf("getMarketQuery(%s): %w", ref.ID, err)
	}

	asset := strings.ToLower(query.MarketAsset.Hex())
	return types.RawMarketState{
		MarketID:         asset,
		AssetAddress:     asset,
		AssetSymbol:      query.MarketAssetSymbol,
		AssetDecimals:    int(query.MarketAssetDecimals),
		TotalAssets:      toInt(query.TotalAssets),
		TotalLiabilities: toInt(query.TotalLiabilities),
		UtilizationOrLtv: toInt(query.Utilization),
		SupplyRateRaw:    toInt(query.SupplyRate),
		BorrowRateRaw:    toInt(query.BorrowRate),
	}, nil
}
