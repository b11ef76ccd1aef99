package adaptors

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yieldindex/lendnorm/internal/assembler"
	"github.com/yieldindex/lendnorm/internal/chain"
	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
)

type reserveToken struct {
	Symbol       string
	TokenAddress common.Address
}

// Output positions of getReserveConfigurationData.
const (
	configDecimals         = 0
	configLtv              = 1
	configBorrowingEnabled = 6
	configIsActive         = 8
	configIsFrozen         = 9
)

// Output positions of getReserveData.
const (
	reserveTotalAToken        = 2
	reserveTotalStableDebt    = 3
	reserveTotalVariableDebt  = 4
	reserveLiquidityRate      = 5
	reserveVariableBorrowRate = 6
)

// Hyperlend reads Aave-style reserves from the hyperlend protocol data provider.
type Hyperlend struct {
	caller       chain.Caller
	dataProvider chain.Contract
	logger       zerolog.Logger
}

var _ assembler.MarketSource = (*Hyperlend)(nil)

func NewHyperlend(protocol types.ProtocolConfig, caller chain.Caller) (*Hyperlend, error) {
	dataProvider, err := contract(protocol, "dataProvider", AaveDataProviderABI)
	if err != nil {
		return nil, err
	}
	return &Hyperlend{
		caller:       caller,
		dataProvider: dataProvider,
		logger:       logger.GetForComponent("hyperlend_adaptor"),
	}, nil
}

// Discover enumerates every reserve listed by the data provider.
func (h *Hyperlend) Discover(ctx context.Context) ([]assembler.MarketRef, error) {
	values, err := h.caller.Call(ctx, h.dataProvider, "getAllReservesTokens")
	if err != nil {
		return nil, fmt.Errorf("getAllReservesTokens: %w", err)
	}
	value, err := chain.Output(values, 0)
	if err != nil {
		return nil, err
	}
	reserves, err := chain.Decode[[]reserveToken](value)
	if err != nil {
		return nil, fmt.Errorf("getAllReservesTokens: %w", err)
	}

	refs := make([]assembler.MarketRef, 0, len(reserves))
	for _, reserve := range reserves {
		refs = append(refs, assembler.MarketRef{
			ID:   strings.ToLower(reserve.TokenAddress.Hex()),
			Data: reserve.Symbol,
		})
	}

	h.logger.Debug().Int("reserves", len(refs)).Msg("Hyperlend reserves discovered")
	return refs, nil
}

// Fetch reads the reserve configuration and reserve data concurrently.
// Inactive reserves are reported as errors.
func (h *Hyperlend) Fetch(ctx context.Context, ref assembler.MarketRef) (types.RawMarketState, error) {
	if !common.IsHexAddress(ref.ID) {
		return types.RawMarketState{}, fmt.Errorf("%w: reserve %q is not an address", ErrInvalidMarket, ref.ID)
	}
	asset := common.HexToAddress(ref.ID)
	symbol, _ := ref.Data.(string)

	var configuration, reserve []any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		configuration, err = h.caller.Call(gctx, h.dataProvider, "getReserveConfigurationData", asset)
		if err != nil {
			return fmt.Errorf("getReserveConfigurationData(%s): %w", ref.ID, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		reserve, err = h.caller.Call(gctx, h.dataProvider, "getReserveData", asset)
		if err != nil {
			return fmt.Errorf("getReserveData(%s): %w", ref.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.RawMarketState{}, err
	}

	active, err := chain.BoolOutput(configuration, configIsActive)
	if err != nil {
		return types.RawMarketState{}, err
	}
	if !active {
		return types.RawMarketState{}, fmt.Errorf("%w: %s", ErrReserveInactive, ref.ID)
	}
	frozen, err := chain.BoolOutput(configuration, configIsFrozen)
	if err != nil {
		return types.RawMarketState{}, err
	}
	borrowingEnabled, err := chain.BoolOutput(configuration, configBorrowingEnabled)
	if err != nil {
		return types.RawMarketState{}, err
	}

	bigs, err := bigOutputs(configuration, configDecimals, configLtv)
	if err != nil {
		return types.RawMarketState{}, err
	}
	decimals, ltv := bigs[0], bigs[1]
	if !decimals.IsInt64() || decimals.Int64() > 77 {
		return types.RawMarketState{}, fmt.Errorf("%w: reserve %s reports %s decimals", ErrInvalidMarket, ref.ID, decimals)
	}

	amounts, err := bigOutputs(reserve,
		reserveTotalAToken, reserveTotalStableDebt, reserveTotalVariableDebt,
		reserveLiquidityRate, reserveVariableBorrowRate)
	if err != nil {
		return types.RawMarketState{}, err
	}
	totalDebt := new(big.Int).Add(amounts[1], amounts[2])
	borrowable := borrowingEnabled && !frozen

	return types.RawMarketState{
		MarketID:         ref.ID,
		AssetAddress:     ref.ID,
		AssetSymbol:      symbol,
		AssetDecimals:    int(decimals.Int64()),
		TotalAssets:      toInt(amounts[0]),
		TotalLiabilities: toInt(totalDebt),
		UtilizationOrLtv: toInt(ltv),
		SupplyRateRaw:    toInt(amounts[3]),
		BorrowRateRaw:    toInt(amounts[4]),
		RiskLtvRaw:       toInt(ltv),
		Borrowable:       &borrowable,
		URLSuffix:        ref.ID,
	}, nil
}

func bigOutputs(values []any, positions ...int) ([]*big.Int, error) {
	out := make([]*big.Int, len(positions))
	for i, position := range positions {
		value, err := chain.BigOutput(values, position)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}
