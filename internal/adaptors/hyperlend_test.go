package adaptors

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/yieldindex/lendnorm/internal/assembler"
	"github.com/yieldindex/lendnorm/internal/types"
)

const (
	inactiveReserve = "0x00000000000000000000000000000000000000a1"
	unlistedReserve = "0x00000000000000000000000000000000000000b2"
)

func ray(n int64, exp int) *big.Int {
	return wei(n, exp)
}

func hyperlendFixture(t *testing.T) (types.ProtocolConfig, *fakeCaller) {
	protocol := loadProtocol(t, "hyperlend")
	provider, err := protocol.Contract("dataProvider")
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.handle(provider, "getAllReservesTokens", func([]any) ([]any, error) {
		return []any{[]reserveToken{
			{Symbol: "WHYPE", TokenAddress: common.HexToAddress(whype)},
			{Symbol: "USDe", TokenAddress: common.HexToAddress(usde)},
			{Symbol: "OLD", TokenAddress: common.HexToAddress(inactiveReserve)},
			{Symbol: "NEW", TokenAddress: common.HexToAddress(unlistedReserve)},
		}}, nil
	})
	caller.handle(provider, "getReserveConfigurationData", func(params []any) ([]any, error) {
		asset := strings.ToLower(params[0].(common.Address).Hex())
		active := asset != inactiveReserve
		frozen := asset == usde
		return []any{
			big.NewInt(18),    // decimals
			big.NewInt(7500),  // ltv
			big.NewInt(8000),  // liquidationThreshold
			big.NewInt(10500), // liquidationBonus
			big.NewInt(1000),  // reserveFactor
			true,              // usageAsCollateralEnabled
			true,              // borrowingEnabled
			false,             // stableBorrowRateEnabled
			active,            // isActive
			frozen,            // isFrozen
		}, nil
	})
	caller.handle(provider, "getReserveData", func(params []any) ([]any, error) {
		return []any{
			big.NewInt(0),      // unbacked
			big.NewInt(0),      // accruedToTreasuryScaled
			wei(1000, 18),      // totalAToken
			wei(100, 18),       // totalStableDebt
			wei(300, 18),       // totalVariableDebt
			ray(3, 25),         // liquidityRate 3%
			ray(5, 25),         // variableBorrowRate 5%
			big.NewInt(0),      // stableBorrowRate
			big.NewInt(0),      // averageStableBorrowRate
			ray(1, 27),         // liquidityIndex
			ray(1, 27),         // variableBorrowIndex
			big.NewInt(1.76e9), // lastUpdateTimestamp
		}, nil
	})
	return protocol, caller
}

func TestHyperlendDiscoverAndFetch(t *testing.T) {
	protocol, caller := hyperlendFixture(t)
	source, err := NewHyperlend(protocol, caller)
	require.NoError(t, err)

	refs, err := source.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 4)
	require.Equal(t, whype, refs[0].ID)

	raw, err := source.Fetch(context.Background(), refs[0])
	require.NoError(t, err)
	require.Equal(t, "WHYPE", raw.AssetSymbol)
	require.Equal(t, 18, raw.AssetDecimals)
	require.Equal(t, wei(1000, 18).String(), raw.TotalAssets.String())
	require.Equal(t, wei(400, 18).String(), raw.TotalLiabilities.String())
	require.Equal(t, int64(7500), raw.UtilizationOrLtv.Int64())
	require.Equal(t, int64(7500), raw.RiskLtvRaw.Int64())
	require.NotNil(t, raw.Borrowable)
	require.True(t, *raw.Borrowable)
	require.Equal(t, whype, raw.URLSuffix)

	raw, err = source.Fetch(context.Background(), refs[1])
	require.NoError(t, err)
	require.False(t, *raw.Borrowable)

	_, err = source.Fetch(context.Background(), refs[2])
	require.ErrorIs(t, err, ErrReserveInactive)
}

func TestHyperlendAssembled(t *testing.T) {
	protocol, caller := hyperlendFixture(t)
	source, err := NewHyperlend(protocol, caller)
	require.NoError(t, err)

	prices := fakePrices{whype: 40, usde: 1, unlistedReserve: 5}
	pools := assembler.New(protocol, source, prices, nil, 4).Assemble(context.Background())
	require.Len(t, pools, 2)

	base := pools[0]
	require.Equal(t, whype+"-hyperliquid", base.PoolID)
	require.InDelta(t, -1.576171875, base.ApyBase, 1e-9)
	require.InDelta(t, 5.0, base.ApyBaseBorrow, 1e-9)
	require.InDelta(t, 40000.0, base.TotalSupplyUsd, 1e-6)
	require.InDelta(t, 16000.0, base.TotalBorrowUsd, 1e-6)
	require.InDelta(t, 24000.0, base.TvlUsd, 1e-6)
	require.InDelta(t, 0.75, *base.Ltv, 1e-12)
	require.True(t, base.Borrowable)
	require.Equal(t, "https://app.hyperlend.finance/markets/"+whype, base.URL)

	stable := pools[1]
	require.Equal(t, usde+"-hyperliquid", stable.PoolID)
	require.InDelta(t, -19.37109375, stable.ApyBase, 1e-9)
	require.False(t, stable.Borrowable)
}
