package adaptors

import (
	"github.com/yieldindex/lendnorm/internal/chain"
)

const hyperdriveFactoryJSON = `[
	{"inputs":[],"name":"getMarketCount","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"marketId","type":"uint256"}],"name":"getMarket","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const hyperdriveLensJSON = `[
	{"inputs":[{"name":"marketId","type":"uint256"}],"name":"getMarketQuery","outputs":[{"components":[
		{"name":"marketAsset","type":"address"},
		{"name":"marketAssetSymbol","type":"string"},
		{"name":"marketAssetDecimals","type":"uint8"},
		{"name":"maxSupply","type":"uint256"},
		{"name":"totalShares","type":"uint256"},
		{"name":"totalAssets","type":"uint256"},
		{"name":"exchangeRate","type":"uint256"},
		{"name":"totalReserveAssets","type":"uint256"},
		{"name":"totalLiabilities","type":"uint256"},
		{"name":"utilization","type":"uint256"},
		{"name":"borrowRate","type":"uint256"},
		{"name":"supplyRate","type":"uint256"}],
	"name":"","type":"tuple"}],"stateMutability":"view","type":"function"}
]`

const sentimentPoolJSON = `[
	{"inputs":[{"name":"poolId","type":"uint256"}],"name":"getPoolAssetFor","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"poolId","type":"uint256"}],"name":"getTotalAssets","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"poolId","type":"uint256"}],"name":"getTotalBorrows","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const sentimentLensJSON = `[
	{"inputs":[{"name":"poolId","type":"uint256"}],"name":"getPoolSupplyRate","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"poolId","type":"uint256"}],"name":"getPoolBorrowRate","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const sentimentRiskEngineJSON = `[
	{"inputs":[{"name":"poolId","type":"uint256"},{"name":"asset","type":"address"}],"name":"ltvFor","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const aaveDataProviderJSON = `[
	{"inputs":[],"name":"getAllReservesTokens","outputs":[{"components":[
		{"name":"symbol","type":"string"},
		{"name":"tokenAddress","type":"address"}],
	"name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"asset","type":"address"}],"name":"getReserveConfigurationData","outputs":[
		{"name":"decimals","type":"uint256"},
		{"name":"ltv","type":"uint256"},
		{"name":"liquidationThreshold","type":"uint256"},
		{"name":"liquidationBonus","type":"uint256"},
		{"name":"reserveFactor","type":"uint256"},
		{"name":"usageAsCollateralEnabled","type":"bool"},
		{"name":"borrowingEnabled","type":"bool"},
		{"name":"stableBorrowRateEnabled","type":"bool"},
		{"name":"isActive","type":"bool"},
		{"name":"isFrozen","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"asset","type":"address"}],"name":"getReserveData","outputs":[
		{"name":"unbacked","type":"uint256"},
		{"name":"accruedToTreasuryScaled","type":"uint256"},
		{"name":"totalAToken","type":"uint256"},
		{"name":"totalStableDebt","type":"uint256"},
		{"name":"totalVariableDebt","type":"uint256"},
		{"name":"liquidityRate","type":"uint256"},
		{"name":"variableBorrowRate","type":"uint256"},
		{"name":"stableBorrowRate","type":"uint256"},
		{"name":"averageStableBorrowRate","type":"uint256"},
		{"name":"liquidityIndex","type":"uint256"},
		{"name":"variableBorrowIndex","type":"uint256"},
		{"name":"lastUpdateTimestamp","type":"uint40"}],"stateMutability":"view","type":"function"}
]`

var (
	HyperdriveFactoryABI   = chain.MustParseABI(hyperdriveFactoryJSON)
	HyperdriveLensABI      = chain.MustParseABI(hyperdriveLensJSON)
	SentimentPoolABI       = chain.MustParseABI(sentimentPoolJSON)
	SentimentLensABI       = chain.MustParseABI(sentimentLensJSON)
	SentimentRiskEngineABI = chain.MustParseABI(sentimentRiskEngineJSON)
	AaveDataProviderABI    = chain.MustParseABI(aaveDataProviderJSON)
)
