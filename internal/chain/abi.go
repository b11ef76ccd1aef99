package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DefaultMulticallAddress is the canonical Multicall3 deployment shared by most EVM chains.
const DefaultMulticallAddress = "0xcA11bde05977b3631167028862bE2a173976CA11"

const erc20MetadataJSON = `[
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

const multicall3JSON = `[
	{"inputs":[{"components":[
		{"internalType":"address","name":"target","type":"address"},
		{"internalType":"bool","name":"allowFailure","type":"bool"},
		{"internalType":"bytes","name":"callData","type":"bytes"}],
		"internalType":"struct Multicall3.Call3[]","name":"calls","type":"tuple[]"}],
	"name":"aggregate3",
	"outputs":[{"components":[
		{"internalType":"bool","name":"success","type":"bool"},
		{"internalType":"bytes","name":"returnData","type":"bytes"}],
		"internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],
	"stateMutability":"payable","type":"function"}
]`

var (
	ERC20ABI      = MustParseABI(erc20MetadataJSON)
	Multicall3ABI = MustParseABI(multicall3JSON)
)

// MustParseABI parses a JSON ABI definition and panics on malformed input.
// It is only meant for package-level ABI tables.
func MustParseABI(definition string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic("invalid ABI definition: " + err.Error())
	}
	return &parsed
}
