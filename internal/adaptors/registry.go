/*
This file contains the adaptor registry. Every protocol in the protocol table names the
adaptor that knows how to discover its markets and read their raw state.
*/

package adaptors

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/yieldindex/lendnorm/internal/assembler"
	"github.com/yieldindex/lendnorm/internal/chain"
	"github.com/yieldindex/lendnorm/internal/datafetcher"
	"github.com/yieldindex/lendnorm/internal/types"
	"github.com/yieldindex/lendnorm/internal/utils"
)

var (
	ErrUnknownAdaptor  = errors.New("unknown adaptor")
	ErrInvalidMarket   = errors.New("invalid market data")
	ErrReserveInactive = errors.New("reserve is not active")
)

// Factory builds a market source for one protocol.
type Factory func(protocol types.ProtocolConfig, caller chain.Caller, tokens datafetcher.TokenMetadata) (assembler.MarketSource, error)

var registry = map[string]Factory{
	"hyperdrive": func(p types.ProtocolConfig, c chain.Caller, _ datafetcher.TokenMetadata) (assembler.MarketSource, error) {
		return NewHyperdrive(p, c)
	},
	"sentiment": func(p types.ProtocolConfig, c chain.Caller, t datafetcher.TokenMetadata) (assembler.MarketSource, error) {
		return NewSentiment(p, c, t)
	},
	"hyperlend": func(p types.ProtocolConfig, c chain.Caller, _ datafetcher.TokenMetadata) (assembler.MarketSource, error) {
		return NewHyperlend(p, c)
	},
}

// Build returns the market source for protocol.Adaptor.
func Build(protocol types.ProtocolConfig, caller chain.Caller, tokens datafetcher.TokenMetadata) (assembler.MarketSource, error) {
	factory, ok := registry[protocol.Adaptor]
	if !ok {
		return nil, fmt.Errorf("%w: %q for project %s", ErrUnknownAdaptor, protocol.Adaptor, protocol.Project)
	}
	return factory(protocol, caller, tokens)
}

// Names lists the registered adaptor names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contract(protocol types.ProtocolConfig, role string, parsed *abi.ABI) (chain.Contract, error) {
	address, err := protocol.Contract(role)
	if err != nil {
		return chain.Contract{}, err
	}
	return chain.NewContract(address, parsed)
}

func toInt(v *big.Int) sdkmath.Int {
	return utils.IntFromAny(v)
}
