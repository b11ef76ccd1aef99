package datafetcher

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yieldindex/lendnorm/internal/chain"
	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
)

const (
	FallbackSymbol   = "TOKEN"
	FallbackDecimals = 18
	// Larger values cannot be real ERC20 decimals and would overflow float scaling.
	maxTokenDecimals = 77
)

// TokenMetadata resolves ERC20 symbol and decimals for an asset address.
type TokenMetadata interface {
	Metadata(ctx context.Context, address string) types.Token
}

// TokenReader reads ERC20 metadata over a chain.Caller.
type TokenReader struct {
	caller chain.Caller
	logger zerolog.Logger
}

var _ TokenMetadata = (*TokenReader)(nil)

func NewTokenReader(caller chain.Caller) *TokenReader {
	return &TokenReader{
		caller: caller,
		logger: logger.GetForComponent("token_retriever"),
	}
}

// Metadata fetches symbol and decimals concurrently. Failed calls fall back to
// FallbackSymbol and FallbackDecimals; the symbol is upper-cased.
func (r *TokenReader) Metadata(ctx context.Context, address string) types.Token {
	token := types.Token{
		Address:  strings.ToLower(strings.TrimSpace(address)),
		Symbol:   FallbackSymbol,
		Decimals: FallbackDecimals,
	}

	contract, err := chain.NewContract(address, chain.ERC20ABI)
	if err != nil {
		r.logger.Warn().Err(err).Str("address", address).Msg("Invalid token address - using fallback metadata")
		return token
	}

	var g errgroup.Group
	g.Go(func() error {
		values, err := r.caller.Call(ctx, contract, "symbol")
		if err != nil {
			r.logger.Debug().Err(err).Str("address", token.Address).Msg("symbol() failed - using fallback")
			return nil
		}
		symbol, err := chain.StringOutput(values, 0)
		if err != nil || strings.TrimSpace(symbol) == "" {
			return nil
		}
		token.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
		return nil
	})
	g.Go(func() error {
		values, err := r.caller.Call(ctx, contract, "decimals")
		if err != nil {
			r.logger.Debug().Err(err).Str("address", token.Address).Msg("decimals() failed - using fallback")
			return nil
		}
		decimals, err := chain.BigOutput(values, 0)
		if err != nil || !decimals.IsInt64() || decimals.Int64() > maxTokenDecimals {
			return nil
		}
		token.Decimals = int(decimals.Int64())
		return nil
	})
	_ = g.Wait()

	r.logger.Debug().
		Str("address", token.Address).
		Str("symbol", token.Symbol).
		Int("decimals", token.Decimals).
		Msg("Resolved token metadata")

	return token
}
