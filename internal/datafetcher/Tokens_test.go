package datafetcher

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yieldindex/lendnorm/internal/chain"
)

type fakeTokenCaller struct {
	symbol   any
	decimals any
	fail     map[string]bool
}

func (f *fakeTokenCaller) Call(_ context.Context, _ chain.Contract, method string, _ ...any) ([]any, error) {
	if f.fail[method] {
		return nil, chain.ErrCallFailed
	}
	switch method {
	case "symbol":
		return []any{f.symbol}, nil
	case "decimals":
		return []any{f.decimals}, nil
	}
	return nil, errors.New("unexpected method " + method)
}

func (f *fakeTokenCaller) Multicall(context.Context, chain.Contract, string, [][]any) ([]chain.CallResult, error) {
	return nil, errors.New("not implemented")
}

func TestTokenReaderMetadata(t *testing.T) {
	const address = "0x94e8396e0869c9F2200760aF0621aFd240E1CF38"

	tests := []struct {
		name         string
		caller       *fakeTokenCaller
		wantSymbol   string
		wantDecimals int
	}{
		{
			name:         "both calls succeed",
			caller:       &fakeTokenCaller{symbol: "wstHype", decimals: uint8(18)},
			wantSymbol:   "WSTHYPE",
			wantDecimals: 18,
		},
		{
			name:         "six decimals",
			caller:       &fakeTokenCaller{symbol: "USDT0", decimals: uint8(6)},
			wantSymbol:   "USDT0",
			wantDecimals: 6,
		},
		{
			name:         "symbol reverts",
			caller:       &fakeTokenCaller{decimals: uint8(8), fail: map[string]bool{"symbol": true}},
			wantSymbol:   FallbackSymbol,
			wantDecimals: 8,
		},
		{
			name:         "decimals reverts",
			caller:       &fakeTokenCaller{symbol: "UBTC", fail: map[string]bool{"decimals": true}},
			wantSymbol:   "UBTC",
			wantDecimals: FallbackDecimals,
		},
		{
			name:         "unexpected output types",
			caller:       &fakeTokenCaller{symbol: 42, decimals: "eighteen"},
			wantSymbol:   FallbackSymbol,
			wantDecimals: FallbackDecimals,
		},
		{
			name:         "absurd decimals",
			caller:       &fakeTokenCaller{symbol: "X", decimals: big.NewInt(1000)},
			wantSymbol:   "X",
			wantDecimals: FallbackDecimals,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := NewTokenReader(tt.caller).Metadata(context.Background(), address)
			require.Equal(t, "0x94e8396e0869c9f2200760af0621afd240e1cf38", token.Address)
			require.Equal(t, tt.wantSymbol, token.Symbol)
			require.Equal(t, tt.wantDecimals, token.Decimals)
		})
	}
}

func TestTokenReaderInvalidAddress(t *testing.T) {
	token := NewTokenReader(&fakeTokenCaller{symbol: "X", decimals: uint8(6)}).Metadata(context.Background(), "nope")
	require.Equal(t, FallbackSymbol, token.Symbol)
	require.Equal(t, FallbackDecimals, token.Decimals)
}
