package adaptors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yieldindex/lendnorm/internal/chain"
	"github.com/yieldindex/lendnorm/internal/datafetcher"
	"github.com/yieldindex/lendnorm/internal/types"
)

// handlerFunc returns the raw output values of a contract method for the given params.
type handlerFunc func(params []any) ([]any, error)

// fakeCaller routes calls by contract address and method. Inputs and outputs go through
// the real ABI encoder so adaptors see exactly what go-ethereum would hand them.
type fakeCaller struct {
	mu       sync.Mutex
	handlers   map[string]handlerFunc
	calls      map[string]int
	multicalls int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{handlers: make(map[string]handlerFunc), calls: make(map[string]int)}
}

func callKey(address, method string) string {
	return strings.ToLower(address) + "." + method
}

func (f *fakeCaller) handle(address, method string, h handlerFunc) {
	f.handlers[callKey(address, method)] = h
}

func (f *fakeCaller) count(address, method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[callKey(address, method)]
}

func (f *fakeCaller) Call(_ context.Context, contract chain.Contract, method string, params ...any) ([]any, error) {
	key := callKey(contract.Address.Hex(), method)

	f.mu.Lock()
	f.calls[key]++
	handler, ok := f.handlers[key]
	f.mu.Unlock()

	if _, err := contract.ABI.Pack(method, params...); err != nil {
		return nil, fmt.Errorf("%w: %w", chain.ErrEncode, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no handler for %s", chain.ErrCallFailed, key)
	}

	outputs, err := handler(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", chain.ErrCallFailed, err)
	}
	encoded, err := contract.ABI.Methods[method].Outputs.Pack(outputs...)
	if err != nil {
		return nil, fmt.Errorf("fake output encoding for %s: %w", key, err)
	}
	return contract.ABI.Unpack(method, encoded)
}

func (f *fakeCaller) Multicall(ctx context.Context, contract chain.Contract, method string, paramsList [][]any) ([]chain.CallResult, error) {
	f.mu.Lock()
	f.multicalls++
	f.mu.Unlock()

	results := make([]chain.CallResult, len(paramsList))
	for i, params := range paramsList {
		results[i].Values, results[i].Err = f.Call(ctx, contract, method, params...)
	}
	return results, nil
}

var errReverted = errors.New("execution reverted")

type fakePrices map[string]float64

func (f fakePrices) GetCurrentPrices(_ context.Context, chainName string, addresses []string) (map[string]types.TokenPrice, error) {
	out := make(map[string]types.TokenPrice)
	for _, address := range addresses {
		if price, ok := f[strings.ToLower(address)]; ok {
			out[datafetcher.PriceKey(chainName, address)] = types.TokenPrice{Price: price, Decimals: 18}
		}
	}
	return out, nil
}
