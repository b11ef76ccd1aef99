package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const valuesJSON = `[
	{"inputs":[{"name":"id","type":"uint256"}],"name":"valueOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var (
	valuesABI       = MustParseABI(valuesJSON)
	tokenAddress    = common.HexToAddress("0x5d3a1Ff2b6BAb83b63cd9AD0787074081a52ef34")
	valuesAddress   = common.HexToAddress("0x7fB0d63E84D847569ca75A6cdbA283bA1401F9f6")
	multicallTarget = common.HexToAddress(DefaultMulticallAddress)
)

type handler func(data []byte) ([]byte, error)

// fakeBackend answers eth_call by dispatching on the target address.
type fakeBackend struct {
	handlers map[common.Address]handler
	calls    int
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	h, ok := f.handlers[*msg.To]
	if !ok {
		return nil, errors.New("no contract at address")
	}
	return h(msg.Data)
}

func tokenHandler(data []byte) ([]byte, error) {
	method, err := ERC20ABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "decimals":
		return method.Outputs.Pack(uint8(6))
	case "symbol":
		return method.Outputs.Pack("USDe")
	}
	return nil, errors.New("unknown method")
}

func valuesHandler(data []byte) ([]byte, error) {
	method, err := valuesABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	id := args[0].(*big.Int)
	if id.Int64() == 2 {
		return nil, errors.New("execution reverted")
	}
	return method.Outputs.Pack(new(big.Int).Mul(id, big.NewInt(10)))
}

func newFakeBackend() *fakeBackend {
	backend := &fakeBackend{handlers: map[common.Address]handler{
		tokenAddress:  tokenHandler,
		valuesAddress: valuesHandler,
	}}
	backend.handlers[multicallTarget] = func(data []byte) ([]byte, error) {
		method, err := Multicall3ABI.MethodById(data[:4])
		if err != nil {
			return nil, err
		}
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		calls, err := Decode[[]call3](args[0])
		if err != nil {
			return nil, err
		}
		results := make([]call3Result, len(calls))
		for i, c := range calls {
			out, err := backend.handlers[c.Target](c.CallData)
			if err != nil {
				continue
			}
			results[i] = call3Result{Success: true, ReturnData: out}
		}
		return method.Outputs.Pack(results)
	}
	return backend
}

func TestClientCall(t *testing.T) {
	client := NewClient(newFakeBackend(), multicallTarget, 0)
	token, err := NewContract(tokenAddress.Hex(), ERC20ABI)
	require.NoError(t, err)

	values, err := client.Call(context.Background(), token, "decimals")
	require.NoError(t, err)
	decimals, err := BigOutput(values, 0)
	require.NoError(t, err)
	require.Equal(t, int64(6), decimals.Int64())

	values, err = client.Call(context.Background(), token, "symbol")
	require.NoError(t, err)
	symbol, err := StringOutput(values, 0)
	require.NoError(t, err)
	require.Equal(t, "USDe", symbol)
}

func TestClientCallErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.handlers[tokenAddress] = func([]byte) ([]byte, error) { return nil, nil }
	client := NewClient(backend, multicallTarget, 0)

	token, err := NewContract(tokenAddress.Hex(), ERC20ABI)
	require.NoError(t, err)
	_, err = client.Call(context.Background(), token, "decimals")
	require.ErrorIs(t, err, ErrEmptyResult)

	values, err := NewContract(valuesAddress.Hex(), valuesABI)
	require.NoError(t, err)
	_, err = client.Call(context.Background(), values, "valueOf", big.NewInt(2))
	require.ErrorIs(t, err, ErrCallFailed)

	_, err = client.Call(context.Background(), values, "valueOf", "not-a-number")
	require.ErrorIs(t, err, ErrEncode)

	_, err = NewContract("0xnothex", valuesABI)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestClientMulticall(t *testing.T) {
	backend := newFakeBackend()
	client := NewClient(backend, multicallTarget, 0)
	values, err := NewContract(valuesAddress.Hex(), valuesABI)
	require.NoError(t, err)

	paramsList := [][]any{{big.NewInt(1)}, {big.NewInt(2)}, {big.NewInt(3)}, {"bad"}}
	results, err := client.Multicall(context.Background(), values, "valueOf", paramsList)
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, 1, backend.calls)

	first, err := BigOutput(results[0].Values, 0)
	require.NoError(t, err)
	require.Equal(t, int64(10), first.Int64())

	require.ErrorIs(t, results[1].Err, ErrCallFailed)

	third, err := BigOutput(results[2].Values, 0)
	require.NoError(t, err)
	require.Equal(t, int64(30), third.Int64())

	require.ErrorIs(t, results[3].Err, ErrEncode)
}

func TestClientMulticallEmpty(t *testing.T) {
	backend := newFakeBackend()
	client := NewClient(backend, multicallTarget, 0)
	values, err := NewContract(valuesAddress.Hex(), valuesABI)
	require.NoError(t, err)

	results, err := client.Multicall(context.Background(), values, "valueOf", nil)
	require.NoError(t, err)
	require.Empty(t, results)
	require.Zero(t, backend.calls)
}

func TestDecodeTuple(t *testing.T) {
	type named struct {
		Symbol       string
		TokenAddress common.Address
	}
	anonymous := []struct {
		Symbol       string         `json:"symbol"`
		TokenAddress common.Address `json:"tokenAddress"`
	}{{Symbol: "WHYPE", TokenAddress: common.HexToAddress("0x5555555555555555555555555555555555555555")}}

	decoded, err := Decode[[]named](anonymous)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, "WHYPE", decoded[0].Symbol)

	_, err = Decode[[]named](nil)
	require.ErrorIs(t, err, ErrDecode)
}

func TestOutputHelpers(t *testing.T) {
	address := common.HexToAddress("0xB8CE59FC3717ada4C02eaDF9682A9e934F625ebb")
	values := []any{address, true, uint8(18)}

	got, err := AddressOutput(values, 0)
	require.NoError(t, err)
	require.Equal(t, "0xb8ce59fc3717ada4c02eadf9682a9e934f625ebb", got)

	flag, err := BoolOutput(values, 1)
	require.NoError(t, err)
	require.True(t, flag)

	_, err = StringOutput(values, 2)
	require.ErrorIs(t, err, ErrDecode)

	_, err = Output(values, 5)
	require.ErrorIs(t, err, ErrDecode)
}
