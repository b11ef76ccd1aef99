/*
This file contains the read-only contract call transport. Calls are ABI-encoded with
go-ethereum, executed with eth_call and decoded back into Go values. Batches go through
Multicall3 aggregate3 with allowFailure set, so one reverting call only fails its own slot.
*/

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/yieldindex/lendnorm/internal/logger"
)

var (
	ErrEncode       = errors.New("failed to encode contract call")
	ErrCallFailed   = errors.New("contract call failed")
	ErrEmptyResult  = errors.New("contract call returned no data")
	ErrDecode       = errors.New("failed to decode contract call result")
	ErrInvalidInput = errors.New("invalid contract call input")
)

// Contract binds an address to the ABI used to encode calls against it.
type Contract struct {
	Address common.Address
	ABI     *abi.ABI
}

// NewContract validates a hex address and binds it to an ABI.
func NewContract(address string, parsed *abi.ABI) (Contract, error) {
	if !common.IsHexAddress(address) {
		return Contract{}, fmt.Errorf("%w: %q is not a hex address", ErrInvalidInput, address)
	}
	if parsed == nil {
		return Contract{}, fmt.Errorf("%w: nil ABI for %s", ErrInvalidInput, address)
	}
	return Contract{Address: common.HexToAddress(address), ABI: parsed}, nil
}

// CallResult is one slot of a batched call.
type CallResult struct {
	Values []any
	Err    error
}

// Caller is the read-only chain transport used by the protocol adaptors.
type Caller interface {
	Call(ctx context.Context, contract Contract, method string, params ...any) ([]any, error)
	Multicall(ctx context.Context, contract Contract, method string, paramsList [][]any) ([]CallResult, error)
}

// Client implements Caller on top of an eth_call backend.
type Client struct {
	backend   ethereum.ContractCaller
	multicall common.Address
	timeout   time.Duration
	logger    zerolog.Logger
}

var _ Caller = (*Client)(nil)

// NewClient wraps an eth_call backend. A zero timeout disables the per-call deadline.
func NewClient(backend ethereum.ContractCaller, multicall common.Address, timeout time.Duration) *Client {
	return &Client{
		backend:   backend,
		multicall: multicall,
		timeout:   timeout,
		logger:    logger.GetForComponent("chain_client"),
	}
}

// Dial connects to a JSON-RPC endpoint. The returned close function releases the connection.
func Dial(ctx context.Context, rpcURL, multicallAddress string, timeout time.Duration) (*Client, func(), error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, nil, fmt.Errorf("%w: empty RPC url", ErrInvalidInput)
	}
	if !common.IsHexAddress(multicallAddress) {
		return nil, nil, fmt.Errorf("%w: multicall address %q", ErrInvalidInput, multicallAddress)
	}

	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	client := NewClient(rpc, common.HexToAddress(multicallAddress), timeout)
	client.logger.Info().Str("multicall", multicallAddress).Dur("timeout", timeout).Msg("Chain client ready")
	return client, rpc.Close, nil
}

// Call executes a single read-only contract call and returns the decoded outputs.
func (c *Client) Call(ctx context.Context, contract Contract, method string, params ...any) ([]any, error) {
	data, err := pack(contract, method, params)
	if err != nil {
		return nil, err
	}

	out, err := c.ethCall(ctx, contract.Address, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", ErrCallFailed, contract.Address.Hex(), method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrEmptyResult, contract.Address.Hex(), method)
	}

	values, err := contract.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", ErrDecode, contract.Address.Hex(), method, err)
	}
	return values, nil
}

type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type call3Result struct {
	Success    bool
	ReturnData []byte
}

// Multicall executes the same method against one contract once per params entry in a single
// aggregate3 round trip. The error return is reserved for failures of the whole batch.
func (c *Client) Multicall(ctx context.Context, contract Contract, method string, paramsList [][]any) ([]CallResult, error) {
	if len(paramsList) == 0 {
		return []CallResult{}, nil
	}

	results := make([]CallResult, len(paramsList))
	calls := make([]call3, 0, len(paramsList))
	slots := make([]int, 0, len(paramsList))

	for i, params := range paramsList {
		data, err := pack(contract, method, params)
		if err != nil {
			results[i].Err = err
			continue
		}
		calls = append(calls, call3{Target: contract.Address, AllowFailure: true, CallData: data})
		slots = append(slots, i)
	}
	if len(calls) == 0 {
		return results, nil
	}

	input, err := Multicall3ABI.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate3: %w", ErrEncode, err)
	}

	out, err := c.ethCall(ctx, c.multicall, input)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate3 %s.%s: %w", ErrCallFailed, contract.Address.Hex(), method, err)
	}

	decoded, err := Multicall3ABI.Unpack("aggregate3", out)
	if err != nil || len(decoded) == 0 {
		return nil, fmt.Errorf("%w: aggregate3: %v", ErrDecode, err)
	}
	batch, err := Decode[[]call3Result](decoded[0])
	if err != nil {
		return nil, err
	}
	if len(batch) != len(calls) {
		return nil, fmt.Errorf("%w: aggregate3 returned %d results for %d calls", ErrDecode, len(batch), len(calls))
	}

	failed := 0
	for j, res := range batch {
		slot := slots[j]
		switch {
		case !res.Success:
			results[slot].Err = fmt.Errorf("%w: %s.%s reverted", ErrCallFailed, contract.Address.Hex(), method)
		case len(res.ReturnData) == 0:
			results[slot].Err = fmt.Errorf("%w: %s.%s", ErrEmptyResult, contract.Address.Hex(), method)
		default:
			values, err := contract.ABI.Unpack(method, res.ReturnData)
			if err != nil {
				results[slot].Err = fmt.Errorf("%w: %s.%s: %w", ErrDecode, contract.Address.Hex(), method, err)
				break
			}
			results[slot].Values = values
		}
		if results[slot].Err != nil {
			failed++
		}
	}

	c.logger.Debug().
		Str("target", contract.Address.Hex()).
		Str("method", method).
		Int("calls", len(calls)).
		Int("failed", failed).
		Msg("Multicall batch completed")

	return results, nil
}

func (c *Client) ethCall(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, (*big.Int)(nil))
}

func pack(contract Contract, method string, params []any) ([]byte, error) {
	if contract.ABI == nil {
		return nil, fmt.Errorf("%w: contract %s has no ABI", ErrInvalidInput, contract.Address.Hex())
	}
	data, err := contract.ABI.Pack(method, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncode, method, err)
	}
	return data, nil
}
