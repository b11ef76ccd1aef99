package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Decode converts an unpacked ABI value (usually an anonymous tuple struct) into T.
// Fields are matched by name, so T only needs the exported field names of the ABI outputs.
func Decode[T any](v any) (out T, err error) {
	if v == nil {
		return out, fmt.Errorf("%w: nil value for %T", ErrDecode, out)
	}
	if direct, ok := v.(T); ok {
		return direct, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: cannot convert %T into %T: %v", ErrDecode, v, out, r)
		}
	}()

	converted, ok := abi.ConvertType(v, new(T)).(*T)
	if !ok {
		return out, fmt.Errorf("%w: cannot convert %T into %T", ErrDecode, v, out)
	}
	return *converted, nil
}

// Output returns the decoded output at index i, or an error if the call returned fewer values.
func Output(values []any, i int) (any, error) {
	if i < 0 || i >= len(values) {
		return nil, fmt.Errorf("%w: output %d out of range (%d values)", ErrDecode, i, len(values))
	}
	return values[i], nil
}

// AddressOutput decodes output i as a lowercase hex address.
func AddressOutput(values []any, i int) (string, error) {
	v, err := Output(values, i)
	if err != nil {
		return "", err
	}
	address, ok := v.(common.Address)
	if !ok {
		return "", fmt.Errorf("%w: output %d is %T, want address", ErrDecode, i, v)
	}
	return strings.ToLower(address.Hex()), nil
}

// BigOutput decodes output i as an unsigned integer of any width.
func BigOutput(values []any, i int) (*big.Int, error) {
	v, err := Output(values, i)
	if err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return new(big.Int), nil
		}
		return n, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	default:
		return nil, fmt.Errorf("%w: output %d is %T, want uint", ErrDecode, i, v)
	}
}

// StringOutput decodes output i as a string.
func StringOutput(values []any, i int) (string, error) {
	v, err := Output(values, i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: output %d is %T, want string", ErrDecode, i, v)
	}
	return s, nil
}

// BoolOutput decodes output i as a bool.
func BoolOutput(values []any, i int) (bool, error) {
	v, err := Output(values, i)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: output %d is %T, want bool", ErrDecode, i, v)
	}
	return b, nil
}
