package multicall

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Call is one read request paired with the decoder of its return blob. The
// pairing happens at construction time so results can never be decoded with
// the wrong signature.
type Call struct {
	Target common.Address
	Method string
	Args   []interface{}

	abi    abi.ABI
	assign func(values []interface{}) error
}

// Batch is an ordered sequence of calls executed in one network round trip.
// Decode order always matches call order; position is the only correlation
// key.
type Batch struct {
	defaultABI abi.ABI
	calls      []Call
}

// NewBatch creates a batch whose calls share one contract interface
func NewBatch(contractABI abi.ABI) *Batch {
	return &Batch{defaultABI: contractABI}
}

// Add appends a call against the batch's default interface. The target is a
// hex address string, the form contract addresses take in configuration.
func (b *Batch) Add(target string, method string, assign func(values []interface{}) error, args ...interface{}) {
	b.AddWithABI(b.defaultABI, target, method, assign, args...)
}

// AddWithABI appends a call with an explicit interface, for batches mixing
// contract types
func (b *Batch) AddWithABI(contractABI abi.ABI, target string, method string, assign func(values []interface{}) error, args ...interface{}) {
	b.calls = append(b.calls, Call{
		Target: common.HexToAddress(target),
		Method: method,
		Args:   args,
		abi:    contractABI,
		assign: assign,
	})
}

// Size returns the number of calls in the batch
func (b *Batch) Size() int {
	return len(b.calls)
}

// decode applies each call's decoder to its positional return blob
func (b *Batch) decode(returnData [][]byte) error {
	if len(returnData) != len(b.calls) {
		return fmt.Errorf("aggregate returned %d blobs for %d calls", len(returnData), len(b.calls))
	}

	for i, call := range b.calls {
		values, err := call.abi.Unpack(call.Method, returnData[i])
		if err != nil {
			return fmt.Errorf("failed to unpack %s on %s (call %d): %w", call.Method, call.Target.Hex(), i, err)
		}
		if call.assign == nil {
			continue
		}
		if err := call.assign(values); err != nil {
			return fmt.Errorf("failed to decode %s on %s (call %d): %w", call.Method, call.Target.Hex(), i, err)
		}
	}

	return nil
}

// BigInt decodes a single uint256 output
func BigInt(dst **big.Int) func(values []interface{}) error {
	return func(values []interface{}) error {
		v, ok := values[0].(*big.Int)
		if !ok {
			return fmt.Errorf("expected *big.Int, got %T", values[0])
		}
		*dst = v
		return nil
	}
}

// Address decodes a single address output
func Address(dst *common.Address) func(values []interface{}) error {
	return func(values []interface{}) error {
		v, ok := values[0].(common.Address)
		if !ok {
			return fmt.Errorf("expected common.Address, got %T", values[0])
		}
		*dst = v
		return nil
	}
}

// String decodes a single string output
func String(dst *string) func(values []interface{}) error {
	return func(values []interface{}) error {
		v, ok := values[0].(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", values[0])
		}
		*dst = v
		return nil
	}
}

// Uint8 decodes a single uint8 output
func Uint8(dst *uint8) func(values []interface{}) error {
	return func(values []interface{}) error {
		v, ok := values[0].(uint8)
		if !ok {
			return fmt.Errorf("expected uint8, got %T", values[0])
		}
		*dst = v
		return nil
	}
}

// Addresses decodes a single address[] output
func Addresses(dst *[]common.Address) func(values []interface{}) error {
	return func(values []interface{}) error {
		v, ok := values[0].([]common.Address)
		if !ok {
			return fmt.Errorf("expected []common.Address, got %T", values[0])
		}
		*dst = v
		return nil
	}
}

// Values captures the raw output tuple for multi-output methods
func Values(dst *[]interface{}) func(values []interface{}) error {
	return func(values []interface{}) error {
		*dst = values
		return nil
	}
}
