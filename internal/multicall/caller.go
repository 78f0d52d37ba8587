package multicall

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/digiswap/stats-api/internal/chain"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
)

// Caller executes batches against the per-chain aggregator contract
type Caller interface {
	// Execute runs every call of the batch as one round trip against the
	// chain's aggregator contract and decodes the results in order. A nil
	// blockNumber reads the latest state; a non-nil one pins the whole batch
	// to that block via the archive client. Any reverting call fails the
	// entire batch; there are no partial results.
	Execute(ctx context.Context, chainID domain.ChainID, batch *Batch, blockNumber *big.Int) (uint64, error)
}

type caller struct {
	clients chain.Clients
	chains  map[string]config.ChainConfig
}

// NewCaller creates a batch caller over the configured chains
func NewCaller(clients chain.Clients, chains map[string]config.ChainConfig) Caller {
	return &caller{clients: clients, chains: chains}
}

// aggregateCall mirrors the (address,bytes) tuple of the aggregate method
type aggregateCall struct {
	Target   common.Address
	CallData []byte
}

func (c *caller) Execute(ctx context.Context, chainID domain.ChainID, batch *Batch, blockNumber *big.Int) (uint64, error) {
	if batch.Size() == 0 {
		return 0, nil
	}

	cfg, err := config.Chain(c.chains, chainID)
	if err != nil {
		return 0, err
	}

	// Historical reads need the archive node
	client, err := c.clients.Standard(ctx, chainID)
	if blockNumber != nil {
		client, err = c.clients.Archive(ctx, chainID)
	}
	if err != nil {
		return 0, err
	}

	// Pack each call into (target, calldata)
	aggCalls := make([]aggregateCall, 0, batch.Size())
	for i, call := range batch.calls {
		data, err := call.abi.Pack(call.Method, call.Args...)
		if err != nil {
			return 0, fmt.Errorf("failed to pack %s on %s (call %d): %w", call.Method, call.Target.Hex(), i, err)
		}
		aggCalls = append(aggCalls, aggregateCall{Target: call.Target, CallData: data})
	}

	input, err := MulticallABI.Pack("aggregate", aggCalls)
	if err != nil {
		return 0, fmt.Errorf("failed to pack aggregate: %w", err)
	}

	aggregator := common.HexToAddress(cfg.Contracts.Multicall)
	output, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &aggregator,
		Data: input,
	}, blockNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to call aggregate on chain %d: %w", uint64(chainID), err)
	}

	values, err := MulticallABI.Unpack("aggregate", output)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack aggregate: %w", err)
	}

	block, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("expected *big.Int block number, got %T", values[0])
	}
	returnData, ok := values[1].([][]byte)
	if !ok {
		return 0, fmt.Errorf("expected [][]byte return data, got %T", values[1])
	}

	if err := batch.decode(returnData); err != nil {
		return 0, err
	}

	return block.Uint64(), nil
}
