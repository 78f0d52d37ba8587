package multicall

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
)

const testMulticall = "0x1ee38d535d541c55c9dae27b12edf090c608e6fb"

// fakeAggregator answers aggregate calls by handing each inner call to a
// per-target handler, so tests control the return blob of every position.
type fakeAggregator struct {
	t         *testing.T
	block     int64
	handler   func(target common.Address, callData []byte) ([]byte, error)
	callErr   error
	lastBlock *big.Int
	calls     int
}

func (f *fakeAggregator) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	f.lastBlock = blockNumber
	if f.callErr != nil {
		return nil, f.callErr
	}

	// Strip the 4-byte selector and unpack the (address,bytes)[] argument
	method := MulticallABI.Methods["aggregate"]
	args, err := method.Inputs.Unpack(msg.Data[4:])
	require.NoError(f.t, err)

	inner := *abi.ConvertType(args[0], new([]aggregateCall)).(*[]aggregateCall)

	returnData := make([][]byte, 0, len(inner))
	for _, call := range inner {
		blob, err := f.handler(call.Target, call.CallData)
		if err != nil {
			return nil, err
		}
		returnData = append(returnData, blob)
	}

	return method.Outputs.Pack(big.NewInt(f.block), returnData)
}

func (f *fakeAggregator) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAggregator) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAggregator) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAggregator) BlockNumber(context.Context) (uint64, error) {
	return 0, errors.New("not supported")
}

func (f *fakeAggregator) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAggregator) Close() {}

// fakeClients hands out distinct clients for the standard and archive roles
type fakeClients struct {
	standard adapter.EthClient
	archive  adapter.EthClient
}

func (f *fakeClients) Standard(context.Context, domain.ChainID) (adapter.EthClient, error) {
	return f.standard, nil
}

func (f *fakeClients) Archive(context.Context, domain.ChainID) (adapter.EthClient, error) {
	return f.archive, nil
}

func (f *fakeClients) Subscription(context.Context, domain.ChainID) (adapter.EthClient, error) {
	return f.standard, nil
}

func (f *fakeClients) Close() {}

func testChains() map[string]config.ChainConfig {
	return map[string]config.ChainConfig{
		"bsc": {
			ChainID: domain.ChainBSC,
			Nodes:   []string{"http://localhost:8545"},
			Contracts: config.ContractsConfig{
				Multicall: testMulticall,
			},
		},
	}
}

func packBalance(t *testing.T, amount *big.Int) []byte {
	t.Helper()
	blob, err := ERC20ABI.Methods["balanceOf"].Outputs.Pack(amount)
	require.NoError(t, err)
	return blob
}

func TestExecuteDecodesInCallOrder(t *testing.T) {
	// Each target answers with a distinct balance so a position swap would
	// surface as the wrong value landing in the wrong destination
	balances := map[common.Address]*big.Int{
		common.HexToAddress("0x0000000000000000000000000000000000000aaa"): big.NewInt(111),
		common.HexToAddress("0x0000000000000000000000000000000000000bbb"): big.NewInt(222),
		common.HexToAddress("0x0000000000000000000000000000000000000ccc"): big.NewInt(333),
	}
	client := &fakeAggregator{
		t:     t,
		block: 12345,
		handler: func(target common.Address, _ []byte) ([]byte, error) {
			return packBalance(t, balances[target]), nil
		},
	}
	c := NewCaller(&fakeClients{standard: client}, testChains())

	var a, b, d *big.Int
	holder := common.HexToAddress("0x0000000000000000000000000000000000000123")
	batch := NewBatch(ERC20ABI)
	batch.Add("0x0000000000000000000000000000000000000ccc", "balanceOf", BigInt(&d), holder)
	batch.Add("0x0000000000000000000000000000000000000aaa", "balanceOf", BigInt(&a), holder)
	batch.Add("0x0000000000000000000000000000000000000bbb", "balanceOf", BigInt(&b), holder)

	block, err := c.Execute(context.Background(), domain.ChainBSC, batch, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(12345), block)
	assert.Equal(t, int64(333), d.Int64())
	assert.Equal(t, int64(111), a.Int64())
	assert.Equal(t, int64(222), b.Int64())
	assert.Equal(t, 1, client.calls, "all calls should share one round trip")
}

func TestExecuteEmptyBatchSkipsRoundTrip(t *testing.T) {
	client := &fakeAggregator{t: t}
	c := NewCaller(&fakeClients{standard: client}, testChains())

	block, err := c.Execute(context.Background(), domain.ChainBSC, NewBatch(ERC20ABI), nil)
	require.NoError(t, err)

	assert.Zero(t, block)
	assert.Zero(t, client.calls)
}

func TestExecutePinnedBlockUsesArchiveClient(t *testing.T) {
	standard := &fakeAggregator{t: t, callErr: errors.New("standard client must not serve pinned reads")}
	archive := &fakeAggregator{
		t:     t,
		block: 777,
		handler: func(common.Address, []byte) ([]byte, error) {
			return packBalance(t, big.NewInt(1)), nil
		},
	}
	c := NewCaller(&fakeClients{standard: standard, archive: archive}, testChains())

	var balance *big.Int
	batch := NewBatch(ERC20ABI)
	batch.Add(testMulticall, "balanceOf", BigInt(&balance), common.Address{})

	pin := big.NewInt(16543530)
	block, err := c.Execute(context.Background(), domain.ChainBSC, batch, pin)
	require.NoError(t, err)

	assert.Equal(t, uint64(777), block)
	assert.Zero(t, standard.calls)
	require.NotNil(t, archive.lastBlock)
	assert.Equal(t, pin, archive.lastBlock)
}

func TestExecuteRevertFailsWholeBatch(t *testing.T) {
	client := &fakeAggregator{t: t, callErr: errors.New("execution reverted")}
	c := NewCaller(&fakeClients{standard: client}, testChains())

	var balance *big.Int
	batch := NewBatch(ERC20ABI)
	batch.Add(testMulticall, "balanceOf", BigInt(&balance), common.Address{})

	_, err := c.Execute(context.Background(), domain.ChainBSC, batch, nil)
	require.Error(t, err)
	assert.Nil(t, balance)
}

func TestExecuteUnknownChain(t *testing.T) {
	c := NewCaller(&fakeClients{}, testChains())

	var balance *big.Int
	batch := NewBatch(ERC20ABI)
	batch.Add(testMulticall, "balanceOf", BigInt(&balance), common.Address{})

	_, err := c.Execute(context.Background(), domain.ChainPolygon, batch, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}

func TestDecodeRejectsBlobCountMismatch(t *testing.T) {
	var balance *big.Int
	batch := NewBatch(ERC20ABI)
	batch.Add(testMulticall, "balanceOf", BigInt(&balance), common.Address{})
	batch.Add(testMulticall, "balanceOf", BigInt(&balance), common.Address{})

	err := batch.decode([][]byte{packBalance(t, big.NewInt(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 blobs for 2 calls")
}
