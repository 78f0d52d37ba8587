package stats

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
	"github.com/digiswap/stats-api/internal/chain"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/multicall"
)

const (
	testPoolContract = "0x0000000000000000000000000000000000000a01"
	testStakedLP     = "0x0000000000000000000000000000000000000a02"
	testRewardToken  = "0x0000000000000000000000000000000000000a03"
	testPriceGetter  = "0x0000000000000000000000000000000000000a04"
	testAggregator   = "0x0000000000000000000000000000000000000a05"
)

// selectorClient answers aggregate calls by routing every inner call to a
// handler keyed on the 4-byte method selector.
type selectorClient struct {
	t        *testing.T
	block    int64
	handlers map[string]func(target common.Address, callData []byte) ([]byte, error)
}

func (c *selectorClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method := multicall.MulticallABI.Methods["aggregate"]
	args, err := method.Inputs.Unpack(msg.Data[4:])
	require.NoError(c.t, err)

	inner := *abi.ConvertType(args[0], new([]struct {
		Target   common.Address
		CallData []byte
	})).(*[]struct {
		Target   common.Address
		CallData []byte
	})

	returnData := make([][]byte, 0, len(inner))
	for _, call := range inner {
		handler := c.handlers[string(call.CallData[:4])]
		require.NotNil(c.t, handler, "no handler for selector %x", call.CallData[:4])
		blob, err := handler(call.Target, call.CallData)
		if err != nil {
			return nil, err
		}
		returnData = append(returnData, blob)
	}
	return method.Outputs.Pack(big.NewInt(c.block), returnData)
}

func (c *selectorClient) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, errors.New("not supported")
}

func (c *selectorClient) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (c *selectorClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return nil, errors.New("not supported")
}

func (c *selectorClient) BlockNumber(context.Context) (uint64, error) {
	return 0, errors.New("not supported")
}

func (c *selectorClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, errors.New("not supported")
}

func (c *selectorClient) Close() {}

type singleClient struct {
	client adapter.EthClient
}

func (f *singleClient) Standard(context.Context, domain.ChainID) (adapter.EthClient, error) {
	return f.client, nil
}

func (f *singleClient) Archive(context.Context, domain.ChainID) (adapter.EthClient, error) {
	return f.client, nil
}

func (f *singleClient) Subscription(context.Context, domain.ChainID) (adapter.EthClient, error) {
	return f.client, nil
}

func (f *singleClient) Close() {}

var _ chain.Clients = (*singleClient)(nil)

func packOutput(t *testing.T, method abi.Method, values ...any) []byte {
	t.Helper()
	blob, err := method.Outputs.Pack(values...)
	require.NoError(t, err)
	return blob
}

func TestIncentivizedPoolsPriceStakedLPThroughGetter(t *testing.T) {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	var lpPriceRequests []common.Address
	client := &selectorClient{
		t:     t,
		block: 150,
		handlers: map[string]func(common.Address, []byte) ([]byte, error){
			string(multicall.RewardPoolABI.Methods["startBlock"].ID): func(common.Address, []byte) ([]byte, error) {
				return packOutput(t, multicall.RewardPoolABI.Methods["startBlock"], big.NewInt(100)), nil
			},
			string(multicall.RewardPoolABI.Methods["bonusEndBlock"].ID): func(common.Address, []byte) ([]byte, error) {
				return packOutput(t, multicall.RewardPoolABI.Methods["bonusEndBlock"], big.NewInt(200)), nil
			},
			string(multicall.RewardPoolABI.Methods["rewardPerBlock"].ID): func(common.Address, []byte) ([]byte, error) {
				return packOutput(t, multicall.RewardPoolABI.Methods["rewardPerBlock"], scale), nil
			},
			string(multicall.ERC20ABI.Methods["balanceOf"].ID): func(common.Address, []byte) ([]byte, error) {
				staked := new(big.Int).Mul(big.NewInt(10), scale)
				return packOutput(t, multicall.ERC20ABI.Methods["balanceOf"], staked), nil
			},
			string(multicall.ERC20ABI.Methods["decimals"].ID): func(common.Address, []byte) ([]byte, error) {
				return packOutput(t, multicall.ERC20ABI.Methods["decimals"], uint8(18)), nil
			},
			string(multicall.PriceGetterABI.Methods["getLPPrice"].ID): func(target common.Address, callData []byte) ([]byte, error) {
				require.Equal(t, common.HexToAddress(testPriceGetter), target)
				args, err := multicall.PriceGetterABI.Methods["getLPPrice"].Inputs.Unpack(callData[4:])
				require.NoError(t, err)
				lpPriceRequests = append(lpPriceRequests, args[0].(common.Address))
				price := new(big.Int).Mul(big.NewInt(5), scale)
				return packOutput(t, multicall.PriceGetterABI.Methods["getLPPrice"], price), nil
			},
		},
	}

	chains := map[string]config.ChainConfig{
		"bsc": {
			ChainID: domain.ChainBSC,
			Nodes:   []string{"http://localhost:8545"},
			Contracts: config.ContractsConfig{
				Multicall:   testAggregator,
				PriceGetter: testPriceGetter,
			},
			IncentivizedPools: []config.IncentivizedPoolConfig{{
				ID:          1,
				Name:        "LP pool",
				Address:     testPoolContract,
				StakedToken: testStakedLP,
				StakedIsLP:  true,
				RewardToken: testRewardToken,
			}},
		},
	}
	caller := multicall.NewCaller(&singleClient{client: client}, chains)
	reader := newIncentivizedReader(caller, chains)

	prices := domain.PriceMap{
		domain.NormalizeAddress(testRewardToken): {USD: 2, Decimals: 18},
	}
	pools, err := reader.pools(context.Background(), domain.ChainBSC, prices)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	require.Len(t, lpPriceRequests, 1)
	assert.Equal(t, common.HexToAddress(testStakedLP), lpPriceRequests[0])

	// 10 staked LP tokens at the 5 USD getter price
	assert.True(t, pools[0].Active)
	assert.InDelta(t, 50.0, pools[0].StakedTvl, 1e-9)
	lpPrice, ok := prices.Price(testStakedLP)
	require.True(t, ok)
	assert.InDelta(t, 5.0, lpPrice.USD, 1e-9)
}
