package stats

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/multicall"
)

// BSC block time in seconds, used to scale per-block emission to per-day.
const blockSeconds = 3

// poolToken describes the staking token of one masterchef pool: either an LP
// pair or a plain token.
type poolToken struct {
	address     string
	isLP        bool
	symbol      string
	token0      string
	token1      string
	q0          *big.Int
	q1          *big.Int
	totalSupply float64
	staked      float64
	decimals    uint8
}

// chefPool pairs a pool index with its resolved staking token.
type chefPool struct {
	index       int
	allocPoints float64
	token       *poolToken
}

// chefState is the full masterchef view one computation pass works from.
type chefState struct {
	chefAddress      string
	totalAllocPoints float64
	rewardsPerDay    float64
	pools            []chefPool
}

// chefReader gathers masterchef and staking token state through multicall
// batches. Each pool resolves independently so one incompatible token does
// not sink the whole pass.
type chefReader struct {
	caller multicall.Caller
	pool   pond.Pool
}

func newChefReader(caller multicall.Caller, pool pond.Pool) *chefReader {
	return &chefReader{caller: caller, pool: pool}
}

func (r *chefReader) read(ctx context.Context, chainID domain.ChainID, chefAddress string) (*chefState, error) {
	var (
		poolLength *big.Int
		totalAlloc *big.Int
		perBlock   *big.Int
	)
	batch := multicall.NewBatch(multicall.MasterChefABI)
	batch.Add(chefAddress, "poolLength", multicall.BigInt(&poolLength))
	batch.Add(chefAddress, "totalAllocPoint", multicall.BigInt(&totalAlloc))
	batch.Add(chefAddress, "digiPerBlock", multicall.BigInt(&perBlock))
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, fmt.Errorf("failed to read masterchef globals: %w", err)
	}

	count := int(poolLength.Int64())
	state := &chefState{
		chefAddress:      chefAddress,
		totalAllocPoints: FormatUnits(totalAlloc, 0),
		rewardsPerDay:    FormatUnits(perBlock, 18) * domain.SECONDS_PER_DAY / blockSeconds,
		pools:            make([]chefPool, count),
	}

	type poolInfo struct {
		LpToken         common.Address
		AllocPoint      *big.Int
		LastRewardBlock *big.Int
		AccDigiPerShare *big.Int
	}
	infos := make([]poolInfo, count)
	for _, indexes := range Chunk(indexRange(count), priceChunkSize) {
		batch := multicall.NewBatch(multicall.MasterChefABI)
		for _, i := range indexes {
			i := i
			batch.Add(chefAddress, "poolInfo", func(values []interface{}) error {
				if len(values) != 4 {
					return fmt.Errorf("unexpected poolInfo shape for pid %d", i)
				}
				infos[i] = poolInfo{
					LpToken:    values[0].(common.Address),
					AllocPoint: values[1].(*big.Int),
				}
				return nil
			}, big.NewInt(int64(i)))
		}
		if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
			return nil, fmt.Errorf("failed to read pool infos: %w", err)
		}
	}

	var mu sync.Mutex
	group := r.pool.NewGroupContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		group.Submit(func() {
			token := r.resolveToken(ctx, chainID, infos[i].LpToken.Hex(), chefAddress)
			mu.Lock()
			state.pools[i] = chefPool{
				index:       i,
				allocPoints: FormatUnits(infos[i].AllocPoint, 0),
				token:       token,
			}
			mu.Unlock()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to resolve pool tokens: %w", err)
	}

	return state, nil
}

// resolveToken tries the LP interface first, then falls back to plain token
// methods. A nil result excludes the pool from the pass.
func (r *chefReader) resolveToken(ctx context.Context, chainID domain.ChainID, tokenAddress, chefAddress string) *poolToken {
	if domain.SameAddress(tokenAddress, domain.EVM_ZERO_ADDRESS) {
		return nil
	}

	if token, err := r.readLPToken(ctx, chainID, tokenAddress, chefAddress); err == nil {
		return token
	}

	token, err := r.readPlainToken(ctx, chainID, tokenAddress, chefAddress)
	if err != nil {
		logger.WarnCtx(ctx, "failed to resolve staking token",
			zap.String("token", tokenAddress),
			zap.Uint64("chain_id", uint64(chainID)),
			zap.Error(err))
		return nil
	}
	return token
}

func (r *chefReader) readLPToken(ctx context.Context, chainID domain.ChainID, tokenAddress, stakingAddress string) (*poolToken, error) {
	var (
		q0, q1      *big.Int
		decimals    uint8
		token0      common.Address
		token1      common.Address
		supply      *big.Int
		staked      *big.Int
	)
	batch := multicall.NewBatch(multicall.PairABI)
	batch.Add(tokenAddress, "getReserves", func(values []interface{}) error {
		if len(values) != 3 {
			return fmt.Errorf("unexpected getReserves shape")
		}
		q0 = values[0].(*big.Int)
		q1 = values[1].(*big.Int)
		return nil
	})
	batch.Add(tokenAddress, "decimals", multicall.Uint8(&decimals))
	batch.Add(tokenAddress, "token0", multicall.Address(&token0))
	batch.Add(tokenAddress, "token1", multicall.Address(&token1))
	batch.Add(tokenAddress, "totalSupply", multicall.BigInt(&supply))
	batch.Add(tokenAddress, "balanceOf", multicall.BigInt(&staked), common.HexToAddress(stakingAddress))
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, err
	}

	return &poolToken{
		address:     domain.NormalizeAddress(tokenAddress),
		isLP:        true,
		token0:      domain.NormalizeAddress(token0.Hex()),
		token1:      domain.NormalizeAddress(token1.Hex()),
		q0:          q0,
		q1:          q1,
		totalSupply: FormatUnits(supply, decimals),
		staked:      FormatUnits(staked, decimals),
		decimals:    decimals,
	}, nil
}

func (r *chefReader) readPlainToken(ctx context.Context, chainID domain.ChainID, tokenAddress, stakingAddress string) (*poolToken, error) {
	var (
		symbol   string
		decimals uint8
		supply   *big.Int
		staked   *big.Int
	)
	batch := multicall.NewBatch(multicall.ERC20ABI)
	batch.Add(tokenAddress, "symbol", multicall.String(&symbol))
	batch.Add(tokenAddress, "decimals", multicall.Uint8(&decimals))
	batch.Add(tokenAddress, "totalSupply", multicall.BigInt(&supply))
	batch.Add(tokenAddress, "balanceOf", multicall.BigInt(&staked), common.HexToAddress(stakingAddress))
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, err
	}

	return &poolToken{
		address:     domain.NormalizeAddress(tokenAddress),
		symbol:      symbol,
		totalSupply: FormatUnits(supply, decimals),
		staked:      FormatUnits(staked, decimals),
		decimals:    decimals,
	}, nil
}

// tokenSymbols resolves display symbols and decimals for the constituent
// tokens of LP pools, one batch per chunk.
func (r *chefReader) tokenSymbols(ctx context.Context, chainID domain.ChainID, addresses []string) (map[string]tokenMeta, error) {
	metas := make(map[string]tokenMeta, len(addresses))
	for _, group := range Chunk(addresses, priceChunkSize/2) {
		symbols := make([]string, len(group))
		decimals := make([]uint8, len(group))
		batch := multicall.NewBatch(multicall.ERC20ABI)
		for i, address := range group {
			batch.Add(address, "symbol", multicall.String(&symbols[i]))
			batch.Add(address, "decimals", multicall.Uint8(&decimals[i]))
		}
		if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
			return nil, fmt.Errorf("failed to read token symbols: %w", err)
		}
		for i, address := range group {
			metas[domain.NormalizeAddress(address)] = tokenMeta{symbol: symbols[i], decimals: decimals[i]}
		}
	}
	return metas, nil
}

type tokenMeta struct {
	symbol   string
	decimals uint8
}

func indexRange(n int) []int {
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	return indexes
}
