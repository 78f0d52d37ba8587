package stats

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/multicall"
)

// dualFarmReader values minichef farms, which emit DIGI per second plus an
// optional second reward token through an attached rewarder contract.
type dualFarmReader struct {
	caller multicall.Caller
	chains map[string]config.ChainConfig
}

func newDualFarmReader(caller multicall.Caller, chains map[string]config.ChainConfig) *dualFarmReader {
	return &dualFarmReader{caller: caller, chains: chains}
}

func (r *dualFarmReader) farms(ctx context.Context, chainID domain.ChainID, prices domain.PriceMap) ([]domain.DualFarmStats, error) {
	cfg, err := config.Chain(r.chains, chainID)
	if err != nil {
		return nil, err
	}
	if cfg.Contracts.MiniChef == "" {
		return nil, nil
	}
	chef := cfg.Contracts.MiniChef

	var (
		poolLength *big.Int
		totalAlloc *big.Int
		perSecond  *big.Int
	)
	batch := multicall.NewBatch(multicall.MiniChefABI)
	batch.Add(chef, "poolLength", multicall.BigInt(&poolLength))
	batch.Add(chef, "totalAllocPoint", multicall.BigInt(&totalAlloc))
	batch.Add(chef, "digiPerSecond", multicall.BigInt(&perSecond))
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, fmt.Errorf("failed to read minichef globals: %w", err)
	}

	count := int(poolLength.Int64())
	lpTokens := make([]common.Address, count)
	rewarders := make([]common.Address, count)
	allocs := make([]*big.Int, count)
	batch = multicall.NewBatch(multicall.MiniChefABI)
	for i := 0; i < count; i++ {
		i := i
		batch.Add(chef, "lpToken", multicall.Address(&lpTokens[i]), big.NewInt(int64(i)))
		batch.Add(chef, "rewarder", multicall.Address(&rewarders[i]), big.NewInt(int64(i)))
		batch.Add(chef, "poolInfo", func(values []interface{}) error {
			if len(values) != 3 {
				return fmt.Errorf("unexpected poolInfo shape")
			}
			alloc, ok := values[2].(uint64)
			if !ok {
				return fmt.Errorf("expected uint64 allocPoint, got %T", values[2])
			}
			allocs[i] = new(big.Int).SetUint64(alloc)
			return nil
		}, big.NewInt(int64(i)))
	}
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, fmt.Errorf("failed to read minichef pools: %w", err)
	}

	digiPerSecond := FormatUnits(perSecond, 18)
	totalAllocPoints := FormatUnits(totalAlloc, 0)

	farms := make([]domain.DualFarmStats, 0, count)
	for i := 0; i < count; i++ {
		farm, err := r.readFarm(ctx, chainID, cfg, i, lpTokens[i], rewarders[i],
			PoolRewardsPerDay(FormatUnits(allocs[i], 0), totalAllocPoints, digiPerSecond), prices)
		if err != nil {
			logger.WarnCtx(ctx, "failed to value dual farm",
				zap.Int("pool_index", i),
				zap.Uint64("chain_id", uint64(chainID)),
				zap.Error(err))
			continue
		}
		farms = append(farms, *farm)
	}
	return farms, nil
}

func (r *dualFarmReader) readFarm(ctx context.Context, chainID domain.ChainID, cfg *config.ChainConfig, index int, lpToken, rewarder common.Address, digiPerSecond float64, prices domain.PriceMap) (*domain.DualFarmStats, error) {
	var (
		q0, q1   *big.Int
		decimals uint8
		token0   common.Address
		token1   common.Address
		supply   *big.Int
		staked   *big.Int
	)
	lp := lpToken.Hex()
	batch := multicall.NewBatch(multicall.PairABI)
	batch.Add(lp, "getReserves", func(values []interface{}) error {
		if len(values) != 3 {
			return fmt.Errorf("unexpected getReserves shape")
		}
		q0 = values[0].(*big.Int)
		q1 = values[1].(*big.Int)
		return nil
	})
	batch.Add(lp, "decimals", multicall.Uint8(&decimals))
	batch.Add(lp, "token0", multicall.Address(&token0))
	batch.Add(lp, "token1", multicall.Address(&token1))
	batch.Add(lp, "totalSupply", multicall.BigInt(&supply))
	batch.Add(lp, "balanceOf", multicall.BigInt(&staked), common.HexToAddress(cfg.Contracts.MiniChef))

	hasRewarder := !domain.SameAddress(rewarder.Hex(), domain.EVM_ZERO_ADDRESS)
	var (
		rewardRate  *big.Int
		rewardToken common.Address
	)
	if hasRewarder {
		batch.AddWithABI(multicall.RewarderABI, rewarder.Hex(), "rewardPerSecond", multicall.BigInt(&rewardRate))
		batch.AddWithABI(multicall.RewarderABI, rewarder.Hex(), "rewardToken", multicall.Address(&rewardToken))
	}
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, err
	}

	t0 := domain.NormalizeAddress(token0.Hex())
	t1 := domain.NormalizeAddress(token1.Hex())
	var p0, p1 *float64
	if price, ok := prices.Price(t0); ok {
		p0 = &price.USD
	}
	if price, ok := prices.Price(t1); ok {
		p1 = &price.USD
	}

	t0Meta, ok0 := prices.Price(t0)
	t1Meta, ok1 := prices.Price(t1)
	d0, d1 := uint8(18), uint8(18)
	if ok0 {
		d0 = t0Meta.Decimals
	}
	if ok1 {
		d1 = t1Meta.Decimals
	}

	price0, price1, ok := InferPoolPrices(FormatUnits(q0, d0), FormatUnits(q1, d1), p0, p1)
	if !ok {
		return nil, fmt.Errorf("no known price for either pool side of %s", lp)
	}

	tvl := PoolTVL(FormatUnits(q0, d0), price0, FormatUnits(q1, d1), price1)
	lpPrice := LPPrice(tvl, FormatUnits(supply, decimals))
	stakedTvl := FormatUnits(staked, decimals) * lpPrice

	digiPrice, _ := prices.Price(cfg.Contracts.Digichain)
	var secondaryPrice, secondaryPerSecond float64
	secondaryAddress := ""
	if hasRewarder {
		secondary, _ := prices.Price(rewardToken.Hex())
		secondaryPrice = secondary.USD
		secondaryPerSecond = FormatUnits(rewardRate, 18)
		secondaryAddress = domain.NormalizeAddress(rewardToken.Hex())
	}

	return &domain.DualFarmStats{
		PoolIndex:       index,
		Address:         domain.NormalizeAddress(lp),
		Token0:          t0,
		Token1:          t1,
		StakedTvl:       stakedTvl,
		RewardToken:     domain.NormalizeAddress(cfg.Contracts.Digichain),
		SecondaryReward: secondaryAddress,
		APR:             DualFarmAPR(stakedTvl, digiPrice.USD, digiPerSecond, secondaryPrice, secondaryPerSecond),
	}, nil
}
