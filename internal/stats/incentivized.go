package stats

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/multicall"
)

// incentivizedReader values the configured fixed-duration reward pools.
// Pools outside their [startBlock, bonusEndBlock] window report APR 0.
type incentivizedReader struct {
	caller multicall.Caller
	chains map[string]config.ChainConfig
}

func newIncentivizedReader(caller multicall.Caller, chains map[string]config.ChainConfig) *incentivizedReader {
	return &incentivizedReader{caller: caller, chains: chains}
}

func (r *incentivizedReader) pools(ctx context.Context, chainID domain.ChainID, prices domain.PriceMap) ([]domain.IncentivizedPool, error) {
	cfg, err := config.Chain(r.chains, chainID)
	if err != nil {
		return nil, err
	}
	if len(cfg.IncentivizedPools) == 0 {
		return nil, nil
	}

	count := len(cfg.IncentivizedPools)
	startBlocks := make([]*big.Int, count)
	endBlocks := make([]*big.Int, count)
	rewardRates := make([]*big.Int, count)
	staked := make([]*big.Int, count)
	stakedDecimals := make([]uint8, count)
	rewardDecimals := make([]uint8, count)

	batch := multicall.NewBatch(multicall.RewardPoolABI)
	for i, pool := range cfg.IncentivizedPools {
		batch.Add(pool.Address, "startBlock", multicall.BigInt(&startBlocks[i]))
		batch.Add(pool.Address, "bonusEndBlock", multicall.BigInt(&endBlocks[i]))
		batch.Add(pool.Address, "rewardPerBlock", multicall.BigInt(&rewardRates[i]))
		batch.AddWithABI(multicall.ERC20ABI, pool.StakedToken, "balanceOf", multicall.BigInt(&staked[i]),
			common.HexToAddress(pool.Address))
		batch.AddWithABI(multicall.ERC20ABI, pool.StakedToken, "decimals", multicall.Uint8(&stakedDecimals[i]))
		batch.AddWithABI(multicall.ERC20ABI, pool.RewardToken, "decimals", multicall.Uint8(&rewardDecimals[i]))
	}
	currentBlock, err := r.caller.Execute(ctx, chainID, batch, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read incentivized pools: %w", err)
	}

	// Staked LP tokens are not on the hosted token list, so the price
	// getter values them directly.
	var lpPools []int
	for i, pool := range cfg.IncentivizedPools {
		if !pool.StakedIsLP {
			continue
		}
		if _, ok := prices.Price(pool.StakedToken); !ok {
			lpPools = append(lpPools, i)
		}
	}
	if len(lpPools) > 0 && cfg.Contracts.PriceGetter != "" {
		lpPrices := make([]*big.Int, len(lpPools))
		batch = multicall.NewBatch(multicall.PriceGetterABI)
		for j, i := range lpPools {
			pool := cfg.IncentivizedPools[i]
			batch.Add(cfg.Contracts.PriceGetter, "getLPPrice", multicall.BigInt(&lpPrices[j]),
				common.HexToAddress(pool.StakedToken), big.NewInt(int64(stakedDecimals[i])))
		}
		if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
			return nil, fmt.Errorf("failed to price staked LP tokens: %w", err)
		}
		for j, i := range lpPools {
			pool := cfg.IncentivizedPools[i]
			prices[domain.NormalizeAddress(pool.StakedToken)] = domain.TokenPrice{
				USD:      FormatUnits(lpPrices[j], stakedDecimals[i]),
				Decimals: stakedDecimals[i],
			}
		}
	}

	pools := make([]domain.IncentivizedPool, 0, count)
	for i, pool := range cfg.IncentivizedPools {
		start := startBlocks[i].Uint64()
		end := endBlocks[i].Uint64()
		active := start <= currentBlock && currentBlock <= end

		stakedPrice, _ := prices.Price(pool.StakedToken)
		rewardPrice, _ := prices.Price(pool.RewardToken)
		stakedTvl := FormatUnits(staked[i], stakedDecimals[i]) * stakedPrice.USD

		var rewardsPerDay, apr float64
		if active {
			rewardsPerDay = FormatUnits(rewardRates[i], rewardDecimals[i]) * domain.SECONDS_PER_DAY / blockSeconds
			apr = FarmAPR(rewardsPerDay, rewardPrice.USD, stakedTvl)
		}

		pools = append(pools, domain.IncentivizedPool{
			ID:            pool.ID,
			Name:          pool.Name,
			Address:       domain.NormalizeAddress(pool.Address),
			Active:        active,
			StartBlock:    start,
			BonusEndBlock: end,
			StakedToken:   domain.NormalizeAddress(pool.StakedToken),
			RewardToken:   domain.NormalizeAddress(pool.RewardToken),
			RewardsPerDay: rewardsPerDay,
			StakedTvl:     stakedTvl,
			APR:           apr,
		})
	}
	return pools, nil
}
