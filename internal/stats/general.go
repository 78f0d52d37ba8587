package stats

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
)

// computeGeneralStats builds the protocol-wide snapshot on the primary
// chain. Partial failures in side sections (lending, bills, incentivized
// pools) degrade to empty sections instead of aborting the pass.
func (e *Engine) computeGeneralStats(ctx context.Context) (domain.GeneralStats, error) {
	chainID := e.primaryChain
	cfg, err := config.Chain(e.chains, chainID)
	if err != nil {
		return domain.GeneralStats{}, err
	}

	prices, err := e.prices.TokenPrices(ctx, chainID)
	if err != nil {
		return domain.GeneralStats{}, fmt.Errorf("failed to build price map: %w", err)
	}

	chef, err := e.chef.read(ctx, chainID, cfg.Contracts.MasterChef)
	if err != nil {
		return domain.GeneralStats{}, err
	}

	pools, farms, err := e.priceChefPools(ctx, chainID, cfg, chef, prices)
	if err != nil {
		return domain.GeneralStats{}, err
	}

	digiPrice, _ := prices.Price(cfg.Contracts.Digichain)

	stats := domain.GeneralStats{
		DigiPrice:  digiPrice.USD,
		GDigiPrice: GDigiPrice(digiPrice.USD),
		Pools:      pools,
		Farms:      farms,
		CreatedAt:  e.clock.Now(),
	}

	supply, err := e.supply.burnAndSupply(ctx, chainID, digiPrice.USD)
	if err != nil {
		return domain.GeneralStats{}, err
	}
	stats.BurntAmount = supply.BurntAmount
	stats.TotalSupply = supply.TotalSupply
	stats.CirculatingSupply = supply.CirculatingSupply
	stats.MarketCap = supply.MarketCap

	if gdigi, err := e.supply.gdigiCirculating(ctx, chainID); err == nil {
		stats.GDigiCirculatingSupply = gdigi
	} else {
		logger.WarnCtx(ctx, "failed to read governance supply", zap.Error(err))
	}

	if markets, lendingTvl, err := e.lending.markets(ctx, chainID, prices, digiPrice.USD); err == nil {
		stats.LendingMarkets = markets
		stats.LendingTvl = lendingTvl
	} else {
		logger.WarnCtx(ctx, "failed to read lending markets", zap.Error(err))
	}

	if quotes, err := e.bills.quotes(ctx, chainID); err == nil {
		stats.Bills = quotes
	} else {
		logger.WarnCtx(ctx, "failed to read bill quotes", zap.Error(err))
	}

	if incentivized, err := e.incentivized.pools(ctx, chainID, prices); err == nil {
		stats.IncentivizedPools = incentivized
	} else {
		logger.WarnCtx(ctx, "failed to read incentivized pools", zap.Error(err))
	}

	// Exchange-wide liquidity and volume come from the subgraphs; the
	// rollup degrades to on-chain TVL only when they are unavailable.
	var totalLiquidity, totalVolume float64
	for _, chain := range e.chains {
		totals, err := e.subgraph.Totals(ctx, domain.ChainID(chain.ChainID))
		if err != nil {
			logger.WarnCtx(ctx, "failed to read exchange totals",
				zap.Uint64("chain_id", uint64(chain.ChainID)), zap.Error(err))
			continue
		}
		totalLiquidity += totals.LiquidityUSD
		totalVolume += totals.VolumeUSD
	}
	stats.TotalLiquidity = totalLiquidity
	stats.TotalVolume = totalVolume
	stats.TVL = totalLiquidity + poolsTvl(stats) + stats.LendingTvl

	return stats, nil
}

// priceChefPools runs the pricing pass over the masterchef pools, splitting
// them into single-token pools and LP farms.
func (e *Engine) priceChefPools(ctx context.Context, chainID domain.ChainID, cfg *config.ChainConfig, chef *chefState, prices domain.PriceMap) ([]domain.PoolStats, []domain.FarmStats, error) {
	addressSet := make(map[string]struct{})
	for _, pool := range chef.pools {
		if pool.token != nil && pool.token.isLP {
			addressSet[pool.token.token0] = struct{}{}
			addressSet[pool.token.token1] = struct{}{}
		}
	}
	addresses := make([]string, 0, len(addressSet))
	for address := range addressSet {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	metas, err := e.chef.tokenSymbols(ctx, chainID, addresses)
	if err != nil {
		return nil, nil, err
	}

	var (
		pools []domain.PoolStats
		farms []domain.FarmStats
	)
	for _, pool := range chef.pools {
		if pool.token == nil {
			continue
		}
		if pool.token.isLP {
			if farm := priceFarm(metas, prices, pool, chef.totalAllocPoints, chef.rewardsPerDay, cfg.Contracts.Digichain); farm != nil {
				farms = append(farms, *farm)
			}
		} else {
			if stats := pricePool(prices, pool, chef.totalAllocPoints, chef.rewardsPerDay, cfg.Contracts.Digichain); stats != nil {
				pools = append(pools, *stats)
			}
		}
	}
	return pools, farms, nil
}

// poolsTvl sums the staked value of single-token pools, including
// single-token incentivized pools.
func poolsTvl(stats domain.GeneralStats) float64 {
	var sum float64
	for _, pool := range stats.Pools {
		sum += pool.StakedTvl
	}
	for _, pool := range stats.IncentivizedPools {
		sum += pool.StakedTvl
	}
	return sum
}
