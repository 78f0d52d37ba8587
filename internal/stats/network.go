package stats

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/logger"
)

// computeNetworkStats builds the per-chain snapshot. The primary chain
// reuses the general pass's farms; other chains run the minichef dual-farm
// pass against their own price map.
func (e *Engine) computeNetworkStats(ctx context.Context, chainID domain.ChainID) (domain.NetworkStats, error) {
	cfg, err := config.Chain(e.chains, chainID)
	if err != nil {
		return domain.NetworkStats{}, err
	}

	stats := domain.NetworkStats{
		ChainID:   chainID,
		CreatedAt: e.clock.Now(),
	}

	if chainID == e.primaryChain {
		general := e.GeneralStats(ctx)
		stats.DigiPrice = general.DigiPrice
		stats.Farms = general.Farms
	} else {
		prices, err := e.prices.TokenPrices(ctx, chainID)
		if err != nil {
			return domain.NetworkStats{}, fmt.Errorf("failed to build price map: %w", err)
		}
		digiPrice, _ := prices.Price(cfg.Contracts.Digichain)
		stats.DigiPrice = digiPrice.USD

		farms, err := e.dualFarms.farms(ctx, chainID, prices)
		if err != nil {
			return domain.NetworkStats{}, err
		}
		stats.DualFarms = farms
	}

	if totals, err := e.subgraph.Totals(ctx, chainID); err == nil {
		stats.TotalLiquidity = totals.LiquidityUSD
		stats.TotalVolume = totals.VolumeUSD
		stats.TVL = totals.LiquidityUSD
	} else {
		logger.WarnCtx(ctx, "failed to read exchange totals",
			zap.Uint64("chain_id", uint64(chainID)), zap.Error(err))
	}

	stats.LPVolumes = e.pairVolumes(ctx, chainID, cfg, &stats)
	return stats, nil
}

// pairVolumes resolves 24h pair volume through the fallback chain: bitquery
// first, then the subgraph. Both failing leaves the section empty; the
// snapshot still serves.
func (e *Engine) pairVolumes(ctx context.Context, chainID domain.ChainID, cfg *config.ChainConfig, stats *domain.NetworkStats) []domain.PairVolume {
	liquidity := make(map[string]float64)
	var pairs []string
	for _, farm := range stats.Farms {
		pairs = append(pairs, farm.Address)
		liquidity[farm.Address] = farm.TVL
	}
	for _, farm := range stats.DualFarms {
		pairs = append(pairs, farm.Address)
		liquidity[farm.Address] = farm.StakedTvl
	}
	if len(pairs) == 0 {
		return nil
	}

	to := e.clock.Now()
	from := to.Add(-24 * time.Hour)

	var volumes []domain.PairVolume
	for _, group := range Chunk(pairs, priceChunkSize) {
		chunk, err := e.bitquery.PairVolumes(ctx, chainID, group, from, to)
		if err != nil {
			logger.WarnCtx(ctx, "bitquery pair volumes unavailable, falling back to subgraph",
				zap.Uint64("chain_id", uint64(chainID)), zap.Error(err))
			volumes = nil
			break
		}
		volumes = append(volumes, chunk...)
	}
	if volumes == nil {
		subgraphVolumes, err := e.subgraph.PairDayVolumes(ctx, chainID, from.Unix(), to.Unix())
		if err != nil {
			logger.WarnCtx(ctx, "subgraph pair volumes unavailable",
				zap.Uint64("chain_id", uint64(chainID)), zap.Error(err))
			return nil
		}
		volumes = subgraphVolumes
	}

	result := make([]domain.PairVolume, 0, len(volumes))
	for _, volume := range volumes {
		pairLiquidity, ok := liquidity[volume.Address]
		if !ok {
			continue
		}
		result = append(result, domain.PairVolume{
			Address:   volume.Address,
			Volume24h: volume.Volume24h,
			Liquidity: pairLiquidity,
			APR:       LPVolumeAPR(volume.Volume24h, cfg.FeeLP, pairLiquidity),
		})
	}
	return result
}
