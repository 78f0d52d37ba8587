package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/digiswap/stats-api/internal/domain"
)

// computeTvlStats rolls exchange liquidity and volume up across all chains.
// Pool and lending TVL come from the general snapshot; the general policy
// serves whatever it has so a cold general snapshot only thins the rollup.
func (e *Engine) computeTvlStats(ctx context.Context) (domain.TvlStats, error) {
	general := e.GeneralStats(ctx)

	stats := domain.TvlStats{
		LendingTvl: general.LendingTvl,
		CreatedAt:  e.clock.Now(),
	}

	var failures int
	for _, chain := range e.chains {
		chainID := domain.ChainID(chain.ChainID)
		totals, err := e.subgraph.Totals(ctx, chainID)
		if err != nil {
			failures++
			continue
		}
		chainTvl := domain.ChainTvl{
			ChainID:   chainID,
			Liquidity: totals.LiquidityUSD,
			Volume:    totals.VolumeUSD,
			TVL:       totals.LiquidityUSD,
		}
		if chainID == e.primaryChain {
			chainTvl.TVL += poolsTvl(general) + general.LendingTvl
		}
		stats.Chains = append(stats.Chains, chainTvl)
		stats.TotalLiquidity += totals.LiquidityUSD
		stats.TotalVolume += totals.VolumeUSD
		stats.TVL += chainTvl.TVL
	}
	if failures == len(e.chains) {
		return domain.TvlStats{}, fmt.Errorf("no chain reported exchange totals")
	}

	sort.Slice(stats.Chains, func(i, j int) bool { return stats.Chains[i].ChainID < stats.Chains[j].ChainID })
	return stats, nil
}
