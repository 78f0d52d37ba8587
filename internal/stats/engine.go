// Package stats computes the protocol statistics snapshots: pool and farm
// pricing, APRs, lending markets, bill quotes, supply accounting, and the
// per-chain and per-wallet views derived from them.
package stats

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/freshness"
	"github.com/digiswap/stats-api/internal/gateway/bitquery"
	"github.com/digiswap/stats-api/internal/gateway/subgraph"
	"github.com/digiswap/stats-api/internal/multicall"
)

// Engine serves the statistics snapshots behind freshness policies: requests
// get the best available data immediately while recomputation happens in the
// background.
type Engine struct {
	chains       map[string]config.ChainConfig
	primaryChain domain.ChainID
	caller       multicall.Caller
	clock        adapter.Clock
	subgraph     subgraph.Gateway
	bitquery     bitquery.Gateway

	chef         *chefReader
	lending      *lendingReader
	bills        *billQuoter
	incentivized *incentivizedReader
	supply       *supplyReader
	dualFarms    *dualFarmReader
	prices       PriceOracle

	general *freshness.Policy[domain.GeneralStats]
	tvl     *freshness.Policy[domain.TvlStats]
	network map[domain.ChainID]*freshness.Policy[domain.NetworkStats]
}

// NewEngine wires the readers and registers one freshness policy per
// snapshot key. The primary chain hosts the masterchef, lending and bill
// deployments.
func NewEngine(
	chains map[string]config.ChainConfig,
	primaryChain domain.ChainID,
	caller multicall.Caller,
	clock adapter.Clock,
	pool pond.Pool,
	group *freshness.Group,
	lists Lists,
	subgraphGateway subgraph.Gateway,
	bitqueryGateway bitquery.Gateway,
) *Engine {
	e := &Engine{
		chains:       chains,
		primaryChain: primaryChain,
		caller:       caller,
		clock:        clock,
		subgraph:     subgraphGateway,
		bitquery:     bitqueryGateway,
		chef:         newChefReader(caller, pool),
		lending:      newLendingReader(caller, chains),
		bills:        newBillQuoter(caller, chains, lists),
		incentivized: newIncentivizedReader(caller, chains),
		supply:       newSupplyReader(caller, chains),
		dualFarms:    newDualFarmReader(caller, chains),
		prices:       NewPriceOracle(caller, chains, lists),
		network:      make(map[domain.ChainID]*freshness.Policy[domain.NetworkStats]),
	}

	e.general = freshness.NewPolicy(group, domain.SnapshotGeneralStats, e.computeGeneralStats)
	e.tvl = freshness.NewPolicy(group, domain.SnapshotTvlStats, e.computeTvlStats)
	for _, chain := range chains {
		chainID := domain.ChainID(chain.ChainID)
		e.network[chainID] = freshness.NewPolicy(group, domain.NetworkStatsSnapshotKey(chainID),
			func(ctx context.Context) (domain.NetworkStats, error) {
				return e.computeNetworkStats(ctx, chainID)
			})
	}
	return e
}

// GeneralStats returns the protocol-wide snapshot, possibly stale, never
// blocking on recomputation. A cold cache returns the zero-value shape.
func (e *Engine) GeneralStats(ctx context.Context) domain.GeneralStats {
	stats, _ := e.general.Get(ctx)
	return stats
}

// TvlStats returns the cross-chain TVL rollup.
func (e *Engine) TvlStats(ctx context.Context) domain.TvlStats {
	stats, _ := e.tvl.Get(ctx)
	return stats
}

// NetworkStats returns the per-chain snapshot. Unknown chains are a
// validation error, not a computation one.
func (e *Engine) NetworkStats(ctx context.Context, chainID domain.ChainID) (domain.NetworkStats, error) {
	policy, ok := e.network[chainID]
	if !ok {
		return domain.NetworkStats{}, fmt.Errorf("chain %d: %w", chainID, domain.ErrUnsupportedChain)
	}
	stats, _ := policy.Get(ctx)
	return stats, nil
}

// FarmPrices maps masterchef pool indexes to LP token prices, derived from
// the general snapshot.
func (e *Engine) FarmPrices(ctx context.Context) domain.FarmPriceMap {
	general := e.GeneralStats(ctx)
	farmPrices := make(domain.FarmPriceMap, len(general.Farms))
	for _, farm := range general.Farms {
		farmPrices[farm.PoolIndex] = farm.Price
	}
	return farmPrices
}
