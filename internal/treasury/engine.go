// Package treasury values the protocol treasury: protocol-owned liquidity,
// the operational wallet, and lending market positions, plus the day-by-day
// TVL/volume/treasury history series behind them.
package treasury

import (
	"context"
	"sort"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/freshness"
	"github.com/digiswap/stats-api/internal/gateway/subgraph"
	"github.com/digiswap/stats-api/internal/multicall"
	"github.com/digiswap/stats-api/internal/stats"
	"github.com/digiswap/stats-api/internal/store"
)

// Engine serves the treasury valuation behind a freshness policy and owns
// the history backfill.
type Engine struct {
	chains       map[string]config.ChainConfig
	primaryChain domain.ChainID
	caller       multicall.Caller
	clock        adapter.Clock
	lists        stats.Lists
	prices       stats.PriceOracle
	subgraph     subgraph.Gateway
	store        store.Store

	policy *freshness.Policy[domain.Treasury]
}

func NewEngine(
	chains map[string]config.ChainConfig,
	primaryChain domain.ChainID,
	caller multicall.Caller,
	clock adapter.Clock,
	group *freshness.Group,
	lists stats.Lists,
	subgraphGateway subgraph.Gateway,
	st store.Store,
) *Engine {
	e := &Engine{
		chains:       chains,
		primaryChain: primaryChain,
		caller:       caller,
		clock:        clock,
		lists:        lists,
		prices:       stats.NewPriceOracle(caller, chains, lists),
		subgraph:     subgraphGateway,
		store:        st,
	}
	e.policy = freshness.NewPolicy(group, domain.SnapshotTreasury, e.computeTreasury)
	return e
}

// Treasury returns the treasury snapshot, possibly stale, never blocking on
// recomputation. A cold cache returns the zero-value shape.
func (e *Engine) Treasury(ctx context.Context) domain.Treasury {
	treasury, _ := e.policy.Get(ctx)
	return treasury
}

// AssetOverview rolls the treasury positions up by token. LP positions
// contribute their constituent tokens, not the LP token itself.
func (e *Engine) AssetOverview(ctx context.Context) domain.AssetOverview {
	treasury := e.Treasury(ctx)

	entries := make(map[string]*domain.AssetOverviewEntry)
	fold := func(name, address string, amount float64, value domain.USDValue) {
		key := domain.NormalizeAddress(address)
		entry, ok := entries[key]
		if !ok {
			entry = &domain.AssetOverviewEntry{Name: name, Address: key}
			entries[key] = entry
		}
		entry.Amount += amount
		entry.Value = entry.Value.Add(value)
	}

	for _, asset := range treasury.Assets {
		if asset.IsLP && len(asset.Tokens) > 0 {
			for _, token := range asset.Tokens {
				fold(token.Name, token.Address, token.Amount, token.Value)
			}
			continue
		}
		fold(asset.Name, asset.Address, asset.Amount, asset.Value)
	}

	overview := domain.AssetOverview{CreatedAt: treasury.CreatedAt}
	for _, entry := range entries {
		overview.Tokens = append(overview.Tokens, *entry)
		overview.Total = overview.Total.Add(entry.Value)
	}
	sort.Slice(overview.Tokens, func(i, j int) bool {
		return overview.Tokens[i].Name < overview.Tokens[j].Name
	})
	return overview
}

// History returns the recorded series between two unix timestamps.
func (e *Engine) History(ctx context.Context, from, to int64) ([]domain.TreasuryHistoryPoint, error) {
	rows, err := e.store.GetHistory(ctx, from, to)
	if err != nil {
		return nil, err
	}
	points := make([]domain.TreasuryHistoryPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, domain.TreasuryHistoryPoint{
			Timestamp: row.Timestamp,
			TVL:       row.TVL,
			Volume:    row.Volume,
			Treasury:  domain.USDValue{Amount: row.TreasuryUSD, Known: row.TreasuryKnown},
		})
	}
	return points, nil
}
