// Package subgraph reads exchange analytics from the per-chain
// DigiSwap subgraphs.
package subgraph

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/gateway/graphql"
)

// The Graph caps a single page at 1000 entities.
const pageSize = 1000

// Totals holds the exchange-wide cumulative figures of one chain.
type Totals struct {
	VolumeUSD    float64
	LiquidityUSD float64
}

// Gateway exposes the subgraph queries the stats engines need.
type Gateway interface {
	// Totals returns the factory-level cumulative volume and current
	// liquidity for the chain.
	Totals(ctx context.Context, chainID domain.ChainID) (*Totals, error)

	// PairDayVolumes returns per-pair USD volume summed over the day
	// entities inside [from, to), paginating as needed.
	PairDayVolumes(ctx context.Context, chainID domain.ChainID, from, to int64) ([]domain.PairVolume, error)

	// DayData returns the exchange-wide liquidity and volume recorded for
	// the day starting at the given unix timestamp (midnight UTC).
	DayData(ctx context.Context, chainID domain.ChainID, date int64) (*Totals, error)
}

type gateway struct {
	clients map[domain.ChainID]graphql.Client
}

// NewGateway builds one GraphQL client per configured chain. Chains
// without a subgraph URL are skipped and report ErrNoIndexerData.
func NewGateway(httpClient adapter.HTTPClient, json adapter.JSON, chains map[string]config.ChainConfig) Gateway {
	clients := make(map[domain.ChainID]graphql.Client)
	for _, chain := range chains {
		if chain.SubgraphURL == "" {
			continue
		}
		clients[domain.ChainID(chain.ChainID)] = graphql.NewClient(httpClient, chain.SubgraphURL, json, nil)
	}
	return &gateway{clients: clients}
}

func (g *gateway) client(chainID domain.ChainID) (graphql.Client, error) {
	client, ok := g.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("no subgraph for chain %d: %w", chainID, domain.ErrNoIndexerData)
	}
	return client, nil
}

type factoryResponse struct {
	Factories []struct {
		TotalVolumeUSD    string `json:"totalVolumeUSD"`
		TotalLiquidityUSD string `json:"totalLiquidityUSD"`
	} `json:"uniswapFactories"`
}

func (g *gateway) Totals(ctx context.Context, chainID domain.ChainID) (*Totals, error) {
	client, err := g.client(chainID)
	if err != nil {
		return nil, err
	}

	query := `query ExchangeTotals {
  uniswapFactories(first: 1) {
    totalVolumeUSD
    totalLiquidityUSD
  }
}`

	var resp factoryResponse
	if err := client.Query(ctx, graphql.Request{Query: query, OperationName: "ExchangeTotals"}, &resp); err != nil {
		return nil, fmt.Errorf("failed to query exchange totals: %w", err)
	}
	if len(resp.Factories) == 0 {
		return nil, fmt.Errorf("empty factory response for chain %d: %w", chainID, domain.ErrNoIndexerData)
	}

	volume, err := parseAmount(resp.Factories[0].TotalVolumeUSD)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total volume: %w", err)
	}
	liquidity, err := parseAmount(resp.Factories[0].TotalLiquidityUSD)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total liquidity: %w", err)
	}

	return &Totals{VolumeUSD: volume, LiquidityUSD: liquidity}, nil
}

type pairDayDataResponse struct {
	PairDayDatas []struct {
		PairAddress    string `json:"pairAddress"`
		DailyVolumeUSD string `json:"dailyVolumeUSD"`
	} `json:"pairDayDatas"`
}

func (g *gateway) PairDayVolumes(ctx context.Context, chainID domain.ChainID, from, to int64) ([]domain.PairVolume, error) {
	client, err := g.client(chainID)
	if err != nil {
		return nil, err
	}

	query := `query PairDayVolumes($from: Int!, $to: Int!, $first: Int!, $skip: Int!) {
  pairDayDatas(
    first: $first
    skip: $skip
    orderBy: date
    orderDirection: asc
    where: {date_gte: $from, date_lt: $to}
  ) {
    pairAddress
    dailyVolumeUSD
  }
}`

	volumes := make(map[string]float64)
	for skip := 0; ; skip += pageSize {
		var resp pairDayDataResponse
		req := graphql.Request{
			Query:         query,
			OperationName: "PairDayVolumes",
			Variables: map[string]interface{}{
				"from":  from,
				"to":    to,
				"first": pageSize,
				"skip":  skip,
			},
		}
		if err := client.Query(ctx, req, &resp); err != nil {
			return nil, fmt.Errorf("failed to query pair day data: %w", err)
		}

		for _, row := range resp.PairDayDatas {
			volume, err := parseAmount(row.DailyVolumeUSD)
			if err != nil {
				return nil, fmt.Errorf("failed to parse pair volume: %w", err)
			}
			volumes[domain.NormalizeAddress(row.PairAddress)] += volume
		}

		if len(resp.PairDayDatas) < pageSize {
			break
		}
	}

	result := make([]domain.PairVolume, 0, len(volumes))
	for pair, volume := range volumes {
		result = append(result, domain.PairVolume{Address: pair, Volume24h: volume})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, nil
}

type dayDataResponse struct {
	DayDatas []struct {
		DailyVolumeUSD    string `json:"dailyVolumeUSD"`
		TotalLiquidityUSD string `json:"totalLiquidityUSD"`
	} `json:"uniswapDayDatas"`
}

func (g *gateway) DayData(ctx context.Context, chainID domain.ChainID, date int64) (*Totals, error) {
	client, err := g.client(chainID)
	if err != nil {
		return nil, err
	}

	query := `query DayData($date: Int!) {
  uniswapDayDatas(first: 1, where: {date: $date}) {
    dailyVolumeUSD
    totalLiquidityUSD
  }
}`

	var resp dayDataResponse
	req := graphql.Request{
		Query:         query,
		OperationName: "DayData",
		Variables:     map[string]interface{}{"date": date},
	}
	if err := client.Query(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to query day data: %w", err)
	}
	if len(resp.DayDatas) == 0 {
		return nil, fmt.Errorf("no day data at %d for chain %d: %w", date, chainID, domain.ErrNoIndexerData)
	}

	volume, err := parseAmount(resp.DayDatas[0].DailyVolumeUSD)
	if err != nil {
		return nil, fmt.Errorf("failed to parse daily volume: %w", err)
	}
	liquidity, err := parseAmount(resp.DayDatas[0].TotalLiquidityUSD)
	if err != nil {
		return nil, fmt.Errorf("failed to parse daily liquidity: %w", err)
	}

	return &Totals{VolumeUSD: volume, LiquidityUSD: liquidity}, nil
}

func parseAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
