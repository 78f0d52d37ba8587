// Package bitquery reads DEX trade volume from the bitquery GraphQL
// API. It is the primary source for 24h pair volume, with the subgraph
// as fallback.
package bitquery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/gateway/graphql"
	"github.com/digiswap/stats-api/internal/ratelimit"
)

const dateLayout = "2006-01-02T15:04:05Z"

// bitquery names EVM networks differently from our chain registry.
var networkNames = map[domain.ChainID]string{
	domain.ChainBSC:     "bsc",
	domain.ChainPolygon: "matic",
}

// Gateway exposes the bitquery queries the stats engines need.
type Gateway interface {
	// PairVolumes returns the USD trade volume per pair contract over
	// [from, to). Chains bitquery does not index report
	// ErrNoIndexerData.
	PairVolumes(ctx context.Context, chainID domain.ChainID, pairs []string, from, to time.Time) ([]domain.PairVolume, error)
}

type gateway struct {
	client  graphql.Client
	limiter ratelimit.Limiter
}

func NewGateway(httpClient adapter.HTTPClient, json adapter.JSON, cfg config.BitqueryConfig) Gateway {
	headers := map[string]string{"X-API-KEY": cfg.APIKey}
	return &gateway{
		client: graphql.NewClient(httpClient, cfg.URL, json, headers),
		// bitquery enforces a per-key request quota
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

type tradesResponse struct {
	Ethereum struct {
		DexTrades []struct {
			SmartContract struct {
				Address struct {
					Address string `json:"address"`
				} `json:"address"`
			} `json:"smartContract"`
			TradeAmount float64 `json:"tradeAmount"`
		} `json:"dexTrades"`
	} `json:"ethereum"`
}

func (g *gateway) PairVolumes(ctx context.Context, chainID domain.ChainID, pairs []string, from, to time.Time) ([]domain.PairVolume, error) {
	network, ok := networkNames[chainID]
	if !ok {
		return nil, fmt.Errorf("bitquery does not index chain %d: %w", chainID, domain.ErrNoIndexerData)
	}

	query := fmt.Sprintf(`query PairVolumes($from: ISO8601DateTime, $till: ISO8601DateTime, $pairs: [String!]) {
  ethereum(network: %s) {
    dexTrades(
      time: {since: $from, till: $till}
      smartContractAddress: {in: $pairs}
    ) {
      smartContract {
        address {
          address
        }
      }
      tradeAmount(in: USD)
    }
  }
}`, network)

	req := graphql.Request{
		Query:         query,
		OperationName: "PairVolumes",
		Variables: map[string]interface{}{
			"from":  from.UTC().Format(dateLayout),
			"till":  to.UTC().Format(dateLayout),
			"pairs": pairs,
		},
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp tradesResponse
	if err := g.client.Query(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to query dex trades: %w", err)
	}

	volumes := make(map[string]float64)
	for _, trade := range resp.Ethereum.DexTrades {
		volumes[domain.NormalizeAddress(trade.SmartContract.Address.Address)] += trade.TradeAmount
	}

	result := make([]domain.PairVolume, 0, len(volumes))
	for pair, volume := range volumes {
		result = append(result, domain.PairVolume{Address: pair, Volume24h: volume})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, nil
}
