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

// Price getter calls are chunked so a single aggregate stays under node
// limits.
const priceChunkSize = 95

// PriceOracle builds a fresh price map for one chain from the on-chain
// price getter contract.
type PriceOracle interface {
	TokenPrices(ctx context.Context, chainID domain.ChainID) (domain.PriceMap, error)
}

type priceOracle struct {
	caller multicall.Caller
	chains map[string]config.ChainConfig
	lists  Lists
}

func NewPriceOracle(caller multicall.Caller, chains map[string]config.ChainConfig, lists Lists) PriceOracle {
	return &priceOracle{caller: caller, chains: chains, lists: lists}
}

func (o *priceOracle) TokenPrices(ctx context.Context, chainID domain.ChainID) (domain.PriceMap, error) {
	cfg, err := config.Chain(o.chains, chainID)
	if err != nil {
		return nil, err
	}
	if cfg.Contracts.PriceGetter == "" {
		return nil, fmt.Errorf("no price getter configured for chain %d", chainID)
	}

	tokens, err := o.lists.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	var onChain []ListToken
	for _, token := range tokens {
		if token.AddressOn(chainID) != "" {
			onChain = append(onChain, token)
		}
	}

	getter := cfg.Contracts.PriceGetter
	prices := make(domain.PriceMap, len(onChain))
	for _, group := range Chunk(onChain, priceChunkSize) {
		raw := make([]*big.Int, len(group))
		batch := multicall.NewBatch(multicall.PriceGetterABI)
		for i, token := range group {
			method := "getPrice"
			if token.LPToken {
				method = "getLPPrice"
			}
			batch.Add(getter, method, multicall.BigInt(&raw[i]),
				common.HexToAddress(token.AddressOn(chainID)), big.NewInt(int64(token.Decimals)))
		}
		if _, err := o.caller.Execute(ctx, chainID, batch, nil); err != nil {
			return nil, fmt.Errorf("failed to fetch token prices: %w", err)
		}
		for i, token := range group {
			prices[domain.NormalizeAddress(token.AddressOn(chainID))] = domain.TokenPrice{
				USD:      FormatUnits(raw[i], token.Decimals),
				Decimals: token.Decimals,
			}
		}
	}

	// The governance token trades at a fixed premium over DIGI and is
	// not covered by the price getter.
	if digi, ok := prices.Price(cfg.Contracts.Digichain); ok && cfg.Contracts.GoldenDigichain != "" {
		prices[domain.NormalizeAddress(cfg.Contracts.GoldenDigichain)] = domain.TokenPrice{
			USD:      GDigiPrice(digi.USD),
			Decimals: digi.Decimals,
		}
	}

	return prices, nil
}
