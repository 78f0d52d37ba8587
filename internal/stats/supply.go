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

// supplyReader tracks DIGI emission accounting and the governance token's
// circulating supply.
type supplyReader struct {
	caller multicall.Caller
	chains map[string]config.ChainConfig
}

func newSupplyReader(caller multicall.Caller, chains map[string]config.ChainConfig) *supplyReader {
	return &supplyReader{caller: caller, chains: chains}
}

// burnAndSupply reads the DIGI total supply and the balance parked at the
// burn address. Circulating supply nets the two; market cap applies the
// current price.
func (r *supplyReader) burnAndSupply(ctx context.Context, chainID domain.ChainID, digiPrice float64) (*domain.SupplyStats, error) {
	cfg, err := config.Chain(r.chains, chainID)
	if err != nil {
		return nil, err
	}

	var (
		decimals uint8
		burned   *big.Int
		supply   *big.Int
	)
	digi := cfg.Contracts.Digichain
	batch := multicall.NewBatch(multicall.ERC20ABI)
	batch.Add(digi, "decimals", multicall.Uint8(&decimals))
	batch.Add(digi, "balanceOf", multicall.BigInt(&burned), common.HexToAddress(cfg.Contracts.BurnAddress))
	batch.Add(digi, "totalSupply", multicall.BigInt(&supply))
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return nil, fmt.Errorf("failed to read burn and supply: %w", err)
	}

	burntAmount := FormatUnits(burned, decimals)
	totalSupply := FormatUnits(supply, decimals)
	circulating := CirculatingSupply(totalSupply, burntAmount)
	return &domain.SupplyStats{
		TotalSupply:       totalSupply,
		BurntAmount:       burntAmount,
		CirculatingSupply: circulating,
		MarketCap:         circulating * digiPrice,
	}, nil
}

// gdigiCirculating nets the treasury's own holding out of the governance
// token supply.
func (r *supplyReader) gdigiCirculating(ctx context.Context, chainID domain.ChainID) (float64, error) {
	cfg, err := config.Chain(r.chains, chainID)
	if err != nil {
		return 0, err
	}
	if cfg.Contracts.GoldenDigichain == "" || cfg.Contracts.Treasury == "" {
		return 0, nil
	}

	var (
		decimals uint8
		treasury *big.Int
		supply   *big.Int
	)
	gdigi := cfg.Contracts.GoldenDigichain
	batch := multicall.NewBatch(multicall.ERC20ABI)
	batch.Add(gdigi, "decimals", multicall.Uint8(&decimals))
	batch.Add(gdigi, "balanceOf", multicall.BigInt(&treasury), common.HexToAddress(cfg.Contracts.Treasury))
	batch.Add(gdigi, "totalSupply", multicall.BigInt(&supply))
	if _, err := r.caller.Execute(ctx, chainID, batch, nil); err != nil {
		return 0, fmt.Errorf("failed to read governance token supply: %w", err)
	}

	return CirculatingSupply(FormatUnits(supply, decimals), FormatUnits(treasury, decimals)), nil
}
