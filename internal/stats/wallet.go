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

// WalletStats aggregates one wallet's staked positions across the
// masterchef pools and farms. Computed per request against the current
// general snapshot; positions with no stake and no pending reward are
// omitted.
func (e *Engine) WalletStats(ctx context.Context, wallet string) (domain.WalletStats, error) {
	cfg, err := config.Chain(e.chains, e.primaryChain)
	if err != nil {
		return domain.WalletStats{}, err
	}
	general := e.GeneralStats(ctx)
	digiPrice := general.DigiPrice

	type position struct {
		poolIndex int
		name      string
		address   string
		price     float64
		apr       float64
		decimals  uint8
		isFarm    bool
	}
	positions := make([]position, 0, len(general.Pools)+len(general.Farms))
	for _, pool := range general.Pools {
		positions = append(positions, position{
			poolIndex: pool.PoolIndex,
			name:      pool.Name,
			address:   pool.Address,
			price:     pool.Price,
			apr:       pool.APR,
			decimals:  pool.Decimals,
		})
	}
	for _, farm := range general.Farms {
		positions = append(positions, position{
			poolIndex: farm.PoolIndex,
			name:      farm.Name,
			address:   farm.Address,
			price:     farm.Price,
			apr:       farm.APR,
			decimals:  farm.Decimals,
			isFarm:    true,
		})
	}

	owner := common.HexToAddress(wallet)
	chef := cfg.Contracts.MasterChef
	amounts := make([]*big.Int, len(positions))
	pending := make([]*big.Int, len(positions))
	for _, group := range Chunk(indexRange(len(positions)), priceChunkSize/2) {
		batch := multicall.NewBatch(multicall.MasterChefABI)
		for _, i := range group {
			i := i
			batch.Add(chef, "userInfo", func(values []interface{}) error {
				if len(values) != 2 {
					return fmt.Errorf("unexpected userInfo shape")
				}
				amounts[i] = values[0].(*big.Int)
				return nil
			}, big.NewInt(int64(positions[i].poolIndex)), owner)
			batch.Add(chef, "pendingDigi", multicall.BigInt(&pending[i]),
				big.NewInt(int64(positions[i].poolIndex)), owner)
		}
		if _, err := e.caller.Execute(ctx, e.primaryChain, batch, nil); err != nil {
			return domain.WalletStats{}, fmt.Errorf("failed to read wallet positions: %w", err)
		}
	}

	stats := domain.WalletStats{Address: domain.NormalizeAddress(wallet)}
	for i, pos := range positions {
		staked := FormatUnits(amounts[i], pos.decimals)
		pendingReward := FormatUnits(pending[i], 18)
		if staked == 0 && pendingReward == 0 {
			continue
		}

		stakedUSD := staked * pos.price
		earningsPerDay := stakedUSD * pos.apr / 365
		holding := domain.WalletHolding{
			Name:           pos.name,
			Address:        pos.address,
			StakedBalance:  staked,
			StakedUSD:      stakedUSD,
			PendingReward:  pendingReward,
			PendingUSD:     pendingReward * digiPrice,
			APR:            pos.apr,
			EarningsPerDay: earningsPerDay,
		}
		if pos.isFarm {
			stats.Farms = append(stats.Farms, holding)
		} else {
			stats.Pools = append(stats.Pools, holding)
		}

		stats.TVL += stakedUSD
		stats.PendingRewardUSD += holding.PendingUSD
		stats.EarningsPerDayUSD += earningsPerDay
	}

	stats.EarningsPerWeekUSD = stats.EarningsPerDayUSD * 7
	if stats.TVL > 0 {
		stats.AggregateAPR = stats.EarningsPerDayUSD * 365 / stats.TVL
	}
	return stats, nil
}
