package stats

import (
	"math"
	"math/big"

	"github.com/digiswap/stats-api/internal/domain"
)

// InferPoolPrices fills the unknown side of a constant-product pool from the
// known side. Reserves are already normalized by decimals. Returns false when
// neither price is known; such pools are excluded from results.
func InferPoolPrices(q0, q1 float64, p0, p1 *float64) (float64, float64, bool) {
	switch {
	case p0 == nil && p1 == nil:
		return 0, 0, false
	case p0 == nil:
		if q0 == 0 {
			return 0, 0, false
		}
		return (q1 * *p1) / q0, *p1, true
	case p1 == nil:
		if q1 == 0 {
			return 0, 0, false
		}
		return *p0, (q0 * *p0) / q1, true
	default:
		return *p0, *p1, true
	}
}

// PoolTVL is the USD value of both reserve sides.
func PoolTVL(q0, p0, q1, p1 float64) float64 {
	return q0*p0 + q1*p1
}

// LPPrice derives the LP token price from the pool TVL and supply.
func LPPrice(tvl, totalSupply float64) float64 {
	if totalSupply == 0 {
		return 0
	}
	return tvl / totalSupply
}

// PoolRewardsPerDay is one pool's share of the global daily emission.
func PoolRewardsPerDay(allocPoints, totalAllocPoints, rewardsPerDay float64) float64 {
	if totalAllocPoints == 0 {
		return 0
	}
	return (allocPoints / totalAllocPoints) * rewardsPerDay
}

// FarmAPR annualizes a pool's daily reward value against its staked TVL.
// Reported as a ratio, so 18.25 means 1825%. Zero staked TVL yields zero.
func FarmAPR(rewardsPerDay, rewardTokenPrice, stakedTVL float64) float64 {
	if stakedTVL == 0 {
		return 0
	}
	apr := (rewardsPerDay * rewardTokenPrice / stakedTVL) * 365
	if math.IsNaN(apr) || math.IsInf(apr, 0) {
		return 0
	}
	return apr
}

// DualFarmAPR combines the minichef emission with an optional second
// rewarder, both per-second, into a percentage APR. Nil when the pool
// liquidity is unknown so NaN never reaches a response.
func DualFarmAPR(liquidityUSD, rewardPrice, rewardPerSecond, secondaryPrice, secondaryPerSecond float64) *float64 {
	yearly := (rewardPrice*rewardPerSecond + secondaryPrice*secondaryPerSecond) * domain.SECONDS_PER_YEAR
	apr := yearly / liquidityUSD * 100
	if math.IsNaN(apr) || math.IsInf(apr, 0) {
		return nil
	}
	return &apr
}

// LPVolumeAPR annualizes the fee share of 24h trade volume against the pair
// liquidity.
func LPVolumeAPR(volume24h, feeLP, liquidityUSD float64) float64 {
	if liquidityUSD == 0 {
		return 0
	}
	apr := (volume24h * feeLP / 100) * 365 / liquidityUSD
	if math.IsNaN(apr) || math.IsInf(apr, 0) {
		return 0
	}
	return apr
}

// BorrowAPR converts a per-second borrow rate (18 decimals) to a simple
// annual rate.
func BorrowAPR(ratePerSecond float64) float64 {
	return ratePerSecond * domain.SECONDS_PER_YEAR
}

// CompoundAPY compounds a simple annual rate daily.
func CompoundAPY(apr float64) float64 {
	return math.Pow(apr/365+1, 365) - 1
}

// SupplyAPY derives the supply-side APY from the borrow APY: borrowers'
// interest net of the reserve factor, spread over the supplied balance.
func SupplyAPY(borrowAPYPercent, totalBorrowed, reserveFactor, underlyingPrice, totalSupplyUSD float64) float64 {
	if totalSupplyUSD == 0 {
		return 0
	}
	yearlyInterestUSD := borrowAPYPercent * totalBorrowed * (1 - reserveFactor) * underlyingPrice
	return yearlyInterestUSD / totalSupplyUSD
}

// DistributionAPY annualizes a per-block incentive speed against a market
// balance, as a percentage.
func DistributionAPY(speedPerBlock, rewardPrice, balanceUSD float64) float64 {
	if balanceUSD == 0 {
		return 0
	}
	apy := speedPerBlock * domain.BLOCKS_PER_YEAR * rewardPrice * 100 / balanceUSD
	if math.IsNaN(apy) || math.IsInf(apy, 0) {
		return 0
	}
	return apy
}

// BillDiscount is the percentage discount of buying the earn token through a
// bill versus market price. trueBillPrice carries 18 decimals.
func BillDiscount(earnTokenPrice, lpPrice, trueBillPrice float64) float64 {
	if earnTokenPrice == 0 {
		return 0
	}
	return (earnTokenPrice - lpPrice*(trueBillPrice/1e18)) / earnTokenPrice * 100
}

// CirculatingSupply nets the burned amount out of the total emission.
func CirculatingSupply(totalSupply, burntAmount float64) float64 {
	return totalSupply - burntAmount
}

// GDigiPrice pins the governance token to the fixed conversion rate from
// DIGI.
func GDigiPrice(digiPrice float64) float64 {
	return digiPrice / 0.72
}

// FormatUnits converts a raw integer amount to a float using the token's
// decimals.
func FormatUnits(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(raw),
		big.NewFloat(math.Pow10(int(decimals))),
	).Float64()
	return f
}

// Chunk splits items into fixed-size groups. Multicall batches are capped to
// keep a single aggregate call under node gas limits.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		items, chunks = items[size:], append(chunks, items[:size])
	}
	return append(chunks, items)
}
