package stats

import (
	"fmt"

	"github.com/digiswap/stats-api/internal/domain"
)

// LpPairName formats the display name of an LP pair. DIGICHAIN leads, the
// base currencies trail, the rest sorts alphabetically.
func LpPairName(t0, t1 string) string {
	switch {
	case t0 == "DIGICHAIN":
		return fmt.Sprintf("[%s]-[%s] LP", t0, t1)
	case t1 == "DIGICHAIN":
		return fmt.Sprintf("[%s]-[%s] LP", t1, t0)
	case t0 == "BUSD" || t0 == "WBNB" || t0 == "BNB":
		return fmt.Sprintf("[%s]-[%s] LP", t1, t0)
	case t1 == "BUSD" || t1 == "WBNB" || t1 == "BNB":
		return fmt.Sprintf("[%s]-[%s] LP", t0, t1)
	case t1 < t0:
		return fmt.Sprintf("[%s]-[%s] LP", t1, t0)
	default:
		return fmt.Sprintf("[%s]-[%s] LP", t0, t1)
	}
}

// priceFarm values one LP pool and derives its APR. Inferred token and LP
// prices are written back into the price map so later pools can use them.
// Returns nil when neither side can be priced.
func priceFarm(metas map[string]tokenMeta, prices domain.PriceMap, pool chefPool, totalAlloc, rewardsPerDay float64, digiAddress string) *domain.FarmStats {
	token := pool.token
	t0, ok0 := metas[token.token0]
	t1, ok1 := metas[token.token1]
	if !ok0 || !ok1 {
		return nil
	}

	var p0, p1 *float64
	if price, ok := prices.Price(token.token0); ok {
		p0 = &price.USD
	}
	if price, ok := prices.Price(token.token1); ok {
		p1 = &price.USD
	}

	q0 := FormatUnits(token.q0, t0.decimals)
	q1 := FormatUnits(token.q1, t1.decimals)
	price0, price1, ok := InferPoolPrices(q0, q1, p0, p1)
	if !ok {
		return nil
	}
	if p0 == nil {
		prices[token.token0] = domain.TokenPrice{USD: price0, Decimals: t0.decimals}
	}
	if p1 == nil {
		prices[token.token1] = domain.TokenPrice{USD: price1, Decimals: t1.decimals}
	}

	tvl := PoolTVL(q0, price0, q1, price1)
	lpPrice := LPPrice(tvl, token.totalSupply)
	prices[token.address] = domain.TokenPrice{USD: lpPrice, Decimals: token.decimals}

	stakedTvl := token.staked * lpPrice
	poolRewards := PoolRewardsPerDay(pool.allocPoints, totalAlloc, rewardsPerDay)
	digiPrice, _ := prices.Price(digiAddress)

	return &domain.FarmStats{
		PoolIndex:   pool.index,
		Name:        LpPairName(t0.symbol, t1.symbol),
		Address:     token.address,
		Token0:      token.token0,
		Token0Name:  t0.symbol,
		Token1:      token.token1,
		Token1Name:  t1.symbol,
		Price:       lpPrice,
		TotalSupply: token.totalSupply,
		TVL:         tvl,
		StakedTvl:   stakedTvl,
		APR:         FarmAPR(poolRewards, digiPrice.USD, stakedTvl),
		Decimals:    token.decimals,
	}
}

// pricePool values one single-token pool. Unpriced tokens value at zero
// rather than excluding the pool.
func pricePool(prices domain.PriceMap, pool chefPool, totalAlloc, rewardsPerDay float64, digiAddress string) *domain.PoolStats {
	token := pool.token
	price, _ := prices.Price(token.address)
	stakedTvl := token.staked * price.USD
	poolRewards := PoolRewardsPerDay(pool.allocPoints, totalAlloc, rewardsPerDay)
	digiPrice, _ := prices.Price(digiAddress)

	return &domain.PoolStats{
		PoolIndex:     pool.index,
		Name:          token.symbol,
		Address:       token.address,
		StakedToken:   token.address,
		RewardToken:   domain.NormalizeAddress(digiAddress),
		Price:         price.USD,
		TotalStaked:   token.staked,
		StakedTvl:     stakedTvl,
		APR:           FarmAPR(poolRewards, digiPrice.USD, stakedTvl),
		RewardsPerDay: poolRewards,
		Decimals:      token.decimals,
	}
}
