package domain

import "time"

// TokenPrice is one entry of a price map: the USD price of a token together
// with the decimals the price was normalized with
type TokenPrice struct {
	USD      float64 `json:"usd"`
	Decimals uint8   `json:"decimals"`
}

// PriceMap maps a lowercase token address to its USD price. It is rebuilt on
// every computation pass and only ever persisted embedded inside a snapshot.
type PriceMap map[string]TokenPrice

// Price looks up a token price by address, case-insensitively
func (m PriceMap) Price(address string) (TokenPrice, bool) {
	p, ok := m[NormalizeAddress(address)]
	return p, ok
}

// PoolStats describes one single-token staking pool after a computation pass
type PoolStats struct {
	PoolIndex     int     `json:"poolIndex"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	StakedToken   string  `json:"stakedToken"`
	RewardToken   string  `json:"rewardToken"`
	Price         float64 `json:"price"`
	TotalStaked   float64 `json:"totalStaked"`
	StakedTvl     float64 `json:"stakedTvl"`
	APR           float64 `json:"apr"`
	RewardsPerDay float64 `json:"rewardsPerDay"`
	Decimals      uint8   `json:"decimals"`
}

// FarmStats describes one LP farm after a computation pass
type FarmStats struct {
	PoolIndex   int     `json:"poolIndex"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Token0      string  `json:"t0Address"`
	Token0Name  string  `json:"t0Symbol"`
	Token1      string  `json:"t1Address"`
	Token1Name  string  `json:"t1Symbol"`
	Price       float64 `json:"price"`
	TotalSupply float64 `json:"totalSupply"`
	TVL         float64 `json:"tvl"`
	StakedTvl   float64 `json:"stakedTvl"`
	APR         float64 `json:"apr"`
	Decimals    uint8   `json:"decimals"`
}

// IncentivizedPool describes a fixed-duration reward pool. APR is zero when
// the current block is outside [StartBlock, BonusEndBlock].
type IncentivizedPool struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	Active        bool    `json:"active"`
	StartBlock    uint64  `json:"startBlock"`
	BonusEndBlock uint64  `json:"bonusEndBlock"`
	StakedToken   string  `json:"stakedTokenAddress"`
	RewardToken   string  `json:"rewardTokenAddress"`
	RewardsPerDay float64 `json:"rewardsPerDay"`
	StakedTvl     float64 `json:"stakedTvl"`
	APR           float64 `json:"apr"`
}

// DualFarmStats describes a minichef farm with an optional second rewarder.
// APR is nil when the pool liquidity is unknown (avoids NaN in responses).
type DualFarmStats struct {
	PoolIndex       int      `json:"poolIndex"`
	Address         string   `json:"address"`
	Token0          string   `json:"t0Address"`
	Token1          string   `json:"t1Address"`
	StakedTvl       float64  `json:"stakedTvl"`
	RewardToken     string   `json:"rewardTokenAddress"`
	SecondaryReward string   `json:"secondaryRewardAddress,omitempty"`
	APR             *float64 `json:"apr"`
}

// LendingMarket describes one lending market with annualized rates
type LendingMarket struct {
	Name                 string  `json:"name"`
	MarketAddress        string  `json:"marketAddress"`
	UnderlyingAddress    string  `json:"underlyingAddress"`
	UnderlyingDecimals   uint8   `json:"underlyingDecimals"`
	SupplyAPY            float64 `json:"apy"`
	BorrowAPY            float64 `json:"borrowApy"`
	SupplyDistributedAPY float64 `json:"supplyDistributedApy"`
	BorrowDistributedAPY float64 `json:"borrowDistributedApy"`
	TotalSupplyUSD       float64 `json:"totalSupply"`
	TotalBorrowUSD       float64 `json:"totalBorrows"`
}

// BillQuote is the live discount quote for one bill contract
type BillQuote struct {
	ContractAddress string  `json:"contractAddress"`
	LPToken         string  `json:"lpToken"`
	EarnToken       string  `json:"earnToken"`
	LPPrice         float64 `json:"lpPrice"`
	EarnTokenPrice  float64 `json:"earnTokenPrice"`
	TrueBillPrice   float64 `json:"priceUsd"`
	Discount        float64 `json:"discount"`
}

// SupplyStats carries the token emission accounting used for market cap
type SupplyStats struct {
	TotalSupply       float64 `json:"totalSupply"`
	BurntAmount       float64 `json:"burntAmount"`
	CirculatingSupply float64 `json:"circulatingSupply"`
	MarketCap         float64 `json:"marketCap"`
}

// GeneralStats is the protocol-wide statistics snapshot served by /stats
type GeneralStats struct {
	DigiPrice               float64            `json:"digiPrice"`
	GDigiPrice              float64            `json:"gdigiPrice"`
	TVL                     float64            `json:"tvl"`
	TotalLiquidity          float64            `json:"totalLiquidity"`
	TotalVolume             float64            `json:"totalVolume"`
	BurntAmount             float64            `json:"burntAmount"`
	TotalSupply             float64            `json:"totalSupply"`
	CirculatingSupply       float64            `json:"circulatingSupply"`
	MarketCap               float64            `json:"marketCap"`
	GDigiCirculatingSupply  float64            `json:"gdigiCirculatingSupply"`
	Pools                   []PoolStats        `json:"pools"`
	Farms                   []FarmStats        `json:"farms"`
	IncentivizedPools       []IncentivizedPool `json:"incentivizedPools"`
	Bills                   []BillQuote        `json:"bills"`
	LendingMarkets          []LendingMarket    `json:"lendingMarkets"`
	LendingTvl              float64            `json:"lendingTvl"`
	CreatedAt               time.Time          `json:"createdAt"`
}

// TvlStats is the cross-chain TVL rollup served by /stats/tvl
type TvlStats struct {
	TVL            float64           `json:"tvl"`
	TotalLiquidity float64           `json:"totalLiquidity"`
	TotalVolume    float64           `json:"totalVolume"`
	LendingTvl     float64           `json:"lendingTvl"`
	Chains         []ChainTvl        `json:"chains"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// ChainTvl is one network's share of the TVL rollup
type ChainTvl struct {
	ChainID   ChainID `json:"chainId"`
	TVL       float64 `json:"tvl"`
	Liquidity float64 `json:"liquidity"`
	Volume    float64 `json:"volume"`
}

// NetworkStats is the per-chain statistics snapshot served by /stats/network/:chainId
type NetworkStats struct {
	ChainID        ChainID         `json:"chainId"`
	DigiPrice      float64         `json:"digiPrice"`
	TVL            float64         `json:"tvl"`
	TotalLiquidity float64         `json:"totalLiquidity"`
	TotalVolume    float64         `json:"totalVolume"`
	Farms          []FarmStats     `json:"farms"`
	DualFarms      []DualFarmStats `json:"dualFarms"`
	LPVolumes      []PairVolume    `json:"lpVolumes"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// PairVolume carries the indexed 24h volume and derived APR for one pair
type PairVolume struct {
	Address   string  `json:"address"`
	Volume24h float64 `json:"dailyVolume"`
	Liquidity float64 `json:"liquidity"`
	APR       float64 `json:"apr"`
}

// WalletHolding is one staked position owned by a wallet
type WalletHolding struct {
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	StakedBalance  float64 `json:"stakedBalance"`
	StakedUSD      float64 `json:"stakedUsd"`
	PendingReward  float64 `json:"pendingReward"`
	PendingUSD     float64 `json:"pendingUsd"`
	APR            float64 `json:"apr"`
	EarningsPerDay float64 `json:"earningsPerDay"`
}

// WalletStats is the per-wallet aggregation served by /stats/wallet/:address
type WalletStats struct {
	Address            string          `json:"address"`
	TVL                float64         `json:"tvl"`
	PendingRewardUSD   float64         `json:"pendingRewardUsd"`
	AggregateAPR       float64         `json:"aggregateApr"`
	EarningsPerDayUSD  float64         `json:"dollarsEarnedPerDay"`
	EarningsPerWeekUSD float64         `json:"dollarsEarnedPerWeek"`
	Pools              []WalletHolding `json:"pools"`
	Farms              []WalletHolding `json:"farms"`
}

// FarmPriceMap maps a masterchef pool index to its LP token USD price
type FarmPriceMap map[int]float64
