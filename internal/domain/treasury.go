package domain

import "time"

// Custody classifies where a treasury position is held
type Custody string

const (
	// CustodyPOL marks protocol-owned liquidity positions
	CustodyPOL Custody = "pol"
	// CustodyOperational marks positions in the operational wallet
	CustodyOperational Custody = "operational"
)

// Counterparty classifies which protocol a treasury position belongs to
type Counterparty string

const (
	CounterpartyOwn     Counterparty = "own"
	CounterpartyPartner Counterparty = "partner"
)

// USDValue is a dollar amount that distinguishes "zero" from "failed to
// compute". Derived buckets must not treat an unknown input as zero.
type USDValue struct {
	Amount float64 `json:"amount"`
	Known  bool    `json:"known"`
}

// KnownUSD wraps a successfully computed dollar amount
func KnownUSD(amount float64) USDValue {
	return USDValue{Amount: amount, Known: true}
}

// UnknownUSD marks a value whose computation failed
func UnknownUSD() USDValue {
	return USDValue{}
}

// Add combines two values; the result is unknown if either side is
func (v USDValue) Add(other USDValue) USDValue {
	return USDValue{
		Amount: v.Amount + other.Amount,
		Known:  v.Known && other.Known,
	}
}

// AssetToken is one constituent of an LP treasury position, sized by the
// position's pro-rata share of the pool reserves
type AssetToken struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Amount  float64  `json:"amount"`
	Value   USDValue `json:"value"`
}

// TreasuryAsset is one valued treasury position. LP positions carry their
// constituent breakdown in Tokens.
type TreasuryAsset struct {
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	ChainID      ChainID      `json:"chainId"`
	IsLP         bool         `json:"isLp"`
	Amount       float64      `json:"amount"`
	Value        USDValue     `json:"value"`
	Custody      Custody      `json:"custody"`
	Counterparty Counterparty `json:"counterparty"`
	Tokens       []AssetToken `json:"tokens,omitempty"`
}

// LendingPosition is the valued state of one treasury-held lending market
type LendingPosition struct {
	MarketAddress string   `json:"marketAddress"`
	Underlying    string   `json:"underlying"`
	SupplyUSD     USDValue `json:"supplyUsd"`
	BorrowUSD     USDValue `json:"borrowUsd"`
}

// Treasury is the full treasury valuation snapshot served by /treasury
type Treasury struct {
	TotalValue       USDValue          `json:"totalValue"`
	POLValue         USDValue          `json:"polValue"`
	OperationalValue USDValue          `json:"operationalValue"`
	LendingValue     USDValue          `json:"lendingValue"`
	Assets           []TreasuryAsset   `json:"assets"`
	LendingPositions []LendingPosition `json:"lendingPositions"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// AssetOverview is the rollup of treasury assets grouped by token
type AssetOverview struct {
	Tokens    []AssetOverviewEntry `json:"tokens"`
	Total     USDValue             `json:"total"`
	CreatedAt time.Time            `json:"createdAt"`
}

// AssetOverviewEntry aggregates all positions of one token across custody buckets
type AssetOverviewEntry struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Amount  float64  `json:"amount"`
	Value   USDValue `json:"value"`
}

// TreasuryHistoryPoint is one day of the treasury/TVL time series
type TreasuryHistoryPoint struct {
	Timestamp int64    `json:"timestamp"`
	TVL       float64  `json:"tvl"`
	Volume    float64  `json:"volume"`
	Treasury  USDValue `json:"treasury"`
}
