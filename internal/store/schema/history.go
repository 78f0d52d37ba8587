package schema

import "time"

// TreasuryHistory is one day of the treasury/TVL time series. Timestamp is
// day-granular (midnight UTC) and acts as the natural key, which makes the
// backfill idempotent.
type TreasuryHistory struct {
	Timestamp     int64     `gorm:"column:timestamp;primaryKey;autoIncrement:false"`
	TVL           float64   `gorm:"column:tvl"`
	Volume        float64   `gorm:"column:volume"`
	TreasuryUSD   float64   `gorm:"column:treasury_usd"`
	TreasuryKnown bool      `gorm:"column:treasury_known"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TreasuryHistory) TableName() string {
	return "treasury_history"
}
