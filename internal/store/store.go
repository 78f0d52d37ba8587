package store

import (
	"context"
	"time"

	"github.com/digiswap/stats-api/internal/store/schema"
)

// Store defines the interface for database operations
type Store interface {
	// GetSnapshot retrieves a snapshot by key, nil when it does not exist
	GetSnapshot(ctx context.Context, key string) (*schema.Snapshot, error)
	// UpsertSnapshot writes a snapshot payload with the given freshness timestamp
	UpsertSnapshot(ctx context.Context, key string, payload []byte, createdAt time.Time) error
	// TouchSnapshot bumps a snapshot's freshness timestamp without changing its
	// payload. Used as the refresh claim; a no-op when the snapshot is missing.
	TouchSnapshot(ctx context.Context, key string, at time.Time) error

	// GetBillByMintTx retrieves a bill by its mint transaction, nil when absent
	GetBillByMintTx(ctx context.Context, chainID uint64, txHash string) (*schema.Bill, error)
	// GetBillByToken retrieves a bill by NFT contract and token id, nil when absent
	GetBillByToken(ctx context.Context, chainID uint64, nftContract, tokenID string) (*schema.Bill, error)
	// CreateBill inserts a bill; duplicate mint transactions are ignored
	CreateBill(ctx context.Context, bill *schema.Bill) error

	// GetLastHistoryPoint returns the most recent history point, nil when the
	// series is empty
	GetLastHistoryPoint(ctx context.Context) (*schema.TreasuryHistory, error)
	// UpsertHistoryPoint writes one day of the series; re-running the same day
	// overwrites it with identical data
	UpsertHistoryPoint(ctx context.Context, point *schema.TreasuryHistory) error
	// GetHistory returns the series between two unix timestamps, ascending
	GetHistory(ctx context.Context, from, to int64) ([]schema.TreasuryHistory, error)
}
