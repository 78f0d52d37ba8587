package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// GetSnapshot retrieves a snapshot by key
func (s *pgStore) GetSnapshot(ctx context.Context, key string) (*schema.Snapshot, error) {
	var snapshot schema.Snapshot
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snapshot, nil
}

// UpsertSnapshot writes a snapshot payload with the given freshness timestamp
func (s *pgStore) UpsertSnapshot(ctx context.Context, key string, payload []byte, createdAt time.Time) error {
	snapshot := schema.Snapshot{
		Key:       key,
		Payload:   payload,
		CreatedAt: createdAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "created_at"}),
	}).Create(&snapshot).Error
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// TouchSnapshot bumps a snapshot's freshness timestamp without changing its payload
func (s *pgStore) TouchSnapshot(ctx context.Context, key string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&schema.Snapshot{}).
		Where("key = ?", key).
		Update("created_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to touch snapshot: %w", err)
	}

	return nil
}

// GetBillByMintTx retrieves a bill by its mint transaction
func (s *pgStore) GetBillByMintTx(ctx context.Context, chainID uint64, txHash string) (*schema.Bill, error) {
	var bill schema.Bill
	err := s.db.WithContext(ctx).
		Where("chain_id = ? AND mint_tx_hash = ?", chainID, txHash).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", txHash, domain.ErrBillNotFound)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return &bill, nil
}

// GetBillByToken retrieves a bill by NFT contract and token id
func (s *pgStore) GetBillByToken(ctx context.Context, chainID uint64, nftContract, tokenID string) (*schema.Bill, error) {
	var bill schema.Bill
	err := s.db.WithContext(ctx).
		Where("chain_id = ? AND nft_contract = ? AND token_id = ?", chainID, nftContract, tokenID).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", nftContract, tokenID, domain.ErrBillNotFound)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return &bill, nil
}

// CreateBill inserts a bill; a duplicate mint transaction is a no-op so
// re-processing the same mint is safe
func (s *pgStore) CreateBill(ctx context.Context, bill *schema.Bill) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain_id"}, {Name: "mint_tx_hash"}},
		DoNothing: true,
	}).Create(bill).Error
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetLastHistoryPoint returns the most recent history point
func (s *pgStore) GetLastHistoryPoint(ctx context.Context) (*schema.TreasuryHistory, error) {
	var point schema.TreasuryHistory
	err := s.db.WithContext(ctx).Order("timestamp DESC").First(&point).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last history point: %w", err)
	}
	return &point, nil
}

// UpsertHistoryPoint writes one day of the series keyed by its timestamp
func (s *pgStore) UpsertHistoryPoint(ctx context.Context, point *schema.TreasuryHistory) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "timestamp"}},
		DoUpdates: clause.AssignmentColumns([]string{"tvl", "volume", "treasury_usd", "treasury_known"}),
	}).Create(point).Error
	if err != nil {
		return fmt.Errorf("failed to upsert history point: %w", err)
	}

	return nil
}

// GetHistory returns the series between two unix timestamps, ascending
func (s *pgStore) GetHistory(ctx context.Context, from, to int64) ([]schema.TreasuryHistory, error) {
	var points []schema.TreasuryHistory
	err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from, to).
		Order("timestamp ASC").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	return points, nil
}
