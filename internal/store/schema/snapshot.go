package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot stores one named blob of computed statistics. CreatedAt is the
// freshness timestamp: it is bumped as a refresh claim before a recompute
// starts and set to the compute time when the new payload lands.
// Last-writer-wins; no transaction wraps the read-decide-write sequence.
type Snapshot struct {
	Key       string         `gorm:"column:key;primaryKey;type:text"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Snapshot) TableName() string {
	return "snapshots"
}
