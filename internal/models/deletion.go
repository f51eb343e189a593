package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeletedRecord preserves a full snapshot of a record removed inside the
// deletion grace window. Rows here are never updated or removed.
type DeletedRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID  string         `gorm:"index" json:"record_id"`
	Partition string         `json:"partition"`
	Pos       int            `json:"pos"`
	Snapshot  datatypes.JSON `json:"snapshot"`
	DeletedBy string         `json:"deleted_by"`
	DeletedAt time.Time      `json:"deleted_at"`
}
