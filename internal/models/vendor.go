package models

import "time"

// Vendor maps a canonical vendor code to its display name. Upserted on
// ingestion so the assignment scan can resolve rows that carry only a
// vendor name.
type Vendor struct {
	Code      string    `gorm:"primaryKey;column:code" json:"code"`
	Name      string    `gorm:"index" json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}
