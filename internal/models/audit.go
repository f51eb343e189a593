package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is appended on every review transition and never mutated.
type AuditEntry struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID       string       `gorm:"index" json:"record_id"`
	Reviewer       string       `json:"reviewer"`
	PreviousStatus ReviewStatus `json:"previous_status"`
	NewStatus      ReviewStatus `json:"new_status"`
	Comment        string       `json:"comment"`
	CreatedAt      time.Time    `json:"created_at"`
}
