package models

import "time"

// OverrideRule forces every record of a vendor to a specific reviewer,
// bypassing round robin. At most one active rule per vendor.
type OverrideRule struct {
	VendorCode string    `gorm:"primaryKey;column:vendor_code" json:"vendor_code"`
	Reviewer   string    `gorm:"column:reviewer" json:"reviewer"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
