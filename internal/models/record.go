package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReviewStatus string

const (
	StatusPending   ReviewStatus = "Pending"
	StatusProcessed ReviewStatus = "Processed"
	StatusRejected  ReviewStatus = "Rejected"
)

// Filter sentinels accepted by the list endpoint.
const (
	StatusFilterAll = "Todos"
	BranchFilterAll = "ALL"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an allowed review transition.
// Processed and Rejected may only move back to Pending (undo).
func CanTransition(from, to ReviewStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessed || to == StatusRejected
	case StatusProcessed, StatusRejected:
		return to == StatusPending
	}
	return false
}

// Record is one payment-collection entry. Records live in per-partition
// tables, never in a global one; Pos is the row position inside its
// partition and, together with the partition key, forms the locator.
type Record struct {
	Pos              int             `gorm:"column:pos;primaryKey" json:"-"`
	RecordID         string          `gorm:"column:record_id;index" json:"record_id"`
	VendorCode       string          `gorm:"column:vendor_code" json:"vendor_code"`
	VendorName       string          `gorm:"column:vendor_name" json:"vendor_name"`
	ClientCode       string          `gorm:"column:client_code" json:"client_code"`
	ClientName       string          `gorm:"column:client_name" json:"client_name"`
	InvoiceRefs      string          `gorm:"column:invoice_refs" json:"invoice_refs"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(18,2)" json:"amount"`
	PaymentMethod    string          `gorm:"column:payment_method" json:"payment_method"`
	IssuingBank      string          `gorm:"column:issuing_bank" json:"issuing_bank"`
	ReceivingBank    string          `gorm:"column:receiving_bank" json:"receiving_bank"`
	ReferenceNumber  string          `gorm:"column:reference_number" json:"reference_number"`
	CollectionType   string          `gorm:"column:collection_type" json:"collection_type"`
	PaymentDate      string          `gorm:"column:payment_date" json:"payment_date"`
	Observations     string          `gorm:"column:observations" json:"observations"`
	CreatedBy        string          `gorm:"column:created_by;index" json:"created_by"`
	Branch           string          `gorm:"column:branch;index" json:"branch"`
	CreatedAt        time.Time       `gorm:"column:created_at" json:"created_at"`
	ReviewStatus     ReviewStatus    `gorm:"column:review_status;index" json:"review_status"`
	ReviewComment    string          `gorm:"column:review_comment" json:"review_comment"`
	AssignedReviewer string          `gorm:"column:assigned_reviewer;index" json:"assigned_reviewer"`
}

// CurrentSchemaVersion is stamped on partitions at creation time.
// Version 1 partitions predate collection_type and observations.
const CurrentSchemaVersion = 2

var schemaV2Only = []string{"collection_type", "observations"}

// SchemaColumns returns the column set a partition of the given version
// was created with. Used by readers to tolerate schema drift: columns a
// partition never had are left at their zero value.
func SchemaColumns(version int) []string {
	all := []string{
		"pos", "record_id", "vendor_code", "vendor_name", "client_code",
		"client_name", "invoice_refs", "amount", "payment_method",
		"issuing_bank", "receiving_bank", "reference_number",
		"collection_type", "payment_date", "observations", "created_by",
		"branch", "created_at", "review_status", "review_comment",
		"assigned_reviewer",
	}
	if version >= CurrentSchemaVersion {
		return all
	}
	v1 := make([]string, 0, len(all))
	for _, col := range all {
		keep := true
		for _, skip := range schemaV2Only {
			if col == skip {
				keep = false
				break
			}
		}
		if keep {
			v1 = append(v1, col)
		}
	}
	return v1
}

// TrimToSchema blanks fields a partition of the given version never
// stored, so in-memory reads behave like column-scoped table reads.
func TrimToSchema(rec *Record, version int) {
	if version >= CurrentSchemaVersion {
		return
	}
	rec.CollectionType = ""
	rec.Observations = ""
}

// PartitionMeta registers every partition with the schema version it was
// created under. The schema of an existing partition is never migrated.
type PartitionMeta struct {
	Key           string `gorm:"primaryKey;column:key"`
	SchemaVersion int
	CreatedAt     time.Time
}
