package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"collections-review-backend/internal/models"
)

// Locator pins a record to its physical position. The wire form is
// opaque to callers; a locator goes stale when the row is deleted.
type Locator struct {
	Partition string
	Pos       int
}

func (l Locator) String() string {
	raw := fmt.Sprintf("%s|%d", l.Partition, l.Pos)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func ParseLocator(s string) (Locator, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Locator{}, fmt.Errorf("malformed locator: %w", err)
	}
	part, posStr, ok := strings.Cut(string(raw), "|")
	if !ok || part == "" {
		return Locator{}, fmt.Errorf("malformed locator %q", s)
	}
	pos, err := strconv.Atoi(posStr)
	if err != nil || pos < 1 {
		return Locator{}, fmt.Errorf("malformed locator position %q", posStr)
	}
	return Locator{Partition: part, Pos: pos}, nil
}

// RecordStore is the partitioned record store. Every service receives it
// as an interface so tests can substitute the in-memory implementation.
type RecordStore interface {
	// EnsurePartition lazily creates the partition with the current
	// schema. Existing partitions are returned untouched, whatever
	// schema version they carry.
	EnsurePartition(ctx context.Context, key string) error
	// Partitions lists existing partition keys matching the naming
	// convention, in stable (sorted) order.
	Partitions(ctx context.Context) ([]string, error)
	// Append adds rec as the next row of the partition and returns its
	// locator.
	Append(ctx context.Context, key string, rec *models.Record) (Locator, error)
	// Records reads every row of a partition in position order. Rows
	// from partitions created under an older schema have the missing
	// fields default-filled.
	Records(ctx context.Context, key string) ([]models.Record, error)
	Get(ctx context.Context, loc Locator) (*models.Record, error)
	// ReferenceNumbers reads the full reference-number column of one
	// partition. The duplicate guard is scoped to this partition only.
	ReferenceNumbers(ctx context.Context, key string) ([]string, error)
	SetStatus(ctx context.Context, loc Locator, status models.ReviewStatus, comment string) error
	// ApplyAssignments writes a batch of pos -> reviewer assignments to
	// one partition in a single pass. Rows that already have a reviewer
	// are left untouched.
	ApplyAssignments(ctx context.Context, key string, assignments map[int]string) error
	Delete(ctx context.Context, loc Locator) error
}

type OverrideRegistry interface {
	List(ctx context.Context) ([]models.OverrideRule, error)
	Put(ctx context.Context, rule models.OverrideRule) error
	Remove(ctx context.Context, vendorCode string) error
	// Map returns vendorCode -> reviewer for the assignment pass.
	Map(ctx context.Context) (map[string]string, error)
}

type AuditLog interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	ForRecord(ctx context.Context, recordID string) ([]models.AuditEntry, error)
}

type DeletionLog interface {
	Append(ctx context.Context, snapshot models.DeletedRecord) error
}

type VendorDirectory interface {
	Upsert(ctx context.Context, code, name string) error
	CodeByName(ctx context.Context, name string) (string, bool, error)
}

// CursorStore keeps the per-branch round-robin position between
// assignment passes. Entries expire after the configured TTL and are
// not required to survive a restart.
type CursorStore interface {
	// Get returns the last assigned index for branch, -1 when absent
	// or expired.
	Get(ctx context.Context, branch string) (int, error)
	// Set stores the cursor and refreshes its TTL.
	Set(ctx context.Context, branch string, index int) error
}

// UpdateSignal is the process-wide "new data" marker polling clients
// check before refetching.
type UpdateSignal interface {
	Touch(ctx context.Context, at time.Time) error
	Last(ctx context.Context) (time.Time, error)
}

// Locker is the single global non-reentrant lock guarding the
// assignment pass. Obtain waits up to the configured bound; a contended
// caller gets ok=false and simply skips its pass.
type Locker interface {
	Obtain(ctx context.Context) (release func(), ok bool, err error)
}
