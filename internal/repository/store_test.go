package repository

import (
	"context"
	"testing"
	"time"

	"collections-review-backend/internal/models"
)

func TestLocatorRoundTrip(t *testing.T) {
	cases := []Locator{
		{Partition: "REG_2025_mar", Pos: 1},
		{Partition: "V_V001_B_BCO1_2025_dic", Pos: 42},
	}
	for _, loc := range cases {
		parsed, err := ParseLocator(loc.String())
		if err != nil {
			t.Fatalf("ParseLocator(%q) error: %v", loc.String(), err)
		}
		if parsed != loc {
			t.Fatalf("locator round trip: expected %+v, got %+v", loc, parsed)
		}
	}
}

func TestParseLocatorRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "!!notbase64!!", "cGxhaW4", "UkVHXzIwMjVfbWFyfDA"} {
		if _, err := ParseLocator(s); err == nil {
			t.Fatalf("ParseLocator(%q) expected error", s)
		}
	}
}

func TestMemoryStoreAppendGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := "REG_2025_mar"
	if err := store.EnsurePartition(ctx, key); err != nil {
		t.Fatalf("EnsurePartition: %v", err)
	}

	rec := models.Record{RecordID: "r1", ReferenceNumber: "REF123", CreatedAt: time.Now()}
	loc, err := store.Append(ctx, key, &rec)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if loc.Pos != 1 {
		t.Fatalf("first row expected pos 1, got %d", loc.Pos)
	}

	got, err := store.Get(ctx, loc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RecordID != "r1" {
		t.Fatalf("Get returned record %q", got.RecordID)
	}

	if err := store.Delete(ctx, loc); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, loc); err != ErrNotFound {
		t.Fatalf("Get after delete: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, loc); err != ErrNotFound {
		t.Fatalf("double Delete: expected ErrNotFound, got %v", err)
	}

	// Positions are never reused after a delete.
	loc2, err := store.Append(ctx, key, &models.Record{RecordID: "r2"})
	if err != nil {
		t.Fatalf("Append after delete: %v", err)
	}
	if loc2.Pos != 2 {
		t.Fatalf("expected pos 2 after deletion gap, got %d", loc2.Pos)
	}
}

func TestMemoryStorePartitionsFilterByPattern(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, key := range []string{"REG_2025_mar", "V_V001_2025_abr", "scratch_table"} {
		if err := store.EnsurePartition(ctx, key); err != nil {
			t.Fatalf("EnsurePartition(%s): %v", key, err)
		}
	}
	parts, err := store.Partitions(ctx)
	if err != nil {
		t.Fatalf("Partitions: %v", err)
	}
	if len(parts) != 2 || parts[0] != "REG_2025_mar" || parts[1] != "V_V001_2025_abr" {
		t.Fatalf("Partitions = %v, expected the two matching keys sorted", parts)
	}
}

func TestMemoryStoreOldSchemaDefaultFills(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := "REG_2024_ene"
	if err := store.EnsurePartition(ctx, key); err != nil {
		t.Fatalf("EnsurePartition: %v", err)
	}
	if _, err := store.Append(ctx, key, &models.Record{RecordID: "old", CollectionType: "transferencia", Observations: "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	store.SetSchemaVersion(key, 1)

	recs, err := store.Records(ctx, key)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if recs[0].CollectionType != "" || recs[0].Observations != "" {
		t.Fatalf("v1 partition should default-fill newer columns, got %+v", recs[0])
	}
}

func TestMemoryStoreAssignmentsSkipAssignedRows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := "REG_2025_may"
	store.EnsurePartition(ctx, key)
	store.Append(ctx, key, &models.Record{RecordID: "a"})
	store.Append(ctx, key, &models.Record{RecordID: "b", AssignedReviewer: "kept"})

	err := store.ApplyAssignments(ctx, key, map[int]string{1: "ana", 2: "luis"})
	if err != nil {
		t.Fatalf("ApplyAssignments: %v", err)
	}
	recs, _ := store.Records(ctx, key)
	if recs[0].AssignedReviewer != "ana" || recs[0].ReviewStatus != models.StatusPending {
		t.Fatalf("row 1 not assigned: %+v", recs[0])
	}
	if recs[1].AssignedReviewer != "kept" {
		t.Fatalf("row 2 should keep its reviewer, got %q", recs[1].AssignedReviewer)
	}
}

func TestMemoryCacheCursorTTL(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(6 * time.Hour)
	now := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	if idx, _ := cache.Get(ctx, "Caracas"); idx != -1 {
		t.Fatalf("empty cursor expected -1, got %d", idx)
	}
	cache.Set(ctx, "Caracas", 3)
	if idx, _ := cache.Get(ctx, "Caracas"); idx != 3 {
		t.Fatalf("cursor expected 3, got %d", idx)
	}
	now = now.Add(7 * time.Hour)
	if idx, _ := cache.Get(ctx, "Caracas"); idx != -1 {
		t.Fatalf("expired cursor expected -1, got %d", idx)
	}
}

func TestMemoryCacheSignalMonotonic(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Hour)
	ts := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	cache.Touch(ctx, ts)
	cache.Touch(ctx, ts.Add(-time.Minute))
	last, _ := cache.Last(ctx)
	if !last.After(ts) {
		t.Fatalf("a backdated touch must still advance the signal, got %v", last)
	}
}
