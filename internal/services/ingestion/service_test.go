package ingestion

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"collections-review-backend/internal/apperrors"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/partition"
	"collections-review-backend/internal/repository"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testClock() time.Time {
	return time.Date(2025, time.March, 15, 9, 30, 0, 0, time.UTC)
}

func newTestService(strategy partition.Strategy) (*Service, *repository.MemoryStore, *repository.MemoryDeletionLog) {
	store := repository.NewMemoryStore()
	deletions := repository.NewMemoryDeletionLog()
	svc := NewService(store, repository.NewMemoryVendors(), deletions, repository.NewMemoryCache(time.Hour), strategy, testLogger())
	svc.SetClock(testClock)
	return svc, store, deletions
}

func validPayload() SubmitPayload {
	return SubmitPayload{
		VendorCode:      "V001",
		VendorName:      "Distribuidora Oriente",
		ClientCode:      "C100",
		ClientName:      "Farmacia Central",
		InvoiceRefs:     "F-001, F-002",
		Amount:          "150.75",
		PaymentMethod:   "transferencia",
		IssuingBank:     "BCO2",
		ReceivingBank:   "BCO1",
		ReferenceNumber: "REF123",
		PaymentDate:     "2025-03-14",
		Branch:          "Caracas",
	}
}

var agent = models.Actor{ID: "agente1", Role: models.RoleAgent}

func TestNormalizeInvoiceRefs(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"F-001, F-002", "F-001,F-002"},
		{" F-001 ,, F-002 , ", "F-001,F-002"},
		{"F-001", "F-001"},
		{", ,", ""},
	}
	for _, tc := range cases {
		got := NormalizeInvoiceRefs(tc.in)
		if got != tc.expected {
			t.Fatalf("NormalizeInvoiceRefs(%q) = %q, expected %q", tc.in, got, tc.expected)
		}
		if again := NormalizeInvoiceRefs(got); again != got {
			t.Fatalf("normalization not idempotent: %q -> %q", got, again)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, store, _ := newTestService(partition.ByVendor)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*SubmitPayload)
	}{
		{"missing vendor", func(p *SubmitPayload) { p.VendorCode = "" }},
		{"missing client", func(p *SubmitPayload) { p.ClientCode = "" }},
		{"missing reference", func(p *SubmitPayload) { p.ReferenceNumber = "" }},
		{"missing branch", func(p *SubmitPayload) { p.Branch = "" }},
		{"blank invoice list", func(p *SubmitPayload) { p.InvoiceRefs = " , ," }},
		{"zero amount", func(p *SubmitPayload) { p.Amount = "0" }},
		{"negative amount", func(p *SubmitPayload) { p.Amount = "-10" }},
		{"non numeric amount", func(p *SubmitPayload) { p.Amount = "diez" }},
		{"bad payment date", func(p *SubmitPayload) { p.PaymentDate = "15-03-2025" }},
	}
	for _, tc := range cases {
		payload := validPayload()
		tc.mutate(&payload)
		_, _, err := svc.Submit(ctx, payload, agent)
		if !apperrors.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	// No partial writes from failed submissions.
	parts, _ := store.Partitions(ctx)
	for _, p := range parts {
		recs, _ := store.Records(ctx, p)
		if len(recs) != 0 {
			t.Fatalf("failed submissions must not write, found %d rows in %s", len(recs), p)
		}
	}
}

func TestSubmitCreatesPartitionAndRecord(t *testing.T) {
	svc, store, _ := newTestService(partition.ByVendor)
	ctx := context.Background()

	id, loc, err := svc.Submit(ctx, validPayload(), agent)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatal("Submit returned empty record id")
	}
	if loc.Partition != "V_V001_2025_mar" || loc.Pos != 1 {
		t.Fatalf("expected first row of V_V001_2025_mar, got %+v", loc)
	}

	rec, err := store.Get(ctx, loc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ReviewStatus != models.StatusPending {
		t.Fatalf("new record status = %q, expected Pending", rec.ReviewStatus)
	}
	if rec.AssignedReviewer != "" {
		t.Fatalf("new record must be unassigned, got %q", rec.AssignedReviewer)
	}
	if rec.InvoiceRefs != "F-001,F-002" {
		t.Fatalf("invoice refs not normalized: %q", rec.InvoiceRefs)
	}
	if rec.CreatedBy != agent.ID {
		t.Fatalf("creator = %q, expected %q", rec.CreatedBy, agent.ID)
	}

	last, _ := svc.LastUpdate(ctx)
	if last.IsZero() {
		t.Fatal("submission must touch the last-update signal")
	}
}

func TestDuplicateReferenceScopedToPartition(t *testing.T) {
	svc, _, _ := newTestService(partition.ByVendor)
	ctx := context.Background()

	if _, _, err := svc.Submit(ctx, validPayload(), agent); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	dup := validPayload()
	dup.InvoiceRefs = "F-009"
	_, _, err := svc.Submit(ctx, dup, agent)
	if !apperrors.IsConflict(err) {
		t.Fatalf("same reference in same partition: expected conflict, got %v", err)
	}
	if err.Error() != "El número de referencia ya existe en esta partición." {
		t.Fatalf("unexpected conflict message: %q", err.Error())
	}

	// Same reference lands in a different vendor partition: allowed.
	other := validPayload()
	other.VendorCode = "V002"
	if _, _, err := svc.Submit(ctx, other, agent); err != nil {
		t.Fatalf("same reference in different partition: %v", err)
	}
}

// raceStore stalls appends until the test releases them, so two
// submissions can both pass the duplicate check first.
type raceStore struct {
	*repository.MemoryStore
	arrived chan struct{}
	release chan struct{}
}

func (s *raceStore) Append(ctx context.Context, key string, rec *models.Record) (repository.Locator, error) {
	s.arrived <- struct{}{}
	<-s.release
	return s.MemoryStore.Append(ctx, key, rec)
}

func TestDuplicateCheckAppendRace(t *testing.T) {
	inner := repository.NewMemoryStore()
	store := &raceStore{
		MemoryStore: inner,
		arrived:     make(chan struct{}, 2),
		release:     make(chan struct{}),
	}
	svc := NewService(store, repository.NewMemoryVendors(), repository.NewMemoryDeletionLog(), repository.NewMemoryCache(time.Hour), partition.ByVendor, testLogger())
	svc.SetClock(testClock)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Submit(ctx, validPayload(), agent)
		}(i)
	}
	// Both submissions have read the (empty) reference column and sit
	// before their append. This is the documented race window.
	<-store.arrived
	<-store.arrived
	close(store.release)
	wg.Wait()

	if errs[0] != nil || errs[1] != nil {
		t.Fatalf("both interleaved submissions pass the guard, got %v / %v", errs[0], errs[1])
	}
	refs, _ := inner.ReferenceNumbers(ctx, "V_V001_2025_mar")
	dupes := 0
	for _, r := range refs {
		if r == "REF123" {
			dupes++
		}
	}
	if dupes != 2 {
		t.Fatalf("expected the race to produce 2 identical references, got %d", dupes)
	}
}

func TestDeleteGraceWindow(t *testing.T) {
	svc, store, deletions := newTestService(partition.ByVendor)
	ctx := context.Background()

	_, loc, err := svc.Submit(ctx, validPayload(), agent)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// A different identity cannot delete, even an admin.
	err = svc.Delete(ctx, loc, models.Actor{ID: "otro", Role: models.RoleAdmin})
	if !apperrors.IsPermission(err) {
		t.Fatalf("delete by non-creator: expected permission error, got %v", err)
	}

	// Past the window the creator cannot delete either.
	svc.SetClock(func() time.Time { return testClock().Add(DeletionGrace) })
	err = svc.Delete(ctx, loc, agent)
	if !apperrors.IsPermission(err) {
		t.Fatalf("delete after grace window: expected permission error, got %v", err)
	}

	// Inside the window the creator can, and the row is snapshotted.
	svc.SetClock(func() time.Time { return testClock().Add(DeletionGrace - time.Second) })
	if err := svc.Delete(ctx, loc, agent); err != nil {
		t.Fatalf("delete inside grace window: %v", err)
	}
	if _, err := store.Get(ctx, loc); err != repository.ErrNotFound {
		t.Fatalf("record should be gone, got %v", err)
	}
	snaps := deletions.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 deletion snapshot, got %d", len(snaps))
	}
	if !strings.Contains(string(snaps[0].Snapshot), "REF123") {
		t.Fatalf("snapshot must carry the full record, got %s", snaps[0].Snapshot)
	}

	// Stale locator after deletion.
	err = svc.Delete(ctx, loc, agent)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("delete of stale locator: expected not-found, got %v", err)
	}
}
