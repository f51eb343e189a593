package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"collections-review-backend/internal/apperrors"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/partition"
	"collections-review-backend/internal/repository"
)

// DeletionGrace is how long the original creator can still delete a
// submission.
const DeletionGrace = 5 * time.Minute

type Service struct {
	store     repository.RecordStore
	vendors   repository.VendorDirectory
	deletions repository.DeletionLog
	signal    repository.UpdateSignal
	strategy  partition.Strategy
	validate  *validator.Validate
	log       *logrus.Logger
	now       func() time.Time
}

func NewService(
	store repository.RecordStore,
	vendors repository.VendorDirectory,
	deletions repository.DeletionLog,
	signal repository.UpdateSignal,
	strategy partition.Strategy,
	log *logrus.Logger,
) *Service {
	return &Service{
		store:     store,
		vendors:   vendors,
		deletions: deletions,
		signal:    signal,
		strategy:  strategy,
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the service clock, for grace-window tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type SubmitPayload struct {
	VendorCode      string `json:"vendor_code" validate:"required"`
	VendorName      string `json:"vendor_name"`
	ClientCode      string `json:"client_code" validate:"required"`
	ClientName      string `json:"client_name"`
	InvoiceRefs     string `json:"invoice_refs" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	PaymentMethod   string `json:"payment_method"`
	IssuingBank     string `json:"issuing_bank"`
	ReceivingBank   string `json:"receiving_bank"`
	ReferenceNumber string `json:"reference_number" validate:"required"`
	CollectionType  string `json:"collection_type"`
	PaymentDate     string `json:"payment_date"`
	Observations    string `json:"observations"`
	Branch          string `json:"branch" validate:"required"`
}

// NormalizeInvoiceRefs canonicalizes the comma-joined invoice list:
// tokens trimmed, blanks dropped, rejoined with bare commas. Reapplying
// it is a no-op.
func NormalizeInvoiceRefs(refs string) string {
	parts := strings.Split(refs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Submit validates and appends one payment record. Validation fails
// before anything is written. The duplicate-reference guard reads the
// resolved partition's reference column and is not atomic with the
// append; concurrent submissions of the same reference can both pass.
func (s *Service) Submit(ctx context.Context, payload SubmitPayload, creator models.Actor) (string, repository.Locator, error) {
	var loc repository.Locator

	if err := s.validate.Struct(payload); err != nil {
		return "", loc, apperrors.Validation("Faltan campos obligatorios en el envío.")
	}
	refs := NormalizeInvoiceRefs(payload.InvoiceRefs)
	if refs == "" {
		return "", loc, apperrors.Validation("La lista de facturas no puede estar vacía.")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if err != nil || !amount.IsPositive() {
		return "", loc, apperrors.Validation("El monto debe ser un número positivo.")
	}
	if payload.PaymentDate != "" {
		if _, err := time.Parse("2006-01-02", payload.PaymentDate); err != nil {
			return "", loc, apperrors.Validation("La fecha de pago es inválida.")
		}
	}

	// Partition on the creation timestamp, never the payment date, so
	// late submissions cannot backdate into stale shards.
	createdAt := s.now()
	key := partition.ResolveKey(s.strategy, createdAt, payload.VendorCode, payload.ReceivingBank)
	if err := s.store.EnsurePartition(ctx, key); err != nil {
		return "", loc, fmt.Errorf("ensuring partition %s: %w", key, err)
	}

	existing, err := s.store.ReferenceNumbers(ctx, key)
	if err != nil {
		return "", loc, fmt.Errorf("reading references of %s: %w", key, err)
	}
	ref := strings.TrimSpace(payload.ReferenceNumber)
	for _, r := range existing {
		if r == ref {
			return "", loc, apperrors.Conflict("El número de referencia ya existe en esta partición.")
		}
	}

	rec := models.Record{
		RecordID:        uuid.New().String(),
		VendorCode:      strings.TrimSpace(payload.VendorCode),
		VendorName:      strings.TrimSpace(payload.VendorName),
		ClientCode:      strings.TrimSpace(payload.ClientCode),
		ClientName:      strings.TrimSpace(payload.ClientName),
		InvoiceRefs:     refs,
		Amount:          amount,
		PaymentMethod:   payload.PaymentMethod,
		IssuingBank:     payload.IssuingBank,
		ReceivingBank:   payload.ReceivingBank,
		ReferenceNumber: ref,
		CollectionType:  payload.CollectionType,
		PaymentDate:     payload.PaymentDate,
		Observations:    payload.Observations,
		CreatedBy:       creator.ID,
		Branch:          strings.TrimSpace(payload.Branch),
		CreatedAt:       createdAt,
		ReviewStatus:    models.StatusPending,
	}
	loc, err = s.store.Append(ctx, key, &rec)
	if err != nil {
		return "", loc, fmt.Errorf("appending to %s: %w", key, err)
	}

	if err := s.vendors.Upsert(ctx, rec.VendorCode, rec.VendorName); err != nil {
		s.log.WithError(err).WithField("vendor", rec.VendorCode).Warn("vendor directory upsert failed")
	}
	if err := s.signal.Touch(ctx, createdAt); err != nil {
		s.log.WithError(err).Warn("failed to record last-update signal")
	}

	s.log.WithFields(logrus.Fields{
		"record_id": rec.RecordID,
		"partition": key,
		"pos":       loc.Pos,
		"creator":   creator.ID,
	}).Info("record submitted")
	return rec.RecordID, loc, nil
}

// Delete removes a record inside the grace window. Only the original
// creator may delete, and the full row is snapshotted to the immutable
// deletion log first.
func (s *Service) Delete(ctx context.Context, loc repository.Locator, actor models.Actor) error {
	rec, err := s.store.Get(ctx, loc)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("El registro no existe o fue movido.")
		}
		return err
	}
	if rec.CreatedBy != actor.ID {
		return apperrors.Permission("Solo el creador del registro puede eliminarlo.")
	}
	if s.now().Sub(rec.CreatedAt) >= DeletionGrace {
		return apperrors.Permission("La ventana para eliminar este registro ha expirado.")
	}

	snapshot, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("snapshotting record %s: %w", rec.RecordID, err)
	}
	entry := models.DeletedRecord{
		ID:        uuid.New(),
		RecordID:  rec.RecordID,
		Partition: loc.Partition,
		Pos:       loc.Pos,
		Snapshot:  snapshot,
		DeletedBy: actor.ID,
		DeletedAt: s.now(),
	}
	if err := s.deletions.Append(ctx, entry); err != nil {
		return fmt.Errorf("writing deletion log: %w", err)
	}
	if err := s.store.Delete(ctx, loc); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("El registro no existe o fue movido.")
		}
		return err
	}
	if err := s.signal.Touch(ctx, s.now()); err != nil {
		s.log.WithError(err).Warn("failed to record last-update signal")
	}
	s.log.WithFields(logrus.Fields{
		"record_id": rec.RecordID,
		"partition": loc.Partition,
		"actor":     actor.ID,
	}).Info("record deleted within grace window")
	return nil
}

// LastUpdate reports the most recent data-change signal for pollers.
func (s *Service) LastUpdate(ctx context.Context) (time.Time, error) {
	return s.signal.Last(ctx)
}
