package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collections-review-backend/internal/apperrors"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/repository"
)

type Service struct {
	store  repository.RecordStore
	audit  repository.AuditLog
	signal repository.UpdateSignal
	log    *logrus.Logger
}

func NewService(store repository.RecordStore, audit repository.AuditLog, signal repository.UpdateSignal, log *logrus.Logger) *Service {
	return &Service{store: store, audit: audit, signal: signal, log: log}
}

// UpdateStatus applies one review transition. The audit entry is always
// written before the status itself, so a crash mid-update can lose the
// status write but never leave a transition unaudited; re-running the
// update reconciles the record.
func (s *Service) UpdateStatus(ctx context.Context, loc repository.Locator, newStatus models.ReviewStatus, comment string, actor models.Actor) error {
	if !actor.CanReview() {
		return apperrors.Permission("Solo un analista o administrador puede cambiar el estado.")
	}
	if !newStatus.Valid() {
		return apperrors.Validation(fmt.Sprintf("Estado inválido: %q.", string(newStatus)))
	}
	comment = strings.TrimSpace(comment)
	if newStatus == models.StatusRejected && comment == "" {
		return apperrors.Validation("El comentario es obligatorio al rechazar un registro.")
	}
	if newStatus == models.StatusPending {
		comment = ""
	}

	rec, err := s.store.Get(ctx, loc)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("El registro no existe o fue movido.")
		}
		return err
	}
	if !actor.IsAdmin() && rec.AssignedReviewer != actor.ID {
		return apperrors.Permission("El registro está asignado a otro analista.")
	}

	current := rec.ReviewStatus
	if current == "" {
		current = models.StatusPending
	}
	if !models.CanTransition(current, newStatus) {
		return apperrors.Validation(fmt.Sprintf("Transición inválida: %s a %s.", current, newStatus))
	}

	entry := models.AuditEntry{
		ID:             uuid.New(),
		RecordID:       rec.RecordID,
		Reviewer:       actor.ID,
		PreviousStatus: current,
		NewStatus:      newStatus,
		Comment:        comment,
		CreatedAt:      time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("writing audit entry for %s: %w", rec.RecordID, err)
	}
	if err := s.store.SetStatus(ctx, loc, newStatus, comment); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("El registro no existe o fue movido.")
		}
		return err
	}
	if err := s.signal.Touch(ctx, time.Now()); err != nil {
		s.log.WithError(err).Warn("failed to record last-update signal")
	}

	s.log.WithFields(logrus.Fields{
		"record_id": rec.RecordID,
		"locator":   loc.String(),
		"actor":     actor.ID,
		"from":      string(current),
		"to":        string(newStatus),
	}).Info("review status updated")
	return nil
}

// AuditTrail returns the transition history of the record behind loc.
// Admins can read any trail; a reviewer only their own records'.
func (s *Service) AuditTrail(ctx context.Context, loc repository.Locator, actor models.Actor) ([]models.AuditEntry, error) {
	if !actor.CanReview() {
		return nil, apperrors.Permission("Solo un analista o administrador puede consultar la auditoría.")
	}
	rec, err := s.store.Get(ctx, loc)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("El registro no existe o fue movido.")
		}
		return nil, err
	}
	if !actor.IsAdmin() && rec.AssignedReviewer != actor.ID {
		return nil, apperrors.Permission("El registro está asignado a otro analista.")
	}
	return s.audit.ForRecord(ctx, rec.RecordID)
}
