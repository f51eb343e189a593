package overrides

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"collections-review-backend/internal/apperrors"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/repository"
	"collections-review-backend/internal/roster"
)

// Service is the administrator CRUD surface over the vendor override
// table the assignment engine consults.
type Service struct {
	registry repository.OverrideRegistry
	roster   roster.Source
	log      *logrus.Logger
}

func NewService(registry repository.OverrideRegistry, rosterSrc roster.Source, log *logrus.Logger) *Service {
	return &Service{registry: registry, roster: rosterSrc, log: log}
}

func (s *Service) Add(ctx context.Context, vendorCode, reviewer string, actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.Permission("Solo un administrador puede gestionar las reglas de asignación.")
	}
	vendorCode = strings.TrimSpace(vendorCode)
	reviewer = strings.TrimSpace(reviewer)
	if vendorCode == "" || reviewer == "" {
		return apperrors.Validation("El código de proveedor y el analista son obligatorios.")
	}
	known, err := s.roster.Reviewers(ctx)
	if err != nil {
		return apperrors.Upstream("No se pudo consultar la nómina de analistas.", err)
	}
	found := false
	for _, r := range known {
		if r.ID == reviewer {
			found = true
			break
		}
	}
	if !found {
		return apperrors.Validation("El analista indicado no existe en la nómina.")
	}
	rule := models.OverrideRule{
		VendorCode: vendorCode,
		Reviewer:   reviewer,
		CreatedBy:  actor.ID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.registry.Put(ctx, rule); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"vendor":   vendorCode,
		"reviewer": reviewer,
		"actor":    actor.ID,
	}).Info("override rule saved")
	return nil
}

func (s *Service) Remove(ctx context.Context, vendorCode string, actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.Permission("Solo un administrador puede gestionar las reglas de asignación.")
	}
	err := s.registry.Remove(ctx, strings.TrimSpace(vendorCode))
	if err == repository.ErrNotFound {
		return apperrors.NotFound("No existe una regla para ese proveedor.")
	}
	return err
}

func (s *Service) List(ctx context.Context, actor models.Actor) ([]models.OverrideRule, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Permission("Solo un administrador puede gestionar las reglas de asignación.")
	}
	return s.registry.List(ctx)
}
