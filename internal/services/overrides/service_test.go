package overrides

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"collections-review-backend/internal/apperrors"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/repository"
	"collections-review-backend/internal/roster"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var admin = models.Actor{ID: "root", Role: models.RoleAdmin}

func newTestService() (*Service, *repository.MemoryOverrides) {
	registry := repository.NewMemoryOverrides()
	src := roster.Static(models.Reviewer{ID: "carla", Branches: []string{models.AllBranches}})
	return NewService(registry, src, testLogger()), registry
}

func TestAddRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	reviewer := models.Actor{ID: "carla", Role: models.RoleReviewer}
	if err := svc.Add(context.Background(), "V002", "carla", reviewer); !apperrors.IsPermission(err) {
		t.Fatalf("non-admin add: expected permission error, got %v", err)
	}
}

func TestAddValidatesReviewerAgainstRoster(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if err := svc.Add(ctx, "V002", "desconocido", admin); !apperrors.IsValidation(err) {
		t.Fatalf("unknown reviewer: expected validation error, got %v", err)
	}
	if err := svc.Add(ctx, "", "carla", admin); !apperrors.IsValidation(err) {
		t.Fatalf("blank vendor: expected validation error, got %v", err)
	}
}

func TestAddReplaceRemove(t *testing.T) {
	svc, registry := newTestService()
	ctx := context.Background()

	if err := svc.Add(ctx, "V002", "carla", admin); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// At most one rule per vendor: a second Add replaces.
	if err := svc.Add(ctx, "V002", "carla", admin); err != nil {
		t.Fatalf("replace Add: %v", err)
	}
	m, _ := registry.Map(ctx)
	if len(m) != 1 || m["V002"] != "carla" {
		t.Fatalf("registry map = %v", m)
	}

	if err := svc.Remove(ctx, "V002", admin); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := svc.Remove(ctx, "V002", admin); !apperrors.IsNotFound(err) {
		t.Fatalf("double remove: expected not-found, got %v", err)
	}
}

type deadRoster struct{}

func (deadRoster) Reviewers(context.Context) ([]models.Reviewer, error) {
	return nil, errors.New("connection refused")
}

func TestAddSurfacesRosterOutage(t *testing.T) {
	svc := NewService(repository.NewMemoryOverrides(), deadRoster{}, testLogger())
	if err := svc.Add(context.Background(), "V002", "carla", admin); !apperrors.IsUpstream(err) {
		t.Fatalf("dead roster: expected upstream error, got %v", err)
	}
}
