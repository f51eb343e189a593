package query

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"collections-review-backend/internal/apperrors"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/repository"
	"collections-review-backend/internal/services/assignment"
)

type Service struct {
	store  repository.RecordStore
	engine *assignment.Engine
	log    *logrus.Logger
}

func NewService(store repository.RecordStore, engine *assignment.Engine, log *logrus.Logger) *Service {
	return &Service{store: store, engine: engine, log: log}
}

// RecordView is a record plus the opaque locator later mutation calls
// need. The locator goes stale if the row is deleted; a NotFound on a
// later call means re-query.
type RecordView struct {
	Locator string `json:"locator"`
	models.Record
}

type Filters struct {
	Status string
	Branch string
}

// ListForReviewer returns the records visible to the actor, newest
// first. An assignment pass is attempted first so fresh submissions
// show up already assigned; if one is running this is a no-op.
func (s *Service) ListForReviewer(ctx context.Context, actor models.Actor, filters Filters) ([]RecordView, error) {
	if !actor.CanReview() {
		return nil, apperrors.Permission("Solo un analista o administrador puede consultar los registros.")
	}

	result := s.engine.TryRun(ctx)
	s.log.WithField("result", result.String()).Debug("pre-list assignment pass")

	parts, err := s.store.Partitions(ctx)
	if err != nil {
		return nil, err
	}
	var views []RecordView
	for _, part := range parts {
		recs, err := s.store.Records(ctx, part)
		if err != nil {
			s.log.WithError(err).WithField("partition", part).Error("partition read failed")
			continue
		}
		for _, rec := range recs {
			if !actor.IsAdmin() && rec.AssignedReviewer != actor.ID {
				continue
			}
			if filters.Status != "" && filters.Status != models.StatusFilterAll &&
				string(rec.ReviewStatus) != filters.Status {
				continue
			}
			if filters.Branch != "" && filters.Branch != models.BranchFilterAll &&
				rec.Branch != filters.Branch {
				continue
			}
			views = append(views, RecordView{
				Locator: repository.Locator{Partition: part, Pos: rec.Pos}.String(),
				Record:  rec,
			})
		}
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}
