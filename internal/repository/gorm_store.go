package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collections-review-backend/internal/models"
	"collections-review-backend/internal/partition"
)

// ErrNotFound is returned by every store implementation for stale or
// unknown locators.
var ErrNotFound = errors.New("record not found")

// GormStore keeps each partition in its own table, created lazily from
// the current record schema and registered in partition_meta.
type GormStore struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewGormStore(db *gorm.DB, log *logrus.Logger) *GormStore {
	return &GormStore{db: db, log: log}
}

func (s *GormStore) EnsurePartition(ctx context.Context, key string) error {
	var meta models.PartitionMeta
	err := s.db.WithContext(ctx).First(&meta, "key = ?", key).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := s.db.WithContext(ctx).Table(key).AutoMigrate(&models.Record{}); err != nil {
		return err
	}
	meta = models.PartitionMeta{
		Key:           key,
		SchemaVersion: models.CurrentSchemaVersion,
		CreatedAt:     time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&meta).Error
}

func (s *GormStore) Partitions(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&models.PartitionMeta{}).Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	matched := keys[:0]
	for _, k := range keys {
		if partition.IsKey(k) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

func (s *GormStore) schemaVersion(ctx context.Context, key string) (int, error) {
	var meta models.PartitionMeta
	if err := s.db.WithContext(ctx).First(&meta, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return meta.SchemaVersion, nil
}

func (s *GormStore) Append(ctx context.Context, key string, rec *models.Record) (Locator, error) {
	var loc Locator
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Table(key).Select("COALESCE(MAX(pos), 0)").Scan(&maxPos).Error; err != nil {
			return err
		}
		rec.Pos = maxPos + 1
		if err := tx.Table(key).Create(rec).Error; err != nil {
			return err
		}
		loc = Locator{Partition: key, Pos: rec.Pos}
		return nil
	})
	return loc, err
}

func (s *GormStore) Records(ctx context.Context, key string) ([]models.Record, error) {
	version, err := s.schemaVersion(ctx, key)
	if err != nil {
		return nil, err
	}
	var recs []models.Record
	err = s.db.WithContext(ctx).Table(key).
		Select(models.SchemaColumns(version)).
		Order("pos ASC").
		Find(&recs).Error
	return recs, err
}

func (s *GormStore) Get(ctx context.Context, loc Locator) (*models.Record, error) {
	version, err := s.schemaVersion(ctx, loc.Partition)
	if err != nil {
		return nil, err
	}
	var rec models.Record
	err = s.db.WithContext(ctx).Table(loc.Partition).
		Select(models.SchemaColumns(version)).
		Where("pos = ?", loc.Pos).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) ReferenceNumbers(ctx context.Context, key string) ([]string, error) {
	var refs []string
	err := s.db.WithContext(ctx).Table(key).Pluck("reference_number", &refs).Error
	return refs, err
}

func (s *GormStore) SetStatus(ctx context.Context, loc Locator, status models.ReviewStatus, comment string) error {
	res := s.db.WithContext(ctx).Table(loc.Partition).
		Where("pos = ?", loc.Pos).
		Updates(map[string]interface{}{
			"review_status":  status,
			"review_comment": comment,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ApplyAssignments(ctx context.Context, key string, assignments map[int]string) error {
	if len(assignments) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for pos, reviewer := range assignments {
			res := tx.Table(key).
				Where("pos = ? AND (assigned_reviewer = '' OR assigned_reviewer IS NULL)", pos).
				Updates(map[string]interface{}{
					"assigned_reviewer": reviewer,
					"review_status":     models.StatusPending,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Row vanished or got a reviewer since the scan; skip.
				s.log.WithFields(logrus.Fields{
					"partition": key,
					"pos":       pos,
				}).Warn("assignment write-back skipped row")
			}
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, loc Locator) error {
	res := s.db.WithContext(ctx).Table(loc.Partition).
		Where("pos = ?", loc.Pos).
		Delete(&models.Record{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
