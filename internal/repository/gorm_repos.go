package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collections-review-backend/internal/models"
)

type GormOverrides struct {
	db *gorm.DB
}

func NewGormOverrides(db *gorm.DB) *GormOverrides {
	return &GormOverrides{db: db}
}

func (r *GormOverrides) List(ctx context.Context) ([]models.OverrideRule, error) {
	var rules []models.OverrideRule
	err := r.db.WithContext(ctx).Order("vendor_code ASC").Find(&rules).Error
	return rules, err
}

func (r *GormOverrides) Put(ctx context.Context, rule models.OverrideRule) error {
	// One active rule per vendor; a second Put replaces the reviewer.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vendor_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"reviewer", "updated_at"}),
	}).Create(&rule).Error
}

func (r *GormOverrides) Remove(ctx context.Context, vendorCode string) error {
	res := r.db.WithContext(ctx).Where("vendor_code = ?", vendorCode).Delete(&models.OverrideRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormOverrides) Map(ctx context.Context) (map[string]string, error) {
	rules, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(rules))
	for _, rule := range rules {
		m[rule.VendorCode] = rule.Reviewer
	}
	return m, nil
}

type GormAudit struct {
	db *gorm.DB
}

func NewGormAudit(db *gorm.DB) *GormAudit {
	return &GormAudit{db: db}
}

func (r *GormAudit) Append(ctx context.Context, entry models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *GormAudit) ForRecord(ctx context.Context, recordID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

type GormDeletionLog struct {
	db *gorm.DB
}

func NewGormDeletionLog(db *gorm.DB) *GormDeletionLog {
	return &GormDeletionLog{db: db}
}

func (r *GormDeletionLog) Append(ctx context.Context, snapshot models.DeletedRecord) error {
	return r.db.WithContext(ctx).Create(&snapshot).Error
}

type GormVendors struct {
	db *gorm.DB
}

func NewGormVendors(db *gorm.DB) *GormVendors {
	return &GormVendors{db: db}
}

func (r *GormVendors) Upsert(ctx context.Context, code, name string) error {
	vendor := models.Vendor{Code: code, Name: name, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&vendor).Error
}

func (r *GormVendors) CodeByName(ctx context.Context, name string) (string, bool, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return vendor.Code, true, nil
}
