package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/model"
)

// AuditFilter: необязательные фильтры выборки журнала.
type AuditFilter struct {
	Category   string
	Action     string
	EntityKind string
	EntityID   *uint64
}

type AuditRepository interface {
	Save(ctx context.Context, rec *model.AuditRecord) error
	List(ctx context.Context, filter AuditFilter, limit int) ([]model.AuditRecord, error)
}

type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Save(ctx context.Context, rec *model.AuditRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormAuditRepository) List(ctx context.Context, filter AuditFilter, limit int) ([]model.AuditRecord, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditRecord{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.EntityKind != "" {
		q = q.Where("entity_kind = ?", filter.EntityKind)
	}
	if filter.EntityID != nil {
		q = q.Where("entity_id = ?", *filter.EntityID)
	}
	if limit <= 0 {
		limit = 50
	}

	var records []model.AuditRecord
	if err := q.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

var _ AuditRepository = (*GormAuditRepository)(nil)
