package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/model"
)

// EventUpdate: команда частичного обновления мероприятия.
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
	Campus      *string
	ReportPath  *string
}

func (u EventUpdate) columns() map[string]any {
	update := map[string]any{}
	if u.Title != nil {
		update["title"] = *u.Title
	}
	if u.Description != nil {
		update["description"] = *u.Description
	}
	if u.Date != nil {
		update["date"] = datatypes.Date(*u.Date)
	}
	if u.Campus != nil {
		update["campus"] = *u.Campus
	}
	if u.ReportPath != nil {
		update["report_path"] = *u.ReportPath
	}
	return update
}

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	Update(ctx context.Context, id uint64, upd EventUpdate) error
	ListByStatus(ctx context.Context, status model.ValidationStatus) ([]model.Event, error)
	// Перепривязать мероприятия клуба from к клубу to.
	MoveToClub(ctx context.Context, from, to uint64) (int64, error)
	// Отвязать мероприятия удаляемого клуба.
	DetachClub(ctx context.Context, clubID uint64) (int64, error)
	CountByClub(ctx context.Context, clubID uint64) (int64, error)
	Delete(ctx context.Context, id uint64) error
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translate(err, "event")
	}
	return &e, nil
}

func (r *GormEventRepository) Update(ctx context.Context, id uint64, upd EventUpdate) error {
	update := upd.columns()
	if len(update) == 0 {
		return nil
	}
	update["updated_at"] = time.Now().UTC()
	tx := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", id).
		Updates(update)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "event")
	}
	return nil
}

func (r *GormEventRepository) ListByStatus(ctx context.Context, status model.ValidationStatus) ([]model.Event, error) {
	var events []model.Event
	q := r.db.WithContext(ctx).Model(&model.Event{})
	if status == model.StatusPending {
		q = q.Where("validation_status = ? OR validation_status IS NULL", status)
	} else {
		q = q.Where("validation_status = ?", status)
	}
	if err := q.Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) MoveToClub(ctx context.Context, from, to uint64) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("club_id = ?", from).
		Updates(map[string]any{
			"club_id":    to,
			"updated_at": time.Now().UTC(),
		})
	return tx.RowsAffected, tx.Error
}

func (r *GormEventRepository) DetachClub(ctx context.Context, clubID uint64) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("club_id = ?", clubID).
		Updates(map[string]any{
			"club_id":    nil,
			"updated_at": time.Now().UTC(),
		})
	return tx.RowsAffected, tx.Error
}

func (r *GormEventRepository) CountByClub(ctx context.Context, clubID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("club_id = ?", clubID).
		Count(&n).Error
	return n, err
}

func (r *GormEventRepository) Delete(ctx context.Context, id uint64) error {
	tx := r.db.WithContext(ctx).Delete(&model.Event{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "event")
	}
	return nil
}

var _ EventRepository = (*GormEventRepository)(nil)
