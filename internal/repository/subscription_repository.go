package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/association-portal/internal/model"
)

type SubscriptionRepository interface {
	// Идемпотентно создать подписку, false если подписка уже была.
	Ensure(ctx context.Context, eventID uint64, userID uuid.UUID) (bool, error)
	Delete(ctx context.Context, eventID uint64, userID uuid.UUID) error
	DeleteByEvent(ctx context.Context, eventID uint64) (int64, error)
	// Мероприятия пользователя, только validated.
	ListValidatedEventsForUser(ctx context.Context, userID uuid.UUID) ([]model.Event, error)
	CountForEvent(ctx context.Context, eventID uint64) (int64, error)
}

type GormSubscriptionRepository struct {
	db *gorm.DB
}

func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

func (r *GormSubscriptionRepository) Ensure(ctx context.Context, eventID uint64, userID uuid.UUID) (bool, error) {
	s := model.Subscription{EventID: eventID, UserID: userID}
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&s)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormSubscriptionRepository) Delete(ctx context.Context, eventID uint64, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&model.Subscription{}).Error
}

func (r *GormSubscriptionRepository) DeleteByEvent(ctx context.Context, eventID uint64) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.Subscription{})
	return tx.RowsAffected, tx.Error
}

func (r *GormSubscriptionRepository) ListValidatedEventsForUser(ctx context.Context, userID uuid.UUID) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Joins("JOIN subscriptions ON subscriptions.event_id = events.id").
		Where("subscriptions.user_id = ?", userID).
		Where("events.validation_status = ?", model.StatusValidated).
		Order("events.id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormSubscriptionRepository) CountForEvent(ctx context.Context, eventID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("event_id = ?", eventID).
		Count(&n).Error
	return n, err
}

var _ SubscriptionRepository = (*GormSubscriptionRepository)(nil)
