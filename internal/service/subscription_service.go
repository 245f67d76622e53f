package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// SubscriptionService: подписки студентов на согласованные мероприятия.
type SubscriptionService struct {
	db            *gorm.DB
	events        repository.EventRepository
	subscriptions repository.SubscriptionRepository
}

func NewSubscriptionService(
	db *gorm.DB,
	events repository.EventRepository,
	subscriptions repository.SubscriptionRepository,
) *SubscriptionService {
	return &SubscriptionService{db: db, events: events, subscriptions: subscriptions}
}

// Ready сообщает model.ErrNotProvisioned, если миграция подписок не выполнена.
func (s *SubscriptionService) Ready(ctx context.Context) error {
	return model.SubscriptionsReady(s.db.WithContext(ctx))
}

// Subscribe подписывает пользователя на validated-мероприятие.
// Возвращает false, если подписка уже существовала.
func (s *SubscriptionService) Subscribe(ctx context.Context, eventID uint64, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, fmt.Errorf("subscribe: %w", workflow.ErrInvalidActor)
	}
	if err := s.Ready(ctx); err != nil {
		return false, err
	}
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return false, err
	}
	if e.ValidationStatus != model.StatusValidated {
		return false, fmt.Errorf("event %d: %w", eventID, workflow.ErrEventNotValidated)
	}
	return s.subscriptions.Ensure(ctx, eventID, userID)
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, eventID uint64, userID uuid.UUID) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}
	return s.subscriptions.Delete(ctx, eventID, userID)
}

// EventsForUser: мероприятия, на которые подписан пользователь (только validated).
func (s *SubscriptionService) EventsForUser(ctx context.Context, userID uuid.UUID) ([]model.Event, error) {
	if err := s.Ready(ctx); err != nil {
		return nil, err
	}
	return s.subscriptions.ListValidatedEventsForUser(ctx, userID)
}

func (s *SubscriptionService) CountForEvent(ctx context.Context, eventID uint64) (int64, error) {
	if err := s.Ready(ctx); err != nil {
		return 0, err
	}
	return s.subscriptions.CountForEvent(ctx, eventID)
}
