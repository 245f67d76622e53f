package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// EventDraft: данные новой заявки на мероприятие.
type EventDraft struct {
	Title       string
	Description string
	Date        *time.Time
	ClubID      *uint64
	Campus      string
}

// EventService: создание мероприятий и их согласование тьютором и БДЕ.
type EventService struct {
	events     repository.EventRepository
	clubs      repository.ClubRepository
	validation *ValidationService
	audit      audit.Sink
	log        *zap.Logger
}

func NewEventService(
	events repository.EventRepository,
	clubs repository.ClubRepository,
	validation *ValidationService,
	sink audit.Sink,
	log *zap.Logger,
) *EventService {
	if sink == nil {
		sink = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventService{events: events, clubs: clubs, validation: validation, audit: sink, log: log}
}

// Submit создаёт мероприятие в статусе pending без отметок.
func (s *EventService) Submit(ctx context.Context, actor workflow.Actor, draft EventDraft) (*model.Event, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if draft.ClubID != nil {
		if _, err := s.clubs.GetByID(ctx, *draft.ClubID); err != nil {
			return nil, fmt.Errorf("organizing club: %w", err)
		}
	}

	event := &model.Event{
		Title:            title,
		Description:      draft.Description,
		Campus:           draft.Campus,
		ClubID:           draft.ClubID,
		ValidationStatus: model.StatusPending,
	}
	if draft.Date != nil {
		d := datatypes.Date(*draft.Date)
		event.Date = &d
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		event.CreatedBy = &id
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Category:  audit.CategoryWorkflow,
		Action:    audit.ActionSubmitted,
		Actor:     actor,
		Kind:      workflow.KindEvent,
		EntityID:  event.ID,
		NewStatus: audit.Status(model.StatusPending),
		Success:   true,
		Details:   map[string]string{"title": event.Title},
	})
	return event, nil
}

func (s *EventService) Get(ctx context.Context, id uint64) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

func (s *EventService) Update(ctx context.Context, actor workflow.Actor, id uint64, upd repository.EventUpdate) error {
	if err := s.events.Update(ctx, id, upd); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		Category: audit.CategoryWorkflow,
		Action:   audit.ActionUpdated,
		Actor:    actor,
		Kind:     workflow.KindEvent,
		EntityID: id,
		Success:  true,
	})
	return nil
}

func (s *EventService) SetApproval(ctx context.Context, actor workflow.Actor, id uint64, role workflow.Role, decision workflow.Decision) error {
	return s.validation.SetApproval(ctx, actor, workflow.KindEvent, id, role, decision)
}

func (s *EventService) Approve(ctx context.Context, actor workflow.Actor, id uint64) (*workflow.ApprovalState, error) {
	return s.validation.Approve(ctx, actor, workflow.KindEvent, id)
}

func (s *EventService) Reject(ctx context.Context, actor workflow.Actor, id uint64, remarks string) error {
	return s.validation.Reject(ctx, actor, workflow.KindEvent, id, remarks)
}

func (s *EventService) DeleteIfRejected(ctx context.Context, actor workflow.Actor, id uint64) (bool, error) {
	return s.validation.DeleteIfRejected(ctx, actor, workflow.KindEvent, id)
}

func (s *EventService) Delete(ctx context.Context, actor workflow.Actor, id uint64) error {
	return s.validation.Delete(ctx, actor, workflow.KindEvent, id)
}

func (s *EventService) Pending(ctx context.Context) ([]model.Event, error) {
	return s.events.ListByStatus(ctx, model.StatusPending)
}

func (s *EventService) Rejected(ctx context.Context) ([]model.Event, error) {
	return s.events.ListByStatus(ctx, model.StatusRejected)
}

func (s *EventService) Validated(ctx context.Context) ([]model.Event, error) {
	return s.events.ListByStatus(ctx, model.StatusValidated)
}
