package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// ClubDraft: данные новой заявки на клуб.
type ClubDraft struct {
	Name        string
	Type        string
	Description string
	Campus      string
}

// ClubService: создание клубов и их жизненный цикл согласования.
type ClubService struct {
	db         *gorm.DB
	clubs      repository.ClubRepository
	validation *ValidationService
	audit      audit.Sink
	log        *zap.Logger
}

func NewClubService(
	db *gorm.DB,
	clubs repository.ClubRepository,
	validation *ValidationService,
	sink audit.Sink,
	log *zap.Logger,
) *ClubService {
	if sink == nil {
		sink = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ClubService{db: db, clubs: clubs, validation: validation, audit: sink, log: log}
}

// Submit создаёт клуб в статусе pending без отметок. Имя не должно совпадать
// с существующим без учёта регистра и пробелов по краям.
func (s *ClubService) Submit(ctx context.Context, actor workflow.Actor, draft ClubDraft) (*model.Club, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, fmt.Errorf("club name is required")
	}

	club := &model.Club{
		Name:             name,
		Type:             draft.Type,
		Description:      draft.Description,
		Campus:           draft.Campus,
		ValidationStatus: model.StatusPending,
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		club.CreatedBy = &id
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clubs := repository.NewGormClubRepository(tx)
		exists, err := clubs.NameExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", workflow.ErrDuplicateName, name)
		}
		return clubs.Create(ctx, club)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Category:  audit.CategoryWorkflow,
		Action:    audit.ActionSubmitted,
		Actor:     actor,
		Kind:      workflow.KindClub,
		EntityID:  club.ID,
		NewStatus: audit.Status(model.StatusPending),
		Success:   true,
		Details:   map[string]string{"name": club.Name},
	})
	return club, nil
}

// NameExists: проверка имени, которую использует форма создания клуба.
func (s *ClubService) NameExists(ctx context.Context, name string) (bool, error) {
	return s.clubs.NameExists(ctx, name)
}

func (s *ClubService) Get(ctx context.Context, id uint64) (*model.Club, error) {
	return s.clubs.GetByID(ctx, id)
}

// Update применяет частичное обновление. Переименование проверяет
// уникальность так же, как Submit.
func (s *ClubService) Update(ctx context.Context, actor workflow.Actor, id uint64, upd repository.ClubUpdate) error {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return fmt.Errorf("club name is required")
		}
		upd.Name = &name
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clubs := repository.NewGormClubRepository(tx)
		current, err := clubs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if upd.Name != nil && !strings.EqualFold(strings.TrimSpace(current.Name), *upd.Name) {
			exists, err := clubs.NameExists(ctx, *upd.Name)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %q", workflow.ErrDuplicateName, *upd.Name)
			}
		}
		return clubs.Update(ctx, id, upd)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Category: audit.CategoryWorkflow,
		Action:   audit.ActionUpdated,
		Actor:    actor,
		Kind:     workflow.KindClub,
		EntityID: id,
		Success:  true,
	})
	return nil
}

func (s *ClubService) SetApproval(ctx context.Context, actor workflow.Actor, id uint64, role workflow.Role, decision workflow.Decision) error {
	return s.validation.SetApproval(ctx, actor, workflow.KindClub, id, role, decision)
}

func (s *ClubService) Approve(ctx context.Context, actor workflow.Actor, id uint64) (*workflow.ApprovalState, error) {
	return s.validation.Approve(ctx, actor, workflow.KindClub, id)
}

func (s *ClubService) Reject(ctx context.Context, actor workflow.Actor, id uint64, remarks string) error {
	return s.validation.Reject(ctx, actor, workflow.KindClub, id, remarks)
}

func (s *ClubService) DeleteIfRejected(ctx context.Context, actor workflow.Actor, id uint64) (bool, error) {
	return s.validation.DeleteIfRejected(ctx, actor, workflow.KindClub, id)
}

func (s *ClubService) Delete(ctx context.Context, actor workflow.Actor, id uint64) error {
	return s.validation.Delete(ctx, actor, workflow.KindClub, id)
}

func (s *ClubService) Pending(ctx context.Context) ([]model.Club, error) {
	return s.clubs.ListByStatus(ctx, model.StatusPending)
}

func (s *ClubService) Rejected(ctx context.Context) ([]model.Club, error) {
	return s.clubs.ListByStatus(ctx, model.StatusRejected)
}

func (s *ClubService) Validated(ctx context.Context) ([]model.Club, error) {
	return s.clubs.ListByStatus(ctx, model.StatusValidated)
}
