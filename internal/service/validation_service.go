package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// ValidationService: конечный автомат согласования клубов и мероприятий:
// pending -> validated | rejected, rejected -> удалено.
//
// Права актора здесь не проверяются: вызывающий слой уже убедился, что
// роль позволяет действие. Все ошибки хранилища возвращаются как есть,
// повторов нет.
type ValidationService struct {
	db    *gorm.DB
	audit audit.Sink
	log   *zap.Logger
}

func NewValidationService(db *gorm.DB, sink audit.Sink, log *zap.Logger) *ValidationService {
	if sink == nil {
		sink = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ValidationService{db: db, audit: sink, log: log}
}

// State возвращает текущий статус и отметки.
func (s *ValidationService) State(ctx context.Context, kind workflow.Kind, id uint64) (*workflow.ApprovalState, error) {
	return repository.NewGormApprovalRepository(s.db).GetState(ctx, kind, id)
}

// SetApproval записывает отметку, принадлежащую роли role. Итоговый статус
// не меняется, остальные отметки не трогаются.
func (s *ValidationService) SetApproval(
	ctx context.Context,
	actor workflow.Actor,
	kind workflow.Kind,
	id uint64,
	role workflow.Role,
	decision workflow.Decision,
) error {
	flag, err := workflow.FlagFor(kind, role)
	if err != nil {
		return err
	}
	if err := workflow.ValidateDecision(decision); err != nil {
		return err
	}

	var old model.ValidationStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approvals := repository.NewGormApprovalRepository(tx)
		state, err := approvals.GetState(ctx, kind, id)
		if err != nil {
			return err
		}
		old = state.Status
		if !state.CanApprove() {
			return fmt.Errorf("%w: %s %d is %s", workflow.ErrInvalidTransition, kind, id, state.Status)
		}
		return approvals.SetFlag(ctx, kind, id, flag, decision)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Category:  audit.CategoryWorkflow,
		Action:    audit.ActionApprovalSet,
		Actor:     actor,
		Kind:      kind,
		EntityID:  id,
		OldStatus: audit.Status(old),
		NewStatus: audit.Status(old),
		Success:   true,
		Details: map[string]string{
			"flag":     string(flag),
			"decision": fmt.Sprint(int(decision)),
		},
	})
	return nil
}

// Approve ставит одобрение от имени роли актора и, если после этого все
// обязательные отметки одобрены, переводит сущность в validated.
// Отметки перечитываются в той же транзакции, что меняет статус.
// Если кто-то из согласующих уже отказал, возвращает ErrInvalidTransition.
func (s *ValidationService) Approve(
	ctx context.Context,
	actor workflow.Actor,
	kind workflow.Kind,
	id uint64,
) (*workflow.ApprovalState, error) {
	flag, err := workflow.FlagFor(kind, actor.Role)
	if err != nil {
		return nil, err
	}

	var final *workflow.ApprovalState
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approvals := repository.NewGormApprovalRepository(tx)
		state, err := approvals.GetState(ctx, kind, id)
		if err != nil {
			return err
		}
		if !state.CanApprove() {
			return fmt.Errorf("%w: %s %d is %s", workflow.ErrInvalidTransition, kind, id, state.Status)
		}
		// Отказ любого согласующего не перезаписывается одобрением.
		if state.Refused() {
			return fmt.Errorf("%w: %s %d was refused, reject it instead", workflow.ErrInvalidTransition, kind, id)
		}
		if err := approvals.SetFlag(ctx, kind, id, flag, model.ApprovalApproved); err != nil {
			return err
		}

		state, err = approvals.GetState(ctx, kind, id)
		if err != nil {
			return err
		}
		if state.Complete(kind) {
			if err := approvals.SetStatus(ctx, kind, id, model.StatusValidated, nil); err != nil {
				return err
			}
			state.Status = model.StatusValidated
		}
		final = state
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := audit.ActionApprovalSet
	if final.Status == model.StatusValidated {
		action = audit.ActionValidated
	}
	s.audit.Record(ctx, audit.Entry{
		Category:  audit.CategoryWorkflow,
		Action:    action,
		Actor:     actor,
		Kind:      kind,
		EntityID:  id,
		OldStatus: audit.Status(model.StatusPending),
		NewStatus: audit.Status(final.Status),
		Success:   true,
		Details:   map[string]string{"flag": string(flag)},
	})
	return final, nil
}

// Reject безусловно переводит сущность в rejected и сохраняет замечания.
// Повторный вызов на rejected-сущности успешен.
func (s *ValidationService) Reject(
	ctx context.Context,
	actor workflow.Actor,
	kind workflow.Kind,
	id uint64,
	remarks string,
) error {
	var old model.ValidationStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approvals := repository.NewGormApprovalRepository(tx)
		state, err := approvals.GetState(ctx, kind, id)
		if err != nil {
			return err
		}
		old = state.Status
		return approvals.SetStatus(ctx, kind, id, model.StatusRejected, &remarks)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Category:  audit.CategoryWorkflow,
		Action:    audit.ActionRejected,
		Actor:     actor,
		Kind:      kind,
		EntityID:  id,
		OldStatus: audit.Status(old),
		NewStatus: audit.Status(model.StatusRejected),
		Success:   true,
		Reason:    remarks,
	})
	return nil
}

// DeleteIfRejected удаляет сущность только в статусе rejected.
//   - (true, nil) — удалена вместе с зависимыми строками;
//   - (false, nil) — статус не rejected, ничего не удалено;
//   - (false, ErrNotFound) — сущности нет.
func (s *ValidationService) DeleteIfRejected(
	ctx context.Context,
	actor workflow.Actor,
	kind workflow.Kind,
	id uint64,
) (bool, error) {
	var (
		old     model.ValidationStatus
		deleted bool
		details map[string]string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := repository.NewGormApprovalRepository(tx).GetState(ctx, kind, id)
		if err != nil {
			return err
		}
		old = state.Status
		if !state.Deletable() {
			return nil
		}
		details, err = deleteCascade(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	entry := audit.Entry{
		Category:  audit.CategoryWorkflow,
		Action:    audit.ActionDeleted,
		Actor:     actor,
		Kind:      kind,
		EntityID:  id,
		OldStatus: audit.Status(old),
		Success:   deleted,
		Details:   details,
	}
	if !deleted {
		entry.Action = audit.ActionDeleteRefused
		entry.Reason = "status is " + old.String()
	}
	s.audit.Record(ctx, entry)
	return deleted, nil
}

// Delete: явное удаление администратором без проверки статуса,
// с тем же каскадом, что и DeleteIfRejected.
func (s *ValidationService) Delete(
	ctx context.Context,
	actor workflow.Actor,
	kind workflow.Kind,
	id uint64,
) error {
	var (
		old     model.ValidationStatus
		details map[string]string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := repository.NewGormApprovalRepository(tx).GetState(ctx, kind, id)
		if err != nil {
			return err
		}
		old = state.Status
		details, err = deleteCascade(ctx, tx, kind, id)
		return err
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Category:  audit.CategoryWorkflow,
		Action:    audit.ActionDeleted,
		Actor:     actor,
		Kind:      kind,
		EntityID:  id,
		OldStatus: audit.Status(old),
		Success:   true,
		Details:   details,
	})
	return nil
}

// deleteCascade удаляет зависимые строки и саму сущность внутри tx.
// Клуб: участия удаляются, мероприятия отвязываются. Мероприятие: подписки удаляются.
func deleteCascade(ctx context.Context, tx *gorm.DB, kind workflow.Kind, id uint64) (map[string]string, error) {
	switch kind {
	case workflow.KindClub:
		removed, err := repository.NewGormMembershipRepository(tx).DeleteByClub(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("delete memberships: %w", err)
		}
		detached, err := repository.NewGormEventRepository(tx).DetachClub(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("detach events: %w", err)
		}
		if err := repository.NewGormClubRepository(tx).Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{
			"memberships_deleted": audit.Count(removed),
			"events_detached":     audit.Count(detached),
		}, nil

	case workflow.KindEvent:
		removed, err := repository.NewGormSubscriptionRepository(tx).DeleteByEvent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("delete subscriptions: %w", err)
		}
		if err := repository.NewGormEventRepository(tx).Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{
			"subscriptions_deleted": audit.Count(removed),
		}, nil

	default:
		return nil, errors.New("unknown entity kind " + string(kind))
	}
}
