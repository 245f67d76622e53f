package workflow

import (
	"fmt"

	"github.com/Leganyst/association-portal/internal/model"
)

// Kind: тип согласуемой сущности.
type Kind string

const (
	KindClub  Kind = "club"
	KindEvent Kind = "event"
)

// Flag: колонка отметки согласующего.
type Flag string

const (
	FlagTutor Flag = "tutor_validation"
	FlagAdmin Flag = "admin_validation"
	FlagBDE   Flag = "bde_validation"
)

// Decision: решение согласующего.
type Decision = model.Approval

// FlagFor возвращает колонку, которой владеет роль для данного типа сущности.
func FlagFor(kind Kind, role Role) (Flag, error) {
	switch role {
	case RoleTutor:
		return FlagTutor, nil
	case RoleBDE, RoleAdmin, RoleSuperAdmin:
		if kind == KindClub {
			return FlagAdmin, nil
		}
		if kind == KindEvent {
			return FlagBDE, nil
		}
	}
	return "", fmt.Errorf("%w: %s on %s", ErrRoleCannotApprove, role, kind)
}

// RequiredFlags: отметки, которые должны быть approved до перехода в validated.
func RequiredFlags(kind Kind) []Flag {
	switch kind {
	case KindClub:
		return []Flag{FlagAdmin, FlagTutor}
	case KindEvent:
		return []Flag{FlagBDE, FlagTutor}
	default:
		return nil
	}
}

// ValidateDecision отсекает значения вне {-1, 0, 1}.
func ValidateDecision(d Decision) error {
	switch d {
	case model.ApprovalRefused, model.ApprovalUnset, model.ApprovalApproved:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidDecision, d)
	}
}

// ApprovalState: снимок статуса и отметок сущности.
type ApprovalState struct {
	Status model.ValidationStatus
	Flags  map[Flag]model.Approval
}

// CanApprove: только pending принимает новые отметки.
func (s ApprovalState) CanApprove() bool {
	return s.Status == model.StatusPending
}

// Complete сообщает, что все обязательные отметки выставлены в approved.
func (s ApprovalState) Complete(kind Kind) bool {
	required := RequiredFlags(kind)
	if len(required) == 0 {
		return false
	}
	for _, f := range required {
		if s.Flags[f] != model.ApprovalApproved {
			return false
		}
	}
	return true
}

// Refused: хотя бы один согласующий отказал.
func (s ApprovalState) Refused() bool {
	for _, v := range s.Flags {
		if v == model.ApprovalRefused {
			return true
		}
	}
	return false
}

// Deletable: удалять через DeleteIfRejected можно только rejected.
func (s ApprovalState) Deletable() bool {
	return s.Status == model.StatusRejected
}
