package workflow

import "errors"

// Ошибки жизненного цикла клубов и мероприятий.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrRoleCannotApprove = errors.New("role cannot approve this entity")
	ErrInvalidDecision   = errors.New("invalid approval decision")
	ErrDuplicateName     = errors.New("club name already exists")
	ErrEventNotValidated = errors.New("event is not validated")
	ErrStalePlan         = errors.New("reconciliation plan is stale")
	ErrInvalidActor      = errors.New("invalid actor")
	ErrUnknownRole       = errors.New("unknown role")
)
