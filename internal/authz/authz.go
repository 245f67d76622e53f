package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// ErrForbidden: у актора нет нужной возможности.
var ErrForbidden = errors.New("forbidden")

// Capability: действие, требующее роли.
type Capability string

const (
	CapSubmit    Capability = "submit"
	CapApprove   Capability = "approve"
	CapReject    Capability = "reject"
	CapDelete    Capability = "delete"
	CapReconcile Capability = "reconcile"
	CapSubscribe Capability = "subscribe"
	CapJoin      Capability = "join"
	CapUsers     Capability = "manage_users"
)

var grants = map[Capability][]workflow.Role{
	CapSubmit:    {workflow.RoleStudent, workflow.RoleTutor, workflow.RoleBDE, workflow.RoleAdmin, workflow.RoleSuperAdmin},
	CapSubscribe: {workflow.RoleStudent, workflow.RoleTutor, workflow.RoleBDE, workflow.RoleAdmin, workflow.RoleSuperAdmin},
	CapApprove:   {workflow.RoleTutor, workflow.RoleBDE, workflow.RoleAdmin, workflow.RoleSuperAdmin},
	CapReject:    {workflow.RoleTutor, workflow.RoleBDE, workflow.RoleAdmin, workflow.RoleSuperAdmin},
	CapDelete:    {workflow.RoleAdmin, workflow.RoleSuperAdmin},
	CapReconcile: {workflow.RoleAdmin, workflow.RoleSuperAdmin},
	CapJoin:      {workflow.RoleStudent, workflow.RoleTutor, workflow.RoleBDE, workflow.RoleAdmin, workflow.RoleSuperAdmin},
	CapUsers:     {workflow.RoleAdmin, workflow.RoleSuperAdmin},
}

// Allowed проверяет возможность без побочных эффектов.
func Allowed(actor workflow.Actor, capability Capability) bool {
	for _, r := range grants[capability] {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// ActorStore: источник акторов. В реале это IdentityService, в тестах мок.
type ActorStore interface {
	Actor(ctx context.Context, userID uuid.UUID) (workflow.Actor, error)
}

// Authorizer определяет актора запроса и проверяет его права,
// сообщая об отказах в журнал аудита.
type Authorizer struct {
	store ActorStore
	audit audit.Sink
}

func New(store ActorStore, sink audit.Sink) *Authorizer {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Authorizer{store: store, audit: sink}
}

// Resolve:
//   - проверяет идентификатор;
//   - достаёт актора из хранилища;
//   - отсекает неизвестные роли.
func (a *Authorizer) Resolve(ctx context.Context, userID uuid.UUID) (workflow.Actor, error) {
	if userID == uuid.Nil {
		return workflow.Actor{}, workflow.ErrInvalidActor
	}
	actor, err := a.store.Actor(ctx, userID)
	if err != nil {
		return workflow.Actor{}, err
	}
	if actor.Role == workflow.RoleUnknown || actor.Role == "" {
		return workflow.Actor{}, fmt.Errorf("%w: user %s has no known role", workflow.ErrInvalidActor, userID)
	}
	return actor, nil
}

// Require возвращает ErrForbidden и пишет отказ в аудит, если возможности нет.
func (a *Authorizer) Require(ctx context.Context, actor workflow.Actor, capability Capability) error {
	if Allowed(actor, capability) {
		return nil
	}
	a.audit.Record(ctx, audit.Entry{
		Category: audit.CategorySecurity,
		Action:   audit.ActionAccessDenied,
		Actor:    actor,
		Success:  false,
		Reason:   string(capability),
	})
	return fmt.Errorf("%w: %s cannot %s", ErrForbidden, actor.Role, capability)
}
