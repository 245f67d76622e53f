package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

func TestIdentity_ActorRoles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewIdentityService(repository.NewGormUserRepository(db))

	u, err := svc.RegisterUser(ctx, " Alice@Campus.fr ", "Alice", "Paris")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	again, err := svc.RegisterUser(ctx, "alice@campus.fr", "", "Lyon")
	if err != nil || again.ID != u.ID || again.Campus != "Lyon" {
		t.Fatalf("re-register must update the same user: %+v err=%v", again, err)
	}

	actor, err := svc.Actor(ctx, u.ID)
	if err != nil || actor.Role != workflow.RoleStudent {
		t.Fatalf("user without role must be a student: %+v err=%v", actor, err)
	}

	if err := svc.SetRole(ctx, u.ID, workflow.RoleTutor); err != nil {
		t.Fatalf("set tutor: %v", err)
	}
	if err := svc.SetRole(ctx, u.ID, workflow.RoleBDE); err != nil {
		t.Fatalf("set bde: %v", err)
	}
	actor, err = svc.Actor(ctx, u.ID)
	if err != nil || actor.Role != workflow.RoleBDE {
		t.Fatalf("role must be replaced: %+v err=%v", actor, err)
	}

	if err := svc.SetRole(ctx, u.ID, "janitor"); !errors.Is(err, workflow.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := svc.Actor(ctx, uuid.New()); !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentity_BootstrapIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewIdentityService(repository.NewGormUserRepository(db))

	first, err := svc.Bootstrap(ctx, "root@campus.fr")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	second, err := svc.Bootstrap(ctx, "ROOT@campus.fr")
	if err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("bootstrap must reuse the user: %s vs %s", first.ID, second.ID)
	}

	actor, err := svc.Actor(ctx, first.ID)
	if err != nil || actor.Role != workflow.RoleSuperAdmin {
		t.Fatalf("bootstrap actor = %+v err=%v", actor, err)
	}
}
