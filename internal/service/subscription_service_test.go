package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/workflow"
)

func validatedEvent(t *testing.T, env *testEnv, title string) *model.Event {
	t.Helper()
	ctx := context.Background()
	ev, err := env.events.Submit(ctx, student, EventDraft{Title: title})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.events.Approve(ctx, tutor, ev.ID); err != nil {
		t.Fatalf("tutor approve: %v", err)
	}
	state, err := env.events.Approve(ctx, bde, ev.ID)
	if err != nil || state.Status != model.StatusValidated {
		t.Fatalf("bde approve: state=%+v err=%v", state, err)
	}
	return ev
}

func TestSubscribe_ValidatedOnlyAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.events.Submit(ctx, student, EventDraft{Title: "Draft party"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.subscriptions.Subscribe(ctx, pending.ID, student.ID); !errors.Is(err, workflow.ErrEventNotValidated) {
		t.Fatalf("expected ErrEventNotValidated, got %v", err)
	}

	ev := validatedEvent(t, env, "Gala")
	created, err := env.subscriptions.Subscribe(ctx, ev.ID, student.ID)
	if err != nil || !created {
		t.Fatalf("first subscribe: created=%v err=%v", created, err)
	}
	created, err = env.subscriptions.Subscribe(ctx, ev.ID, student.ID)
	if err != nil || created {
		t.Fatalf("second subscribe must be a no-op: created=%v err=%v", created, err)
	}

	n, err := env.subscriptions.CountForEvent(ctx, ev.ID)
	if err != nil || n != 1 {
		t.Fatalf("count = %d err=%v", n, err)
	}

	events, err := env.subscriptions.EventsForUser(ctx, student.ID)
	if err != nil || len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("events = %+v err=%v", events, err)
	}

	// Отклонённое мероприятие пропадает из списка подписок.
	if err := env.events.Reject(ctx, admin, ev.ID, "cancelled"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	events, err = env.subscriptions.EventsForUser(ctx, student.ID)
	if err != nil || len(events) != 0 {
		t.Fatalf("rejected events must be filtered, got %+v err=%v", events, err)
	}

	if err := env.subscriptions.Unsubscribe(ctx, ev.ID, student.ID); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
}

func TestSubscribe_NotProvisioned(t *testing.T) {
	env := newTestEnv(t)
	ev := validatedEvent(t, env, "Gala")

	if err := env.db.Migrator().DropTable(&model.Subscription{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if err := env.subscriptions.Ready(context.Background()); !errors.Is(err, model.ErrNotProvisioned) {
		t.Fatalf("expected ErrNotProvisioned, got %v", err)
	}
	if _, err := env.subscriptions.Subscribe(context.Background(), ev.ID, student.ID); !errors.Is(err, model.ErrNotProvisioned) {
		t.Fatalf("expected ErrNotProvisioned, got %v", err)
	}

	// Повторная миграция идемпотентна и возвращает хранилище.
	if err := model.AutoMigrate(env.db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := env.subscriptions.Ready(context.Background()); err != nil {
		t.Fatalf("ready after migrate: %v", err)
	}
}

func TestSubscribe_CarriesCallerContext(t *testing.T) {
	env := newTestEnv(t)
	ev := validatedEvent(t, env, "Gala")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := env.subscriptions.Ready(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Ready: expected context.Canceled, got %v", err)
	}
	if _, err := env.subscriptions.Subscribe(ctx, ev.ID, student.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("Subscribe: expected context.Canceled, got %v", err)
	}
	n, err := env.subscriptions.CountForEvent(context.Background(), ev.ID)
	if err != nil || n != 0 {
		t.Fatalf("cancelled subscribe must not write: n=%d err=%v", n, err)
	}
}
