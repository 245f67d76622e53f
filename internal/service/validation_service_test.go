package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/workflow"
)

func TestValidation_RejectIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ev, err := env.events.Submit(ctx, student, EventDraft{Title: "Gala"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := env.events.Reject(ctx, bde, ev.ID, "no room"); err != nil {
			t.Fatalf("reject #%d: %v", i+1, err)
		}
		got, err := env.events.Get(ctx, ev.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ValidationStatus != model.StatusRejected || got.Remarks != "no room" {
			t.Fatalf("reject #%d: status=%s remarks=%q", i+1, got.ValidationStatus, got.Remarks)
		}
	}
}

func TestValidation_SubFlagsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ev, err := env.events.Submit(ctx, student, EventDraft{Title: "Hackathon"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := env.events.SetApproval(ctx, bde, ev.ID, workflow.RoleBDE, model.ApprovalApproved); err != nil {
		t.Fatalf("bde approval: %v", err)
	}
	if err := env.events.SetApproval(ctx, tutor, ev.ID, workflow.RoleTutor, model.ApprovalRefused); err != nil {
		t.Fatalf("tutor approval: %v", err)
	}

	got, err := env.events.Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BDEValidation != model.ApprovalApproved {
		t.Fatalf("tutor write clobbered bde_validation: %d", got.BDEValidation)
	}
	if got.TutorValidation != model.ApprovalRefused {
		t.Fatalf("tutor_validation = %d, want -1", got.TutorValidation)
	}
	// SetApproval сам статус не меняет.
	if got.ValidationStatus != model.StatusPending {
		t.Fatalf("status = %s, want pending", got.ValidationStatus)
	}
}

func TestValidation_SetApprovalRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	club, err := env.clubs.Submit(ctx, student, ClubDraft{Name: "Jazz"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := env.clubs.SetApproval(ctx, student, club.ID, workflow.RoleStudent, model.ApprovalApproved); !errors.Is(err, workflow.ErrRoleCannotApprove) {
		t.Fatalf("expected ErrRoleCannotApprove, got %v", err)
	}
	if err := env.clubs.SetApproval(ctx, tutor, club.ID, workflow.RoleTutor, 5); !errors.Is(err, workflow.ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
	if err := env.clubs.SetApproval(ctx, tutor, 9999, workflow.RoleTutor, model.ApprovalApproved); !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := env.clubs.Reject(ctx, admin, club.ID, "duplicate"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := env.clubs.SetApproval(ctx, tutor, club.ID, workflow.RoleTutor, model.ApprovalApproved); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("rejected club must not accept approvals, got %v", err)
	}
}

func TestValidation_ApprovePromotesWhenComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	club, err := env.clubs.Submit(ctx, student, ClubDraft{Name: "Chess Club", Description: "Weekly games"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if club.ValidationStatus != model.StatusPending {
		t.Fatalf("new club status = %s", club.ValidationStatus)
	}

	state, err := env.clubs.Approve(ctx, tutor, club.ID)
	if err != nil {
		t.Fatalf("tutor approve: %v", err)
	}
	if state.Status != model.StatusPending || state.Flags[workflow.FlagTutor] != model.ApprovalApproved {
		t.Fatalf("after tutor: %+v", state)
	}

	state, err = env.clubs.Approve(ctx, bde, club.ID)
	if err != nil {
		t.Fatalf("bde approve: %v", err)
	}
	if state.Status != model.StatusValidated {
		t.Fatalf("after bde: status = %s, want validated", state.Status)
	}

	got, err := env.clubs.Get(ctx, club.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ValidationStatus != model.StatusValidated || got.AdminValidation != model.ApprovalApproved {
		t.Fatalf("stored club = %+v", got)
	}

	if _, err := env.clubs.Approve(ctx, tutor, club.ID); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("validated club must not accept approvals, got %v", err)
	}
	if len(auditActions(t, env.db, "validated")) != 1 {
		t.Fatalf("expected one validated audit record")
	}
}

func TestValidation_DeleteIfRejectedGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	club, err := env.clubs.Submit(ctx, student, ClubDraft{Name: "Photo"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	seedMember(t, env.db, club.ID, student.ID, model.MemberRolePresident, 1)
	ev, err := env.events.Submit(ctx, student, EventDraft{Title: "Expo", ClubID: &club.ID})
	if err != nil {
		t.Fatalf("submit event: %v", err)
	}

	deleted, err := env.clubs.DeleteIfRejected(ctx, admin, club.ID)
	if err != nil || deleted {
		t.Fatalf("pending club: deleted=%v err=%v", deleted, err)
	}
	if _, err := env.clubs.Get(ctx, club.ID); err != nil {
		t.Fatalf("pending club must survive: %v", err)
	}
	if len(auditActions(t, env.db, "delete_refused")) != 1 {
		t.Fatalf("refusal must be audited")
	}

	if err := env.clubs.Reject(ctx, admin, club.ID, "inactive"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	deleted, err = env.clubs.DeleteIfRejected(ctx, admin, club.ID)
	if err != nil || !deleted {
		t.Fatalf("rejected club: deleted=%v err=%v", deleted, err)
	}

	if _, err := env.clubs.Get(ctx, club.ID); !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("club must be gone, got %v", err)
	}
	var members int64
	env.db.Model(&model.Membership{}).Where("club_id = ?", club.ID).Count(&members)
	if members != 0 {
		t.Fatalf("memberships left behind: %d", members)
	}
	got, err := env.events.Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("event must survive club deletion: %v", err)
	}
	if got.ClubID != nil {
		t.Fatalf("event must be detached, club_id=%d", *got.ClubID)
	}

	deleted, err = env.clubs.DeleteIfRejected(ctx, admin, club.ID)
	if deleted || !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("missing club: deleted=%v err=%v", deleted, err)
	}
}

func TestValidation_DeleteRejectedEventDropsSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ev, err := env.events.Submit(ctx, student, EventDraft{Title: "Concert"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.db.Create(&model.Subscription{EventID: ev.ID, UserID: student.ID}).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	if err := env.events.Reject(ctx, bde, ev.ID, "cancelled"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	deleted, err := env.events.DeleteIfRejected(ctx, admin, ev.ID)
	if err != nil || !deleted {
		t.Fatalf("deleted=%v err=%v", deleted, err)
	}
	var subs int64
	env.db.Model(&model.Subscription{}).Where("event_id = ?", ev.ID).Count(&subs)
	if subs != 0 {
		t.Fatalf("subscriptions left behind: %d", subs)
	}
}

func TestValidation_PendingAndRejectedQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, _ := env.clubs.Submit(ctx, student, ClubDraft{Name: "A"})
	b, _ := env.clubs.Submit(ctx, student, ClubDraft{Name: "B"})
	if err := env.clubs.Reject(ctx, admin, b.ID, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}

	pending, err := env.clubs.Pending(ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("pending = %+v err=%v", pending, err)
	}
	rejected, err := env.clubs.Rejected(ctx)
	if err != nil || len(rejected) != 1 || rejected[0].ID != b.ID {
		t.Fatalf("rejected = %+v err=%v", rejected, err)
	}
}

func TestValidation_ApproveDoesNotOverrideRefusal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ev, err := env.events.Submit(ctx, student, EventDraft{Title: "Night run"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.events.SetApproval(ctx, tutor, ev.ID, workflow.RoleTutor, model.ApprovalRefused); err != nil {
		t.Fatalf("tutor refusal: %v", err)
	}

	if _, err := env.events.Approve(ctx, bde, ev.ID); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("bde approve after refusal: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := env.events.Approve(ctx, tutor, ev.ID); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("tutor approve over own refusal: expected ErrInvalidTransition, got %v", err)
	}

	got, err := env.events.Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ValidationStatus != model.StatusPending {
		t.Fatalf("status = %s, want pending", got.ValidationStatus)
	}
	if got.TutorValidation != model.ApprovalRefused || got.BDEValidation != model.ApprovalUnset {
		t.Fatalf("flags changed: tutor=%d bde=%d", got.TutorValidation, got.BDEValidation)
	}
	if len(auditActions(t, env.db, "validated")) != 0 {
		t.Fatalf("refused event must never be audited as validated")
	}

	// Отказ ведёт в rejected через Reject.
	if err := env.events.Reject(ctx, tutor, ev.ID, "route not approved"); err != nil {
		t.Fatalf("reject: %v", err)
	}
}
