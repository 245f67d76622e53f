package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/workflow"
)

func membersOf(t *testing.T, db *gorm.DB, clubID uint64) map[uuid.UUID]model.Membership {
	t.Helper()
	var ms []model.Membership
	if err := db.Where("club_id = ?", clubID).Find(&ms).Error; err != nil {
		t.Fatalf("list memberships: %v", err)
	}
	out := make(map[uuid.UUID]model.Membership, len(ms))
	for _, m := range ms {
		if _, dup := out[m.UserID]; dup {
			t.Fatalf("duplicate membership for user %s in club %d", m.UserID, clubID)
		}
		out[m.UserID] = m
	}
	return out
}

func clubExists(t *testing.T, db *gorm.DB, id uint64) bool {
	t.Helper()
	var n int64
	if err := db.Model(&model.Club{}).Where("id = ?", id).Count(&n).Error; err != nil {
		t.Fatalf("count clubs: %v", err)
	}
	return n > 0
}

func TestReconcile_TieGoesToLowestIDAndMembershipsMerge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	x, y, z := uuid.New(), uuid.New(), uuid.New()

	c := seedClub(t, env.db, "Robotique", "", model.StatusValidated) // 50 + 2
	a := seedClub(t, env.db, "Robotique", "", model.StatusPending)   // 1
	b := seedClub(t, env.db, "Robotique", "", model.StatusValidated) // 50 + 2

	seedMember(t, env.db, c.ID, x, model.MemberRoleMember, 1)
	seedMember(t, env.db, c.ID, z, model.MemberRoleMember, 1)
	seedMember(t, env.db, a.ID, x, model.MemberRoleMember, 0)
	seedMember(t, env.db, b.ID, x, model.MemberRoleMember, 1)
	seedMember(t, env.db, b.ID, y, model.MemberRoleOfficer, 1)

	report, err := env.reconcile.Plan(ctx, admin)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	plan, ok := report.Group("Robotique")
	if !ok || len(report.Groups) != 1 {
		t.Fatalf("expected a single Robotique group, got %+v", report.Groups)
	}
	if plan.Winner != c.ID || plan.WinnerScore != 52 {
		t.Fatalf("winner = %d (score %d), want %d (52)", plan.Winner, plan.WinnerScore, c.ID)
	}
	if plan.MembershipsToMove != 1 || plan.MembershipsToDrop != 2 {
		t.Fatalf("plan moves=%d drops=%d, want 1 and 2", plan.MembershipsToMove, plan.MembershipsToDrop)
	}

	// Пробный прогон ничего не меняет.
	if !clubExists(t, env.db, a.ID) || !clubExists(t, env.db, b.ID) {
		t.Fatalf("plan must not mutate")
	}

	res, err := env.reconcile.Apply(ctx, admin, report)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Failed() != 0 {
		t.Fatalf("apply failed: %+v", res.Groups)
	}
	g := res.Groups[0]
	if g.Winner != c.ID || g.ClubsDeleted != 2 || g.MembershipsMoved != 1 || g.MembershipsDropped != 2 {
		t.Fatalf("unexpected result %+v", g)
	}

	if clubExists(t, env.db, a.ID) || clubExists(t, env.db, b.ID) {
		t.Fatalf("losers must be deleted")
	}
	members := membersOf(t, env.db, c.ID)
	if len(members) != 3 {
		t.Fatalf("winner members = %d, want 3", len(members))
	}
	// Перенесённое участие сохраняет роль и признак valid.
	if m := members[y]; m.Role != model.MemberRoleOfficer || m.Valid != 1 {
		t.Fatalf("moved membership lost its data: %+v", m)
	}

	var orphans int64
	env.db.Model(&model.Membership{}).Where("club_id IN ?", []uint64{a.ID, b.ID}).Count(&orphans)
	if orphans != 0 {
		t.Fatalf("orphan memberships: %d", orphans)
	}
	if len(auditActions(t, env.db, "clubs_merged")) != 1 {
		t.Fatalf("merge must be audited")
	}
}

func TestReconcile_MergeFailureKeepsLoser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member := uuid.New()

	winner := seedClub(t, env.db, "Chess Club", "Weekly games", model.StatusValidated)
	loser := seedClub(t, env.db, "Chess Club", "", model.StatusPending)
	seedMember(t, env.db, loser.ID, member, model.MemberRoleMember, 1)

	report, err := env.reconcile.Plan(ctx, admin)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	simulated := errors.New("simulated membership failure")
	err = env.db.Callback().Update().Before("gorm:update").Register("test:fail_memberships", func(tx *gorm.DB) {
		if tx.Statement.Table == "memberships" {
			_ = tx.AddError(simulated)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	res, err := env.reconcile.Apply(ctx, admin, report)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Failed() != 1 || !errors.Is(res.Groups[0].Err, simulated) {
		t.Fatalf("expected failed group, got %+v", res.Groups)
	}

	if !clubExists(t, env.db, loser.ID) {
		t.Fatalf("loser must not be deleted when migration fails")
	}
	if _, ok := membersOf(t, env.db, loser.ID)[member]; !ok {
		t.Fatalf("loser membership must stay in place after rollback")
	}
	if len(membersOf(t, env.db, winner.ID)) != 0 {
		t.Fatalf("winner must not receive partial migration")
	}
}

func TestReconcile_StalePlanIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := seedClub(t, env.db, "Echecs", "", model.StatusPending)
	seedClub(t, env.db, "Echecs", "", model.StatusPending)

	report, err := env.reconcile.Plan(ctx, admin)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// После плана у проигравшего появилось описание: победитель меняется.
	if err := env.db.Model(&model.Club{}).Where("id <> ? AND name = ?", first.ID, "Echecs").
		Update("description", "Club d'échecs du campus").Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	res, err := env.reconcile.ApplyGroup(ctx, admin, report, "Echecs")
	if err != nil {
		t.Fatalf("apply group: %v", err)
	}
	if !errors.Is(res.Err, workflow.ErrStalePlan) {
		t.Fatalf("expected ErrStalePlan, got %v", res.Err)
	}
	if !clubExists(t, env.db, first.ID) {
		t.Fatalf("nothing may be deleted on a stale plan")
	}
}

func TestReconcile_ApplyRequiresPlan(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.reconcile.Apply(context.Background(), admin, nil); err == nil {
		t.Fatalf("apply without a plan must fail")
	}
	if _, err := env.reconcile.ApplyGroup(context.Background(), admin, &Report{}, "missing"); !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("unknown group: expected ErrNotFound, got %v", err)
	}
}

func TestReconcile_CaseVariantsAreOnlyReported(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.clubs.Submit(ctx, student, ClubDraft{Name: "Robotique"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.clubs.Submit(ctx, student, ClubDraft{Name: " robotique "}); !errors.Is(err, workflow.ErrDuplicateName) {
		t.Fatalf("creation-time check must catch the variant, got %v", err)
	}
	exists, err := env.clubs.NameExists(ctx, "ROBOTIQUE")
	if err != nil || !exists {
		t.Fatalf("NameExists = %v err=%v", exists, err)
	}

	// Старые данные с вариантом имени.
	seedClub(t, env.db, "robotique", "", model.StatusPending)

	report, err := env.reconcile.Plan(ctx, admin)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(report.Groups) != 0 {
		t.Fatalf("exact-match grouping must not merge case variants: %+v", report.Groups)
	}
	if len(report.NearDuplicates) != 1 || report.NearDuplicates[0].Reason != "case_variant" {
		t.Fatalf("case variant must be reported, got %+v", report.NearDuplicates)
	}
}

func TestReconcile_ChessClubScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	club, err := env.clubs.Submit(ctx, student, ClubDraft{Name: "Chess Club", Description: "Blitz on Tuesdays"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.clubs.Approve(ctx, tutor, club.ID); err != nil {
		t.Fatalf("tutor: %v", err)
	}
	state, err := env.clubs.Approve(ctx, bde, club.ID)
	if err != nil || state.Status != model.StatusValidated {
		t.Fatalf("bde: state=%+v err=%v", state, err)
	}
	for i := 0; i < 3; i++ {
		seedMember(t, env.db, club.ID, uuid.New(), model.MemberRoleMember, 1)
	}

	dup := seedClub(t, env.db, "Chess Club", "", model.StatusPending)
	if err := env.clubs.Reject(ctx, admin, dup.ID, "duplicate of "+club.Name); err != nil {
		t.Fatalf("reject duplicate: %v", err)
	}

	report, err := env.reconcile.Plan(ctx, admin)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	plan, ok := report.Group("Chess Club")
	if !ok || plan.Winner != club.ID || plan.WinnerScore != 153 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	res, err := env.reconcile.ApplyGroup(ctx, admin, report, "Chess Club")
	if err != nil || res.Failed() {
		t.Fatalf("apply: res=%+v err=%v", res, err)
	}
	if res.MembershipsMoved != 0 || res.ClubsDeleted != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if clubExists(t, env.db, dup.ID) {
		t.Fatalf("duplicate must be deleted")
	}
}
