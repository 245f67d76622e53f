package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/reconcile"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// GroupPlan: что будет сделано с одной группой клубов-дубликатов.
type GroupPlan struct {
	Name       string
	Candidates []reconcile.Scored

	Winner      uint64
	WinnerScore int64
	Losers      []uint64

	MembershipsToMove int
	MembershipsToDrop int
	EventsToMove      int64
}

// Report: результат пробного прогона сверки. Его показывают администратору
// перед подтверждением, и только его можно передать в Apply.
type Report struct {
	GeneratedAt    time.Time
	Groups         []GroupPlan
	NearDuplicates []reconcile.NearDuplicate
}

// Group ищет план группы по имени.
func (r *Report) Group(name string) (GroupPlan, bool) {
	if r == nil {
		return GroupPlan{}, false
	}
	for _, g := range r.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return GroupPlan{}, false
}

// GroupResult: итог слияния одной группы.
type GroupResult struct {
	Name        string
	Winner      uint64
	WinnerScore int64

	ClubsDeleted       int
	MembershipsMoved   int
	MembershipsDropped int
	EventsMoved        int64

	Err error
}

func (r GroupResult) Failed() bool { return r.Err != nil }

// ApplyResult: итог применения плана по всем группам.
type ApplyResult struct {
	Groups []GroupResult
}

// Failed: число групп, которые не удалось слить.
func (r *ApplyResult) Failed() int {
	n := 0
	for _, g := range r.Groups {
		if g.Failed() {
			n++
		}
	}
	return n
}

// ReconciliationService находит клубы с одинаковым именем и сливает их
// в одного победителя. Запускается только явно администратором.
type ReconciliationService struct {
	db        *gorm.DB
	threshold float32
	audit     audit.Sink
	log       *zap.Logger
}

func NewReconciliationService(db *gorm.DB, similarity float32, sink audit.Sink, log *zap.Logger) *ReconciliationService {
	if sink == nil {
		sink = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationService{db: db, threshold: similarity, audit: sink, log: log}
}

var errNoPlan = errors.New("reconciliation plan is required")

// Plan: пробный прогон: обнаружение, оценка и выбор победителей без изменений.
// Группировка идёт по точному совпадению имени; варианты регистра и пробелов
// попадают только в NearDuplicates.
func (s *ReconciliationService) Plan(ctx context.Context, actor workflow.Actor) (*Report, error) {
	db := s.db.WithContext(ctx)
	clubs := repository.NewGormClubRepository(db)

	groups, err := clubs.DuplicateGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect duplicates: %w", err)
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Groups:      make([]GroupPlan, 0, len(groups)),
	}
	for _, g := range groups {
		plan, err := planGroup(ctx, db, g.Name, g.IDs)
		if err != nil {
			return nil, fmt.Errorf("plan %q: %w", g.Name, err)
		}
		report.Groups = append(report.Groups, plan)
	}

	names, err := clubs.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	report.NearDuplicates = reconcile.FindNearDuplicates(names, s.threshold)

	s.log.Info("reconciliation planned",
		zap.String("actor", actor.String()),
		zap.Int("groups", len(report.Groups)),
		zap.Int("near_duplicates", len(report.NearDuplicates)),
	)
	return report, nil
}

// planGroup оценивает кандидатов и моделирует перенос участий так же,
// как это сделает mergeGroup.
func planGroup(ctx context.Context, db *gorm.DB, name string, ids []uint64) (GroupPlan, error) {
	scored, err := scoreClubs(ctx, db, ids)
	if err != nil {
		return GroupPlan{}, err
	}
	winner, losers, ok := reconcile.Elect(scored)
	if !ok {
		return GroupPlan{}, fmt.Errorf("group %q has fewer than two clubs", name)
	}

	plan := GroupPlan{
		Name:        name,
		Candidates:  scored,
		Winner:      winner.ClubID,
		WinnerScore: winner.Score,
		Losers:      make([]uint64, 0, len(losers)),
	}

	memberships := repository.NewGormMembershipRepository(db)
	events := repository.NewGormEventRepository(db)

	present := map[uuid.UUID]struct{}{}
	winnerMembers, err := memberships.ListByClub(ctx, winner.ClubID)
	if err != nil {
		return GroupPlan{}, err
	}
	for _, m := range winnerMembers {
		present[m.UserID] = struct{}{}
	}

	for _, l := range losers {
		plan.Losers = append(plan.Losers, l.ClubID)
		ms, err := memberships.ListByClub(ctx, l.ClubID)
		if err != nil {
			return GroupPlan{}, err
		}
		for _, m := range ms {
			if _, dup := present[m.UserID]; dup {
				plan.MembershipsToDrop++
				continue
			}
			present[m.UserID] = struct{}{}
			plan.MembershipsToMove++
		}
		n, err := events.CountByClub(ctx, l.ClubID)
		if err != nil {
			return GroupPlan{}, err
		}
		plan.EventsToMove += n
	}
	return plan, nil
}

func scoreClubs(ctx context.Context, db *gorm.DB, ids []uint64) ([]reconcile.Scored, error) {
	clubs, err := repository.NewGormClubRepository(db).ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	memberships := repository.NewGormMembershipRepository(db)

	cands := make([]reconcile.Candidate, 0, len(clubs))
	for _, c := range clubs {
		n, err := memberships.CountByClub(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		cands = append(cands, reconcile.FromClub(c, n))
	}
	return reconcile.ScoreAll(cands), nil
}

// Apply сливает все группы плана. Группы независимы: ошибка одной группы
// откатывает только её и попадает в результат, остальные продолжаются.
func (s *ReconciliationService) Apply(ctx context.Context, actor workflow.Actor, plan *Report) (*ApplyResult, error) {
	if plan == nil {
		return nil, errNoPlan
	}
	res := &ApplyResult{Groups: make([]GroupResult, 0, len(plan.Groups))}
	for _, g := range plan.Groups {
		if err := ctx.Err(); err != nil {
			res.Groups = append(res.Groups, GroupResult{Name: g.Name, Winner: g.Winner, Err: err})
			continue
		}
		res.Groups = append(res.Groups, s.applyGroup(ctx, actor, g))
	}
	return res, nil
}

// ApplyGroup сливает одну группу из плана.
func (s *ReconciliationService) ApplyGroup(ctx context.Context, actor workflow.Actor, plan *Report, name string) (GroupResult, error) {
	if plan == nil {
		return GroupResult{}, errNoPlan
	}
	g, ok := plan.Group(name)
	if !ok {
		return GroupResult{}, fmt.Errorf("group %q is not in the plan: %w", name, workflow.ErrNotFound)
	}
	return s.applyGroup(ctx, actor, g), nil
}

func (s *ReconciliationService) applyGroup(ctx context.Context, actor workflow.Actor, g GroupPlan) GroupResult {
	var res GroupResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := mergeGroup(ctx, tx, g)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		// Транзакция откатилась: проигравшие клубы и их участия на месте.
		res = GroupResult{Name: g.Name, Winner: g.Winner, WinnerScore: g.WinnerScore, Err: err}
		s.log.Warn("reconciliation group failed",
			zap.String("group", g.Name),
			zap.Uint64("winner", g.Winner),
			zap.Error(err),
		)
	}

	details := map[string]string{
		"group":               g.Name,
		"losers":              joinIDs(g.Losers),
		"winner_score":        fmt.Sprint(res.WinnerScore),
		"clubs_deleted":       fmt.Sprint(res.ClubsDeleted),
		"memberships_moved":   fmt.Sprint(res.MembershipsMoved),
		"memberships_dropped": fmt.Sprint(res.MembershipsDropped),
		"events_moved":        audit.Count(res.EventsMoved),
	}
	entry := audit.Entry{
		Category: audit.CategoryWorkflow,
		Action:   audit.ActionClubsMerged,
		Actor:    actor,
		Kind:     workflow.KindClub,
		EntityID: g.Winner,
		Success:  res.Err == nil,
		Details:  details,
	}
	if res.Err != nil {
		entry.Reason = res.Err.Error()
	}
	s.audit.Record(ctx, entry)
	return res
}

// mergeGroup выполняется внутри одной транзакции. Перед удалением
// проигравшего все его участия перенесены или удалены как повторные.
func mergeGroup(ctx context.Context, tx *gorm.DB, g GroupPlan) (GroupResult, error) {
	res := GroupResult{Name: g.Name}

	clubs := repository.NewGormClubRepository(tx)
	memberships := repository.NewGormMembershipRepository(tx)
	events := repository.NewGormEventRepository(tx)

	ids, err := clubs.IDsByName(ctx, g.Name)
	if err != nil {
		return res, err
	}
	scored, err := scoreClubs(ctx, tx, ids)
	if err != nil {
		return res, err
	}
	winner, losers, ok := reconcile.Elect(scored)
	if !ok || winner.ClubID != g.Winner || !sameIDs(losers, g.Losers) {
		return res, fmt.Errorf("%w: group %q changed since planning", workflow.ErrStalePlan, g.Name)
	}
	res.Winner = winner.ClubID
	res.WinnerScore = winner.Score

	for _, loser := range losers {
		ms, err := memberships.ListByClub(ctx, loser.ClubID)
		if err != nil {
			return res, err
		}
		for _, m := range ms {
			exists, err := memberships.Exists(ctx, winner.ClubID, m.UserID)
			if err != nil {
				return res, err
			}
			if exists {
				if err := memberships.DeleteByID(ctx, m.ID); err != nil {
					return res, fmt.Errorf("drop membership %d: %w", m.ID, err)
				}
				res.MembershipsDropped++
				continue
			}
			if err := memberships.MoveToClub(ctx, m.ID, winner.ClubID); err != nil {
				return res, fmt.Errorf("move membership %d: %w", m.ID, err)
			}
			res.MembershipsMoved++
		}

		moved, err := events.MoveToClub(ctx, loser.ClubID, winner.ClubID)
		if err != nil {
			return res, fmt.Errorf("move events of club %d: %w", loser.ClubID, err)
		}
		res.EventsMoved += moved

		// Подчищаем всё, что осталось за проигравшим.
		if _, err := memberships.DeleteByClub(ctx, loser.ClubID); err != nil {
			return res, fmt.Errorf("clean memberships of club %d: %w", loser.ClubID, err)
		}
		if err := clubs.Delete(ctx, loser.ClubID); err != nil {
			return res, fmt.Errorf("delete club %d: %w", loser.ClubID, err)
		}
		res.ClubsDeleted++
	}
	return res, nil
}

func sameIDs(losers []reconcile.Scored, planned []uint64) bool {
	if len(losers) != len(planned) {
		return false
	}
	for i := range losers {
		if losers[i].ClubID != planned[i] {
			return false
		}
	}
	return true
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
