package grpcapi

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/association-portal/internal/authz"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/pagination"
	"github.com/Leganyst/association-portal/internal/service"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// ActorHeader: метаданные запроса с UUID пользователя.
const ActorHeader = "x-actor-id"

// Server: административный gRPC-интерфейс согласования и сверки.
type Server struct {
	clubs         *service.ClubService
	events        *service.EventService
	validation    *service.ValidationService
	reconcile     *service.ReconciliationService
	subscriptions *service.SubscriptionService
	memberships   *service.MembershipService
	identity      *service.IdentityService
	authz         *authz.Authorizer
	log           *zap.Logger

	// Выданные планы сверки: применить можно только показанный план.
	plans *planStore
}

// Deps: сервисы, которые обслуживает Server.
type Deps struct {
	Clubs         *service.ClubService
	Events        *service.EventService
	Validation    *service.ValidationService
	Reconcile     *service.ReconciliationService
	Subscriptions *service.SubscriptionService
	Memberships   *service.MembershipService
	Identity      *service.IdentityService
	Authz         *authz.Authorizer
	Log           *zap.Logger
}

func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		clubs:         d.Clubs,
		events:        d.Events,
		validation:    d.Validation,
		reconcile:     d.Reconcile,
		subscriptions: d.Subscriptions,
		memberships:   d.Memberships,
		identity:      d.Identity,
		authz:         d.Authz,
		log:           log,
		plans:         newPlanStore(PlanTTL),
	}
}

// actor достаёт актора из метаданных и проверяет возможность.
func (s *Server) actor(ctx context.Context, capability authz.Capability) (workflow.Actor, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(ActorHeader)
	if len(values) == 0 {
		return workflow.Actor{}, status.Error(codes.Unauthenticated, ActorHeader+" is required")
	}
	id, err := uuid.Parse(values[0])
	if err != nil {
		return workflow.Actor{}, status.Error(codes.Unauthenticated, ActorHeader+" must be a UUID")
	}
	actor, err := s.authz.Resolve(ctx, id)
	if err != nil {
		return workflow.Actor{}, toStatus(err)
	}
	if err := s.authz.Require(ctx, actor, capability); err != nil {
		return workflow.Actor{}, toStatus(err)
	}
	return actor, nil
}

func (s *Server) SubmitClub(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapSubmit)
	if err != nil {
		return nil, err
	}
	if str(in, "name") == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}

	club, err := s.clubs.Submit(ctx, actor, service.ClubDraft{
		Name:        str(in, "name"),
		Type:        str(in, "type"),
		Description: str(in, "description"),
		Campus:      str(in, "campus"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{
		"id":     club.ID,
		"status": club.ValidationStatus.String(),
	})
}

func (s *Server) SubmitEvent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapSubmit)
	if err != nil {
		return nil, err
	}
	if str(in, "title") == "" {
		return nil, status.Error(codes.InvalidArgument, "title is required")
	}
	date, err := dateOf(in, "date")
	if err != nil {
		return nil, err
	}
	draft := service.EventDraft{
		Title:       str(in, "title"),
		Description: str(in, "description"),
		Date:        date,
		Campus:      str(in, "campus"),
	}
	if _, ok := num(in, "club_id"); ok {
		clubID, err := requiredID(in, "club_id")
		if err != nil {
			return nil, err
		}
		draft.ClubID = &clubID
	}

	event, err := s.events.Submit(ctx, actor, draft)
	if err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{
		"id":     event.ID,
		"status": event.ValidationStatus.String(),
	})
}

func (s *Server) Approve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapApprove)
	if err != nil {
		return nil, err
	}
	kind, err := kindOf(in)
	if err != nil {
		return nil, err
	}
	id, err := requiredID(in, "id")
	if err != nil {
		return nil, err
	}

	state, err := s.validation.Approve(ctx, actor, kind, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{
		"status": state.Status.String(),
		"flags":  flagsOf(state),
	})
}

func (s *Server) SetApproval(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapApprove)
	if err != nil {
		return nil, err
	}
	kind, err := kindOf(in)
	if err != nil {
		return nil, err
	}
	id, err := requiredID(in, "id")
	if err != nil {
		return nil, err
	}
	if _, ok := num(in, "decision"); !ok {
		return nil, status.Error(codes.InvalidArgument, "decision is required")
	}
	decision := workflow.Decision(optionalInt(in, "decision"))

	// Отметка всегда ставится от имени роли самого актора.
	if err := s.validation.SetApproval(ctx, actor, kind, id, actor.Role, decision); err != nil {
		return nil, toStatus(err)
	}
	state, err := s.validation.State(ctx, kind, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{
		"status": state.Status.String(),
		"flags":  flagsOf(state),
	})
}

func (s *Server) Reject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapReject)
	if err != nil {
		return nil, err
	}
	kind, err := kindOf(in)
	if err != nil {
		return nil, err
	}
	id, err := requiredID(in, "id")
	if err != nil {
		return nil, err
	}

	if err := s.validation.Reject(ctx, actor, kind, id, str(in, "remarks")); err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{"status": model.StatusRejected.String()})
}

func (s *Server) DeleteIfRejected(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapDelete)
	if err != nil {
		return nil, err
	}
	kind, err := kindOf(in)
	if err != nil {
		return nil, err
	}
	id, err := requiredID(in, "id")
	if err != nil {
		return nil, err
	}

	deleted, err := s.validation.DeleteIfRejected(ctx, actor, kind, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{"deleted": deleted})
}

func (s *Server) ListPending(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, in, model.StatusPending)
}

func (s *Server) ListRejected(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, in, model.StatusRejected)
}

type listItem = map[string]any

func (s *Server) list(ctx context.Context, in *structpb.Struct, st model.ValidationStatus) (*structpb.Struct, error) {
	if _, err := s.actor(ctx, authz.CapApprove); err != nil {
		return nil, err
	}
	kind, err := kindOf(in)
	if err != nil {
		return nil, err
	}

	var items []listItem
	switch kind {
	case workflow.KindClub:
		var clubs []model.Club
		if st == model.StatusPending {
			clubs, err = s.clubs.Pending(ctx)
		} else {
			clubs, err = s.clubs.Rejected(ctx)
		}
		if err != nil {
			return nil, toStatus(err)
		}
		for _, c := range clubs {
			items = append(items, listItem{
				"id":               c.ID,
				"name":             c.Name,
				"campus":           c.Campus,
				"remarks":          c.Remarks,
				"admin_validation": int(c.AdminValidation),
				"tutor_validation": int(c.TutorValidation),
			})
		}
	case workflow.KindEvent:
		var events []model.Event
		if st == model.StatusPending {
			events, err = s.events.Pending(ctx)
		} else {
			events, err = s.events.Rejected(ctx)
		}
		if err != nil {
			return nil, toStatus(err)
		}
		for _, e := range events {
			items = append(items, listItem{
				"id":               e.ID,
				"title":            e.Title,
				"campus":           e.Campus,
				"remarks":          e.Remarks,
				"bde_validation":   int(e.BDEValidation),
				"tutor_validation": int(e.TutorValidation),
			})
		}
	}

	page := pagination.Map(
		pagination.Paginate(items, pagination.Request{
			Page: optionalInt(in, "page"),
			Size: optionalInt(in, "page_size"),
		}),
		func(it listItem) any { return it },
	)
	return mustStruct(map[string]any{
		"items":     page.Items,
		"page":      page.Page,
		"page_size": page.Size,
		"total":     page.Total,
		"has_next":  page.HasNext,
	})
}

func (s *Server) PlanReconciliation(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapReconcile)
	if err != nil {
		return nil, err
	}
	report, err := s.reconcile.Plan(ctx, actor)
	if err != nil {
		return nil, toStatus(err)
	}

	planID := s.plans.put(report)

	groups := make([]any, 0, len(report.Groups))
	for _, g := range report.Groups {
		cands := make([]any, 0, len(g.Candidates))
		for _, c := range g.Candidates {
			cands = append(cands, map[string]any{
				"club_id":         c.ClubID,
				"score":           c.Score,
				"has_description": c.HasDescription,
				"validated":       c.Validated,
				"members":         c.Members,
			})
		}
		losers := make([]any, 0, len(g.Losers))
		for _, id := range g.Losers {
			losers = append(losers, id)
		}
		groups = append(groups, map[string]any{
			"name":                g.Name,
			"winner":              g.Winner,
			"winner_score":        g.WinnerScore,
			"losers":              losers,
			"candidates":          cands,
			"memberships_to_move": g.MembershipsToMove,
			"memberships_to_drop": g.MembershipsToDrop,
			"events_to_move":      g.EventsToMove,
		})
	}
	near := make([]any, 0, len(report.NearDuplicates))
	for _, n := range report.NearDuplicates {
		near = append(near, map[string]any{
			"a":          n.A,
			"b":          n.B,
			"reason":     n.Reason,
			"similarity": float64(n.Similarity),
		})
	}

	return mustStruct(map[string]any{
		"plan_id":         planID,
		"expires_at":      report.GeneratedAt.Add(PlanTTL).UTC().Format(time.RFC3339),
		"groups":          groups,
		"near_duplicates": near,
	})
}

func (s *Server) ApplyReconciliation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapReconcile)
	if err != nil {
		return nil, err
	}
	planID := str(in, "plan_id")
	if planID == "" {
		return nil, status.Error(codes.InvalidArgument, "plan_id is required: run PlanReconciliation first")
	}

	// Целиком план расходуется сразу; по группе расходуется только слитая
	// группа, остальные остаются под тем же plan_id до истечения PlanTTL.
	var results []service.GroupResult
	if group := str(in, "group"); group != "" {
		plan, ok := s.plans.get(planID)
		if !ok {
			return nil, status.Error(codes.NotFound, "unknown, expired or already applied plan")
		}
		r, err := s.reconcile.ApplyGroup(ctx, actor, plan, group)
		if err != nil {
			return nil, toStatus(err)
		}
		if !r.Failed() {
			s.plans.dropGroup(planID, group)
		}
		results = []service.GroupResult{r}
	} else {
		plan, ok := s.plans.take(planID)
		if !ok {
			return nil, status.Error(codes.NotFound, "unknown, expired or already applied plan")
		}
		res, err := s.reconcile.Apply(ctx, actor, plan)
		if err != nil {
			return nil, toStatus(err)
		}
		results = res.Groups
	}

	out := make([]any, 0, len(results))
	failed := 0
	for _, r := range results {
		item := map[string]any{
			"name":                r.Name,
			"winner":              r.Winner,
			"winner_score":        r.WinnerScore,
			"clubs_deleted":       r.ClubsDeleted,
			"memberships_moved":   r.MembershipsMoved,
			"memberships_dropped": r.MembershipsDropped,
			"events_moved":        r.EventsMoved,
			"failed":              r.Failed(),
		}
		if r.Err != nil {
			failed++
			item["error"] = r.Err.Error()
		}
		out = append(out, item)
	}
	s.log.Info("reconciliation applied",
		zap.String("actor", actor.String()),
		zap.Int("groups", len(results)),
		zap.Int("failed", failed),
	)
	return mustStruct(map[string]any{"groups": out, "failed": failed})
}

func (s *Server) Subscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapSubscribe)
	if err != nil {
		return nil, err
	}
	eventID, err := requiredID(in, "event_id")
	if err != nil {
		return nil, err
	}
	created, err := s.subscriptions.Subscribe(ctx, eventID, actor.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{
		"event_id": idString(eventID),
		"created":  created,
	})
}

func (s *Server) JoinClub(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapJoin)
	if err != nil {
		return nil, err
	}
	clubID, err := requiredID(in, "club_id")
	if err != nil {
		return nil, err
	}
	// Вступает всегда сам актор.
	m, err := s.memberships.Join(ctx, actor, clubID, actor.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{
		"club_id": idString(m.ClubID),
		"user_id": m.UserID.String(),
		"valid":   m.Valid,
	})
}

func (s *Server) ApproveMember(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapApprove)
	if err != nil {
		return nil, err
	}
	clubID, err := requiredID(in, "club_id")
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(str(in, "user_id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "user_id must be a UUID")
	}
	if err := s.memberships.ApproveMember(ctx, clubID, userID); err != nil {
		return nil, toStatus(err)
	}
	s.log.Info("membership approved",
		zap.String("actor", actor.String()),
		zap.Uint64("club_id", clubID),
		zap.String("user_id", userID.String()),
	)
	return mustStruct(map[string]any{"valid": 1})
}

func (s *Server) LeaveClub(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapJoin)
	if err != nil {
		return nil, err
	}
	clubID, err := requiredID(in, "club_id")
	if err != nil {
		return nil, err
	}
	if err := s.memberships.Leave(ctx, clubID, actor.ID); err != nil {
		return nil, toStatus(err)
	}
	return mustStruct(map[string]any{"left": true})
}

func (s *Server) RegisterUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapUsers)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(str(in, "email"))
	if email == "" {
		return nil, status.Error(codes.InvalidArgument, "email is required")
	}
	role := workflow.Role(str(in, "role"))
	if role != "" && workflow.ParseRole(string(role)) == workflow.RoleUnknown {
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", role)
	}

	u, err := s.identity.RegisterUser(ctx, email, str(in, "display_name"), str(in, "campus"))
	if err != nil {
		return nil, toStatus(err)
	}
	if role != "" {
		if err := s.identity.SetRole(ctx, u.ID, role); err != nil {
			return nil, toStatus(err)
		}
	}
	registered, err := s.identity.Actor(ctx, u.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	s.log.Info("user registered",
		zap.String("actor", actor.String()),
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(registered.Role)),
	)
	return mustStruct(map[string]any{
		"user_id": u.ID.String(),
		"role":    string(registered.Role),
	})
}

func (s *Server) SetRole(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx, authz.CapUsers)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(str(in, "user_id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "user_id must be a UUID")
	}
	role := workflow.Role(str(in, "role"))
	if err := s.identity.SetRole(ctx, userID, role); err != nil {
		return nil, toStatus(err)
	}
	s.log.Info("role changed",
		zap.String("actor", actor.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
	)
	return mustStruct(map[string]any{
		"user_id": userID.String(),
		"role":    string(role),
	})
}
