package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// MembershipService: заявки на вступление в клуб и их подтверждение.
type MembershipService struct {
	clubs       repository.ClubRepository
	memberships repository.MembershipRepository
	audit       audit.Sink
}

func NewMembershipService(clubs repository.ClubRepository, memberships repository.MembershipRepository, sink audit.Sink) *MembershipService {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &MembershipService{clubs: clubs, memberships: memberships, audit: sink}
}

// Join создаёт заявку (valid = 0). Повторная заявка ничего не меняет.
func (s *MembershipService) Join(ctx context.Context, actor workflow.Actor, clubID uint64, userID uuid.UUID) (*model.Membership, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("join club %d: %w", clubID, workflow.ErrInvalidActor)
	}
	if _, err := s.clubs.GetByID(ctx, clubID); err != nil {
		return nil, err
	}

	created, err := s.memberships.Ensure(ctx, &model.Membership{
		ClubID: clubID,
		UserID: userID,
		Role:   model.MemberRoleMember,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.audit.Record(ctx, audit.Entry{
			Category: audit.CategoryWorkflow,
			Action:   audit.ActionMembershipAdded,
			Actor:    actor,
			Kind:     workflow.KindClub,
			EntityID: clubID,
			Success:  true,
			Details:  map[string]string{"user_id": userID.String()},
		})
	}
	return s.memberships.Get(ctx, clubID, userID)
}

// ApproveMember подтверждает участие (valid = 1).
func (s *MembershipService) ApproveMember(ctx context.Context, clubID uint64, userID uuid.UUID) error {
	return s.memberships.SetValid(ctx, clubID, userID, 1)
}

func (s *MembershipService) Leave(ctx context.Context, clubID uint64, userID uuid.UUID) error {
	return s.memberships.Delete(ctx, clubID, userID)
}

func (s *MembershipService) Members(ctx context.Context, clubID uint64) ([]model.Membership, error) {
	return s.memberships.ListByClub(ctx, clubID)
}
