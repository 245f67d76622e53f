package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// IdentityService регистрирует пользователей портала и управляет их ролью.
type IdentityService struct {
	userRepo repository.UserRepository
}

func NewIdentityService(userRepo repository.UserRepository) *IdentityService {
	return &IdentityService{userRepo: userRepo}
}

// RegisterUser создаёт пользователя по email или возвращает существующего, обновляя профиль.
func (s *IdentityService) RegisterUser(ctx context.Context, email, displayName, campus string) (*model.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required")
	}
	u, err := s.userRepo.UpsertUser(ctx, email, displayName, campus)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return u, nil
}

// SetRole назначает роль пользователю. Неизвестные коды ролей отклоняются.
func (s *IdentityService) SetRole(ctx context.Context, userID uuid.UUID, role workflow.Role) error {
	if workflow.ParseRole(string(role)) == workflow.RoleUnknown {
		return fmt.Errorf("%w: %q", workflow.ErrUnknownRole, role)
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.SetRole(ctx, userID, string(role))
}

// Actor возвращает пользователя с его ролью. Пользователь без роли считается студентом.
func (s *IdentityService) Actor(ctx context.Context, userID uuid.UUID) (workflow.Actor, error) {
	if userID == uuid.Nil {
		return workflow.Actor{}, workflow.ErrInvalidActor
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return workflow.Actor{}, err
	}
	code, err := s.userRepo.GetRole(ctx, u.ID)
	if errors.Is(err, workflow.ErrNotFound) {
		// роль может отсутствовать
		return workflow.Actor{ID: u.ID, Role: workflow.RoleStudent}, nil
	}
	if err != nil {
		return workflow.Actor{}, err
	}
	return workflow.Actor{ID: u.ID, Role: workflow.ParseRole(code)}, nil
}

// Bootstrap заводит первого администратора по email, чтобы через gRPC
// можно было регистрировать остальных. Повторный запуск ничего не ломает.
func (s *IdentityService) Bootstrap(ctx context.Context, email string) (*model.User, error) {
	u, err := s.RegisterUser(ctx, email, "", "")
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRole(ctx, u.ID, string(workflow.RoleSuperAdmin)); err != nil {
		return nil, fmt.Errorf("bootstrap role: %w", err)
	}
	return u, nil
}
