package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertUser(ctx context.Context, email, displayName, campus string) (*model.User, error)
	SetRole(ctx context.Context, userID uuid.UUID, roleCode string) error
	GetRole(ctx context.Context, userID uuid.UUID) (string, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	n := normalizeEmail(email)
	if n == "" {
		return nil, translate(gorm.ErrRecordNotFound, "user")
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", n).First(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *GormUserRepository) UpsertUser(ctx context.Context, email, displayName, campus string) (*model.User, error) {
	email = normalizeEmail(email)
	var u model.User
	tx := r.db.WithContext(ctx).Where("email = ?", email).First(&u)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			u = model.User{Email: email, DisplayName: displayName, Campus: campus}
			if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
				return nil, err
			}
			return &u, nil
		}
		return nil, tx.Error
	}
	// update existing
	updates := map[string]any{}
	if displayName != "" {
		updates["display_name"] = displayName
		u.DisplayName = displayName
	}
	if campus != "" {
		updates["campus"] = campus
		u.Campus = campus
	}
	if len(updates) == 0 {
		return &u, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) SetRole(ctx context.Context, userID uuid.UUID, roleCode string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// ensure role exists
		var role model.Role
		if err := tx.Where("code = ?", roleCode).First(&role).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			role = model.Role{Code: roleCode, Name: roleCode}
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
		}

		// single role policy: previous roles are replaced
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.UserRole{RoleID: role.ID, UserID: userID}).Error
	})
}

func (r *GormUserRepository) GetRole(ctx context.Context, userID uuid.UUID) (string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Table("user_roles").
		Select("roles.code").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Limit(1).
		Pluck("roles.code", &codes).Error
	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", translate(gorm.ErrRecordNotFound, "role")
	}
	return codes[0], nil
}

var _ UserRepository = (*GormUserRepository)(nil)
