package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/association-portal/internal/model"
)

type MembershipRepository interface {
	// Создать заявку, если пары (клуб, пользователь) ещё нет.
	Ensure(ctx context.Context, m *model.Membership) (bool, error)
	Get(ctx context.Context, clubID uint64, userID uuid.UUID) (*model.Membership, error)
	Exists(ctx context.Context, clubID uint64, userID uuid.UUID) (bool, error)
	SetValid(ctx context.Context, clubID uint64, userID uuid.UUID, valid int) error
	ListByClub(ctx context.Context, clubID uint64) ([]model.Membership, error)
	CountByClub(ctx context.Context, clubID uint64) (int64, error)
	// Перенести строку участия в другой клуб, сохраняя роль и признак valid.
	MoveToClub(ctx context.Context, id, clubID uint64) error
	DeleteByID(ctx context.Context, id uint64) error
	Delete(ctx context.Context, clubID uint64, userID uuid.UUID) error
	DeleteByClub(ctx context.Context, clubID uint64) (int64, error)
}

type GormMembershipRepository struct {
	db *gorm.DB
}

func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

func (r *GormMembershipRepository) Ensure(ctx context.Context, m *model.Membership) (bool, error) {
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "club_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(m)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormMembershipRepository) Get(ctx context.Context, clubID uint64, userID uuid.UUID) (*model.Membership, error) {
	var m model.Membership
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		First(&m).Error
	if err != nil {
		return nil, translate(err, "membership")
	}
	return &m, nil
}

func (r *GormMembershipRepository) Exists(ctx context.Context, clubID uint64, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormMembershipRepository) SetValid(ctx context.Context, clubID uint64, userID uuid.UUID, valid int) error {
	tx := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Updates(map[string]any{
			"valid":      valid,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "membership")
	}
	return nil
}

func (r *GormMembershipRepository) ListByClub(ctx context.Context, clubID uint64) ([]model.Membership, error) {
	var ms []model.Membership
	err := r.db.WithContext(ctx).
		Where("club_id = ?", clubID).
		Order("id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *GormMembershipRepository) CountByClub(ctx context.Context, clubID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("club_id = ?", clubID).
		Count(&n).Error
	return n, err
}

func (r *GormMembershipRepository) MoveToClub(ctx context.Context, id, clubID uint64) error {
	tx := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"club_id":    clubID,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "membership")
	}
	return nil
}

func (r *GormMembershipRepository) DeleteByID(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&model.Membership{}, "id = ?", id).Error
}

func (r *GormMembershipRepository) Delete(ctx context.Context, clubID uint64, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		Delete(&model.Membership{}).Error
}

func (r *GormMembershipRepository) DeleteByClub(ctx context.Context, clubID uint64) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("club_id = ?", clubID).
		Delete(&model.Membership{})
	return tx.RowsAffected, tx.Error
}

var _ MembershipRepository = (*GormMembershipRepository)(nil)
