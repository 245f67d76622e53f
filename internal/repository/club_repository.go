package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/model"
)

// ClubUpdate: команда частичного обновления клуба.
// nil-поля не попадают в UPDATE.
type ClubUpdate struct {
	Name        *string
	Type        *string
	Description *string
	Campus      *string
}

func (u ClubUpdate) columns() map[string]any {
	update := map[string]any{}
	if u.Name != nil {
		update["name"] = *u.Name
	}
	if u.Type != nil {
		update["type"] = *u.Type
	}
	if u.Description != nil {
		update["description"] = *u.Description
	}
	if u.Campus != nil {
		update["campus"] = *u.Campus
	}
	return update
}

// DuplicateGroup: клубы с одинаковым именем, id по возрастанию.
type DuplicateGroup struct {
	Name string
	IDs  []uint64
}

type ClubRepository interface {
	Create(ctx context.Context, club *model.Club) error
	GetByID(ctx context.Context, id uint64) (*model.Club, error)
	// Есть ли клуб с таким именем без учёта регистра и крайних пробелов.
	NameExists(ctx context.Context, name string) (bool, error)
	Update(ctx context.Context, id uint64, upd ClubUpdate) error
	ListByStatus(ctx context.Context, status model.ValidationStatus) ([]model.Club, error)
	ListNames(ctx context.Context) ([]string, error)
	// Группы клубов с точным совпадением имени.
	DuplicateGroups(ctx context.Context) ([]DuplicateGroup, error)
	IDsByName(ctx context.Context, name string) ([]uint64, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]model.Club, error)
	Delete(ctx context.Context, id uint64) error
}

type GormClubRepository struct {
	db *gorm.DB
}

func NewGormClubRepository(db *gorm.DB) *GormClubRepository {
	return &GormClubRepository{db: db}
}

func (r *GormClubRepository) Create(ctx context.Context, club *model.Club) error {
	return r.db.WithContext(ctx).Create(club).Error
}

func (r *GormClubRepository) GetByID(ctx context.Context, id uint64) (*model.Club, error) {
	var c model.Club
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "club")
	}
	return &c, nil
}

func (r *GormClubRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Club{}).
		Where("LOWER(TRIM(name)) = LOWER(TRIM(?))", name).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormClubRepository) Update(ctx context.Context, id uint64, upd ClubUpdate) error {
	update := upd.columns()
	if len(update) == 0 {
		return nil
	}
	update["updated_at"] = time.Now().UTC()
	tx := r.db.WithContext(ctx).
		Model(&model.Club{}).
		Where("id = ?", id).
		Updates(update)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "club")
	}
	return nil
}

func (r *GormClubRepository) ListByStatus(ctx context.Context, status model.ValidationStatus) ([]model.Club, error) {
	var clubs []model.Club
	q := r.db.WithContext(ctx).Model(&model.Club{})
	if status == model.StatusPending {
		q = q.Where("validation_status = ? OR validation_status IS NULL", status)
	} else {
		q = q.Where("validation_status = ?", status)
	}
	if err := q.Order("id ASC").Find(&clubs).Error; err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *GormClubRepository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.Club{}).
		Distinct("name").
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *GormClubRepository) DuplicateGroups(ctx context.Context) ([]DuplicateGroup, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.Club{}).
		Select("name").
		Group("name").
		Having("COUNT(*) > 1").
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}

	groups := make([]DuplicateGroup, 0, len(names))
	for _, name := range names {
		ids, err := r.IDsByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(ids) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{Name: name, IDs: ids})
	}
	return groups, nil
}

func (r *GormClubRepository) IDsByName(ctx context.Context, name string) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&model.Club{}).
		Where("name = ?", name).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormClubRepository) ListByIDs(ctx context.Context, ids []uint64) ([]model.Club, error) {
	if len(ids) == 0 {
		return []model.Club{}, nil
	}
	var clubs []model.Club
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&clubs).Error
	if err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *GormClubRepository) Delete(ctx context.Context, id uint64) error {
	tx := r.db.WithContext(ctx).Delete(&model.Club{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "club")
	}
	return nil
}

var _ ClubRepository = (*GormClubRepository)(nil)
