package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// ApprovalRepository: доступ к статусу и отметкам согласования
// клубов и мероприятий. Каждая запись трогает только свои колонки.
type ApprovalRepository interface {
	// Текущий статус и обязательные отметки сущности.
	GetState(ctx context.Context, kind workflow.Kind, id uint64) (*workflow.ApprovalState, error)
	// Записать одну отметку согласующего.
	SetFlag(ctx context.Context, kind workflow.Kind, id uint64, flag workflow.Flag, value model.Approval) error
	// Записать итоговый статус, при необходимости вместе с замечаниями.
	SetStatus(ctx context.Context, kind workflow.Kind, id uint64, status model.ValidationStatus, remarks *string) error
}

type GormApprovalRepository struct {
	db *gorm.DB
}

func NewGormApprovalRepository(db *gorm.DB) *GormApprovalRepository {
	return &GormApprovalRepository{db: db}
}

func tableFor(kind workflow.Kind) (string, error) {
	switch kind {
	case workflow.KindClub:
		return "clubs", nil
	case workflow.KindEvent:
		return "events", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

type approvalRow struct {
	ValidationStatus int `gorm:"column:validation_status"`
	AdminValidation  int `gorm:"column:admin_validation"`
	TutorValidation  int `gorm:"column:tutor_validation"`
	BDEValidation    int `gorm:"column:bde_validation"`
}

func (r approvalRow) flag(f workflow.Flag) model.Approval {
	switch f {
	case workflow.FlagAdmin:
		return model.Approval(r.AdminValidation)
	case workflow.FlagTutor:
		return model.Approval(r.TutorValidation)
	case workflow.FlagBDE:
		return model.Approval(r.BDEValidation)
	default:
		return model.ApprovalUnset
	}
}

func (r *GormApprovalRepository) GetState(ctx context.Context, kind workflow.Kind, id uint64) (*workflow.ApprovalState, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	flags := workflow.RequiredFlags(kind)
	cols := make([]string, 0, len(flags)+1)
	// NULL в старых строках значит pending или не выставлено.
	cols = append(cols, "COALESCE(validation_status, 0) AS validation_status")
	for _, f := range flags {
		cols = append(cols, fmt.Sprintf("COALESCE(%[1]s, 0) AS %[1]s", f))
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", strings.Join(cols, ", "), table)

	var rows []approvalRow
	if err := r.db.WithContext(ctx).Raw(query, id).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %d: %w", kind, id, workflow.ErrNotFound)
	}
	row := rows[0]

	state := &workflow.ApprovalState{
		Status: model.ValidationStatus(row.ValidationStatus),
		Flags:  make(map[workflow.Flag]model.Approval, len(flags)),
	}
	for _, f := range flags {
		state.Flags[f] = row.flag(f)
	}
	return state, nil
}

func (r *GormApprovalRepository) SetFlag(
	ctx context.Context,
	kind workflow.Kind,
	id uint64,
	flag workflow.Flag,
	value model.Approval,
) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	return r.update(ctx, kind, table, id, map[string]any{
		string(flag): value,
	})
}

func (r *GormApprovalRepository) SetStatus(
	ctx context.Context,
	kind workflow.Kind,
	id uint64,
	status model.ValidationStatus,
	remarks *string,
) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	update := map[string]any{
		"validation_status": status,
	}
	if remarks != nil {
		update["remarks"] = *remarks
	}
	return r.update(ctx, kind, table, id, update)
}

func (r *GormApprovalRepository) update(ctx context.Context, kind workflow.Kind, table string, id uint64, update map[string]any) error {
	update["updated_at"] = time.Now().UTC()
	tx := r.db.WithContext(ctx).
		Table(table).
		Where("id = ?", id).
		Updates(update)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, workflow.ErrNotFound)
	}
	return nil
}
