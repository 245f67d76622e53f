package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// audit_records — журнал действий согласования, удаления и сверки.
type AuditRecord struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreatedAt time.Time `gorm:"not null;index"`

	Category string `gorm:"type:varchar(32);not null;index"`
	Action   string `gorm:"type:varchar(64);not null;index"`

	ActorID   *uuid.UUID `gorm:"type:uuid;index"`
	ActorRole string     `gorm:"type:varchar(32)"`

	EntityKind string  `gorm:"type:varchar(16);index"`
	EntityID   *uint64 `gorm:"index"`

	OldStatus *ValidationStatus
	NewStatus *ValidationStatus

	Success bool `gorm:"not null"`

	Details datatypes.JSON
}

func (r *AuditRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
