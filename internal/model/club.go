package model

import (
	"time"

	"github.com/google/uuid"
)

// clubs
type Club struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	// Уникальность имени без учёта регистра и пробелов проверяется кодом
	// при создании; дубликаты в старых данных чинит сверка клубов.
	Name        string `gorm:"type:varchar(255);not null;index"`
	Type        string `gorm:"type:varchar(64)"`
	Description string `gorm:"type:text"`
	Campus      string `gorm:"type:varchar(64);index"`

	ValidationStatus ValidationStatus `gorm:"not null;default:0;index"`
	AdminValidation  Approval         `gorm:"not null;default:0"`
	TutorValidation  Approval         `gorm:"not null;default:0"`
	Remarks          string           `gorm:"type:text"`

	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
