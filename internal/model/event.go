package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// events — мероприятия клубов.
type Event struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Title       string          `gorm:"type:varchar(255);not null"`
	Description string          `gorm:"type:text"`
	Date        *datatypes.Date `gorm:"type:date;index"`
	Campus      string          `gorm:"type:varchar(64);index"`

	// Организатор может отсутствовать (мероприятия БДЕ) или быть отвязан
	// после удаления клуба.
	ClubID *uint64 `gorm:"index"`

	ValidationStatus ValidationStatus `gorm:"not null;default:0;index"`
	BDEValidation    Approval         `gorm:"column:bde_validation;not null;default:0"`
	TutorValidation  Approval         `gorm:"not null;default:0"`
	Remarks          string           `gorm:"type:text"`
	ReportPath       string           `gorm:"type:varchar(512)"`

	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Club *Club `gorm:"foreignKey:ClubID"`
}
