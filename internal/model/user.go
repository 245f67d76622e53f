package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// users — учётные записи портала (студенты, тьюторы, БДЕ, администраторы).
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email       string `gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName string `gorm:"type:varchar(255)"`
	Campus      string `gorm:"type:varchar(64);index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate генерирует UUID на стороне приложения, чтобы схема
// не зависела от gen_random_uuid() и работала на sqlite.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
