package model

import (
	"time"

	"github.com/google/uuid"
)

// subscriptions — намерение студента посетить мероприятие.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	EventID uint64    `gorm:"not null;uniqueIndex:idx_subscription_event_user;index"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_event_user;index"`

	CreatedAt time.Time `gorm:"not null"`
}
