package model

import (
	"time"

	"github.com/google/uuid"
)

type MemberRole string

const (
	MemberRoleMember    MemberRole = "member"
	MemberRoleOfficer   MemberRole = "officer"
	MemberRolePresident MemberRole = "president"
)

// memberships — участие пользователя в клубе. Valid: 0 — заявка, 1 — принят.
// Каскадное удаление делается кодом, схема его не гарантирует.
type Membership struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	ClubID uint64    `gorm:"not null;uniqueIndex:idx_membership_club_user;index"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_membership_club_user"`

	Role  MemberRole `gorm:"type:varchar(32);not null;default:'member'"`
	Valid int        `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
