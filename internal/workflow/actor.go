package workflow

import "github.com/google/uuid"

// Role: код роли пользователя портала.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTutor      Role = "tutor"
	RoleBDE        Role = "bde"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RoleUnknown    Role = "unknown"
)

// ParseRole нормализует код роли из хранилища.
func ParseRole(code string) Role {
	switch r := Role(code); r {
	case RoleStudent, RoleTutor, RoleBDE, RoleAdmin, RoleSuperAdmin:
		return r
	default:
		return RoleUnknown
	}
}

// Actor: кто выполняет действие. Передаётся явно в каждую операцию,
// ядро не читает состояние сессии.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// System: актор для служебных операций (миграции, сидинг).
var System = Actor{Role: RoleSuperAdmin}

func (a Actor) String() string {
	if a.ID == uuid.Nil {
		return string(a.Role)
	}
	return string(a.Role) + ":" + a.ID.String()
}
