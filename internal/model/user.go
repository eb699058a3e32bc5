package model

import (
	"time"

	"github.com/google/uuid"
)

// Role values match the CHECK constraint on users.role.
const (
	RoleUser    = "USER"
	RoleCreator = "CREATOR"
)

// ValidRole reports whether s is one of the accepted role values.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleCreator
}

// User is an account record. PasswordHash is empty for accounts
// provisioned through mock login or OAuth, which never log in with a
// password.
type User struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	AvatarURL    *string   `db:"avatar_url"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// IsCreator reports whether the user may publish and manage sessions.
func (u *User) IsCreator() bool {
	return u.Role == RoleCreator
}
