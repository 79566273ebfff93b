package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleVisitor   UserRole = "visitor"
	RoleReader    UserRole = "reader"
	RoleLibrarian UserRole = "librarian"
	RoleAdmin     UserRole = "admin"
)

// roleAliases maps accepted input spellings to canonical roles.
var roleAliases = map[string]UserRole{
	"visitor":   RoleVisitor,
	"reader":    RoleReader,
	"user":      RoleReader,
	"librarian": RoleLibrarian,
	"admin":     RoleAdmin,
}

// ParseRole normalizes a role name. "user" is an alias for reader.
func ParseRole(s string) (UserRole, bool) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return role, ok
}

func (r UserRole) IsValid() bool {
	_, ok := roleAliases[string(r)]
	return ok && r != "user"
}

// IsStaff reports whether the role may handle reservations.
func (r UserRole) IsStaff() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

type User struct {
	ID           string   `json:"id" gorm:"primaryKey;type:uuid"`
	Name         string   `json:"name" gorm:"not null;size:255"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"not null;size:20;default:reader;index"`

	// Incremented on login/logout; tokens carrying an older version are rejected
	TokenVersion int        `json:"-" gorm:"not null;default:0"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserSummary is the public projection embedded in ratings and reservations
type UserSummary struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Role  UserRole `json:"role,omitempty"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
