package profile

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Roles. Kept as plain strings; accounts are provisioned with exactly one.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

// Profile is the display/record data associated with an identity. One row per
// user; created at account provisioning, read-only here. Role is always
// present; every other field may be absent ("unknown", not an error).
type Profile struct {
	UserID    string      `json:"user_id" db:"user_id"`
	Email     null.String `json:"email" db:"email"`
	Name      null.String `json:"name" db:"name"`
	Role      string      `json:"role" db:"role"`
	Phone     null.String `json:"phone" db:"phone"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (p *Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p *Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p *Profile) IsStudent() bool { return p.Role == RoleStudent }

// NewProfile contains information needed to provision a new Profile.
type NewProfile struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Name   string `json:"name"`
	Role   string `json:"role" validate:"required,oneof=admin teacher student"`
	Phone  string `json:"phone"`
}
