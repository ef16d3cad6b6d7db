package core

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents an analyst's role in the SOC
type UserRole string

const (
	UserRoleAnalystJunior UserRole = "ANALYST_JUNIOR"
	UserRoleAnalystSenior UserRole = "ANALYST_SENIOR"
	UserRoleLead          UserRole = "LEAD"
	UserRoleAdmin         UserRole = "ADMIN"
)

// String returns the string representation
func (r UserRole) String() string {
	return string(r)
}

// IsValid checks if the role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAnalystJunior, UserRoleAnalystSenior, UserRoleLead, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// User represents an analyst/operator account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email" validate:"required,email"`
	Name      string    `json:"name,omitempty"`
	Role      UserRole  `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	TeamID    string    `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at" swaggertype:"string"`
	UpdatedAt time.Time `json:"updated_at" swaggertype:"string"`

	// PasswordHash is the bcrypt hash of the user's password. Never serialized.
	PasswordHash string `json:"-"`

	// Recent daily metrics, populated on profile reads
	Metrics []AnalystMetric `json:"metrics,omitempty"`
}

// UserSummary is the compact user shape embedded in alerts, investigations
// and leaderboard entries.
type UserSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
}

// Summary returns the compact shape for embedding.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}

// NewUser creates a new User with the default junior analyst role.
func NewUser(email, name string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      UserRoleAnalystJunior,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Session is the authenticated identity attached to a request. It mirrors
// the JWT claims and is the only way handlers learn who is calling.
type Session struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name,omitempty"`
	Role   UserRole `json:"role"`
	TeamID string   `json:"team_id,omitempty"`
}
