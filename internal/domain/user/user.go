package user

import (
	"errors"
	"time"
)

// Role is the closed set of identities the board knows about.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEmployer  Role = "employer"
	RoleJobSeeker Role = "job_seeker"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEmployer, RoleJobSeeker:
		return true
	default:
		return false
	}
}

// ParseRole maps a stored/claimed role string onto the enum.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

var (
	ErrNotFound         = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	Phone        *string    `json:"phone,omitempty"`
	Address      *string    `json:"address,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	Gender       *string    `json:"gender,omitempty"`
	Bio          *string    `json:"bio,omitempty"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Summary is the slice of a user that is embedded in job and application payloads.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Registration roles: admins are seeded, never self-registered.
type SignUpRequest struct {
	Email    string  `json:"email" binding:"required,email,max=255"`
	Password string  `json:"password" binding:"required,min=8"`
	Name     string  `json:"name" binding:"required,max=255"`
	Role     string  `json:"role" binding:"omitempty,oneof=employer job_seeker"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Address  *string `json:"address"`
	Gender   *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Bio      *string `json:"bio"`
}

// RegistrationRole resolves the requested role, defaulting to job seeker.
func (r SignUpRequest) RegistrationRole() Role {
	if r.Role == string(RoleEmployer) {
		return RoleEmployer
	}
	return RoleJobSeeker
}
