package models

import "time"

// User roles.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// User is an account allowed to operate the vault. Password holds bcrypt material.
type User struct {
	ID        string    `json:"id" validate:"required"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// NaturalKey returns the normalised email, unique within the users collection.
func (u User) NaturalKey() string {
	return UserKey(u.Email)
}
