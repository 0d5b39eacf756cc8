package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile is the stored user document. PasswordHash never leaves the server.
type Profile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse carries the signed token plus the profile the client
// routes on.
type SessionResponse struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

type ToggleRoleRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
