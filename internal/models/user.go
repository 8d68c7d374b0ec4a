package models

import "time"

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account status values.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// User represents a row in the PostgreSQL users table.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"-"` // never serialize
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	IsOnline  bool       `json:"isOnline"`
	CreatedAt time.Time  `json:"createdAt"`
}

// UserSummary is the denormalized creator view attached to recipes.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SignupRequest is the JSON body for POST /api/users/signup.
type SignupRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	AdminCode string `json:"adminCode"`
}

// LoginRequest is the JSON body for POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the JSON body for POST /api/users/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the JSON body for POST /api/users/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
