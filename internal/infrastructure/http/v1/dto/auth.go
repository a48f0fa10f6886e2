package dto

import (
	"time"
)

// LoginRequest for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse with access token and user info.
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	TokenType   string       `json:"tokenType"`
	User        UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	BranchID    string   `json:"branchId,omitempty"`
	IsAdmin     bool     `json:"isAdmin"`
}

// RegisterUserRequest for user creation.
type RegisterUserRequest struct {
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Permissions []string `json:"permissions,omitempty"`
	BranchID    *string  `json:"branchId,omitempty"`
}
