package models

import (
	"time"

	"github.com/google/uuid"
)

// User as stored in the user directory
type User struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Username     string
	Email        string
	FullName     string
	PasswordHash string

	// Current refresh token. nil means there is no active session
	RefreshToken *string
}

// Info returns the user without secrets (password hash and refresh token)
func (u User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
	}
}

// Verified identity attached to request context
type UserInfo struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Username  string
	Email     string
	FullName  string
}

type CreateUserParams struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
}

// Registration data as submitted by user. Password is plain text
type RegisterParams struct {
	Username string
	Email    string
	FullName string
	Password string
}
