package auth

import (
	"context"

	"github.com/hugh/c4p-portal/internal/database/models"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	IsAdmin(user *models.User) bool
}

// PasswordLookup backs the committee's password directory.
type PasswordLookup interface {
	PasswordDirectory(ctx context.Context, query string) ([]PasswordEntry, error)
}

// TokenService defines the interface for session token operations.
type TokenService interface {
	Issue(userID uint) (string, error)
	Validate(tokenString string) (uint, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator  = (*Service)(nil)
	_ PasswordLookup = (*Service)(nil)
	_ TokenService   = (*SessionService)(nil)
)
