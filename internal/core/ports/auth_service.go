package ports

import (
	"context"

	"github.com/userdirectory/userdir-api/internal/core/domain"
)

// SignupInput is the signup form as submitted by the client.
type SignupInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	Terms           bool
}

// UpdatePasswordInput carries the bearer token alongside both passwords.
type UpdatePasswordInput struct {
	Token           string
	CurrentPassword string
	NewPassword     string
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	UpdatePassword(ctx context.Context, in UpdatePasswordInput) (string, *domain.User, error)
	Logout(ctx context.Context, token string) error
}

type UserService interface {
	// ListUsers returns the directory; search filters on full name, case-insensitively.
	ListUsers(ctx context.Context, search string) ([]*domain.User, error)
}
