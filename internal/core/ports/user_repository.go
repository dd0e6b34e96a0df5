package ports

import (
	"context"
	"time"

	"github.com/userdirectory/userdir-api/internal/core/domain"
)

// UserRepository is the credential store. Create must fail with
// domain.ErrUserExists when the email is already taken, even under races.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	// List returns every user, newest first, without password hashes.
	List(ctx context.Context) ([]*domain.User, error)
}

// DirectoryCache caches the result of UserRepository.List. Entries belong to
// a generation; Invalidate starts a new one, so a listing read before the
// invalidation and stored after it is never served.
type DirectoryCache interface {
	// Get returns the current generation and, when ok, its cached listing.
	Get(ctx context.Context) (users []*domain.User, gen int64, ok bool, err error)
	// Set stores users under gen, the value an earlier Get returned.
	Set(ctx context.Context, gen int64, users []*domain.User) error
	Invalidate(ctx context.Context) error
}
