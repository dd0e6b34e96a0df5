package ports

import "github.com/userdirectory/userdir-api/internal/core/domain"

// PasswordHasher is a one-way salted hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify never fails; malformed hashes simply don't match.
	Verify(plain, hash string) bool
}

// TokenVerifier checks a bearer token and returns its claims.
// Every failure is reported as domain.ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (*domain.Claims, error)
}

// TokenService issues and verifies signed, time-limited bearer tokens.
type TokenService interface {
	TokenVerifier
	Issue(userID, email string) (string, *domain.Claims, error)
}
