package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/userdirectory/userdir-api/internal/api/metrics"
	"github.com/userdirectory/userdir-api/internal/core/domain"
	"github.com/userdirectory/userdir-api/internal/core/ports"
	"github.com/userdirectory/userdir-api/internal/core/validation"
)

// AuthService implements signup, login, password update and logout.
type AuthService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenService
	cache  ports.DirectoryCache
	log    zerolog.Logger
	now    func() time.Time

	// dummyHash is compared against on unknown emails.
	dummyHash string
}

func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	cache ports.DirectoryCache,
	log zerolog.Logger,
) *AuthService {
	if cache == nil {
		cache = noopCache{}
	}
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.dummyHash = s.timingHash()
	return s
}

// Signup validates the form, hashes the password and creates the user.
// No token is issued; the client logs in separately.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	if err := validation.Signup(in); err != nil {
		record("signup", err)
		return nil, err
	}

	email := domain.NormalizeEmail(in.Email)

	// Fast path for the common duplicate; the unique index settles races.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		record("signup", domain.ErrUserExists)
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		record("signup", err)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		record("signup", err)
		return nil, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		record("signup", err)
		return nil, err
	}

	s.invalidateDirectory(ctx)
	s.log.Info().Str("user_id", created.ID).Msg("user signed up")
	record("signup", nil)
	return created.Sanitized(), nil
}

// Login checks credentials and returns a token with the sanitized user.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		err := domain.NewValidationError("Email and password are required")
		record("login", err)
		return "", nil, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			record("login", err)
			return "", nil, err
		}
		// Spend the same bcrypt work as a real comparison.
		s.hasher.Verify(password, s.dummyHash)
		record("login", domain.ErrInvalidCredentials)
		return "", nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		record("login", domain.ErrInvalidCredentials)
		return "", nil, domain.ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		record("login", err)
		return "", nil, err
	}

	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	record("login", nil)
	return token, user.Sanitized(), nil
}

// UpdatePassword changes the password of the token's owner. The fresh token is
// issued strictly after every check and the store write have succeeded; the
// previous token stays valid until it expires.
func (s *AuthService) UpdatePassword(ctx context.Context, in ports.UpdatePasswordInput) (string, *domain.User, error) {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		err := domain.NewValidationError("Current password and new password are required")
		record("update_password", err)
		return "", nil, err
	}

	claims, err := s.tokens.Verify(in.Token)
	if err != nil {
		s.log.Warn().Err(err).Msg("password update with invalid token")
		record("update_password", domain.ErrInvalidToken)
		return "", nil, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		record("update_password", err)
		return "", nil, err
	}

	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		record("update_password", domain.ErrIncorrectPassword)
		return "", nil, domain.ErrIncorrectPassword
	}

	if err := validation.NewPassword(in.NewPassword); err != nil {
		record("update_password", err)
		return "", nil, err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		record("update_password", err)
		return "", nil, err
	}

	now := s.now()
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		record("update_password", err)
		return "", nil, err
	}
	user.PasswordHash = hash
	user.UpdatedAt = now
	s.invalidateDirectory(ctx)

	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		record("update_password", err)
		return "", nil, err
	}

	metrics.TokensIssuedTotal.WithLabelValues("update_password").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("password updated")
	record("update_password", nil)
	return token, user.Sanitized(), nil
}

// Logout is an acknowledgment only: tokens are stateless and never tracked.
func (s *AuthService) Logout(_ context.Context, token string) error {
	if token != "" {
		if claims, err := s.tokens.Verify(token); err == nil {
			s.log.Debug().Str("user_id", claims.UserID).Msg("user logged out")
		}
	}
	record("logout", nil)
	return nil
}

func (s *AuthService) invalidateDirectory(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("directory cache invalidation failed")
	}
}

// timingHash builds a throwaway hash at the configured cost so that unknown
// emails cost one comparison, the same as a wrong password.
func (s *AuthService) timingHash() string {
	hash, err := s.hasher.Hash("timing-equalizer")
	if err != nil {
		s.log.Warn().Err(err).Msg("could not build timing hash")
		return ""
	}
	return hash
}

// record counts an auth flow outcome.
func record(operation string, err error) {
	metrics.AuthOperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrIncorrectPassword):
		return "unauthorized"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context) ([]*domain.User, int64, bool, error) { return nil, 0, false, nil }
func (noopCache) Set(context.Context, int64, []*domain.User) error          { return nil }
func (noopCache) Invalidate(context.Context) error                          { return nil }
