package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/userdirectory/userdir-api/internal/api/metrics"
	"github.com/userdirectory/userdir-api/internal/core/domain"
	"github.com/userdirectory/userdir-api/internal/core/ports"
)

// UserService serves the user directory.
type UserService struct {
	repo  ports.UserRepository
	cache ports.DirectoryCache
	log   zerolog.Logger
}

func NewUserService(repo ports.UserRepository, cache ports.DirectoryCache, log zerolog.Logger) *UserService {
	if cache == nil {
		cache = noopCache{}
	}
	return &UserService{repo: repo, cache: cache, log: log}
}

// ListUsers returns users newest first, filtered by full name when search is
// non-empty. Cache failures fall through to the store.
func (s *UserService) ListUsers(ctx context.Context, search string) ([]*domain.User, error) {
	users, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return users, nil
	}

	filtered := make([]*domain.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FullName()), needle) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

func (s *UserService) listAll(ctx context.Context) ([]*domain.User, error) {
	// The generation is read before the store so that a mutation landing
	// in between leaves the Set below under an outdated generation.
	cached, gen, ok, err := s.cache.Get(ctx)
	cacheable := err == nil
	switch {
	case err != nil:
		metrics.DirectoryCacheTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Msg("directory cache read failed")
	case ok:
		metrics.DirectoryCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.DirectoryCacheTotal.WithLabelValues("miss").Inc()
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list users")
		return nil, err
	}

	sanitized := make([]*domain.User, 0, len(users))
	for _, u := range users {
		sanitized = append(sanitized, u.Sanitized())
	}

	if cacheable {
		if err := s.cache.Set(ctx, gen, sanitized); err != nil {
			s.log.Warn().Err(err).Msg("directory cache write failed")
		}
	}
	return sanitized, nil
}
