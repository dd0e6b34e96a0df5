package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/userdirectory/userdir-api/internal/core/domain"
)

const (
	directoryKey        = "userdir:directory"
	generationKey       = directoryKey + ":gen"
	defaultDirectoryTTL = 30 * time.Second
)

func listingKey(gen int64) string {
	return fmt.Sprintf("%s:%d", directoryKey, gen)
}

// cachedUser is the cached projection; it has no hash field at all.
type cachedUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DirectoryCache caches the user listing in Redis. The listing lives under a
// key suffixed with the current generation; Invalidate increments the
// generation, which orphans older listings until their TTL drops them.
type DirectoryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewDirectoryCache wraps client. A non-positive ttl falls back to 30s.
func NewDirectoryCache(client redis.Cmdable, ttl time.Duration) *DirectoryCache {
	if ttl <= 0 {
		ttl = defaultDirectoryTTL
	}
	return &DirectoryCache{client: client, ttl: ttl}
}

// Get returns the current generation and its listing; ok is false on a miss.
func (c *DirectoryCache) Get(ctx context.Context) ([]*domain.User, int64, bool, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("directory cache generation: %w", err)
	}

	raw, err := c.client.Get(ctx, listingKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("directory cache get: %w", err)
	}

	var cached []cachedUser
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, gen, false, fmt.Errorf("directory cache decode: %w", err)
	}

	users := make([]*domain.User, 0, len(cached))
	for _, cu := range cached {
		users = append(users, &domain.User{
			ID:        cu.ID,
			FirstName: cu.FirstName,
			LastName:  cu.LastName,
			Email:     cu.Email,
			CreatedAt: cu.CreatedAt,
			UpdatedAt: cu.UpdatedAt,
		})
	}
	return users, gen, true, nil
}

// Set stores the listing under gen until the TTL elapses. A listing for a
// generation that Invalidate has already moved past is never read.
func (c *DirectoryCache) Set(ctx context.Context, gen int64, users []*domain.User) error {
	cached := make([]cachedUser, 0, len(users))
	for _, u := range users {
		cached = append(cached, cachedUser{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		})
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("directory cache encode: %w", err)
	}
	return c.client.Set(ctx, listingKey(gen), raw, c.ttl).Err()
}

// Invalidate starts a new generation.
func (c *DirectoryCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}
