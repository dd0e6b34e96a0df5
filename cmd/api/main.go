// @title        User Directory API
// @version      1.0
// @description  Signup, login, password update and a searchable user directory.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/userdirectory/userdir-api/internal/api"
	"github.com/userdirectory/userdir-api/internal/api/middleware"
	"github.com/userdirectory/userdir-api/internal/core/ports"
	"github.com/userdirectory/userdir-api/internal/core/service"
	"github.com/userdirectory/userdir-api/internal/infrastructure/db/mongo"
	"github.com/userdirectory/userdir-api/internal/infrastructure/db/redis"
	"github.com/userdirectory/userdir-api/internal/infrastructure/password"
	"github.com/userdirectory/userdir-api/internal/infrastructure/token"
	"github.com/userdirectory/userdir-api/internal/pkg/config"
	"github.com/userdirectory/userdir-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "userdir-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

// run owns every resource it opens and releases them before returning, on
// success and on failure alike.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Credential store ---
	store, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB")
		}
	}()

	users := mongo.NewUserRepository(store.Database())
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	// --- Directory cache (optional) ---
	var (
		rdb   *goredis.Client
		cache ports.DirectoryCache
	)
	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, directory cache disabled")
		} else {
			rdb = client
			defer rdb.Close()
			cache = redis.NewDirectoryCache(rdb, cfg.Redis.CacheTTL)
		}
	}

	// --- Auth core ---
	tokens, err := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("build token service: %w", err)
	}
	hasher := password.NewBcryptHasher(cfg.Auth.BcryptCost)

	authService := service.NewAuthService(users, hasher, tokens, cache, log.With().Str("component", "auth").Logger())
	userService := service.NewUserService(users, cache, log.With().Str("component", "directory").Logger())

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		UserService: userService,
		Tokens:      tokens,
		Guard: middleware.GuardPolicy{
			Prefixes: cfg.Guard.ProtectedPrefixes,
			Strict:   cfg.Guard.Strict,
		},
		Mongo:  store.Database(),
		Redis:  rdb,
		Logger: log,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
