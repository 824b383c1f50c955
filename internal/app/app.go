package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ctlabs-oss/authcore/internal/config"
	"github.com/ctlabs-oss/authcore/internal/database"
	"github.com/ctlabs-oss/authcore/internal/http/handler"
	"github.com/ctlabs-oss/authcore/internal/http/middleware"
	"github.com/ctlabs-oss/authcore/internal/http/router"
	"github.com/ctlabs-oss/authcore/internal/notify"
	"github.com/ctlabs-oss/authcore/internal/observability"
	"github.com/ctlabs-oss/authcore/internal/repository"
	"github.com/ctlabs-oss/authcore/internal/security"
	"github.com/ctlabs-oss/authcore/internal/service"
)

// App holds the wired process. Construction fails fast: a bad config, an
// unreachable database or a miswired provider stops startup before the
// listener opens.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Server     *http.Server
	dispatcher *notify.Dispatcher
	cleaner    *service.Cleaner
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	if err := database.SeedAdmin(db, cfg, hasher); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	store := repository.NewStore(db)
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.JWTAccessTTL)
	tokens := service.NewTokenManager(cfg.RefreshTokenPepper, cfg.RefreshTokenTTL)
	codes := service.NewCodeManager(cfg.EmailCodeTTL, cfg.PhoneCodeTTL)

	mailSender := notify.NewMailSender(cfg, logger)
	phoneSender := notify.NewPhoneSender(cfg, logger)
	dispatcher := notify.NewDispatcher(mailSender, phoneSender, cfg.MailEnabled(), cfg.PhoneEnabled(), cfg.FrontendURL, logger)

	authSvc, err := service.NewAuthService(store, hasher, jwtMgr, tokens, codes, dispatcher,
		cfg.DefaultRole, cfg.PasswordPolicyRegex, logger)
	if err != nil {
		return nil, err
	}
	userSvc := service.NewUserService(store, logger)
	adminSvc := service.NewAdminService(store, logger)

	var avatarStorage service.AvatarStorage = service.NoopAvatarStorage{}
	if cfg.MinioEndpoint != "" {
		avatarStorage, err = service.NewMinioAvatarStorage(
			cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("avatar storage: %w", err)
		}
	}
	avatarSvc := service.NewAvatarService(store, avatarStorage, logger)

	var limiterBackend middleware.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiterBackend = middleware.NewRedisFixedWindowLimiter(client, "authcore:rl")
	} else {
		limiterBackend = middleware.NewLocalFixedWindowLimiter()
	}

	mux := router.New(router.Config{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc, avatarSvc),
		Admin:         handler.NewAdminHandler(adminSvc),
		Authenticator: middleware.NewAuthenticator(jwtMgr),
		AuthLimiter:   middleware.NewRateLimiter(limiterBackend, cfg.AuthRateLimitPerMin, time.Minute, middleware.FailClosed, "auth"),
		APILimiter:    middleware.NewRateLimiter(limiterBackend, cfg.APIRateLimitPerMin, time.Minute, middleware.FailClosed, "api"),
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleaner := service.NewCleaner(store, cfg.CleanupInterval, logger)
	cleaner.Start()

	return &App{Config: cfg, Logger: logger, Server: server, dispatcher: dispatcher, cleaner: cleaner}, nil
}

// Shutdown stops the listener, halts the cleanup sweep and waits for
// in-flight notification dispatches to finish.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	a.cleaner.Stop()
	a.dispatcher.Wait()
	return err
}

// RunMigrationOnly applies the schema and seeds the bootstrap admin, then
// exits. Used by the migrate subcommand and deploy jobs.
func RunMigrationOnly() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return database.SeedAdmin(db, cfg, security.NewBcryptHasher(cfg.BcryptCost))
}
