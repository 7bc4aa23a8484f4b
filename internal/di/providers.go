package di

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"user-admin-service/internal/app"
	"user-admin-service/internal/config"
	"user-admin-service/internal/database"
	"user-admin-service/internal/http/handler"
	"user-admin-service/internal/http/middleware"
	"user-admin-service/internal/http/router"
	"user-admin-service/internal/observability"
	"user-admin-service/internal/repository"
	"user-admin-service/internal/security"
	"user-admin-service/internal/service"
)

var (
	ConfigSet        = wire.NewSet(config.Load)
	ObservabilitySet = wire.NewSet(provideLogger)
	RuntimeInfraSet  = wire.NewSet(provideOpenDB, database.OpenRedis, provideLimiter)
	RepositorySet    = wire.NewSet(repository.NewUserRepository, repository.NewLoginEventRepository)
	SecuritySet      = wire.NewSet(provideJWTManager, provideCookieManager)
	ServiceSet       = wire.NewSet(provideNotifier, provideAuthService, service.NewUserAdminService)
	HTTPSet          = wire.NewSet(handler.NewAuthHandler, handler.NewUserHandler, provideRouterDependencies, provideRouterHandler, provideHTTPServer)
	AppSet           = wire.NewSet(app.New)
)

func provideLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(cfg.LogLevel)
}

// provideOpenDB opens the database and applies the schema. Migrations also
// run here so a fresh deployment serves without a separate migrate step.
func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideLimiter(client redis.UniversalClient) middleware.Limiter {
	if client == nil {
		return middleware.NewLocalFixedWindowLimiter()
	}
	return middleware.NewRedisLimiter(client, "rl")
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func provideNotifier(logger *slog.Logger) service.EmailVerificationNotifier {
	return service.NewLogEmailVerificationNotifier(logger)
}

func provideAuthService(
	users repository.UserRepository,
	logins repository.LoginEventRepository,
	jwtMgr *security.JWTManager,
	notifier service.EmailVerificationNotifier,
	logger *slog.Logger,
	cfg *config.Config,
) *service.AuthService {
	return service.NewAuthService(
		users,
		logins,
		jwtMgr,
		notifier,
		logger,
		cfg.JWTAccessTTL,
		cfg.JWTRefreshTTL,
		cfg.RefreshTokenPepper,
		cfg.VerificationTokenTTL,
		cfg.FrontendURL,
	)
}

func provideRouterDependencies(
	logger *slog.Logger,
	authH *handler.AuthHandler,
	userH *handler.UserHandler,
	jwtMgr *security.JWTManager,
	cookies *security.CookieManager,
	authSvc *service.AuthService,
	limiter middleware.Limiter,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		Logger:            logger,
		AuthHandler:       authH,
		UserHandler:       userH,
		JWTManager:        jwtMgr,
		Cookies:           cookies,
		AuthService:       authSvc,
		Limiter:           limiter,
		CORSOrigins:           cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:      cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:       cfg.APIRateLimitPerMin,
		RateLimitFailOpen:     cfg.RateLimitFailOpen,
		RateLimitTrustedCIDRs: cfg.RateLimitTrustedCIDRs,
	}
}

func provideRouterHandler(dep router.Dependencies) http.Handler {
	return router.New(dep)
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// MigrationRunner applies the schema and exits; used by the migrate
// subcommand.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (r *MigrationRunner) Run() error {
	return database.Migrate(r.db)
}
