package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/api"
	"github.com/Goodness5/Vortexis-Backend/internal/app"
	"github.com/Goodness5/Vortexis-Backend/internal/app/maintenance"
	iauth "github.com/Goodness5/Vortexis-Backend/internal/auth"
	"github.com/Goodness5/Vortexis-Backend/internal/auth/social"
	"github.com/Goodness5/Vortexis-Backend/internal/cache"
	"github.com/Goodness5/Vortexis-Backend/internal/database"
	"github.com/Goodness5/Vortexis-Backend/pkg/logger"
	"github.com/Goodness5/Vortexis-Backend/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Redis    *cache.RedisStore
	Services *api.Services
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	var store cache.Store = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
			stack.Redis = nil
		} else {
			store = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := initialiseMailer(cfg, log)
	if err != nil {
		return nil, err
	}

	resolvers, err := initialiseSocialResolvers(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := api.Dependencies{
		DB:     stack.DB,
		Config: cfg,
		JWT:    jwtSvc,
		Cache:  store,
		Mailer: mailer,
		Social: resolvers,
	}
	stack.Services, err = api.NewServices(deps)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(stack.DB,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
			maintenance.WithNotificationRetentionDays(cfg.Maintenance.NotificationRetentionDays),
			maintenance.WithNotifications(stack.Services.Notifications),
			maintenance.WithAudit(stack.Services.Audit),
			maintenance.WithCache(dbStore),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(deps, stack.Services)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Services != nil && s.Services.Notifications != nil {
		s.Services.Notifications.Wait()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	driver := strings.ToLower(strings.TrimSpace(dbCfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	log.Info("database connected", zap.String("driver", driver))

	return db, nil
}

// initialiseMailer returns nil when SMTP is disabled; services then skip
// email delivery.
func initialiseMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	if !cfg.Email.SMTP.Enabled {
		log.Info("smtp disabled; email delivery is off")
		return nil, nil
	}
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	return mailer, nil
}

// initialiseSocialResolvers enables each provider whose credentials are configured.
func initialiseSocialResolvers(ctx context.Context, cfg *app.Config) (map[string]social.Resolver, error) {
	settings := cfg.Auth.Social
	resolvers := make(map[string]social.Resolver)

	if id := strings.TrimSpace(settings.GoogleClientID); id != "" {
		google, err := social.NewGoogleVerifier(ctx, social.GoogleOptions{ClientID: id})
		if err != nil {
			return nil, fmt.Errorf("initialise google sign-in: %w", err)
		}
		resolvers[social.ProviderGoogle] = google
	}

	if strings.TrimSpace(settings.GitHubClientID) != "" && strings.TrimSpace(settings.GitHubClientSecret) != "" {
		github, err := social.NewGitHubExchanger(social.GitHubOptions{
			ClientID:     settings.GitHubClientID,
			ClientSecret: settings.GitHubClientSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise github sign-in: %w", err)
		}
		resolvers[social.ProviderGitHub] = github
	}

	return resolvers, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
