package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dbelyakov/realvista/internal/accounts"
	"github.com/dbelyakov/realvista/internal/api"
	"github.com/dbelyakov/realvista/internal/app"
	"github.com/dbelyakov/realvista/internal/app/maintenance"
	iauth "github.com/dbelyakov/realvista/internal/auth"
	"github.com/dbelyakov/realvista/internal/database"
	"github.com/dbelyakov/realvista/internal/services"
	"github.com/dbelyakov/realvista/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	repo, err := accounts.NewRepository(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise account repository: %w", err)
	}

	accountSvc, err := accounts.NewService(repo)
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	loginSvc, err := iauth.NewLoginService(repo, jwtSvc, cfg.Auth.LoginServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise login service: %w", err)
	}

	encryptionKey, err := app.DecodeKey(cfg.Auth.TOTP.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode totp encryption key: %w", err)
	}

	totpSvc, err := iauth.NewTOTPService(repo, encryptionKey, iauth.WithIssuer(cfg.Auth.TOTP.Issuer))
	if err != nil {
		return nil, fmt.Errorf("initialise totp service: %w", err)
	}

	var auditSvc *services.AuditService
	if cfg.Audit.Enabled {
		auditSvc, err = services.NewAuditService(stack.DB)
		if err != nil {
			return nil, fmt.Errorf("initialise audit service: %w", err)
		}

		stack.Cleaner = maintenance.NewCleaner(auditSvc,
			maintenance.WithRetentionDays(cfg.Audit.RetentionDays),
			maintenance.WithSchedule(cfg.Audit.CleanupSchedule),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(cfg, api.Deps{
		DB:       stack.DB,
		JWT:      jwtSvc,
		Login:    loginSvc,
		TOTP:     totpSvc,
		Accounts: accountSvc,
		Audit:    auditSvc,
	})
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
		// Wait for any in-flight sweep before closing the database.
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
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
