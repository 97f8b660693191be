package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/dbelyakov/realvista/internal/accounts"
	"github.com/dbelyakov/realvista/internal/app"
	iauth "github.com/dbelyakov/realvista/internal/auth"
	"github.com/dbelyakov/realvista/internal/handlers"
	"github.com/dbelyakov/realvista/internal/middleware"
	"github.com/dbelyakov/realvista/internal/services"
)

// Deps bundles the long-lived services the router mounts handlers on.
type Deps struct {
	DB       *gorm.DB
	JWT      *iauth.JWTService
	Login    *iauth.LoginService
	TOTP     *iauth.TOTPService
	Accounts *accounts.Service
	Audit    *services.AuditService
}

// NewRouter builds the Gin engine, wires middleware, and registers routes.
func NewRouter(cfg *app.Config, deps Deps) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.DB == nil || deps.JWT == nil || deps.Login == nil || deps.TOTP == nil || deps.Accounts == nil {
		return nil, fmt.Errorf("router dependencies are incomplete")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	// Public endpoints
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(deps.DB))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		r.GET(cfg.Monitoring.Prometheus.Endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler, err := handlers.NewAuthHandler(deps.Login, deps.TOTP, deps.Accounts, deps.Audit)
	if err != nil {
		return nil, err
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/2fa/verify", authHandler.VerifyTwoFactor)
	}

	// Protected routes
	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	adminHandler, err := handlers.NewAdminHandler(deps.Accounts, deps.TOTP, deps.Audit)
	if err != nil {
		return nil, err
	}

	admins := api.Group("/admins")
	{
		admins.GET("", adminHandler.List)
		admins.POST("", adminHandler.Create)
		admins.GET("/:id", adminHandler.Get)
		admins.PATCH("/:id", adminHandler.Update)
		admins.DELETE("/:id", adminHandler.Delete)
		admins.POST("/:id/unlock", adminHandler.Unlock)
		admins.POST("/:id/2fa/enroll", adminHandler.EnrollTwoFactor)
	}

	if deps.Audit != nil {
		auditHandler, err := handlers.NewAuditHandler(deps.Audit)
		if err != nil {
			return nil, err
		}
		api.GET("/audit", auditHandler.List)
	}

	return r, nil
}
