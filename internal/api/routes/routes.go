package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatewarden/gatewarden/internal/api/handlers"
	"github.com/gatewarden/gatewarden/internal/api/middleware"
	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/store"
)

// Deps are the shared components the admin API operates on.
type Deps struct {
	Routes     *store.RouteStore
	Identities *store.IdentityStore
	Settings   *store.SettingsStore
	Operators  *store.OperatorStore
	Audit      *audit.Logger
	Verifier   auth.Verifier
	Registry   *prometheus.Registry
}

// Register wires up the admin API routes.
func Register(router *gin.Engine, cfg config.Config, deps Deps) {
	router.GET("/api/v1/health", handlers.HealthHandler)

	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.RequestID())

	authHandler := handlers.NewAuthHandler(deps.Operators, deps.Verifier, deps.Audit, cfg.CookieSecret)
	api.POST("/auth/login", authHandler.Login)

	routeHandler := handlers.NewRouteHandler(deps.Routes, deps.Audit)
	clientHandler := handlers.NewClientHandler(deps.Identities, deps.Audit)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Audit)
	auditHandler := handlers.NewAuditHandler(deps.Audit)

	protected := api.Group("/")
	protected.Use(middleware.AuthRequired(cfg.CookieSecret))
	{
		protected.GET("/routes", routeHandler.List)
		protected.POST("/routes", routeHandler.Create)
		protected.PUT("/routes/:id", routeHandler.Update)
		protected.DELETE("/routes/:id", routeHandler.Delete)
		protected.POST("/steps/:id/regenerate-solved-id", routeHandler.RegenerateSolvedID)
		protected.GET("/challenge-types", routeHandler.ChallengeTypes)

		protected.GET("/clients", clientHandler.List)
		protected.POST("/clients/:id/block", clientHandler.Block)
		protected.POST("/clients/:id/unblock", clientHandler.Unblock)

		protected.GET("/settings/forwarding", settingsHandler.GetForwarding)
		protected.PUT("/settings/forwarding", settingsHandler.SetForwarding)

		protected.GET("/audit", auditHandler.List)
	}
}
