package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gatewarden/gatewarden/internal/api/routes"
	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/database"
	"github.com/gatewarden/gatewarden/internal/gateway"
	"github.com/gatewarden/gatewarden/internal/identity"
	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/metrics"
	"github.com/gatewarden/gatewarden/internal/notify"
	"github.com/gatewarden/gatewarden/internal/scheduler"
	"github.com/gatewarden/gatewarden/internal/server"
	"github.com/gatewarden/gatewarden/internal/store"
	"github.com/gatewarden/gatewarden/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	logDir := filepath.Join(filepath.Dir(cfg.DatabasePath), "logs")
	_ = os.MkdirAll(logDir, 0o755)
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "gatewarden.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(!cfg.IsProduction(), io.MultiWriter(os.Stdout, rotator))

	logger.WithFields(map[string]interface{}{"version": version.Full()}).Infof("starting %s", version.Name)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Log().WithError(err).Fatal("open database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Log().WithError(err).Fatal("migrate database")
	}

	routeStore := store.NewRouteStore(db)
	identityStore := store.NewIdentityStore(db)
	solvedStore := store.NewSolvedStore(db)
	stateStore := store.NewStateStore(db)
	settingsStore := store.NewSettingsStore(db)
	operatorStore := store.NewOperatorStore(db)

	auditLog := audit.NewLogger(db)
	verifier := auth.NewVerifier()
	notifier := notify.NewDispatcher(db)

	engine := challenge.NewEngine(&challenge.Deps{
		State:     stateStore,
		Solved:    solvedStore,
		Operators: operatorStore,
		Verifier:  verifier,
		Notifier:  notifier,
		Audit:     auditLog,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		Now:       time.Now,
	})

	resolver := identity.NewResolver(
		identityStore,
		cfg.CookieSecret,
		time.Duration(cfg.CookieTTLHours)*time.Hour,
		cfg.BaseDomain,
		cfg.IsProduction(),
	)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	gin.SetMode(gin.ReleaseMode)
	if !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	}
	adminEngine := gin.New()
	adminEngine.Use(gin.Logger(), gin.Recovery())
	routes.Register(adminEngine, cfg, routes.Deps{
		Routes:     routeStore,
		Identities: identityStore,
		Settings:   settingsStore,
		Operators:  operatorStore,
		Audit:      auditLog,
		Verifier:   verifier,
		Registry:   registry,
	})

	gw := gateway.New(cfg, routeStore, settingsStore, resolver, engine, adminEngine)
	gatewayEngines := make(map[int]*gin.Engine, len(cfg.GatewayPorts))
	for _, port := range cfg.GatewayPorts {
		gatewayEngines[port] = gw.Router(port)
	}

	retention := scheduler.NewRetention(identityStore, cfg.IdentityRetentionDays)
	if err := retention.Start(); err != nil {
		logger.Log().WithError(err).Fatal("start retention job")
	}
	defer retention.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, adminEngine, gatewayEngines)
	if err := srv.Run(ctx); err != nil {
		logger.Log().WithError(err).Fatal("server error")
	}
}
