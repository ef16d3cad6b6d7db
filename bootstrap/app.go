// Package bootstrap wires configuration, storage, services and the HTTP
// server into a runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"morakib/api"
	"morakib/config"
	"morakib/core"
	"morakib/progress"
	"morakib/service"
	"morakib/storage"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// App represents the Morakib application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	DB    *storage.SQLite
	Cache *core.RedisCache

	Alerts         *storage.SQLiteAlertStorage
	Users          *storage.SQLiteUserStorage
	SOPs           *storage.SQLiteSOPStorage
	Metrics        *storage.SQLiteMetricStorage
	Investigations *storage.SQLiteInvestigationStorage
	Exports        *storage.SQLiteExportStorage

	InvestigationService *service.InvestigationService
	StatsService         *service.StatsService
	ExportService        *service.ExportService
	ProgressStore        progress.Store

	APIServer *api.API

	serverErrCh chan error
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := InitConfig()
	if err != nil {
		return nil, err
	}

	logger, sugar, err := InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sugar.Info("Morakib SOC backend starting...")

	if err := EnsureDataDirectories(cfg); err != nil {
		return nil, err
	}

	db, err := InitSQLite(cfg, sugar)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		Logger:      logger,
		Sugar:       sugar,
		DB:          db,
		serverErrCh: make(chan error, 1),
	}

	app.Alerts = storage.NewSQLiteAlertStorage(db, sugar)
	app.Users = storage.NewSQLiteUserStorage(db, sugar)
	app.SOPs = storage.NewSQLiteSOPStorage(db, sugar)
	app.Metrics = storage.NewSQLiteMetricStorage(db, sugar)
	app.Investigations = storage.NewSQLiteInvestigationStorage(db, sugar)
	app.Exports = storage.NewSQLiteExportStorage(db, sugar)

	app.Cache = InitRedis(cfg, sugar)
	irisClient := InitIRIS(cfg, sugar)

	policy := core.ResolutionPolicy{ClearOnReopen: cfg.Alerts.ClearResolvedOnReopen}
	app.InvestigationService = service.NewInvestigationService(
		db, app.Alerts, app.Users, app.Investigations, app.Metrics, policy, sugar)
	app.StatsService = service.NewStatsService(
		app.Alerts, app.Investigations, app.Metrics, app.SOPs, app.Cache, sugar)
	app.ExportService = service.NewExportService(app.Alerts, app.Exports, irisClient, sugar)

	local, err := progress.NewLocalStore(cfg.DataPaths.ProgressCacheDir, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize progress cache: %w", err)
	}
	remote := progress.NewRemoteStore(storage.NewSQLiteProgressStorage(db, sugar))
	app.ProgressStore = progress.NewCompositeStore(local, remote, sugar)

	if cfg.Auth.DemoMode {
		if err := app.ensureDemoAccount(); err != nil {
			sugar.Errorf("Failed to provision demo account: %v", err)
		}
	}

	app.APIServer = api.NewAPI(api.Deps{
		DB:             db,
		Alerts:         app.Alerts,
		Users:          app.Users,
		SOPs:           app.SOPs,
		Metrics:        app.Metrics,
		Investigations: app.InvestigationService,
		Stats:          app.StatsService,
		Exports:        app.ExportService,
		Progress:       app.ProgressStore,
	}, cfg, sugar)

	return app, nil
}

// ensureDemoAccount creates the demo login on first run in demo mode.
func (a *App) ensureDemoAccount() error {
	if _, err := a.Users.GetUserByEmail(a.Config.Auth.DemoEmail); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.Config.Auth.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	user := core.NewUser(a.Config.Auth.DemoEmail, "Demo Analyst")
	user.Role = core.UserRoleAnalystSenior
	user.PasswordHash = string(hash)
	if err := a.Users.CreateUser(user); err != nil {
		return err
	}
	a.Sugar.Infow("Demo account provisioned", "email", user.Email)
	return nil
}

// Start starts the API server.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.APIServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serverErrCh <- err
		}
	}()
	a.Sugar.Infow("API server started",
		"host", a.Config.API.Host,
		"port", a.Config.API.Port)
	return nil
}

// WaitForShutdown blocks until a shutdown signal or a fatal server error.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	select {
	case <-c:
		a.Sugar.Info("Shutdown signal received")
	case err := <-a.serverErrCh:
		a.Sugar.Errorf("API server failed: %v", err)
	}
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	timeout := time.Duration(a.Config.API.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.APIServer.Stop(ctx); err != nil {
		a.Sugar.Errorf("API server shutdown error: %v", err)
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Sugar.Errorf("Redis close error: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Sugar.Errorf("SQLite close error: %v", err)
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
