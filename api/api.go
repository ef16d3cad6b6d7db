// Package api Morakib SOC API
//
//	@title			Morakib SOC API
//	@version		1.0
//	@description	API for the Morakib SOC analyst dashboard: alerts, investigations, SOPs, and IRIS export
//
// @host		localhost:8080
// @BasePath	/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Enter "Bearer <token>"
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"morakib/config"
	"morakib/progress"
	"morakib/service"
	"morakib/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// API holds the HTTP server and its dependencies
type API struct {
	router  *mux.Router
	handler http.Handler
	server  *http.Server

	alertStorage  *storage.SQLiteAlertStorage
	userStorage   *storage.SQLiteUserStorage
	sopStorage    *storage.SQLiteSOPStorage
	metricStorage *storage.SQLiteMetricStorage

	investigations *service.InvestigationService
	stats          *service.StatsService
	exports        *service.ExportService
	progressStore  progress.Store

	db        *storage.SQLite
	config    *config.Config
	jwtSecret []byte
	logger    *zap.SugaredLogger
}

// Deps bundles everything the API server needs
type Deps struct {
	DB             *storage.SQLite
	Alerts         *storage.SQLiteAlertStorage
	Users          *storage.SQLiteUserStorage
	SOPs           *storage.SQLiteSOPStorage
	Metrics        *storage.SQLiteMetricStorage
	Investigations *service.InvestigationService
	Stats          *service.StatsService
	Exports        *service.ExportService
	Progress       progress.Store
}

// NewAPI creates a new API server
func NewAPI(deps Deps, cfg *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		router:         mux.NewRouter(),
		db:             deps.DB,
		alertStorage:   deps.Alerts,
		userStorage:    deps.Users,
		sopStorage:     deps.SOPs,
		metricStorage:  deps.Metrics,
		investigations: deps.Investigations,
		stats:          deps.Stats,
		exports:        deps.Exports,
		progressStore:  deps.Progress,
		config:         cfg,
		jwtSecret:      cfg.JWTSecret(),
		logger:         logger,
	}
	api.setupRoutes()
	// CORS wraps the router so preflight OPTIONS requests are answered even
	// when no route matches the method
	api.handler = api.corsMiddleware(api.router)
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.loggingMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
	a.router.HandleFunc("/api/auth/login", a.login).Methods("POST")

	// Everything below requires a session
	authed := a.router.PathPrefix("/api").Subrouter()
	authed.Use(a.authMiddleware)

	authed.HandleFunc("/auth/me", a.currentUser).Methods("GET")

	authed.HandleFunc("/alerts", a.listAlerts).Methods("GET")
	authed.HandleFunc("/alerts", a.createAlert).Methods("POST")
	authed.HandleFunc("/alerts/{id}", a.getAlert).Methods("GET")
	authed.HandleFunc("/alerts/{id}", a.updateAlert).Methods("PUT", "PATCH")
	authed.HandleFunc("/alerts/{id}", a.deleteAlert).Methods("DELETE")
	authed.HandleFunc("/alerts/{id}/assign", a.assignAlert).Methods("POST")
	authed.HandleFunc("/alerts/{id}/investigate", a.submitInvestigation).Methods("POST")
	authed.HandleFunc("/alerts/{id}/investigations", a.listInvestigations).Methods("GET")
	authed.HandleFunc("/alerts/{id}/export-iris", a.exportAlert).Methods("POST")
	authed.HandleFunc("/alerts/{id}/exports", a.listExports).Methods("GET")

	authed.HandleFunc("/sops", a.listSOPs).Methods("GET")
	authed.HandleFunc("/sops", a.createSOP).Methods("POST")
	authed.HandleFunc("/sops/{id}", a.getSOP).Methods("GET")
	authed.HandleFunc("/sops/{id}", a.updateSOP).Methods("PUT")
	authed.HandleFunc("/sops/{id}", a.deleteSOP).Methods("DELETE")
	authed.HandleFunc("/sop-templates", a.listSOPTemplates).Methods("GET")
	authed.HandleFunc("/sop-templates/{slug}", a.getSOPTemplate).Methods("GET")

	authed.HandleFunc("/sop-progress/{slug}", a.getSOPProgress).Methods("GET")
	authed.HandleFunc("/sop-progress/{slug}", a.saveSOPProgress).Methods("POST")
	authed.HandleFunc("/sop-progress/{slug}", a.clearSOPProgress).Methods("DELETE")

	authed.HandleFunc("/users", a.listUsers).Methods("GET")
	authed.HandleFunc("/users/me", a.currentUser).Methods("GET")
	authed.HandleFunc("/users/me", a.updateOwnProfile).Methods("PUT")
	authed.HandleFunc("/users/{id}", a.getUser).Methods("GET")
	authed.HandleFunc("/users/{id}/metrics", a.getUserMetrics).Methods("GET")

	admin := authed.NewRoute().Subrouter()
	admin.Use(a.requireRole("LEAD", "ADMIN"))
	admin.HandleFunc("/users", a.createUser).Methods("POST")
	admin.HandleFunc("/users/{id}", a.updateUser).Methods("PUT")
	admin.HandleFunc("/users/{id}", a.deleteUser).Methods("DELETE")

	authed.HandleFunc("/stats", a.getDashboardStats).Methods("GET")
}

// Start starts the API server and blocks until it exits
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.config.API.Host, a.config.API.Port),
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	a.logger.Infow("Starting API server", "addr", a.server.Addr)
	return a.server.ListenAndServe()
}

// Stop gracefully shuts down the API server
func (a *API) Stop(ctx context.Context) error {
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the full middleware chain for tests
func (a *API) Handler() http.Handler {
	return a.handler
}

// healthCheck godoc
//
//	@Summary	Health check
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/health [get]
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.db.HealthCheck(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, a.logger)
}
