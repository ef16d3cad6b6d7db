package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"morakib/config"
	"morakib/core"
	"morakib/progress"
	"morakib/service"
	"morakib/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type apiTestEnv struct {
	api    *API
	cfg    *config.Config
	db     *storage.SQLite
	alerts *storage.SQLiteAlertStorage
	users  *storage.SQLiteUserStorage

	analyst *core.User
	lead    *core.User
}

func newTestAPI(t *testing.T) *apiTestEnv {
	t.Helper()
	logger := zap.NewNop().Sugar()

	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	alerts := storage.NewSQLiteAlertStorage(db, logger)
	users := storage.NewSQLiteUserStorage(db, logger)
	sops := storage.NewSQLiteSOPStorage(db, logger)
	analystMetrics := storage.NewSQLiteMetricStorage(db, logger)
	investigations := storage.NewSQLiteInvestigationStorage(db, logger)
	exports := storage.NewSQLiteExportStorage(db, logger)
	progressStorage := storage.NewSQLiteProgressStorage(db, logger)

	cfg := &config.Config{}
	cfg.API.Host = "127.0.0.1"
	cfg.API.Port = 8080
	cfg.API.CORSOrigins = []string{"*"}
	cfg.API.RateLimitRPS = 1000
	cfg.API.RateLimitBurst = 1000
	cfg.Auth.TokenTTLMinutes = 60
	cfg.Auth.DemoMode = true
	cfg.Auth.DemoPassword = "demo1234"

	local, err := progress.NewLocalStore(t.TempDir(), logger)
	require.NoError(t, err)
	progressStore := progress.NewCompositeStore(local, progress.NewRemoteStore(progressStorage), logger)

	investigationSvc := service.NewInvestigationService(
		db, alerts, users, investigations, analystMetrics, core.DefaultResolutionPolicy, logger)
	statsSvc := service.NewStatsService(alerts, investigations, analystMetrics, sops, nil, logger)
	exportSvc := service.NewExportService(alerts, exports, nil, logger)

	a := NewAPI(Deps{
		DB:             db,
		Alerts:         alerts,
		Users:          users,
		SOPs:           sops,
		Metrics:        analystMetrics,
		Investigations: investigationSvc,
		Stats:          statsSvc,
		Exports:        exportSvc,
		Progress:       progressStore,
	}, cfg, logger)

	env := &apiTestEnv{api: a, cfg: cfg, db: db, alerts: alerts, users: users}
	env.analyst = env.seedUser(t, "amina@morakib.local", "Amina", core.UserRoleAnalystJunior)
	env.lead = env.seedUser(t, "karim@morakib.local", "Karim", core.UserRoleLead)
	return env
}

func (env *apiTestEnv) seedUser(t *testing.T, email, name string, role core.UserRole) *core.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := core.NewUser(email, name)
	user.Role = role
	user.PasswordHash = string(hash)
	require.NoError(t, env.users.CreateUser(user))
	return user
}

func (env *apiTestEnv) token(t *testing.T, user *core.User) string {
	t.Helper()
	token, err := generateJWT(user, env.cfg.JWTSecret(), time.Hour)
	require.NoError(t, err)
	return token
}

func (env *apiTestEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealthCheck(t *testing.T) {
	env := newTestAPI(t)
	rec := env.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_Success(t *testing.T) {
	env := newTestAPI(t)

	rec := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "amina@morakib.local",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[loginResponse](t, rec)
	assert.NotEmpty(t, resp.Token)

	claims, err := validateJWT(resp.Token, env.cfg.JWTSecret())
	require.NoError(t, err)
	assert.Equal(t, env.analyst.ID, claims.Subject)
	assert.Equal(t, core.UserRoleAnalystJunior, claims.Role)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestAPI(t)

	rec := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "amina@morakib.local",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_UnknownUserSameError(t *testing.T) {
	env := newTestAPI(t)

	rec := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@morakib.local",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "invalid credentials", resp.Error)
}

func TestAuthRequired(t *testing.T) {
	env := newTestAPI(t)

	rec := env.request(t, http.MethodGet, "/api/alerts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/alerts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMe(t *testing.T) {
	env := newTestAPI(t)

	rec := env.request(t, http.MethodGet, "/api/auth/me", env.token(t, env.analyst), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	user := decodeBody[core.User](t, rec)
	assert.Equal(t, env.analyst.ID, user.ID)
	assert.Equal(t, "amina@morakib.local", user.Email)
}

func TestUpdateOwnProfile(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	rec := env.request(t, http.MethodPut, "/api/users/me", token, map[string]string{
		"name":       "Amina El Fassi",
		"avatar_url": "https://cdn.morakib.local/avatars/amina.png",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[core.User](t, rec)
	assert.Equal(t, "Amina El Fassi", updated.Name)
	assert.Equal(t, "https://cdn.morakib.local/avatars/amina.png", updated.AvatarURL)

	// Empty name is rejected
	rec = env.request(t, http.MethodPut, "/api/users/me", token, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Role is untouched by self-service updates
	rec = env.request(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.UserRoleAnalystJunior, decodeBody[core.User](t, rec).Role)
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	// Create
	rec := env.request(t, http.MethodPost, "/api/alerts", token, map[string]interface{}{
		"title":     "SSH brute force from 185.234.219.34",
		"severity":  "HIGH",
		"source":    "SURICATA",
		"source_ip": "185.234.219.34",
		"dest_ip":   "10.0.0.12",
		"dest_port": 22,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[core.Alert](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, core.AlertStatusNew, created.Status)

	// Get
	rec = env.request(t, http.MethodGet, "/api/alerts/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// List with filter
	rec = env.request(t, http.MethodGet, "/api/alerts?severity=HIGH", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[PaginationResponse](t, rec)
	assert.Equal(t, int64(1), page.Total)

	// Self-assign
	rec = env.request(t, http.MethodPost, "/api/alerts/"+created.ID+"/assign", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assigned := decodeBody[core.Alert](t, rec)
	assert.Equal(t, env.analyst.ID, assigned.AssignedToID)
	assert.Equal(t, core.AlertStatusAssigned, assigned.Status)

	// Resolve via PATCH stamps the resolution time
	rec = env.request(t, http.MethodPatch, "/api/alerts/"+created.ID, token, map[string]string{
		"status": "RESOLVED",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decodeBody[core.Alert](t, rec)
	assert.Equal(t, core.AlertStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	// Delete
	rec = env.request(t, http.MethodDelete, "/api/alerts/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/alerts/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAlert_InvalidPayload(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	rec := env.request(t, http.MethodPost, "/api/alerts", token, map[string]string{
		"title": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/alerts", token, map[string]string{
		"title":    "valid title",
		"severity": "BOGUS",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitInvestigationOverHTTP(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	alert := core.NewAlert("Beaconing to known C2")
	alert.Severity = core.AlertSeverityCritical
	require.NoError(t, env.alerts.CreateAlert(alert))

	rec := env.request(t, http.MethodPost, "/api/alerts/"+alert.ID+"/investigate", token, map[string]interface{}{
		"findings":           "Periodic 60s callbacks to 203.0.113.7, confirmed malicious",
		"conclusion":         "TRUE_POSITIVE",
		"actions_taken":      []string{"Isolated host", "Blocked destination IP"},
		"time_spent_minutes": 45,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	result := decodeBody[service.SubmitResult](t, rec)
	assert.Equal(t, core.AlertStatusEscalated, result.Alert.Status)
	assert.Equal(t, env.analyst.ID, result.Investigation.AnalystID)

	rec = env.request(t, http.MethodGet, "/api/alerts/"+alert.ID+"/investigations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	investigations := decodeBody[[]core.Investigation](t, rec)
	require.Len(t, investigations, 1)

	// Alert detail embeds the investigation history
	rec = env.request(t, http.MethodGet, "/api/alerts/"+alert.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[alertDetailResponse](t, rec)
	require.Len(t, detail.Investigations, 1)
	assert.Equal(t, env.analyst.ID, detail.Investigations[0].AnalystID)
}

func TestSubmitInvestigation_UnknownAlert(t *testing.T) {
	env := newTestAPI(t)

	rec := env.request(t, http.MethodPost, "/api/alerts/no-such-alert/investigate",
		env.token(t, env.analyst), map[string]string{"findings": "nothing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSOPLifecycleOverHTTP(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	rec := env.request(t, http.MethodPost, "/api/sops", token, map[string]interface{}{
		"title":    "Lateral Movement Triage",
		"category": "ENDPOINT",
		"checklist": []map[string]interface{}{
			{"id": "c1", "text": "Review authentication logs", "required": true},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[core.SOP](t, rec)
	assert.Equal(t, "lateral-movement-triage", created.Slug)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, env.analyst.ID, created.CreatedByID)

	// Same title collides on slug
	rec = env.request(t, http.MethodPost, "/api/sops", token, map[string]string{
		"title": "Lateral Movement Triage",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Fetch by slug
	rec = env.request(t, http.MethodGet, "/api/sops/lateral-movement-triage", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Update bumps version
	rec = env.request(t, http.MethodPut, "/api/sops/"+created.ID, token, map[string]string{
		"content_markdown": "## Triage\nStart with the DC logs.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[core.SOP](t, rec)
	assert.Equal(t, 2, updated.Version)

	rec = env.request(t, http.MethodDelete, "/api/sops/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSOPTemplates(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	rec := env.request(t, http.MethodGet, "/api/sop-templates", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	templates := decodeBody[[]core.SOPTemplate](t, rec)
	require.NotEmpty(t, templates)

	rec = env.request(t, http.MethodGet, "/api/sop-templates/"+templates[0].Slug, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/sop-templates/no-such-template", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSOPProgressRoundTrip(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	// Nothing saved yet: empty default, not an error
	rec := env.request(t, http.MethodGet, "/api/sop-progress/ssh-brute-force-triage", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	initial := decodeBody[core.SOPProgress](t, rec)
	assert.Equal(t, 1, initial.ActiveStep)
	assert.Equal(t, 0, initial.CompletionPercentage)

	rec = env.request(t, http.MethodPost, "/api/sop-progress/ssh-brute-force-triage", token, map[string]interface{}{
		"checklist_state": map[string]map[string]bool{
			"step-1": {"c1": true, "c2": false},
		},
		"active_step":     2,
		"elapsed_seconds": 120,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decodeBody[core.SOPProgress](t, rec)
	assert.Equal(t, 50, saved.CompletionPercentage)

	rec = env.request(t, http.MethodGet, "/api/sop-progress/ssh-brute-force-triage", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loaded := decodeBody[core.SOPProgress](t, rec)
	assert.Equal(t, 2, loaded.ActiveStep)
	assert.Equal(t, 120, loaded.ElapsedSeconds)

	// Reset, then the default state comes back
	rec = env.request(t, http.MethodDelete, "/api/sop-progress/ssh-brute-force-triage", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/sop-progress/ssh-brute-force-triage", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reset := decodeBody[core.SOPProgress](t, rec)
	assert.Equal(t, 0, reset.CompletionPercentage)
}

func TestExportAlert_MockMode(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	alert := core.NewAlert("Phishing email with credential harvester")
	require.NoError(t, env.alerts.CreateAlert(alert))

	rec := env.request(t, http.MethodPost, "/api/alerts/"+alert.ID+"/export-iris", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[service.ExportResult](t, rec)
	assert.True(t, result.Success)
	assert.True(t, result.Mock)
	assert.Contains(t, result.Case.SOCID, "MOK-")

	rec = env.request(t, http.MethodGet, "/api/alerts/"+alert.ID+"/exports", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decodeBody[[]storage.ExportRecord](t, rec)
	require.Len(t, records, 1)
	assert.True(t, records[0].Mock)
	assert.Equal(t, env.analyst.ID, records[0].ExportedBy)
}

func TestDashboardStatsOverHTTP(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	for i := 0; i < 3; i++ {
		alert := core.NewAlert(fmt.Sprintf("alert %d", i))
		require.NoError(t, env.alerts.CreateAlert(alert))
	}

	rec := env.request(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeBody[service.DashboardStats](t, rec)
	assert.Equal(t, int64(3), stats.TotalAlerts)
	assert.Equal(t, int64(3), stats.OpenAlerts)
}

func TestUserManagementRBAC(t *testing.T) {
	env := newTestAPI(t)
	payload := map[string]string{
		"email":    "new@morakib.local",
		"name":     "New Analyst",
		"password": "s3cret-enough",
	}

	// Junior analysts cannot create accounts
	rec := env.request(t, http.MethodPost, "/api/users", env.token(t, env.analyst), payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Leads can
	rec = env.request(t, http.MethodPost, "/api/users", env.token(t, env.lead), payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[core.User](t, rec)
	assert.Equal(t, core.UserRoleAnalystJunior, created.Role)

	// Duplicate email conflicts
	rec = env.request(t, http.MethodPost, "/api/users", env.token(t, env.lead), payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUserMetricsEndpoint(t *testing.T) {
	env := newTestAPI(t)
	token := env.token(t, env.analyst)

	alert := core.NewAlert("DNS tunneling suspect")
	require.NoError(t, env.alerts.CreateAlert(alert))

	rec := env.request(t, http.MethodPost, "/api/alerts/"+alert.ID+"/investigate", token, map[string]interface{}{
		"findings":           "High-entropy subdomains, confirmed exfil",
		"conclusion":         "TRUE_POSITIVE",
		"time_spent_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/users/"+env.analyst.ID+"/metrics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[userMetricsResponse](t, rec)
	require.Len(t, resp.Metrics, 1)
	assert.Equal(t, 1, resp.Metrics[0].AlertsProcessed)
	assert.Equal(t, 1, resp.Metrics[0].TruePositives)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/alerts", nil)
	req.Header.Set("Origin", "http://dashboard.morakib.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://dashboard.morakib.local", rec.Header().Get("Access-Control-Allow-Origin"))
}
