package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"morakib/core"
	"morakib/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	db             *storage.SQLite
	alerts         *storage.SQLiteAlertStorage
	users          *storage.SQLiteUserStorage
	investigations *storage.SQLiteInvestigationStorage
	analystMetrics *storage.SQLiteMetricStorage
	sops           *storage.SQLiteSOPStorage
	svc            *InvestigationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop().Sugar()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:             db,
		alerts:         storage.NewSQLiteAlertStorage(db, logger),
		users:          storage.NewSQLiteUserStorage(db, logger),
		investigations: storage.NewSQLiteInvestigationStorage(db, logger),
		analystMetrics: storage.NewSQLiteMetricStorage(db, logger),
		sops:           storage.NewSQLiteSOPStorage(db, logger),
	}
	env.svc = NewInvestigationService(
		db, env.alerts, env.users, env.investigations, env.analystMetrics,
		core.DefaultResolutionPolicy, logger)
	return env
}

func (env *testEnv) seedAnalyst(t *testing.T, email string) *core.User {
	t.Helper()
	user := core.NewUser(email, "Analyst "+email)
	require.NoError(t, env.users.CreateUser(user))
	return user
}

func (env *testEnv) seedAlert(t *testing.T, title string) *core.Alert {
	t.Helper()
	alert := core.NewAlert(title)
	alert.Status = core.AlertStatusInvestigating
	require.NoError(t, env.alerts.CreateAlert(alert))
	return alert
}

func TestInvestigationService_SubmitTruePositive(t *testing.T) {
	env := newTestEnv(t)
	analyst := env.seedAnalyst(t, "tp@example.com")
	alert := env.seedAlert(t, "cobalt strike beacon")

	result, err := env.svc.Submit(context.Background(), SubmitRequest{
		AlertID:          alert.ID,
		AnalystID:        analyst.ID,
		Findings:         "confirmed beaconing to known C2",
		Conclusion:       core.ConclusionTruePositive,
		ActionsTaken:     []string{"isolated host"},
		TimeSpentMinutes: 40,
	})
	require.NoError(t, err)

	assert.Equal(t, core.AlertStatusEscalated, result.Alert.Status)
	assert.Equal(t, core.ConclusionTruePositive, result.Alert.LastConclusion)
	assert.Nil(t, result.Alert.ResolvedAt)
	require.NotNil(t, result.Investigation.CompletedAt)

	stored, err := env.alerts.GetAlert(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, core.AlertStatusEscalated, stored.Status)
	assert.Equal(t, analyst.ID, stored.AssignedToID)

	m, err := env.analystMetrics.GetMetric(analyst.ID, core.MetricDay(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, m.AlertsProcessed)
	assert.Equal(t, 1, m.TruePositives)
	assert.InDelta(t, 40, m.AvgResolutionTimeMin, 0.001)
}

func TestInvestigationService_SubmitFalsePositiveSetsResolvedAt(t *testing.T) {
	env := newTestEnv(t)
	analyst := env.seedAnalyst(t, "fp@example.com")
	alert := env.seedAlert(t, "vulnerability scanner noise")

	result, err := env.svc.Submit(context.Background(), SubmitRequest{
		AlertID:          alert.ID,
		AnalystID:        analyst.ID,
		Findings:         "internal scanner, expected traffic",
		Conclusion:       core.ConclusionFalsePositive,
		TimeSpentMinutes: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, core.AlertStatusFalsePositive, result.Alert.Status)
	require.NotNil(t, result.Alert.ResolvedAt)
}

func TestInvestigationService_SecondSubmissionIncrementsMetric(t *testing.T) {
	env := newTestEnv(t)
	analyst := env.seedAnalyst(t, "two@example.com")
	first := env.seedAlert(t, "first alert")
	second := env.seedAlert(t, "second alert")

	_, err := env.svc.Submit(context.Background(), SubmitRequest{
		AlertID: first.ID, AnalystID: analyst.ID,
		Conclusion: core.ConclusionTruePositive, TimeSpentMinutes: 30,
	})
	require.NoError(t, err)

	_, err = env.svc.Submit(context.Background(), SubmitRequest{
		AlertID: second.ID, AnalystID: analyst.ID,
		Conclusion: core.ConclusionFalsePositive, TimeSpentMinutes: 10,
	})
	require.NoError(t, err)

	m, err := env.analystMetrics.GetMetric(analyst.ID, core.MetricDay(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 2, m.AlertsProcessed)
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.FalsePositives)
	// Stored average keeps the seed value from the first submission.
	assert.InDelta(t, 30, m.AvgResolutionTimeMin, 0.001)
}

func TestInvestigationService_SubmitUnknownAlertLeavesNoState(t *testing.T) {
	env := newTestEnv(t)
	analyst := env.seedAnalyst(t, "ghost@example.com")

	_, err := env.svc.Submit(context.Background(), SubmitRequest{
		AlertID:    "no-such-alert",
		AnalystID:  analyst.ID,
		Conclusion: core.ConclusionTruePositive,
	})
	require.ErrorIs(t, err, storage.ErrAlertNotFound)

	_, err = env.analystMetrics.GetMetric(analyst.ID, core.MetricDay(time.Now()))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInvestigationService_SubmitUnknownAnalystRollsBack(t *testing.T) {
	env := newTestEnv(t)
	alert := env.seedAlert(t, "orphan submission")

	_, err := env.svc.Submit(context.Background(), SubmitRequest{
		AlertID:    alert.ID,
		AnalystID:  "no-such-analyst",
		Conclusion: core.ConclusionTruePositive,
	})
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	// The alert must be untouched and no investigation recorded.
	stored, err := env.alerts.GetAlert(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, core.AlertStatusInvestigating, stored.Status)

	list, err := env.investigations.ListByAlert(alert.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInvestigationService_SubmitWithoutConclusionKeepsInvestigating(t *testing.T) {
	env := newTestEnv(t)
	analyst := env.seedAnalyst(t, "wip@example.com")
	alert := env.seedAlert(t, "still digging")

	result, err := env.svc.Submit(context.Background(), SubmitRequest{
		AlertID:          alert.ID,
		AnalystID:        analyst.ID,
		Findings:         "needs more telemetry",
		TimeSpentMinutes: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, core.AlertStatusInvestigating, result.Alert.Status)
	assert.Nil(t, result.Alert.ResolvedAt)

	m, err := env.analystMetrics.GetMetric(analyst.ID, core.MetricDay(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, m.AlertsProcessed)
	assert.Equal(t, 0, m.TruePositives)
	assert.Equal(t, 0, m.FalsePositives)
	assert.Equal(t, 0, m.Escalations)
}
