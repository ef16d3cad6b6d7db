package service

import (
	"context"
	"testing"
	"time"

	"morakib/core"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatsService_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	analyst := env.seedAnalyst(t, "stats@example.com")

	critical := core.NewAlert("ransomware staging")
	critical.Severity = core.AlertSeverityCritical
	critical.Status = core.AlertStatusInvestigating
	require.NoError(t, env.alerts.CreateAlert(critical))

	noise := env.seedAlert(t, "noisy heuristic")
	_, err := env.svc.Submit(context.Background(), SubmitRequest{
		AlertID:          noise.ID,
		AnalystID:        analyst.ID,
		Conclusion:       core.ConclusionFalsePositive,
		TimeSpentMinutes: 5,
	})
	require.NoError(t, err)

	stats := NewStatsService(env.alerts, env.investigations, env.analystMetrics, env.sops, nil, zap.NewNop().Sugar())
	out, err := stats.Dashboard(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, out.TotalAlerts)
	assert.EqualValues(t, 1, out.OpenAlerts)
	assert.EqualValues(t, 1, out.AlertsByStatus[core.AlertStatusFalsePositive])
	assert.EqualValues(t, 1, out.AlertsBySeverity[core.AlertSeverityCritical])
	assert.EqualValues(t, 2, out.AlertsToday)
	// Nothing was detected yesterday, so the trend stays flat.
	assert.Zero(t, out.AlertsTrendPct)
	assert.EqualValues(t, 1, out.ResolvedToday)
	assert.EqualValues(t, 1, out.WeeklyResolved)
	require.Len(t, out.Leaderboard, 1)
	assert.Equal(t, analyst.ID, out.Leaderboard[0].AnalystID)
	assert.Len(t, out.RecentAlerts, 2)
}

func TestStatsService_DashboardUsesCache(t *testing.T) {
	env := newTestEnv(t)
	env.seedAlert(t, "cached alert")

	mr := miniredis.RunT(t)
	cache := core.NewRedisCache(mr.Addr(), "", 0, 4, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = cache.Close() })

	stats := NewStatsService(env.alerts, env.investigations, env.analystMetrics, env.sops, cache, zap.NewNop().Sugar())

	first, err := stats.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.TotalAlerts)

	// New data is invisible until the cache entry expires.
	env.seedAlert(t, "newer alert")
	second, err := stats.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, second.TotalAlerts)

	mr.FastForward(time.Minute)
	third, err := stats.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, third.TotalAlerts)
}

func TestTrendPct(t *testing.T) {
	assert.Zero(t, trendPct(5, 0))
	assert.Zero(t, trendPct(0, 0))
	assert.InDelta(t, 100, trendPct(10, 5), 0.001)
	assert.InDelta(t, -50, trendPct(5, 10), 0.001)
	assert.InDelta(t, 33.3, trendPct(4, 3), 0.001)
}
