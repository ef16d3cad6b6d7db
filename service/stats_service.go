package service

import (
	"context"
	"math"
	"time"

	"morakib/core"
	"morakib/metrics"
	"morakib/storage"

	"go.uber.org/zap"
)

// DashboardStats is the aggregate payload behind the dashboard landing page.
type DashboardStats struct {
	TotalAlerts      int64                          `json:"total_alerts"`
	AlertsByStatus   map[core.AlertStatus]int64     `json:"alerts_by_status"`
	AlertsBySeverity map[core.AlertSeverity]int64   `json:"alerts_by_severity"`
	OpenAlerts       int64                          `json:"open_alerts"`
	AlertsToday      int64                          `json:"alerts_today"`
	AlertsTrendPct   float64                        `json:"alerts_trend_pct"`
	ResolvedToday    int64                          `json:"resolved_today"`
	WeeklyResolved   int64                          `json:"weekly_resolved"`
	SOPsByStatus     map[core.SOPStatus]int64       `json:"sops_by_status"`
	Leaderboard      []core.LeaderboardEntry        `json:"leaderboard"`
	RecentAlerts     []core.Alert                   `json:"recent_alerts"`
	GeneratedAt      time.Time                      `json:"generated_at"`
}

const statsCacheTTL = 30 * time.Second

// StatsService assembles the dashboard statistics payload. When a Redis
// cache is configured the payload is served from a short-lived cache entry.
type StatsService struct {
	alerts         *storage.SQLiteAlertStorage
	investigations *storage.SQLiteInvestigationStorage
	analystMetrics *storage.SQLiteMetricStorage
	sops           *storage.SQLiteSOPStorage
	cache          *core.RedisCache // nil when Redis is disabled
	logger         *zap.SugaredLogger
}

// NewStatsService creates a new stats service. cache may be nil.
func NewStatsService(
	alerts *storage.SQLiteAlertStorage,
	investigations *storage.SQLiteInvestigationStorage,
	analystMetrics *storage.SQLiteMetricStorage,
	sops *storage.SQLiteSOPStorage,
	cache *core.RedisCache,
	logger *zap.SugaredLogger,
) *StatsService {
	return &StatsService{
		alerts:         alerts,
		investigations: investigations,
		analystMetrics: analystMetrics,
		sops:           sops,
		cache:          cache,
		logger:         logger,
	}
}

// Dashboard returns the dashboard stats, from cache when possible.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	cacheKey := core.GetStatsCacheKey("dashboard")

	if s.cache != nil {
		var cached DashboardStats
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warnf("Stats cache read failed: %v", err)
		}
		if hit {
			metrics.StatsCacheHits.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		metrics.StatsCacheHits.WithLabelValues("miss").Inc()
	}

	stats, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, statsCacheTTL); err != nil {
			s.logger.Warnf("Stats cache write failed: %v", err)
		}
	}
	return stats, nil
}

func (s *StatsService) assemble(ctx context.Context) (*DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// Metric days are keyed to server-local midnight
	today := core.MetricDay(now.Local())
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	weekAgo := today.AddDate(0, 0, -7)

	byStatus, err := s.alerts.CountByStatus()
	if err != nil {
		return nil, err
	}
	bySeverity, err := s.alerts.CountBySeverity()
	if err != nil {
		return nil, err
	}

	var total, open int64
	for status, n := range byStatus {
		total += n
		if !status.IsTerminal() {
			open += n
		}
	}

	// Alert and investigation timestamps are stored in UTC; compare with
	// the day bounds as UTC instants.
	alertsToday, err := s.alerts.CountDetectedBetween(today.UTC(), tomorrow.UTC())
	if err != nil {
		return nil, err
	}
	alertsYesterday, err := s.alerts.CountDetectedBetween(yesterday.UTC(), today.UTC())
	if err != nil {
		return nil, err
	}

	resolvedToday, err := s.investigations.CountCompletedBetween(today.UTC(), tomorrow.UTC())
	if err != nil {
		return nil, err
	}
	weeklyResolved, err := s.investigations.CountCompletedBetween(weekAgo.UTC(), tomorrow.UTC())
	if err != nil {
		return nil, err
	}

	sopsByStatus, err := s.sops.CountByStatus()
	if err != nil {
		return nil, err
	}

	leaderboard, err := s.analystMetrics.LeaderboardSince(weekAgo, 5)
	if err != nil {
		return nil, err
	}

	recentFilters := core.NewAlertFilters()
	recentFilters.Limit = 5
	recent, _, err := s.alerts.ListAlerts(*recentFilters)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalAlerts:      total,
		AlertsByStatus:   byStatus,
		AlertsBySeverity: bySeverity,
		OpenAlerts:       open,
		AlertsToday:      alertsToday,
		AlertsTrendPct:   trendPct(alertsToday, alertsYesterday),
		ResolvedToday:    resolvedToday,
		WeeklyResolved:   weeklyResolved,
		SOPsByStatus:     sopsByStatus,
		Leaderboard:      leaderboard,
		RecentAlerts:     recent,
		GeneratedAt:      now,
	}, nil
}

// trendPct is the day-over-day change percentage. A zero baseline yields 0,
// not infinity.
func trendPct(today, yesterday int64) float64 {
	if yesterday == 0 {
		return 0
	}
	pct := 100 * float64(today-yesterday) / float64(yesterday)
	return math.Round(pct*10) / 10
}
