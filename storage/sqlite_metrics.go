package storage

import (
	"database/sql"
	"fmt"
	"time"

	"morakib/core"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SQLiteMetricStorage handles analyst daily metric rollups in SQLite
type SQLiteMetricStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteMetricStorage creates a new SQLite metric storage handler
func NewSQLiteMetricStorage(db *SQLite, logger *zap.SugaredLogger) *SQLiteMetricStorage {
	return &SQLiteMetricStorage{db: db, logger: logger}
}

// UpsertSubmissionTx applies one submission's metric delta to the analyst's
// daily row inside a transaction. Creating the row seeds the average
// resolution time from the delta; incrementing an existing row leaves the
// stored average untouched.
func (sms *SQLiteMetricStorage) UpsertSubmissionTx(tx *sql.Tx, analystID string, day time.Time, delta core.MetricDelta) error {
	_, err := tx.Exec(`
		INSERT INTO analyst_metrics (
			id, user_id, date, alerts_processed,
			true_positives, false_positives, escalations, avg_resolution_time_min
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			alerts_processed = alerts_processed + 1,
			true_positives = true_positives + excluded.true_positives,
			false_positives = false_positives + excluded.false_positives,
			escalations = escalations + excluded.escalations`,
		uuid.New().String(), analystID, day,
		delta.TruePositives, delta.FalsePositives, delta.Escalations, delta.TimeSpentMin,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analyst metric: %w", err)
	}
	return nil
}

const metricColumns = `id, user_id, date, alerts_processed, true_positives, false_positives, escalations, avg_resolution_time_min`

func scanMetric(row rowScanner) (*core.AnalystMetric, error) {
	var m core.AnalystMetric
	err := row.Scan(
		&m.ID, &m.AnalystID, &m.Date, &m.AlertsProcessed,
		&m.TruePositives, &m.FalsePositives, &m.Escalations, &m.AvgResolutionTimeMin,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMetric returns one analyst's rollup for a day, if present
func (sms *SQLiteMetricStorage) GetMetric(analystID string, day time.Time) (*core.AnalystMetric, error) {
	row := sms.db.ReadDB.QueryRow(
		"SELECT "+metricColumns+" FROM analyst_metrics WHERE user_id = ? AND date = ?",
		analystID, day)
	m, err := scanMetric(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analyst metric: %w", err)
	}
	return m, nil
}

// ListMetricsForAnalyst returns an analyst's most recent daily rollups
func (sms *SQLiteMetricStorage) ListMetricsForAnalyst(analystID string, limit int) ([]core.AnalystMetric, error) {
	if limit < 1 {
		limit = 30
	}
	rows, err := sms.db.ReadDB.Query(
		"SELECT "+metricColumns+" FROM analyst_metrics WHERE user_id = ? ORDER BY date DESC LIMIT ?",
		analystID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyst metrics: %w", err)
	}
	defer rows.Close()

	metrics := []core.AnalystMetric{}
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analyst metric: %w", err)
		}
		metrics = append(metrics, *m)
	}
	return metrics, rows.Err()
}

// LeaderboardSince aggregates per-analyst totals for rollup days at or after
// the cutoff, ordered by alerts processed
func (sms *SQLiteMetricStorage) LeaderboardSince(since time.Time, limit int) ([]core.LeaderboardEntry, error) {
	if limit < 1 {
		limit = 5
	}
	rows, err := sms.db.ReadDB.Query(`
		SELECT m.user_id,
			SUM(m.alerts_processed), SUM(m.true_positives), SUM(m.false_positives),
			u.name, u.email, u.role, u.avatar_url
		FROM analyst_metrics m
		JOIN users u ON u.id = m.user_id
		WHERE m.date >= ?
		GROUP BY m.user_id
		ORDER BY SUM(m.alerts_processed) DESC
		LIMIT ?`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []core.LeaderboardEntry{}
	for rows.Next() {
		var e core.LeaderboardEntry
		var name, email, role string
		var avatarURL sql.NullString
		if err := rows.Scan(&e.AnalystID, &e.AlertsProcessed, &e.TruePositives, &e.FalsePositives,
			&name, &email, &role, &avatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Analyst = &core.UserSummary{
			ID:        e.AnalystID,
			Name:      name,
			Email:     email,
			Role:      core.UserRole(role),
			AvatarURL: avatarURL.String,
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
