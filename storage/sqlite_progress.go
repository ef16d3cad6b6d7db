package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"morakib/core"

	"go.uber.org/zap"
)

// SQLiteProgressStorage persists per-user procedure progress in SQLite
type SQLiteProgressStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteProgressStorage creates a new SQLite progress storage handler
func NewSQLiteProgressStorage(db *SQLite, logger *zap.SugaredLogger) *SQLiteProgressStorage {
	return &SQLiteProgressStorage{db: db, logger: logger}
}

const progressColumns = `user_id, sop_slug, checklist_state, active_step, started_at,
	completed, completed_at, elapsed_seconds, completion_percentage, updated_at`

func scanProgress(row rowScanner) (*core.SOPProgress, error) {
	var (
		p           core.SOPProgress
		stateJSON   string
		completed   int
		completedAt sql.NullTime
	)
	err := row.Scan(
		&p.UserID, &p.SOPSlug, &stateJSON, &p.ActiveStep, &p.StartedAt,
		&completed, &completedAt, &p.ElapsedSeconds, &p.CompletionPercentage, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stateJSON != "" {
		_ = json.Unmarshal([]byte(stateJSON), &p.ChecklistState)
	}
	if p.ChecklistState == nil {
		p.ChecklistState = core.ChecklistState{}
	}
	p.Completed = completed != 0
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return &p, nil
}

// GetProgress retrieves one user's progress for a procedure
func (sps *SQLiteProgressStorage) GetProgress(userID, sopSlug string) (*core.SOPProgress, error) {
	row := sps.db.ReadDB.QueryRow(
		"SELECT "+progressColumns+" FROM sop_progress WHERE user_id = ? AND sop_slug = ?",
		userID, sopSlug)
	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sop progress: %w", err)
	}
	return p, nil
}

// ListProgressForUser returns all of a user's progress records
func (sps *SQLiteProgressStorage) ListProgressForUser(userID string) ([]core.SOPProgress, error) {
	rows, err := sps.db.ReadDB.Query(
		"SELECT "+progressColumns+" FROM sop_progress WHERE user_id = ? ORDER BY updated_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sop progress: %w", err)
	}
	defer rows.Close()

	records := []core.SOPProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sop progress: %w", err)
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

// SaveProgress upserts the full progress record for a user/procedure pair
func (sps *SQLiteProgressStorage) SaveProgress(p *core.SOPProgress) error {
	stateJSON, err := json.Marshal(p.ChecklistState)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist state: %w", err)
	}

	completed := 0
	if p.Completed {
		completed = 1
	}

	_, err = sps.db.WriteDB.Exec(`
		INSERT INTO sop_progress (
			user_id, sop_slug, checklist_state, active_step, started_at,
			completed, completed_at, elapsed_seconds, completion_percentage, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, sop_slug) DO UPDATE SET
			checklist_state = excluded.checklist_state,
			active_step = excluded.active_step,
			started_at = excluded.started_at,
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			elapsed_seconds = excluded.elapsed_seconds,
			completion_percentage = excluded.completion_percentage,
			updated_at = excluded.updated_at`,
		p.UserID, p.SOPSlug, string(stateJSON), p.ActiveStep, p.StartedAt,
		completed, p.CompletedAt, p.ElapsedSeconds, p.CompletionPercentage, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sop progress: %w", err)
	}
	return nil
}

// DeleteProgress removes one user/procedure progress record
func (sps *SQLiteProgressStorage) DeleteProgress(userID, sopSlug string) error {
	result, err := sps.db.WriteDB.Exec(
		"DELETE FROM sop_progress WHERE user_id = ? AND sop_slug = ?",
		userID, sopSlug)
	if err != nil {
		return fmt.Errorf("failed to delete sop progress: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrProgressNotFound
	}
	return nil
}
