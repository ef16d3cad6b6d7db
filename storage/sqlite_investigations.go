package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"morakib/core"

	"go.uber.org/zap"
)

// SQLiteInvestigationStorage handles investigation records in SQLite
type SQLiteInvestigationStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteInvestigationStorage creates a new SQLite investigation storage handler
func NewSQLiteInvestigationStorage(db *SQLite, logger *zap.SugaredLogger) *SQLiteInvestigationStorage {
	return &SQLiteInvestigationStorage{db: db, logger: logger}
}

const investigationColumns = `i.id, i.alert_id, i.analyst_id, i.sop_id, i.findings, i.conclusion,
	i.actions_taken, i.checklist_results, i.time_spent_minutes, i.started_at, i.completed_at,
	u.name, u.email, s.title`

const investigationFromClause = ` FROM investigations i
	LEFT JOIN users u ON u.id = i.analyst_id
	LEFT JOIN sops s ON s.id = i.sop_id`

func scanInvestigation(row rowScanner) (*core.Investigation, error) {
	var (
		inv                     core.Investigation
		sopID, findings, conc   sql.NullString
		actionsJSON, checksJSON sql.NullString
		completedAt             sql.NullTime
		analystName, email      sql.NullString
		sopTitle                sql.NullString
	)

	err := row.Scan(
		&inv.ID, &inv.AlertID, &inv.AnalystID, &sopID, &findings, &conc,
		&actionsJSON, &checksJSON, &inv.TimeSpentMinutes, &inv.StartedAt, &completedAt,
		&analystName, &email, &sopTitle,
	)
	if err != nil {
		return nil, err
	}

	inv.SOPID = sopID.String
	inv.Findings = findings.String
	inv.Conclusion = core.Conclusion(conc.String)
	if actionsJSON.Valid && actionsJSON.String != "" {
		_ = json.Unmarshal([]byte(actionsJSON.String), &inv.ActionsTaken)
	}
	if checksJSON.Valid && checksJSON.String != "" {
		_ = json.Unmarshal([]byte(checksJSON.String), &inv.ChecklistResults)
	}
	if completedAt.Valid {
		t := completedAt.Time
		inv.CompletedAt = &t
	}
	inv.AnalystName = analystName.String
	inv.AnalystEmail = email.String
	inv.SOPTitle = sopTitle.String
	return &inv, nil
}

// CreateInvestigationTx inserts an investigation inside a transaction, the
// path taken by submission so the record and the alert update commit together
func (sis *SQLiteInvestigationStorage) CreateInvestigationTx(tx *sql.Tx, inv *core.Investigation) error {
	return sis.createInvestigation(tx, inv)
}

// CreateInvestigation inserts an investigation outside a transaction
func (sis *SQLiteInvestigationStorage) CreateInvestigation(inv *core.Investigation) error {
	return sis.createInvestigation(sis.db.WriteDB, inv)
}

func (sis *SQLiteInvestigationStorage) createInvestigation(e execer, inv *core.Investigation) error {
	actionsJSON, err := json.Marshal(inv.ActionsTaken)
	if err != nil {
		return fmt.Errorf("failed to marshal actions taken: %w", err)
	}
	checksJSON, err := json.Marshal(inv.ChecklistResults)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist results: %w", err)
	}

	_, err = e.Exec(`
		INSERT INTO investigations (
			id, alert_id, analyst_id, sop_id, findings, conclusion,
			actions_taken, checklist_results, time_spent_minutes,
			started_at, completed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.AlertID, inv.AnalystID, nullString(inv.SOPID),
		nullString(inv.Findings), nullString(string(inv.Conclusion)),
		string(actionsJSON), string(checksJSON), inv.TimeSpentMinutes,
		inv.StartedAt, inv.CompletedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert investigation: %w", err)
	}
	return nil
}

// GetInvestigation retrieves one investigation with its display joins
func (sis *SQLiteInvestigationStorage) GetInvestigation(investigationID string) (*core.Investigation, error) {
	query := "SELECT " + investigationColumns + investigationFromClause + " WHERE i.id = ?"
	inv, err := scanInvestigation(sis.db.ReadDB.QueryRow(query, investigationID))
	if err == sql.ErrNoRows {
		return nil, ErrInvestigationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investigation: %w", err)
	}
	return inv, nil
}

// ListByAlert returns an alert's investigations, most recent first
func (sis *SQLiteInvestigationStorage) ListByAlert(alertID string) ([]core.Investigation, error) {
	query := "SELECT " + investigationColumns + investigationFromClause +
		" WHERE i.alert_id = ? ORDER BY i.started_at DESC"
	rows, err := sis.db.ReadDB.Query(query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to query investigations: %w", err)
	}
	defer rows.Close()

	investigations := []core.Investigation{}
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investigation: %w", err)
		}
		investigations = append(investigations, *inv)
	}
	return investigations, rows.Err()
}

// ListByAnalyst returns an analyst's investigations, most recent first
func (sis *SQLiteInvestigationStorage) ListByAnalyst(analystID string, limit int) ([]core.Investigation, error) {
	if limit < 1 {
		limit = 50
	}
	query := "SELECT " + investigationColumns + investigationFromClause +
		" WHERE i.analyst_id = ? ORDER BY i.started_at DESC LIMIT ?"
	rows, err := sis.db.ReadDB.Query(query, analystID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query investigations: %w", err)
	}
	defer rows.Close()

	investigations := []core.Investigation{}
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investigation: %w", err)
		}
		investigations = append(investigations, *inv)
	}
	return investigations, rows.Err()
}

// CountCompletedBetween counts investigations completed in [from, to)
func (sis *SQLiteInvestigationStorage) CountCompletedBetween(from, to time.Time) (int64, error) {
	var n int64
	err := sis.db.ReadDB.QueryRow(
		"SELECT COUNT(*) FROM investigations WHERE completed_at >= ? AND completed_at < ?",
		from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count investigations: %w", err)
	}
	return n, nil
}

// CountBySOP returns investigation counts grouped by procedure
func (sis *SQLiteInvestigationStorage) CountBySOP() (map[string]int64, error) {
	rows, err := sis.db.ReadDB.Query(
		"SELECT sop_id, COUNT(*) FROM investigations WHERE sop_id IS NOT NULL GROUP BY sop_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count investigations by sop: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var sopID string
		var n int64
		if err := rows.Scan(&sopID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sop count: %w", err)
		}
		counts[sopID] = n
	}
	return counts, rows.Err()
}
