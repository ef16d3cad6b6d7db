package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"morakib/core"

	"go.uber.org/zap"
)

// SQLiteAlertStorage handles alert CRUD operations in SQLite
type SQLiteAlertStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteAlertStorage creates a new SQLite alert storage handler
func NewSQLiteAlertStorage(db *SQLite, logger *zap.SugaredLogger) *SQLiteAlertStorage {
	return &SQLiteAlertStorage{db: db, logger: logger}
}

const alertColumns = `a.id, a.title, a.description, a.severity, a.status, a.source,
	a.source_ip, a.dest_ip, a.source_port, a.dest_port, a.protocol,
	a.rule_name, a.rule_id, a.raw_log, a.enrichment_data,
	a.assigned_to_id, a.last_conclusion, a.detected_at, a.resolved_at,
	a.created_at, a.updated_at,
	u.name, u.email, u.role`

const alertFromClause = ` FROM alerts a LEFT JOIN users u ON u.id = a.assigned_to_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*core.Alert, error) {
	var (
		alert                       core.Alert
		description                 sql.NullString
		sourceIP, destIP, protocol  sql.NullString
		sourcePort, destPort        sql.NullInt64
		ruleName, ruleID            sql.NullString
		rawLogJSON, enrichmentJSON  sql.NullString
		assignedToID, lastConc      sql.NullString
		resolvedAt                  sql.NullTime
		assignedName, assignedEmail sql.NullString
		assignedRole                sql.NullString
	)

	err := row.Scan(
		&alert.ID, &alert.Title, &description, &alert.Severity, &alert.Status, &alert.Source,
		&sourceIP, &destIP, &sourcePort, &destPort, &protocol,
		&ruleName, &ruleID, &rawLogJSON, &enrichmentJSON,
		&assignedToID, &lastConc, &alert.DetectedAt, &resolvedAt,
		&alert.CreatedAt, &alert.UpdatedAt,
		&assignedName, &assignedEmail, &assignedRole,
	)
	if err != nil {
		return nil, err
	}

	alert.Description = description.String
	alert.SourceIP = sourceIP.String
	alert.DestIP = destIP.String
	alert.Protocol = protocol.String
	alert.RuleName = ruleName.String
	alert.RuleID = ruleID.String
	if sourcePort.Valid {
		p := int(sourcePort.Int64)
		alert.SourcePort = &p
	}
	if destPort.Valid {
		p := int(destPort.Int64)
		alert.DestPort = &p
	}
	if rawLogJSON.Valid && rawLogJSON.String != "" {
		_ = json.Unmarshal([]byte(rawLogJSON.String), &alert.RawLog)
	}
	if enrichmentJSON.Valid && enrichmentJSON.String != "" {
		_ = json.Unmarshal([]byte(enrichmentJSON.String), &alert.EnrichmentData)
	}
	if assignedToID.Valid {
		alert.AssignedToID = assignedToID.String
	}
	if lastConc.Valid {
		alert.LastConclusion = core.Conclusion(lastConc.String)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}
	if assignedToID.Valid && assignedName.Valid {
		alert.AssignedTo = &core.UserSummary{
			ID:    assignedToID.String,
			Name:  assignedName.String,
			Email: assignedEmail.String,
			Role:  core.UserRole(assignedRole.String),
		}
	}
	return &alert, nil
}

// CreateAlert inserts a new alert
func (sas *SQLiteAlertStorage) CreateAlert(alert *core.Alert) error {
	rawLogJSON, err := json.Marshal(alert.RawLog)
	if err != nil {
		return fmt.Errorf("failed to marshal raw log: %w", err)
	}
	enrichmentJSON, err := json.Marshal(alert.EnrichmentData)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment data: %w", err)
	}

	query := `
	INSERT INTO alerts (
		id, title, description, severity, status, source,
		source_ip, dest_ip, source_port, dest_port, protocol,
		rule_name, rule_id, raw_log, enrichment_data,
		assigned_to_id, last_conclusion, detected_at, resolved_at,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = sas.db.WriteDB.Exec(query,
		alert.ID, alert.Title, nullString(alert.Description), alert.Severity, alert.Status, alert.Source,
		nullString(alert.SourceIP), nullString(alert.DestIP), nullInt(alert.SourcePort), nullInt(alert.DestPort), nullString(alert.Protocol),
		nullString(alert.RuleName), nullString(alert.RuleID), string(rawLogJSON), string(enrichmentJSON),
		nullString(alert.AssignedToID), nullString(string(alert.LastConclusion)), alert.DetectedAt, alert.ResolvedAt,
		alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert retrieves an alert by ID with its assignee summary
func (sas *SQLiteAlertStorage) GetAlert(alertID string) (*core.Alert, error) {
	query := "SELECT " + alertColumns + alertFromClause + " WHERE a.id = ?"
	alert, err := scanAlert(sas.db.ReadDB.QueryRow(query, alertID))
	if err == sql.ErrNoRows {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// GetAlertTx retrieves an alert inside a transaction for read-modify-write
// sequences
func (sas *SQLiteAlertStorage) GetAlertTx(tx *sql.Tx, alertID string) (*core.Alert, error) {
	query := "SELECT " + alertColumns + alertFromClause + " WHERE a.id = ?"
	alert, err := scanAlert(tx.QueryRow(query, alertID))
	if err == sql.ErrNoRows {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// ListAlerts returns a page of alerts matching the filters plus the total
// count for pagination
func (sas *SQLiteAlertStorage) ListAlerts(filters core.AlertFilters) ([]core.Alert, int64, error) {
	var conditions []string
	var args []interface{}

	if filters.Status != "" {
		conditions = append(conditions, "a.status = ?")
		args = append(args, filters.Status)
	}
	if filters.Severity != "" {
		conditions = append(conditions, "a.severity = ?")
		args = append(args, filters.Severity)
	}
	if filters.Source != "" {
		conditions = append(conditions, "a.source = ?")
		args = append(args, filters.Source)
	}
	if filters.AssignedTo != "" {
		conditions = append(conditions, "a.assigned_to_id = ?")
		args = append(args, filters.AssignedTo)
	}
	if filters.Search != "" {
		conditions = append(conditions, "(a.title LIKE ? OR a.description LIKE ? OR a.source_ip LIKE ? OR a.dest_ip LIKE ? OR a.rule_name LIKE ?)")
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*)" + alertFromClause + whereClause
	if err := sas.db.ReadDB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := "SELECT " + alertColumns + alertFromClause + whereClause +
		" ORDER BY a.created_at DESC LIMIT ? OFFSET ?"
	rows, err := sas.db.ReadDB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []core.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, total, nil
}

// UpdateAlert replaces the mutable fields of an alert
func (sas *SQLiteAlertStorage) UpdateAlert(alert *core.Alert) error {
	return sas.updateAlert(sas.db.WriteDB, alert)
}

// UpdateAlertTx updates an alert inside a transaction
func (sas *SQLiteAlertStorage) UpdateAlertTx(tx *sql.Tx, alert *core.Alert) error {
	return sas.updateAlert(tx, alert)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (sas *SQLiteAlertStorage) updateAlert(e execer, alert *core.Alert) error {
	rawLogJSON, err := json.Marshal(alert.RawLog)
	if err != nil {
		return fmt.Errorf("failed to marshal raw log: %w", err)
	}
	enrichmentJSON, err := json.Marshal(alert.EnrichmentData)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment data: %w", err)
	}

	query := `
	UPDATE alerts SET
		title = ?, description = ?, severity = ?, status = ?, source = ?,
		source_ip = ?, dest_ip = ?, source_port = ?, dest_port = ?, protocol = ?,
		rule_name = ?, rule_id = ?, raw_log = ?, enrichment_data = ?,
		assigned_to_id = ?, last_conclusion = ?, resolved_at = ?, updated_at = ?
	WHERE id = ?`

	result, err := e.Exec(query,
		alert.Title, nullString(alert.Description), alert.Severity, alert.Status, alert.Source,
		nullString(alert.SourceIP), nullString(alert.DestIP), nullInt(alert.SourcePort), nullInt(alert.DestPort), nullString(alert.Protocol),
		nullString(alert.RuleName), nullString(alert.RuleID), string(rawLogJSON), string(enrichmentJSON),
		nullString(alert.AssignedToID), nullString(string(alert.LastConclusion)), alert.ResolvedAt, alert.UpdatedAt,
		alert.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// AssignAlert sets the assignee and moves a NEW alert to ASSIGNED
func (sas *SQLiteAlertStorage) AssignAlert(alertID, userID string, now time.Time) error {
	result, err := sas.db.WriteDB.Exec(`
		UPDATE alerts SET
			assigned_to_id = ?,
			status = CASE WHEN status = 'NEW' THEN 'ASSIGNED' ELSE status END,
			updated_at = ?
		WHERE id = ?`,
		nullString(userID), now, alertID)
	if err != nil {
		return fmt.Errorf("failed to assign alert: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// DeleteAlert removes an alert and, through foreign keys, its investigations
func (sas *SQLiteAlertStorage) DeleteAlert(alertID string) error {
	result, err := sas.db.WriteDB.Exec("DELETE FROM alerts WHERE id = ?", alertID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// CountByStatus returns alert counts grouped by status
func (sas *SQLiteAlertStorage) CountByStatus() (map[core.AlertStatus]int64, error) {
	rows, err := sas.db.ReadDB.Query("SELECT status, COUNT(*) FROM alerts GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.AlertStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[core.AlertStatus(status)] = n
	}
	return counts, rows.Err()
}

// CountBySeverity returns alert counts grouped by severity
func (sas *SQLiteAlertStorage) CountBySeverity() (map[core.AlertSeverity]int64, error) {
	rows, err := sas.db.ReadDB.Query("SELECT severity, COUNT(*) FROM alerts GROUP BY severity")
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by severity: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.AlertSeverity]int64)
	for rows.Next() {
		var severity string
		var n int64
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		counts[core.AlertSeverity(severity)] = n
	}
	return counts, rows.Err()
}

// CountDetectedBetween counts alerts detected in [from, to)
func (sas *SQLiteAlertStorage) CountDetectedBetween(from, to time.Time) (int64, error) {
	var n int64
	err := sas.db.ReadDB.QueryRow(
		"SELECT COUNT(*) FROM alerts WHERE detected_at >= ? AND detected_at < ?",
		from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts by window: %w", err)
	}
	return n, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
