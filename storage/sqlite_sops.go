package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"morakib/core"

	"go.uber.org/zap"
)

// SQLiteSOPStorage handles standard operating procedure records in SQLite
type SQLiteSOPStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteSOPStorage creates a new SQLite SOP storage handler
func NewSQLiteSOPStorage(db *SQLite, logger *zap.SugaredLogger) *SQLiteSOPStorage {
	return &SQLiteSOPStorage{db: db, logger: logger}
}

const sopColumns = `s.id, s.title, s.slug, s.category, s.status, s.alert_types,
	s.content_markdown, s.checklist, s.examples, s.version, s.created_by_id,
	s.created_at, s.updated_at,
	u.name, u.email,
	(SELECT COUNT(*) FROM investigations i WHERE i.sop_id = s.id)`

const sopFromClause = ` FROM sops s LEFT JOIN users u ON u.id = s.created_by_id`

func scanSOP(row rowScanner) (*core.SOP, error) {
	var (
		sop                      core.SOP
		category                 sql.NullString
		alertTypesJSON           sql.NullString
		content                  sql.NullString
		checklistJSON, exameJSON sql.NullString
		createdByID              sql.NullString
		creatorName, creatorMail sql.NullString
	)

	err := row.Scan(
		&sop.ID, &sop.Title, &sop.Slug, &category, &sop.Status, &alertTypesJSON,
		&content, &checklistJSON, &exameJSON, &sop.Version, &createdByID,
		&sop.CreatedAt, &sop.UpdatedAt,
		&creatorName, &creatorMail,
		&sop.InvestigationCount,
	)
	if err != nil {
		return nil, err
	}

	sop.Category = category.String
	sop.ContentMarkdown = content.String
	if alertTypesJSON.Valid && alertTypesJSON.String != "" {
		_ = json.Unmarshal([]byte(alertTypesJSON.String), &sop.AlertTypes)
	}
	if checklistJSON.Valid && checklistJSON.String != "" {
		_ = json.Unmarshal([]byte(checklistJSON.String), &sop.Checklist)
	}
	if exameJSON.Valid && exameJSON.String != "" {
		_ = json.Unmarshal([]byte(exameJSON.String), &sop.Examples)
	}
	if createdByID.Valid {
		sop.CreatedByID = createdByID.String
		if creatorName.Valid {
			sop.CreatedBy = &core.UserSummary{
				ID:    createdByID.String,
				Name:  creatorName.String,
				Email: creatorMail.String,
			}
		}
	}
	return &sop, nil
}

// CreateSOP inserts a new procedure
func (sss *SQLiteSOPStorage) CreateSOP(sop *core.SOP) error {
	alertTypesJSON, err := json.Marshal(sop.AlertTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal alert types: %w", err)
	}
	checklistJSON, err := json.Marshal(sop.Checklist)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist: %w", err)
	}
	examplesJSON, err := json.Marshal(sop.Examples)
	if err != nil {
		return fmt.Errorf("failed to marshal examples: %w", err)
	}

	_, err = sss.db.WriteDB.Exec(`
		INSERT INTO sops (
			id, title, slug, category, status, alert_types,
			content_markdown, checklist, examples, version, created_by_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sop.ID, sop.Title, sop.Slug, nullString(sop.Category), sop.Status, string(alertTypesJSON),
		nullString(sop.ContentMarkdown), string(checklistJSON), string(examplesJSON),
		sop.Version, nullString(sop.CreatedByID), sop.CreatedAt, sop.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: sops.slug") {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to insert sop: %w", err)
	}
	return nil
}

// GetSOP retrieves a procedure by ID
func (sss *SQLiteSOPStorage) GetSOP(sopID string) (*core.SOP, error) {
	query := "SELECT " + sopColumns + sopFromClause + " WHERE s.id = ?"
	sop, err := scanSOP(sss.db.ReadDB.QueryRow(query, sopID))
	if err == sql.ErrNoRows {
		return nil, ErrSOPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sop: %w", err)
	}
	return sop, nil
}

// GetSOPBySlug retrieves a procedure by slug
func (sss *SQLiteSOPStorage) GetSOPBySlug(slug string) (*core.SOP, error) {
	query := "SELECT " + sopColumns + sopFromClause + " WHERE s.slug = ?"
	sop, err := scanSOP(sss.db.ReadDB.QueryRow(query, slug))
	if err == sql.ErrNoRows {
		return nil, ErrSOPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sop by slug: %w", err)
	}
	return sop, nil
}

// ListSOPs returns procedures matching the filters
func (sss *SQLiteSOPStorage) ListSOPs(filters core.SOPFilters) ([]core.SOP, error) {
	var conditions []string
	var args []interface{}

	if filters.Category != "" {
		conditions = append(conditions, "s.category = ?")
		args = append(args, filters.Category)
	}
	if filters.Status != "" {
		conditions = append(conditions, "s.status = ?")
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		conditions = append(conditions, "(s.title LIKE ? OR s.content_markdown LIKE ?)")
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := "SELECT " + sopColumns + sopFromClause
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.title ASC"

	rows, err := sss.db.ReadDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sops: %w", err)
	}
	defer rows.Close()

	sops := []core.SOP{}
	for rows.Next() {
		sop, err := scanSOP(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sop: %w", err)
		}
		sops = append(sops, *sop)
	}
	return sops, rows.Err()
}

// UpdateSOP replaces the mutable fields of a procedure and bumps its version
func (sss *SQLiteSOPStorage) UpdateSOP(sop *core.SOP) error {
	alertTypesJSON, err := json.Marshal(sop.AlertTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal alert types: %w", err)
	}
	checklistJSON, err := json.Marshal(sop.Checklist)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist: %w", err)
	}
	examplesJSON, err := json.Marshal(sop.Examples)
	if err != nil {
		return fmt.Errorf("failed to marshal examples: %w", err)
	}

	result, err := sss.db.WriteDB.Exec(`
		UPDATE sops SET
			title = ?, slug = ?, category = ?, status = ?, alert_types = ?,
			content_markdown = ?, checklist = ?, examples = ?,
			version = version + 1, updated_at = ?
		WHERE id = ?`,
		sop.Title, sop.Slug, nullString(sop.Category), sop.Status, string(alertTypesJSON),
		nullString(sop.ContentMarkdown), string(checklistJSON), string(examplesJSON),
		sop.UpdatedAt, sop.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: sops.slug") {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update sop: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrSOPNotFound
	}
	// Mirror the SQL-side bump so callers hold the stored version
	sop.Version++
	return nil
}

// CountByStatus returns procedure counts per publication status
func (sss *SQLiteSOPStorage) CountByStatus() (map[core.SOPStatus]int64, error) {
	rows, err := sss.db.ReadDB.Query("SELECT status, COUNT(*) FROM sops GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count sops by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.SOPStatus]int64)
	for rows.Next() {
		var status core.SOPStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sop count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// DeleteSOP removes a procedure; investigations keep a nulled sop reference
func (sss *SQLiteSOPStorage) DeleteSOP(sopID string) error {
	result, err := sss.db.WriteDB.Exec("DELETE FROM sops WHERE id = ?", sopID)
	if err != nil {
		return fmt.Errorf("failed to delete sop: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrSOPNotFound
	}
	return nil
}
