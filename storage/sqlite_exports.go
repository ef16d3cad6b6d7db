package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ExportRecord is the audit trail row written after an alert is exported to
// the DFIR platform.
type ExportRecord struct {
	ID         string    `json:"id"`
	AlertID    string    `json:"alert_id"`
	CaseID     string    `json:"case_id"`
	CaseName   string    `json:"case_name,omitempty"`
	Mock       bool      `json:"mock"`
	ExportedBy string    `json:"exported_by,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
}

// SQLiteExportStorage records completed DFIR exports in SQLite
type SQLiteExportStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteExportStorage creates a new SQLite export storage handler
func NewSQLiteExportStorage(db *SQLite, logger *zap.SugaredLogger) *SQLiteExportStorage {
	return &SQLiteExportStorage{db: db, logger: logger}
}

// RecordExport appends one export to the audit trail
func (ses *SQLiteExportStorage) RecordExport(rec *ExportRecord) error {
	mock := 0
	if rec.Mock {
		mock = 1
	}
	_, err := ses.db.WriteDB.Exec(`
		INSERT INTO iris_exports (id, alert_id, case_id, case_name, mock, exported_by, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AlertID, rec.CaseID, nullString(rec.CaseName), mock,
		nullString(rec.ExportedBy), rec.ExportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}
	return nil
}

// ListExportsForAlert returns an alert's export history, most recent first
func (ses *SQLiteExportStorage) ListExportsForAlert(alertID string) ([]ExportRecord, error) {
	rows, err := ses.db.ReadDB.Query(`
		SELECT id, alert_id, case_id, COALESCE(case_name, ''), mock, COALESCE(exported_by, ''), exported_at
		FROM iris_exports WHERE alert_id = ? ORDER BY exported_at DESC`,
		alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	records := []ExportRecord{}
	for rows.Next() {
		var rec ExportRecord
		var mock int
		if err := rows.Scan(&rec.ID, &rec.AlertID, &rec.CaseID, &rec.CaseName, &mock, &rec.ExportedBy, &rec.ExportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		rec.Mock = mock != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}
