package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the database connections for the platform's metadata.
// Separate read and write pools leverage WAL mode's concurrency model:
// a single writer with unlimited concurrent readers.
type SQLite struct {
	WriteDB *sql.DB // single writer (MaxOpenConns=1)
	ReadDB  *sql.DB // concurrent readers
	Path    string
	Logger  *zap.SugaredLogger
}

// configureConnection applies the standard pragmas to a pool: WAL journal,
// foreign keys and a busy timeout. WAL is verified because the connection
// string params are not reliable across drivers.
func configureConnection(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys not enabled (got %d)", fkEnabled)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	// In-memory databases report "memory", not "wal".
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got %s)", journalMode)
	}
	return nil
}

func validateDatabasePath(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path is empty")
	}
	if dbPath == ":memory:" {
		return nil
	}
	if strings.Contains(dbPath, "..") {
		return fmt.Errorf("database path must not contain '..'")
	}
	return nil
}

// NewSQLite opens the database, configures both pools and creates the schema.
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if err := validateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// In-memory databases need shared cache so both pools see the same data.
	actualPath := dbPath
	if dbPath == ":memory:" {
		actualPath = "file::memory:?cache=shared"
	}

	writeDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write database: %w", err)
	}
	if err := configureConnection(writeDB, dbPath); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to configure write connection: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)
	writeDB.SetConnMaxIdleTime(10 * time.Minute)

	readDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read database: %w", err)
	}
	if err := configureConnection(readDB, dbPath); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to configure read connection: %w", err)
	}
	// The read pool is enforced read-only at the SQLite level.
	if _, err := readDB.Exec("PRAGMA query_only=ON"); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to enable query_only mode on read pool: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	readDB.SetConnMaxIdleTime(10 * time.Minute)

	s := &SQLite{
		WriteDB: writeDB,
		ReadDB:  readDB,
		Path:    dbPath,
		Logger:  logger,
	}

	if err := s.createTables(); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Infof("SQLite database initialized at %s with separate read/write pools", dbPath)
	return s, nil
}

// WithTransaction executes fn inside a transaction on the write pool, rolling
// back on error or panic.
func (s *SQLite) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := s.WriteDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction (original error: %w, rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'ANALYST_JUNIOR',
		team_id TEXT,
		avatar_url TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		severity TEXT NOT NULL DEFAULT 'MEDIUM',
		status TEXT NOT NULL DEFAULT 'NEW',
		source TEXT NOT NULL DEFAULT 'CUSTOM',
		source_ip TEXT,
		dest_ip TEXT,
		source_port INTEGER,
		dest_port INTEGER,
		protocol TEXT,
		rule_name TEXT,
		rule_id TEXT,
		raw_log TEXT,          -- JSON object
		enrichment_data TEXT,  -- JSON object
		assigned_to_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		last_conclusion TEXT,
		detected_at DATETIME NOT NULL,
		resolved_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
	CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
	CREATE INDEX IF NOT EXISTS idx_alerts_assigned ON alerts(assigned_to_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_detected ON alerts(detected_at);

	CREATE TABLE IF NOT EXISTS sops (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		category TEXT,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		alert_types TEXT,       -- JSON array
		content_markdown TEXT,
		checklist TEXT,         -- JSON array of items
		examples TEXT,          -- JSON array
		version INTEGER NOT NULL DEFAULT 1,
		created_by_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sops_category ON sops(category);
	CREATE INDEX IF NOT EXISTS idx_sops_status ON sops(status);

	CREATE TABLE IF NOT EXISTS investigations (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL REFERENCES alerts(id) ON DELETE CASCADE,
		analyst_id TEXT NOT NULL REFERENCES users(id),
		sop_id TEXT REFERENCES sops(id) ON DELETE SET NULL,
		findings TEXT,
		conclusion TEXT,
		actions_taken TEXT,      -- JSON array
		checklist_results TEXT,  -- JSON object
		time_spent_minutes INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_investigations_alert ON investigations(alert_id);
	CREATE INDEX IF NOT EXISTS idx_investigations_analyst ON investigations(analyst_id);

	CREATE TABLE IF NOT EXISTS analyst_metrics (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date DATETIME NOT NULL,
		alerts_processed INTEGER NOT NULL DEFAULT 0,
		true_positives INTEGER NOT NULL DEFAULT 0,
		false_positives INTEGER NOT NULL DEFAULT 0,
		escalations INTEGER NOT NULL DEFAULT 0,
		avg_resolution_time_min REAL NOT NULL DEFAULT 0,
		UNIQUE(user_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_date ON analyst_metrics(date);

	CREATE TABLE IF NOT EXISTS sop_progress (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		sop_slug TEXT NOT NULL,
		checklist_state TEXT NOT NULL DEFAULT '{}',  -- JSON object of objects
		active_step INTEGER NOT NULL DEFAULT 1,
		started_at DATETIME,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at DATETIME,
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		completion_percentage INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, sop_slug)
	);

	CREATE TABLE IF NOT EXISTS iris_exports (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL REFERENCES alerts(id) ON DELETE CASCADE,
		case_id TEXT NOT NULL,
		case_name TEXT,
		mock INTEGER NOT NULL DEFAULT 0,
		exported_by TEXT,
		exported_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_iris_exports_alert ON iris_exports(alert_id);
	`

	if _, err := s.WriteDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes both connection pools.
func (s *SQLite) Close() error {
	var firstErr error
	if err := s.ReadDB.Close(); err != nil {
		firstErr = err
	}
	if err := s.WriteDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// HealthCheck pings both pools.
func (s *SQLite) HealthCheck() error {
	if err := s.WriteDB.Ping(); err != nil {
		return fmt.Errorf("write pool unhealthy: %w", err)
	}
	if err := s.ReadDB.Ping(); err != nil {
		return fmt.Errorf("read pool unhealthy: %w", err)
	}
	return nil
}
