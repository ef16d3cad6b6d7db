package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"morakib/core"

	"go.uber.org/zap"
)

// SQLiteUserStorage handles user CRUD operations in SQLite
type SQLiteUserStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteUserStorage creates a new SQLite user storage handler
func NewSQLiteUserStorage(db *SQLite, logger *zap.SugaredLogger) *SQLiteUserStorage {
	return &SQLiteUserStorage{db: db, logger: logger}
}

const userColumns = `id, email, name, password_hash, role, team_id, avatar_url, created_at, updated_at`

func scanUser(row rowScanner) (*core.User, error) {
	var user core.User
	var teamID, avatarURL sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role,
		&teamID, &avatarURL, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.TeamID = teamID.String
	user.AvatarURL = avatarURL.String
	return &user, nil
}

// CreateUser inserts a new user
func (sus *SQLiteUserStorage) CreateUser(user *core.User) error {
	_, err := sus.db.WriteDB.Exec(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Role,
		nullString(user.TeamID), nullString(user.AvatarURL), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (sus *SQLiteUserStorage) GetUser(userID string) (*core.User, error) {
	row := sus.db.ReadDB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", userID)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserTx retrieves a user inside a transaction
func (sus *SQLiteUserStorage) GetUserTx(tx *sql.Tx, userID string) (*core.User, error) {
	row := tx.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", userID)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, used by login
func (sus *SQLiteUserStorage) GetUserByEmail(email string) (*core.User, error) {
	row := sus.db.ReadDB.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ListUsers returns users matching the filters
func (sus *SQLiteUserStorage) ListUsers(filters core.UserFilters) ([]core.User, error) {
	var conditions []string
	var args []interface{}

	if filters.Role != "" {
		conditions = append(conditions, "role = ?")
		args = append(args, filters.Role)
	}
	if filters.TeamID != "" {
		conditions = append(conditions, "team_id = ?")
		args = append(args, filters.TeamID)
	}
	if filters.Search != "" {
		conditions = append(conditions, "(name LIKE ? OR email LIKE ?)")
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC"

	rows, err := sus.db.ReadDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUser replaces the mutable fields of a user
func (sus *SQLiteUserStorage) UpdateUser(user *core.User) error {
	result, err := sus.db.WriteDB.Exec(`
		UPDATE users SET
			email = ?, name = ?, password_hash = ?, role = ?,
			team_id = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?`,
		user.Email, user.Name, user.PasswordHash, user.Role,
		nullString(user.TeamID), nullString(user.AvatarURL), user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user; alert assignments are nulled by foreign keys
func (sus *SQLiteUserStorage) DeleteUser(userID string) error {
	result, err := sus.db.WriteDB.Exec("DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the total user count
func (sus *SQLiteUserStorage) CountUsers() (int64, error) {
	var n int64
	if err := sus.db.ReadDB.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
