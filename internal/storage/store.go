package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// UploadKind identifies which input table an upload holds.
type UploadKind string

const (
	UploadProducts   UploadKind = "products"
	UploadCategories UploadKind = "categories"
)

// Upload is a table file a user has sent and not yet built.
type Upload struct {
	TelegramID int64
	Kind       UploadKind
	FileID     string
	FileName   string
	Rows       int
	UploadedAt time.Time
}

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// Store defines the interface for loadsheet bot persistence.
type Store interface {
	Close() error

	// Run history
	SaveRun(run *Run) error
	GetRun(id string) (*Run, error)
	ListRuns(telegramID int64, limit int) ([]Run, error)

	// Pending uploads (one per kind per user)
	SetUpload(upload *Upload) error
	GetUploads(telegramID int64) (map[UploadKind]Upload, error)
	ClearUploads(telegramID int64) error

	// Per-user settings. A zero depth means "use the default".
	SetTargetDepth(telegramID int64, depth int) error
	GetTargetDepth(telegramID int64) (int, error)

	// Allowed users methods
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]AllowedUser, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions once the file exists
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	statements := []struct {
		name  string
		query string
	}{
		{"runs", `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			telegram_id INTEGER NOT NULL,
			product_file TEXT NOT NULL,
			category_file TEXT,
			target_depth INTEGER NOT NULL,
			status TEXT NOT NULL,
			input_rows INTEGER NOT NULL DEFAULT 0,
			output_rows INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`},
		{"runs index", `
		CREATE INDEX IF NOT EXISTS runs_telegram_id_created_at
			ON runs (telegram_id, created_at);`},
		{"uploads", `
		CREATE TABLE IF NOT EXISTS uploads (
			telegram_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			file_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			rows INTEGER NOT NULL DEFAULT 0,
			uploaded_at DATETIME NOT NULL,
			PRIMARY KEY (telegram_id, kind)
		);`},
		{"user_settings", `
		CREATE TABLE IF NOT EXISTS user_settings (
			telegram_id INTEGER PRIMARY KEY,
			target_depth INTEGER
		);`},
		{"allowed_users", `
		CREATE TABLE IF NOT EXISTS allowed_users (
			telegram_id INTEGER PRIMARY KEY,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			added_by INTEGER
		);`},
	}

	for _, st := range statements {
		if _, err := s.db.Exec(st.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", st.name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetUpload stores the user's pending upload of upload.Kind, replacing any
// earlier one.
func (s *SQLiteStore) SetUpload(upload *Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO uploads (telegram_id, kind, file_id, file_name, rows, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id, kind) DO UPDATE SET
			file_id = excluded.file_id,
			file_name = excluded.file_name,
			rows = excluded.rows,
			uploaded_at = excluded.uploaded_at
	`, upload.TelegramID, string(upload.Kind), upload.FileID, upload.FileName, upload.Rows, upload.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}

// GetUploads returns the user's pending uploads keyed by kind.
func (s *SQLiteStore) GetUploads(telegramID int64) (map[UploadKind]Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT kind, file_id, file_name, rows, uploaded_at FROM uploads WHERE telegram_id = ?",
		telegramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	uploads := make(map[UploadKind]Upload)
	for rows.Next() {
		u := Upload{TelegramID: telegramID}
		var kind string
		if err := rows.Scan(&kind, &u.FileID, &u.FileName, &u.Rows, &u.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		u.Kind = UploadKind(kind)
		uploads[u.Kind] = u
	}

	return uploads, rows.Err()
}

// ClearUploads removes all pending uploads of a user.
func (s *SQLiteStore) ClearUploads(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM uploads WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to clear uploads: %w", err)
	}
	return nil
}

// SetTargetDepth sets the category depth for a user.
func (s *SQLiteStore) SetTargetDepth(telegramID int64, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO user_settings (telegram_id, target_depth)
	VALUES (?, ?)
	ON CONFLICT(telegram_id) DO UPDATE SET
		target_depth = excluded.target_depth;
	`
	_, err := s.db.Exec(query, telegramID, depth)
	if err != nil {
		return fmt.Errorf("failed to set target depth: %w", err)
	}
	return nil
}

// GetTargetDepth retrieves the category depth for a user.
// Returns 0 if not set.
func (s *SQLiteStore) GetTargetDepth(telegramID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var depth sql.NullInt64
	err := s.db.QueryRow(
		"SELECT target_depth FROM user_settings WHERE telegram_id = ?",
		telegramID,
	).Scan(&depth)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query target depth: %w", err)
	}

	return int(depth.Int64), nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &user.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
