package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one recorded loadsheet build.
type Run struct {
	ID           string
	TelegramID   int64
	ProductFile  string
	CategoryFile string
	TargetDepth  int
	Status       string
	InputRows    int
	OutputRows   int
	Error        string
	Duration     time.Duration
	CreatedAt    time.Time
}

// SaveRun records a build. An ID and creation time are assigned when unset.
func (s *SQLiteStore) SaveRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, telegram_id, product_file, category_file, target_depth,
			status, input_rows, output_rows, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TelegramID, run.ProductFile, nullString(run.CategoryFile), run.TargetDepth,
		run.Status, run.InputRows, run.OutputRows, nullString(run.Error),
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil, nil if not found.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs of a user, newest first. A zero
// telegramID lists runs of every user.
func (s *SQLiteStore) ListRuns(telegramID int64, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	var (
		rows *sql.Rows
		err  error
	)
	if telegramID == 0 {
		rows, err = s.db.Query(
			`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT `+runColumns+` FROM runs WHERE telegram_id = ? ORDER BY created_at DESC LIMIT ?`,
			telegramID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

const runColumns = `id, telegram_id, product_file, category_file, target_depth,
	status, input_rows, output_rows, error, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var (
		run          Run
		categoryFile sql.NullString
		errText      sql.NullString
		durationMS   int64
	)
	err := sc.Scan(&run.ID, &run.TelegramID, &run.ProductFile, &categoryFile, &run.TargetDepth,
		&run.Status, &run.InputRows, &run.OutputRows, &errText, &durationMS, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.CategoryFile = categoryFile.String
	run.Error = errText.String
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
