// Package state persists the history of completed agent runs.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

//go:embed migrations/001_runs.sql
var migrationV1 string

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// History implements core.HistoryRecorder with SQLite storage.
type History struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// OpenHistory opens or creates the history database at dbPath.
func OpenHistory(dbPath string) (*History, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	h := &History{dbPath: dbPath, db: db}

	if err := h.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

func (h *History) migrate() error {
	var version int
	err := h.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet.
		version = 0
	}

	if version < 1 {
		if _, err := h.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Record implements core.HistoryRecorder.
func (h *History) Record(ctx context.Context, e core.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO runs (
			execution_id, session_id, agent, model, template, tone,
			input, output, error_category, is_follow_up, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExecutionID, e.SessionID, e.Agent, e.Model, e.TemplateID, e.ToneID,
		e.Input, e.Output, string(e.ErrorCategory), boolToInt(e.IsFollowUp), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", e.ExecutionID, err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (h *History) List(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return scanRuns(rows)
}

// BySession returns every run of one conversation in chronological order.
func (h *History) BySession(ctx context.Context, sessionID string) ([]core.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.QueryContext(ctx, selectRuns+` WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing session %s: %w", sessionID, err)
	}
	return scanRuns(rows)
}

// Clear deletes every run and returns how many were removed.
func (h *History) Clear(ctx context.Context) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}
	return n, nil
}

const selectRuns = `
	SELECT execution_id, session_id, agent, model, template, tone,
	       input, output, error_category, is_follow_up, created_at
	FROM runs`

func scanRuns(rows *sql.Rows) ([]core.HistoryEntry, error) {
	defer rows.Close()

	var entries []core.HistoryEntry
	for rows.Next() {
		var (
			e        core.HistoryEntry
			category string
			followUp int
			created  int64
		)
		if err := rows.Scan(
			&e.ExecutionID, &e.SessionID, &e.Agent, &e.Model, &e.TemplateID, &e.ToneID,
			&e.Input, &e.Output, &category, &followUp, &created,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		e.ErrorCategory = core.ErrorCategory(category)
		e.IsFollowUp = followUp != 0
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
