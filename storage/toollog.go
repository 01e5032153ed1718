// Package storage keeps local, per-user state in the data directory.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ToolInvocation is one executed tool call as recorded in the audit log.
type ToolInvocation struct {
	ID          string
	Tool        string
	OK          bool
	Duration    time.Duration
	OutputBytes int
	Summary     string // First line of the tool output
	CreatedAt   time.Time
}

// ToolLog is a SQLite-backed audit log of tool invocations.
type ToolLog struct {
	db *sql.DB
	mu sync.Mutex
}

func NewToolLog(dataDir string) (*ToolLog, error) {
	return OpenToolLog(filepath.Join(dataDir, "tools.db"))
}

// OpenToolLog opens (or creates) the log at dbPath. ":memory:" is accepted.
func OpenToolLog(dbPath string) (*ToolLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log := &ToolLog{db: db}
	if err := log.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return log, nil
}

func (l *ToolLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_invocations (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		ok INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		output_bytes INTEGER NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tool_invocations_created ON tool_invocations(created_at);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Record appends inv, filling in ID and CreatedAt when unset.
func (l *ToolLog) Record(ctx context.Context, inv ToolInvocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	query := `
	INSERT INTO tool_invocations (id, tool, ok, duration_ms, output_bytes, summary, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		inv.ID,
		inv.Tool,
		inv.OK,
		inv.Duration.Milliseconds(),
		inv.OutputBytes,
		inv.Summary,
		inv.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s invocation: %w", inv.Tool, err)
	}
	return nil
}

// Recent returns up to limit invocations, newest first.
func (l *ToolLog) Recent(ctx context.Context, limit int) ([]ToolInvocation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT id, tool, ok, duration_ms, output_bytes, summary, created_at
	FROM tool_invocations
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToolInvocation
	for rows.Next() {
		var (
			inv        ToolInvocation
			durationMS int64
		)
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.OK, &durationMS, &inv.OutputBytes, &inv.Summary, &inv.CreatedAt); err != nil {
			return nil, err
		}
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, inv)
	}

	return out, rows.Err()
}

type ToolStats struct {
	Calls    int
	Failures int
}

// Stats returns invocation and failure counts per tool.
func (l *ToolLog) Stats(ctx context.Context) (map[string]ToolStats, error) {
	rows, err := l.db.QueryContext(ctx, `
	SELECT tool, COUNT(*), SUM(CASE WHEN ok THEN 0 ELSE 1 END)
	FROM tool_invocations
	GROUP BY tool
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]ToolStats)
	for rows.Next() {
		var (
			tool          string
			total, failed int
		)
		if err := rows.Scan(&tool, &total, &failed); err != nil {
			return nil, err
		}
		stats[tool] = ToolStats{Calls: total, Failures: failed}
	}
	return stats, rows.Err()
}

func (l *ToolLog) Close() error {
	return l.db.Close()
}
