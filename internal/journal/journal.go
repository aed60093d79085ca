// Package journal records the outcome of every mutating call the bridge
// makes. It never stores OmniFocus records and is never read to answer a
// query.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500
)

type Journal struct {
	database *sql.DB
	dbPath   string
}

// Entry is one journaled mutation.
type Entry struct {
	ID             int64           `json:"id"`
	CallID         string          `json:"call_id"`
	Method         string          `json:"method"`
	TargetIDs      []string        `json:"target_ids"`
	UpdatedCount   int             `json:"updated_count"`
	FailedCount    int             `json:"failed_count"`
	Failures       json.RawMessage `json:"failures,omitempty"`
	ErrorCode      string          `json:"error_code,omitempty"`
	Error          string          `json:"error,omitempty"`
	DurationMillis int64           `json:"duration_ms"`
	RecordedAt     string          `json:"recorded_at"`
}

type RecordArgs struct {
	CallID       string
	Method       string
	TargetIDs    []string
	UpdatedCount int
	FailedCount  int
	// Failures is marshalled as JSON when non-nil.
	Failures any
	Err      error
	Duration time.Duration
}

func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}
	database.SetMaxOpenConns(1)

	journal := &Journal{
		database: database,
		dbPath:   dbPath,
	}
	if err := journal.migrate(context.Background()); err != nil {
		_ = database.Close()
		return nil, err
	}
	return journal, nil
}

func (journal *Journal) Close() error {
	return journal.database.Close()
}

func (journal *Journal) DBPath() string {
	return journal.dbPath
}

func (journal *Journal) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS mutations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			call_id TEXT NOT NULL,
			method TEXT NOT NULL,
			target_ids_json TEXT NOT NULL,
			updated_count INTEGER NOT NULL DEFAULT 0,
			failed_count INTEGER NOT NULL DEFAULT 0,
			failures_json TEXT NULL,
			error TEXT NULL,
			error_code TEXT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_mutations_recorded_at ON mutations(recorded_at);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_mutations_call_id ON mutations(call_id);`,
	}
	for _, statement := range statements {
		if _, err := journal.database.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("journal migration failed: %w", err)
		}
	}
	return nil
}

// Record appends one entry and returns it as stored.
func (journal *Journal) Record(ctx context.Context, args RecordArgs) (Entry, error) {
	if strings.TrimSpace(args.CallID) == "" {
		return Entry{}, errors.New("call_id is required")
	}
	if strings.TrimSpace(args.Method) == "" {
		return Entry{}, errors.New("method is required")
	}

	targets := args.TargetIDs
	if targets == nil {
		targets = []string{}
	}
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return Entry{}, err
	}
	var failuresJSON any
	if args.Failures != nil {
		encoded, err := json.Marshal(args.Failures)
		if err != nil {
			return Entry{}, err
		}
		failuresJSON = string(encoded)
	}
	var errorText, errorCode any
	if args.Err != nil {
		errorText = args.Err.Error()
		errorCode = string(errs.CodeOf(args.Err))
	}

	result, err := journal.database.ExecContext(ctx,
		`INSERT INTO mutations(call_id, method, target_ids_json, updated_count, failed_count, failures_json, error, error_code, duration_ms, recorded_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args.CallID, args.Method, string(targetsJSON), args.UpdatedCount, args.FailedCount,
		failuresJSON, errorText, errorCode, args.Duration.Milliseconds(), nowTimestamp(),
	)
	if err != nil {
		return Entry{}, err
	}
	entryID, err := result.LastInsertId()
	if err != nil {
		return Entry{}, err
	}

	row := journal.database.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, entryID)
	return scanEntry(row)
}

// Recent returns the newest entries first. A non-positive limit means the
// default.
func (journal *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := journal.database.QueryContext(ctx, selectEntry+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const selectEntry = `SELECT id, call_id, method, target_ids_json, updated_count, failed_count, failures_json, error, error_code, duration_ms, recorded_at
	FROM mutations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(scanner rowScanner) (Entry, error) {
	var entry Entry
	var targetsJSON string
	var failures sql.NullString
	var errorText sql.NullString
	var errorCode sql.NullString
	err := scanner.Scan(
		&entry.ID,
		&entry.CallID,
		&entry.Method,
		&targetsJSON,
		&entry.UpdatedCount,
		&entry.FailedCount,
		&failures,
		&errorText,
		&errorCode,
		&entry.DurationMillis,
		&entry.RecordedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(targetsJSON), &entry.TargetIDs); err != nil {
		return Entry{}, fmt.Errorf("corrupt target ids for entry %d: %w", entry.ID, err)
	}
	if failures.Valid {
		entry.Failures = json.RawMessage(failures.String)
	}
	entry.Error = errorText.String
	entry.ErrorCode = errorCode.String
	return entry, nil
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
