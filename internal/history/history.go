package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"icon-sync/internal/library"
	"icon-sync/internal/logging"
	"icon-sync/internal/maintenance"
	"icon-sync/internal/metrics"
)

// FileName is the journal database inside the state directory.
const FileName = "history.db"

const defaultTimeout = 5 * time.Second

// Pass is one journaled maintenance pass.
type Pass struct {
	ID int64 `json:"id"`
	maintenance.ScanReport
}

// Collision is one journaled library collision.
type Collision struct {
	ID int64 `json:"id"`
	library.Collision
	At time.Time `json:"at"`
}

// History is the pass and collision journal.
type History struct {
	db     *sql.DB
	dbPath string
}

// Open opens (or creates) the journal at dbPath. The parent folder is created
// when missing.
func Open(ctx context.Context, dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history folder: %w", err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to history %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(4)

	h := &History{db: db, dbPath: dbPath}
	if err := h.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.Debug("History journal at %s", dbPath)
	return h, nil
}

func (h *History) initialize(ctx context.Context) error {
	start := time.Now()
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reason TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		scanned INTEGER NOT NULL DEFAULT 0,
		converted INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		orphans_removed INTEGER NOT NULL DEFAULT 0,
		normalized_moves INTEGER NOT NULL DEFAULT 0,
		collisions INTEGER NOT NULL DEFAULT 0,
		failure TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started_at);

	CREATE TABLE IF NOT EXISTS collisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		op TEXT NOT NULL,
		incoming TEXT NOT NULL,
		desired TEXT NOT NULL,
		existing TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_collisions_created ON collisions(created_at);
	`
	_, err := h.db.ExecContext(ctx, schema)
	recordQuery("initialize_schema", start, err)
	return err
}

// Path returns the journal file.
func (h *History) Path() string {
	return h.dbPath
}

// Close closes the journal.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordPass appends r to the journal.
func (h *History) RecordPass(ctx context.Context, r maintenance.ScanReport) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := h.db.ExecContext(ctx, `
	INSERT INTO passes (reason, started_at, duration_ms, scanned, converted, errors,
		orphans_removed, normalized_moves, collisions, failure)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Reason, r.Started.UnixMilli(), r.Duration.Milliseconds(),
		r.Scanned, r.Converted, r.Errors, r.OrphanIconsRemoved, r.NormalizedMoves,
		r.Collisions, r.Failure,
	)
	recordQuery("record_pass", start, err)
	if err != nil {
		return fmt.Errorf("record pass: %w", err)
	}
	return nil
}

// RecordCollision appends c to the journal. Failures are logged, never
// returned, so the writer can keep going.
func (h *History) RecordCollision(c library.Collision) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := h.db.ExecContext(ctx, `
	INSERT INTO collisions (op, incoming, desired, existing, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		c.Op, c.Incoming, c.Desired, c.Existing, time.Now().UnixMilli(),
	)
	recordQuery("record_collision", start, err)
	if err != nil {
		logging.Error("history: failed to record collision: %v", err)
	}
}

// RecentPasses returns up to limit passes, newest first.
func (h *History) RecentPasses(ctx context.Context, limit int) ([]Pass, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := h.db.QueryContext(ctx, `
	SELECT id, reason, started_at, duration_ms, scanned, converted, errors,
		orphans_removed, normalized_moves, collisions, failure
	FROM passes ORDER BY started_at DESC, id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		recordQuery("recent_passes", start, err)
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Error("failed to close rows: %v", closeErr)
		}
	}()

	var passes []Pass
	for rows.Next() {
		var p Pass
		var startedMs, durationMs int64
		if err := rows.Scan(&p.ID, &p.Reason, &startedMs, &durationMs, &p.Scanned,
			&p.Converted, &p.Errors, &p.OrphanIconsRemoved, &p.NormalizedMoves,
			&p.Collisions, &p.Failure); err != nil {
			recordQuery("recent_passes", start, err)
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		p.Started = time.UnixMilli(startedMs)
		p.Duration = time.Duration(durationMs) * time.Millisecond
		passes = append(passes, p)
	}
	err = rows.Err()
	recordQuery("recent_passes", start, err)
	return passes, err
}

// RecentCollisions returns up to limit collisions, newest first.
func (h *History) RecentCollisions(ctx context.Context, limit int) ([]Collision, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := h.db.QueryContext(ctx, `
	SELECT id, op, incoming, desired, existing, created_at
	FROM collisions ORDER BY created_at DESC, id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		recordQuery("recent_collisions", start, err)
		return nil, fmt.Errorf("query collisions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Error("failed to close rows: %v", closeErr)
		}
	}()

	var out []Collision
	for rows.Next() {
		var c Collision
		var at int64
		if err := rows.Scan(&c.ID, &c.Op, &c.Incoming, &c.Desired, &c.Existing, &at); err != nil {
			recordQuery("recent_collisions", start, err)
			return nil, fmt.Errorf("scan collision: %w", err)
		}
		c.At = time.UnixMilli(at)
		out = append(out, c)
	}
	err = rows.Err()
	recordQuery("recent_collisions", start, err)
	return out, err
}

// DefaultLimit is used when a caller asks for a non-positive number of rows.
const DefaultLimit = 20

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > 1000:
		return 1000
	}
	return limit
}

func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
