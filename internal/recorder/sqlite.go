package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"StockScanner/internal/scan"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			job         TEXT NOT NULL,
			kind        TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			scanned     INTEGER,
			results     INTEGER,
			failures    INTEGER,
			cancelled   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_matches (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   INTEGER NOT NULL REFERENCES scan_runs(id),
			symbol   TEXT NOT NULL,
			scanner  TEXT NOT NULL,
			sort_key REAL,
			close    REAL,
			snapshot TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_symbol ON scan_matches(symbol)`,

		`CREATE TABLE IF NOT EXISTS score_results (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             INTEGER NOT NULL REFERENCES scan_runs(id),
			symbol             TEXT NOT NULL,
			score              INTEGER,
			fundamental_points INTEGER,
			technical_points   INTEGER,
			recommendation     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_symbol ON score_results(symbol)`,

		`CREATE TABLE IF NOT EXISTS screen_hits (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   INTEGER NOT NULL REFERENCES scan_runs(id),
			symbol   TEXT NOT NULL,
			screen   TEXT NOT NULL,
			sort_key REAL
		)`,

		`CREATE TABLE IF NOT EXISTS scan_failures (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       INTEGER NOT NULL REFERENCES scan_runs(id),
			symbol       TEXT NOT NULL,
			insufficient INTEGER,
			error        TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores one report and everything it collected in a single
// transaction and returns the run id.
func (r *SQLiteRecorder) RecordRun(job string, report *scan.Report) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO scan_runs
		(job, kind, started_at, finished_at, scanned, results, failures, cancelled)
		VALUES (?,?,?,?,?,?,?,?)`,
		job, report.Kind, report.StartedAt.Unix(), report.FinishedAt.Unix(),
		report.Scanned, report.Len(), len(report.Failures), report.Cancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, m := range report.Matches {
		snapshot, err := json.Marshal(m.Snapshot)
		if err != nil {
			return 0, fmt.Errorf("marshal snapshot %s: %w", m.Symbol, err)
		}
		last, ok := m.Snapshot["close"]
		if _, err := tx.Exec(`INSERT INTO scan_matches (run_id, symbol, scanner, sort_key, close, snapshot)
			VALUES (?,?,?,?,?,?)`,
			runID, m.Symbol, m.Scanner, m.SortKey, sql.NullFloat64{Float64: last, Valid: ok}, string(snapshot),
		); err != nil {
			return 0, fmt.Errorf("insert match %s: %w", m.Symbol, err)
		}
	}
	for _, s := range report.Scores {
		if _, err := tx.Exec(`INSERT INTO score_results
			(run_id, symbol, score, fundamental_points, technical_points, recommendation)
			VALUES (?,?,?,?,?,?)`,
			runID, s.Symbol, s.Score, s.FundamentalPoints, s.TechnicalPoints, string(s.Recommendation),
		); err != nil {
			return 0, fmt.Errorf("insert score %s: %w", s.Symbol, err)
		}
	}
	for _, h := range report.Hits {
		if _, err := tx.Exec(`INSERT INTO screen_hits (run_id, symbol, screen, sort_key) VALUES (?,?,?,?)`,
			runID, h.Symbol, string(h.Screen), h.SortKey,
		); err != nil {
			return 0, fmt.Errorf("insert hit %s: %w", h.Symbol, err)
		}
	}
	for _, f := range report.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err := tx.Exec(`INSERT INTO scan_failures (run_id, symbol, insufficient, error) VALUES (?,?,?,?)`,
			runID, f.Symbol, f.Insufficient, msg,
		); err != nil {
			return 0, fmt.Errorf("insert failure %s: %w", f.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
