// Package store persists aggregated error-report rollups to a local SQLite
// database. Rows are keyed by natural keys (run, queue id, process name,
// transaction id, cause) so repeated saves of the same run are idempotent
// upserts, never duplicates.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vburojevic/errjobs/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	base_url   TEXT NOT NULL,
	query_date TEXT NOT NULL,
	UNIQUE (base_url, query_date)
);

CREATE TABLE IF NOT EXISTS queue_stats (
	run_id      INTEGER NOT NULL REFERENCES runs(run_id),
	queue_id    TEXT NOT NULL,
	error_count INTEGER NOT NULL,
	PRIMARY KEY (run_id, queue_id)
);

CREATE TABLE IF NOT EXISTS process_stats (
	run_id       INTEGER NOT NULL REFERENCES runs(run_id),
	process_name TEXT NOT NULL,
	error_count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, process_name)
);

CREATE TABLE IF NOT EXISTS process_queue_ids (
	run_id       INTEGER NOT NULL REFERENCES runs(run_id),
	process_name TEXT NOT NULL,
	queue_id     TEXT NOT NULL,
	PRIMARY KEY (run_id, process_name, queue_id)
);

CREATE TABLE IF NOT EXISTS process_accounts (
	run_id       INTEGER NOT NULL REFERENCES runs(run_id),
	process_name TEXT NOT NULL,
	account_id   TEXT NOT NULL,
	PRIMARY KEY (run_id, process_name, account_id)
);

CREATE TABLE IF NOT EXISTS process_causes (
	run_id       INTEGER NOT NULL REFERENCES runs(run_id),
	process_name TEXT NOT NULL,
	cause        TEXT NOT NULL,
	error_count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, process_name, cause)
);

CREATE TABLE IF NOT EXISTS transaction_stats (
	run_id         INTEGER NOT NULL REFERENCES runs(run_id),
	process_name   TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	error_count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, process_name, transaction_id)
);

CREATE TABLE IF NOT EXISTS transaction_causes (
	run_id         INTEGER NOT NULL REFERENCES runs(run_id),
	process_name   TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	cause          TEXT NOT NULL,
	error_count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, process_name, transaction_id, cause)
);

CREATE TABLE IF NOT EXISTS log_entries (
	run_id       INTEGER NOT NULL REFERENCES runs(run_id),
	queue_id     TEXT NOT NULL,
	log_id       TEXT NOT NULL,
	process_name TEXT,
	message      TEXT,
	created_at   TEXT,
	created_by   TEXT,
	root_cause   TEXT,
	PRIMARY KEY (run_id, queue_id, log_id)
);
`

// Store wraps the rollup database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates or opens the rollup database at path and ensures the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRun upserts the (base_url, query_date) run row and returns its id.
// Re-running the same day against the same instance reuses the run.
func (s *Store) InsertRun(baseURL, queryDate string) (int64, error) {
	var runID int64
	err := s.db.QueryRow(`
		INSERT INTO runs (base_url, query_date)
		VALUES (?, ?)
		ON CONFLICT (base_url, query_date)
		DO UPDATE SET base_url = excluded.base_url
		RETURNING run_id`,
		baseURL, queryDate,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// SaveReport upserts every rollup row of a session report under one run,
// atomically. Saving the same report twice leaves the database unchanged.
func (s *Store) SaveReport(runID int64, report domain.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for queueID, count := range report.QueueCounts {
		if _, err := tx.Exec(`
			INSERT INTO queue_stats (run_id, queue_id, error_count)
			VALUES (?, ?, ?)
			ON CONFLICT (run_id, queue_id)
			DO UPDATE SET error_count = excluded.error_count`,
			runID, queueID, count,
		); err != nil {
			return fmt.Errorf("queue stats %s: %w", queueID, err)
		}
	}

	for _, p := range report.Processes {
		if _, err := tx.Exec(`
			INSERT INTO process_stats (run_id, process_name, error_count)
			VALUES (?, ?, ?)
			ON CONFLICT (run_id, process_name)
			DO UPDATE SET error_count = excluded.error_count`,
			runID, p.Process, p.ErrorCount,
		); err != nil {
			return fmt.Errorf("process stats %s: %w", p.Process, err)
		}

		for _, queueID := range p.QueueIDs {
			if _, err := tx.Exec(`
				INSERT INTO process_queue_ids (run_id, process_name, queue_id)
				VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING`,
				runID, p.Process, queueID,
			); err != nil {
				return fmt.Errorf("process queue ids %s: %w", p.Process, err)
			}
		}

		for _, accountID := range p.AccountIDs {
			if _, err := tx.Exec(`
				INSERT INTO process_accounts (run_id, process_name, account_id)
				VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING`,
				runID, p.Process, accountID,
			); err != nil {
				return fmt.Errorf("process accounts %s: %w", p.Process, err)
			}
		}

		for cause, count := range p.Causes {
			if _, err := tx.Exec(`
				INSERT INTO process_causes (run_id, process_name, cause, error_count)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (run_id, process_name, cause)
				DO UPDATE SET error_count = excluded.error_count`,
				runID, p.Process, cause, count,
			); err != nil {
				return fmt.Errorf("process causes %s: %w", p.Process, err)
			}
		}
	}

	for _, t := range report.Transactions {
		if _, err := tx.Exec(`
			INSERT INTO transaction_stats (run_id, process_name, transaction_id, error_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (run_id, process_name, transaction_id)
			DO UPDATE SET error_count = excluded.error_count`,
			runID, t.Process, t.TransactionID, t.Count,
		); err != nil {
			return fmt.Errorf("transaction stats %s/%s: %w", t.Process, t.TransactionID, err)
		}

		for cause, count := range t.Causes {
			if _, err := tx.Exec(`
				INSERT INTO transaction_causes (run_id, process_name, transaction_id, cause, error_count)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (run_id, process_name, transaction_id, cause)
				DO UPDATE SET error_count = excluded.error_count`,
				runID, t.Process, t.TransactionID, cause, count,
			); err != nil {
				return fmt.Errorf("transaction causes %s/%s: %w", t.Process, t.TransactionID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}

	s.logger.Debug("report saved",
		zap.Int64("run_id", runID),
		zap.Int("processes", len(report.Processes)),
		zap.Int("transactions", len(report.Transactions)))
	return nil
}

// SaveAnalyses upserts the per-unit log entry rows for one run. Units
// without both a queue id and a log id are skipped: they have no natural key.
func (s *Store) SaveAnalyses(runID int64, analyses []domain.Analysis) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range analyses {
		if a.QueueID == "" || a.LogID == "" {
			continue
		}
		rootCause := ""
		if a.RootCause != nil {
			rootCause = a.RootCause.Type + ": " + a.RootCause.Message
		}
		if _, err := tx.Exec(`
			INSERT INTO log_entries (run_id, queue_id, log_id, process_name, message, created_at, created_by, root_cause)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (run_id, queue_id, log_id)
			DO UPDATE SET process_name = excluded.process_name,
			              message      = excluded.message,
			              root_cause   = excluded.root_cause`,
			runID, a.QueueID, a.LogID, a.Process, a.ErrorMessage, a.Created, a.CreatedBy, rootCause,
		); err != nil {
			return fmt.Errorf("log entry %s/%s: %w", a.QueueID, a.LogID, err)
		}
	}

	return tx.Commit()
}

// RunProcessStats reads back the per-process rollup for one run, ordered by
// error count descending then name.
func (s *Store) RunProcessStats(runID int64) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT process_name, error_count FROM process_stats WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query process stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan process stats: %w", err)
		}
		stats[name] = count
	}
	return stats, rows.Err()
}
