// Package store persists evaluation runs to SQLite so results can be compared across runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"callqa/internal/batch"
	"callqa/internal/evaluator"
	"callqa/internal/verdict"
)

// ErrRunNotFound is returned when a run id is not in the database
var ErrRunNotFound = errors.New("run not found")

// Store wraps SQLite access for runs and their evaluations
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// RunSummary describes one stored run
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Calls      int
	Judged     int
	Terminated int
}

// Open opens or creates the database at path and applies the schema
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database %s: %w", path, err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger.With(zap.String("component", "store"))}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate results database: %w", err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMP,
			finished_at TIMESTAMP,
			calls INTEGER,
			judged INTEGER,
			terminated INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			run_id TEXT,
			position INTEGER,
			call_id TEXT,
			last_stage TEXT,
			last_status TEXT,
			judged INTEGER,
			PRIMARY KEY (run_id, call_id)
		);`,
		`CREATE TABLE IF NOT EXISTS verdicts (
			run_id TEXT,
			call_id TEXT,
			criterion TEXT,
			score REAL,
			reasoning TEXT,
			probability TEXT,
			evidence_snippet TEXT,
			PRIMARY KEY (run_id, call_id, criterion)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_criterion ON verdicts(criterion);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a completed run in a single transaction. Calls appear in the
// order of the run's result; overwritten duplicates keep their final verdicts.
func (s *Store) SaveRun(ctx context.Context, run *batch.Run) error {
	if run == nil || run.Result == nil {
		return fmt.Errorf("run cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	latest := make(map[string]evaluator.Evaluation, len(run.Evaluations))
	for _, eval := range run.Evaluations {
		latest[eval.CallID] = eval
	}

	var judged, terminated int
	for pos, callID := range run.Result.CallIDs() {
		eval := latest[callID]
		set, _ := run.Result.Get(callID)

		var lastStage, lastStatus string
		if n := len(eval.Stages); n > 0 {
			lastStage, lastStatus = string(eval.Stages[n-1].Stage), string(eval.Stages[n-1].Status)
		}
		if eval.Judged() {
			judged++
		}
		if eval.Terminated() {
			terminated++
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO evaluations(run_id, position, call_id, last_stage, last_status, judged) VALUES(?,?,?,?,?,?)`,
			run.ID, pos, callID, lastStage, lastStatus, eval.Judged()); err != nil {
			return fmt.Errorf("failed to insert evaluation %s: %w", callID, err)
		}
		for key, v := range set {
			if _, err := tx.ExecContext(ctx, `INSERT INTO verdicts(run_id, call_id, criterion, score, reasoning, probability, evidence_snippet) VALUES(?,?,?,?,?,?,?)`,
				run.ID, callID, key, v.Score, v.Reasoning, string(v.Probability), v.EvidenceSnippet); err != nil {
				return fmt.Errorf("failed to insert verdict %s/%s: %w", callID, key, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, started_at, finished_at, calls, judged, terminated) VALUES(?,?,?,?,?,?)`,
		run.ID, run.Started.UTC(), run.Finished.UTC(), run.Result.Len(), judged, terminated); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Info("run stored", zap.String("run_id", run.ID), zap.Int("calls", run.Result.Len()))
	return nil
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, calls, judged, terminated FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Calls, &r.Judged, &r.Terminated); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadResult rebuilds the ordered result of a stored run
func (s *Store) LoadResult(ctx context.Context, runID string) (*verdict.Result, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE run_id=?`, runID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT e.call_id, v.criterion, v.score, v.reasoning, v.probability, v.evidence_snippet
		FROM evaluations e LEFT JOIN verdicts v ON v.run_id = e.run_id AND v.call_id = e.call_id
		WHERE e.run_id=? ORDER BY e.position ASC, v.criterion ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := verdict.NewResult()
	for rows.Next() {
		var callID string
		var key, reasoning, probability, evidence sql.NullString
		var score sql.NullFloat64
		if err := rows.Scan(&callID, &key, &score, &reasoning, &probability, &evidence); err != nil {
			return nil, err
		}
		set, ok := result.Get(callID)
		if !ok {
			set = verdict.Set{}
			result.Put(callID, set)
		}
		if key.Valid {
			set[key.String] = verdict.Verdict{
				Score:           score.Float64,
				Reasoning:       reasoning.String,
				Probability:     verdict.Confidence(probability.String),
				EvidenceSnippet: evidence.String,
			}
		}
	}
	return result, rows.Err()
}

// Health returns err if DB not reachable
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
