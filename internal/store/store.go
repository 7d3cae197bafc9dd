// Package store persists exploration state in SQLite: arm statistics
// write-through, terminal experiment history, and the telemetry event log.
// The in-memory structures remain the source of truth while the process
// runs; the database exists for warm starts and offline inspection.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS arm_stats (
	arm_id        TEXT PRIMARY KEY,
	pulls         INTEGER NOT NULL,
	successes     INTEGER NOT NULL,
	failures      INTEGER NOT NULL,
	total_reward  REAL NOT NULL,
	alpha         REAL NOT NULL,
	beta          REAL NOT NULL,
	last_pulled   TEXT,
	ucb_score     REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS experiment_history (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	hypothesis_id  TEXT NOT NULL,
	type           TEXT NOT NULL,
	target_area    TEXT NOT NULL,
	description    TEXT NOT NULL,
	status         TEXT NOT NULL,
	result_json    TEXT,
	generated_at   TEXT NOT NULL,
	finished_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_type ON experiment_history(type, target_area);

CREATE TABLE IF NOT EXISTS event_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type     TEXT NOT NULL,
	hypothesis_id  TEXT,
	arm_id         TEXT,
	reason         TEXT,
	fields_json    TEXT,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_type ON event_log(event_type);

CREATE TABLE IF NOT EXISTS domain_novelty (
	domain  TEXT PRIMARY KEY,
	score   REAL NOT NULL
);
`

// #endregion schema

// #region store-struct

// Store wraps the exploration SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection for sibling stores (artifacts, finding graph).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store-struct

// #region arm-stats

// SaveArm upserts one arm's statistics.
func (s *Store) SaveArm(a bandit.ArmStats) error {
	lastPulled := ""
	if !a.LastPulled.IsZero() {
		lastPulled = a.LastPulled.Format(time.RFC3339Nano)
	}
	_, err := s.db.Exec(`
		INSERT INTO arm_stats (arm_id, pulls, successes, failures, total_reward, alpha, beta, last_pulled, ucb_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(arm_id) DO UPDATE SET
			pulls=excluded.pulls, successes=excluded.successes, failures=excluded.failures,
			total_reward=excluded.total_reward, alpha=excluded.alpha, beta=excluded.beta,
			last_pulled=excluded.last_pulled, ucb_score=excluded.ucb_score`,
		a.ArmID, a.Pulls, a.Successes, a.Failures, a.TotalReward, a.Alpha, a.Beta, lastPulled, a.UCBScore,
	)
	if err != nil {
		return fmt.Errorf("save arm %s: %w", a.ArmID, err)
	}
	return nil
}

// LoadArms reads all persisted arm statistics.
func (s *Store) LoadArms() ([]bandit.ArmStats, error) {
	rows, err := s.db.Query(`
		SELECT arm_id, pulls, successes, failures, total_reward, alpha, beta, last_pulled, ucb_score
		FROM arm_stats ORDER BY arm_id`)
	if err != nil {
		return nil, fmt.Errorf("load arms: %w", err)
	}
	defer rows.Close()

	var out []bandit.ArmStats
	for rows.Next() {
		var a bandit.ArmStats
		var lastPulled string
		if err := rows.Scan(&a.ArmID, &a.Pulls, &a.Successes, &a.Failures,
			&a.TotalReward, &a.Alpha, &a.Beta, &lastPulled, &a.UCBScore); err != nil {
			return nil, fmt.Errorf("scan arm: %w", err)
		}
		if lastPulled != "" {
			if ts, err := time.Parse(time.RFC3339Nano, lastPulled); err == nil {
				a.LastPulled = ts
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion arm-stats

// #region history

// HistoryRow is one persisted terminal hypothesis.
type HistoryRow struct {
	HypothesisID string
	Type         string
	TargetArea   string
	Description  string
	Status       string
	Result       *hypothesis.Result
	GeneratedAt  time.Time
	FinishedAt   time.Time
}

// AppendHistory records a hypothesis that reached a terminal state.
func (s *Store) AppendHistory(h *hypothesis.Hypothesis) error {
	var resultJSON any
	if h.Result != nil {
		raw, err := json.Marshal(h.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = string(raw)
	}
	_, err := s.db.Exec(`
		INSERT INTO experiment_history
		(hypothesis_id, type, target_area, description, status, result_json, generated_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, string(h.Type), h.TargetArea, h.Description, string(h.Status),
		resultJSON,
		h.GeneratedAt.Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// RecentHistory returns up to n most recent terminal hypotheses, newest first.
func (s *Store) RecentHistory(n int) ([]HistoryRow, error) {
	rows, err := s.db.Query(`
		SELECT hypothesis_id, type, target_area, description, status, result_json, generated_at, finished_at
		FROM experiment_history ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		var resultJSON sql.NullString
		var generatedAt, finishedAt string
		if err := rows.Scan(&r.HypothesisID, &r.Type, &r.TargetArea, &r.Description,
			&r.Status, &resultJSON, &generatedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if resultJSON.Valid {
			var res hypothesis.Result
			if err := json.Unmarshal([]byte(resultJSON.String), &res); err == nil {
				r.Result = &res
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, generatedAt); err == nil {
			r.GeneratedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			r.FinishedAt = ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion history

// #region event-log

// LogEvent appends one telemetry event. Shaped as a Bus subscriber via
// s.EventSink.
func (s *Store) LogEvent(e telemetry.Event) error {
	var fieldsJSON any
	if len(e.Fields) > 0 {
		raw, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}
		fieldsJSON = string(raw)
	}
	_, err := s.db.Exec(`
		INSERT INTO event_log (event_type, hypothesis_id, arm_id, reason, fields_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Type), nullIfEmpty(e.HypothesisID), nullIfEmpty(e.ArmID),
		nullIfEmpty(e.Reason), fieldsJSON, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// EventSink adapts the store into a telemetry subscriber. Write errors are
// swallowed; the event bus must never fail the engine.
func (s *Store) EventSink() telemetry.Subscriber {
	return func(e telemetry.Event) {
		_ = s.LogEvent(e)
	}
}

// EventRow is one persisted telemetry event.
type EventRow struct {
	Type         string
	HypothesisID string
	ArmID        string
	Reason       string
	FieldsJSON   string
	CreatedAt    time.Time
}

// RecentEvents returns up to n most recent events, newest first.
func (s *Store) RecentEvents(n int) ([]EventRow, error) {
	rows, err := s.db.Query(`
		SELECT event_type, hypothesis_id, arm_id, reason, fields_json, created_at
		FROM event_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		var hid, armID, reason, fields sql.NullString
		var createdAt string
		if err := rows.Scan(&r.Type, &hid, &armID, &reason, &fields, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.HypothesisID = hid.String
		r.ArmID = armID.String
		r.Reason = reason.String
		r.FieldsJSON = fields.String
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion event-log

// #region novelty

// SaveNovelty upserts one domain's novelty score.
func (s *Store) SaveNovelty(domain string, score float64) error {
	_, err := s.db.Exec(`
		INSERT INTO domain_novelty (domain, score) VALUES (?, ?)
		ON CONFLICT(domain) DO UPDATE SET score=excluded.score`,
		domain, score,
	)
	if err != nil {
		return fmt.Errorf("save novelty %s: %w", domain, err)
	}
	return nil
}

// LoadNovelty reads all persisted novelty scores.
func (s *Store) LoadNovelty() (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT domain, score FROM domain_novelty`)
	if err != nil {
		return nil, fmt.Errorf("load novelty: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var domain string
		var score float64
		if err := rows.Scan(&domain, &score); err != nil {
			return nil, fmt.Errorf("scan novelty: %w", err)
		}
		out[domain] = score
	}
	return out, rows.Err()
}

// #endregion novelty

// #region helpers

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
