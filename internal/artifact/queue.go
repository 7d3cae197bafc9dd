// Package artifact manages experiment outputs parked for human review.
// Validated experiments may produce artifacts (prompt variants, routing
// suggestions) that only take effect after explicit approval.
package artifact

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region types

// Status of a queued artifact.
const (
	StatusQueued   = "queued"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Artifact is one reviewable experiment output.
type Artifact struct {
	ID           string
	Kind         string // "prompt_variant" | "routing_suggestion" | "capability_note"
	Content      string
	HypothesisID string
	Status       string
	CreatedAt    time.Time
	DecidedAt    time.Time
}

// Queue persists artifacts awaiting review in SQLite.
type Queue struct {
	db *sql.DB
}

// NewQueue creates the artifacts table if needed and returns a Queue.
func NewQueue(db *sql.DB) (*Queue, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		id             TEXT PRIMARY KEY,
		kind           TEXT NOT NULL,
		content        TEXT NOT NULL,
		hypothesis_id  TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'queued',
		created_at     TEXT NOT NULL,
		decided_at     TEXT
	)`)
	if err != nil {
		return nil, fmt.Errorf("create artifacts table: %w", err)
	}
	return &Queue{db: db}, nil
}

// #endregion types

// #region add

// Add queues a new artifact and returns its id.
func (q *Queue) Add(kind, content, hypothesisID string) (string, error) {
	id := uuid.NewString()
	_, err := q.db.Exec(
		`INSERT INTO artifacts (id, kind, content, hypothesis_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, content, hypothesisID, StatusQueued,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("queue artifact: %w", err)
	}
	return id, nil
}

// #endregion add

// #region decide

// Approve marks a queued artifact approved.
func (q *Queue) Approve(id string) error {
	return q.decide(id, StatusApproved)
}

// Reject marks a queued artifact rejected.
func (q *Queue) Reject(id string) error {
	return q.decide(id, StatusRejected)
}

// decide moves a queued artifact to a decided status. Deciding an already
// decided artifact is an error; decisions are final.
func (q *Queue) decide(id, status string) error {
	res, err := q.db.Exec(
		`UPDATE artifacts SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), id, StatusQueued,
	)
	if err != nil {
		return fmt.Errorf("decide artifact %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("artifact %s not queued", id)
	}
	return nil
}

// #endregion decide

// #region list

// List returns artifacts with the given status, newest first. An empty
// status returns everything.
func (q *Queue) List(status string) ([]Artifact, error) {
	query := `SELECT id, kind, content, hypothesis_id, status, created_at, decided_at
	          FROM artifacts`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var createdAt string
		var decidedAt sql.NullString
		if err := rows.Scan(&a.ID, &a.Kind, &a.Content, &a.HypothesisID, &a.Status, &createdAt, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			a.CreatedAt = ts
		}
		if decidedAt.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, decidedAt.String); err == nil {
				a.DecidedAt = ts
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion list
