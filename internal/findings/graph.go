// Package findings maintains a weighted graph linking integrated findings
// to the domains they touched and domains to each other. The cross-domain
// generator walks it to propose domain pairs with accumulated evidence of
// transfer value.
package findings

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS finding_edges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id   TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    edge_type   TEXT NOT NULL,
    weight      REAL NOT NULL DEFAULT 0.1,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    UNIQUE(source_id, target_id, edge_type)
);
CREATE INDEX IF NOT EXISTS idx_finding_edges_source ON finding_edges(source_id);
CREATE INDEX IF NOT EXISTS idx_finding_edges_target ON finding_edges(target_id);
`

// #endregion schema

// #region types

// Edge kinds used by the engine.
const (
	EdgeFindingDomain = "finding_domain" // finding node -> domain node
	EdgeDomainDomain  = "domain_domain"  // domain node -> domain node
)

// Edge is a weighted link between two nodes (findings or domains).
type Edge struct {
	ID        int64
	SourceID  string
	TargetID  string
	EdgeType  string
	Weight    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WalkResult holds an ordered path from a graph walk.
type WalkResult struct {
	IDs    []string
	Scores []float64
}

// Graph manages the finding_edges table.
type Graph struct {
	db *sql.DB
}

// NewGraph creates tables and returns a Graph.
func NewGraph(db *sql.DB) (*Graph, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("findings schema: %w", err)
	}
	return &Graph{db: db}, nil
}

// #endregion types

// #region record-finding

// RecordFinding links an integrated finding to its domain and strengthens
// domain→domain edges for every related domain the finding named.
func (g *Graph) RecordFinding(findingID, domain string, relatedDomains []string) error {
	if err := g.IncrementEdge(findingID, domain, EdgeFindingDomain, 0.5); err != nil {
		return fmt.Errorf("record finding edge: %w", err)
	}
	for _, rel := range relatedDomains {
		if rel == domain {
			continue
		}
		if err := g.IncrementEdge(domain, rel, EdgeDomainDomain, 0.1); err != nil {
			return fmt.Errorf("record domain edge: %w", err)
		}
	}
	return nil
}

// #endregion record-finding

// #region increment-edge

// IncrementEdge increases an edge's weight by delta, capped at 1.0,
// creating the edge when missing.
func (g *Graph) IncrementEdge(sourceID, targetID, edgeType string, delta float64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := g.db.Exec(
		`INSERT INTO finding_edges (source_id, target_id, edge_type, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_id, target_id, edge_type) DO UPDATE SET
		   weight = MIN(1.0, finding_edges.weight + ?),
		   updated_at = ?`,
		sourceID, targetID, edgeType, delta, now, now,
		delta, now,
	)
	return err
}

// #endregion increment-edge

// #region neighbors

// Neighbors returns edges from nodeID with weight >= minWeight, heaviest first.
func (g *Graph) Neighbors(nodeID string, minWeight float64) ([]Edge, error) {
	rows, err := g.db.Query(
		`SELECT id, source_id, target_id, edge_type, weight, created_at, updated_at
		 FROM finding_edges
		 WHERE source_id = ? AND weight >= ?
		 ORDER BY weight DESC`,
		nodeID, minWeight,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.EdgeType, &e.Weight, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// #endregion neighbors

// #region walk

// Walk performs a BFS from entryID, following edges with weight >= minWeight,
// up to maxDepth hops and maxNodes total.
func (g *Graph) Walk(entryID string, maxDepth int, minWeight float64, maxNodes int) (WalkResult, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if maxNodes <= 0 {
		maxNodes = 10
	}

	result := WalkResult{
		IDs:    []string{entryID},
		Scores: []float64{1.0},
	}
	visited := map[string]bool{entryID: true}

	type queueItem struct {
		id    string
		depth int
		score float64
	}
	queue := []queueItem{{entryID, 0, 1.0}}

	for len(queue) > 0 {
		if len(result.IDs) >= maxNodes {
			break
		}

		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		neighbors, err := g.Neighbors(current.id, minWeight)
		if err != nil {
			return result, fmt.Errorf("walk neighbors: %w", err)
		}

		for _, edge := range neighbors {
			if len(result.IDs) >= maxNodes {
				break
			}
			if visited[edge.TargetID] {
				continue
			}
			visited[edge.TargetID] = true
			cumScore := current.score * edge.Weight
			result.IDs = append(result.IDs, edge.TargetID)
			result.Scores = append(result.Scores, cumScore)
			queue = append(queue, queueItem{edge.TargetID, current.depth + 1, cumScore})
		}
	}

	return result, nil
}

// #endregion walk

// #region decay

// DecayAll applies exponential decay to edge weights by age; edges falling
// below 0.01 are deleted. Returns the number of deleted edges.
func (g *Graph) DecayAll(halfLifeHours float64) (int64, error) {
	now := time.Now().UTC()
	halfLifeSec := halfLifeHours * 3600.0

	rows, err := g.db.Query(`SELECT id, weight, updated_at FROM finding_edges`)
	if err != nil {
		return 0, err
	}

	type decayItem struct {
		id        int64
		newWeight float64
	}
	var updates []decayItem
	var deletes []int64

	for rows.Next() {
		var id int64
		var weight float64
		var updatedAt string
		if err := rows.Scan(&id, &weight, &updatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		t, _ := time.Parse(time.RFC3339, updatedAt)
		ageSec := now.Sub(t).Seconds()
		if ageSec <= 0 {
			continue
		}
		decayed := weight * math.Exp(-ageSec*math.Ln2/halfLifeSec)
		if decayed < 0.01 {
			deletes = append(deletes, id)
		} else {
			updates = append(updates, decayItem{id, decayed})
		}
	}
	rows.Close()

	nowStr := now.Format(time.RFC3339)
	for _, u := range updates {
		if _, err := g.db.Exec(`UPDATE finding_edges SET weight = ?, updated_at = ? WHERE id = ?`, u.newWeight, nowStr, u.id); err != nil {
			return 0, err
		}
	}
	for _, id := range deletes {
		if _, err := g.db.Exec(`DELETE FROM finding_edges WHERE id = ?`, id); err != nil {
			return 0, err
		}
	}

	return int64(len(deletes)), nil
}

// #endregion decay
