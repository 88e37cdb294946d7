// Package maintenance implements incremental maintenance (C13): streaming
// scan-and-fix passes over already-stored metadata, rollback snapshots, and
// a periodic health report, all without rebuilding the vector index.
package maintenance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"turnindex/internal/index"
	"turnindex/internal/types"
)

// IssueKind names one of the predicates `Scan` knows how to check.
type IssueKind string

const (
	IssueOutOfRange       IssueKind = "out_of_range"
	IssueMissingField     IssueKind = "missing_field"
	IssueMissingChainLink IssueKind = "missing_chain_link"
)

// Issue is one (id, field, current, expected) finding from Scan.
type Issue struct {
	ID        string
	Field     string
	Current   string
	Expected  string
	// Patchable reports whether Apply can repair this issue by writing
	// Expected back as the field's value. missing_chain_link issues are not
	// patchable this way: closing them requires re-running C9 over the
	// turn's session, not a single-field substitution.
	Patchable bool
}

// clampField is one of the five numeric fields spec.md §4.13 enumerates
// fixed clamp bounds for.
type clampField struct {
	name     string
	min, max float64
}

var clampFields = []clampField{
	{"solution_quality_score", types.MinSolutionQuality, types.MaxSolutionQuality},
	{"validation_strength", types.MinValidationStrength, types.MaxValidationStrength},
	{"topic_confidence", types.MinTopicConfidence, types.MaxTopicConfidence},
	{"outcome_certainty", types.MinOutcomeCertainty, types.MaxOutcomeCertainty},
	{"realtime_learning_boost", types.MinRealtimeLearningBoost, types.MaxRealtimeLearningBoost},
}

// IndexStore is the subset of C10 that C13 scans and repairs. Satisfied by
// *internal/index.Index.
type IndexStore interface {
	Iterate(ctx context.Context, filter map[string]string, batchSize int, fn func([]index.Record) error) error
	Get(ctx context.Context, ids []string) ([]index.Record, error)
	UpdateMetadata(ctx context.Context, ids []string, metadatas []map[string]string) error
	Count() int
}

// Maintainer runs C13's scan/apply/snapshot/rollback/health_report
// operations over one IndexStore, with its own SQLite-backed rollback log.
type Maintainer struct {
	index IndexStore
	db    *sql.DB

	snapshotSeq atomic.Int64
}

// Open constructs a Maintainer, opening (and creating if absent) the
// rollback log at dbPath. An empty dbPath opens an in-memory log, useful
// for tests or a process that never needs to survive a restart to roll
// back.
func Open(idx IndexStore, dbPath string) (*Maintainer, error) {
	dsn := dbPath
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("maintenance: open snapshot log: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("maintenance: ping snapshot log: %w", err)
	}
	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Maintainer{index: idx, db: db}, nil
}

// Close releases the rollback log's database handle.
func (m *Maintainer) Close() error {
	return m.db.Close()
}

// Scan streams the whole index looking for issues of kind.
func (m *Maintainer) Scan(ctx context.Context, kind IssueKind) ([]Issue, error) {
	var issues []Issue
	err := m.index.Iterate(ctx, nil, 0, func(batch []index.Record) error {
		for _, rec := range batch {
			switch kind {
			case IssueOutOfRange:
				issues = append(issues, scanOutOfRange(rec)...)
			case IssueMissingField:
				issues = append(issues, scanMissingField(rec)...)
			case IssueMissingChainLink:
				if iss, ok := scanMissingChainLink(rec); ok {
					issues = append(issues, iss)
				}
			}
		}
		return nil
	})
	return issues, err
}

func scanOutOfRange(rec index.Record) []Issue {
	var out []Issue
	for _, cf := range clampFields {
		raw, ok := rec.Metadata[cf.name]
		if !ok || raw == "" {
			continue
		}
		v, err := parseFloatField(raw)
		if err != nil {
			continue
		}
		if v < cf.min || v > cf.max {
			out = append(out, Issue{
				ID:        rec.ID,
				Field:     cf.name,
				Current:   raw,
				Expected:  formatFloatField(types.Clamp(v, cf.min, cf.max)),
				Patchable: true,
			})
		}
	}
	return out
}

// scanMissingField checks for the documented defaults spec.md §3.2 names:
// a missing content_hash (re-derivable from content) and a missing
// realtime_learning_boost (defaults to the neutral constant).
func scanMissingField(rec index.Record) []Issue {
	var out []Issue
	if rec.Metadata["content_hash"] == "" {
		out = append(out, Issue{
			ID: rec.ID, Field: "content_hash", Current: "",
			Expected: types.ContentHash(rec.Content), Patchable: true,
		})
	}
	if rec.Metadata["realtime_learning_boost"] == "" {
		out = append(out, Issue{
			ID: rec.ID, Field: "realtime_learning_boost", Current: "",
			Expected: formatFloatField(types.DefaultRealtimeLearningBoost), Patchable: true,
		})
	}
	return out
}

// scanMissingChainLink flags a solution attempt that was never paired with
// a feedback turn, a population gap C9's back-fill (or C12, asynchronously)
// closes — not a value Apply can patch directly.
func scanMissingChainLink(rec index.Record) (Issue, bool) {
	if rec.Metadata["role"] != string(types.RoleAssistant) {
		return Issue{}, false
	}
	if rec.Metadata["is_solution_attempt"] != "true" {
		return Issue{}, false
	}
	if rec.Metadata["feedback_turn_id"] != "" {
		return Issue{}, false
	}
	return Issue{ID: rec.ID, Field: "feedback_turn_id", Current: "", Patchable: false}, true
}

// Apply builds patched metadata for every patchable issue and, unless
// dryRun, writes it back through UpdateMetadata in one batched call.
// Returns the number of records that were (or, under dryRun, would be)
// patched.
func (m *Maintainer) Apply(ctx context.Context, issues []Issue, dryRun bool) (int, error) {
	byID := make(map[string][]Issue)
	var order []string
	for _, iss := range issues {
		if !iss.Patchable {
			continue
		}
		if _, seen := byID[iss.ID]; !seen {
			order = append(order, iss.ID)
		}
		byID[iss.ID] = append(byID[iss.ID], iss)
	}
	if len(order) == 0 {
		return 0, nil
	}

	records, err := m.index.Get(ctx, order)
	if err != nil {
		return 0, fmt.Errorf("maintenance: fetch records to patch: %w", err)
	}
	byRecordID := make(map[string]index.Record, len(records))
	for _, r := range records {
		byRecordID[r.ID] = r
	}

	var ids []string
	var metadatas []map[string]string
	for _, id := range order {
		rec, ok := byRecordID[id]
		if !ok {
			continue
		}
		meta := cloneMeta(rec.Metadata)
		for _, iss := range byID[id] {
			meta[iss.Field] = iss.Expected
		}
		ids = append(ids, id)
		metadatas = append(metadatas, meta)
	}

	if dryRun || len(ids) == 0 {
		return len(ids), nil
	}
	if err := m.index.UpdateMetadata(ctx, ids, metadatas); err != nil {
		return 0, fmt.Errorf("maintenance: apply patched metadata: %w", err)
	}
	return len(ids), nil
}

// Snapshot persists the current metadata of every id to the rollback log
// and returns a handle that Rollback can later use to restore it.
func (m *Maintainer) Snapshot(ctx context.Context, ids []string) (string, error) {
	records, err := m.index.Get(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("maintenance: fetch records to snapshot: %w", err)
	}

	handle := fmt.Sprintf("snap-%d-%d", time.Now().UnixNano(), m.snapshotSeq.Add(1))

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("maintenance: begin snapshot: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshots (handle, turn_id, metadata, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("maintenance: prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, rec := range records {
		blob, err := json.Marshal(rec.Metadata)
		if err != nil {
			return "", fmt.Errorf("maintenance: marshal metadata for %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, handle, rec.ID, string(blob), now); err != nil {
			return "", fmt.Errorf("maintenance: insert snapshot row for %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("maintenance: commit snapshot: %w", err)
	}
	return handle, nil
}

// Rollback restores every id captured under handle to its snapshotted
// metadata.
func (m *Maintainer) Rollback(ctx context.Context, handle string) error {
	rows, err := m.db.QueryContext(ctx, `SELECT turn_id, metadata FROM snapshots WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("maintenance: query snapshot %s: %w", handle, err)
	}
	defer rows.Close()

	var ids []string
	var metadatas []map[string]string
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("maintenance: scan snapshot row: %w", err)
		}
		var meta map[string]string
		if err := json.Unmarshal([]byte(blob), &meta); err != nil {
			return fmt.Errorf("maintenance: unmarshal snapshot metadata for %s: %w", id, err)
		}
		ids = append(ids, id)
		metadatas = append(metadatas, meta)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("maintenance: read snapshot rows: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("maintenance: no snapshot found for handle %s", handle)
	}

	return m.index.UpdateMetadata(ctx, ids, metadatas)
}

func cloneMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func parseFloatField(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%g", &v)
	return v, err
}

func formatFloatField(v float64) string {
	return fmt.Sprintf("%g", v)
}

// sortedKeys is a small helper used by HealthReport to produce
// deterministic field ordering.
func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
