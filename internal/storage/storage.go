// Package storage provides the SQLite archive: a reporting surface that
// records ingested error groups and terminal job outcomes. It is not the
// source of truth for resumability (the per-combination state documents
// are); dropping the archive loses reports, never completed work.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pawtograder/triage/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS error_groups (
	fingerprint    TEXT PRIMARY KEY,
	canonical_key  TEXT NOT NULL,
	category_id    TEXT NOT NULL,
	category_name  TEXT NOT NULL,
	clean_text     TEXT NOT NULL,
	count          INTEGER NOT NULL,
	submissions    INTEGER NOT NULL,
	test_name      TEXT NOT NULL,
	example        TEXT,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS job_outcomes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	model        TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	detail       TEXT,
	recorded_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_combo
	ON job_outcomes(model, strategy, fingerprint);
`

// Archive is a SQLite-backed store of groups and outcomes.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path with WAL
// mode for concurrent writers.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// UpsertGroups writes the current grouping snapshot. Existing fingerprints
// are replaced: counts reflect the latest ingest, not a running total.
func (a *Archive) UpsertGroups(ctx context.Context, groups []*types.ErrorGroup) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO error_groups
		(fingerprint, canonical_key, category_id, category_name, clean_text,
		 count, submissions, test_name, example, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, g := range groups {
		example := ""
		if len(g.Examples) > 0 {
			example = g.Examples[0]
		}
		if _, err := stmt.ExecContext(ctx,
			g.Fingerprint, g.CanonicalKey, g.CategoryID, g.CategoryName,
			g.CleanText, g.Count, len(g.SubmissionIDs),
			g.RepresentativeTest(), example, now,
		); err != nil {
			return fmt.Errorf("failed to upsert group %s: %w", g.Fingerprint, err)
		}
	}
	return tx.Commit()
}

// RecordOutcome implements processor.OutcomeRecorder.
func (a *Archive) RecordOutcome(combo types.Combination, fingerprint string, outcome types.JobOutcome, detail string) error {
	_, err := a.db.Exec(`
		INSERT INTO job_outcomes (model, strategy, fingerprint, outcome, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		combo.Model, combo.Strategy, fingerprint, string(outcome), detail, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// GroupRow is one archived group as returned by TopGroups.
type GroupRow struct {
	Fingerprint  string
	CategoryID   string
	CategoryName string
	CleanText    string
	Count        int
	Submissions  int
	TestName     string
}

// TopGroups returns archived groups ordered by descending count. limit <= 0
// returns all.
func (a *Archive) TopGroups(ctx context.Context, limit int) ([]GroupRow, error) {
	query := `
		SELECT fingerprint, category_id, category_name, clean_text, count, submissions, test_name
		FROM error_groups ORDER BY count DESC, fingerprint ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var out []GroupRow
	for rows.Next() {
		var r GroupRow
		if err := rows.Scan(&r.Fingerprint, &r.CategoryID, &r.CategoryName,
			&r.CleanText, &r.Count, &r.Submissions, &r.TestName); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OutcomeCounts returns per-outcome totals for one combination.
func (a *Archive) OutcomeCounts(ctx context.Context, combo types.Combination) (map[types.JobOutcome]int, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM job_outcomes
		WHERE model = ? AND strategy = ?
		GROUP BY outcome`, combo.Model, combo.Strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.JobOutcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		counts[types.JobOutcome(outcome)] = n
	}
	return counts, rows.Err()
}
