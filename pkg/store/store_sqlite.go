package store

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

	"github.com/ameling/kinship/pkg/relationship"
)

// SQLiteStore is the canonical persistent relationship-state storage. Each
// pair is one row: a JSON state document plus denormalized columns for
// inspection queries and a version column for optimistic concurrency.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the relationship database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process service. Use one shared connection to avoid writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS relationship_pairs (
			user_id TEXT NOT NULL,
			companion_id TEXT NOT NULL,
			state_json TEXT NOT NULL,
			affection INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			tier TEXT NOT NULL DEFAULT 'stranger',
			version INTEGER NOT NULL DEFAULT 1,
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL,
			PRIMARY KEY(user_id, companion_id)
		);`,
		`CREATE INDEX IF NOT EXISTS pairs_updated_idx ON relationship_pairs(updated_at_ms DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(sql string) string {
	line := strings.TrimSpace(sql)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

// Load returns the stored state for the pair, or relationship.ErrPairNotFound.
func (s *SQLiteStore) Load(ctx context.Context, pair relationship.PairID) (*relationship.State, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT state_json, version
FROM relationship_pairs
WHERE user_id = ? AND companion_id = ?`, pair.UserID, pair.CompanionID)

	var raw string
	var version int64
	if err := row.Scan(&raw, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pair %s: %w", pair, relationship.ErrPairNotFound)
		}
		return nil, fmt.Errorf("load pair %s: %w", pair, err)
	}

	st := &relationship.State{}
	if err := json.Unmarshal([]byte(raw), st); err != nil {
		return nil, fmt.Errorf("decode pair %s: %w", pair, err)
	}
	st.Version = version
	return st, nil
}

// Save persists the state with optimistic versioning. A version of zero
// inserts a fresh row; anything else must match the stored version or the
// save fails with relationship.ErrVersionConflict. On success the in-memory
// version is advanced.
func (s *SQLiteStore) Save(ctx context.Context, st *relationship.State) error {
	if strings.TrimSpace(st.UserID) == "" || strings.TrimSpace(st.CompanionID) == "" {
		return fmt.Errorf("save pair: missing user_id/companion_id")
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode pair %s: %w", st.Pair(), err)
	}
	now := time.Now().UnixMilli()

	if st.Version == 0 {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO relationship_pairs(user_id, companion_id, state_json, affection, level, tier, version, created_at_ms, updated_at_ms)
VALUES(?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			st.UserID, st.CompanionID, string(raw),
			st.AffectionScore, st.Level, st.Tier.String(),
			now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("pair %s created concurrently: %w", st.Pair(), relationship.ErrVersionConflict)
			}
			return fmt.Errorf("insert pair %s: %w", st.Pair(), err)
		}
		st.Version = 1
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE relationship_pairs
SET state_json = ?, affection = ?, level = ?, tier = ?, version = version + 1, updated_at_ms = ?
WHERE user_id = ? AND companion_id = ? AND version = ?`,
		string(raw), st.AffectionScore, st.Level, st.Tier.String(), now,
		st.UserID, st.CompanionID, st.Version,
	)
	if err != nil {
		return fmt.Errorf("update pair %s: %w", st.Pair(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pair %s: %w", st.Pair(), err)
	}
	if affected == 0 {
		return fmt.Errorf("pair %s at version %d: %w", st.Pair(), st.Version, relationship.ErrVersionConflict)
	}
	st.Version++
	return nil
}

// ListPairs returns every stored pair id, most recently updated first.
func (s *SQLiteStore) ListPairs(ctx context.Context) ([]relationship.PairID, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, companion_id
FROM relationship_pairs
ORDER BY updated_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()

	var out []relationship.PairID
	for rows.Next() {
		var p relationship.PairID
		if err := rows.Scan(&p.UserID, &p.CompanionID); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ relationship.Store = (*SQLiteStore)(nil)
