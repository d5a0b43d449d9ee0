package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const DefaultSQLitePath = "showdown_bot.db"

type SQLite struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		dbPath = DefaultSQLitePath
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS battle_results (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    win INTEGER NOT NULL,
    tier TEXT NOT NULL DEFAULT '',
    played_at_ms INTEGER NOT NULL,
    log TEXT NOT NULL,
    decisions_json TEXT NOT NULL DEFAULT '[]'
)`,
		`CREATE INDEX IF NOT EXISTS idx_battle_results_played_at ON battle_results(played_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS training_samples (
    id TEXT PRIMARY KEY,
    room TEXT NOT NULL DEFAULT '',
    prev_json TEXT NOT NULL,
    next_json TEXT,
    won INTEGER,
    created_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_training_samples_room ON training_samples(room, created_at_ms)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) SaveResult(ctx context.Context, res Result) error {
	decisions, err := encodeDecisions(res.Decisions)
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO battle_results (id, title, win, tier, played_at_ms, log, decisions_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title,
    win = excluded.win,
    tier = excluded.tier,
    played_at_ms = excluded.played_at_ms,
    log = excluded.log,
    decisions_json = excluded.decisions_json
`, res.ID, res.Title, res.Win, res.Tier, res.Date.UTC().UnixMilli(), res.Log, decisions)
	if err != nil {
		return fmt.Errorf("save result %s: %w", res.ID, err)
	}
	return nil
}

func (s *SQLite) InsertSample(ctx context.Context, sample Sample) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO training_samples (id, room, prev_json, next_json, won, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
`, sample.ID, sample.Room, string(sample.Prev), nullableJSON(sample.Next), nullableBool(sample.Won), sample.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert sample %s: %w", sample.ID, err)
	}
	return nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(CASE WHEN win THEN 1 ELSE 0 END), 0)
FROM battle_results
`).Scan(&st.Played, &st.Won)
	return st, err
}

// RecentResults returns the latest results, newest first.
func (s *SQLite) RecentResults(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, win, tier, played_at_ms, log, decisions_json
FROM battle_results
ORDER BY played_at_ms DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			res       Result
			playedAt  int64
			decisions string
		)
		if err := rows.Scan(&res.ID, &res.Title, &res.Win, &res.Tier, &playedAt, &res.Log, &decisions); err != nil {
			return nil, err
		}
		res.Date = time.UnixMilli(playedAt).UTC()
		if err := json.Unmarshal([]byte(decisions), &res.Decisions); err != nil {
			return nil, fmt.Errorf("decode decisions of %s: %w", res.ID, err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// SamplesFor returns the samples recorded for a room in insertion order.
func (s *SQLite) SamplesFor(ctx context.Context, room string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, room, prev_json, next_json, won, created_at_ms
FROM training_samples
WHERE room = ?
ORDER BY created_at_ms ASC, rowid ASC
`, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			sample    Sample
			prev      string
			next      sql.NullString
			won       sql.NullBool
			createdAt int64
		)
		if err := rows.Scan(&sample.ID, &sample.Room, &prev, &next, &won, &createdAt); err != nil {
			return nil, err
		}
		sample.Prev = json.RawMessage(prev)
		if next.Valid {
			sample.Next = json.RawMessage(next.String)
		}
		if won.Valid {
			w := won.Bool
			sample.Won = &w
		}
		sample.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, sample)
	}
	return out, rows.Err()
}
