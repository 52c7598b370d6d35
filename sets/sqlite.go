/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/Seednode/pricebox/sets/migrations"
)

const migrationTable = "schema_migrations"

// SQLiteStore persists sets in SQLite. Items are kept as a JSON column.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens (creating if needed) the database at path and applies
// embedded migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	clean := filepath.Clean(path)

	if dir := filepath.Dir(clean); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dsn := "file:" + clean + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info().Str("module", "sets").Str("path", clean).Msg("opened set database")

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Set, error) {
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}

	var (
		out       Set
		items     string
		createdAt int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, pitch_line, items, created_at, updated_at FROM game_sets WHERE id = ?`, id,
	).Scan(&out.ID, &out.Name, &out.Pitch, &items, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Set{}, ErrNotFound
	}
	if err != nil {
		return Set{}, fmt.Errorf("get set %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(items), &out.Items); err != nil {
		return Set{}, fmt.Errorf("decode items of set %d: %w", id, err)
	}
	out.CreatedAt = fromMillis(createdAt)
	out.UpdatedAt = fromMillis(updatedAt)
	return out, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, pitch_line, json_array_length(items), created_at, updated_at
		 FROM game_sets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Pitch, &sum.ItemCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan set: %w", err)
		}
		sum.CreatedAt = fromMillis(createdAt)
		sum.UpdatedAt = fromMillis(updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, d Draft) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	set := Set{
		Name:      strings.TrimSpace(d.Name),
		Pitch:     strings.TrimSpace(d.Pitch),
		Items:     slices.Clone(d.Items),
		CreatedAt: s.now(),
	}
	return insert(ctx, s.db, set)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, set Set) (int64, error) {
	if err := set.Validate(); err != nil {
		return 0, err
	}
	items, err := json.Marshal(set.Items)
	if err != nil {
		return 0, fmt.Errorf("encode items: %w", err)
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO game_sets (name, pitch_line, items, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		set.Name, set.Pitch, string(items), toMillis(set.CreatedAt), toMillis(set.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("create set: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create set: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, p Patch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		set       Set
		items     string
		createdAt int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT name, pitch_line, items, created_at FROM game_sets WHERE id = ?`, id,
	).Scan(&set.Name, &set.Pitch, &items, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load set %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(items), &set.Items); err != nil {
		return fmt.Errorf("decode items of set %d: %w", id, err)
	}

	p.apply(&set)
	if err := set.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(set.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE game_sets SET name = ?, pitch_line = ?, items = ?, updated_at = ? WHERE id = ?`,
		set.Name, set.Pitch, string(encoded), toMillis(s.now()), id,
	); err != nil {
		return fmt.Errorf("update set %d: %w", id, err)
	}
	return tx.Commit()
}

// ImportSets runs the whole batch in one transaction. New rows keep the
// CreatedAt they were exported with.
func (s *SQLiteStore) ImportSets(ctx context.Context, src []Set) ([]ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM game_sets`)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	var existing []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan set: %w", err)
		}
		existing = append(existing, sum)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	byName := firstByName(existing)

	now := s.now()
	results := make([]ImportResult, 0, len(src))
	for _, set := range src {
		if id, ok := byName[set.Name]; ok {
			if err := set.Validate(); err != nil {
				return nil, fmt.Errorf("update %q: %w", set.Name, err)
			}
			items, err := json.Marshal(set.Items)
			if err != nil {
				return nil, fmt.Errorf("encode items: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE game_sets SET pitch_line = ?, items = ?, updated_at = ? WHERE id = ?`,
				set.Pitch, string(items), toMillis(now), id,
			); err != nil {
				return nil, fmt.Errorf("update %q: %w", set.Name, err)
			}
			results = append(results, ImportResult{ID: id, Name: set.Name, Items: len(set.Items), Updated: true})
			continue
		}

		row := Set{Name: set.Name, Pitch: set.Pitch, Items: set.Items, CreatedAt: set.CreatedAt}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		id, err := insert(ctx, tx, row)
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", set.Name, err)
		}
		byName[set.Name] = id
		results = append(results, ImportResult{ID: id, Name: set.Name, Items: len(set.Items)})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return results, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM game_sets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete set %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete set %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// applyMigrations executes every *.sql file in migrationFS at most once,
// in lexical order, recording each in schema_migrations.
func applyMigrations(db *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		var one int
		err := db.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, name).Scan(&one)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		up := upSection(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
		log.Debug().Str("module", "sets").Str("migration", name).Msg("applied")
	}
	return nil
}

// upSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"

	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	content = content[start+len(up):]
	if end := strings.Index(content, down); end != -1 {
		content = content[:end]
	}
	return content
}
