package seen

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the life list in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates its schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS seen_species (
			position INTEGER PRIMARY KEY,
			common_name TEXT NOT NULL UNIQUE,
			latin_name TEXT NOT NULL DEFAULT '',
			synced_utc TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sync_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			total INTEGER NOT NULL,
			synced_utc TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// List returns the stored list in its persisted order.
func (s *SQLiteStore) List(ctx context.Context) ([]Species, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT common_name, latin_name FROM seen_species ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query seen species: %w", err)
	}
	defer rows.Close()

	var out []Species
	for rows.Next() {
		var sp Species
		if err := rows.Scan(&sp.CommonName, &sp.LatinName); err != nil {
			return nil, fmt.Errorf("scan seen species: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen species: %w", err)
	}
	return out, nil
}

// Replace swaps the stored list in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, list []Species) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_species`); err != nil {
		return fmt.Errorf("clear seen species: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_species (position, common_name, latin_name, synced_utc) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, sp := range list {
		if _, err := stmt.ExecContext(ctx, i, sp.CommonName, sp.LatinName, now); err != nil {
			return fmt.Errorf("insert %q: %w", sp.CommonName, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sync_history (total, synced_utc) VALUES (?, ?)`, len(list), now); err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LastSync returns the time and size of the latest sync. ok is false before the first one.
func (s *SQLiteStore) LastSync(ctx context.Context) (at time.Time, total int, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT total, synced_utc FROM sync_history ORDER BY id DESC LIMIT 1`).Scan(&total, &raw)
	if err == sql.ErrNoRows {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("query sync history: %w", err)
	}
	at, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("parse sync time %q: %w", raw, err)
	}
	return at, total, true, nil
}
