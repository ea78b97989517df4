package output

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/lootsim"

	_ "modernc.org/sqlite"
)

// SQLiteWriter stores a batch as three tables: runs, spheres and
// found_items. The whole batch is one transaction; a batch that fails
// before Close leaves no rows behind.
type SQLiteWriter struct {
	cat *catalog.Catalog
	db  *sql.DB
	tx  *sql.Tx

	insertRun    *sql.Stmt
	insertSphere *sql.Stmt
	insertItem   *sql.Stmt

	runs int
}

// NewSQLiteWriter creates (or replaces) the database at path.
func NewSQLiteWriter(path string, cat *catalog.Catalog) (*SQLiteWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &SQLiteWriter{cat: cat, db: db}
	if err := s.begin(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE runs (
			run INTEGER PRIMARY KEY,
			player_count INTEGER NOT NULL
		)`,
		`CREATE TABLE spheres (
			run INTEGER NOT NULL REFERENCES runs(run),
			sphere INTEGER NOT NULL,
			color TEXT NOT NULL,
			item_count INTEGER NOT NULL,
			PRIMARY KEY (run, sphere)
		)`,
		`CREATE TABLE found_items (
			run INTEGER NOT NULL REFERENCES runs(run),
			sphere INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			item_name TEXT NOT NULL,
			PRIMARY KEY (run, sphere, slot),
			UNIQUE (run, item_id)
		)`,
		`CREATE INDEX idx_found_items_item ON found_items(item_id)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteWriter) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	s.tx = tx
	prepare := func(q string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var st *sql.Stmt
		st, err = tx.Prepare(q)
		return st
	}
	s.insertRun = prepare(`INSERT INTO runs (run, player_count) VALUES (?, ?)`)
	s.insertSphere = prepare(`INSERT INTO spheres (run, sphere, color, item_count) VALUES (?, ?, ?, ?)`)
	s.insertItem = prepare(`INSERT INTO found_items (run, sphere, slot, item_id, item_name) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare statements: %w", err)
	}
	return nil
}

func (s *SQLiteWriter) WriteRun(run lootsim.Run) error {
	id := s.runs
	if _, err := s.insertRun.Exec(id, run.PlayerCount); err != nil {
		return fmt.Errorf("insert run %d: %w", id, err)
	}
	for t, color := range run.Spheres {
		items := run.SphereItems(t)
		if _, err := s.insertSphere.Exec(id, t, color.String(), len(items)); err != nil {
			return fmt.Errorf("insert run %d sphere %d: %w", id, t, err)
		}
		for slot, item := range items {
			if _, err := s.insertItem.Exec(id, t, slot, item, s.cat.Name(item)); err != nil {
				return fmt.Errorf("insert run %d item %d: %w", id, item, err)
			}
		}
	}
	s.runs++
	return nil
}

// Abort discards the batch and closes the database.
func (s *SQLiteWriter) Abort() error {
	rbErr := s.tx.Rollback()
	if err := s.db.Close(); err != nil {
		return err
	}
	return rbErr
}

// Close commits the batch.
func (s *SQLiteWriter) Close() error {
	if err := s.tx.Commit(); err != nil {
		s.db.Close()
		return fmt.Errorf("commit batch: %w", err)
	}
	return s.db.Close()
}
