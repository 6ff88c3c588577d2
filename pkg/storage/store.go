// Package storage keeps the exam archive in SQLite and serves ranked,
// highlighted full-text queries over it.
//
// Exam titles, exam pages, answers and comments each have an FTS5 index kept
// in sync by triggers. Ranking uses bm25; exam titles additionally get a
// trigram similarity score through the similarity() SQL function registered
// on every connection. Highlights are produced by FTS5's highlight() with
// the caller's boundary marks and then cut into fragments by the headline
// builder.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/db"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/log"
)

var logger = log.ForService("storage")

var connectionPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 30000",
	"PRAGMA foreign_keys = ON",
	"PRAGMA cache_size = -64000", // 64MB cache
	"PRAGMA temp_store = memory",
	"PRAGMA mmap_size = 268435456", // 256MB mmap
}

// Store is the SQLite-backed archive.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the archive at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	s, err := OpenWithoutMigrations(path)
	if err != nil {
		return nil, err
	}
	if err := db.InitializeDatabase(ctx, s.db); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return s, nil
}

// OpenWithoutMigrations opens the archive as is. The migrate command uses it
// to report status before changing anything.
func OpenWithoutMigrations(path string) (*Store, error) {
	conn, err := driver.Open(path, initConn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Store{db: conn, path: path}, nil
}

// initConn runs on every new connection of the pool.
func initConn(c *sqlite3.Conn) error {
	for _, pragma := range connectionPragmas {
		if err := c.Exec(pragma); err != nil {
			return fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	return registerSimilarity(c)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.Warnf("failed to close rows: %v", err)
	}
}
