package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS companies (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
)`

// SQLite stores companies in a local SQLite file.
//
// The database is configured with:
//   - EXCLUSIVE locking mode: the file has one owner until Close, and a
//     second OpenSQLite on the same path fails with ErrLocked
//   - WAL mode
//   - FULL synchronous mode: a returned Insert survives power loss
//   - 5-second busy timeout for lock contention
//   - a single open connection
type SQLite struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	closed bool
	view   *liveView
}

// OpenSQLite creates or opens the database at path, creates the companies
// table if absent and loads existing rows into the live view.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "companybook.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, company.Persistence("open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, company.Persistence("connect to database", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := claimSQLite(ctx, db); err != nil {
		db.Close()
		return nil, company.Persistence("lock database", err)
	}
	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, company.Persistence("apply pragmas", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, company.Persistence("create companies table", err)
	}

	records, err := loadSQLite(ctx, db)
	if err != nil {
		db.Close()
		return nil, company.Persistence("load companies", err)
	}

	return &SQLite{db: db, path: path, view: newLiveView(records)}, nil
}

// claimSQLite takes the exclusive file lock and keeps it for the life of the
// connection. No busy timeout is set yet, so a held lock fails immediately.
func claimSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA locking_mode = EXCLUSIVE"); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return err
	}
	_, err := db.ExecContext(ctx, "COMMIT")
	return err
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func loadSQLite(ctx context.Context, db *sql.DB) ([]api.Company, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM companies ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []api.Company
	for rows.Next() {
		var c api.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		records = append(records, c)
	}
	return records, rows.Err()
}

func (s *SQLite) Insert(ctx context.Context, name string) (api.Company, error) {
	c, err := company.New(0, name)
	if err != nil {
		return api.Company{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return api.Company{}, company.Persistence("insert company", ErrClosed)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO companies (name) VALUES (?)`, c.Name)
	if err != nil {
		return api.Company{}, company.Persistence("insert company", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return api.Company{}, company.Persistence("insert company: last insert id", err)
	}

	c.ID = id
	s.view.commit(c)
	return c, nil
}

func (s *SQLite) All(_ context.Context) (api.Snapshot, error) {
	return s.view.snapshot(), nil
}

func (s *SQLite) Subscribe(ctx context.Context) (<-chan api.Snapshot, func()) {
	return s.view.subscribe(ctx)
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.view.close()
	return s.db.Close()
}

// pragma returns the current value of a pragma. Used by tests.
func (s *SQLite) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
