package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
)

// DB is the subset of pgxpool.Pool the Postgres store needs. It is also
// satisfied by pgxmock.PgxPoolIface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ownerLockKey is the session advisory lock held by the process that owns
// the companies table.
const ownerLockKey int64 = 0x636f6d70616e79

const postgresSchema = `CREATE TABLE IF NOT EXISTS companies (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
)`

// Postgres stores companies in a PostgreSQL table.
type Postgres struct {
	db     DB
	closer func()
	mu     sync.Mutex
	closed bool
	view   *liveView
}

// OpenPostgres connects a pool to dsn, takes ownership of the companies
// table and prepares it. A second owner fails with ErrLocked.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 4
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, company.Persistence("connect to postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, company.Persistence("ping postgres", err)
	}

	// The advisory lock lives as long as this session, so the connection is
	// held until Close.
	owner, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, company.Persistence("acquire owner connection", err)
	}
	if err := claimPostgres(ctx, owner); err != nil {
		owner.Release()
		pool.Close()
		return nil, company.Persistence("lock companies table", err)
	}

	p, err := NewPostgres(ctx, pool)
	if err != nil {
		owner.Release()
		pool.Close()
		return nil, err
	}
	p.closer = func() {
		owner.Release()
		pool.Close()
	}
	return p, nil
}

func claimPostgres(ctx context.Context, db DB) error {
	var ok bool
	if err := db.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, ownerLockKey).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// NewPostgres prepares the companies table on db and loads existing rows.
// The caller keeps ownership of db.
func NewPostgres(ctx context.Context, db DB) (*Postgres, error) {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return nil, company.Persistence("create companies table", err)
	}

	rows, err := db.Query(ctx, `SELECT id, name FROM companies ORDER BY id ASC`)
	if err != nil {
		return nil, company.Persistence("load companies", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (api.Company, error) {
		var c api.Company
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, company.Persistence("load companies", err)
	}

	return &Postgres{db: db, view: newLiveView(records)}, nil
}

func (p *Postgres) Insert(ctx context.Context, name string) (api.Company, error) {
	c, err := company.New(0, name)
	if err != nil {
		return api.Company{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return api.Company{}, company.Persistence("insert company", ErrClosed)
	}

	err = p.db.QueryRow(ctx, `INSERT INTO companies (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
	if err != nil {
		return api.Company{}, company.Persistence("insert company", err)
	}

	p.view.commit(c)
	return c, nil
}

func (p *Postgres) All(_ context.Context) (api.Snapshot, error) {
	return p.view.snapshot(), nil
}

func (p *Postgres) Subscribe(ctx context.Context) (<-chan api.Snapshot, func()) {
	return p.view.subscribe(ctx)
}

func (p *Postgres) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.view.close()
	if p.closer != nil {
		p.closer()
	}
	return nil
}
