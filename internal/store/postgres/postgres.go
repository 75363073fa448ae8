// Package postgres is the PostgreSQL store backend, built on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/jisarea/internal/store"
)

func init() {
	store.Register(store.Backend{
		Name:    "postgres",
		Schemes: []string{"postgres", "postgresql"},
		Open: func(ctx context.Context, dsn string, opts store.Options) (store.DB, error) {
			db, err := Open(ctx, dsn, opts)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
	})
}

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DB is a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

var _ store.DB = (*DB)(nil)

// Open parses dsn, applies the pool options and verifies the connection.
func Open(ctx context.Context, dsn string, opts store.Options) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &DB{pool: pool}, nil
}

// New wraps an existing pool. Close closes the pool.
func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (d *DB) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

func (d *DB) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, d.pool)
}

// Begin starts a write transaction.
func (d *DB) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// constraintErr converts integrity violations (SQLSTATE class 23) into a
// store.ConstraintError and passes anything else through.
func constraintErr(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return &store.ConstraintError{Table: table, Err: err}
	}
	return err
}
