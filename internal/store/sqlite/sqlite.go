// Package sqlite is the embedded store backend, built on modernc.org/sqlite.
// A DSN is a file path, optionally prefixed with sqlite://.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/jisarea/internal/store"
)

const driverName = "sqlite"

// DefaultBusyTimeout applies when Options.BusyTimeout is zero.
const DefaultBusyTimeout = 5 * time.Second

// readConns bounds the reader pool. WAL readers see the last committed
// snapshot and never wait on the import transaction.
const readConns = 4

func init() {
	store.Register(store.Backend{
		Name:    "sqlite",
		Schemes: []string{"sqlite"},
		Default: true,
		Open: func(ctx context.Context, dsn string, opts store.Options) (store.DB, error) {
			db, err := Open(ctx, dsn, opts)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
	})
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// DB is a SQLite database file. Writes go through a single connection;
// Reader methods use a separate query-only pool.
type DB struct {
	db   *sql.DB
	ro   *sql.DB
	path string
}

var _ store.DB = (*DB)(nil)

// Path strips the optional sqlite:// prefix from dsn.
func Path(dsn string) string {
	return strings.TrimPrefix(strings.TrimSpace(dsn), "sqlite://")
}

// Open opens or creates the database file named by dsn. The schema is not
// created until EnsureSchema or the first import.
func Open(ctx context.Context, dsn string, opts store.Options) (*DB, error) {
	path := Path(dsn)
	if path == "" {
		return nil, errors.New("sqlite path must not be empty")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("sqlite path %q is a directory, expected file", path)
	}
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}
	pragmas := fmt.Sprintf("_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)", busy.Milliseconds())

	db, err := sql.Open(driverName, "file:"+path+"?"+pragmas+"&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One writer; also keeps :memory: on a single shared connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	// The ping creates the file and switches it to WAL before any reader opens.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		return &DB{db: db, ro: db, path: path}, nil
	}

	ro, err := sql.Open(driverName, "file:"+path+"?"+pragmas+"&_pragma=query_only(1)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite reader %q: %w", path, err)
	}
	ro.SetMaxOpenConns(readConns)
	ro.SetMaxIdleConns(readConns)
	if err := ro.PingContext(ctx); err != nil {
		_ = ro.Close()
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite reader %q: %w", path, err)
	}
	return &DB{db: db, ro: ro, path: path}, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Ping checks the reader pool, so it answers while an import holds the
// write connection.
func (d *DB) Ping(ctx context.Context) error { return d.ro.PingContext(ctx) }

func (d *DB) Close() error {
	err := d.db.Close()
	if d.ro != d.db {
		err = errors.Join(err, d.ro.Close())
	}
	return err
}

func (d *DB) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, d.db)
}

// Begin starts a write transaction.
func (d *DB) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// constraintErr converts a SQLite constraint failure into a
// store.ConstraintError and passes anything else through.
func constraintErr(table string, err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return &store.ConstraintError{Table: table, Err: err}
	}
	return err
}
