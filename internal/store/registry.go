package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Options tunes a backend connection. Zero values keep backend defaults.
type Options struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// BusyTimeout bounds how long an embedded database waits on a lock.
	BusyTimeout time.Duration
}

// OpenFunc opens a database from a DSN.
type OpenFunc func(ctx context.Context, dsn string, opts Options) (DB, error)

// Backend describes a storage implementation.
type Backend struct {
	Name string
	// Schemes are the URL schemes (before "://") this backend accepts.
	Schemes []string
	// Default marks the backend used for a DSN without a known scheme,
	// such as a bare file path.
	Default bool
	Open    OpenFunc
}

var (
	registry   = make(map[string]Backend)
	registryMu sync.RWMutex
)

// Register adds a backend to the registry.
// Panics if a backend with the same name is already registered.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[b.Name]; exists {
		panic(fmt.Sprintf("store backend already registered: %s", b.Name))
	}
	registry[b.Name] = b
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendNames()
}

// Open selects a backend by the DSN scheme and opens it. A DSN without a
// registered scheme goes to the default backend.
func Open(ctx context.Context, dsn string, opts Options) (DB, error) {
	b, err := backendFor(dsn)
	if err != nil {
		return nil, err
	}
	db, err := b.Open(ctx, dsn, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", b.Name, err)
	}
	return db, nil
}

func backendFor(dsn string) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if scheme, _, ok := strings.Cut(dsn, "://"); ok {
		scheme = strings.ToLower(scheme)
		for _, b := range registry {
			for _, s := range b.Schemes {
				if s == scheme {
					return b, nil
				}
			}
		}
	}
	for _, b := range registry {
		if b.Default {
			return b, nil
		}
	}
	return Backend{}, fmt.Errorf("%w for %q (registered: %s)", ErrUnknownBackend, redact(dsn), strings.Join(backendNames(), ", "))
}

func backendNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// redact hides the password of a URL-style DSN.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	if user, _, hasPass := strings.Cut(userinfo, ":"); hasPass {
		return scheme + "://" + user + ":xxxxx@" + host
	}
	return dsn
}
