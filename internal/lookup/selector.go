// Package lookup provides memoized id lookups and paged reads over an
// imported database.
package lookup

import (
	"context"
	"sync"

	"github.com/JonMunkholm/jisarea/internal/store"
)

// CityQuerier looks up a city id by natural key.
type CityQuerier interface {
	CityID(ctx context.Context, prefCode, cityCode int) (int64, bool, error)
}

// SubAreaQuerier looks up a sub-area id by its codes.
type SubAreaQuerier interface {
	SubAreaID(ctx context.Context, prefCode, cityCode, subAreaCode int) (int64, bool, error)
}

type hit struct {
	id    int64
	found bool
}

// memo caches lookup results, misses included. Errors are not cached.
// A result whose query overlapped a reset is returned but not stored.
type memo[K comparable] struct {
	mu      sync.Mutex
	gen     uint64
	results map[K]hit
}

func (m *memo[K]) get(ctx context.Context, key K, query func(context.Context) (int64, bool, error)) (int64, bool, error) {
	m.mu.Lock()
	if h, ok := m.results[key]; ok {
		m.mu.Unlock()
		return h.id, h.found, nil
	}
	gen := m.gen
	m.mu.Unlock()

	id, found, err := query(ctx)
	if err != nil {
		return 0, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return id, found, nil
	}
	if m.results == nil {
		m.results = make(map[K]hit)
	}
	m.results[key] = hit{id: id, found: found}
	return id, found, nil
}

func (m *memo[K]) reset() {
	m.mu.Lock()
	m.gen++
	m.results = nil
	m.mu.Unlock()
}

func (m *memo[K]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

// CityIDSelector resolves (prefecture, city) codes to city ids. Each key
// reaches the database at most once until Reset.
type CityIDSelector struct {
	q    CityQuerier
	memo memo[store.CityKey]
}

func NewCityIDSelector(q CityQuerier) *CityIDSelector {
	return &CityIDSelector{q: q}
}

// CityID returns the city id and whether it exists.
func (s *CityIDSelector) CityID(ctx context.Context, prefCode, cityCode int) (int64, bool, error) {
	key := store.CityKey{PrefCode: prefCode, CityCode: cityCode}
	return s.memo.get(ctx, key, func(ctx context.Context) (int64, bool, error) {
		return s.q.CityID(ctx, prefCode, cityCode)
	})
}

// Reset forgets every memoized result. Call it after an import.
func (s *CityIDSelector) Reset() { s.memo.reset() }

// Cached returns the number of memoized keys.
func (s *CityIDSelector) Cached() int { return s.memo.len() }

type subAreaCodes struct {
	pref, city, subArea int
}

// SubAreaIDSelector resolves (prefecture, city, sub-area) codes to
// sub-area ids, memoized like CityIDSelector.
type SubAreaIDSelector struct {
	q    SubAreaQuerier
	memo memo[subAreaCodes]
}

func NewSubAreaIDSelector(q SubAreaQuerier) *SubAreaIDSelector {
	return &SubAreaIDSelector{q: q}
}

// SubAreaID returns the sub-area id and whether it exists.
func (s *SubAreaIDSelector) SubAreaID(ctx context.Context, prefCode, cityCode, subAreaCode int) (int64, bool, error) {
	key := subAreaCodes{pref: prefCode, city: cityCode, subArea: subAreaCode}
	return s.memo.get(ctx, key, func(ctx context.Context) (int64, bool, error) {
		return s.q.SubAreaID(ctx, prefCode, cityCode, subAreaCode)
	})
}

// Reset forgets every memoized result. Call it after an import.
func (s *SubAreaIDSelector) Reset() { s.memo.reset() }

// Cached returns the number of memoized keys.
func (s *SubAreaIDSelector) Cached() int { return s.memo.len() }
