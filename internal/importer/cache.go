package importer

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/jisarea/internal/store"
)

// idTable maps natural keys of one entity to surrogate ids.
type idTable[K comparable] struct {
	ids     map[K]int64
	created int
}

// resolve returns the id for key, calling insert and remembering the new id
// when key has not been seen.
func resolve[K comparable](t *idTable[K], key K, insert func() (int64, error)) (int64, error) {
	if id, ok := t.ids[key]; ok {
		return id, nil
	}
	id, err := insert()
	if err != nil {
		return 0, err
	}
	t.ids[key] = id
	t.created++
	return id, nil
}

// keyCache holds the surrogate ids of one import call. It is seeded from
// the database inside the import transaction and discarded afterwards.
type keyCache struct {
	prefectures idTable[int]
	cities      idTable[store.CityKey]
	areas       idTable[string]
	sections    idTable[string]
	subAreas    idTable[store.SubAreaKey]
}

func loadKeyCache(ctx context.Context, tx store.Tx) (*keyCache, error) {
	var c keyCache
	var err error

	if c.prefectures.ids, err = tx.LoadPrefectures(ctx); err != nil {
		return nil, fmt.Errorf("seed key cache: %w", err)
	}
	if c.cities.ids, err = tx.LoadCities(ctx); err != nil {
		return nil, fmt.Errorf("seed key cache: %w", err)
	}
	if c.areas.ids, err = tx.LoadAreas(ctx); err != nil {
		return nil, fmt.Errorf("seed key cache: %w", err)
	}
	if c.sections.ids, err = tx.LoadSections(ctx); err != nil {
		return nil, fmt.Errorf("seed key cache: %w", err)
	}
	if c.subAreas.ids, err = tx.LoadSubAreas(ctx); err != nil {
		return nil, fmt.Errorf("seed key cache: %w", err)
	}
	return &c, nil
}

// Created counts rows inserted per table during one import.
type Created struct {
	Prefectures int `json:"prefectures"`
	Cities      int `json:"cities"`
	Areas       int `json:"areas"`
	Sections    int `json:"sections"`
	SubAreas    int `json:"sub_areas"`
}

func (c *keyCache) created() Created {
	return Created{
		Prefectures: c.prefectures.created,
		Cities:      c.cities.created,
		Areas:       c.areas.created,
		Sections:    c.sections.created,
		SubAreas:    c.subAreas.created,
	}
}
