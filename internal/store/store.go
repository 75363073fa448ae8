// Package store defines the storage contracts shared by the importer, the
// lookup helpers and the HTTP API. Concrete backends live in subpackages and
// register themselves with Register.
package store

import "context"

// CityKey is the natural key of a city.
type CityKey struct {
	PrefCode int
	CityCode int
}

// SubAreaKey is the natural key of a sub-area.
type SubAreaKey struct {
	Code         int
	CityID       int64
	PrefectureID int64
}

// SubArea is a row of sub_areas. SectionID is nil when the sub-area has no
// section.
type SubArea struct {
	ID           int64  `json:"sub_area_id"`
	Code         int    `json:"s_area_code"`
	AreaID       int64  `json:"area_id"`
	SectionID    *int64 `json:"section_id"`
	CityID       int64  `json:"city_id"`
	PrefectureID int64  `json:"prefecture_id"`
}

// Key returns the natural key of s.
func (s SubArea) Key() SubAreaKey {
	return SubAreaKey{Code: s.Code, CityID: s.CityID, PrefectureID: s.PrefectureID}
}

// Code is a row of codes_view.
type Code struct {
	SubAreaID      int64 `json:"sub_area_id"`
	PrefectureCode int   `json:"prefecture_code"`
	CityCode       int   `json:"city_code"`
	SubAreaCode    int   `json:"s_area_code"`
	JISCode        int64 `json:"jis_code"`
}

// Counts holds the row count of every table.
type Counts struct {
	Prefectures int64 `json:"prefectures"`
	Cities      int64 `json:"cities"`
	Areas       int64 `json:"areas"`
	Sections    int64 `json:"sections"`
	SubAreas    int64 `json:"sub_areas"`
}

// Tx is one write transaction. Load methods return every existing row keyed
// by natural key; Insert methods return the new surrogate id.
type Tx interface {
	// EnsureSchema creates the tables and codes_view if absent.
	EnsureSchema(ctx context.Context) error

	LoadPrefectures(ctx context.Context) (map[int]int64, error)
	LoadCities(ctx context.Context) (map[CityKey]int64, error)
	LoadAreas(ctx context.Context) (map[string]int64, error)
	LoadSections(ctx context.Context) (map[string]int64, error)
	LoadSubAreas(ctx context.Context) (map[SubAreaKey]int64, error)

	InsertPrefecture(ctx context.Context, code int, name string) (int64, error)
	InsertCity(ctx context.Context, key CityKey, name string) (int64, error)
	InsertArea(ctx context.Context, name string) (int64, error)
	InsertSection(ctx context.Context, name string) (int64, error)
	InsertSubArea(ctx context.Context, sa SubArea) (int64, error)

	Commit(ctx context.Context) error
	// Rollback is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// Beginner starts write transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// Reader serves read-only queries. The found result is false when no row
// matches; that is not an error.
type Reader interface {
	CityID(ctx context.Context, prefCode, cityCode int) (id int64, found bool, err error)
	SubAreaID(ctx context.Context, prefCode, cityCode, subAreaCode int) (id int64, found bool, err error)

	CountSubAreas(ctx context.Context) (int64, error)
	// SubAreas returns rows ordered by id. A limit <= 0 returns every row
	// from offset on.
	SubAreas(ctx context.Context, offset, limit int) ([]SubArea, error)

	CountCodes(ctx context.Context) (int64, error)
	// Codes returns codes_view rows ordered by sub_area_id. A limit <= 0
	// returns every row from offset on.
	Codes(ctx context.Context, offset, limit int) ([]Code, error)

	Counts(ctx context.Context) (Counts, error)
}

// DB is an open database. The caller owns it and must Close it.
type DB interface {
	Beginner
	Reader

	// EnsureSchema creates the schema outside of an import.
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
