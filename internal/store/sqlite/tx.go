package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JonMunkholm/jisarea/internal/store"
)

// Tx is an import transaction.
type Tx struct {
	tx   *sql.Tx
	done bool
}

var _ store.Tx = (*Tx)(nil)

func (t *Tx) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, t.tx)
}

func (t *Tx) LoadPrefectures(ctx context.Context) (map[int]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT pref_code, prefecture_id FROM prefectures`)
	if err != nil {
		return nil, fmt.Errorf("load prefectures: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int64)
	for rows.Next() {
		var code int
		var id int64
		if err := rows.Scan(&code, &id); err != nil {
			return nil, fmt.Errorf("scan prefecture: %w", err)
		}
		out[code] = id
	}
	return out, rows.Err()
}

func (t *Tx) LoadCities(ctx context.Context) (map[store.CityKey]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT pref_code, city_code, city_id FROM cities`)
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	defer rows.Close()

	out := make(map[store.CityKey]int64)
	for rows.Next() {
		var k store.CityKey
		var id int64
		if err := rows.Scan(&k.PrefCode, &k.CityCode, &id); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		out[k] = id
	}
	return out, rows.Err()
}

func (t *Tx) LoadAreas(ctx context.Context) (map[string]int64, error) {
	return t.loadNames(ctx, `SELECT area_name, area_id FROM areas`, "areas")
}

func (t *Tx) LoadSections(ctx context.Context) (map[string]int64, error) {
	return t.loadNames(ctx, `SELECT section_name, section_id FROM sections`, "sections")
}

func (t *Tx) loadNames(ctx context.Context, query, table string) (map[string]int64, error) {
	rows, err := t.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[name] = id
	}
	return out, rows.Err()
}

func (t *Tx) LoadSubAreas(ctx context.Context) (map[store.SubAreaKey]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT s_area_code, city_id, prefecture_id, sub_area_id FROM sub_areas`)
	if err != nil {
		return nil, fmt.Errorf("load sub_areas: %w", err)
	}
	defer rows.Close()

	out := make(map[store.SubAreaKey]int64)
	for rows.Next() {
		var k store.SubAreaKey
		var id int64
		if err := rows.Scan(&k.Code, &k.CityID, &k.PrefectureID, &id); err != nil {
			return nil, fmt.Errorf("scan sub_area: %w", err)
		}
		out[k] = id
	}
	return out, rows.Err()
}

func (t *Tx) InsertPrefecture(ctx context.Context, code int, name string) (int64, error) {
	return t.insert(ctx, "prefectures",
		`INSERT INTO prefectures (pref_code, pref_name) VALUES (?, ?)`, code, name)
}

func (t *Tx) InsertCity(ctx context.Context, key store.CityKey, name string) (int64, error) {
	return t.insert(ctx, "cities",
		`INSERT INTO cities (pref_code, city_code, city_name) VALUES (?, ?, ?)`, key.PrefCode, key.CityCode, name)
}

func (t *Tx) InsertArea(ctx context.Context, name string) (int64, error) {
	return t.insert(ctx, "areas", `INSERT INTO areas (area_name) VALUES (?)`, name)
}

func (t *Tx) InsertSection(ctx context.Context, name string) (int64, error) {
	return t.insert(ctx, "sections", `INSERT INTO sections (section_name) VALUES (?)`, name)
}

func (t *Tx) InsertSubArea(ctx context.Context, sa store.SubArea) (int64, error) {
	var section sql.NullInt64
	if sa.SectionID != nil {
		section = sql.NullInt64{Int64: *sa.SectionID, Valid: true}
	}
	return t.insert(ctx, "sub_areas",
		`INSERT INTO sub_areas (s_area_code, area_id, section_id, city_id, prefecture_id) VALUES (?, ?, ?, ?, ?)`,
		sa.Code, sa.AreaID, section, sa.CityID, sa.PrefectureID)
}

func (t *Tx) insert(ctx context.Context, table, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, constraintErr(table, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: last insert id: %w", table, err)
	}
	return id, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
