package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/jisarea/internal/store"
)

// pageLimit maps a non-positive limit to NULL, which Postgres reads as
// LIMIT ALL.
func pageLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func (d *DB) CityID(ctx context.Context, prefCode, cityCode int) (int64, bool, error) {
	return d.lookupID(ctx, "city",
		`SELECT city_id FROM cities WHERE pref_code = $1 AND city_code = $2 LIMIT 1`,
		prefCode, cityCode)
}

func (d *DB) SubAreaID(ctx context.Context, prefCode, cityCode, subAreaCode int) (int64, bool, error) {
	return d.lookupID(ctx, "sub_area",
		`SELECT sa.sub_area_id
		FROM sub_areas sa
		JOIN cities c ON sa.city_id = c.city_id
		JOIN prefectures p ON sa.prefecture_id = p.prefecture_id
		WHERE p.pref_code = $1 AND c.city_code = $2 AND sa.s_area_code = $3
		LIMIT 1`,
		prefCode, cityCode, subAreaCode)
}

func (d *DB) lookupID(ctx context.Context, what, query string, args ...any) (int64, bool, error) {
	var id int64
	err := d.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s id: %w", what, err)
	}
	return id, true, nil
}

func (d *DB) CountSubAreas(ctx context.Context) (int64, error) {
	return d.count(ctx, "sub_areas")
}

func (d *DB) CountCodes(ctx context.Context) (int64, error) {
	return d.count(ctx, "codes_view")
}

// count only receives table names from this package.
func (d *DB) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (d *DB) SubAreas(ctx context.Context, offset, limit int) ([]store.SubArea, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT sub_area_id, s_area_code, area_id, section_id, city_id, prefecture_id
		FROM sub_areas ORDER BY sub_area_id LIMIT $1 OFFSET $2`,
		pageLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query sub_areas: %w", err)
	}
	defer rows.Close()

	var out []store.SubArea
	for rows.Next() {
		var sa store.SubArea
		if err := rows.Scan(&sa.ID, &sa.Code, &sa.AreaID, &sa.SectionID, &sa.CityID, &sa.PrefectureID); err != nil {
			return nil, fmt.Errorf("scan sub_area: %w", err)
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

func (d *DB) Codes(ctx context.Context, offset, limit int) ([]store.Code, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT sub_area_id, prefecture_code, city_code, s_area_code, jis_code
		FROM codes_view ORDER BY sub_area_id LIMIT $1 OFFSET $2`,
		pageLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query codes_view: %w", err)
	}
	defer rows.Close()

	var out []store.Code
	for rows.Next() {
		var c store.Code
		if err := rows.Scan(&c.SubAreaID, &c.PrefectureCode, &c.CityCode, &c.SubAreaCode, &c.JISCode); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) Counts(ctx context.Context) (store.Counts, error) {
	var c store.Counts
	err := d.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM prefectures),
		(SELECT COUNT(*) FROM cities),
		(SELECT COUNT(*) FROM areas),
		(SELECT COUNT(*) FROM sections),
		(SELECT COUNT(*) FROM sub_areas)`).
		Scan(&c.Prefectures, &c.Cities, &c.Areas, &c.Sections, &c.SubAreas)
	if err != nil {
		return store.Counts{}, fmt.Errorf("count tables: %w", err)
	}
	return c, nil
}
