package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS prefectures (
		prefecture_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		pref_code     INTEGER UNIQUE NOT NULL,
		pref_name     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cities (
		city_id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		pref_code INTEGER NOT NULL REFERENCES prefectures(pref_code),
		city_code INTEGER NOT NULL,
		city_name TEXT NOT NULL,
		UNIQUE (pref_code, city_code)
	)`,
	`CREATE TABLE IF NOT EXISTS areas (
		area_id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		area_name TEXT UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sections (
		section_id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		section_name TEXT UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sub_areas (
		sub_area_id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		s_area_code   INTEGER NOT NULL,
		area_id       BIGINT NOT NULL REFERENCES areas(area_id),
		section_id    BIGINT REFERENCES sections(section_id),
		city_id       BIGINT NOT NULL REFERENCES cities(city_id),
		prefecture_id BIGINT NOT NULL REFERENCES prefectures(prefecture_id),
		UNIQUE (s_area_code, city_id, prefecture_id)
	)`,
	`CREATE OR REPLACE VIEW codes_view AS
	SELECT
		sa.sub_area_id AS sub_area_id,
		p.pref_code    AS prefecture_code,
		c.city_code    AS city_code,
		sa.s_area_code AS s_area_code,
		((p.pref_code::BIGINT * 1000 + c.city_code) * 1000000 + sa.s_area_code) AS jis_code
	FROM sub_areas sa
	JOIN cities c ON sa.city_id = c.city_id
	JOIN prefectures p ON sa.prefecture_id = p.prefecture_id`,
}

func ensureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
