// Package storetest is a conformance suite run by every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/jisarea/internal/store"
)

// OpenFunc returns an empty database. The suite closes it.
type OpenFunc func(t *testing.T) store.DB

// Run exercises db against the store contracts.
func Run(t *testing.T, open OpenFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db store.DB)
	}{
		{"EnsureSchemaIdempotent", testEnsureSchemaIdempotent},
		{"InsertAndLoad", testInsertAndLoad},
		{"Lookups", testLookups},
		{"CodesView", testCodesView},
		{"Paging", testPaging},
		{"NullSection", testNullSection},
		{"Rollback", testRollback},
		{"UniqueViolation", testUniqueViolation},
		{"ForeignKeyViolation", testForeignKeyViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := open(t)
			t.Cleanup(func() { db.Close() })
			tt.fn(t, db)
		})
	}
}

// fixture is one prefecture, one city, one area and section, and two
// sub-areas: 001001 with the section and 001000 without.
type fixture struct {
	pref, city, area, section int64
	withSection, noSection    int64
}

func seed(t *testing.T, ctx context.Context, tx store.Tx) fixture {
	t.Helper()
	var f fixture
	var err error

	must := func(id int64, err error) int64 {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		return id
	}

	if err = tx.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	f.pref = must(tx.InsertPrefecture(ctx, 11, "埼玉県"))
	f.city = must(tx.InsertCity(ctx, store.CityKey{PrefCode: 11, CityCode: 101}, "さいたま市西区"))
	f.area = must(tx.InsertArea(ctx, "宮前町"))
	f.section = must(tx.InsertSection(ctx, "一丁目"))
	sec := f.section
	f.withSection = must(tx.InsertSubArea(ctx, store.SubArea{
		Code: 1001, AreaID: f.area, SectionID: &sec, CityID: f.city, PrefectureID: f.pref,
	}))
	f.noSection = must(tx.InsertSubArea(ctx, store.SubArea{
		Code: 1000, AreaID: f.area, CityID: f.city, PrefectureID: f.pref,
	}))
	return f
}

func seedCommitted(t *testing.T, db store.DB) fixture {
	t.Helper()
	ctx := context.Background()
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer tx.Rollback(ctx)

	f := seed(t, ctx, tx)
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return f
}

func testEnsureSchemaIdempotent(t *testing.T, db store.DB) {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := db.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema() call %d error = %v", i+1, err)
		}
	}
	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts != (store.Counts{}) {
		t.Errorf("Counts() on empty schema = %+v", counts)
	}
}

func testInsertAndLoad(t *testing.T, db store.DB) {
	ctx := context.Background()
	f := seedCommitted(t, db)

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer tx.Rollback(ctx)

	prefs, err := tx.LoadPrefectures(ctx)
	if err != nil {
		t.Fatalf("LoadPrefectures() error = %v", err)
	}
	if diff := cmp.Diff(map[int]int64{11: f.pref}, prefs); diff != "" {
		t.Errorf("LoadPrefectures() mismatch (-want +got):\n%s", diff)
	}

	cities, err := tx.LoadCities(ctx)
	if err != nil {
		t.Fatalf("LoadCities() error = %v", err)
	}
	if diff := cmp.Diff(map[store.CityKey]int64{{PrefCode: 11, CityCode: 101}: f.city}, cities); diff != "" {
		t.Errorf("LoadCities() mismatch (-want +got):\n%s", diff)
	}

	areas, err := tx.LoadAreas(ctx)
	if err != nil {
		t.Fatalf("LoadAreas() error = %v", err)
	}
	if diff := cmp.Diff(map[string]int64{"宮前町": f.area}, areas); diff != "" {
		t.Errorf("LoadAreas() mismatch (-want +got):\n%s", diff)
	}

	sections, err := tx.LoadSections(ctx)
	if err != nil {
		t.Fatalf("LoadSections() error = %v", err)
	}
	if diff := cmp.Diff(map[string]int64{"一丁目": f.section}, sections); diff != "" {
		t.Errorf("LoadSections() mismatch (-want +got):\n%s", diff)
	}

	subs, err := tx.LoadSubAreas(ctx)
	if err != nil {
		t.Fatalf("LoadSubAreas() error = %v", err)
	}
	want := map[store.SubAreaKey]int64{
		{Code: 1001, CityID: f.city, PrefectureID: f.pref}: f.withSection,
		{Code: 1000, CityID: f.city, PrefectureID: f.pref}: f.noSection,
	}
	if diff := cmp.Diff(want, subs); diff != "" {
		t.Errorf("LoadSubAreas() mismatch (-want +got):\n%s", diff)
	}

	if f.noSection <= f.withSection {
		t.Errorf("surrogate ids not increasing: %d then %d", f.withSection, f.noSection)
	}
}

func testLookups(t *testing.T, db store.DB) {
	ctx := context.Background()
	f := seedCommitted(t, db)

	id, found, err := db.CityID(ctx, 11, 101)
	if err != nil || !found || id != f.city {
		t.Errorf("CityID(11, 101) = %d, %v, %v; want %d, true, nil", id, found, err, f.city)
	}
	if _, found, err := db.CityID(ctx, 11, 999); err != nil || found {
		t.Errorf("CityID(11, 999) found = %v, err = %v; want false, nil", found, err)
	}

	id, found, err = db.SubAreaID(ctx, 11, 101, 1001)
	if err != nil || !found || id != f.withSection {
		t.Errorf("SubAreaID(11, 101, 1001) = %d, %v, %v; want %d, true, nil", id, found, err, f.withSection)
	}
	if _, found, err := db.SubAreaID(ctx, 13, 101, 1001); err != nil || found {
		t.Errorf("SubAreaID(13, 101, 1001) found = %v, err = %v; want false, nil", found, err)
	}
}

func testCodesView(t *testing.T, db store.DB) {
	ctx := context.Background()
	f := seedCommitted(t, db)

	codes, err := db.Codes(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Codes() error = %v", err)
	}
	want := []store.Code{
		{SubAreaID: f.withSection, PrefectureCode: 11, CityCode: 101, SubAreaCode: 1001, JISCode: 11101001001},
		{SubAreaID: f.noSection, PrefectureCode: 11, CityCode: 101, SubAreaCode: 1000, JISCode: 11101001000},
	}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("Codes() mismatch (-want +got):\n%s", diff)
	}
	for _, c := range codes {
		if got := (int64(c.PrefectureCode)*1000+int64(c.CityCode))*1_000_000 + int64(c.SubAreaCode); got != c.JISCode {
			t.Errorf("jis_code %d != composed %d", c.JISCode, got)
		}
	}

	n, err := db.CountCodes(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountCodes() = %d, %v; want 2, nil", n, err)
	}
}

func testPaging(t *testing.T, db store.DB) {
	ctx := context.Background()
	f := seedCommitted(t, db)

	n, err := db.CountSubAreas(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CountSubAreas() = %d, %v; want 2, nil", n, err)
	}

	page, err := db.SubAreas(ctx, 1, 1)
	if err != nil {
		t.Fatalf("SubAreas(1, 1) error = %v", err)
	}
	if len(page) != 1 || page[0].ID != f.noSection {
		t.Errorf("SubAreas(1, 1) = %+v, want the second row", page)
	}

	all, err := db.SubAreas(ctx, 0, 0)
	if err != nil {
		t.Fatalf("SubAreas(0, 0) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("SubAreas(0, 0) returned %d rows, want 2", len(all))
	}

	past, err := db.SubAreas(ctx, 5, 10)
	if err != nil {
		t.Fatalf("SubAreas(5, 10) error = %v", err)
	}
	if len(past) != 0 {
		t.Errorf("SubAreas(5, 10) returned %d rows, want 0", len(past))
	}

	codes, err := db.Codes(ctx, 0, 1)
	if err != nil {
		t.Fatalf("Codes(0, 1) error = %v", err)
	}
	if len(codes) != 1 || codes[0].SubAreaID != f.withSection {
		t.Errorf("Codes(0, 1) = %+v, want the first row", codes)
	}
}

func testNullSection(t *testing.T, db store.DB) {
	ctx := context.Background()
	f := seedCommitted(t, db)

	all, err := db.SubAreas(ctx, 0, 0)
	if err != nil {
		t.Fatalf("SubAreas() error = %v", err)
	}
	sec := f.section
	want := []store.SubArea{
		{ID: f.withSection, Code: 1001, AreaID: f.area, SectionID: &sec, CityID: f.city, PrefectureID: f.pref},
		{ID: f.noSection, Code: 1000, AreaID: f.area, CityID: f.city, PrefectureID: f.pref},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("SubAreas() mismatch (-want +got):\n%s", diff)
	}
}

func testRollback(t *testing.T, db store.DB) {
	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	seed(t, ctx, tx)
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Errorf("second Rollback() error = %v", err)
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts != (store.Counts{}) {
		t.Errorf("Counts() after rollback = %+v, want zero", counts)
	}
}

func testUniqueViolation(t *testing.T, db store.DB) {
	ctx := context.Background()
	seedCommitted(t, db)

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.InsertArea(ctx, "宮前町")
	if !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("InsertArea(duplicate) error = %v, want ErrConstraint", err)
	}
	var ce *store.ConstraintError
	if !errors.As(err, &ce) || ce.Table != "areas" {
		t.Errorf("ConstraintError table = %v, want areas", ce)
	}
}

func testForeignKeyViolation(t *testing.T, db store.DB) {
	ctx := context.Background()
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	_, err = tx.InsertCity(ctx, store.CityKey{PrefCode: 47, CityCode: 201}, "那覇市")
	if !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("InsertCity(no prefecture) error = %v, want ErrConstraint", err)
	}
}
