package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/jisarea/internal/config"
	"github.com/JonMunkholm/jisarea/internal/importer"
	"github.com/JonMunkholm/jisarea/internal/metrics"
	"github.com/JonMunkholm/jisarea/internal/record/recordtest"
	"github.com/JonMunkholm/jisarea/internal/store"
	"github.com/JonMunkholm/jisarea/internal/store/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	if err != nil {
		t.Fatalf("config.LoadFrom() error = %v", err)
	}
	cfg.Import.MaxWaitTime = 50 * time.Millisecond
	return *cfg
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "codes.db"), store.Options{})
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(db, cfg, metrics.New()), db
}

// upload is one multipart file part.
type upload struct {
	name string
	data []byte
}

func saitamaUpload(t *testing.T) upload {
	t.Helper()
	path := recordtest.WriteCSV(t, t.TempDir(), "r2ka11.csv", recordtest.Saitama())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return upload{name: "r2ka11.csv", data: data}
}

func importRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		part.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	return serve(s, httptest.NewRequest(http.MethodGet, path, nil))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Code != code {
		t.Errorf("code = %q, want %q", resp.Code, code)
	}
	return resp
}

func importSaitama(t *testing.T, s *Server) importer.Result {
	t.Helper()
	rec := serve(s, importRequest(t, nil, saitamaUpload(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[importer.Result](t, rec)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rec := get(s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["status"] != "ok" || got["importing"] != false {
		t.Errorf("body = %v", got)
	}
}

func TestImport_ThenLookups(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	res := importSaitama(t, s)
	if res.Attempted != 7 || res.Inserted != 7 || res.Files != 1 {
		t.Errorf("result = %+v, want 7 attempted, 7 inserted, 1 file", res)
	}
	if res.RunID == "" {
		t.Error("result has no run id")
	}

	rec := get(s, "/api/cities/11/101")
	if rec.Code != http.StatusOK {
		t.Fatalf("city status = %d, body %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff(map[string]int64{"city_id": 1}, decode[map[string]int64](t, rec)); diff != "" {
		t.Errorf("city mismatch (-want +got):\n%s", diff)
	}

	rec = get(s, "/api/sub-areas/11/101/001001")
	if rec.Code != http.StatusOK {
		t.Fatalf("sub-area status = %d, body %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff(map[string]int64{"sub_area_id": 2}, decode[map[string]int64](t, rec)); diff != "" {
		t.Errorf("sub-area mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_Reimport(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	importSaitama(t, s)
	res := importSaitama(t, s)
	if res.Attempted != 7 || res.Inserted != 0 {
		t.Errorf("second import = %+v, want 7 attempted, 0 inserted", res)
	}
}

func TestLookup_ResetAfterImport(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	// Creates the schema so the miss is a clean "not found".
	if err := s.db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	wantError(t, get(s, "/api/cities/11/101"), http.StatusNotFound, "LKP001")
	if s.cities.Cached() != 1 {
		t.Fatalf("Cached() = %d, want memoized miss", s.cities.Cached())
	}

	importSaitama(t, s)
	if s.cities.Cached() != 0 {
		t.Errorf("Cached() = %d after import, want 0", s.cities.Cached())
	}
	if rec := get(s, "/api/cities/11/101"); rec.Code != http.StatusOK {
		t.Errorf("status after import = %d, want 200", rec.Code)
	}
}

func TestLookup_NotFound(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	importSaitama(t, s)

	wantError(t, get(s, "/api/cities/11/999"), http.StatusNotFound, "LKP001")
	wantError(t, get(s, "/api/sub-areas/11/101/009001"), http.StatusNotFound, "LKP001")
}

func TestLookup_BadCode(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	tests := []string{
		"/api/cities/1/101",
		"/api/cities/11/1a1",
		"/api/sub-areas/11/101/1001",
		"/api/sub-areas/11/101/00100x",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			wantError(t, get(s, path), http.StatusBadRequest, "VAL002")
		})
	}
}

func TestListSubAreas(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	importSaitama(t, s)

	rec := get(s, "/api/sub-areas?offset=1&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	page := decode[Page[store.SubArea]](t, rec)
	if page.Total != 7 || page.Offset != 1 || page.Limit != 2 {
		t.Errorf("page = %+v", page)
	}
	var ids []int64
	for _, sa := range page.Items {
		ids = append(ids, sa.ID)
	}
	if diff := cmp.Diff([]int64{2, 3}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestListCodes(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	importSaitama(t, s)

	page := decode[Page[store.Code]](t, get(s, "/api/codes"))
	if page.Total != 7 || page.Limit != DefaultPageLimit || len(page.Items) != 7 {
		t.Fatalf("page = %+v", page)
	}
	if got := page.Items[0].JISCode; got != 11101001000 {
		t.Errorf("first jis_code = %d, want 11101001000", got)
	}

	page = decode[Page[store.Code]](t, get(s, "/api/codes?offset=100"))
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("past the end items = %v, want empty list", page.Items)
	}
}

func TestList_BadParams(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	importSaitama(t, s)

	for _, path := range []string{
		"/api/codes?limit=0",
		"/api/codes?offset=-1",
		"/api/sub-areas?limit=ten",
	} {
		t.Run(path, func(t *testing.T) {
			wantError(t, get(s, path), http.StatusBadRequest, "VAL002")
		})
	}
}

func TestExportCodes(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	importSaitama(t, s)

	rec := get(s, "/api/codes/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), rec.Body.String())
	}
	if lines[0] != "11101001000,1" || lines[6] != "11101004003,7" {
		t.Errorf("lines = %q", lines)
	}
}

func TestImport_NoFiles(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	wantError(t, serve(s, importRequest(t, nil)), http.StatusBadRequest, "FILE004")
}

func TestImport_TooManyFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Import.MaxFiles = 1
	s, _ := newTestServer(t, cfg)

	up := saitamaUpload(t)
	wantError(t, serve(s, importRequest(t, nil, up, up)), http.StatusBadRequest, "VAL002")
}

func TestImport_InvalidCode(t *testing.T) {
	s, db := newTestServer(t, testConfig(t))

	path := recordtest.WriteCSV(t, t.TempDir(), "bad.csv", []recordtest.Row{
		{Pref: "11", City: "101", SubArea: "001000", PrefName: "埼玉県", CityName: "さいたま市西区", SubAreaName: "宮前町"},
		{Pref: "11", City: "1O1", SubArea: "001001", PrefName: "埼玉県", CityName: "さいたま市西区", SubAreaName: "宮前町一丁目"},
	})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	resp := wantError(t, serve(s, importRequest(t, nil, upload{name: "bad.csv", data: data})), http.StatusUnprocessableEntity, "VAL001")
	if !strings.HasPrefix(resp.Error, "bad.csv:3:") {
		t.Errorf("error = %q, want it to name the uploaded file and line", resp.Error)
	}
	if strings.Contains(resp.Error, os.TempDir()) {
		t.Errorf("error leaks spool path: %q", resp.Error)
	}

	if _, err := db.CountSubAreas(context.Background()); err == nil {
		t.Error("tables exist after rejected import")
	}
}

func TestImport_Encoding(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	wantError(t, serve(s, importRequest(t, map[string]string{"encoding": "ebcdic"}, saitamaUpload(t))),
		http.StatusBadRequest, "FILE003")

	path := recordtest.WriteCSVEncoded(t, t.TempDir(), "utf8.csv", nil, recordtest.Saitama())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := serve(s, importRequest(t, map[string]string{"encoding": "utf-8"}, upload{name: "utf8.csv", data: data}))
	if rec.Code != http.StatusOK {
		t.Fatalf("utf-8 import status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestImport_Busy(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	if !s.imports.TryAcquire() {
		t.Fatal("TryAcquire() = false")
	}
	defer s.imports.Release()

	rec := serve(s, importRequest(t, nil, saitamaUpload(t)))
	wantError(t, rec, http.StatusTooManyRequests, "IMP001")
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestReads_DuringImportTransaction(t *testing.T) {
	s, db := newTestServer(t, testConfig(t))
	importSaitama(t, s)

	ctx := context.Background()
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.InsertPrefecture(ctx, 13, "東京都"); err != nil {
		t.Fatalf("InsertPrefecture() error = %v", err)
	}

	for _, path := range []string{"/healthz", "/api/cities/11/101", "/api/sub-areas?limit=1", "/api/codes/export"} {
		done := make(chan *httptest.ResponseRecorder, 1)
		go func() { done <- get(s, path) }()

		select {
		case rec := <-done:
			if rec.Code != http.StatusOK {
				t.Errorf("GET %s status = %d, body %s", path, rec.Code, rec.Body.String())
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("GET %s blocked behind the open transaction", path)
		}
	}
}

func TestImport_APIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s, _ := newTestServer(t, cfg)

	rec := serve(s, importRequest(t, nil, saitamaUpload(t)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	req := importRequest(t, nil, saitamaUpload(t))
	req.Header.Set("X-API-Key", "wrong")
	if rec := serve(s, req); rec.Code != http.StatusForbidden {
		t.Errorf("wrong key status = %d, want 403", rec.Code)
	}

	req = importRequest(t, nil, saitamaUpload(t))
	req.Header.Set("X-API-Key", "secret")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Reads stay open.
	if rec := get(s, "/api/codes"); rec.Code != http.StatusOK {
		t.Errorf("read status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	importSaitama(t, s)
	get(s, "/api/cities/11/101")

	body := get(s, "/metrics").Body.String()
	for _, want := range []string{
		`jisarea_import_runs_total{status="success"} 1`,
		`jisarea_http_requests_total{code="200",method="GET",route="/api/cities/{pref}/{city}"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	rec := get(s, "/healthz")

	for k, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}
