package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/jisarea/internal/importer"
	"github.com/JonMunkholm/jisarea/internal/record/recordtest"
	"github.com/JonMunkholm/jisarea/internal/store"
	"github.com/JonMunkholm/jisarea/internal/store/sqlite"
)

func importedDB(t *testing.T) *sqlite.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "codes.db"), store.Options{})
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	path := recordtest.WriteCSV(t, t.TempDir(), "r2ka11.csv", recordtest.Saitama()[:3])
	if _, err := importer.New().Import(ctx, db, []string{path}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	return db
}

const wantMapping = "11101001000,1\n11101001001,2\n11101001002,3\n"

func TestWriteJISMapping(t *testing.T) {
	db := importedDB(t)

	var buf bytes.Buffer
	n, err := WriteJISMapping(context.Background(), &buf, db)
	if err != nil {
		t.Fatalf("WriteJISMapping() error = %v", err)
	}
	if n != 3 {
		t.Errorf("rows = %d, want 3", n)
	}
	if got := buf.String(); got != wantMapping {
		t.Errorf("output = %q, want %q", got, wantMapping)
	}
}

func TestWriteJISMapping_SmallPages(t *testing.T) {
	db := importedDB(t)

	saved := PageSize
	PageSize = 2
	t.Cleanup(func() { PageSize = saved })

	var buf bytes.Buffer
	if _, err := WriteJISMapping(context.Background(), &buf, db); err != nil {
		t.Fatalf("WriteJISMapping() error = %v", err)
	}
	if got := buf.String(); got != wantMapping {
		t.Errorf("output = %q, want %q", got, wantMapping)
	}
}

func TestWriteJISMapping_Empty(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "codes.db"), store.Options{})
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	var buf bytes.Buffer
	n, err := WriteJISMapping(ctx, &buf, db)
	if err != nil || n != 0 || buf.Len() != 0 {
		t.Errorf("WriteJISMapping(empty) = %d, %v, %q", n, err, buf.String())
	}
}

func TestWriteJISMappingFile(t *testing.T) {
	db := importedDB(t)
	out := filepath.Join(t.TempDir(), "jis.csv")

	if _, err := WriteJISMappingFile(context.Background(), out, db); err != nil {
		t.Fatalf("WriteJISMappingFile() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != wantMapping {
		t.Errorf("file = %q, want %q", data, wantMapping)
	}
}

func TestWriteJISMappingFile_BadPath(t *testing.T) {
	db := importedDB(t)
	if _, err := WriteJISMappingFile(context.Background(), filepath.Join(t.TempDir(), "missing", "jis.csv"), db); err == nil {
		t.Fatal("WriteJISMappingFile() expected error for missing directory")
	}
}
