// Package recordtest writes area-code fixture files for tests.
package recordtest

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

// Header is the R2KA column layout.
var Header = []string{"PREF", "CITY", "S_AREA", "PREF_NAME", "CITY_NAME", "S_NAME"}

// Row is one sub-area fixture row.
type Row struct {
	Pref, City, SubArea             string
	PrefName, CityName, SubAreaName string
}

func (r Row) values() []string {
	return []string{r.Pref, r.City, r.SubArea, r.PrefName, r.CityName, r.SubAreaName}
}

// Saitama returns a handful of rows modelled on Saitama city, Nishi ward.
func Saitama() []Row {
	return []Row{
		{"11", "101", "001000", "埼玉県", "さいたま市西区", "宮前町"},
		{"11", "101", "001001", "埼玉県", "さいたま市西区", "宮前町一丁目"},
		{"11", "101", "001002", "埼玉県", "さいたま市西区", "宮前町二丁目"},
		{"11", "101", "003001", "埼玉県", "さいたま市西区", "大字指扇"},
		{"11", "101", "004001", "埼玉県", "さいたま市西区", "中央1丁目"},
		{"11", "101", "004002", "埼玉県", "さいたま市西区", "中央2丁目"},
		{"11", "101", "004003", "埼玉県", "さいたま市西区", "中央3丁目"},
	}
}

// WriteCSV writes rows under Header to dir/name in Shift_JIS and returns the path.
func WriteCSV(t testing.TB, dir, name string, rows []Row) string {
	t.Helper()
	return WriteCSVEncoded(t, dir, name, japanese.ShiftJIS, rows)
}

// WriteCSVEncoded is WriteCSV with an explicit encoding. A nil enc writes UTF-8.
func WriteCSVEncoded(t testing.TB, dir, name string, enc encoding.Encoding, rows []Row) string {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, r := range rows {
		if err := w.Write(r.values()); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush csv: %v", err)
	}

	data := buf.Bytes()
	if enc != nil {
		encoded, err := enc.NewEncoder().Bytes(data)
		if err != nil {
			t.Fatalf("encode csv: %v", err)
		}
		data = encoded
	}
	return WriteFile(t, dir, name, data)
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Column is a dBASE character field.
type Column struct {
	Name   string
	Length int
}

// Columns is the R2KA layout as character fields.
var Columns = []Column{
	{"PREF", 2}, {"CITY", 3}, {"S_AREA", 6},
	{"PREF_NAME", 20}, {"CITY_NAME", 40}, {"S_NAME", 60},
}

// DBF builds a dBASE III table with Shift_JIS values. Rows whose index is in
// deleted carry the deleted flag. A trailing 0x1A marker is always written.
func DBF(t testing.TB, cols []Column, rows [][]string, deleted map[int]bool) []byte {
	t.Helper()

	enc := japanese.ShiftJIS.NewEncoder()
	recordLen := 1
	for _, c := range cols {
		recordLen += c.Length
	}
	headerLen := 32 + 32*len(cols) + 1

	var buf bytes.Buffer
	head := make([]byte, 32)
	head[0] = 0x03
	binary.LittleEndian.PutUint32(head[4:8], uint32(len(rows)))
	binary.LittleEndian.PutUint16(head[8:10], uint16(headerLen))
	binary.LittleEndian.PutUint16(head[10:12], uint16(recordLen))
	buf.Write(head)

	for _, c := range cols {
		desc := make([]byte, 32)
		copy(desc, c.Name)
		desc[11] = 'C'
		desc[16] = byte(c.Length)
		buf.Write(desc)
	}
	buf.WriteByte(0x0D)

	for i, row := range rows {
		if deleted[i] {
			buf.WriteByte('*')
		} else {
			buf.WriteByte(' ')
		}
		for j, c := range cols {
			b, err := enc.Bytes([]byte(row[j]))
			if err != nil {
				t.Fatalf("encode %q: %v", row[j], err)
			}
			if len(b) > c.Length {
				t.Fatalf("value %q does not fit field %s", row[j], c.Name)
			}
			field := bytes.Repeat([]byte{' '}, c.Length)
			copy(field, b)
			buf.Write(field)
		}
	}
	buf.WriteByte(0x1A)
	return buf.Bytes()
}

// WriteDBF writes rows as an R2KA dBASE table to dir/name and returns the path.
func WriteDBF(t testing.TB, dir, name string, rows []Row) string {
	t.Helper()
	values := make([][]string, len(rows))
	for i, r := range rows {
		values[i] = r.values()
	}
	return WriteFile(t, dir, name, DBF(t, Columns, values, nil))
}
