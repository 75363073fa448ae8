// Package record decodes raw area-code files into flat records.
//
// Two input formats are supported:
//
//   - Delimited text with a header row (any extension other than .dbf)
//   - dBASE III tables (.dbf), character fields only
//
// Both are commonly distributed in a Japanese code page, so every reader
// decodes through a configurable text encoding (default cp932). Values are
// returned as strings keyed by the column or field name; interpretation is
// left to the caller.
package record

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Record is one decoded row: field name -> raw value.
type Record map[string]string

// Get returns the value of field and whether it was present.
func (r Record) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// Fields names the columns that carry each attribute of a sub-area record.
type Fields struct {
	Prefecture     string
	PrefectureName string
	City           string
	CityName       string
	SubArea        string
	SubAreaName    string
}

// DefaultFields is the column layout of the e-Stat small-area (R2KA) tables.
var DefaultFields = Fields{
	Prefecture:     "PREF",
	PrefectureName: "PREF_NAME",
	City:           "CITY",
	CityName:       "CITY_NAME",
	SubArea:        "S_AREA",
	SubAreaName:    "S_NAME",
}

// DecodeError reports a malformed source file. Line is the 1-based line
// (CSV) or record number (DBF); zero means the error is not tied to a row.
type DecodeError struct {
	Path string
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("decode %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrMissingField is wrapped by DecodeError when a row lacks a mapped field.
var ErrMissingField = errors.New("missing field")

// Options configures how files are decoded.
type Options struct {
	// Encoding is a WHATWG label or a common alias such as cp932.
	// Empty means DefaultEncoding.
	Encoding string
}

// Reader yields records from one file. Next returns io.EOF after the last
// record.
type Reader interface {
	Next() (Record, error)
	// Line is the position of the record most recently returned by Next.
	Line() int
	// BytesRead is the number of raw bytes consumed from the file so far.
	BytesRead() int64
	Close() error
}

// IsDBF reports whether path names a dBASE table.
func IsDBF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".dbf")
}

// Open opens path and returns a Reader for its format.
func Open(path string, opts Options) (Reader, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	counter := NewCountingReader(f, size)

	var r Reader
	if IsDBF(path) {
		r, err = newDBFReader(path, counter, f, enc)
	} else {
		r, err = newCSVReader(path, counter, f, enc)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// ReadAll decodes every record of path.
func ReadAll(path string, opts Options) ([]Record, error) {
	r, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}
