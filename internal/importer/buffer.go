package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/jisarea/internal/jiscode"
	"github.com/JonMunkholm/jisarea/internal/record"
)

// row is a validated record.
type row struct {
	prefCode    int
	prefName    string
	cityCode    int
	cityName    string
	subAreaCode int
	subAreaName string
}

// fileStats describes one buffered file.
type fileStats struct {
	path    string
	records int
	bytes   int64
}

// bufferFile decodes and validates every record of path. Nothing is
// written; the first bad record aborts the whole import.
func (im *Importer) bufferFile(ctx context.Context, path string, rows []row) ([]row, fileStats, error) {
	stats := fileStats{path: path}

	r, err := record.Open(path, im.decode)
	if err != nil {
		return rows, stats, err
	}
	defer r.Close()

	for {
		if stats.records%ContextCheckInterval == 0 && ctx.Err() != nil {
			return rows, stats, ctx.Err()
		}

		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, stats, err
		}

		v, err := im.validate(path, r.Line(), rec)
		if err != nil {
			return rows, stats, err
		}
		rows = append(rows, v)
		stats.records++
	}

	stats.bytes = r.BytesRead()
	return rows, stats, nil
}

// validate maps rec through the configured fields and parses its codes.
func (im *Importer) validate(path string, line int, rec record.Record) (row, error) {
	get := func(field string) (string, error) {
		v, ok := rec.Get(field)
		if !ok {
			return "", &record.DecodeError{Path: path, Line: line, Err: fmt.Errorf("%w %s", record.ErrMissingField, field)}
		}
		return v, nil
	}
	code := func(field string, width int) (int, error) {
		v, err := get(field)
		if err != nil {
			return 0, err
		}
		n, err := jiscode.Parse(v, width)
		if err != nil {
			return 0, &RecordError{Path: path, Line: line, Field: field, Record: rec, Err: err}
		}
		return n, nil
	}
	name := func(field string) (string, error) {
		v, err := get(field)
		return strings.TrimSpace(v), err
	}

	var out row
	var err error
	f := im.fields
	if out.prefCode, err = code(f.Prefecture, jiscode.PrefectureWidth); err != nil {
		return row{}, err
	}
	if out.cityCode, err = code(f.City, jiscode.CityWidth); err != nil {
		return row{}, err
	}
	if out.subAreaCode, err = code(f.SubArea, jiscode.SubAreaWidth); err != nil {
		return row{}, err
	}
	if out.prefName, err = name(f.PrefectureName); err != nil {
		return row{}, err
	}
	if out.cityName, err = name(f.CityName); err != nil {
		return row{}, err
	}
	if out.subAreaName, err = name(f.SubAreaName); err != nil {
		return row{}, err
	}
	return out, nil
}
