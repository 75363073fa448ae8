package record

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// csvReader reads delimited text whose first row names the columns.
type csvReader struct {
	path    string
	closer  io.Closer
	counter *CountingReader
	csv     *csv.Reader
	header  []string
	line    int
}

func newCSVReader(path string, counter *CountingReader, closer io.Closer, enc encoding.Encoding) (*csvReader, error) {
	br := bufio.NewReader(transform.NewReader(counter, enc.NewDecoder()))
	if err := skipBOM(br); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	r := &csvReader{path: path, closer: closer, counter: counter, csv: cr}

	header, err := cr.Read()
	if err == io.EOF {
		return r, nil
	}
	if err != nil {
		return nil, r.wrap(err)
	}
	r.header = make([]string, len(header))
	for i, name := range header {
		r.header[i] = strings.TrimSpace(name)
	}
	return r, nil
}

func (r *csvReader) Next() (Record, error) {
	if r.header == nil {
		return nil, io.EOF
	}

	row, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, r.wrap(err)
	}
	r.line, _ = r.csv.FieldPos(0)

	rec := make(Record, len(r.header))
	for i, name := range r.header {
		if i < len(row) {
			rec[name] = row[i]
		}
	}
	return rec, nil
}

func (r *csvReader) wrap(err error) error {
	line := 0
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		line = pe.Line
	}
	return &DecodeError{Path: r.path, Line: line, Err: err}
}

func (r *csvReader) Line() int        { return r.line }
func (r *csvReader) BytesRead() int64 { return r.counter.BytesRead }
func (r *csvReader) Close() error     { return r.closer.Close() }
