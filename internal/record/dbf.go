package record

// dbf.go reads dBASE III tables. Only what the area-code distributions use is
// supported: character-valued fields, the deleted-record flag and the 0x1A
// end-of-file marker. Numeric and date fields are returned as their stored
// text.

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
)

const (
	dbfHeaderSize     = 32
	dbfDescriptorSize = 32
	dbfHeaderEnd      = 0x0D
	dbfDeleted        = '*'
	dbfEOF            = 0x1A
)

type dbfField struct {
	name   string
	typ    byte
	length int
}

type dbfReader struct {
	path      string
	closer    io.Closer
	counter   *CountingReader
	r         *bufio.Reader
	dec       *encoding.Decoder
	fields    []dbfField
	buf       []byte
	remaining uint32
	index     int
}

func newDBFReader(path string, counter *CountingReader, closer io.Closer, enc encoding.Encoding) (*dbfReader, error) {
	br := bufio.NewReader(counter)
	fail := func(format string, args ...any) error {
		return &DecodeError{Path: path, Err: fmt.Errorf(format, args...)}
	}

	var head [dbfHeaderSize]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		return nil, fail("read header: %w", err)
	}
	count := binary.LittleEndian.Uint32(head[4:8])
	headerLen := int(binary.LittleEndian.Uint16(head[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(head[10:12]))

	consumed := dbfHeaderSize
	width := 1 // deletion flag
	var fields []dbfField
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, fail("read field descriptors: %w", err)
		}
		consumed++
		if b == dbfHeaderEnd {
			break
		}

		var desc [dbfDescriptorSize]byte
		desc[0] = b
		if _, err := io.ReadFull(br, desc[1:]); err != nil {
			return nil, fail("read field descriptor %d: %w", len(fields)+1, err)
		}
		consumed += dbfDescriptorSize - 1

		name, _, _ := bytes.Cut(desc[:11], []byte{0})
		f := dbfField{name: strings.TrimSpace(string(name)), typ: desc[11], length: int(desc[16])}
		fields = append(fields, f)
		width += f.length
	}

	if headerLen < consumed {
		return nil, fail("header length %d is shorter than its %d descriptor bytes", headerLen, consumed)
	}
	if width > recordLen {
		return nil, fail("fields span %d bytes but record length is %d", width, recordLen)
	}
	if _, err := br.Discard(headerLen - consumed); err != nil {
		return nil, fail("skip header padding: %w", err)
	}

	return &dbfReader{
		path:      path,
		closer:    closer,
		counter:   counter,
		r:         br,
		dec:       enc.NewDecoder(),
		fields:    fields,
		buf:       make([]byte, recordLen),
		remaining: count,
	}, nil
}

func (r *dbfReader) Next() (Record, error) {
	for r.remaining > 0 {
		r.remaining--
		r.index++

		n, err := io.ReadFull(r.r, r.buf)
		if n > 0 && r.buf[0] == dbfEOF {
			r.remaining = 0
			return nil, io.EOF
		}
		if err == io.EOF {
			r.remaining = 0
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &DecodeError{Path: r.path, Line: r.index, Err: fmt.Errorf("truncated record: %d of %d bytes", n, len(r.buf))}
		}
		if err != nil {
			return nil, &DecodeError{Path: r.path, Line: r.index, Err: err}
		}

		if r.buf[0] == dbfDeleted {
			continue
		}

		rec := make(Record, len(r.fields))
		pos := 1
		for _, f := range r.fields {
			raw := r.buf[pos : pos+f.length]
			pos += f.length

			text, err := r.dec.Bytes(raw)
			if err != nil {
				return nil, &DecodeError{Path: r.path, Line: r.index, Err: fmt.Errorf("field %s: %w", f.name, err)}
			}
			rec[f.name] = strings.TrimSpace(strings.Trim(string(text), "\x00"))
		}
		return rec, nil
	}
	return nil, io.EOF
}

func (r *dbfReader) Line() int        { return r.index }
func (r *dbfReader) BytesRead() int64 { return r.counter.BytesRead }
func (r *dbfReader) Close() error     { return r.closer.Close() }
