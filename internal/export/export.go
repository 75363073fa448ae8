// Package export writes the jis_code to sub_area_id mapping as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/JonMunkholm/jisarea/internal/lookup"
	"github.com/JonMunkholm/jisarea/internal/store"
)

// PageSize is the number of codes_view rows read per query.
var PageSize = 5000

// flushInterval is how many rows are buffered between flushes.
const flushInterval = 1000

// Flusher is implemented by writers that can push buffered output to the
// client, such as http.ResponseWriter.
type Flusher interface {
	Flush()
}

// WriteJISMapping writes one "jis_code,sub_area_id" line per codes_view row,
// ordered by sub_area_id, with no header. It returns the number of rows
// written.
func WriteJISMapping(ctx context.Context, w io.Writer, r store.Reader) (int, error) {
	cw := csv.NewWriter(w)
	flusher, _ := w.(Flusher)

	n := 0
	err := lookup.Codes(r).Each(ctx, PageSize, func(c store.Code) error {
		if err := cw.Write([]string{
			strconv.FormatInt(c.JISCode, 10),
			strconv.FormatInt(c.SubAreaID, 10),
		}); err != nil {
			return err
		}
		n++
		if n%flushInterval == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		return nil
	})

	cw.Flush()
	if err == nil {
		err = cw.Error()
	}
	if err != nil {
		return n, fmt.Errorf("export jis mapping: %w", err)
	}
	return n, nil
}

// WriteJISMappingFile writes the mapping to path, replacing any existing
// file.
func WriteJISMappingFile(ctx context.Context, path string, r store.Reader) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := WriteJISMapping(ctx, f, r)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	return n, err
}
