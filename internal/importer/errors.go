package importer

import (
	"fmt"

	"github.com/JonMunkholm/jisarea/internal/record"
)

// RecordError identifies the record and field that failed validation. Err is
// usually a *jiscode.ValidationError.
type RecordError struct {
	Path   string
	Line   int
	Field  string
	Record record.Record
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: field %s: %v (record %v)", e.Path, e.Line, e.Field, e.Err, map[string]string(e.Record))
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
