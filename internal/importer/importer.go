// Package importer normalizes area-code files into the five code tables.
//
// An import runs in two phases. The buffering phase decodes every input file
// and validates every numeric code; any failure aborts the call before the
// database is touched. The write phase creates the schema if needed, seeds a
// per-call key cache from the existing rows and inserts only the natural
// keys the cache has not seen, all inside one transaction.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/jisarea/internal/jiscode"
	"github.com/JonMunkholm/jisarea/internal/record"
	"github.com/JonMunkholm/jisarea/internal/segment"
	"github.com/JonMunkholm/jisarea/internal/store"
)

// ContextCheckInterval is how often, in records, buffering checks for
// cancellation.
var ContextCheckInterval = 1000

// Run outcomes reported to a Recorder.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// Recorder receives one observation per import call.
type Recorder interface {
	ObserveImport(status string, attempted, inserted int, duration time.Duration)
}

// Result summarizes one import call. Attempted counts every decoded and
// validated record; Inserted counts new sub-areas only.
type Result struct {
	RunID     string        `json:"run_id"`
	Files     int           `json:"files"`
	Attempted int           `json:"attempted"`
	Inserted  int           `json:"inserted"`
	Created   Created       `json:"created"`
	Duration  time.Duration `json:"duration"`
}

// Importer imports area-code files. It holds configuration only and is safe
// for concurrent use, though callers are expected to serialize writes to one
// database.
type Importer struct {
	decode   record.Options
	fields   record.Fields
	logger   *slog.Logger
	recorder Recorder
}

// Option configures an Importer.
type Option func(*Importer)

// WithEncoding sets the text encoding of the input files.
func WithEncoding(name string) Option {
	return func(im *Importer) { im.decode.Encoding = name }
}

// WithFields overrides the column names read from each record.
func WithFields(f record.Fields) Option {
	return func(im *Importer) { im.fields = f }
}

// WithLogger sets the base logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

// WithRecorder reports each run to r.
func WithRecorder(r Recorder) Option {
	return func(im *Importer) { im.recorder = r }
}

// New returns an Importer reading R2KA columns in the default encoding.
func New(opts ...Option) *Importer {
	im := &Importer{fields: record.DefaultFields}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import reads paths and writes their records to db in one transaction.
// db is borrowed: Import commits or rolls back its own transaction but never
// closes db.
func (im *Importer) Import(ctx context.Context, db store.Beginner, paths []string) (res Result, err error) {
	start := time.Now()
	res.RunID = uuid.NewString()
	res.Files = len(paths)

	logger := im.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", res.RunID)
	logger.Info("import started", "files", len(paths))

	defer func() {
		res.Duration = time.Since(start)
		status := StatusSuccess
		switch {
		case err == nil:
			logger.Info("import finished",
				"attempted", res.Attempted,
				"inserted", res.Inserted,
				"prefectures", res.Created.Prefectures,
				"cities", res.Created.Cities,
				"areas", res.Created.Areas,
				"sections", res.Created.Sections,
				"duration", res.Duration,
			)
		case isInvalid(err):
			status = StatusInvalid
			logger.Warn("import rejected", "error", err)
		default:
			status = StatusFailed
			logger.Error("import failed", "error", err)
		}
		if im.recorder != nil {
			im.recorder.ObserveImport(status, res.Attempted, res.Inserted, res.Duration)
		}
	}()

	var rows []row
	for _, path := range paths {
		var stats fileStats
		rows, stats, err = im.bufferFile(ctx, path, rows)
		if err != nil {
			return Result{RunID: res.RunID, Files: res.Files}, err
		}
		logger.Info("file buffered", "path", stats.path, "records", stats.records, "bytes", stats.bytes)
	}

	created, inserted, err := im.write(ctx, db, rows)
	if err != nil {
		return Result{RunID: res.RunID, Files: res.Files}, err
	}

	res.Attempted = len(rows)
	res.Inserted = inserted
	res.Created = created
	return res, nil
}

// write segments rows and inserts them in one transaction.
func (im *Importer) write(ctx context.Context, db store.Beginner, rows []row) (Created, int, error) {
	leaves := make([]segment.Leaf, len(rows))
	for i, r := range rows {
		leaves[i] = segment.Leaf{Prefecture: r.prefCode, City: r.cityCode, Code: r.subAreaCode, Name: r.subAreaName}
	}
	splits := segment.Segment(leaves)

	tx, err := db.Begin(ctx)
	if err != nil {
		return Created{}, 0, err
	}
	defer tx.Rollback(ctx)

	if err := tx.EnsureSchema(ctx); err != nil {
		return Created{}, 0, err
	}

	cache, err := loadKeyCache(ctx, tx)
	if err != nil {
		return Created{}, 0, err
	}

	for i, r := range rows {
		if err := insertRow(ctx, tx, cache, r, splits[i]); err != nil {
			return Created{}, 0, fmt.Errorf("record %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Created{}, 0, err
	}
	created := cache.created()
	return created, created.SubAreas, nil
}

// insertRow resolves every entity of r through the cache, inserting the
// ones that are new.
func insertRow(ctx context.Context, tx store.Tx, cache *keyCache, r row, split segment.Split) error {
	prefID, err := resolve(&cache.prefectures, r.prefCode, func() (int64, error) {
		return tx.InsertPrefecture(ctx, r.prefCode, r.prefName)
	})
	if err != nil {
		return err
	}

	cityKey := store.CityKey{PrefCode: r.prefCode, CityCode: r.cityCode}
	cityID, err := resolve(&cache.cities, cityKey, func() (int64, error) {
		return tx.InsertCity(ctx, cityKey, r.cityName)
	})
	if err != nil {
		return err
	}

	areaID, err := resolve(&cache.areas, split.Area, func() (int64, error) {
		return tx.InsertArea(ctx, split.Area)
	})
	if err != nil {
		return err
	}

	var sectionID *int64
	if split.HasSection() {
		id, err := resolve(&cache.sections, split.Section, func() (int64, error) {
			return tx.InsertSection(ctx, split.Section)
		})
		if err != nil {
			return err
		}
		sectionID = &id
	}

	sa := store.SubArea{
		Code:         r.subAreaCode,
		AreaID:       areaID,
		SectionID:    sectionID,
		CityID:       cityID,
		PrefectureID: prefID,
	}
	_, err = resolve(&cache.subAreas, sa.Key(), func() (int64, error) {
		return tx.InsertSubArea(ctx, sa)
	})
	return err
}

// isInvalid reports whether err comes from bad input rather than storage.
func isInvalid(err error) bool {
	var verr *jiscode.ValidationError
	var derr *record.DecodeError
	return errors.As(err, &verr) || errors.As(err, &derr)
}
