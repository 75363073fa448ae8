package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/jisarea/internal/logging"
	"github.com/JonMunkholm/jisarea/internal/record"
)

// maxMemory is the part of a multipart form kept in memory; the rest spills
// to temporary files.
const maxMemory = 32 << 20

// handleImport imports the uploaded "files" parts in form order. Uploads
// are spooled to a temporary directory because DBF decoding needs random
// access to the header and the importer reads by path.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	limits := s.cfg.Import
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFileSize*int64(max(limits.MaxFiles, 1)))

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		status := http.StatusBadRequest
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, r, fmt.Errorf("parse upload: %w", err), status)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	if len(headers) > limits.MaxFiles {
		respondError(w, r, &badParamError{name: "files", value: fmt.Sprintf("%d files, max %d", len(headers), limits.MaxFiles)}, http.StatusBadRequest)
		return
	}
	for _, h := range headers {
		if h.Size > limits.MaxFileSize {
			respondError(w, r, fmt.Errorf("file too large: %s (%d bytes)", h.Filename, h.Size), http.StatusRequestEntityTooLarge)
			return
		}
	}

	encoding := r.FormValue("encoding")
	if encoding == "" {
		encoding = limits.Encoding
	}
	if _, err := record.LookupEncoding(encoding); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.imports.Acquire(r.Context()); err != nil {
		if errors.Is(err, ErrImportBusy) {
			w.Header().Set("Retry-After", "30")
			respondError(w, r, err, http.StatusTooManyRequests)
			return
		}
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	defer s.imports.Release()
	s.metrics.ImportStarted()
	defer s.metrics.ImportDone()

	dir, err := os.MkdirTemp("", "jisarea-import-")
	if err != nil {
		respondError(w, r, fmt.Errorf("create spool dir: %w", err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	paths, names, err := spool(dir, headers)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.Timeout)
		defer cancel()
	}

	logging.WithFields(ctx, "files", len(paths), "encoding", encoding).Info("upload received")

	res, err := s.newImporter(ctx, encoding).Import(ctx, s.db, paths)
	if err != nil {
		respondError(w, r, scrub(err, names), importStatus(err))
		return
	}

	s.resetLookups()
	writeJSON(w, r, res)
}

// spool copies each upload to dir, keeping its base name so the format is
// still detected by extension. It returns the paths and a replacer mapping
// them back to the client's file names.
func spool(dir string, headers []*multipart.FileHeader) ([]string, *strings.Replacer, error) {
	paths := make([]string, 0, len(headers))
	pairs := make([]string, 0, 2*len(headers))

	for i, h := range headers {
		sub := filepath.Join(dir, fmt.Sprintf("%03d", i))
		if err := os.Mkdir(sub, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create spool dir: %w", err)
		}
		base := filepath.Base(filepath.Clean("/" + h.Filename))
		if base == "/" || base == "." {
			base = "upload.csv"
		}
		path := filepath.Join(sub, base)

		if err := copyPart(h, path); err != nil {
			return nil, nil, err
		}
		paths = append(paths, path)
		pairs = append(pairs, path, h.Filename)
	}
	return paths, strings.NewReplacer(pairs...), nil
}

func copyPart(h *multipart.FileHeader, path string) error {
	src, err := h.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", h.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("spool %s: %w", h.Filename, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("spool %s: %w", h.Filename, err)
	}
	return dst.Close()
}

// importStatus picks the HTTP status for a failed import.
func importStatus(err error) int {
	switch MapError(err).Code {
	case msgInvalidCode.Code, msgMalformed.Code, msgEncoding.Code:
		return http.StatusUnprocessableEntity
	case msgConstraint.Code:
		return http.StatusConflict
	case msgTimeout.Code:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// scrubbedError replaces spool paths in the message with the uploaded file
// names while keeping the wrapped chain.
type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

func scrub(err error, names *strings.Replacer) error {
	return &scrubbedError{msg: names.Replace(err.Error()), err: err}
}
