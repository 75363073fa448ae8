package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/jisarea/internal/export"
	"github.com/JonMunkholm/jisarea/internal/jiscode"
	"github.com/JonMunkholm/jisarea/internal/logging"
	"github.com/JonMunkholm/jisarea/internal/lookup"
)

// Paging defaults for the list endpoints.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 5000
)

// Page is the body of the list endpoints.
type Page[T any] struct {
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
	Items  []T   `json:"items"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, map[string]any{
		"status":    "ok",
		"importing": s.imports.Busy(),
	})
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	pref, err := codeParam(r, "pref", jiscode.PrefectureWidth)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	city, err := codeParam(r, "city", jiscode.CityWidth)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	id, found, err := s.cities.CityID(r.Context(), pref, city)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if !found {
		respondError(w, r, fmt.Errorf("city %02d%03d: %w", pref, city, errNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, r, map[string]int64{"city_id": id})
}

func (s *Server) handleSubArea(w http.ResponseWriter, r *http.Request) {
	pref, err := codeParam(r, "pref", jiscode.PrefectureWidth)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	city, err := codeParam(r, "city", jiscode.CityWidth)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	leaf, err := codeParam(r, "leaf", jiscode.SubAreaWidth)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	id, found, err := s.subAreas.SubAreaID(r.Context(), pref, city, leaf)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if !found {
		err := fmt.Errorf("sub-area %02d%03d%06d: %w", pref, city, leaf, errNotFound)
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, r, map[string]int64{"sub_area_id": id})
}

func (s *Server) handleListSubAreas(w http.ResponseWriter, r *http.Request) {
	servePage(w, r, lookup.SubAreas(s.db))
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	servePage(w, r, lookup.Codes(s.db))
}

func servePage[T any](w http.ResponseWriter, r *http.Request, p *lookup.Pager[T]) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	limit, err := intParam(r, "limit", DefaultPageLimit)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	limit = min(limit, MaxPageLimit)

	total, err := p.Count(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	items, err := p.Fetch(r.Context(), offset, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if MapError(err) == msgBadParam {
			status = http.StatusBadRequest
		}
		respondError(w, r, err, status)
		return
	}
	if items == nil {
		items = []T{}
	}

	writeJSON(w, r, Page[T]{Total: total, Offset: offset, Limit: limit, Items: items})
}

// handleExportCodes streams the jis_code to sub_area_id mapping as CSV.
func (s *Server) handleExportCodes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="jis_mapping.csv"`)

	n, err := export.WriteJISMapping(r.Context(), w, s.db)
	if err != nil {
		// Headers may already be sent; all that is left is to log.
		logging.FromContext(r.Context()).Error("export failed", "rows", n, "error", err)
		return
	}
	logging.FromContext(r.Context()).Debug("export finished", "rows", n)
}

// codeParam parses a fixed-width numeric path parameter.
func codeParam(r *http.Request, name string, width int) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := jiscode.Parse(raw, width)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", &badParamError{name: name, value: raw}, err)
	}
	return v, nil
}

// intParam parses an integer query parameter with a default value.
func intParam(r *http.Request, name string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &badParamError{name: name, value: raw}
	}
	return v, nil
}
