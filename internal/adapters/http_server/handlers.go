package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"hotel_search/internal/app"
	"hotel_search/internal/domain"
)

const msgTermRequired = "Search term is required"

type Handlers struct {
	Search   *app.SearchService
	Listings *app.ListingService
}

type searchRequest struct {
	SearchTerm *string `json:"searchTerm"`
}

type searchData struct {
	ResultType domain.ResultType     `json:"resultType"`
	Results    []domain.SearchResult `json:"results"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    *searchData `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/search", h.search)
	s.mux.Get("/hotels/search", h.searchListings)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body, nil
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SearchTerm == nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: msgTermRequired})
		return
	}

	res, err := h.Search.Resolve(r.Context(), *req.SearchTerm)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: msgTermRequired})
			return
		}
		log.Error().Err(err).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, envelope{
			Success: false,
			Message: err.Error(),
			Error:   "Internal server error",
		})
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    &searchData{ResultType: res.ResultType, Results: res.Results()},
	})
}

func (h *Handlers) searchListings(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	var q domain.ListingQuery

	if loc := qs.Get("location"); loc != "" {
		q.Location = &loc
	}
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"minPrice", &q.MinPrice}, {"maxPrice", &q.MaxPrice}} {
		raw := qs.Get(p.name)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": p.name + " must be a number"})
			return
		}
		*p.dst = &f
	}
	if am := qs.Get("amenities"); am != "" {
		q.Amenities = strings.Split(am, ",")
	}

	out, err := h.Listings.Search(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("listing search failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to search hotels"})
		return
	}

	etag, body, err := calcETagAndBody(out)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal listings")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to search hotels"})
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listings body")
	}
}
