package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
)

const maxPageSize = 100

type eventsResponse struct {
	domain.Page
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"`
}

type statisticsResponse struct {
	domain.Statistics
	Timeline  []domain.DayCount `json:"timeline"`
	FetchedAt time.Time         `json:"fetched_at"`
	Stale     bool              `json:"stale"`
}

type highlightsResponse struct {
	domain.Highlights
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"`
}

type refreshResponse struct {
	Disasters   int       `json:"disasters"`
	Earthquakes int       `json:"earthquakes"`
	FetchedAt   time.Time `json:"fetched_at"`
	Error       string    `json:"error,omitempty"`
}

// dataset loads the current dataset for a read request. A failed refresh that
// still produced fallback data is served and flagged stale; with no data at
// all the request fails with 503.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (domain.Dataset, bool, bool) {
	ds, err := s.feed.Load(r.Context(), false)
	if err == nil {
		return ds, false, true
	}
	logger := requestLogger(r.Context(), s.logger)
	if ds.Empty() {
		logger.Error("no data available", "error", err)
		writeError(w, http.StatusServiceUnavailable, "event data unavailable: "+err.Error())
		return ds, false, false
	}
	logger.Warn("serving fallback data", "error", err, "fetched_at", ds.FetchedAt)
	return ds, true, true
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec, err := parseFilterSpec(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := parseIntParam(q, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := parseIntParam(q, "page_size", s.pageSize)
	if err != nil || pageSize <= 0 || pageSize > maxPageSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid page_size: must be between 1 and %d", maxPageSize))
		return
	}

	ds, stale, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Page:      domain.ApplyFilters(ds.All(), spec, page, pageSize, s.clock.Now()),
		FetchedAt: ds.FetchedAt,
		Stale:     stale,
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := s.dataset(w, r)
	if !ok {
		return
	}
	event, err := domain.EventByID(ds.All(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ds, stale, ok := s.dataset(w, r)
	if !ok {
		return
	}
	stats := domain.ComputeStatistics(ds.Disasters, ds.Earthquakes, s.clock.Now())
	writeJSON(w, http.StatusOK, statisticsResponse{
		Statistics: stats,
		Timeline:   stats.Timeline(),
		FetchedAt:  ds.FetchedAt,
		Stale:      stale,
	})
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	ds, stale, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, highlightsResponse{
		Highlights: domain.ComputeHighlights(ds.Disasters, ds.Earthquakes, s.clock.Now()),
		FetchedAt:  ds.FetchedAt,
		Stale:      stale,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ds, err := s.feed.Load(r.Context(), true)
	resp := refreshResponse{
		Disasters:   len(ds.Disasters),
		Earthquakes: len(ds.Earthquakes),
		FetchedAt:   ds.FetchedAt,
	}
	if err != nil {
		requestLogger(r.Context(), s.logger).Warn("forced refresh failed", "error", err)
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseFilterSpec(q url.Values) (domain.FilterSpec, error) {
	magnitude, err := domain.ParseMagnitudeRange(q.Get("magnitude"))
	if err != nil {
		return domain.FilterSpec{}, err
	}
	days, err := domain.ParseDateWindow(q.Get("days"))
	if err != nil {
		return domain.FilterSpec{}, err
	}
	return domain.FilterSpec{
		SearchTerm:     q.Get("search"),
		Category:       q.Get("category"),
		MagnitudeRange: magnitude,
		DateWindowDays: days,
	}, nil
}

func parseIntParam(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
