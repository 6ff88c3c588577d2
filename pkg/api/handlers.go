package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/metrics"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/version"
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		logger.Errorf("resolving caller: %v", err)
		s.writeError(w, http.StatusServiceUnavailable, "Caller lookup failed", err.Error())
		return
	}

	req := search.ParseRequest(r.URL.Query())
	req.Caller = caller

	results, err := s.search.Search(r.Context(), req)
	if err != nil {
		status, title := requestErrorStatus(err)
		metrics.SearchesTotal.WithLabelValues("http", "rejected").Inc()
		s.writeError(w, status, title, err.Error())
		return
	}

	if results.Failed() {
		metrics.SearchesTotal.WithLabelValues("http", "failed").Inc()
		s.writeError(w, http.StatusBadGateway, "Search failed", joinErrors(results.Errors))
		return
	}

	outcome := "ok"
	if len(results.Errors) > 0 {
		outcome = "partial"
	}
	metrics.SearchesTotal.WithLabelValues("http", outcome).Inc()
	s.writeJSON(w, http.StatusOK, NewSearchResponse(results))
}

// requestErrorStatus maps request validation errors to HTTP statuses.
func requestErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest, "Missing query parameter"
	case errors.Is(err, search.ErrInvalidEntityKind):
		return http.StatusBadRequest, "Invalid kind"
	case errors.Is(err, search.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	}
	return http.StatusInternalServerError, "Search failed"
}

func joinErrors(errs map[search.Kind]error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to get stats", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
