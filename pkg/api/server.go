// Package api serves the search service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/log"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/metrics"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// UserHeader carries the authenticated username, set by the front proxy.
const UserHeader = "X-Remote-User"

var logger = log.ForService("api")

// CallerResolver turns a username into a caller with its rights.
// *access.Directory implements it.
type CallerResolver interface {
	Resolve(ctx context.Context, username string) (*access.Caller, error)
}

// StatsSource reports archive statistics. *storage.Store implements it.
type StatsSource interface {
	Stats(ctx context.Context) (storage.Stats, error)
}

type Server struct {
	search  *search.Service
	callers CallerResolver
	stats   StatsSource
}

func NewServer(svc *search.Service, callers CallerResolver, stats StatsSource) *Server {
	return &Server{
		search:  svc,
		callers: callers,
		stats:   stats,
	}
}

// Handler returns the complete API handler: routes, /metrics, request
// metrics and gzip compression. The websocket route is not compressed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	instrumented := metrics.Middleware(mux)
	compressed := gzhttp.GzipHandler(instrumented)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == wsPath {
			instrumented.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}

// caller resolves the request's caller. A request without a username has
// no caller; the search service rejects it.
func (s *Server) caller(r *http.Request) (*access.Caller, error) {
	username := r.Header.Get(UserHeader)
	if username == "" {
		return nil, nil
	}
	return s.callers.Resolve(r.Context(), username)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnf("error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}
