package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Middleware(mux)

	for _, id := range []string{"1", "2"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/items/"+id, http.NoBody))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("expected 418, got %d", rr.Code)
		}
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /api/items/{id}", "418"))
	if got != 2 {
		t.Errorf("expected 2 requests under the route pattern, got %v", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddlewareUnknownRoute(t *testing.T) {
	h := Middleware(http.NewServeMux())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/nope", http.NoBody))

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "404"))
	if got < 1 {
		t.Errorf("expected unmatched request under the unknown label, got %v", got)
	}
}

func TestSearchObserver(t *testing.T) {
	var o SearchObserver
	o.ObserveQuery("answer", 10*time.Millisecond, nil)
	o.ObserveQuery("answer", time.Second, fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	o.ObserveQuery("comment", time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(SearchQueryErrorsTotal.WithLabelValues("answer", "timeout")); got != 1 {
		t.Errorf("expected 1 answer timeout, got %v", got)
	}
	if got := testutil.ToFloat64(SearchQueryErrorsTotal.WithLabelValues("comment", "error")); got != 1 {
		t.Errorf("expected 1 comment error, got %v", got)
	}
	if testutil.CollectAndCount(SearchQueryDuration) < 2 {
		t.Error("expected duration series for answer and comment")
	}
}
