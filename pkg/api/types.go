package api

import (
	"time"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SearchResponse struct {
	Query  string            `json:"query"`
	Kinds  []search.Kind     `json:"kinds"`
	Limit  int               `json:"limit"`
	Count  int               `json:"count"`
	Hits   []search.Hit      `json:"hits"`
	Errors map[string]string `json:"errors,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// WSRequest is a query sent over the search websocket.
type WSRequest struct {
	Query string        `json:"q"`
	Kinds []search.Kind `json:"kinds"`
	Limit int           `json:"limit"`
}

// WSKindMessage reports one completed kind.
type WSKindMessage struct {
	Type  string       `json:"type"` // "kind"
	Kind  search.Kind  `json:"kind"`
	Hits  []search.Hit `json:"hits"`
	Error string       `json:"error,omitempty"`
}

// WSResultsMessage carries the merged results after every kind reported.
type WSResultsMessage struct {
	Type string `json:"type"` // "results"
	SearchResponse
}

// WSErrorMessage rejects a query.
type WSErrorMessage struct {
	Type string `json:"type"` // "error"
	ErrorResponse
}

// NewSearchResponse converts service results to the JSON shape the API and
// the search command emit.
func NewSearchResponse(res *search.Results) SearchResponse {
	hits := res.Hits
	if hits == nil {
		hits = []search.Hit{}
	}
	resp := SearchResponse{
		Query: res.Query,
		Kinds: res.Kinds,
		Limit: res.Limit,
		Count: len(hits),
		Hits:  hits,
	}
	if len(res.Errors) > 0 {
		resp.Errors = make(map[string]string, len(res.Errors))
		for k, err := range res.Errors {
			resp.Errors[string(k)] = err.Error()
		}
	}
	return resp
}
