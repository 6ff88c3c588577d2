package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
)

// Request is a single search call.
type Request struct {
	// Query is the free-text term. Surrounding whitespace is ignored and an
	// empty query is rejected.
	Query string

	// Kinds limits the search to some content kinds. Empty means all of
	// them; duplicates are ignored.
	Kinds []Kind

	// Limit is the maximum number of hits per kind. Zero selects the
	// configured default; larger values are clamped to the configured
	// maximum, which never exceeds MaxHitsPerKind.
	Limit int

	// Caller is who the search runs for. Visibility is evaluated against
	// it unless the caller is a global admin.
	Caller *access.Caller
}

// normalized is a validated Request.
type normalized struct {
	query  string
	kinds  []Kind
	limit  int
	caller *access.Caller
}

func (n normalized) wants(k Kind) bool {
	for _, have := range n.kinds {
		if have == k {
			return true
		}
	}
	return false
}

func normalize(req Request, opts Options) (normalized, error) {
	n := normalized{
		query:  strings.TrimSpace(req.Query),
		caller: req.Caller,
	}
	if n.query == "" {
		return n, ErrEmptyQuery
	}

	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		parsed, err := ParseKind(string(k))
		if err != nil {
			return n, err
		}
		if !seen[parsed] {
			seen[parsed] = true
			n.kinds = append(n.kinds, parsed)
		}
	}

	n.limit = req.Limit
	if n.limit == 0 {
		n.limit = opts.DefaultLimit
	}
	n.limit = max(1, min(n.limit, opts.MaxLimit, MaxHitsPerKind))

	if req.Caller == nil || (req.Caller.Anonymous() && !req.Caller.GlobalAdmin()) {
		return n, ErrUnauthorized
	}
	return n, nil
}

// ParseRequest builds a Request from URL query parameters:
//
//	q      the search term
//	kind   a kind to include; repeatable or comma separated
//	limit  hits per kind
//
// Unparseable limits are ignored. Kinds are validated by Search, so an
// unknown kind surfaces as ErrInvalidEntityKind. The caller is left unset.
func ParseRequest(values url.Values) Request {
	req := Request{Query: values.Get("q")}

	for _, v := range values["kind"] {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				req.Kinds = append(req.Kinds, Kind(k))
			}
		}
	}

	if l := values.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			req.Limit = parsed
		}
	}
	return req
}
