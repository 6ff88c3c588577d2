// Package search runs a free-text query across the exam archive and returns
// one ranked list of hits.
//
// # Overview
//
// A search covers up to three kinds of content: exams, answers and comments.
// Exams are matched on their title and, through a page sub-query, on the
// text of their pages. Each kind is queried independently against an Index,
// highlighted with freshly generated boundary marks, filtered through the
// caller's visibility and capped. The results are then merged:
//
//   - page ranks are added to the rank of the exam they belong to
//   - pages of exams whose title did not match are dropped
//   - all hits are sorted by rank, highest first
//
// Ranks of different kinds are not normalized against each other. Exam
// ranks include a trigram similarity term the other kinds lack.
//
// # Usage
//
//	service := search.NewService(store, access.Policy{}, search.DefaultOptions())
//	results, err := service.Search(ctx, search.Request{
//		Query:  "dynamic programming",
//		Kinds:  []search.Kind{search.KindExam, search.KindAnswer},
//		Limit:  10,
//		Caller: caller,
//	})
//
// Parsing HTTP parameters:
//
//	req := search.ParseRequest(r.URL.Query())
//	req.Caller = caller
//	results, err := service.Search(r.Context(), req)
//
// # Errors
//
// Request problems (ErrEmptyQuery, ErrInvalidEntityKind, ErrUnauthorized)
// fail the whole call before any query runs. A failing or slow index only
// fails its own kind: the error is recorded in Results.Errors as a
// *KindError wrapping ErrUpstreamUnavailable and the other kinds are still
// returned.
//
// # Concurrency
//
// The exam, page, answer and comment queries run concurrently, each bounded
// by Options.QueryTimeout. Merging waits for all of them. SearchStream
// additionally reports every kind as soon as it completes.
package search
