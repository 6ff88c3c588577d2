package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/log"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

var logger = log.ForService("search")

// MaxHitsPerKind is the hard ceiling on hits per kind. Options.MaxLimit can
// lower it but never raise it.
const MaxHitsPerKind = 30

// Options tunes a Service. See config.SearchConfig for the file form.
type Options struct {
	DefaultLimit        int
	MaxLimit            int
	QueryTimeout        time.Duration
	PageOverfetch       int
	SimilarityThreshold float64
	ExamHeadline        storage.HeadlineOptions
	PostHeadline        storage.HeadlineOptions
}

// DefaultOptions returns the stock limits: 15 hits per kind by default, 30
// at most, ten times as many pages, and long headlines for exams but only
// the matched words for answers and comments.
func DefaultOptions() Options {
	return Options{
		DefaultLimit:        15,
		MaxLimit:            MaxHitsPerKind,
		QueryTimeout:        5 * time.Second,
		PageOverfetch:       10,
		SimilarityThreshold: 0.3,
		ExamHeadline:        storage.HeadlineOptions{MaxFragments: 5, MinWords: 15, MaxWords: 35},
		PostHeadline:        storage.HeadlineOptions{MaxFragments: 5, MinWords: 1, MaxWords: 2},
	}
}

// Observer is told about every index query. kind is "exam", "page",
// "answer" or "comment".
type Observer interface {
	ObserveQuery(kind string, elapsed time.Duration, err error)
}

// Results is the outcome of a search.
type Results struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	Kinds []Kind `json:"kinds"`
	Hits  []Hit  `json:"hits"`

	// Errors holds the kinds whose query failed. Their hits are missing
	// from Hits.
	Errors map[Kind]error `json:"-"`
}

// Failed reports whether every requested kind failed.
func (r *Results) Failed() bool {
	return len(r.Kinds) > 0 && len(r.Errors) == len(r.Kinds)
}

// KindResult is what SearchStream reports for one kind. Exam hits already
// carry their rolled-up pages.
type KindResult struct {
	Kind Kind
	Hits []Hit
	Err  error
}

// Service executes searches against an Index.
type Service struct {
	index      Index
	visibility access.Visibility

	mu       sync.RWMutex
	opts     Options
	observer Observer
}

// NewService creates a Service. visibility decides what non-admin callers
// see; access.Policy is the archive's rule set.
func NewService(index Index, visibility access.Visibility, opts Options) *Service {
	return &Service{
		index:      index,
		visibility: visibility,
		opts:       opts,
	}
}

// Options returns the options in effect.
func (s *Service) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// SetOptions replaces the options for subsequent searches.
func (s *Service) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

// Observe registers an Observer for query timings.
func (s *Service) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Search runs req and returns the merged hits. Invalid requests fail with
// ErrEmptyQuery, ErrInvalidEntityKind or ErrUnauthorized. Failures of
// individual kinds are reported in Results.Errors.
func (s *Service) Search(ctx context.Context, req Request) (*Results, error) {
	return s.SearchStream(ctx, req, nil)
}

// SearchStream is Search, additionally calling progress once per requested
// kind as soon as that kind is complete. Calls to progress never overlap.
func (s *Service) SearchStream(ctx context.Context, req Request, progress func(KindResult)) (*Results, error) {
	s.mu.RLock()
	opts, observer := s.opts, s.observer
	s.mu.RUnlock()

	n, err := normalize(req, opts)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		exams    []ExamHit
		pages    []PageHit
		answers  []AnswerHit
		comments []CommentHit
		examErr  error
		examLeft = 2
		errs     = make(map[Kind]error)
	)

	report := func(k Kind, hits []Hit, err error) {
		if err != nil {
			errs[k] = err
		}
		if progress != nil {
			progress(KindResult{Kind: k, Hits: hits, Err: err})
		}
	}

	// The exam kind is complete once both the title and the page query are.
	examPart := func(err error) {
		if err != nil && examErr == nil {
			examErr = err
		}
		examLeft--
		if examLeft > 0 {
			return
		}
		if examErr != nil {
			exams, pages = nil, nil
			report(KindExam, nil, examErr)
			return
		}
		report(KindExam, Merge(exams, pages, nil, nil), nil)
	}

	var g errgroup.Group
	if n.wants(KindExam) {
		g.Go(func() error {
			hits, err := runQuery(ctx, observer, opts, string(KindExam), KindExam, func(ctx context.Context) ([]ExamHit, error) {
				return s.searchExams(ctx, n, opts)
			})
			mu.Lock()
			defer mu.Unlock()
			exams = hits
			examPart(err)
			return nil
		})
		g.Go(func() error {
			hits, err := runQuery(ctx, observer, opts, kindPage, KindExam, func(ctx context.Context) ([]PageHit, error) {
				return s.searchPages(ctx, n, opts)
			})
			mu.Lock()
			defer mu.Unlock()
			pages = hits
			examPart(err)
			return nil
		})
	}
	if n.wants(KindAnswer) {
		g.Go(func() error {
			hits, err := runQuery(ctx, observer, opts, string(KindAnswer), KindAnswer, func(ctx context.Context) ([]AnswerHit, error) {
				return s.searchAnswers(ctx, n, opts)
			})
			mu.Lock()
			defer mu.Unlock()
			answers = hits
			report(KindAnswer, Merge(nil, nil, hits, nil), err)
			return nil
		})
	}
	if n.wants(KindComment) {
		g.Go(func() error {
			hits, err := runQuery(ctx, observer, opts, string(KindComment), KindComment, func(ctx context.Context) ([]CommentHit, error) {
				return s.searchComments(ctx, n, opts)
			})
			mu.Lock()
			defer mu.Unlock()
			comments = hits
			report(KindComment, Merge(nil, nil, nil, hits), err)
			return nil
		})
	}
	_ = g.Wait()

	res := &Results{
		Query:  n.query,
		Limit:  n.limit,
		Kinds:  n.kinds,
		Hits:   Merge(exams, pages, answers, comments),
		Errors: errs,
	}
	if len(errs) > 0 {
		logger.Warnf("search %q: %d of %d kinds failed", n.query, len(errs), len(n.kinds))
	}
	logger.Debugf("search %q returned %d hits", n.query, len(res.Hits))
	return res, nil
}

// runQuery bounds one index query by the configured timeout and turns its
// failure into a *KindError for kind.
func runQuery[T any](ctx context.Context, observer Observer, opts Options, label string, kind Kind, query func(context.Context) ([]T, error)) ([]T, error) {
	if opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	hits, err := query(ctx)
	elapsed := time.Since(start)
	if observer != nil {
		observer.ObserveQuery(label, elapsed, err)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warnf("%s query timed out after %s", label, elapsed)
		} else {
			logger.Warnf("%s query failed: %v", label, err)
		}
		return nil, &KindError{Kind: kind, Err: fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)}
	}
	logger.Debugf("%s query returned %d hits in %s", label, len(hits), elapsed)
	return hits, nil
}
