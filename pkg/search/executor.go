package search

import (
	"context"
	"sort"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/highlight"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// Index is the ranked text engine a Service queries. Every method streams
// matches best first and stops when visit returns false.
// *storage.Store implements it.
type Index interface {
	RankExams(ctx context.Context, q storage.TextQuery, visit func(storage.ExamMatch) bool) error
	RankPages(ctx context.Context, q storage.TextQuery, visit func(storage.PageMatch) bool) error
	RankAnswers(ctx context.Context, q storage.TextQuery, visit func(storage.PostMatch) bool) error
	RankComments(ctx context.Context, q storage.TextQuery, visit func(storage.PostMatch) bool) error
}

type visibleFunc func(access.Item) bool

// visibleTo returns the filter applied to every match. Global admins see
// everything, so the predicate is not consulted for them at all.
func (s *Service) visibleTo(c *access.Caller) visibleFunc {
	if c.GlobalAdmin() {
		return func(access.Item) bool { return true }
	}
	return func(it access.Item) bool {
		return s.visibility.CanView(c, it)
	}
}

func textQuery(term string, h storage.HeadlineOptions, threshold float64) (storage.TextQuery, highlight.Boundary) {
	b := highlight.NewBoundary()
	return storage.TextQuery{
		Term:                term,
		Boundary:            b,
		Headline:            h,
		SimilarityThreshold: threshold,
	}, b
}

func (s *Service) searchExams(ctx context.Context, n normalized, opts Options) ([]ExamHit, error) {
	q, b := textQuery(n.query, opts.ExamHeadline, opts.SimilarityThreshold)
	visible := s.visibleTo(n.caller)

	var hits []ExamHit
	err := s.index.RankExams(ctx, q, func(m storage.ExamMatch) bool {
		if !visible(m.Access) {
			return true
		}
		hits = append(hits, ExamHit{
			ID:           m.ID,
			Filename:     m.Filename,
			DisplayName:  m.DisplayName,
			CategorySlug: m.CategorySlug,
			CategoryName: m.CategoryName,
			Rank:         m.Rank,
			Headline:     highlight.Parse(m.Marked, b),
		})
		return len(hits) < n.limit
	})
	return hits, err
}

// searchPages over-fetches pages, since an exam has many and the best ones
// must survive the cap for roll-up to work. The surviving pages are ordered
// by exam and page number.
func (s *Service) searchPages(ctx context.Context, n normalized, opts Options) ([]PageHit, error) {
	q, b := textQuery(n.query, opts.ExamHeadline, 0)
	visible := s.visibleTo(n.caller)
	limit := n.limit * max(1, opts.PageOverfetch)

	var hits []PageHit
	err := s.index.RankPages(ctx, q, func(m storage.PageMatch) bool {
		if !visible(m.Access) {
			return true
		}
		hits = append(hits, PageHit{
			ExamID:     m.ExamID,
			PageNumber: m.PageNumber,
			Rank:       m.Rank,
			Headline:   highlight.Parse(m.Marked, b),
		})
		return len(hits) < limit
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].ExamID != hits[j].ExamID {
			return hits[i].ExamID < hits[j].ExamID
		}
		return hits[i].PageNumber < hits[j].PageNumber
	})
	return hits, nil
}

func (s *Service) searchAnswers(ctx context.Context, n normalized, opts Options) ([]AnswerHit, error) {
	q, b := textQuery(n.query, opts.PostHeadline, 0)
	visible := s.visibleTo(n.caller)

	var hits []AnswerHit
	err := s.index.RankAnswers(ctx, q, func(m storage.PostMatch) bool {
		if !visible(m.Access) {
			return true
		}
		hits = append(hits, AnswerHit{
			LongID:            m.LongID,
			AuthorUsername:    m.AuthorUsername,
			AuthorDisplayName: m.AuthorDisplayName,
			Text:              m.Text,
			HighlightedWords:  highlight.Parse(m.Marked, b).Words(),
			Filename:          m.Filename,
			Rank:              m.Rank,
		})
		return len(hits) < n.limit
	})
	return hits, err
}

func (s *Service) searchComments(ctx context.Context, n normalized, opts Options) ([]CommentHit, error) {
	q, b := textQuery(n.query, opts.PostHeadline, 0)
	visible := s.visibleTo(n.caller)

	var hits []CommentHit
	err := s.index.RankComments(ctx, q, func(m storage.PostMatch) bool {
		if !visible(m.Access) {
			return true
		}
		hits = append(hits, CommentHit{
			LongID:            m.LongID,
			AnswerLongID:      m.AnswerLongID,
			AuthorUsername:    m.AuthorUsername,
			AuthorDisplayName: m.AuthorDisplayName,
			Text:              m.Text,
			HighlightedWords:  highlight.Parse(m.Marked, b).Words(),
			Filename:          m.Filename,
			Rank:              m.Rank,
		})
		return len(hits) < n.limit
	})
	return hits, err
}
