package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/highlight"
)

// TextQuery is one ranked, highlighted query against a single text field.
type TextQuery struct {
	Term     string
	Boundary highlight.Boundary
	Headline HeadlineOptions

	// SimilarityThreshold is the minimum trigram similarity for an exam
	// title to match without a full-text hit. Only exams use it. A value
	// of zero or less turns title-only matching off.
	SimilarityThreshold float64
}

// ExamMatch is an exam whose title matched.
type ExamMatch struct {
	ID           int64
	Filename     string
	DisplayName  string
	CategorySlug string
	CategoryName string
	Access       access.Item
	Rank         float64
	Marked       string
}

// PageMatch is a matching page of an exam document.
type PageMatch struct {
	ExamID     int64
	PageNumber int
	Access     access.Item
	Rank       float64
	Marked     string
}

// PostMatch is a matching answer or comment.
type PostMatch struct {
	ID                int64
	LongID            string
	AnswerLongID      string // comments only
	AuthorUsername    string
	AuthorDisplayName string
	Text              string
	Filename          string
	Access            access.Item
	Rank              float64
	Marked            string
}

const examQuery = `
	WITH m AS MATERIALIZED (
		SELECT rowid, -bm25(exams_fts) AS score, highlight(exams_fts, 0, ?, ?) AS marked
		FROM exams_fts
		WHERE exams_fts MATCH ?
	)
	SELECT e.id, e.filename, e.display_name, c.id, c.slug, c.display_name,
		e.public, e.needs_payment,
		COALESCE(m.score, 0) + similarity(?, e.display_name) AS total,
		COALESCE(m.marked, e.display_name)
	FROM exams e
	JOIN categories c ON c.id = e.category_id
	LEFT JOIN m ON m.rowid = e.id
	WHERE m.rowid IS NOT NULL OR (? > 0 AND similarity(?, e.display_name) >= ?)
	ORDER BY total DESC, e.id`

const pageQuery = `
	SELECT p.exam_id, p.page_number, e.category_id, e.public, e.needs_payment,
		-bm25(exam_pages_fts) AS score, highlight(exam_pages_fts, 0, ?, ?)
	FROM exam_pages_fts
	JOIN exam_pages p ON p.id = exam_pages_fts.rowid
	JOIN exams e ON e.id = p.exam_id
	WHERE exam_pages_fts MATCH ?
	ORDER BY score DESC, p.id`

const answerQuery = `
	SELECT a.id, a.long_id, '', a.author, COALESCE(NULLIF(u.display_name, ''), a.author),
		a.text, e.filename, e.category_id, e.public, e.needs_payment,
		-bm25(answers_fts) AS score, highlight(answers_fts, 0, ?, ?)
	FROM answers_fts
	JOIN answers a ON a.id = answers_fts.rowid
	JOIN exams e ON e.id = a.exam_id
	LEFT JOIN users u ON u.username = a.author
	WHERE answers_fts MATCH ?
	ORDER BY score DESC, a.id`

const commentQuery = `
	SELECT c.id, c.long_id, a.long_id, c.author, COALESCE(NULLIF(u.display_name, ''), c.author),
		c.text, e.filename, e.category_id, e.public, e.needs_payment,
		-bm25(comments_fts) AS score, highlight(comments_fts, 0, ?, ?)
	FROM comments_fts
	JOIN comments c ON c.id = comments_fts.rowid
	JOIN answers a ON a.id = c.answer_id
	JOIN exams e ON e.id = a.exam_id
	LEFT JOIN users u ON u.username = c.author
	WHERE comments_fts MATCH ?
	ORDER BY score DESC, c.id`

// RankExams streams exams whose title matches q, best first, until visit
// returns false. The rank is the bm25 score plus the trigram similarity of
// the term and the title.
func (s *Store) RankExams(ctx context.Context, q TextQuery, visit func(ExamMatch) bool) error {
	// similarity splits titles into words the same way ftsQuery does, so a
	// term with no words cannot match fuzzily either. Keep the two in sync.
	match := ftsQuery(q.Term)
	if match == "" {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, examQuery,
		q.Boundary.Start, q.Boundary.End, match,
		q.Term, q.SimilarityThreshold, q.Term, q.SimilarityThreshold)
	if err != nil {
		return fmt.Errorf("querying exams: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var m ExamMatch
		var marked string
		err := rows.Scan(&m.ID, &m.Filename, &m.DisplayName,
			&m.Access.CategoryID, &m.CategorySlug, &m.CategoryName,
			&m.Access.Public, &m.Access.NeedsPayment, &m.Rank, &marked)
		if err != nil {
			return fmt.Errorf("scanning exam: %w", err)
		}
		m.Marked = buildHeadline(marked, q.Boundary, q.Headline)
		if !visit(m) {
			break
		}
	}
	return rows.Err()
}

// RankPages streams matching exam pages, best first, until visit returns
// false.
func (s *Store) RankPages(ctx context.Context, q TextQuery, visit func(PageMatch) bool) error {
	match := ftsQuery(q.Term)
	if match == "" {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, pageQuery, q.Boundary.Start, q.Boundary.End, match)
	if err != nil {
		return fmt.Errorf("querying exam pages: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var m PageMatch
		var marked string
		err := rows.Scan(&m.ExamID, &m.PageNumber,
			&m.Access.CategoryID, &m.Access.Public, &m.Access.NeedsPayment,
			&m.Rank, &marked)
		if err != nil {
			return fmt.Errorf("scanning exam page: %w", err)
		}
		m.Marked = buildHeadline(marked, q.Boundary, q.Headline)
		if !visit(m) {
			break
		}
	}
	return rows.Err()
}

// RankAnswers streams matching answers, best first, until visit returns
// false.
func (s *Store) RankAnswers(ctx context.Context, q TextQuery, visit func(PostMatch) bool) error {
	return s.rankPosts(ctx, "answers", answerQuery, q, visit)
}

// RankComments streams matching comments, best first, until visit returns
// false.
func (s *Store) RankComments(ctx context.Context, q TextQuery, visit func(PostMatch) bool) error {
	return s.rankPosts(ctx, "comments", commentQuery, q, visit)
}

func (s *Store) rankPosts(ctx context.Context, what, query string, q TextQuery, visit func(PostMatch) bool) error {
	match := ftsQuery(q.Term)
	if match == "" {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, query, q.Boundary.Start, q.Boundary.End, match)
	if err != nil {
		return fmt.Errorf("querying %s: %w", what, err)
	}
	defer closeRows(rows)

	for rows.Next() {
		m, marked, err := scanPost(rows)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", what, err)
		}
		m.Marked = buildHeadline(marked, q.Boundary, q.Headline)
		if !visit(m) {
			break
		}
	}
	return rows.Err()
}

func scanPost(rows *sql.Rows) (PostMatch, string, error) {
	var m PostMatch
	var marked string
	err := rows.Scan(&m.ID, &m.LongID, &m.AnswerLongID,
		&m.AuthorUsername, &m.AuthorDisplayName, &m.Text, &m.Filename,
		&m.Access.CategoryID, &m.Access.Public, &m.Access.NeedsPayment,
		&m.Rank, &marked)
	return m, marked, err
}
