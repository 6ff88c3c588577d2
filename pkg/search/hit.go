package search

import (
	"encoding/json"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/highlight"
)

// Hit is one entry of the merged result list: an *ExamHit, *AnswerHit or
// *CommentHit.
type Hit interface {
	HitKind() Kind
	HitRank() float64
	hit()
}

// ExamHit is an exam whose title matched, with the matching pages that
// contributed to its rank.
type ExamHit struct {
	ID           int64              `json:"id"`
	Filename     string             `json:"filename"`
	DisplayName  string             `json:"display_name"`
	CategorySlug string             `json:"category_slug"`
	CategoryName string             `json:"category_displayname"`
	Rank         float64            `json:"rank"`
	Headline     highlight.Headline `json:"headline"`
	Pages        []PageHit          `json:"pages"`
}

// PageHit is a matching page of an exam.
type PageHit struct {
	ExamID     int64              `json:"-"`
	PageNumber int                `json:"page_number"`
	Rank       float64            `json:"rank"`
	Headline   highlight.Headline `json:"headline"`
}

// AnswerHit is a matching answer. HighlightedWords holds only the matched
// words, not their context.
type AnswerHit struct {
	LongID            string   `json:"long_id"`
	AuthorUsername    string   `json:"author_username"`
	AuthorDisplayName string   `json:"author_displayname"`
	Text              string   `json:"text"`
	HighlightedWords  []string `json:"highlighted_words"`
	Filename          string   `json:"filename"`
	Rank              float64  `json:"rank"`
}

// CommentHit is a matching comment. AnswerLongID names the answer it was
// posted under.
type CommentHit struct {
	LongID            string   `json:"long_id"`
	AnswerLongID      string   `json:"answer_long_id"`
	AuthorUsername    string   `json:"author_username"`
	AuthorDisplayName string   `json:"author_displayname"`
	Text              string   `json:"text"`
	HighlightedWords  []string `json:"highlighted_words"`
	Filename          string   `json:"filename"`
	Rank              float64  `json:"rank"`
}

func (*ExamHit) HitKind() Kind    { return KindExam }
func (*AnswerHit) HitKind() Kind  { return KindAnswer }
func (*CommentHit) HitKind() Kind { return KindComment }

func (h *ExamHit) HitRank() float64    { return h.Rank }
func (h *AnswerHit) HitRank() float64  { return h.Rank }
func (h *CommentHit) HitRank() float64 { return h.Rank }

func (*ExamHit) hit()    {}
func (*AnswerHit) hit()  {}
func (*CommentHit) hit() {}

// The JSON form of every hit carries a "type" field naming its kind.

func (h *ExamHit) MarshalJSON() ([]byte, error) {
	type plain ExamHit
	pages := h.Pages
	if pages == nil {
		pages = []PageHit{}
	}
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
		Pages []PageHit `json:"pages"`
	}{KindExam, (*plain)(h), pages})
}

func (h *AnswerHit) MarshalJSON() ([]byte, error) {
	type plain AnswerHit
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
	}{KindAnswer, (*plain)(h)})
}

func (h *CommentHit) MarshalJSON() ([]byte, error) {
	type plain CommentHit
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
	}{KindComment, (*plain)(h)})
}
