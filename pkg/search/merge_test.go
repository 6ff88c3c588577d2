package search

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/highlight"
)

func TestMergeRollUp(t *testing.T) {
	exams := []ExamHit{{ID: 1, Rank: 1.0}}
	pages := []PageHit{
		{ExamID: 1, PageNumber: 3, Rank: 0.5},
		{ExamID: 1, PageNumber: 9, Rank: 0.3},
		{ExamID: 2, PageNumber: 1, Rank: 5.0},
	}

	hits := Merge(exams, pages, nil, nil)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	exam := hits[0].(*ExamHit)
	if math.Abs(exam.Rank-1.8) > 1e-9 {
		t.Errorf("expected rank 1.8, got %v", exam.Rank)
	}
	if len(exam.Pages) != 2 {
		t.Errorf("expected 2 pages, got %d", len(exam.Pages))
	}
	if exams[0].Rank != 1.0 || exams[0].Pages != nil {
		t.Error("Merge modified its input")
	}
}

func TestMergeOrdering(t *testing.T) {
	hits := Merge(
		[]ExamHit{{ID: 1, Rank: 0.2}, {ID: 2, Rank: 3}},
		nil,
		[]AnswerHit{{LongID: "a", Rank: 1}, {LongID: "b", Rank: 0.2}},
		[]CommentHit{{LongID: "c", Rank: 2}},
	)

	var order []string
	for i, h := range hits {
		if i > 0 && hits[i-1].HitRank() < h.HitRank() {
			t.Errorf("hits out of order at %d", i)
		}
		switch v := h.(type) {
		case *ExamHit:
			order = append(order, "exam")
		case *AnswerHit:
			order = append(order, v.LongID)
		case *CommentHit:
			order = append(order, v.LongID)
		}
	}
	// ties keep exam before answer
	if got := strings.Join(order, ","); got != "exam,c,a,exam,b" {
		t.Errorf("unexpected order %s", got)
	}
}

func TestMergeEmpty(t *testing.T) {
	if hits := Merge(nil, nil, nil, nil); len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestHitJSON(t *testing.T) {
	b := highlight.Boundary{Start: "<", End: ">", Fragment: "|"}
	hits := []Hit{
		&ExamHit{ID: 1, Filename: "a.pdf", Rank: 1, Headline: highlight.Parse("x <y>", b)},
		&AnswerHit{LongID: "a1", HighlightedWords: []string{"y"}},
		&CommentHit{LongID: "c1", AnswerLongID: "a1"},
	}

	data, err := json.Marshal(hits)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for i, want := range []string{"exam", "answer", "comment"} {
		if decoded[i]["type"] != want {
			t.Errorf("hit %d type = %v, want %s", i, decoded[i]["type"], want)
		}
	}
	if pages, ok := decoded[0]["pages"].([]any); !ok || len(pages) != 0 {
		t.Errorf("expected empty pages array, got %v", decoded[0]["pages"])
	}
	if !strings.Contains(string(data), `"headline":[["x ",["y"]]]`) {
		t.Errorf("unexpected headline encoding in %s", data)
	}
	if decoded[2]["answer_long_id"] != "a1" {
		t.Errorf("expected answer_long_id, got %v", decoded[2]["answer_long_id"])
	}
}
