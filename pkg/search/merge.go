package search

import "sort"

// Merge combines per-kind hits into one list ordered by rank, highest
// first; equal ranks keep exam, answer, comment order.
//
// Pages are rolled up into their exam: each page's rank is added to the
// exam's and the page is attached to it. Pages whose exam is not among
// exams are dropped. The input slices are not modified.
func Merge(exams []ExamHit, pages []PageHit, answers []AnswerHit, comments []CommentHit) []Hit {
	rolled := make([]ExamHit, len(exams))
	copy(rolled, exams)

	byID := make(map[int64]int, len(rolled))
	for i := range rolled {
		rolled[i].Pages = nil
		byID[rolled[i].ID] = i
	}
	for _, p := range pages {
		i, ok := byID[p.ExamID]
		if !ok {
			continue
		}
		rolled[i].Rank += p.Rank
		rolled[i].Pages = append(rolled[i].Pages, p)
	}

	hits := make([]Hit, 0, len(rolled)+len(answers)+len(comments))
	for i := range rolled {
		hits = append(hits, &rolled[i])
	}
	for i := range answers {
		a := answers[i]
		hits = append(hits, &a)
	}
	for i := range comments {
		c := comments[i]
		hits = append(hits, &c)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].HitRank() > hits[j].HitRank()
	})
	return hits
}
