package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/highlight"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// fakeIndex serves canned matches. Marked texts use { and } for the start
// and end marks and | between fragments; they are rewritten with the
// boundary of each query.
type fakeIndex struct {
	exams    []storage.ExamMatch
	pages    []storage.PageMatch
	answers  []storage.PostMatch
	comments []storage.PostMatch

	fail  map[string]error
	block map[string]bool

	mu         sync.Mutex
	calls      map[string]int
	boundaries []highlight.Boundary
}

func (f *fakeIndex) begin(ctx context.Context, kind string, b highlight.Boundary) (*strings.Replacer, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[kind]++
	f.boundaries = append(f.boundaries, b)
	f.mu.Unlock()

	if f.block[kind] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.fail[kind]; err != nil {
		return nil, err
	}
	return strings.NewReplacer("{", b.Start, "}", b.End, "|", b.Fragment), nil
}

func (f *fakeIndex) RankExams(ctx context.Context, q storage.TextQuery, visit func(storage.ExamMatch) bool) error {
	r, err := f.begin(ctx, "exam", q.Boundary)
	if err != nil {
		return err
	}
	for _, m := range f.exams {
		m.Marked = r.Replace(m.Marked)
		if !visit(m) {
			break
		}
	}
	return nil
}

func (f *fakeIndex) RankPages(ctx context.Context, q storage.TextQuery, visit func(storage.PageMatch) bool) error {
	r, err := f.begin(ctx, "page", q.Boundary)
	if err != nil {
		return err
	}
	for _, m := range f.pages {
		m.Marked = r.Replace(m.Marked)
		if !visit(m) {
			break
		}
	}
	return nil
}

func (f *fakeIndex) RankAnswers(ctx context.Context, q storage.TextQuery, visit func(storage.PostMatch) bool) error {
	return f.rankPosts(ctx, "answer", q, f.answers, visit)
}

func (f *fakeIndex) RankComments(ctx context.Context, q storage.TextQuery, visit func(storage.PostMatch) bool) error {
	return f.rankPosts(ctx, "comment", q, f.comments, visit)
}

func (f *fakeIndex) rankPosts(ctx context.Context, kind string, q storage.TextQuery, posts []storage.PostMatch, visit func(storage.PostMatch) bool) error {
	r, err := f.begin(ctx, kind, q.Boundary)
	if err != nil {
		return err
	}
	for _, m := range posts {
		m.Marked = r.Replace(m.Marked)
		if !visit(m) {
			break
		}
	}
	return nil
}

func (f *fakeIndex) callCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

var (
	public = access.Item{CategoryID: 1, Public: true}
	hidden = access.Item{CategoryID: 1, Public: false}
	paid   = access.Item{CategoryID: 1, Public: true, NeedsPayment: true}

	student = &access.Caller{Username: "student"}
	admin   = &access.Caller{Username: "admin", Scope: access.AdminScope{Global: true}}
)

func newTestIndex() *fakeIndex {
	return &fakeIndex{
		exams: []storage.ExamMatch{
			{ID: 1, Filename: "algo.pdf", DisplayName: "Algorithms", Access: public, Rank: 1.0, Marked: "{Algorithms}"},
			{ID: 2, Filename: "hidden.pdf", DisplayName: "Hidden Algorithms", Access: hidden, Rank: 0.9, Marked: "Hidden {Algorithms}"},
			{ID: 3, Filename: "paid.pdf", DisplayName: "Paid Algorithms", Access: paid, Rank: 0.8, Marked: "Paid {Algorithms}"},
		},
		pages: []storage.PageMatch{
			{ExamID: 1, PageNumber: 7, Access: public, Rank: 0.5, Marked: "see {algorithms} here"},
			{ExamID: 4, PageNumber: 1, Access: public, Rank: 0.9, Marked: "orphan {algorithms}"},
			{ExamID: 1, PageNumber: 2, Access: public, Rank: 0.3, Marked: "more {algorithms}|and {more}"},
		},
		answers: []storage.PostMatch{
			{LongID: "a1", AuthorUsername: "alice", AuthorDisplayName: "Alice", Text: "use dynamic programming", Filename: "algo.pdf", Access: public, Rank: 1.2, Marked: "use {dynamic}|{programming}"},
			{LongID: "a2", AuthorUsername: "bob", Text: "hidden answer", Filename: "hidden.pdf", Access: hidden, Rank: 1.1, Marked: "{hidden}"},
		},
		comments: []storage.PostMatch{
			{LongID: "c1", AnswerLongID: "a1", AuthorUsername: "carol", Text: "nice", Filename: "algo.pdf", Access: public, Rank: 0.1, Marked: "{nice}"},
		},
	}
}

func newTestService(idx Index) *Service {
	return NewService(idx, access.Policy{}, DefaultOptions())
}

func examByID(t *testing.T, hits []Hit, id int64) *ExamHit {
	t.Helper()
	for _, h := range hits {
		if e, ok := h.(*ExamHit); ok && e.ID == id {
			return e
		}
	}
	return nil
}

func TestSearchRollsUpPages(t *testing.T) {
	svc := newTestService(newTestIndex())

	res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	exam := examByID(t, res.Hits, 1)
	if exam == nil {
		t.Fatal("expected exam 1 in results")
	}
	if math.Abs(exam.Rank-1.8) > 1e-9 {
		t.Errorf("expected rolled-up rank 1.8, got %v", exam.Rank)
	}
	if len(exam.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(exam.Pages))
	}
	if exam.Pages[0].PageNumber != 2 || exam.Pages[1].PageNumber != 7 {
		t.Errorf("expected pages ordered by number, got %d and %d", exam.Pages[0].PageNumber, exam.Pages[1].PageNumber)
	}
	if len(exam.Pages[0].Headline) != 2 {
		t.Errorf("expected 2 headline fragments, got %d", len(exam.Pages[0].Headline))
	}
	if got := exam.Headline.Words(); len(got) != 1 || got[0] != "Algorithms" {
		t.Errorf("expected highlighted title, got %q", got)
	}

	for _, h := range res.Hits {
		if e, ok := h.(*ExamHit); ok {
			for _, p := range e.Pages {
				if p.ExamID == 4 {
					t.Errorf("page of unmatched exam 4 attached to exam %d", e.ID)
				}
			}
		}
	}
	if examByID(t, res.Hits, 4) != nil {
		t.Error("exam 4 did not match and must not appear")
	}
}

func TestSearchOrdersByRank(t *testing.T) {
	svc := newTestService(newTestIndex())

	res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: admin})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) == 0 {
		t.Fatal("expected hits")
	}
	for i := 1; i < len(res.Hits); i++ {
		if res.Hits[i-1].HitRank() < res.Hits[i].HitRank() {
			t.Errorf("hit %d (%v) ranks below hit %d (%v)", i-1, res.Hits[i-1].HitRank(), i, res.Hits[i].HitRank())
		}
	}
	// exam 1 (1.8) beats answer a1 (1.2)
	if first, ok := res.Hits[0].(*ExamHit); !ok || first.ID != 1 {
		t.Errorf("expected exam 1 first, got %#v", res.Hits[0])
	}
}

func TestSearchVisibility(t *testing.T) {
	tests := []struct {
		name      string
		caller    *access.Caller
		wantExams []int64
		wantPosts int
	}{
		{"student sees public only", student, []int64{1}, 2},
		{"paying student sees paid exams", &access.Caller{Username: "p", HasPayed: true}, []int64{1, 3}, 2},
		{"category admin sees hidden", &access.Caller{Username: "c", Scope: access.AdminScope{Categories: map[int64]bool{1: true}}}, []int64{1, 2, 3}, 3},
		{"global admin sees everything", admin, []int64{1, 2, 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newTestIndex())
			res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: tt.caller})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			var exams []int64
			posts := 0
			for _, h := range res.Hits {
				switch v := h.(type) {
				case *ExamHit:
					exams = append(exams, v.ID)
				case *AnswerHit, *CommentHit:
					posts++
				}
			}
			if fmt.Sprint(sortedIDs(exams)) != fmt.Sprint(tt.wantExams) {
				t.Errorf("exams = %v, want %v", exams, tt.wantExams)
			}
			if posts != tt.wantPosts {
				t.Errorf("answers+comments = %d, want %d", posts, tt.wantPosts)
			}
		})
	}
}

func sortedIDs(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func TestGlobalAdminSkipsVisibility(t *testing.T) {
	var consulted atomic.Int32
	deny := access.VisibilityFunc(func(*access.Caller, access.Item) bool {
		consulted.Add(1)
		return false
	})
	svc := NewService(newTestIndex(), deny, DefaultOptions())

	res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: admin})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if n := consulted.Load(); n != 0 {
		t.Errorf("visibility consulted %d times for a global admin", n)
	}
	if len(res.Hits) == 0 {
		t.Error("expected hits for a global admin")
	}

	res, err = svc.Search(context.Background(), Request{Query: "algorithms", Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 0 {
		t.Errorf("expected no hits when everything is denied, got %d", len(res.Hits))
	}
}

func TestSearchCapsPerKind(t *testing.T) {
	idx := &fakeIndex{}
	for i := 0; i < 50; i++ {
		idx.answers = append(idx.answers, storage.PostMatch{
			LongID: fmt.Sprintf("a%d", i), Access: public, Rank: float64(50 - i), Marked: "{x}",
		})
	}
	svc := newTestService(idx)

	tests := []struct {
		limit int
		want  int
	}{
		{15, 15},
		{1000, 30},
		{0, 15},
		{-5, 1},
		{1, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit %d", tt.limit), func(t *testing.T) {
			res, err := svc.Search(context.Background(), Request{
				Query: "x", Kinds: []Kind{KindAnswer}, Limit: tt.limit, Caller: student,
			})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(res.Hits) != tt.want {
				t.Errorf("expected %d hits, got %d", tt.want, len(res.Hits))
			}
			if res.Limit != tt.want {
				t.Errorf("expected effective limit %d, got %d", tt.want, res.Limit)
			}
		})
	}
}

func TestSearchCeilingIgnoresMaxLimit(t *testing.T) {
	idx := &fakeIndex{}
	for i := 0; i < 200; i++ {
		idx.answers = append(idx.answers, storage.PostMatch{
			LongID: fmt.Sprintf("a%d", i), Access: public, Rank: float64(200 - i), Marked: "{x}",
		})
	}
	opts := DefaultOptions()
	opts.MaxLimit = 100
	svc := NewService(idx, access.Policy{}, opts)

	res, err := svc.Search(context.Background(), Request{
		Query: "x", Kinds: []Kind{KindAnswer}, Limit: 1000, Caller: student,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != MaxHitsPerKind {
		t.Errorf("expected %d hits, got %d", MaxHitsPerKind, len(res.Hits))
	}
	if res.Limit != MaxHitsPerKind {
		t.Errorf("expected effective limit %d, got %d", MaxHitsPerKind, res.Limit)
	}
}

func TestCapAppliesAfterVisibility(t *testing.T) {
	idx := &fakeIndex{}
	for i := 0; i < 10; i++ {
		item := hidden
		if i%2 == 1 {
			item = public
		}
		idx.comments = append(idx.comments, storage.PostMatch{
			LongID: fmt.Sprintf("c%d", i), Access: item, Rank: float64(10 - i), Marked: "{x}",
		})
	}
	svc := newTestService(idx)

	res, err := svc.Search(context.Background(), Request{Query: "x", Kinds: []Kind{KindComment}, Limit: 3, Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 3 {
		t.Fatalf("expected 3 visible comments, got %d", len(res.Hits))
	}
	for i, want := range []string{"c1", "c3", "c5"} {
		if got := res.Hits[i].(*CommentHit).LongID; got != want {
			t.Errorf("hit %d = %s, want %s", i, got, want)
		}
	}
}

func TestSearchHighlightedWords(t *testing.T) {
	svc := newTestService(newTestIndex())

	res, err := svc.Search(context.Background(), Request{Query: "dynamic programming", Kinds: []Kind{KindAnswer}, Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(res.Hits))
	}
	a := res.Hits[0].(*AnswerHit)
	if fmt.Sprint(a.HighlightedWords) != "[dynamic programming]" {
		t.Errorf("unexpected highlighted words %q", a.HighlightedWords)
	}
	if a.AuthorDisplayName != "Alice" || a.Filename != "algo.pdf" || a.LongID != "a1" {
		t.Errorf("unexpected answer %+v", a)
	}
}

func TestSearchUsesFreshBoundaries(t *testing.T) {
	idx := newTestIndex()
	svc := newTestService(idx)

	if _, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: student}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(idx.boundaries) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(idx.boundaries))
	}
	seen := make(map[string]bool)
	for _, b := range idx.boundaries {
		for _, tok := range []string{b.Start, b.End, b.Fragment} {
			if seen[tok] {
				t.Errorf("boundary token %q reused", tok)
			}
			seen[tok] = true
		}
	}
}

func TestSearchRequestErrors(t *testing.T) {
	svc := newTestService(newTestIndex())

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty query", Request{Query: "   ", Caller: student}, ErrEmptyQuery},
		{"invalid kind", Request{Query: "x", Kinds: []Kind{"page"}, Caller: student}, ErrInvalidEntityKind},
		{"no caller", Request{Query: "x"}, ErrUnauthorized},
		{"anonymous caller", Request{Query: "x", Caller: &access.Caller{}}, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	anonAdmin := &access.Caller{Scope: access.AdminScope{Global: true}}
	if _, err := svc.Search(context.Background(), Request{Query: "x", Caller: anonAdmin}); err != nil {
		t.Errorf("expected a global admin without a username to search, got %v", err)
	}
}

func TestSearchRejectsBeforeQuerying(t *testing.T) {
	idx := newTestIndex()
	svc := newTestService(idx)

	_, _ = svc.Search(context.Background(), Request{Query: "x", Kinds: []Kind{KindAnswer, "bogus"}, Caller: student})
	if n := idx.callCount("answer"); n != 0 {
		t.Errorf("expected no queries for an invalid request, got %d", n)
	}
}

func TestSearchOnlyRequestedKinds(t *testing.T) {
	idx := newTestIndex()
	svc := newTestService(idx)

	res, err := svc.Search(context.Background(), Request{Query: "x", Kinds: []Kind{"Answer", KindAnswer}, Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Kinds) != 1 || res.Kinds[0] != KindAnswer {
		t.Errorf("expected kinds [answer], got %v", res.Kinds)
	}
	for _, kind := range []string{"exam", "page", "comment"} {
		if n := idx.callCount(kind); n != 0 {
			t.Errorf("expected no %s queries, got %d", kind, n)
		}
	}
}

func TestSearchPartialFailure(t *testing.T) {
	idx := newTestIndex()
	idx.fail = map[string]error{"answer": errors.New("disk on fire")}
	svc := newTestService(idx)

	res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Failed() {
		t.Error("expected a partial failure, not a total one")
	}
	kerr := res.Errors[KindAnswer]
	if !errors.Is(kerr, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", kerr)
	}
	var ke *KindError
	if !errors.As(kerr, &ke) || ke.Kind != KindAnswer {
		t.Errorf("expected a KindError for answers, got %v", kerr)
	}
	if !strings.Contains(kerr.Error(), "disk on fire") {
		t.Errorf("expected the cause in %q", kerr.Error())
	}

	for _, h := range res.Hits {
		if h.HitKind() == KindAnswer {
			t.Error("answers failed and must not appear")
		}
	}
	if examByID(t, res.Hits, 1) == nil {
		t.Error("exams must survive an answer failure")
	}
}

func TestPageFailureFailsExams(t *testing.T) {
	idx := newTestIndex()
	idx.fail = map[string]error{"page": errors.New("boom")}
	svc := newTestService(idx)

	res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !errors.Is(res.Errors[KindExam], ErrUpstreamUnavailable) {
		t.Errorf("expected exam kind to fail, got %v", res.Errors[KindExam])
	}
	for _, h := range res.Hits {
		if h.HitKind() == KindExam {
			t.Error("exam hits must be dropped when pages fail")
		}
	}
}

func TestSearchAllKindsFail(t *testing.T) {
	idx := newTestIndex()
	boom := errors.New("boom")
	idx.fail = map[string]error{"exam": boom, "page": boom, "answer": boom, "comment": boom}
	svc := newTestService(idx)

	res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !res.Failed() {
		t.Errorf("expected every kind to fail, errors: %v", res.Errors)
	}
	if len(res.Hits) != 0 {
		t.Errorf("expected no hits, got %d", len(res.Hits))
	}
}

func TestSearchQueryTimeout(t *testing.T) {
	idx := newTestIndex()
	idx.block = map[string]bool{"comment": true}
	opts := DefaultOptions()
	opts.QueryTimeout = 20 * time.Millisecond
	svc := NewService(idx, access.Policy{}, opts)

	start := time.Now()
	res, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("a blocked kind must not hold up the search")
	}
	if !errors.Is(res.Errors[KindComment], context.DeadlineExceeded) {
		t.Errorf("expected a deadline error for comments, got %v", res.Errors[KindComment])
	}
	if len(res.Hits) == 0 {
		t.Error("expected hits from the other kinds")
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	labels map[string]int
	errs   int
}

func (o *recordingObserver) ObserveQuery(kind string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.labels == nil {
		o.labels = make(map[string]int)
	}
	o.labels[kind]++
	if err != nil {
		o.errs++
	}
}

func TestSearchObserver(t *testing.T) {
	idx := newTestIndex()
	idx.fail = map[string]error{"comment": errors.New("boom")}
	svc := newTestService(idx)
	obs := &recordingObserver{}
	svc.Observe(obs)

	if _, err := svc.Search(context.Background(), Request{Query: "algorithms", Caller: student}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, label := range []string{"exam", "page", "answer", "comment"} {
		if obs.labels[label] != 1 {
			t.Errorf("expected 1 %s observation, got %d", label, obs.labels[label])
		}
	}
	if obs.errs != 1 {
		t.Errorf("expected 1 failed observation, got %d", obs.errs)
	}
}

func TestSearchStream(t *testing.T) {
	svc := newTestService(newTestIndex())

	got := make(map[Kind]KindResult)
	res, err := svc.SearchStream(context.Background(), Request{Query: "algorithms", Caller: student}, func(r KindResult) {
		if _, dup := got[r.Kind]; dup {
			t.Errorf("kind %s reported twice", r.Kind)
		}
		got[r.Kind] = r
	})
	if err != nil {
		t.Fatalf("SearchStream: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 kind reports, got %d", len(got))
	}
	exams := got[KindExam].Hits
	if len(exams) != 1 || len(exams[0].(*ExamHit).Pages) != 2 {
		t.Errorf("expected the exam report to carry rolled-up pages, got %#v", exams)
	}
	total := 0
	for _, r := range got {
		total += len(r.Hits)
	}
	if total != len(res.Hits) {
		t.Errorf("streamed %d hits, merged %d", total, len(res.Hits))
	}
}

func TestSetOptions(t *testing.T) {
	idx := &fakeIndex{}
	for i := 0; i < 10; i++ {
		idx.answers = append(idx.answers, storage.PostMatch{Access: public, Rank: 1, Marked: "{x}"})
	}
	svc := newTestService(idx)

	opts := svc.Options()
	opts.DefaultLimit = 2
	svc.SetOptions(opts)

	res, err := svc.Search(context.Background(), Request{Query: "x", Kinds: []Kind{KindAnswer}, Caller: student})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 2 {
		t.Errorf("expected the new default limit of 2, got %d", len(res.Hits))
	}
}
