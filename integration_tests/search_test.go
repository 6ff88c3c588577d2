package integration_tests

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"
)

func TestExamVisibilityPerCaller(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		user string
		want []string
	}{
		{"bob", []string{"algo-2019.pdf"}},
		{"alice", []string{"algo-2019.pdf", "algo-premium.pdf"}},
		{"carol", []string{"algo-2019.pdf", "algo-draft.pdf", "algo-premium.pdf"}},
		{"root", []string{"algo-2019.pdf", "algo-draft.pdf", "algo-premium.pdf"}},
		{"stranger", []string{"algo-2019.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			status, res := env.search(t, tt.user, url.Values{"q": {"algorithms"}, "kind": {"exam"}})
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d", status)
			}
			got := filenames(res.Hits)
			sort.Strings(got)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestPagesRollUpIntoExams(t *testing.T) {
	env := newTestEnv(t)

	_, res := env.search(t, "root", url.Values{"q": {"algorithms"}, "kind": {"exam"}})
	var midterm map[string]any
	for _, h := range res.Hits {
		if h["filename"] == "algo-2019.pdf" {
			midterm = h
		}
	}
	if midterm == nil {
		t.Fatalf("algo-2019.pdf missing from %v", filenames(res.Hits))
	}

	pages, ok := midterm["pages"].([]any)
	if !ok || len(pages) != 1 {
		t.Fatalf("expected one matching page, got %v", midterm["pages"])
	}
	page := pages[0].(map[string]any)
	if page["page_number"] != float64(2) {
		t.Errorf("expected page 2, got %v", page["page_number"])
	}

	// The page rank is folded into the exam rank.
	if midterm["rank"].(float64) <= page["rank"].(float64) {
		t.Errorf("exam rank %v should exceed its page rank %v", midterm["rank"], page["rank"])
	}
}

func TestAnswersAndComments(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.search(t, "bob", url.Values{"q": {"dynamic programming"}, "kind": {"answer,comment"}})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	answers := hitsOfType(res.Hits, "answer")
	if len(answers) != 1 {
		t.Fatalf("expected one answer, got %v", res.Hits)
	}
	a := answers[0]
	if a["long_id"] != "ans-lcs" || a["author_displayname"] != "Alice Liddell" {
		t.Errorf("unexpected answer %v", a)
	}
	words, _ := a["highlighted_words"].([]any)
	got := make([]string, 0, len(words))
	for _, w := range words {
		got = append(got, w.(string))
	}
	joined := strings.ToLower(strings.Join(got, " "))
	if !strings.Contains(joined, "dynamic") || !strings.Contains(joined, "programming") {
		t.Errorf("expected both query words highlighted, got %v", got)
	}

	if comments := hitsOfType(res.Hits, "comment"); len(comments) != 0 {
		t.Errorf("no comment mentions dynamic programming, got %v", comments)
	}
}

func TestHostileQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before, err := env.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	queries := []string{
		"'; DROP TABLE users; --",
		"' UNION SELECT * FROM sqlite_master; --",
		"' OR 1=1 --",
		"'; ATTACH DATABASE '/etc/passwd' AS pwn; --",
		"' UNION SELECT load_extension('evil.so'); --",
		`NEAR("dynamic" "programming", 2)`,
		`"unterminated`,
		"dyn* OR prog*",
		"-dynamic",
		"^algorithms",
		"exams_fts:algorithms",
		"'; --",
		"%%%",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			status, _ := env.search(t, "root", url.Values{"q": {q}})
			if status != http.StatusOK {
				t.Errorf("expected 200 for %q, got %d", q, status)
			}
		})
	}

	after, err := env.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	before.SizeBytes, after.SizeBytes = 0, 0
	if before != after {
		t.Errorf("archive changed: before %+v, after %+v", before, after)
	}

	// Query text is matched as words, never interpreted.
	_, res := env.search(t, "root", url.Values{"q": {"'; DROP TABLE users; --"}, "kind": {"comment"}})
	comments := hitsOfType(res.Hits, "comment")
	if len(comments) != 1 || comments[0]["long_id"] != "com-drop" {
		t.Errorf("expected the comment quoting DROP TABLE, got %v", res.Hits)
	}
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		user   string
		params url.Values
		want   int
	}{
		{"empty query", "bob", url.Values{"q": {"   "}}, http.StatusBadRequest},
		{"unknown kind", "bob", url.Values{"q": {"algorithms"}, "kind": {"lecture"}}, http.StatusBadRequest},
		{"no user", "", url.Values{"q": {"algorithms"}}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, _ := env.search(t, tt.user, tt.params); status != tt.want {
				t.Errorf("expected %d, got %d", tt.want, status)
			}
		})
	}
}

func TestLimitAndReload(t *testing.T) {
	env := newTestEnv(t)

	_, res := env.search(t, "root", url.Values{"q": {"algorithms"}, "kind": {"exam"}, "limit": {"1"}})
	if len(res.Hits) != 1 {
		t.Fatalf("expected 1 hit with limit=1, got %d", len(res.Hits))
	}

	opts := env.service.Options()
	opts.DefaultLimit, opts.MaxLimit = 2, 2
	env.service.SetOptions(opts)

	_, res = env.search(t, "root", url.Values{"q": {"algorithms"}, "kind": {"exam"}, "limit": {"100"}})
	if len(res.Hits) != 2 {
		t.Errorf("expected the new max limit of 2, got %d", len(res.Hits))
	}
}
