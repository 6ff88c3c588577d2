package integration_tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/api"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// archiveTOML is a small archive covering every visibility rule: a public
// exam, a hidden one, a paid one and a category administered by carol.
const archiveTOML = `
[[categories]]
slug = "algo"
name = "Algorithms and Data Structures"
admins = ["carol"]

[[categories]]
slug = "db"
name = "Databases"

[[users]]
username = "alice"
display_name = "Alice Liddell"
payed = true

[[users]]
username = "bob"

[[users]]
username = "root"
admin = true

[[exams]]
filename = "algo-2019.pdf"
display_name = "Algorithms Midterm 2019"
category = "algo"
public = true
pages = [
  "Question 1: prove the greedy choice property for interval scheduling",
  "Question 2: dynamic programming algorithms for longest common subsequence",
]

  [[exams.answers]]
  long_id = "ans-lcs"
  author = "alice"
  text = "Fill the dynamic programming table row by row"

    [[exams.answers.comments]]
    long_id = "com-lcs"
    author = "bob"
    text = "The table only needs two rows of memory"

    [[exams.answers.comments]]
    long_id = "com-drop"
    author = "root"
    text = "Whatever you do, never DROP TABLE users in production"

[[exams]]
filename = "db-2020.pdf"
display_name = "Databases Final 2020"
category = "db"
public = true
pages = ["Never run DROP TABLE users on a production database"]

[[exams]]
filename = "algo-draft.pdf"
display_name = "Algorithms Draft"
category = "algo"
public = false
pages = ["dynamic programming draft solutions"]

[[exams]]
filename = "algo-premium.pdf"
display_name = "Algorithms Premium"
category = "algo"
public = true
needs_payment = true
pages = ["dynamic programming premium walkthrough"]
`

type testEnv struct {
	store   *storage.Store
	service *search.Service
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Warning: failed to close archive: %v", err)
		}
	})

	archive, err := storage.ParseArchive([]byte(archiveTOML))
	if err != nil {
		t.Fatalf("parsing archive: %v", err)
	}
	if _, err := store.Load(ctx, archive); err != nil {
		t.Fatalf("loading archive: %v", err)
	}

	service := search.NewService(store, access.Policy{}, search.DefaultOptions())
	srv := api.NewServer(service, access.NewDirectory(store, 16, time.Minute), store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{store: store, service: service, server: ts}
}

// searchResult is the decoded /api/search body.
type searchResult struct {
	Count  int               `json:"count"`
	Hits   []map[string]any  `json:"hits"`
	Errors map[string]string `json:"errors"`
}

func (e *testEnv) search(t *testing.T, user string, params url.Values) (int, searchResult) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/search: %v", err)
	}
	defer resp.Body.Close()

	var result searchResult
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp.StatusCode, result
}

// filenames lists the filename of every hit, in order.
func filenames(hits []map[string]any) []string {
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		if f, ok := h["filename"].(string); ok {
			names = append(names, f)
		}
	}
	return names
}

func hitsOfType(hits []map[string]any, typ string) []map[string]any {
	var out []map[string]any
	for _, h := range hits {
		if h["type"] == typ {
			out = append(out, h)
		}
	}
	return out
}
