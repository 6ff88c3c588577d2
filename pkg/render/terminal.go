// Package render formats search results for the terminal.
package render

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/highlight"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
)

// fragmentSeparator joins headline fragments.
const fragmentSeparator = " … "

var titleCase = cases.Title(language.English)

type Renderer struct {
	styles Styles
}

func New(styles Styles) *Renderer {
	return &Renderer{styles: styles}
}

// Headline renders a parsed headline, styling highlighted spans with the
// Mark style.
func (r *Renderer) Headline(h highlight.Headline) string {
	parts := make([]string, 0, len(h))
	for _, f := range h {
		var sb strings.Builder
		r.writeNodes(&sb, f, false)
		if s := strings.TrimSpace(sb.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, fragmentSeparator)
}

func (r *Renderer) writeNodes(sb *strings.Builder, nodes []highlight.Node, marked bool) {
	for _, n := range nodes {
		switch v := n.(type) {
		case highlight.Leaf:
			if marked {
				sb.WriteString(r.styles.Mark.Render(string(v)))
			} else {
				sb.WriteString(string(v))
			}
		case highlight.Highlighted:
			r.writeNodes(sb, v, true)
		}
	}
}

// Hit renders a single hit as a bordered box.
func (r *Renderer) Hit(h search.Hit) string {
	var lines []string
	switch v := h.(type) {
	case *search.ExamHit:
		lines = append(lines,
			r.styles.Header.Render(v.DisplayName),
			r.styles.Meta.Render(fmt.Sprintf("%s · %s · rank %.3f", v.CategoryName, v.Filename, v.Rank)),
			r.Headline(v.Headline))
		for _, p := range v.Pages {
			lines = append(lines, fmt.Sprintf("  p.%d  %s", p.PageNumber, r.Headline(p.Headline)))
		}
	case *search.AnswerHit:
		lines = append(lines,
			r.styles.Header.Render("Answer by "+v.AuthorDisplayName),
			r.styles.Meta.Render(fmt.Sprintf("%s · %s · rank %.3f", v.Filename, v.LongID, v.Rank)),
			r.markWords(v.Text, v.HighlightedWords))
	case *search.CommentHit:
		lines = append(lines,
			r.styles.Header.Render("Comment by "+v.AuthorDisplayName),
			r.styles.Meta.Render(fmt.Sprintf("%s · answer %s · rank %.3f", v.Filename, v.AnswerLongID, v.Rank)),
			r.markWords(v.Text, v.HighlightedWords))
	}
	return r.styles.Hit.Render(strings.Join(lines, "\n"))
}

// markWords styles every occurrence of the highlighted words in text.
func (r *Renderer) markWords(text string, words []string) string {
	if len(words) == 0 {
		return text
	}
	seen := make(map[string]bool, len(words))
	var pairs []string
	for _, w := range words {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		pairs = append(pairs, w, r.styles.Mark.Render(w))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Results renders a whole result set grouped by kind, best kind first, and
// lists kinds that failed.
func (r *Renderer) Results(res *search.Results) string {
	var sb strings.Builder
	sb.WriteString(r.styles.Title.Render(fmt.Sprintf("%d results for %q", len(res.Hits), res.Query)))
	sb.WriteString("\n")

	if len(res.Hits) == 0 {
		sb.WriteString(r.styles.NoResults.Render("No results found"))
		sb.WriteString("\n")
	}
	for _, h := range res.Hits {
		sb.WriteString(r.styles.Meta.Render(titleCase.String(h.HitKind().String())))
		sb.WriteString("\n")
		sb.WriteString(r.Hit(h))
		sb.WriteString("\n")
	}

	kinds := make([]string, 0, len(res.Errors))
	for k := range res.Errors {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		sb.WriteString(r.styles.Error.Render(fmt.Sprintf("%s search failed: %v", k, res.Errors[search.Kind(k)])))
		sb.WriteString("\n")
	}
	return sb.String()
}
