package storage

import (
	"strings"
	"unicode"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/highlight"
)

// HeadlineOptions controls how much context a headline keeps.
type HeadlineOptions struct {
	MaxFragments int
	MinWords     int
	MaxWords     int
}

type headlineWord struct {
	text        string
	hit         bool
	depthBefore int
	depthAfter  int
}

// buildHeadline cuts text, already marked with b.Start/b.End around matches,
// into at most MaxFragments windows of MinWords..MaxWords words around the
// marked words and joins them with b.Fragment. Text without marks yields its
// first MaxWords words. Marks cut by a window edge are closed or reopened so
// every fragment is balanced.
func buildHeadline(marked string, b highlight.Boundary, opts HeadlineOptions) string {
	opts = normalizeHeadline(opts)
	words := splitMarkedWords(marked, b)
	if len(words) == 0 {
		return ""
	}

	anyHit := false
	for _, w := range words {
		if w.hit {
			anyHit = true
			break
		}
	}
	if !anyHit {
		end := min(len(words), opts.MaxWords)
		return renderWindow(words[:end], b)
	}

	lead := (opts.MaxWords - 1) / 2
	var fragments []string
	next := 0
	for i := 0; i < len(words) && len(fragments) < opts.MaxFragments; i++ {
		if !words[i].hit || i < next {
			continue
		}
		start := max(next, i-lead)
		end := min(len(words), start+opts.MaxWords)
		if end-start < opts.MinWords {
			start = max(next, end-opts.MinWords)
		}
		fragments = append(fragments, renderWindow(words[start:end], b))
		next = end
	}
	return strings.Join(fragments, b.Fragment)
}

func normalizeHeadline(opts HeadlineOptions) HeadlineOptions {
	if opts.MaxFragments < 1 {
		opts.MaxFragments = 1
	}
	if opts.MinWords < 1 {
		opts.MinWords = 1
	}
	if opts.MaxWords < opts.MinWords {
		opts.MaxWords = opts.MinWords
	}
	return opts
}

// splitMarkedWords splits on whitespace and records, for every word, whether
// it lies inside a marked span and how deep the marks are open around it.
func splitMarkedWords(marked string, b highlight.Boundary) []headlineWord {
	fields := strings.FieldsFunc(marked, unicode.IsSpace)
	words := make([]headlineWord, 0, len(fields))
	depth := 0
	for _, f := range fields {
		w := headlineWord{text: f, depthBefore: depth}
		opens := strings.Count(f, b.Start)
		closes := strings.Count(f, b.End)
		w.hit = opens > 0 || depth > 0
		depth = max(0, depth+opens-closes)
		w.depthAfter = depth
		words = append(words, w)
	}
	return words
}

func renderWindow(words []headlineWord, b highlight.Boundary) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(b.Start, words[0].depthBefore))
	for i, w := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.text)
	}
	sb.WriteString(strings.Repeat(b.End, words[len(words)-1].depthAfter))
	return sb.String()
}
