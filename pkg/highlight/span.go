package highlight

import (
	"strings"
)

// Node is a piece of a parsed fragment: either a Leaf or a Highlighted span.
type Node interface {
	node()
}

// Leaf is plain text.
type Leaf string

// Highlighted is a matched span. Its children may contain further spans.
type Highlighted []Node

func (Leaf) node()        {}
func (Highlighted) node() {}

// Fragment is the ordered node sequence of one headline fragment.
type Fragment []Node

// Headline is a parsed marked-up string, one Fragment per delimited fragment.
type Headline []Fragment

// Parse decodes marked into a Headline using the marks in b. It never fails:
// malformed or unterminated marks degrade to plain text.
func Parse(marked string, b Boundary) Headline {
	parts := []string{marked}
	if b.Fragment != "" {
		parts = strings.Split(marked, b.Fragment)
	}

	h := make(Headline, 0, len(parts))
	for _, part := range parts {
		h = append(h, parseFragment(part, b))
	}
	return h
}

func parseFragment(text string, b Boundary) Fragment {
	frag := Fragment{}
	if b.Start == "" || b.End == "" {
		if text != "" {
			frag = append(frag, Leaf(text))
		}
		return frag
	}

	pos := 0
	for pos < len(text) {
		nodes, next, closed := parseSpan(text, pos, b)
		if closed {
			// An end mark at the top level closes a span that was never opened.
			if len(nodes) > 0 {
				frag = append(frag, Highlighted(nodes))
			}
		} else {
			frag = append(frag, nodes...)
		}
		pos = next
	}
	return frag
}

// parseSpan reads nodes from pos until an end mark closes the current level
// or the text runs out. It returns the nodes, the position right after the
// closing end mark (or len(text)), and whether an end mark was found.
func parseSpan(text string, pos int, b Boundary) ([]Node, int, bool) {
	var nodes []Node
	for {
		rest := text[pos:]
		s := strings.Index(rest, b.Start)
		e := strings.Index(rest, b.End)

		switch {
		case s < 0 && e < 0:
			if rest != "" {
				nodes = append(nodes, Leaf(rest))
			}
			return nodes, len(text), false

		case s >= 0 && (e < 0 || s <= e):
			if s > 0 {
				nodes = append(nodes, Leaf(rest[:s]))
			}
			markAt := pos + s
			children, next, closed := parseSpan(text, markAt+len(b.Start), b)
			if !closed {
				// Unterminated: everything from the mark on is plain text.
				nodes = append(nodes, Leaf(text[markAt:]))
				return nodes, len(text), false
			}
			if len(children) > 0 {
				nodes = append(nodes, Highlighted(children))
			}
			pos = next

		default:
			if e > 0 {
				nodes = append(nodes, Leaf(rest[:e]))
			}
			return nodes, pos + e + len(b.End), true
		}
	}
}

// Flatten returns the text of every leaf that sits inside a highlighted span
// at any depth, in document order. Plain top-level text is dropped.
func Flatten(f Fragment) []string {
	words := []string{}
	for _, n := range f {
		if span, ok := n.(Highlighted); ok {
			words = appendLeaves(words, span)
		}
	}
	return words
}

func appendLeaves(words []string, nodes []Node) []string {
	for _, n := range nodes {
		switch v := n.(type) {
		case Leaf:
			words = append(words, string(v))
		case Highlighted:
			words = appendLeaves(words, v)
		}
	}
	return words
}

// Text returns the fragment's text with all marks removed.
func (f Fragment) Text() string {
	var sb strings.Builder
	writeText(&sb, f)
	return sb.String()
}

func writeText(sb *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case Leaf:
			sb.WriteString(string(v))
		case Highlighted:
			writeText(sb, v)
		}
	}
}

// Words flattens every fragment of the headline into one list.
func (h Headline) Words() []string {
	words := []string{}
	for _, f := range h {
		words = append(words, Flatten(f)...)
	}
	return words
}
