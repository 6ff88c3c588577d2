// Package highlight turns marked-up search headlines into structured spans.
//
// # Overview
//
// The text index returns headlines as plain strings in which matched words are
// wrapped in start/end marks and fragments are separated by a fragment
// delimiter. The marks are random tokens generated for every ranked query
// (see NewBoundary), so user-authored content can never be mistaken for a
// mark and a caller cannot learn the marks of one request and plant them in
// content to forge highlights in another.
//
// Parse decodes such a string into a Headline: one Fragment per delimited
// fragment, each an ordered sequence of Node values. A Node is either a Leaf
// (plain text) or a Highlighted span holding further nodes. Highlighted spans
// may nest.
//
// # Robustness
//
// Parse is total. Whatever the placement of marks, it terminates and returns
// well-formed spans:
//
//   - a start mark that is never closed leaves the rest of the fragment,
//     including the mark itself, as plain text
//   - an end mark with no open span at the top level closes an implicitly
//     open span that started at the beginning of the current run
//   - an empty fragment decodes to an empty Fragment
//
// # Usage
//
//	b := highlight.NewBoundary()
//	marked := index.Headline(term, b) // "intro " + b.Start + "graph" + b.End + " theory"
//	h := highlight.Parse(marked, b)
//	words := h.Words() // ["graph"]
//
// Headlines marshal to JSON as nested arrays: a Leaf is a string, a
// Highlighted span is an array of nodes.
package highlight
