package storage

import (
	"strings"
	"unicode"
)

// queryWords splits a free-text term into the words the FTS tokenizer would
// index. Everything that is not a letter or digit separates words.
func queryWords(term string) []string {
	return strings.FieldsFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ftsQuery turns a free-text term into an FTS5 MATCH expression in which
// every word must occur. Words are quoted, so FTS5 operators typed by users
// are searched for literally. It returns "" when the term has no words.
func ftsQuery(term string) string {
	words := queryWords(term)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " ")
}
