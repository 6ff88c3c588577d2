package storage

import (
	"strings"
	"unicode"

	"github.com/ncruces/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Similarity returns the trigram similarity of a and b in [0, 1]: the number
// of shared trigrams divided by the number of distinct trigrams of both.
// Words are case folded and padded with two leading blanks and one trailing
// blank, so short words and word starts weigh more.
func Similarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

func trigrams(s string) map[string]bool {
	s = folder.String(norm.NFKC.String(s))
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]bool)
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = true
		}
	}
	return set
}

// registerSimilarity exposes Similarity to SQL as similarity(a, b).
func registerSimilarity(c *sqlite3.Conn) error {
	return c.CreateFunction("similarity", 2, sqlite3.DETERMINISTIC|sqlite3.INNOCUOUS,
		func(ctx sqlite3.Context, arg ...sqlite3.Value) {
			if arg[0].Type() == sqlite3.NULL || arg[1].Type() == sqlite3.NULL {
				ctx.ResultFloat(0)
				return
			}
			ctx.ResultFloat(Similarity(arg[0].Text(), arg[1].Text()))
		})
}
