package highlight

import (
	"math/rand/v2"
)

const (
	boundaryAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	boundaryLength   = 8
)

// Boundary holds the marks used for a single ranked query. A Boundary is
// created right before the query, used once to build the request and once
// to parse the response, and then dropped.
type Boundary struct {
	Start    string
	End      string
	Fragment string
}

// NewBoundary returns three independently generated tokens. The random source
// is not cryptographic; the tokens only need to avoid colliding with content.
// A set with repeated tokens is drawn again.
func NewBoundary() Boundary {
	return newBoundary(randomToken)
}

func newBoundary(token func() string) Boundary {
	for {
		b := Boundary{
			Start:    token(),
			End:      token(),
			Fragment: token(),
		}
		if b.Valid() {
			return b
		}
	}
}

func randomToken() string {
	b := make([]byte, boundaryLength)
	for i := range b {
		b[i] = boundaryAlphabet[rand.IntN(len(boundaryAlphabet))]
	}
	return string(b)
}

// Valid reports whether every mark is non-empty and the marks are distinct.
func (b Boundary) Valid() bool {
	if b.Start == "" || b.End == "" || b.Fragment == "" {
		return false
	}
	return b.Start != b.End && b.Start != b.Fragment && b.End != b.Fragment
}
