package search

import (
	"fmt"
	"strings"
)

// Kind is a searchable content kind.
type Kind string

const (
	KindExam    Kind = "exam"
	KindAnswer  Kind = "answer"
	KindComment Kind = "comment"
)

// kindPage labels the page sub-query of the exam kind in logs and metrics.
const kindPage = "page"

// AllKinds lists the kinds searched when a request names none.
func AllKinds() []Kind {
	return []Kind{KindExam, KindAnswer, KindComment}
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindExam, KindAnswer, KindComment:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEntityKind, s)
}

func (k Kind) String() string {
	return string(k)
}
