package search

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery          = errors.New("empty query")
	ErrInvalidEntityKind   = errors.New("invalid entity kind")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamUnavailable = errors.New("text index unavailable")
)

// KindError is the failure of a single kind's query.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("searching %s: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}
