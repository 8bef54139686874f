package transcription

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindInput       Kind = "input"
	KindInference   Kind = "inference"
	KindEmptyResult Kind = "empty_result"
	KindResource    Kind = "resource"
)

var (
	ErrEmptyAudio  = errors.New("audio payload is empty")
	ErrEmptyResult = errors.New("transcription returned empty text")
)

// Error is returned by every pipeline stage.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of err, or "" when err did not come from the pipeline.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
