package history

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("parse error")

	// ErrMismatchedKey is matched by every *MismatchedKeyError.
	ErrMismatchedKey = errors.New("mismatched language")

	// ErrEmptyHistory is returned when preprocessing a history without revisions.
	ErrEmptyHistory = errors.New("history has no revisions")

	// ErrAlreadyPreprocessed is returned by a second Preprocess call. The history is left untouched.
	ErrAlreadyPreprocessed = errors.New("history already preprocessed")

	// ErrSelfMerge is returned when a revision is merged into itself.
	ErrSelfMerge = errors.New("cannot merge a revision into itself")

	// ErrUnknownField is returned by ParseField.
	ErrUnknownField = errors.New("unknown count field")
)

// ParseError describes an input that could not be turned into a revision or history.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("parse error: %s", e.Reason)
	}
	return fmt.Sprintf("parse error: %s: %q", e.Reason, e.Input)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// MismatchedKeyError is returned when counts of two different languages are merged.
type MismatchedKeyError struct {
	Left  string
	Right string
}

func (e *MismatchedKeyError) Error() string {
	return fmt.Sprintf("cannot merge counts of %q with %q", e.Left, e.Right)
}

// Is reports whether target is ErrMismatchedKey.
func (e *MismatchedKeyError) Is(target error) bool {
	return target == ErrMismatchedKey
}

// AggregateMismatchError reports a revision whose aggregate differs from the sum of its languages.
type AggregateMismatchError struct {
	ID       string
	Expected AggregateCount
	Actual   AggregateCount
}

func (e *AggregateMismatchError) Error() string {
	return fmt.Sprintf("revision %s: aggregate %+v does not match language sum %+v", e.ID, e.Actual, e.Expected)
}
