package logrecord

import (
	"errors"
	"fmt"
)

// ErrNoPending matches (errors.Is) every InvariantError raised because a Source had no pending
// record.
var ErrNoPending = errors.New("no pending record")

// ParseError reports a record-starting line whose timestamp could not be read. It aborts the
// whole merge.
type ParseError struct {
	Source string
	Line   int // 1-based physical line number
	Text   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v: %q", e.Source, e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvariantError signals a programming error, for example consuming from an exhausted Source.
// It never results from bad input data.
type InvariantError struct {
	Source string
	Op     string
	Msg    string
}

func (e *InvariantError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = ErrNoPending.Error()
	}
	return fmt.Sprintf("bug: %s on %s: %s", e.Op, e.Source, msg)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrNoPending && e.Msg == ""
}
