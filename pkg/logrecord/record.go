package logrecord

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the time.Parse layout of the timestamp token without its fraction.
const TimestampLayout = "20060102/150405"

// maxFractionDigits limits the fraction of a timestamp token to microseconds.
const maxFractionDigits = 6

// space is the whitespace that separates fields. RE2's \s is ASCII only, so vertical tab, the
// information separators, NEL and the Unicode separators (NBSP among them, which Latin-9
// input decodes 0xA0 to) are added explicitly.
const space = `\s\v\x{1C}-\x{1F}\x{85}\p{Z}`

var recordStartRe = regexp.MustCompile(
	`^(?:(\d+/\d+\.\d+)|[^` + space + `]+[` + space + `]+(\d+/\d+\.\d+))(?:[` + space + `]|$)`)

// ErrNoTimestamp is the cause of a ParseError for a line that should open a record but has no
// timestamp token.
var ErrNoTimestamp = errors.New("line does not start with a timestamp")

// Record is one logical log entry. It holds the original lines without their line terminators.
type Record struct {
	Source    string
	Timestamp time.Time
	Line      int      // Physical line number of the first line (1-based)
	Lines     []string // At least one line
}

// Content returns the original lines joined by "\n".
func (r Record) Content() string {
	return strings.Join(r.Lines, "\n")
}

// StartsRecord reports whether line starts a new record.
func StartsRecord(line string) bool {
	return recordStartRe.MatchString(line)
}

// timestampToken returns the timestamp token of a record-starting line.
func timestampToken(line string) (string, bool) {
	m := recordStartRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// ParseTimestamp parses a token like "20220128/233741.111" in loc. A nil loc means time.Local.
func ParseTimestamp(token string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 || len(token)-dot-1 == 0 {
		return time.Time{}, fmt.Errorf("timestamp %q has no fraction", token)
	}
	if digits := len(token) - dot - 1; digits > maxFractionDigits {
		return time.Time{}, fmt.Errorf("timestamp %q has %d fraction digits, at most %d allowed", token, digits, maxFractionDigits)
	}
	// time.Parse accepts a fraction after the seconds even if the layout has none.
	t, err := time.ParseInLocation(TimestampLayout, token, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", token, err)
	}
	return t, nil
}

// Builder assembles one Record in two phases: Open with the record-starting line, then Append
// for each continuation line. Build finalizes the record and resets the builder.
type Builder struct {
	Location *time.Location // nil means time.Local

	rec  Record
	open bool
}

// Open starts a new record. It fails with a *ParseError if line has no parsable timestamp.
func (b *Builder) Open(source string, lineNo int, line string) error {
	if b.open {
		return &InvariantError{Source: source, Op: "open", Msg: "record already open"}
	}
	token, ok := timestampToken(line)
	if !ok {
		return &ParseError{Source: source, Line: lineNo, Text: line, Err: ErrNoTimestamp}
	}
	ts, err := ParseTimestamp(token, b.Location)
	if err != nil {
		return &ParseError{Source: source, Line: lineNo, Text: line, Err: err}
	}
	b.rec = Record{
		Source:    source,
		Timestamp: ts,
		Line:      lineNo,
		Lines:     []string{line},
	}
	b.open = true
	return nil
}

// IsOpen reports whether Open was called since the last Build.
func (b *Builder) IsOpen() bool {
	return b.open
}

// Append adds a continuation line to the open record.
func (b *Builder) Append(line string) {
	b.rec.Lines = append(b.rec.Lines, line)
}

// Build returns the assembled record. It returns false if no record is open.
func (b *Builder) Build() (Record, bool) {
	if !b.open {
		return Record{}, false
	}
	rec := b.rec
	b.rec = Record{}
	b.open = false
	return rec, true
}
