package logrecord

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Source is a cursor over the records of one input. It keeps one record of lookahead so a
// merge can compare the next timestamps of several sources.
//
// A Source is not safe for concurrent use.
type Source struct {
	name   string
	loc    *time.Location
	closer io.Closer
	reader *bufio.Reader

	lines int // physical lines read so far

	// seed is a record-starting line that ended the previous record.
	seed     string
	seedLine int
	hasSeed  bool

	next   *Record
	eof    bool
	closed bool
}

// NewSource takes ownership of rc and reads the first record. The name identifies the source
// in errors and in the merged output. A nil loc means time.Local.
//
// rc is closed if the first record cannot be read.
func NewSource(name string, rc io.ReadCloser, loc *time.Location) (*Source, error) {
	s := &Source{
		name:   name,
		loc:    loc,
		closer: rc,
		reader: bufio.NewReaderSize(rc, 64*1024),
	}
	if err := s.load(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Name returns the name given to NewSource.
func (s *Source) Name() string {
	return s.name
}

// HasPending reports whether a record is available. Once false it stays false.
func (s *Source) HasPending() bool {
	return s.next != nil
}

// Peek returns the pending record without consuming it.
func (s *Source) Peek() (Record, error) {
	if s.next == nil {
		return Record{}, &InvariantError{Source: s.name, Op: "peek"}
	}
	return *s.next, nil
}

// Advance consumes the pending record and reads the following one. If reading the following
// record fails, the consumed record is returned together with the error.
func (s *Source) Advance() (Record, error) {
	if s.next == nil {
		return Record{}, &InvariantError{Source: s.name, Op: "advance"}
	}
	rec := *s.next
	if err := s.load(); err != nil {
		return rec, err
	}
	return rec, nil
}

// LinesRead returns the number of physical lines read from the input so far, including the
// line that starts the pending lookahead record.
func (s *Source) LinesRead() int {
	return s.lines
}

// Close releases the input. It is safe to call Close more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.next = nil
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.name, err)
	}
	return nil
}

// load assembles the next record into s.next.
func (s *Source) load() error {
	s.next = nil

	line, lineNo, ok, err := s.readLine()
	if err != nil || !ok {
		return err
	}

	b := Builder{Location: s.loc}
	if err := b.Open(s.name, lineNo, line); err != nil {
		return err
	}

	for {
		line, lineNo, ok, err = s.readLine()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if StartsRecord(line) {
			s.seed, s.seedLine, s.hasSeed = line, lineNo, true
			break
		}
		b.Append(line)
	}

	rec, _ := b.Build()
	s.next = &rec
	return nil
}

// readLine returns the next line without its terminator. ok is false at the end of the input.
func (s *Source) readLine() (line string, lineNo int, ok bool, err error) {
	if s.hasSeed {
		s.hasSeed = false
		return s.seed, s.seedLine, true, nil
	}
	if s.eof || s.closed {
		return "", 0, false, nil
	}

	line, err = s.reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", 0, false, fmt.Errorf("reading %s after line %d: %w", s.name, s.lines, err)
		}
		s.eof = true
		if line == "" {
			return "", 0, false, nil
		}
	}

	s.lines++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, s.lines, true, nil
}
