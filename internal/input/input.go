// Package input opens log files for merging: plain or memory mapped reads, stdin, and decoding
// of the input charset to UTF-8.
package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// DefaultEncoding is the input charset used when none is configured. Latin-9 maps every byte
// to a character, so arbitrary non-ASCII bytes never fail to decode.
const DefaultEncoding = "latin9"

// Options controls how inputs are opened.
type Options struct {
	// Encoding is the input charset name, for example "latin9", "latin1" or "utf-8". Other
	// IANA names are looked up as well. Empty means DefaultEncoding.
	Encoding string

	// Mmap reads regular files through a read-only memory map instead of read(2).
	Mmap bool

	// Stdin replaces os.Stdin for the "-" path.
	Stdin io.Reader
}

// Open opens path for reading and returns a reader producing UTF-8 text. Closing the returned
// reader releases the file and any memory map, but never closes stdin.
func Open(path string, opts Options) (io.ReadCloser, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	var raw io.ReadCloser
	if path == Stdin {
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		raw = io.NopCloser(in)
	} else if opts.Mmap {
		raw, err = openMapped(path)
	} else {
		raw, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}

	buffered := bufio.NewReaderSize(raw, sniffSize)
	if sample, _ := buffered.Peek(sniffSize); LooksBinary(sample, enc) {
		slog.Warn("Input looks like binary data", "path", path, "encoding", opts.Encoding)
	}

	var r io.Reader = buffered
	if enc != nil {
		r = enc.NewDecoder().Reader(buffered)
	}
	return &readCloser{Reader: r, closer: raw}, nil
}

// LookupEncoding returns the decoder for name. A nil encoding means the input is already
// UTF-8 and passes through unchanged.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin9", "latin-9", "iso-8859-15", "iso8859-15":
		return charmap.ISO8859_15, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "utf-8", "utf8":
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown input encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported input encoding %q", name)
	}
	return enc, nil
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r *readCloser) Close() error {
	return r.closer.Close()
}

// mappedFile reads a memory mapped file.
type mappedFile struct {
	*bytes.Reader
	file *os.File
	data mmap.MMap
}

func (m *mappedFile) Close() error {
	var errs []error
	if m.data != nil {
		if err := m.data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap %s: %w", m.file.Name(), err))
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			errs = append(errs, err)
		}
		m.file = nil
	}
	return errors.Join(errs...)
}

// openMapped maps a regular, non-empty file. Other files (empty files, pipes, devices) cannot
// be mapped and are read normally.
func openMapped(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return f, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &mappedFile{Reader: bytes.NewReader(data), file: f, data: data}, nil
}
