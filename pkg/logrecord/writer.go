package logrecord

import (
	"bufio"
	"fmt"
	"io"
)

// FormatRecord formats a record into the merged output format:
// "source first-line\n" followed by "line\n" for every continuation line.
func FormatRecord(rec Record) []byte {
	size := len(rec.Source) + 1
	for _, line := range rec.Lines {
		size += len(line) + 1
	}

	result := make([]byte, 0, size)
	result = append(result, rec.Source...)
	result = append(result, ' ')
	for _, line := range rec.Lines {
		result = append(result, line...)
		result = append(result, '\n')
	}
	if len(rec.Lines) == 0 {
		result = append(result, '\n')
	}
	return result
}

// Writer writes records in the merged output format. Call Flush when done.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer that buffers output for w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// Write writes one record.
func (w *Writer) Write(rec Record) error {
	if _, err := w.w.Write(FormatRecord(rec)); err != nil {
		return fmt.Errorf("writing record from %s line %d: %w", rec.Source, rec.Line, err)
	}
	return nil
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}
