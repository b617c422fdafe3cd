// Package merge interleaves the records of several sources in timestamp order and applies a
// time window.
package merge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"logmerge/internal/window"
	"logmerge/pkg/logrecord"
)

// Sink receives the records selected by Run.
type Sink interface {
	Write(rec logrecord.Record) error
}

// SourceStats describes one source after a run.
type SourceStats struct {
	Name  string
	Lines int // physical lines read
}

// Result summarizes a run.
type Result struct {
	Sources []SourceStats // in input order

	Written int // records passed to the sink
	Skipped int // records before the window start

	// StoppedAt is the timestamp of the record past the window end that stopped the run. It is
	// zero if the run ended because all sources were exhausted.
	StoppedAt time.Time
}

// Stopped reports whether the run ended at the window end rather than at end of input.
func (r Result) Stopped() bool {
	return !r.StoppedAt.IsZero()
}

// Run merges sources by timestamp and writes the records inside w to sink.
//
// Records with equal timestamps are written in the order of sources. Every selected record is
// consumed from its source before the window is checked, so the first record past the window
// end is read and dropped, and counted in the line statistics.
//
// Run takes ownership of sources and closes all of them before it returns, on success and on
// error.
func Run(ctx context.Context, sources []*logrecord.Source, w window.Spec, sink Sink) (res Result, err error) {
	defer func() {
		res.Sources = sourceStats(sources)
		if closeErr := closeAll(sources); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		src, err := earliest(sources)
		if err != nil {
			return res, err
		}
		if src == nil {
			return res, nil
		}

		rec, err := src.Advance()
		if err != nil {
			return res, err
		}

		if w.Before(rec.Timestamp) {
			res.Skipped++
			continue
		}
		if w.After(rec.Timestamp) {
			slog.Debug("Record past window end, stopping", "source", rec.Source, "line", rec.Line, "timestamp", rec.Timestamp)
			res.StoppedAt = rec.Timestamp
			return res, nil
		}

		if err := sink.Write(rec); err != nil {
			return res, err
		}
		res.Written++
	}
}

// earliest returns the source whose pending record has the smallest timestamp, preferring the
// first one in sources on ties. It returns nil when no source has a pending record.
func earliest(sources []*logrecord.Source) (*logrecord.Source, error) {
	var best *logrecord.Source
	var bestTime time.Time
	for _, src := range sources {
		if src == nil || !src.HasPending() {
			continue
		}
		rec, err := src.Peek()
		if err != nil {
			return nil, err
		}
		if best == nil || rec.Timestamp.Before(bestTime) {
			best, bestTime = src, rec.Timestamp
		}
	}
	return best, nil
}

func sourceStats(sources []*logrecord.Source) []SourceStats {
	stats := make([]SourceStats, 0, len(sources))
	for _, src := range sources {
		if src == nil {
			continue
		}
		stats = append(stats, SourceStats{Name: src.Name(), Lines: src.LinesRead()})
	}
	return stats
}

func closeAll(sources []*logrecord.Source) error {
	var errs []error
	for _, src := range sources {
		if src == nil {
			continue
		}
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
