// Package tracemix runs one merge: it resolves the window, opens the inputs and the output and
// drives the merge.
package tracemix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"logmerge/internal/input"
	"logmerge/internal/merge"
	"logmerge/internal/window"
	"logmerge/pkg/logrecord"
)

// StdoutPath selects standard output as the merge destination.
const StdoutPath = "-"

// Config describes one merge run.
type Config struct {
	// Inputs are merged in this order; on equal timestamps earlier inputs win.
	Inputs []string

	// Output is the destination file, StdoutPath for stdout.
	Output string

	// WindowStart and WindowEnd are raw window bounds, see window.Resolve.
	WindowStart string
	WindowEnd   string

	// Now is the reference instant for relative window bounds. It must be set.
	Now time.Time

	// Location is used for log timestamps and window bounds. nil means time.Local.
	Location *time.Location

	Input input.Options
}

// Run performs the merge described by cfg. stdout receives the output if cfg.Output is
// StdoutPath; nil means os.Stdout. On error the content of the output is undefined.
func Run(ctx context.Context, cfg Config, stdout io.Writer) (merge.Result, error) {
	if len(cfg.Inputs) == 0 {
		return merge.Result{}, errors.New("no input files given")
	}
	if cfg.Now.IsZero() {
		return merge.Result{}, errors.New("reference time is not set")
	}
	if err := checkStdinOnce(cfg.Inputs); err != nil {
		return merge.Result{}, err
	}
	if err := checkOutputNotInput(cfg.Output, cfg.Inputs); err != nil {
		return merge.Result{}, err
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	w, err := window.Resolve(cfg.WindowStart, cfg.WindowEnd, cfg.Now.In(loc))
	if err != nil {
		return merge.Result{}, err
	}

	sources, err := OpenSources(cfg.Inputs, loc, cfg.Input)
	if err != nil {
		return merge.Result{}, err
	}

	out, err := createOutput(cfg.Output, stdout)
	if err != nil {
		closeSources(sources)
		return merge.Result{}, err
	}

	slog.Info("Merging logs", "inputs", cfg.Inputs, "output", cfg.Output, "window", w.String())

	writer := logrecord.NewWriter(out)
	res, err := merge.Run(ctx, sources, w, writer)
	if err != nil {
		_ = out.Close()
		return res, fmt.Errorf("merge failed: %w", err)
	}
	if err := writer.Flush(); err != nil {
		_ = out.Close()
		return res, err
	}
	if err := out.Close(); err != nil {
		return res, fmt.Errorf("failed to close output: %w", err)
	}

	slog.Debug("Merge finished", "written", res.Written, "skipped", res.Skipped, "stopped", res.Stopped())
	return res, nil
}

// OpenSources opens one logrecord.Source per path, in order. If any path fails, the sources
// opened so far are closed.
func OpenSources(paths []string, loc *time.Location, opts input.Options) ([]*logrecord.Source, error) {
	sources := make([]*logrecord.Source, 0, len(paths))
	for _, path := range paths {
		rc, err := input.Open(path, opts)
		if err != nil {
			closeSources(sources)
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		src, err := logrecord.NewSource(path, rc, loc)
		if err != nil {
			closeSources(sources)
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func closeSources(sources []*logrecord.Source) {
	for _, src := range sources {
		if err := src.Close(); err != nil {
			slog.Warn("Failed to close input", "source", src.Name(), "error", err)
		}
	}
}

func checkStdinOnce(paths []string) error {
	seen := false
	for _, path := range paths {
		if path != input.Stdin {
			continue
		}
		if seen {
			return errors.New("stdin (-) can only be used as input once")
		}
		seen = true
	}
	return nil
}

// checkOutputNotInput rejects an output that is the same file as an input, however the two
// paths are spelled (relative, absolute, symlink or hard link). An output that does not exist
// yet cannot clash.
func checkOutputNotInput(output string, inputs []string) error {
	if output == StdoutPath {
		return nil
	}
	outInfo, err := os.Stat(output)
	if err != nil {
		return nil
	}
	for _, path := range inputs {
		if path == input.Stdin {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if os.SameFile(info, outInfo) {
			return fmt.Errorf("output %s is also an input (%s)", output, path)
		}
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// createOutput opens the destination. A nil stdout means os.Stdout.
func createOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == StdoutPath {
		if stdout == nil {
			stdout = os.Stdout
		}
		return nopWriteCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
