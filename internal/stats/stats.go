// Package stats reports what a merge run did.
package stats

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"logmerge/internal/merge"
)

// Report is the post-run summary.
type Report struct {
	Result merge.Result

	// MemoryMB is the resident set size of this process in MB, 0 if unknown.
	MemoryMB float64
}

// Collect builds a Report for res and samples the memory usage of the current process.
func Collect(res merge.Result) Report {
	return Report{Result: res, MemoryMB: residentMemoryMB(int32(os.Getpid()))}
}

func residentMemoryMB(pid int32) float64 {
	p, err := process.NewProcess(pid)
	if err != nil {
		slog.Debug("Failed to inspect own process", "error", err)
		return 0
	}
	mem, err := p.MemoryInfo()
	if err != nil || mem == nil {
		slog.Debug("Failed to read memory info", "error", err)
		return 0
	}
	return float64(mem.RSS) / 1024 / 1024
}

// Write prints one "<source> -> N lines read" line per source followed by a summary line.
func (r Report) Write(w io.Writer) error {
	for _, src := range r.Result.Sources {
		if _, err := fmt.Fprintf(w, "%s -> %d lines read\n", src.Name, src.Lines); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%d records written, %d before window", r.Result.Written, r.Result.Skipped)
	if r.Result.Stopped() {
		summary += fmt.Sprintf(", stopped at %s", r.Result.StoppedAt.Format("2006-01-02 15:04:05.000000"))
	}
	if r.MemoryMB > 0 {
		summary += fmt.Sprintf(", %.1f MB resident", r.MemoryMB)
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}
