package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"time"

	"logmerge/internal/input"
	"logmerge/internal/stats"
	"logmerge/internal/tracemix"
	"logmerge/internal/window"

	"github.com/spf13/cobra"
)

var (
	output       string
	interactive  bool
	windowStart  string
	windowEnd    string
	nowValue     string
	timezone     string
	encodingName string
	useMmap      bool
	verbose      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "logmerge [flags] FILE...",
	Short: "Merge timestamped log files into one chronological log",
	Long: `logmerge merges log files that are each sorted by timestamp into one file sorted by
timestamp. A record starts with a line whose first or second field is a timestamp like
20220128/233741.111222; the lines that follow it belong to the same record.

Every output record is prefixed with the name of the file it came from. Records with the same
timestamp keep the order of the FILE arguments. Use - to read one input from stdin.

The window bounds accept "now" (or "n"), a time of day hh:mm[:ss] on the current day, or a
date-time like "2022-01-28 23:50:00". If start is later than end, the window starts on the
previous day, so --start 23:50 --end 00:10 covers midnight.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.ErrOrStderr())

		loc, err := loadLocation(timezone)
		if err != nil {
			return err
		}
		now, err := referenceNow(nowValue, loc)
		if err != nil {
			return err
		}

		start, end := windowStart, windowEnd
		if interactive {
			if slices.Contains(args, input.Stdin) {
				return errors.New("--window reads the bounds from stdin, so stdin (-) cannot be an input")
			}
			if start, end, err = window.Prompt(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		res, err := tracemix.Run(ctx, tracemix.Config{
			Inputs:      args,
			Output:      output,
			WindowStart: start,
			WindowEnd:   end,
			Now:         now,
			Location:    loc,
			Input: input.Options{
				Encoding: encodingName,
				Mmap:     useMmap,
				Stdin:    cmd.InOrStdin(),
			},
		}, cmd.OutOrStdout())
		if err != nil {
			slog.Error("Merge failed", "error", err)
			return err
		}

		if quiet {
			return nil
		}
		return stats.Collect(res).Write(cmd.ErrOrStderr())
	},
}

func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadLocation returns time.Local for an empty name.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid --tz: %w", err)
	}
	return loc, nil
}

// referenceNow returns the wall clock unless raw (or $LOGMERGE_NOW) overrides it.
func referenceNow(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		raw = os.Getenv("LOGMERGE_NOW")
	}
	if raw == "" {
		return time.Now().In(loc), nil
	}
	now, err := window.ParseInstant(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return now, nil
}

func init() {
	rootCmd.Flags().StringVarP(&output, "output", "o", "out.txt", "Output file, - for stdout")
	rootCmd.Flags().BoolVarP(&interactive, "window", "w", false, "Ask for the window start and end on stdin")
	rootCmd.Flags().StringVarP(&windowStart, "start", "s", "", "Window start: now, hh:mm[:ss] or a date-time (default: unbounded)")
	rootCmd.Flags().StringVarP(&windowEnd, "end", "e", "", "Window end: now, hh:mm[:ss] or a date-time (default: unbounded)")
	rootCmd.Flags().StringVar(&nowValue, "now", "", "Reference time for the window (default: $LOGMERGE_NOW or the current time)")
	rootCmd.Flags().StringVar(&timezone, "tz", "", "Time zone of log timestamps and window bounds, for example UTC (default: local)")
	rootCmd.Flags().StringVar(&encodingName, "encoding", input.DefaultEncoding, "Input charset: latin9, latin1, utf-8 or another IANA name")
	rootCmd.Flags().BoolVar(&useMmap, "mmap", false, "Read regular input files through a memory map")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print statistics")

	rootCmd.MarkFlagsMutuallyExclusive("window", "start")
	rootCmd.MarkFlagsMutuallyExclusive("window", "end")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
