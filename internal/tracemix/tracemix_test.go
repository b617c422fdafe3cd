package tracemix

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logmerge/internal/input"
	"logmerge/internal/merge"
	"logmerge/pkg/logrecord"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir     string
	source1 string
	source2 string
	output  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		source1: filepath.Join(dir, "source1.log"),
		source2: filepath.Join(dir, "source2.log"),
		output:  filepath.Join(dir, "out.txt"),
	}
	require.NoError(t, os.WriteFile(f.source1, []byte(
		"20220128/234500.000000 s1 at 23:45\n"+
			"  with detail\n"+
			"20220128/235500.000000 s1 at 23:55\n"), 0o600))
	require.NoError(t, os.WriteFile(f.source2, []byte(
		"host 20220128/235000.000000 s2 at 23:50 \xa4\n"), 0o600))
	return f
}

func (f fixture) config(now time.Time) Config {
	return Config{
		Inputs:   []string{f.source1, f.source2},
		Output:   f.output,
		Now:      now,
		Location: time.UTC,
	}
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

var lateEvening = time.Date(2022, 1, 28, 23, 59, 0, 0, time.UTC)

func TestRun_MergesAllRecords(t *testing.T) {
	f := newFixture(t)

	res, err := Run(context.Background(), f.config(lateEvening), nil)
	require.NoError(t, err)

	expected := f.source1 + " 20220128/234500.000000 s1 at 23:45\n" +
		"  with detail\n" +
		f.source2 + " host 20220128/235000.000000 s2 at 23:50 €\n" +
		f.source1 + " 20220128/235500.000000 s1 at 23:55\n"
	require.Equal(t, expected, readOutput(t, f.output))
	require.Equal(t, []merge.SourceStats{{Name: f.source1, Lines: 3}, {Name: f.source2, Lines: 1}}, res.Sources)
}

func TestRun_WindowSameDay(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(lateEvening)
	cfg.WindowStart, cfg.WindowEnd = "23:40", "23:50"

	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	expected := f.source1 + " 20220128/234500.000000 s1 at 23:45\n" +
		"  with detail\n" +
		f.source2 + " host 20220128/235000.000000 s2 at 23:50 €\n"
	require.Equal(t, expected, readOutput(t, f.output))
	require.True(t, res.Stopped())
}

func TestRun_WindowAcrossMidnight(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(time.Date(2022, 1, 29, 3, 1, 0, 0, time.UTC))
	cfg.WindowStart, cfg.WindowEnd = "23:50", "00:01"

	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	expected := f.source2 + " host 20220128/235000.000000 s2 at 23:50 €\n" +
		f.source1 + " 20220128/235500.000000 s1 at 23:55\n"
	require.Equal(t, expected, readOutput(t, f.output))
	require.Equal(t, 1, res.Skipped)
	require.False(t, res.Stopped())
}

func TestRun_Stdout(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(lateEvening)
	cfg.Output = StdoutPath
	cfg.Inputs = []string{f.source2}

	var stdout bytes.Buffer
	_, err := Run(context.Background(), cfg, &stdout)
	require.NoError(t, err)
	require.Equal(t, f.source2+" host 20220128/235000.000000 s2 at 23:50 €\n", stdout.String())
}

func TestRun_StdinInput(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(lateEvening)
	cfg.Inputs = []string{input.Stdin, f.source2}
	cfg.Input.Stdin = bytes.NewBufferString("20220128/235000.000000 from stdin\n")

	_, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Equal(t,
		"- 20220128/235000.000000 from stdin\n"+f.source2+" host 20220128/235000.000000 s2 at 23:50 €\n",
		readOutput(t, f.output))
}

func TestRun_MmapInputs(t *testing.T) {
	f := newFixture(t)

	_, err := Run(context.Background(), f.config(lateEvening), nil)
	require.NoError(t, err)
	plain := readOutput(t, f.output)

	cfg := f.config(lateEvening)
	cfg.Input.Mmap = true
	_, err = Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, plain, readOutput(t, f.output))
}

func TestRun_ParseError(t *testing.T) {
	f := newFixture(t)
	bad := filepath.Join(f.dir, "bad.log")
	require.NoError(t, os.WriteFile(bad, []byte("no timestamp here\n"), 0o600))

	cfg := f.config(lateEvening)
	cfg.Inputs = []string{f.source1, bad}

	_, err := Run(context.Background(), cfg, nil)
	var parseErr *logrecord.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, bad, parseErr.Source)
	require.Equal(t, 1, parseErr.Line)

	_, statErr := os.Stat(f.output)
	require.True(t, os.IsNotExist(statErr), "output is not created when an input fails to open")
}

func TestRun_MissingInput(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(lateEvening)
	cfg.Inputs = []string{f.source1, filepath.Join(f.dir, "missing.log")}

	_, err := Run(context.Background(), cfg, nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_InvalidWindow(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(lateEvening)
	cfg.WindowStart = "tomorrow"

	_, err := Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "tomorrow")
}

func TestRun_ConfigErrors(t *testing.T) {
	f := newFixture(t)

	cfg := f.config(lateEvening)
	cfg.Inputs = nil
	_, err := Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "no input files")

	cfg = f.config(time.Time{})
	_, err = Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "reference time")

	cfg = f.config(lateEvening)
	cfg.Inputs = []string{input.Stdin, input.Stdin}
	_, err = Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "only be used as input once")

	cfg = f.config(lateEvening)
	cfg.Output = f.source1
	_, err = Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "is also an input")
}

func TestRun_OutputIsInputUnderAnotherName(t *testing.T) {
	f := newFixture(t)
	original, err := os.ReadFile(f.source1)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(f.dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg := f.config(lateEvening)
	cfg.Inputs = []string{"source1.log", f.source2}
	cfg.Output = f.source1
	_, err = Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "is also an input")

	cfg.Inputs = []string{"./source1.log", f.source2}
	_, err = Run(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "is also an input")

	link := filepath.Join(f.dir, "link.log")
	if err := os.Symlink(f.source1, link); err == nil {
		cfg.Inputs = []string{f.source1, f.source2}
		cfg.Output = link
		_, err = Run(context.Background(), cfg, nil)
		require.ErrorContains(t, err, "is also an input")
	}

	hardLink := filepath.Join(f.dir, "hard.log")
	if err := os.Link(f.source1, hardLink); err == nil {
		cfg.Inputs = []string{hardLink, f.source2}
		cfg.Output = f.source1
		_, err = Run(context.Background(), cfg, nil)
		require.ErrorContains(t, err, "is also an input")
	}

	require.Equal(t, string(original), readOutput(t, f.source1), "input must be left untouched")
}

func TestRun_OutputNotYetCreated(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(lateEvening)
	cfg.Output = filepath.Join(f.dir, "new.txt")

	_, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Contains(t, readOutput(t, filepath.Join(f.dir, "new.txt")), "s2 at 23:50")
}

func TestCreateOutput_NilStdout(t *testing.T) {
	w, err := createOutput(StdoutPath, nil)
	require.NoError(t, err)

	nop, ok := w.(nopWriteCloser)
	require.True(t, ok)
	require.Equal(t, os.Stdout, nop.Writer)
	require.NoError(t, w.Close())
}

func TestOpenSources_ClosesOnFailure(t *testing.T) {
	f := newFixture(t)

	sources, err := OpenSources([]string{f.source1, filepath.Join(f.dir, "missing.log")}, time.UTC, input.Options{})
	require.Error(t, err)
	require.Nil(t, sources)

	sources, err = OpenSources([]string{f.source1, f.source2}, time.UTC, input.Options{})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	for _, src := range sources {
		require.True(t, src.HasPending())
		require.NoError(t, src.Close())
	}
}
