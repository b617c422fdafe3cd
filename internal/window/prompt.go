package window

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	startPrompt = "window start time (hh:mm | n/now): "
	endPrompt   = "window end time (hh:mm | n/now): "
)

// Prompt asks for the raw window start and end, one line each. The questions are only written
// to out if in is a terminal, so piped answers produce no noise. An empty answer or end of
// input leaves that bound unbounded.
func Prompt(in io.Reader, out io.Writer) (rawStart, rawEnd string, err error) {
	interactive := false
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		interactive = true
	}

	reader := bufio.NewReader(in)
	rawStart, err = ask(reader, out, interactive, startPrompt)
	if err != nil {
		return "", "", fmt.Errorf("reading window start: %w", err)
	}
	rawEnd, err = ask(reader, out, interactive, endPrompt)
	if err != nil {
		return "", "", fmt.Errorf("reading window end: %w", err)
	}
	return rawStart, rawEnd, nil
}

func ask(reader *bufio.Reader, out io.Writer, interactive bool, question string) (string, error) {
	if interactive {
		if _, err := io.WriteString(out, question); err != nil {
			return "", err
		}
	}
	answer, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
