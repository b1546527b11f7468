package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputFailed wraps read errors other than end of input.
var ErrInputFailed = errors.New("failed to read input")

type readResult struct {
	line string
	err  error
}

// LineReader reads trimmed lines. End of input is reported as io.EOF; any
// other failure is wrapped in ErrInputFailed.
type LineReader struct {
	reader *bufio.Reader
	// read still in flight after a canceled ReadLineContext
	pending chan readResult
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReader(r)}
}

func (l *LineReader) ReadLine() (string, error) {
	text, err := l.reader.ReadString('\n')

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		// a final line without a newline is still a line
		if text == "" {
			return "", io.EOF
		}
	default:
		return "", fmt.Errorf("%w: %w", ErrInputFailed, err)
	}

	return strings.TrimSpace(text), nil
}

// ReadLineContext is ReadLine that gives up when ctx is done. The abandoned
// read keeps running and its line is returned by the next call.
func (l *LineReader) ReadLineContext(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if l.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			line, err := l.ReadLine()
			ch <- readResult{line: line, err: err}
		}()
		l.pending = ch
	}

	select {
	case res := <-l.pending:
		l.pending = nil
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
