package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because the
// surrounding context ended first.
var ErrInputCancelled = errors.New("input canceled")

// LineReader hands out input lines without pinning the caller to a blocked
// read. A single pump goroutine owns the underlying stream; a canceled
// caller simply stops listening, and the line that eventually arrives is
// delivered to the next call instead of being lost.
type LineReader struct {
	scanner *bufio.Scanner
	lines   chan lineResult
	pumping sync.Once
}

type lineResult struct {
	err  error
	text string
}

// NewLineReader wraps an input stream, typically os.Stdin.
func NewLineReader(src io.Reader) *LineReader {
	if src == nil {
		panic("line reader needs an input stream")
	}

	return &LineReader{
		scanner: bufio.NewScanner(src),
		lines:   make(chan lineResult),
	}
}

// ReadLine returns the next line with surrounding whitespace trimmed. It
// returns io.EOF once the stream is exhausted and ErrInputCancelled when the
// context ends before a line shows up.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	r.pumping.Do(r.pump)

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res, open := <-r.lines:
		switch {
		case !open:
			return "", io.EOF
		case res.err != nil:
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

// pump moves lines from the stream into the channel until EOF or a read
// error. It owns the scanner; nothing else may touch it.
func (r *LineReader) pump() {
	go func() {
		defer close(r.lines)

		for r.scanner.Scan() {
			r.lines <- lineResult{text: r.scanner.Text()}
		}
		if err := r.scanner.Err(); err != nil {
			r.lines <- lineResult{err: err}
		}
	}()
}
