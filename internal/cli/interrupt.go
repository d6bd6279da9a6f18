package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// InterruptHandler turns SIGINT and SIGTERM into context cancellation so a
// review session stops at a question boundary instead of dying mid-write.
type InterruptHandler struct {
	writer      io.Writer
	interrupted atomic.Bool
}

// NewInterruptHandler creates a handler that writes its farewell to writer,
// or os.Stdout when nil.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts returns a child context canceled on the first interrupt
// signal. When resumable is true the farewell mentions how to pick the
// session back up.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, resumable bool) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)

		select {
		case <-signals:
			if h.interrupted.CompareAndSwap(false, true) {
				h.farewell(resumable)
			}
			cancel()
		case <-ctx.Done():
			// Session ended on its own
		}
	}()

	return ctx
}

// WasInterrupted reports whether a signal ended the session.
func (h *InterruptHandler) WasInterrupted() bool {
	return h.interrupted.Load()
}

func (h *InterruptHandler) farewell(resumable bool) {
	msg := "\n\n" + FormatWarning("Review interrupted!")
	if resumable {
		msg += "\n" + FormatInfo("Verdicts so far are saved. Resume with: riposte review")
	}
	msg += "\n" + FormatInfo("Until next time! 💬") + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}
