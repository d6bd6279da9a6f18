package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ripostebot/riposte/internal/model"
	"github.com/schollz/progressbar/v3"
)

// ReviewAction is the verdict a reviewer gives for one recorded outcome.
type ReviewAction int

// Review actions.
const (
	ReviewAccept ReviewAction = iota
	ReviewReject
	ReviewSkip
	ReviewQuit
)

// ReviewResult carries one verdict and an optional free-form note.
type ReviewResult struct {
	Note   string
	Action ReviewAction
}

// SessionStats summarizes a review session.
type SessionStats struct {
	Processed int
	Accepted  int
	Rejected  int
	Skipped   int
}

// ReviewPrompter walks recorded outcomes interactively and collects verdicts.
type ReviewPrompter struct {
	startTime   time.Time
	writer      io.Writer
	reader      *LineReader
	progressBar *progressbar.ProgressBar
	total       int
	stats       SessionStats
	statsMutex  sync.RWMutex
}

// NewReviewPrompter creates a review prompter with the given reader and writer.
func NewReviewPrompter(reader io.Reader, writer io.Writer) *ReviewPrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &ReviewPrompter{
		reader:    NewLineReader(reader),
		writer:    writer,
		startTime: time.Now(),
	}
}

// SetTotal announces how many outcomes this session will walk through.
func (p *ReviewPrompter) SetTotal(total int) {
	p.total = total
	p.initProgressBar()
}

// ReviewOutcome shows one recorded outcome and prompts for a verdict.
func (p *ReviewPrompter) ReviewOutcome(ctx context.Context, record model.StatRecord) (ReviewResult, error) {
	select {
	case <-ctx.Done():
		return ReviewResult{}, ctx.Err()
	default:
	}

	p.updateProgress()

	content := p.formatOutcome(record)
	if _, err := fmt.Fprintln(p.writer, RenderBox("Response Review", content)); err != nil {
		return ReviewResult{}, fmt.Errorf("failed to write outcome box: %w", err)
	}

	options := "  [A] Accept - the response was helpful\n" +
		"  [R] Reject - the response missed the mark\n" +
		"  [S] Skip for now\n" +
		"  [Q] Quit the review session\n"
	if _, err := fmt.Fprintln(p.writer, options); err != nil {
		return ReviewResult{}, fmt.Errorf("failed to write verdict options: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Verdict", []string{"a", "r", "s", "q"})
	if err != nil {
		return ReviewResult{}, err
	}

	switch choice {
	case "a":
		note, err := p.promptNote(ctx)
		if err != nil {
			return ReviewResult{}, err
		}
		p.recordVerdict(ReviewAccept)
		return ReviewResult{Action: ReviewAccept, Note: note}, nil
	case "r":
		note, err := p.promptNote(ctx)
		if err != nil {
			return ReviewResult{}, err
		}
		p.recordVerdict(ReviewReject)
		return ReviewResult{Action: ReviewReject, Note: note}, nil
	case "s":
		p.recordVerdict(ReviewSkip)
		return ReviewResult{Action: ReviewSkip}, nil
	default: // "q"
		return ReviewResult{Action: ReviewQuit}, nil
	}
}

// ShowCompletion displays the session summary to the user.
func (p *ReviewPrompter) ShowCompletion() {
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
		if _, err := fmt.Fprintln(p.writer); err != nil {
			slog.Warn("Failed to write newline", "error", err)
		}
	}

	stats := p.SessionStats()
	duration := time.Since(p.startTime).Round(time.Second)

	summary := fmt.Sprintf("%s Review Complete!\n\n", SpeechIcon) +
		fmt.Sprintf("%s Session:\n", ChartIcon) +
		fmt.Sprintf("  • Outcomes seen: %d\n", stats.Processed) +
		fmt.Sprintf("  • Accepted: %d\n", stats.Accepted) +
		fmt.Sprintf("  • Rejected: %d\n", stats.Rejected) +
		fmt.Sprintf("  • Skipped: %d\n", stats.Skipped) +
		fmt.Sprintf("  • Time taken: %s\n", duration)

	if _, err := fmt.Fprintln(p.writer, RenderBox("Review Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

// SessionStats returns a snapshot of the session counters.
func (p *ReviewPrompter) SessionStats() SessionStats {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()
	return p.stats
}

func (p *ReviewPrompter) recordVerdict(action ReviewAction) {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()

	p.stats.Processed++
	switch action {
	case ReviewAccept:
		p.stats.Accepted++
	case ReviewReject:
		p.stats.Rejected++
	case ReviewSkip:
		p.stats.Skipped++
	case ReviewQuit:
	}
}

func (p *ReviewPrompter) initProgressBar() {
	p.progressBar = progressbar.NewOptions(p.total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reviewing outcomes...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func (p *ReviewPrompter) updateProgress() {
	if p.progressBar != nil {
		if err := p.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func (p *ReviewPrompter) formatOutcome(record model.StatRecord) string {
	source := "generated reply"
	if record.PatternID != "" {
		source = record.PatternID
	}

	header := TitleStyle.Render(fmt.Sprintf("Outcome: %s", source))

	status := SuccessStyle.Render("responded automatically")
	if !record.WasSent {
		status = WarningStyle.Render("deferred to the generator")
	}

	details := fmt.Sprintf("%s Details:\n", InfoIcon) +
		fmt.Sprintf("  Date: %s\n", record.Timestamp.Format("Jan 2, 2006 15:04")) +
		fmt.Sprintf("  User: %s\n", record.UserID) +
		fmt.Sprintf("  Outcome: %s\n", status) +
		fmt.Sprintf("  Record: %s", SubtleStyle.Render(record.ID))

	return header + "\n\n" + details
}

func (p *ReviewPrompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("input terminated")
			}
			return "", err
		}

		choice := strings.ToLower(input)

		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *ReviewPrompter) promptNote(ctx context.Context) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt("Add a note (press enter to skip)")); err != nil {
		return "", fmt.Errorf("failed to write note prompt: %w", err)
	}

	note, err := p.reader.ReadLine(ctx)
	if err != nil {
		return "", err
	}

	return note, nil
}
