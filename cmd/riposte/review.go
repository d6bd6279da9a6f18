package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ripostebot/riposte/internal/cli"
	"github.com/ripostebot/riposte/internal/common"
	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review recorded outcomes interactively",
		Long: `Walk through outcomes that have not been reviewed yet and mark each one
accepted or rejected. Verdicts feed the acceptance rates shown by
'riposte stats'.

Each outcome is attached exactly once; skipped outcomes come back in the
next session.`,
		RunE: runReview,
	}

	cmd.Flags().IntP("limit", "l", 20, "Maximum outcomes to review this session")

	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	db, cleanup, err := getDatabase()
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := db.ListUnreviewedOutcomes(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list unreviewed outcomes: %w", err)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, cli.FormatInfo("No outcomes awaiting review."))
		return nil
	}

	// Ctrl-C ends the session cleanly; verdicts already attached are kept
	interrupts := cli.NewInterruptHandler(os.Stdout)
	ctx = interrupts.HandleInterrupts(ctx, true)

	prompter := cli.NewReviewPrompter(os.Stdin, os.Stdout)
	prompter.SetTotal(len(records))

	for _, record := range records {
		result, err := prompter.ReviewOutcome(ctx, record)
		if err != nil {
			if interrupts.WasInterrupted() {
				return nil
			}
			return fmt.Errorf("review session failed: %w", err)
		}

		switch result.Action {
		case cli.ReviewAccept:
			err = db.AttachFeedback(ctx, record.ID, true, result.Note)
		case cli.ReviewReject:
			err = db.AttachFeedback(ctx, record.ID, false, result.Note)
		case cli.ReviewSkip:
			continue
		case cli.ReviewQuit:
			prompter.ShowCompletion()
			return nil
		}

		if err != nil {
			if errors.Is(err, common.ErrAlreadyReviewed) {
				slog.Warn("Outcome was already reviewed", "record", record.ID)
				continue
			}
			return fmt.Errorf("failed to attach feedback: %w", err)
		}
	}

	prompter.ShowCompletion()
	return nil
}
