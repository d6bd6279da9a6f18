package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ripostebot/riposte/internal/cli"
	"github.com/ripostebot/riposte/internal/stats"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show response statistics",
		Long: `Summarize recorded outcomes: how many messages were answered automatically,
how many were deferred, and how reviewers judged the responses.

Acceptance rates only count reviewed outcomes; patterns with no reviews
show n/a rather than a misleading zero.`,
		RunE: runStats,
	}

	cmd.Flags().IntP("days", "d", 0, "Only count outcomes from the last N days (0 = all time)")
	cmd.Flags().StringP("pattern", "p", "", "Show the acceptance rate for a single pattern")
	cmd.Flags().Bool("json", false, "Print the summary as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	days, _ := cmd.Flags().GetInt("days")
	patternID, _ := cmd.Flags().GetString("pattern")
	asJSON, _ := cmd.Flags().GetBool("json")

	var since *time.Time
	if days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		since = &cutoff
	}

	db, cleanup, err := getDatabase()
	if err != nil {
		return err
	}
	defer cleanup()

	recorder := stats.NewRecorder(db, stats.DefaultConfig())
	defer func() {
		if err := recorder.Close(); err != nil {
			slog.Error("Failed to close stats recorder", "error", err)
		}
	}()

	if patternID != "" {
		rate, err := recorder.AcceptanceRate(ctx, patternID, since)
		if err != nil {
			return fmt.Errorf("failed to compute acceptance rate: %w", err)
		}
		slog.Info("Pattern acceptance", "pattern", patternID, "rate", formatRate(rate))
		return nil
	}

	summary, err := recorder.Summarize(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to summarize outcomes: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		_, _ = fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	_, _ = fmt.Fprintln(os.Stdout, cli.FormatTitle("Response Statistics"))
	if since != nil {
		_, _ = fmt.Fprintln(os.Stdout, cli.FormatInfo(fmt.Sprintf("Since %s", since.Format("Jan 2, 2006"))))
	}
	_, _ = fmt.Fprintln(os.Stdout)

	slog.Info("Totals",
		"outcomes", summary.Total,
		"sent", summary.Sent,
		"deferred", summary.Deferred,
		"reviewed", summary.Reviewed,
		"accepted", summary.Accepted,
		"overall_rate", formatRate(summary.OverallRate))

	if len(summary.PerPattern) == 0 {
		slog.Info("No per-pattern outcomes recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PATTERN\tSENT\tREVIEWED\tACCEPTED\tRATE")
	_, _ = fmt.Fprintln(w, "───────\t────\t────────\t────────\t────")

	for _, pattern := range summary.PerPattern {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			pattern.PatternID,
			pattern.Sent,
			pattern.Reviewed,
			pattern.Accepted,
			formatRate(pattern.Rate))
	}

	return w.Flush()
}

// formatRate renders a review acceptance rate, distinguishing "no reviews
// yet" from a genuine 0%.
func formatRate(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", *rate*100)
}
