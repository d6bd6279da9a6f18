package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ripostebot/riposte/internal/classification"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <text>...",
		Short: "Classify a message without responding",
		Long: `Classify a message against the stored pattern library and print the verdict.

No response is produced and no outcome is recorded; this is a read-only view
of what the decision engine would see.

Examples:
  riposte classify "hey there, how are you?"
  riposte classify --json "can you help me reset my password ASAP?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().Bool("json", false, "Print the classification as JSON")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("classify.json", cmd.Flags().Lookup("json"))

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.Join(args, " ")
	asJSON := viper.GetBool("classify.json")

	db, cleanup, err := getDatabase()
	if err != nil {
		return err
	}
	defer cleanup()

	reg, err := loadRegistry(ctx, db)
	if err != nil {
		return err
	}

	classifier, err := classification.NewClassifier(classification.Config{})
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	result, err := classifier.Classify(ctx, text, reg.Snapshot())
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal classification: %w", err)
		}
		_, _ = fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	slog.Info("Classification result",
		"type", result.Type,
		"confidence", fmt.Sprintf("%.2f", result.Confidence),
		"sentiment", result.Sentiment)

	if result.PatternID != "" {
		slog.Info("Matched pattern", "pattern", result.PatternID)
	} else {
		slog.Info("No pattern matched")
	}

	if len(result.MatchedKeywords) > 0 {
		slog.Info("Matched keywords", "keywords", strings.Join(result.MatchedKeywords, ", "))
	}

	if result.HasUrgencyMarkers {
		slog.Info("Urgency markers detected")
	}

	return nil
}
