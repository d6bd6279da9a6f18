package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ripostebot/riposte/internal/cli"
	"github.com/ripostebot/riposte/internal/llm"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/respond"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func replyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reply",
		Short: "Run a message through the decision engine",
		Long: `Classify a message, decide whether to respond automatically, and print the
result. Accepted messages get a canned reply rendered from the winning
pattern; deferred messages can optionally get a generated reply when an LLM
provider is configured.

Every decision is recorded for later review with 'riposte review'.

Examples:
  riposte reply --user u123 --name Ada --text "hey there!"
  riposte reply --user u123 --text "what do you think about this?" --history user,auto,auto`,
		RunE: runReply,
	}

	cmd.Flags().StringP("user", "u", "", "User ID of the sender (required)")
	cmd.Flags().StringP("text", "m", "", "Message text (required)")
	cmd.Flags().StringP("name", "n", "", "Sender first name, used in templates")
	cmd.Flags().Bool("premium", false, "Sender is exempt from rate limits")
	cmd.Flags().Int("message-count", 0, "Messages previously exchanged with the sender")
	cmd.Flags().String("history", "", "Recent conversation origins, oldest first (comma-separated: user, auto, generator)")
	cmd.Flags().StringSlice("recent", nil, "Prior auto-response timestamps to seed the rate limiter (RFC 3339)")

	for _, flag := range []string{"user", "text"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			slog.Error("failed to mark flag as required", "flag", flag, "error", err)
		}
	}

	return cmd
}

func runReply(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	userID, _ := cmd.Flags().GetString("user")
	text, _ := cmd.Flags().GetString("text")
	firstName, _ := cmd.Flags().GetString("name")
	premium, _ := cmd.Flags().GetBool("premium")
	messageCount, _ := cmd.Flags().GetInt("message-count")
	rawHistory, _ := cmd.Flags().GetString("history")
	rawRecent, _ := cmd.Flags().GetStringSlice("recent")

	history, err := parseHistory(rawHistory)
	if err != nil {
		return err
	}

	recent, err := parseRecentTimestamps(rawRecent)
	if err != nil {
		return err
	}

	db, cleanup, err := getDatabase()
	if err != nil {
		return err
	}
	defer cleanup()

	eng, recorder, err := buildEngine(ctx, db)
	if err != nil {
		return err
	}
	// Flush buffered outcomes before the database closes
	defer func() {
		if err := recorder.Close(); err != nil {
			slog.Error("Failed to flush outcome records", "error", err)
		}
	}()

	user := model.UserContext{
		UserID:              userID,
		FirstName:           firstName,
		MessageCount:        messageCount,
		IsPremium:           premium,
		RecentAutoResponses: recent,
	}

	reply, err := eng.Respond(ctx, text, user, history, time.Now())
	if err != nil {
		return fmt.Errorf("failed to process message: %w", err)
	}

	slog.Info("Decision",
		"should_respond", reply.Decision.ShouldRespond,
		"reason", reply.Decision.Reason,
		"pattern", reply.Decision.PatternID,
		"confidence", fmt.Sprintf("%.2f", reply.Classification.Confidence),
		"record", reply.RecordID)

	if reply.Sent {
		if reply.Decision.PatternID != "" && reply.Decision.PatternID != respond.UrgencyAckID {
			if err := db.IncrementPatternUseCount(ctx, reply.Decision.PatternID); err != nil {
				slog.Warn("Failed to increment pattern use count",
					"pattern", reply.Decision.PatternID, "error", err)
			}
		}

		_, _ = fmt.Fprintln(os.Stdout, cli.RenderBox("Automatic Reply", reply.Text))
		return nil
	}

	// Deferred. Hand the message to the generator when one is configured.
	cfg := llmConfigFromViper()
	if cfg.Provider == "" {
		_, _ = fmt.Fprintln(os.Stdout, cli.FormatInfo("Deferred to a human. Set llm.provider to generate replies for deferred messages."))
		return nil
	}

	generator, err := llm.NewGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create reply generator: %w", err)
	}
	defer func() {
		if err := generator.Close(); err != nil {
			slog.Warn("Failed to close reply generator", "error", err)
		}
	}()

	generated, err := generator.GenerateReply(ctx, llm.DeferralRequest{
		Text:      text,
		FirstName: firstName,
		Type:      reply.Classification.Type,
		Reason:    reply.Decision.Reason,
	})
	if err != nil {
		return fmt.Errorf("failed to generate reply: %w", err)
	}

	_, _ = fmt.Fprintln(os.Stdout, cli.RenderBox("Generated Reply", generated))
	return nil
}

func llmConfigFromViper() llm.Config {
	return llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}
}
