// Package llm generates free-form replies for messages the decision
// engine declined to answer automatically.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/service"
)

// Config holds the provider settings for reply generation.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// Generator produces replies for deferred messages. It wraps a raw
// provider client with caching, rate limiting, and retries.
type Generator struct {
	client      Client
	cache       *replyCache
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// DeferralRequest carries the context a deferred message brings to the generator.
type DeferralRequest struct {
	Text      string
	FirstName string
	Type      model.MessageType
	Reason    model.DecisionReason
}

// NewGenerator creates a reply generator for the configured provider.
func NewGenerator(cfg Config) (*Generator, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Generator{
		client:      client,
		cache:       newReplyCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
	}, nil
}

// GenerateReply produces a reply for a deferred message.
func (g *Generator) GenerateReply(ctx context.Context, req DeferralRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("message text is required")
	}

	prompt := buildPrompt(req)
	key := cacheKey(prompt)

	// Check cache first
	if reply, found := g.cache.get(key); found {
		slog.Debug("Reply cache hit", "reason", req.Reason)
		return reply, nil
	}

	// Rate limiting
	if err := g.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	var reply string

	// Use common retry logic
	err := common.WithRetry(ctx, func() error {
		response, err := g.client.Reply(ctx, prompt)
		if err != nil {
			slog.Warn("Reply generation attempt failed",
				"error", err,
				"reason", req.Reason)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		reply = strings.TrimSpace(response)
		if reply == "" {
			return &common.RetryableError{
				Err:       fmt.Errorf("provider returned an empty reply"),
				Retryable: true,
			}
		}
		return nil
	}, g.retryOpts)

	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}

	g.cache.set(key, reply)

	slog.Info("Generated deferral reply",
		"reason", req.Reason,
		"length", len(reply))

	return reply, nil
}

// Close releases any resources held by the underlying provider client.
func (g *Generator) Close() error {
	return nil
}

// buildPrompt creates the prompt for a deferred message.
func buildPrompt(req DeferralRequest) string {
	details := fmt.Sprintf("Message: %s", req.Text)

	if req.FirstName != "" {
		details += fmt.Sprintf("\nSender first name: %s", req.FirstName)
	}

	if req.Type != "" {
		details += fmt.Sprintf("\nDetected message type: %s", req.Type)
	}

	if req.Reason != "" {
		details += fmt.Sprintf("\nDeferral reason: %s", req.Reason)
	}

	return fmt.Sprintf(`Write the assistant's reply to this message.

%s

The reply should:
- Address the message directly in a warm, conversational tone
- Be 1-3 sentences maximum
- Use the sender's first name at most once, and only where it reads naturally
- Never mention patterns, confidence scores, rate limits, or other internal mechanics

Respond with ONLY the reply text, no additional formatting or explanation.`, details)
}

// cacheKey hashes the prompt so identical deferrals share one cache entry.
func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
