package llm

import (
	"context"
)

// Client defines the interface for deferral reply providers.
type Client interface {
	Reply(ctx context.Context, prompt string) (string, error)
}
