package llm

import (
	"fmt"
	"sort"
	"strings"
)

// providers maps a provider name to its client constructor.
var providers = map[string]func(Config) (Client, error){
	"openai": newOpenAIClient,
}

// NewClient creates a raw reply client for the configured provider. Most
// callers want NewGenerator, which layers caching, rate limiting, and
// retries on top.
func NewClient(cfg Config) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))

	construct, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider %q (known: %s)",
			cfg.Provider, strings.Join(providerNames(), ", "))
	}

	return construct(cfg)
}

func providerNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
