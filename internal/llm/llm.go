package llm

import (
	"context"
	"fmt"
)

// Request carries one completion invocation.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Completer is the text-completion abstraction the detector talks to.
// Backends are swappable without touching any parsing or fallback logic.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// New creates a completion backend by provider name.
func New(provider, model string) (Completer, error) {
	switch provider {
	case "ollama":
		return NewOllama(model, ""), nil
	case "anthropic":
		return NewAnthropic("", model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
