// Package llm adapts heterogeneous generative backends to one calling contract.
package llm

import (
	"context"

	"unityarchitect/internal/models"
)

// Provider is one configured generative backend.
type Provider interface {
	// Name identifies the backend and model, e.g. "Ollama:qwen2.5-coder:7b".
	Name() string
	Kind() models.ProviderKind
	// Policy tells the orchestration loop how many attempts this backend may use.
	Policy() AttemptPolicy
	// Call sends prompt and returns the cleaned answer. Failures are *ProviderError.
	Call(ctx context.Context, prompt string) (string, error)
}

// AttemptPolicy is attached to a provider so the loop itself stays backend-agnostic.
type AttemptPolicy struct {
	MaxAttempts   int
	RetryOnReject bool
}

var (
	// LocalPolicy lets the free local model retry once after a rejected answer.
	LocalPolicy = AttemptPolicy{MaxAttempts: 2, RetryOnReject: true}
	// RemotePolicy allows a single metered call per user action.
	RemotePolicy = AttemptPolicy{MaxAttempts: 1, RetryOnReject: false}
)
