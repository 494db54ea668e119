package llm

import (
	"context"
	"fmt"
	"time"

	"unityarchitect/internal/models"
)

// RemoteOptions configures one remote variant.
type RemoteOptions struct {
	BaseURL      string
	DefaultModel string
	RPS          float64
	Burst        int
	Timeout      time.Duration
}

// Options holds everything the factory needs to build any provider.
type Options struct {
	OllamaHost      string
	OllamaModel     string
	MaxPromptLength int
	Remotes         map[models.RemoteVariant]RemoteOptions
}

// DefaultRemotes returns the endpoints and models used when nothing is configured.
func DefaultRemotes() map[models.RemoteVariant]RemoteOptions {
	return map[models.RemoteVariant]RemoteOptions{
		models.VariantGemini:   {DefaultModel: DefaultGeminiModel, RPS: 0.25, Burst: 1},
		models.VariantOpenAI:   {BaseURL: DefaultOpenAIBaseURL, DefaultModel: DefaultOpenAIModel, Timeout: 60 * time.Second},
		models.VariantDeepSeek: {BaseURL: DefaultDeepSeekBaseURL, DefaultModel: DefaultDeepSeekModel, Timeout: 60 * time.Second},
	}
}

// Factory builds providers from per-user configuration.
// Limiters live on the factory so every request for a variant shares one budget.
type Factory struct {
	opts     Options
	limiters map[models.RemoteVariant]*rpsLimiter
}

func NewFactory(opts Options) *Factory {
	if opts.Remotes == nil {
		opts.Remotes = DefaultRemotes()
	}
	limiters := make(map[models.RemoteVariant]*rpsLimiter, len(opts.Remotes))
	for variant, ro := range opts.Remotes {
		limiters[variant] = newRPSLimiter(ro.RPS, ro.Burst)
	}
	return &Factory{opts: opts, limiters: limiters}
}

// New returns the provider described by cfg.
func (f *Factory) New(ctx context.Context, cfg models.ProviderConfig) (Provider, error) {
	if cfg.Kind != models.KindRemoteAPI {
		model := cfg.ModelName
		if model == "" {
			model = f.opts.OllamaModel
		}
		return NewOllamaProvider(f.opts.OllamaHost, model, f.opts.MaxPromptLength)
	}

	ro, ok := f.opts.Remotes[cfg.Variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Variant)
	}
	limiter := f.limiters[cfg.Variant]

	switch cfg.Variant {
	case models.VariantGemini:
		p, err := NewGeminiProvider(ctx, cfg.Credential, ro.BaseURL, cfg.ModelName, limiter)
		if err != nil {
			return nil, fmt.Errorf("create Gemini client: %w", err)
		}
		return p, nil
	case models.VariantOpenAI:
		return NewChatProvider("OpenAI", ro.BaseURL, cfg.Credential, cfg.ModelName, knownGood(ro, DefaultOpenAIModel), ro.Timeout, limiter), nil
	case models.VariantDeepSeek:
		return NewChatProvider("DeepSeek", ro.BaseURL, cfg.Credential, cfg.ModelName, knownGood(ro, DefaultDeepSeekModel), ro.Timeout, limiter), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Variant)
	}
}

func knownGood(ro RemoteOptions, fallback string) string {
	if ro.DefaultModel != "" {
		return ro.DefaultModel
	}
	return fallback
}
