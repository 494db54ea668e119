package llm

import (
	"context"
	"strings"

	genai "google.golang.org/genai"

	"unityarchitect/internal/models"
)

// DefaultGeminiModel is the known-good model suggested when a name is rejected.
const DefaultGeminiModel = "gemini-1.5-flash"

var geminiAliases = []struct{ alias, full string }{
	{"1.5-flash", "gemini-1.5-flash"},
	{"2.0-flash", "gemini-2.0-flash"},
	{"3-flash", "gemini-3-flash-preview"},
}

// NormalizeGeminiModel expands the short names users tend to type in settings.
func NormalizeGeminiModel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultGeminiModel
	}
	for _, a := range geminiAliases {
		if strings.Contains(name, a.alias) {
			return a.full
		}
	}
	return name
}

// GeminiProvider wraps the official genai client.
type GeminiProvider struct {
	cli     *genai.Client
	model   string
	limiter *rpsLimiter
}

// NewGeminiProvider builds a client for the Gemini API. baseURL is optional.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL, model string, limiter *rpsLimiter) (*GeminiProvider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{cli: cli, model: NormalizeGeminiModel(model), limiter: limiter}, nil
}

func (g *GeminiProvider) Name() string              { return "Gemini:" + g.model }
func (g *GeminiProvider) Kind() models.ProviderKind { return models.KindRemoteAPI }
func (g *GeminiProvider) Policy() AttemptPolicy     { return RemotePolicy }

func (g *GeminiProvider) Call(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Acquire(ctx); err != nil {
		return "", transportError(g.Name(), err)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", g.classify(err)
	}

	text := CleanResponse(geminiText(resp))
	if text == "" {
		return EmptyAnswerNotice, nil
	}
	return text, nil
}

func (g *GeminiProvider) classify(err error) error {
	switch classifyRemoteMessage(err.Error()) {
	case ErrKindQuota:
		return quotaError(g.Name(), err)
	case ErrKindModelNotFound:
		return modelNotFoundError(g.Name(), g.model, DefaultGeminiModel, err)
	default:
		return transportError(g.Name(), err)
	}
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
