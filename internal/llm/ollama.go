package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/JexSrs/go-ollama"
	"github.com/sirupsen/logrus"

	"unityarchitect/internal/models"
)

// DefaultOllamaModel is used when a user has not configured a local model.
const DefaultOllamaModel = "qwen2.5-coder:7b"

// OllamaProvider talks to a local Ollama server through the Generate endpoint.
type OllamaProvider struct {
	client       *ollama.Ollama
	model        string
	maxPromptLen int
}

// NewOllamaProvider creates a provider for host. maxPromptLen <= 0 disables truncation.
func NewOllamaProvider(host, model string, maxPromptLen int) (*OllamaProvider, error) {
	ollamaURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	if ollamaURL.Scheme == "" || ollamaURL.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL %q: scheme and host are required", host)
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	logrus.Debugf("Using Ollama host %s with model %s", host, model)

	return &OllamaProvider{
		client:       ollama.New(*ollamaURL),
		model:        model,
		maxPromptLen: maxPromptLen,
	}, nil
}

func (p *OllamaProvider) Name() string              { return "Ollama:" + p.model }
func (p *OllamaProvider) Kind() models.ProviderKind { return models.KindLocalModel }
func (p *OllamaProvider) Policy() AttemptPolicy     { return LocalPolicy }

type generateResult struct {
	text string
	err  error
}

// Call runs a single non-streaming Generate request. The client has no context
// support, so the request runs in its own goroutine and Call returns as soon as
// ctx is done; the buffered channel lets the goroutine finish without a reader.
func (p *OllamaProvider) Call(ctx context.Context, prompt string) (string, error) {
	prompt = truncatePrompt(prompt, p.maxPromptLen)

	done := make(chan generateResult, 1)
	go func() {
		res, err := p.client.Generate(
			p.client.Generate.WithModel(p.model),
			p.client.Generate.WithPrompt(prompt),
		)
		if err != nil {
			done <- generateResult{err: err}
			return
		}
		if !res.Done {
			done <- generateResult{err: errors.New("request did not complete (unexpected streaming behaviour)")}
			return
		}
		done <- generateResult{text: res.Response}
	}()

	select {
	case <-ctx.Done():
		return "", transportError(p.Name(), ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", transportError(p.Name(), r.err)
		}
		text := CleanResponse(r.text)
		if text == "" {
			return "", transportError(p.Name(), ErrEmptyResponse)
		}
		logrus.Debug("Response received from Ollama.")
		return text, nil
	}
}

func truncatePrompt(prompt string, maxLen int) string {
	if maxLen <= 0 || len(prompt) <= maxLen {
		return prompt
	}
	logrus.Warnf("Prompt is being truncated from %d to %d characters.", len(prompt), maxLen)
	return strings.ToValidUTF8(prompt[:maxLen], "")
}
