package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"unityarchitect/internal/models"
)

const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"
	DefaultDeepSeekModel   = "deepseek-chat"

	chatTemperature = 0.3
)

// ChatProvider calls an OpenAI-compatible Chat Completions endpoint.
// OpenAI and DeepSeek share it with different base URLs.
type ChatProvider struct {
	http      *http.Client
	label     string
	apiKey    string
	model     string
	knownGood string
	endpoint  string
	limiter   *rpsLimiter
}

// NewChatProvider builds a provider for baseURL (without the /chat/completions suffix).
func NewChatProvider(label, baseURL, apiKey, model, knownGood string, timeout time.Duration, limiter *rpsLimiter) *ChatProvider {
	if model == "" {
		model = knownGood
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatProvider{
		http:      &http.Client{Timeout: timeout},
		label:     label,
		apiKey:    apiKey,
		model:     model,
		knownGood: knownGood,
		endpoint:  strings.TrimRight(baseURL, "/") + "/chat/completions",
		limiter:   limiter,
	}
}

func (c *ChatProvider) Name() string              { return c.label + ":" + c.model }
func (c *ChatProvider) Kind() models.ProviderKind { return models.KindRemoteAPI }
func (c *ChatProvider) Policy() AttemptPolicy     { return RemotePolicy }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatProvider) Call(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return "", transportError(c.Name(), err)
	}

	b, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: chatTemperature,
	})
	if err != nil {
		return "", transportError(c.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", transportError(c.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportError(c.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		statusErr := fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return "", quotaError(c.Name(), statusErr)
		case http.StatusNotFound:
			return "", modelNotFoundError(c.Name(), c.model, c.knownGood, statusErr)
		default:
			return "", transportError(c.Name(), statusErr)
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportError(c.Name(), fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return EmptyAnswerNotice, nil
	}
	text := CleanResponse(out.Choices[0].Message.Content)
	if text == "" {
		return EmptyAnswerNotice, nil
	}
	return text, nil
}
