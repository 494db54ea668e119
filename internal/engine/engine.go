// Package engine runs one review request from classification to the final answer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"unityarchitect/internal/analyzer"
	"unityarchitect/internal/intent"
	"unityarchitect/internal/llm"
	"unityarchitect/internal/models"
	"unityarchitect/internal/prompt"
	"unityarchitect/internal/validator"
)

// ErrEmptyInput is returned when the submitted text is blank.
var ErrEmptyInput = errors.New("no code provided")

const (
	StatusSuccess     = "success"
	StatusUnvalidated = "unvalidated"
	StatusAdvisory    = "advisory"

	ChatTitle       = "Chat"
	OutOfScopeTitle = "Out of scope"
)

// ConfigSource returns the provider settings of a user.
type ConfigSource interface {
	ProviderConfig(ctx context.Context, userID string) (models.ProviderConfig, error)
}

// Sink durably records finished sessions.
type Sink interface {
	SaveSession(ctx context.Context, s models.Session) error
}

// ProviderFactory builds a provider for one request.
type ProviderFactory interface {
	New(ctx context.Context, cfg models.ProviderConfig) (llm.Provider, error)
}

// Engine orchestrates classification, static analysis and the provider loop.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	configs       ConfigSource
	providers     ProviderFactory
	sink          Sink
	scanner       analyzer.Scanner
	corpus        *prompt.Corpus
	strictIntent  bool
	defaultLocale string

	pending sync.WaitGroup
}

type Option func(*Engine)

func WithSink(s Sink) Option { return func(e *Engine) { e.sink = s } }

func WithScanner(s analyzer.Scanner) Option { return func(e *Engine) { e.scanner = s } }

func WithCorpus(c *prompt.Corpus) Option { return func(e *Engine) { e.corpus = c } }

// WithStrictIntent demotes non-code "analysis" requests to OutOfScope instead of Greeting.
func WithStrictIntent(strict bool) Option { return func(e *Engine) { e.strictIntent = strict } }

// WithDefaultLocale sets the locale used when a request names none.
func WithDefaultLocale(locale string) Option { return func(e *Engine) { e.defaultLocale = locale } }

// New creates an Engine.
func New(configs ConfigSource, providers ProviderFactory, opts ...Option) *Engine {
	e := &Engine{configs: configs, providers: providers}
	for _, opt := range opts {
		opt(e)
	}
	if e.scanner == nil {
		e.scanner = analyzer.New()
	}
	if e.corpus == nil {
		e.corpus = prompt.Default()
	}
	if e.defaultLocale == "" {
		e.defaultLocale = e.corpus.FallbackLocale
	}
	return e
}

// Run handles one request. A transport failure of the provider or a cancelled
// context returns an error and nothing is persisted.
func (e *Engine) Run(ctx context.Context, req models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	if strings.TrimSpace(req.Code) == "" {
		return models.AnalyzeResponse{}, ErrEmptyInput
	}
	locale := req.Locale
	if locale == "" {
		locale = e.defaultLocale
	}

	resp := models.AnalyzeResponse{
		SessionID:     uuid.NewString(),
		Intent:        intent.Resolve(req.Code, e.strictIntent),
		StaticResults: models.AnalysisResult{Findings: []models.Finding{}},
		Status:        StatusSuccess,
	}
	log := logrus.WithFields(logrus.Fields{"session": resp.SessionID, "user": req.UserID, "intent": resp.Intent})

	switch resp.Intent {
	case models.IntentGreeting:
		resp.Title = ChatTitle
		resp.AISuggestion = e.corpus.Reply(resp.Intent, locale)
	case models.IntentOutOfScope:
		resp.Title = OutOfScopeTitle
		resp.AISuggestion = e.corpus.Reply(resp.Intent, locale)
	default:
		if err := e.review(ctx, log, req, locale, &resp); err != nil {
			return models.AnalyzeResponse{}, err
		}
	}

	e.persist(ctx, log, req, resp)
	return resp, nil
}

// review runs static analysis and the provider loop for an Analysis request.
func (e *Engine) review(ctx context.Context, log *logrus.Entry, req models.AnalyzeRequest, locale string, resp *models.AnalyzeResponse) error {
	cfg, err := e.configs.ProviderConfig(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("failed to load provider config: %w", err)
	}
	provider, err := e.providers.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create provider %s: %w", cfg, err)
	}
	log = log.WithField("provider", provider.Name())

	result := e.scanner.Analyze(req.Code)
	resp.StaticResults = result
	resp.Title = result.Title()
	log.Infof("Static analysis found %d findings in %d lines", len(result.Findings), result.Stats.TotalLines)

	current, err := prompt.Assemble(e.corpus, prompt.Input{
		Kind:   provider.Kind(),
		Locale: locale,
		Code:   req.Code,
		Result: result,
	})
	if err != nil {
		return fmt.Errorf("failed to assemble prompt: %w", err)
	}

	policy := provider.Policy()
	maxAttempts := max(policy.MaxAttempts, 1)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		alog := log.WithField("attempt", attempt)
		alog.Debugf("Sending prompt of %d characters", len(current))

		text, err := provider.Call(ctx, current)
		resp.Attempts = attempt
		if err != nil {
			var perr *llm.ProviderError
			if errors.As(err, &perr) && perr.Recoverable() {
				alog.WithField("kind", perr.Kind).Warnf("Provider returned an advisory: %s", perr.Cause)
				resp.AISuggestion = perr.Advisory
				resp.Status = StatusAdvisory
				return nil
			}
			return fmt.Errorf("provider call failed: %w", err)
		}

		verdict := validator.Validate(text)
		resp.AISuggestion = text
		resp.Verdict = &verdict
		if verdict.Accepted {
			resp.Status = StatusSuccess
			alog.Info("Answer accepted")
			return nil
		}
		resp.Status = StatusUnvalidated
		alog.Warnf("Answer rejected: %s", strings.Join(verdict.Issues, "; "))

		if !policy.RetryOnReject || attempt == maxAttempts {
			break
		}
		current, err = prompt.Correct(e.corpus, current, verdict.Issues)
		if err != nil {
			return fmt.Errorf("failed to build correction prompt: %w", err)
		}
	}

	log.Warnf("Returning the last answer after %d attempts", resp.Attempts)
	return nil
}

// persist writes the finished session to the sink in the background.
// Failures are logged only.
func (e *Engine) persist(ctx context.Context, log *logrus.Entry, req models.AnalyzeRequest, resp models.AnalyzeResponse) {
	if e.sink == nil {
		return
	}
	session := models.Session{
		ID:         resp.SessionID,
		UserID:     req.UserID,
		CreatedAt:  time.Now().UTC(),
		Title:      resp.Title,
		Intent:     resp.Intent,
		SourceText: req.Code,
		FinalText:  resp.AISuggestion,
		Findings:   resp.StaticResults.Findings,
	}
	saveCtx := context.WithoutCancel(ctx)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		if err := e.sink.SaveSession(saveCtx, session); err != nil {
			log.WithError(err).Error("Failed to save session")
		}
	}()
}

// Wait blocks until every session handed to the sink has been written.
// Call it before closing the sink.
func (e *Engine) Wait() {
	e.pending.Wait()
}
