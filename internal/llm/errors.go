package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyResponse       = errors.New("empty response from model")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// ErrorKind separates failures the user can act on from plain transport errors.
type ErrorKind int

const (
	ErrKindTransport ErrorKind = iota
	ErrKindQuota
	ErrKindModelNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindQuota:
		return "quota"
	case ErrKindModelNotFound:
		return "model_not_found"
	default:
		return "transport"
	}
}

// ProviderError is the single error channel of every backend.
// Advisory is set for quota and model-not-found failures; the caller shows it
// to the user in place of an answer.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Cause    string
	Advisory string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Recoverable reports whether the failure maps to a user-facing advisory.
func (e *ProviderError) Recoverable() bool { return e.Advisory != "" }

const (
	QuotaAdvisory = "SYSTEM MESSAGE: The remote API quota limit has been reached. " +
		"Please wait 60 seconds and try again, or switch to Ollama (local) mode."
	EmptyAnswerNotice = "The AI produced a response but its content came back empty."
)

// ModelNotFoundAdvisory names the known-good default model for the backend.
func ModelNotFoundAdvisory(model, knownGood string) string {
	return fmt.Sprintf("SYSTEM MESSAGE: Model '%s' was not found. Enter '%s' in Settings and try again.", model, knownGood)
}

func transportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrKindTransport, Cause: err.Error(), Err: err}
}

func quotaError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrKindQuota, Cause: err.Error(), Advisory: QuotaAdvisory, Err: err}
}

func modelNotFoundError(provider, model, knownGood string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     ErrKindModelNotFound,
		Cause:    err.Error(),
		Advisory: ModelNotFoundAdvisory(model, knownGood),
		Err:      err,
	}
}

// classifyRemoteMessage recognises quota and not-found signatures in an error message.
func classifyRemoteMessage(msg string) ErrorKind {
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return ErrKindQuota
	case strings.Contains(msg, "404") || strings.Contains(msg, "NOT_FOUND"):
		return ErrKindModelNotFound
	default:
		return ErrKindTransport
	}
}
