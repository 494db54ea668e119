package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"unityarchitect/internal/llm"
	"unityarchitect/internal/models"
	"unityarchitect/internal/prompt"
	"unityarchitect/internal/validator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const playerScript = `using UnityEngine;

public class PlayerController : MonoBehaviour
{
    void Update()
    {
        var rb = GetComponent<Rigidbody>();
    }
}`

const acceptedAnswer = "## Summary\nCache the component.\n```csharp\nusing UnityEngine;\npublic class PlayerController : MonoBehaviour { Rigidbody rb; void Awake() { rb = GetComponent<Rigidbody>(); } }\n```"

const rejectedAnswer = "Just cache the Rigidbody in Awake."

type fakeProvider struct {
	kind    models.ProviderKind
	policy  llm.AttemptPolicy
	answers []string
	err     error
	block   bool

	mu      sync.Mutex
	prompts []string
}

func (p *fakeProvider) Name() string              { return "fake" }
func (p *fakeProvider) Kind() models.ProviderKind { return p.kind }
func (p *fakeProvider) Policy() llm.AttemptPolicy { return p.policy }

func (p *fakeProvider) Call(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	n := len(p.prompts)
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return "", &llm.ProviderError{Provider: "fake", Kind: llm.ErrKindTransport, Cause: ctx.Err().Error(), Err: ctx.Err()}
	}
	if p.err != nil {
		return "", p.err
	}
	return p.answers[min(n, len(p.answers))-1], nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

func localProvider(answers ...string) *fakeProvider {
	return &fakeProvider{kind: models.KindLocalModel, policy: llm.LocalPolicy, answers: answers}
}

func remoteProvider(answers ...string) *fakeProvider {
	return &fakeProvider{kind: models.KindRemoteAPI, policy: llm.RemotePolicy, answers: answers}
}

type fakeFactory struct {
	provider *fakeProvider
	err      error

	mu      sync.Mutex
	created int
}

func (f *fakeFactory) New(context.Context, models.ProviderConfig) (llm.Provider, error) {
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

type fakeConfigs struct {
	err error
}

func (c fakeConfigs) ProviderConfig(context.Context, string) (models.ProviderConfig, error) {
	return models.ProviderConfig{Kind: models.KindLocalModel}, c.err
}

type fakeSink struct {
	err     error
	release chan struct{}

	mu       sync.Mutex
	sessions []models.Session
	ctxErrs  []error
}

func (s *fakeSink) SaveSession(ctx context.Context, session models.Session) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

func (s *fakeSink) saved() []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Session(nil), s.sessions...)
}

func newEngine(p *fakeProvider, sink *fakeSink, opts ...Option) (*Engine, *fakeFactory) {
	f := &fakeFactory{provider: p}
	if sink != nil {
		opts = append(opts, WithSink(sink))
	}
	return New(fakeConfigs{}, f, opts...), f
}

func TestRun_CannedReplies(t *testing.T) {
	testCases := []struct {
		name   string
		code   string
		locale string
		opts   []Option
		intent models.Intent
		title  string
		reply  string
	}{
		{
			name:   "greeting",
			code:   "hello there",
			intent: models.IntentGreeting,
			title:  ChatTitle,
			reply:  prompt.Default().Reply(models.IntentGreeting, "en"),
		},
		{
			name:   "greeting in turkish",
			code:   "selam",
			locale: "tr",
			intent: models.IntentGreeting,
			title:  ChatTitle,
			reply:  prompt.Default().Reply(models.IntentGreeting, "tr"),
		},
		{
			name:   "foreign engine wins over greeting",
			code:   "hello, how do I move a node in godot?",
			intent: models.IntentOutOfScope,
			title:  OutOfScopeTitle,
			reply:  prompt.Default().Reply(models.IntentOutOfScope, "en"),
		},
		{
			name:   "prose demoted to greeting",
			code:   "please review the overall architecture of my inventory system and tell me what to improve",
			intent: models.IntentGreeting,
			title:  ChatTitle,
			reply:  prompt.Default().Reply(models.IntentGreeting, "en"),
		},
		{
			name:   "prose demoted to out of scope when strict",
			code:   "please review the overall architecture of my inventory system and tell me what to improve",
			opts:   []Option{WithStrictIntent(true)},
			intent: models.IntentOutOfScope,
			title:  OutOfScopeTitle,
			reply:  prompt.Default().Reply(models.IntentOutOfScope, "en"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := localProvider(acceptedAnswer)
			sink := &fakeSink{}
			e, f := newEngine(p, sink, tc.opts...)

			resp, err := e.Run(context.Background(), models.AnalyzeRequest{UserID: "u1", Code: tc.code, Locale: tc.locale})
			require.NoError(t, err)

			assert.Equal(t, tc.intent, resp.Intent)
			assert.Equal(t, tc.title, resp.Title)
			assert.Equal(t, tc.reply, resp.AISuggestion)
			assert.Equal(t, 0, resp.Attempts)
			assert.Empty(t, resp.StaticResults.Findings)
			assert.Equal(t, 0, f.created)
			assert.Equal(t, 0, p.calls())
			e.Wait()
			saved := sink.saved()
			require.Len(t, saved, 1)
			assert.Equal(t, tc.intent, saved[0].Intent)
		})
	}
}

func TestRun_EmptyInput(t *testing.T) {
	sink := &fakeSink{}
	e, _ := newEngine(localProvider(acceptedAnswer), sink)

	_, err := e.Run(context.Background(), models.AnalyzeRequest{Code: "  \n"})
	assert.ErrorIs(t, err, ErrEmptyInput)
	e.Wait()
	assert.Empty(t, sink.saved())
}

func TestRun_LocalAcceptedFirstTry(t *testing.T) {
	p := localProvider(acceptedAnswer)
	sink := &fakeSink{}
	e, _ := newEngine(p, sink)

	resp, err := e.Run(context.Background(), models.AnalyzeRequest{UserID: "u1", Code: playerScript})
	require.NoError(t, err)

	assert.Equal(t, models.IntentAnalysis, resp.Intent)
	assert.Equal(t, "PlayerController", resp.Title)
	assert.Equal(t, acceptedAnswer, resp.AISuggestion)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, 1, p.calls())
	require.NotNil(t, resp.Verdict)
	assert.True(t, resp.Verdict.Accepted)

	require.Len(t, resp.StaticResults.Findings, 1)
	assert.Equal(t, models.CategoryPerformance, resp.StaticResults.Findings[0].Category)
	assert.Contains(t, p.prompts[0], playerScript)
	assert.Contains(t, p.prompts[0], resp.StaticResults.Findings[0].Message)

	_, err = uuid.Parse(resp.SessionID)
	assert.NoError(t, err)

	e.Wait()
	saved := sink.saved()
	require.Len(t, saved, 1)
	s := saved[0]
	assert.Equal(t, resp.SessionID, s.ID)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, "PlayerController", s.Title)
	assert.Equal(t, playerScript, s.SourceText)
	assert.Equal(t, acceptedAnswer, s.FinalText)
	assert.Equal(t, resp.StaticResults.Findings, s.Findings)
}

func TestRun_LocalRetriesThenAccepts(t *testing.T) {
	p := localProvider(rejectedAnswer, acceptedAnswer)
	e, _ := newEngine(p, &fakeSink{})

	resp, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
	require.NoError(t, err)

	assert.Equal(t, 2, p.calls())
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, acceptedAnswer, resp.AISuggestion)
	assert.Equal(t, StatusSuccess, resp.Status)

	// The correction is prepended to the original prompt and names the issue.
	assert.True(t, len(p.prompts[1]) > len(p.prompts[0]))
	assert.Contains(t, p.prompts[1], p.prompts[0])
	assert.Contains(t, p.prompts[1], validator.IssueMissingCodeBlock)
	assert.NotContains(t, p.prompts[0], validator.IssueMissingCodeBlock)
}

func TestRun_LocalGivesUpAfterTwoAttempts(t *testing.T) {
	p := localProvider(rejectedAnswer, "still no code block")
	sink := &fakeSink{}
	e, _ := newEngine(p, sink)

	resp, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
	require.NoError(t, err)

	assert.Equal(t, 2, p.calls())
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, "still no code block", resp.AISuggestion)
	assert.Equal(t, StatusUnvalidated, resp.Status)
	require.NotNil(t, resp.Verdict)
	assert.False(t, resp.Verdict.Accepted)
	e.Wait()
	saved := sink.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "still no code block", saved[0].FinalText)
}

func TestRun_RemoteSingleCall(t *testing.T) {
	for _, answer := range []string{acceptedAnswer, rejectedAnswer} {
		p := remoteProvider(answer)
		e, _ := newEngine(p, &fakeSink{})

		resp, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
		require.NoError(t, err)
		assert.Equal(t, 1, p.calls())
		assert.Equal(t, 1, resp.Attempts)
		assert.Equal(t, answer, resp.AISuggestion)
	}
}

func TestRun_AdvisoryBecomesAnswer(t *testing.T) {
	p := remoteProvider()
	p.err = &llm.ProviderError{
		Provider: "fake",
		Kind:     llm.ErrKindQuota,
		Cause:    "429",
		Advisory: llm.QuotaAdvisory,
		Err:      errors.New("429"),
	}
	sink := &fakeSink{}
	e, _ := newEngine(p, sink)

	resp, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
	require.NoError(t, err)
	assert.Equal(t, llm.QuotaAdvisory, resp.AISuggestion)
	assert.Equal(t, StatusAdvisory, resp.Status)
	assert.Nil(t, resp.Verdict)
	assert.NotEmpty(t, resp.StaticResults.Findings)
	e.Wait()
	assert.Len(t, sink.saved(), 1)
}

func TestRun_TransportFailureIsTerminal(t *testing.T) {
	p := localProvider()
	p.err = &llm.ProviderError{Provider: "fake", Kind: llm.ErrKindTransport, Cause: "connection refused", Err: errors.New("connection refused")}
	sink := &fakeSink{}
	e, _ := newEngine(p, sink)

	_, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
	require.Error(t, err)
	var perr *llm.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, p.calls())
	e.Wait()
	assert.Empty(t, sink.saved())
}

func TestRun_CancelledContext(t *testing.T) {
	p := localProvider()
	p.block = true
	sink := &fakeSink{}
	e, _ := newEngine(p, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, models.AnalyzeRequest{Code: playerScript})
	assert.ErrorIs(t, err, context.Canceled)
	e.Wait()
	assert.Empty(t, sink.saved())
}

func TestRun_SinkFailureKeepsResponse(t *testing.T) {
	sink := &fakeSink{err: errors.New("disk full")}
	e, _ := newEngine(localProvider(acceptedAnswer), sink)

	resp, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
	require.NoError(t, err)
	assert.Equal(t, acceptedAnswer, resp.AISuggestion)
	e.Wait()
	assert.Len(t, sink.saved(), 1)
}

func TestRun_SlowSinkDoesNotDelayResponse(t *testing.T) {
	sink := &fakeSink{release: make(chan struct{})}
	e, _ := newEngine(localProvider(acceptedAnswer), sink)

	ctx, cancel := context.WithCancel(context.Background())
	resp, err := e.Run(ctx, models.AnalyzeRequest{UserID: "u1", Code: playerScript})
	require.NoError(t, err)
	assert.Equal(t, acceptedAnswer, resp.AISuggestion)
	assert.Empty(t, sink.saved())

	// The write outlives the request context.
	cancel()
	close(sink.release)
	e.Wait()

	saved := sink.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, resp.SessionID, saved[0].ID)
	assert.NoError(t, sink.ctxErrs[0])
}

func TestRun_ConfigAndFactoryErrors(t *testing.T) {
	p := localProvider(acceptedAnswer)

	e := New(fakeConfigs{err: errors.New("db down")}, &fakeFactory{provider: p})
	_, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
	assert.ErrorContains(t, err, "db down")

	e = New(fakeConfigs{}, &fakeFactory{err: llm.ErrUnsupportedProvider})
	_, err = e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
	assert.ErrorIs(t, err, llm.ErrUnsupportedProvider)
	assert.Equal(t, 0, p.calls())
}

func TestRun_ConcurrentRequests(t *testing.T) {
	p := localProvider(acceptedAnswer)
	e, _ := newEngine(p, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := e.Run(context.Background(), models.AnalyzeRequest{Code: playerScript})
			assert.NoError(t, err)
			assert.Equal(t, StatusSuccess, resp.Status)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, p.calls())
}
