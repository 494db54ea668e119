package models

import "time"

// Intent is what the caller actually wants from a submitted text.
type Intent string

const (
	IntentGreeting   Intent = "GREETING"
	IntentOutOfScope Intent = "OUT_OF_SCOPE"
	IntentAnalysis   Intent = "ANALYSIS"
)

// ValidationVerdict is the structural check result for one generated answer.
type ValidationVerdict struct {
	Accepted bool     `json:"accepted"`
	Issues   []string `json:"issues,omitempty"`
}

// AnalyzeRequest is one user submission.
type AnalyzeRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
	Locale string `json:"language"`
}

// AnalyzeResponse is returned to the caller once the loop is done.
type AnalyzeResponse struct {
	SessionID     string             `json:"session_id"`
	Intent        Intent             `json:"intent"`
	Title         string             `json:"title"`
	StaticResults AnalysisResult     `json:"static_results"`
	AISuggestion  string             `json:"ai_suggestion"`
	Attempts      int                `json:"attempts"`
	Verdict       *ValidationVerdict `json:"verdict,omitempty"`
	Status        string             `json:"status"`
}

// Session is the record handed to the persistence sink.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	Title      string    `json:"title"`
	Intent     Intent    `json:"intent"`
	SourceText string    `json:"original_code"`
	FinalText  string    `json:"ai_suggestion"`
	Findings   []Finding `json:"smells"`
}

// SessionSummary is a history list entry.
type SessionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Intent    Intent    `json:"intent"`
}
