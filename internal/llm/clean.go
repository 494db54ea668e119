package llm

import (
	"regexp"
	"strings"
)

var reasoningTrace = regexp.MustCompile(`(?s)<think>.*?</think>`)

// CleanResponse removes every <think>...</think> span and trims the result.
// Everything outside the spans is left untouched.
func CleanResponse(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(reasoningTrace.ReplaceAllString(text, ""))
}
