package prompt

import (
	"fmt"
	"strings"

	"unityarchitect/internal/models"
)

// Input is everything the assembler combines into one analysis prompt.
type Input struct {
	Kind   models.ProviderKind
	Locale string
	Code   string
	Result models.AnalysisResult
}

// Assemble builds the analysis prompt: system persona, language directive,
// provider rules, then the task template filled with code and findings.
func Assemble(c *Corpus, in Input) (string, error) {
	var body strings.Builder
	err := c.analysis.Execute(&body, struct {
		Code     string
		Findings []models.Finding
	}{Code: in.Code, Findings: in.Result.Findings})
	if err != nil {
		return "", fmt.Errorf("failed to render analysis template: %w", err)
	}

	parts := []string{
		strings.TrimSpace(c.System),
		c.Directive(in.Locale),
		strings.TrimSpace(c.Rules(in.Kind)),
		body.String(),
	}
	return strings.Join(parts, "\n\n"), nil
}

// Correct prepends the corrective instruction naming issues to an existing prompt.
func Correct(c *Corpus, previous string, issues []string) (string, error) {
	var head strings.Builder
	if err := c.correction.Execute(&head, struct{ Issues []string }{issues}); err != nil {
		return "", fmt.Errorf("failed to render correction template: %w", err)
	}
	return head.String() + "\n" + previous, nil
}
