// Package validator checks generated answers against the structural task contract.
package validator

import (
	"regexp"
	"strings"

	"unityarchitect/internal/analyzer"
	"unityarchitect/internal/models"
)

const (
	codeFence = "```csharp"

	IssueMissingCodeBlock = "The ```csharp code block is missing."
	IssueTruncatedCode    = "The code was left incomplete (ellipsis used). Write the complete code."
	IssueInputInFixed     = "FixedUpdate still polls Input. Move input detection to Update."
)

var (
	codeBlocks    = regexp.MustCompile("(?s)```csharp(.*?)```")
	elisionTokens = []string{"...", "// .."}
)

// Validate runs every check independently; the verdict is accepted when none fails.
func Validate(response string) models.ValidationVerdict {
	issues := make([]string, 0)

	if !strings.Contains(response, codeFence) {
		issues = append(issues, IssueMissingCodeBlock)
	}

	for _, token := range elisionTokens {
		if strings.Contains(response, token) {
			issues = append(issues, IssueTruncatedCode)
			break
		}
	}

	for _, m := range codeBlocks.FindAllStringSubmatch(response, -1) {
		block := m[1]
		if strings.Contains(block, analyzer.FixedStepMethodName) && analyzer.InputPolling.MatchString(block) {
			issues = append(issues, IssueInputInFixed)
		}
	}

	return models.ValidationVerdict{Accepted: len(issues) == 0, Issues: issues}
}
