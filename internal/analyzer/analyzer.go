// Package analyzer is a line-oriented static scan for Unity C# anti-patterns.
// It does not parse C#; every rule is a textual heuristic.
package analyzer

import (
	"strings"

	"unityarchitect/internal/models"

	"github.com/sirupsen/logrus"
)

// Scanner produces an AnalysisResult for a script.
type Scanner interface {
	Analyze(code string) models.AnalysisResult
}

// Analyzer runs the four detection passes over a script.
type Analyzer struct {
	lib         *Library
	newBoundary BoundaryFactory
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithBoundary replaces the scope boundary strategy.
func WithBoundary(factory BoundaryFactory) Option {
	return func(a *Analyzer) {
		if factory != nil {
			a.newBoundary = factory
		}
	}
}

// WithLibrary replaces the pattern library.
func WithLibrary(lib *Library) Option {
	return func(a *Analyzer) {
		if lib != nil {
			a.lib = lib
		}
	}
}

// New returns an Analyzer using DefaultLibrary and the first-closer boundary.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{lib: DefaultLibrary, newBoundary: NewFirstCloser}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = New()

// Analyze scans code with the default Analyzer.
func Analyze(code string) models.AnalysisResult {
	return defaultAnalyzer.Analyze(code)
}

// Analyze runs the hot-loop, tag comparison, physics input and camera passes in
// that order and concatenates their findings.
func (a *Analyzer) Analyze(code string) models.AnalysisResult {
	lines := strings.Split(code, "\n")

	findings := make([]models.Finding, 0)
	findings = append(findings, a.scopedPass(lines, a.lib.HotLoop)...)
	findings = append(findings, a.unscopedPass(lines, a.lib.TagComparison)...)
	findings = append(findings, a.scopedPass(lines, a.lib.PhysicsInput)...)
	findings = append(findings, a.documentPass(code)...)

	result := models.AnalysisResult{
		Findings: findings,
		Stats: models.Stats{
			TotalLines:      len(lines),
			PrimaryTypeName: extractClassName(code),
			HasPrimaryLoop:  perFrameReference.MatchString(code),
		},
	}
	logrus.Debugf("Static analysis: %d lines, %d findings", result.Stats.TotalLines, len(findings))
	return result
}

// scopedPass reports every rule match on non-comment lines inside the group's block.
func (a *Analyzer) scopedPass(lines []string, group RuleGroup) []models.Finding {
	var findings []models.Finding
	tracker := NewTracker(a.newBoundary(group.Scope))
	for i, line := range lines {
		tracker.Enter(line)
		if tracker.Inside() && !isCommented(line) {
			for _, rule := range group.Rules {
				if rule.Pattern.MatchString(line) {
					findings = append(findings, models.Finding{
						Line:     models.LineRef(i + 1),
						Category: rule.Category,
						Message:  rule.Message,
					})
				}
			}
		}
		tracker.Leave(line)
	}
	return findings
}

// unscopedPass reports at most one finding per non-comment line: the first rule that matches.
func (a *Analyzer) unscopedPass(lines []string, group RuleGroup) []models.Finding {
	var findings []models.Finding
	for i, line := range lines {
		if isCommented(line) {
			continue
		}
		for _, rule := range group.Rules {
			if rule.Pattern.MatchString(line) {
				findings = append(findings, models.Finding{
					Line:     models.LineRef(i + 1),
					Category: rule.Category,
					Message:  rule.Message,
				})
				break
			}
		}
	}
	return findings
}

func (a *Analyzer) documentPass(code string) []models.Finding {
	rule := a.lib.CameraAccess
	if rule.Pattern.MatchString(code) && perFrameReference.MatchString(code) {
		return []models.Finding{{Line: models.WholeDocument, Category: rule.Category, Message: rule.Message}}
	}
	return nil
}

func isCommented(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*")
}

func extractClassName(code string) string {
	m := classDeclaration.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}
