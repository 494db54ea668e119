package models

import (
	"encoding/json"
	"fmt"
)

// Category classifies a finding.
type Category string

const (
	CategoryPerformance  Category = "Performance"
	CategoryOptimization Category = "Optimization"
	CategoryLogicError   Category = "LogicError"
	CategoryArchitecture Category = "Architecture"
)

// LineRef is a 1-based line number, or WholeDocument when a finding is not tied to a line.
type LineRef int

// WholeDocument marks a finding that applies to the entire script.
const WholeDocument LineRef = 0

const wholeDocumentJSON = "document"

// IsWholeDocument reports whether the reference points at no specific line.
func (l LineRef) IsWholeDocument() bool { return l == WholeDocument }

func (l LineRef) String() string {
	if l.IsWholeDocument() {
		return wholeDocumentJSON
	}
	return fmt.Sprintf("%d", int(l))
}

func (l LineRef) MarshalJSON() ([]byte, error) {
	if l.IsWholeDocument() {
		return json.Marshal(wholeDocumentJSON)
	}
	return json.Marshal(int(l))
}

func (l *LineRef) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = LineRef(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("line reference must be a number or %q: %w", wholeDocumentJSON, err)
	}
	if s != wholeDocumentJSON {
		return fmt.Errorf("unknown line reference %q", s)
	}
	*l = WholeDocument
	return nil
}

// Finding is one anti-pattern occurrence reported by the static analyzer.
type Finding struct {
	Line     LineRef  `json:"line"`
	Category Category `json:"type"`
	Message  string   `json:"msg"`
}

// Stats summarises the scanned script.
type Stats struct {
	TotalLines      int    `json:"total_lines"`
	PrimaryTypeName string `json:"class_name,omitempty"`
	HasPrimaryLoop  bool   `json:"has_update"`
}

// AnalysisResult is the immutable output of one static analysis run.
type AnalysisResult struct {
	Findings []Finding `json:"smells"`
	Stats    Stats     `json:"stats"`
}

// UnknownScriptTitle is used when no class declaration could be found.
const UnknownScriptTitle = "UnknownScript"

// Title returns the extracted class name or UnknownScriptTitle.
func (r AnalysisResult) Title() string {
	if r.Stats.PrimaryTypeName == "" {
		return UnknownScriptTitle
	}
	return r.Stats.PrimaryTypeName
}

// CountByCategory tallies findings per category.
func (r AnalysisResult) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, f := range r.Findings {
		counts[f.Category]++
	}
	return counts
}
