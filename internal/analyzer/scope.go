package analyzer

import (
	"fmt"
	"strings"
)

// ScopeState is the position of the scanner relative to a tracked block.
type ScopeState int

const (
	Outside ScopeState = iota
	InsideBlock
)

func (s ScopeState) String() string {
	if s == InsideBlock {
		return "InsideBlock"
	}
	return "Outside"
}

// Boundary decides where a tracked block starts and ends.
// Implementations may keep per-scan state; a fresh Boundary is built for every scan.
type Boundary interface {
	// Opens reports whether the line starts the block. Only consulted while Outside.
	Opens(line string) bool
	// Closes reports whether the line ends the block. Only consulted while InsideBlock,
	// after the line itself has been inspected.
	Closes(line string) bool
}

// BoundaryFactory builds a Boundary keyed to a block opener such as "void Update()".
type BoundaryFactory func(opener string) Boundary

const (
	StrategyFirstCloser = "first_closer"
	StrategyBraceDepth  = "brace_depth"
)

// StrategyByName resolves a configured strategy name. Empty means first_closer.
func StrategyByName(name string) (BoundaryFactory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyFirstCloser:
		return NewFirstCloser, nil
	case StrategyBraceDepth:
		return NewBraceDepth, nil
	default:
		return nil, fmt.Errorf("unknown scope strategy %q", name)
	}
}

// firstCloser treats the first line holding a closing brace as the end of the block.
// Nested blocks therefore close the scope early; this is the historical behaviour
// the finding counts are calibrated against.
type firstCloser struct {
	opener string
}

func NewFirstCloser(opener string) Boundary { return &firstCloser{opener: opener} }

func (b *firstCloser) Opens(line string) bool  { return strings.Contains(line, b.opener) }
func (b *firstCloser) Closes(line string) bool { return strings.Contains(line, "}") }

// braceDepth counts braces from the opener onward and closes when they balance.
// Braces inside string literals and comments are counted too.
type braceDepth struct {
	opener string
	depth  int
	opened bool
}

func NewBraceDepth(opener string) Boundary { return &braceDepth{opener: opener} }

func (b *braceDepth) Opens(line string) bool {
	if !strings.Contains(line, b.opener) {
		return false
	}
	b.depth, b.opened = 0, false
	return true
}

func (b *braceDepth) Closes(line string) bool {
	open := strings.Count(line, "{")
	b.depth += open - strings.Count(line, "}")
	if open > 0 {
		b.opened = true
	}
	return b.opened && b.depth <= 0
}

// Tracker is the Outside/InsideBlock state machine driven line by line.
// Call Enter before inspecting a line and Leave after it.
type Tracker struct {
	boundary Boundary
	state    ScopeState
}

func NewTracker(boundary Boundary) *Tracker {
	return &Tracker{boundary: boundary, state: Outside}
}

func (t *Tracker) Enter(line string) {
	if t.state == Outside && t.boundary.Opens(line) {
		t.state = InsideBlock
	}
}

func (t *Tracker) Leave(line string) {
	if t.state == InsideBlock && t.boundary.Closes(line) {
		t.state = Outside
	}
}

func (t *Tracker) Inside() bool { return t.state == InsideBlock }

func (t *Tracker) State() ScopeState { return t.state }
