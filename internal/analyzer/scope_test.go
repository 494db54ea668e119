package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_SameLineOpenAndClose(t *testing.T) {
	tracker := NewTracker(NewFirstCloser(PerFrameMethod))
	line := "void Update() { var x = GetComponent<Rigidbody>(); }"

	tracker.Enter(line)
	assert.True(t, tracker.Inside())
	tracker.Leave(line)
	assert.Equal(t, Outside, tracker.State())
}

func TestTracker_Strategies(t *testing.T) {
	lines := []string{
		"void Update()",
		"{",
		"    if (x) {",
		"    }",
		"    Move();",
		"}",
	}
	testCases := []struct {
		name     string
		factory  BoundaryFactory
		expected []bool
	}{
		{"first closer", NewFirstCloser, []bool{true, true, true, true, false, false}},
		{"brace depth", NewBraceDepth, []bool{true, true, true, true, true, true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := NewTracker(tc.factory(PerFrameMethod))
			inside := make([]bool, 0, len(lines))
			for _, line := range lines {
				tracker.Enter(line)
				inside = append(inside, tracker.Inside())
				tracker.Leave(line)
			}
			assert.Equal(t, tc.expected, inside)
			assert.False(t, tracker.Inside())
		})
	}
}

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"", "first_closer", "BRACE_DEPTH"} {
		f, err := StrategyByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
	_, err := StrategyByName("ast")
	assert.Error(t, err)
}
