package analyzer

import (
	"testing"

	"unityarchitect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playerScript = `using UnityEngine;

public class PlayerController : MonoBehaviour
{
    void Update()
    {
        var rb = GetComponent<Rigidbody>();
        var enemy = GameObject.Find("Enemy");
    }

    void FixedUpdate()
    {
        if (Input.GetKeyDown(KeyCode.Space)) Jump();
    }

    void OnTriggerEnter(Collider other)
    {
        if (other.tag == "Player") Score();
        var cam = Camera.main;
    }
}`

func TestAnalyze_SingleLineUpdate(t *testing.T) {
	result := Analyze("void Update() { var x = GetComponent<Rigidbody>(); }")

	require.Len(t, result.Findings, 1)
	f := result.Findings[0]
	assert.Equal(t, models.LineRef(1), f.Line)
	assert.Equal(t, models.CategoryPerformance, f.Category)
	assert.Contains(t, f.Message, "GetComponent")
	assert.Equal(t, 1, result.Stats.TotalLines)
	assert.True(t, result.Stats.HasPrimaryLoop)
}

func TestAnalyze_InputInFixedUpdate(t *testing.T) {
	result := Analyze("void FixedUpdate() {\n Input.GetKeyDown(KeyCode.Space);\n}")

	require.Len(t, result.Findings, 1)
	assert.Equal(t, models.LineRef(2), result.Findings[0].Line)
	assert.Equal(t, models.CategoryLogicError, result.Findings[0].Category)
	assert.False(t, result.Stats.HasPrimaryLoop, "FixedUpdate is not the per-frame method")
}

func TestAnalyze_FullScript(t *testing.T) {
	result := Analyze(playerScript)

	want := []struct {
		line     models.LineRef
		category models.Category
	}{
		{7, models.CategoryPerformance},
		{8, models.CategoryPerformance},
		{18, models.CategoryOptimization},
		{13, models.CategoryLogicError},
		{models.WholeDocument, models.CategoryPerformance},
	}
	require.Len(t, result.Findings, len(want))
	for i, w := range want {
		assert.Equal(t, w.line, result.Findings[i].Line, "finding %d", i)
		assert.Equal(t, w.category, result.Findings[i].Category, "finding %d", i)
	}
	assert.Equal(t, "PlayerController", result.Stats.PrimaryTypeName)
	assert.Equal(t, "PlayerController", result.Title())
	assert.Equal(t, 21, result.Stats.TotalLines)
}

func TestAnalyze_Passes(t *testing.T) {
	testCases := []struct {
		name     string
		code     string
		expected []models.Finding
	}{
		{
			name: "commented call inside Update is ignored",
			code: "void Update() {\n  // GetComponent<Rigidbody>();\n}",
		},
		{
			name: "block comment inside FixedUpdate is ignored",
			code: "void FixedUpdate() {\n  /* Input.GetAxis(\"Horizontal\"); */\n}",
		},
		{
			name: "call after Update closes is ignored",
			code: "void Update() {\n}\nvoid Start() {\n  GetComponent<Rigidbody>();\n}",
		},
		{
			name: "two patterns on one line are reported in library order",
			code: "void Update() {\n  GameObject.Find(\"A\").GetComponent<B>();\n}",
			expected: []models.Finding{
				{Line: 2, Category: models.CategoryPerformance, Message: DefaultLibrary.HotLoop.Rules[0].Message},
				{Line: 2, Category: models.CategoryPerformance, Message: DefaultLibrary.HotLoop.Rules[1].Message},
			},
		},
		{
			name: "tag comparison reported once per line",
			code: "if (a.tag == \"Enemy\" || b.tag.Equals(\"Enemy\")) {}",
			expected: []models.Finding{
				{Line: 1, Category: models.CategoryOptimization, Message: DefaultLibrary.TagComparison.Rules[0].Message},
			},
		},
		{
			name: "commented tag comparison is ignored",
			code: "// if (other.tag == \"Player\") {}",
		},
		{
			name: "camera without Update is not reported",
			code: "void FixedUpdate() {\n  var c = Camera.main;\n}",
		},
		{
			name: "camera with Update is reported once for the whole document",
			code: "void Update() {\n  var c = Camera.main;\n  var d = Camera.main;\n}",
			expected: []models.Finding{
				{Line: models.WholeDocument, Category: models.CategoryPerformance, Message: DefaultLibrary.CameraAccess.Message},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Analyze(tc.code)
			if tc.expected == nil {
				assert.Empty(t, result.Findings)
				return
			}
			assert.Equal(t, tc.expected, result.Findings)
		})
	}
}

func TestAnalyze_NestedBlocks(t *testing.T) {
	code := "void Update() {\n  if (ready) {\n    Fire();\n  }\n  var rb = GetComponent<Rigidbody>();\n}"

	// The first closing brace ends the Update scope, so line 5 is missed.
	assert.Empty(t, Analyze(code).Findings)

	deep := New(WithBoundary(NewBraceDepth)).Analyze(code)
	require.Len(t, deep.Findings, 1)
	assert.Equal(t, models.LineRef(5), deep.Findings[0].Line)
}

func TestAnalyze_Idempotent(t *testing.T) {
	first := Analyze(playerScript)
	second := Analyze(playerScript)
	assert.Equal(t, first, second)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	result := Analyze("")
	assert.NotNil(t, result.Findings)
	assert.Empty(t, result.Findings)
	assert.Equal(t, 1, result.Stats.TotalLines)
	assert.Equal(t, models.UnknownScriptTitle, result.Title())
}

func TestCache_HitMatchesFreshResult(t *testing.T) {
	cache, err := NewCache(New(), 8)
	require.NoError(t, err)

	miss := cache.Analyze(playerScript)
	hit := cache.Analyze(playerScript)
	assert.Equal(t, miss, hit)
	assert.Equal(t, 1, cache.Len())

	hit.Findings[0].Message = "mutated"
	again := cache.Analyze(playerScript)
	assert.NotEqual(t, "mutated", again.Findings[0].Message)
}
