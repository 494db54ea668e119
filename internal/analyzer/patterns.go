package analyzer

import (
	"regexp"

	"unityarchitect/internal/models"
)

// Lifecycle markers the rule groups are keyed to.
const (
	PerFrameMethod      = "void Update()"
	FixedStepMethod     = "void FixedUpdate()"
	FixedStepMethodName = "void FixedUpdate"
	CameraAccessor      = "Camera.main"
)

var (
	// InputPolling matches discrete input calls that must not run in the physics step.
	InputPolling = regexp.MustCompile(`Input\.Get`)

	// perFrameReference matches Update() but not FixedUpdate() or LateUpdate().
	perFrameReference = regexp.MustCompile(`\bUpdate\(\)`)
	classDeclaration  = regexp.MustCompile(`class\s+(\w+)`)
)

// Rule maps one detection pattern to a category and a remediation message.
type Rule struct {
	Pattern  *regexp.Regexp
	Category models.Category
	Message  string
}

// RuleGroup is an independent set of rules. Scope is the opener of the block the
// rules are restricted to; an empty Scope applies the rules to every line.
type RuleGroup struct {
	Name  string
	Scope string
	Rules []Rule
}

// Library is the ordered pattern library. It is never mutated after init and is
// safe to share between goroutines.
type Library struct {
	HotLoop       RuleGroup
	TagComparison RuleGroup
	PhysicsInput  RuleGroup
	CameraAccess  Rule
}

// DefaultLibrary holds the built-in Unity rules.
var DefaultLibrary = &Library{
	HotLoop: RuleGroup{
		Name:  "hot-loop",
		Scope: PerFrameMethod,
		Rules: []Rule{
			{
				Pattern:  regexp.MustCompile(`GetComponent`),
				Category: models.CategoryPerformance,
				Message:  "GetComponent should not be called every frame. Cache the reference in Awake/Start.",
			},
			{
				Pattern:  regexp.MustCompile(`GameObject\.Find`),
				Category: models.CategoryPerformance,
				Message:  "GameObject.Find scans the whole scene. Use a [SerializeField] reference instead.",
			},
			{
				Pattern:  regexp.MustCompile(`FindObjectOfType`),
				Category: models.CategoryPerformance,
				Message:  "FindObjectOfType is very slow. Use a singleton or a direct reference.",
			},
			{
				Pattern:  regexp.MustCompile(`Object\.Instantiate`),
				Category: models.CategoryPerformance,
				Message:  "Instantiate inside Update allocates every frame. Use object pooling.",
			},
		},
	},
	TagComparison: RuleGroup{
		Name: "tag-comparison",
		Rules: []Rule{
			{
				Pattern:  regexp.MustCompile(`\.tag == "|\.tag\.Equals\(`),
				Category: models.CategoryOptimization,
				Message:  "Use CompareTag() instead of '==' for tag checks.",
			},
		},
	},
	PhysicsInput: RuleGroup{
		Name:  "physics-input",
		Scope: FixedStepMethod,
		Rules: []Rule{
			{
				Pattern:  InputPolling,
				Category: models.CategoryLogicError,
				Message:  "Input detection inside FixedUpdate is unreliable. Capture input in Update.",
			},
		},
	},
	CameraAccess: Rule{
		Pattern:  regexp.MustCompile(regexp.QuoteMeta(CameraAccessor)),
		Category: models.CategoryPerformance,
		Message:  "Camera.main performs a lookup every frame. Assign it to a field in Awake.",
	},
}
