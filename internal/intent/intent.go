// Package intent decides what a submitted text is asking for.
package intent

import (
	"strings"

	"unityarchitect/internal/models"
)

// MaxGreetingTokens is the whitespace token count at or above which a message is
// never treated as small talk, even if it contains a greeting.
const MaxGreetingTokens = 15

var (
	// outOfScopeTerms name other engines, other languages and topics no game
	// script talks about. Words that also name game content stay out, since the
	// whole text of a script is searched.
	// Bare "css" and "react" are left out: as substrings they hit "access" and "reaction".
	outOfScopeTerms = []string{
		"unreal", "godot", "python", "django", "javascript", "typescript",
		"html", "reactjs", "react native", "golang", "kotlin",
		"atatürk", "yemek",
	}

	// greetingTerms cover English, Turkish and German small talk.
	greetingTerms = []string{
		"hello", "selam", "merhaba", "nasılsın", "kimsin", "eyw", "saol", "teşekkür",
		"thanks", "thank you", "how are you", "who are you", "good morning",
		"hallo", "danke",
	}

	generalIndicators = []string{"{", "}", ";"}

	unityIndicators = []string{
		"using UnityEngine", "MonoBehaviour", "SerializeField",
		"void Update", "void Start", "GetComponent",
	}
)

// Classify maps a raw query to an intent. A foreign-domain term always wins over
// a greeting, wherever the two appear in the text.
func Classify(query string) models.Intent {
	q := strings.ToLower(strings.TrimSpace(query))

	if containsAny(q, outOfScopeTerms) {
		return models.IntentOutOfScope
	}
	if containsAny(q, greetingTerms) && len(strings.Fields(q)) < MaxGreetingTokens {
		return models.IntentGreeting
	}
	return models.IntentAnalysis
}

// IsActuallyCode reports whether text looks like a Unity script: at least two of
// the general syntax tokens and at least one Unity-specific token must be present.
func IsActuallyCode(text string) bool {
	return countPresent(text, generalIndicators) >= 2 && countPresent(text, unityIndicators) >= 1
}

// Resolve classifies query and demotes an Analysis intent that does not look
// like code. Strict mode demotes to OutOfScope instead of Greeting.
func Resolve(query string, strict bool) models.Intent {
	intent := Classify(query)
	if intent == models.IntentAnalysis && !IsActuallyCode(query) {
		if strict {
			return models.IntentOutOfScope
		}
		return models.IntentGreeting
	}
	return intent
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func countPresent(s string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(s, term) {
			n++
		}
	}
	return n
}
