// Package prompt holds the policy corpus and assembles provider prompts from it.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"unityarchitect/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var defaultCorpusYAML []byte

// Corpus is a versioned, read-only bundle of rule text, locale directives,
// canned replies and prompt templates.
type Corpus struct {
	Version        string            `yaml:"version"`
	FallbackLocale string            `yaml:"fallback_locale"`
	System         string            `yaml:"system"`
	RuleText       map[string]string `yaml:"rules"`
	Directives     map[string]string `yaml:"directives"`
	Replies        struct {
		Greeting   map[string]string `yaml:"greeting"`
		OutOfScope map[string]string `yaml:"out_of_scope"`
	} `yaml:"replies"`
	Templates struct {
		Analysis   string `yaml:"analysis"`
		Correction string `yaml:"correction"`
	} `yaml:"templates"`

	analysis   *template.Template
	correction *template.Template
}

// LoadCorpus parses a YAML corpus and compiles its templates.
func LoadCorpus(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	if c.FallbackLocale == "" {
		return nil, fmt.Errorf("corpus %q has no fallback locale", c.Version)
	}
	if _, ok := c.Directives[c.FallbackLocale]; !ok {
		return nil, fmt.Errorf("corpus %q has no directive for fallback locale %q", c.Version, c.FallbackLocale)
	}

	var err error
	if c.analysis, err = template.New("analysis").Parse(c.Templates.Analysis); err != nil {
		return nil, fmt.Errorf("failed to compile analysis template: %w", err)
	}
	if c.correction, err = template.New("correction").Parse(c.Templates.Correction); err != nil {
		return nil, fmt.Errorf("failed to compile correction template: %w", err)
	}
	return &c, nil
}

var (
	defaultOnce   sync.Once
	defaultCorpus *Corpus
)

// Default returns the embedded corpus. It panics if the embedded file is invalid,
// which the package tests guard against.
func Default() *Corpus {
	defaultOnce.Do(func() {
		c, err := LoadCorpus(defaultCorpusYAML)
		if err != nil {
			panic(err)
		}
		defaultCorpus = c
	})
	return defaultCorpus
}

// ResolveLocale normalises a locale code ("en-US" -> "en") and falls back to the
// corpus fallback when no directive exists for it.
func (c *Corpus) ResolveLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	if _, ok := c.Directives[l]; ok {
		return l
	}
	return c.FallbackLocale
}

// Directive returns the response-language instruction for locale.
func (c *Corpus) Directive(locale string) string {
	return c.Directives[c.ResolveLocale(locale)]
}

// Reply returns the canned reply for a non-analysis intent.
func (c *Corpus) Reply(intent models.Intent, locale string) string {
	var replies map[string]string
	switch intent {
	case models.IntentGreeting:
		replies = c.Replies.Greeting
	case models.IntentOutOfScope:
		replies = c.Replies.OutOfScope
	default:
		return ""
	}
	if r, ok := replies[c.ResolveLocale(locale)]; ok {
		return r
	}
	return replies[c.FallbackLocale]
}

// Rules returns the common rule text followed by the rules for the provider kind.
func (c *Corpus) Rules(kind models.ProviderKind) string {
	return strings.TrimRight(c.RuleText["common"], "\n") + "\n" + c.RuleText[string(kind)]
}
