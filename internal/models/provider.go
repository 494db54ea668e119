package models

import (
	"fmt"
	"strings"
)

// ProviderKind separates the free local backend from metered remote ones.
type ProviderKind string

const (
	KindLocalModel ProviderKind = "local"
	KindRemoteAPI  ProviderKind = "remote"
)

// RemoteVariant names a metered remote backend.
type RemoteVariant string

const (
	VariantGemini   RemoteVariant = "gemini"
	VariantOpenAI   RemoteVariant = "openai"
	VariantDeepSeek RemoteVariant = "deepseek"
)

// ProviderConfig selects and parameterises one generative backend.
// It is read-only once handed to the core.
type ProviderConfig struct {
	Kind       ProviderKind
	Variant    RemoteVariant
	ModelName  string
	Credential string
}

// ProviderType returns the stored provider name ("ollama", "google", "openai", "deepseek").
func (c ProviderConfig) ProviderType() string {
	if c.Kind == KindLocalModel {
		return "ollama"
	}
	if c.Variant == VariantGemini {
		return "google"
	}
	return string(c.Variant)
}

// String never includes the credential.
func (c ProviderConfig) String() string {
	return fmt.Sprintf("%s:%s", c.ProviderType(), c.ModelName)
}

// ParseProviderConfig builds a ProviderConfig from the stored provider name.
// Unknown names fall back to the local model.
func ParseProviderConfig(providerType, modelName, credential string) ProviderConfig {
	cfg := ProviderConfig{ModelName: strings.TrimSpace(modelName), Credential: credential}
	switch strings.ToLower(strings.TrimSpace(providerType)) {
	case "google", "gemini":
		cfg.Kind, cfg.Variant = KindRemoteAPI, VariantGemini
	case "openai":
		cfg.Kind, cfg.Variant = KindRemoteAPI, VariantOpenAI
	case "deepseek":
		cfg.Kind, cfg.Variant = KindRemoteAPI, VariantDeepSeek
	default:
		cfg.Kind = KindLocalModel
	}
	return cfg
}
