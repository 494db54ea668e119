package main

import (
	"context"
	"fmt"

	"unityarchitect/config"
	"unityarchitect/internal/analyzer"
	"unityarchitect/internal/engine"
	"unityarchitect/internal/files"
	"unityarchitect/internal/llm"
	"unityarchitect/internal/models"
	"unityarchitect/internal/store"
)

// app holds the components shared by the server and the CLI commands.
type app struct {
	engine   *engine.Engine
	scanner  analyzer.Scanner
	store    *store.Store
	explorer *files.Explorer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	boundary, err := analyzer.StrategyByName(cfg.Analysis.ScopeStrategy)
	if err != nil {
		return nil, err
	}
	scanner, err := analyzer.NewCache(analyzer.New(analyzer.WithBoundary(boundary)), cfg.Analysis.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}

	factory := llm.NewFactory(llm.Options{
		OllamaHost:      cfg.Ollama.Host,
		OllamaModel:     cfg.Ollama.Model,
		MaxPromptLength: cfg.Analysis.MaxPromptLength,
		Remotes: map[models.RemoteVariant]llm.RemoteOptions{
			models.VariantGemini:   remoteOptions(cfg.Remote.Gemini),
			models.VariantOpenAI:   remoteOptions(cfg.Remote.OpenAI),
			models.VariantDeepSeek: remoteOptions(cfg.Remote.DeepSeek),
		},
	})

	defaultProvider := models.ParseProviderConfig(cfg.Provider.Type, cfg.Provider.Model, cfg.Provider.APIKey)
	if defaultProvider.Kind == models.KindLocalModel && defaultProvider.ModelName == "" {
		defaultProvider.ModelName = cfg.Ollama.Model
	}

	explorer, err := files.NewExplorer(cfg.Explorer.IgnoreDirs, cfg.Explorer.IgnorePrefixes).
		WithIgnoreGlobs(cfg.Explorer.IgnoreGlobs)
	if err != nil {
		return nil, err
	}

	a := &app{scanner: scanner, explorer: explorer}
	opts := []engine.Option{
		engine.WithScanner(scanner),
		engine.WithStrictIntent(cfg.Analysis.StrictIntent),
		engine.WithDefaultLocale(cfg.Analysis.DefaultLocale),
	}

	var configs engine.ConfigSource = store.Static{Config: defaultProvider}
	if cfg.Storage.Driver != "none" {
		st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, store.WithDefaultConfig(defaultProvider))
		if err != nil {
			return nil, err
		}
		a.store = st
		configs = st
		opts = append(opts, engine.WithSink(st))
	}

	a.engine = engine.New(configs, factory, opts...)
	return a, nil
}

// Close flushes pending session writes and closes the store.
func (a *app) Close() error {
	a.engine.Wait()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func remoteOptions(rc config.RemoteConfig) llm.RemoteOptions {
	return llm.RemoteOptions{
		BaseURL:      rc.BaseURL,
		DefaultModel: rc.DefaultModel,
		RPS:          rc.RPS,
		Burst:        rc.Burst,
		Timeout:      rc.Timeout,
	}
}
