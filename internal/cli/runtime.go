// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/quill-tui/internal/cloud"
	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/generate"
	"github.com/jeranaias/quill-tui/internal/ollama"
	"github.com/jeranaias/quill-tui/internal/storage"
)

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime holds the services built from the configuration that the dialog
// and the HTTP service share.
type Runtime struct {
	Config    *config.Config
	Service   *generate.Service
	Retriever content.Retriever
	Store     *storage.Store
	Library   *dialog.Library
}

// loadConfig loads the configuration named by --config, or the default one.
func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigFile != "" {
		return config.LoadFromPath(args.ConfigFile)
	}
	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		log.Printf("CONFIG_LOAD_WARNING | error=%v", err)
	}
	return cfg, nil
}

// NewRuntime builds the backend, retriever, store and prompt library. A
// missing backend or an unusable history database degrades the runtime
// instead of failing it; the dialog reports the former on generate.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	library, err := loadLibrary(cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:    cfg,
		Retriever: newRetriever(cfg),
		Library:   library,
	}

	backend, err := newBackend(cfg)
	if err != nil {
		log.Printf("BACKEND_UNAVAILABLE | backend=%s error=%v", cfg.Generation.Backend, err)
	}
	rt.Service = generate.NewService(backend, rt.Retriever).WithSystemPrompt(cfg.Generation.SystemPrompt)

	if err := config.EnsureConfigDir(); err != nil {
		log.Printf("CONFIG_DIR_FAILED | error=%v", err)
	}
	dbPath, err := cfg.ResolvedDBPath()
	if err == nil {
		rt.Store, err = storage.Open(ctx, dbPath)
	}
	if err != nil {
		log.Printf("HISTORY_STORE_UNAVAILABLE | path=%s error=%v", dbPath, err)
	} else {
		rt.Store.MaxEntries = cfg.Storage.MaxEntries
	}
	return rt, nil
}

// Close releases the store.
func (rt *Runtime) Close() error {
	if rt.Store == nil {
		return nil
	}
	return rt.Store.Close()
}

// HasBackend reports whether a generation backend is configured.
func (rt *Runtime) HasBackend() bool {
	return rt.Service != nil && rt.Service.Backend() != nil
}

// DialogGenerator returns the service as a dialog.Generator, or nil without
// a backend.
func (rt *Runtime) DialogGenerator() dialog.Generator {
	if !rt.HasBackend() {
		return nil
	}
	return rt.Service
}

// DialogStore returns the store as a dialog.HistoryStore, or nil.
func (rt *Runtime) DialogStore() dialog.HistoryStore {
	if rt.Store == nil {
		return nil
	}
	return rt.Store
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// newBackend creates the configured generation backend.
func newBackend(cfg *config.Config) (generate.Backend, error) {
	switch cfg.Generation.Backend {
	case "ollama":
		model := cfg.Ollama.Model
		if cfg.Generation.Model != "" {
			model = cfg.Generation.Model
		}
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Ollama.URL,
			Timeout:      cfg.Generation.Timeout(),
			DefaultModel: model,
		})
		return generate.NewOllamaBackend(client, model), nil

	case "openrouter":
		if cfg.OpenRouter.Key == "" {
			return nil, fmt.Errorf("openrouter.key is not set")
		}
		model := cfg.OpenRouter.Model
		if cfg.Generation.Model != "" {
			model = cfg.Generation.Model
		}
		client := cloud.NewOpenRouterClient(cfg.OpenRouter.Key).
			WithModel(model).
			WithTimeout(cfg.Generation.Timeout())
		if cfg.OpenRouter.BaseURL != "" {
			client = client.WithBaseURL(cfg.OpenRouter.BaseURL)
		}
		return generate.NewCloudBackend(client), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Generation.Backend)
	}
}

// newRetriever prefers the remote content service over a local directory.
func newRetriever(cfg *config.Config) content.Retriever {
	switch {
	case cfg.Content.BaseURL != "":
		return content.NewHTTPRetriever(cfg.Content.BaseURL, time.Duration(cfg.Content.TimeoutSecs)*time.Second)
	case cfg.Content.RootDir != "":
		return content.NewFileRetriever(cfg.Content.RootDir)
	default:
		return nil
	}
}

// loadLibrary reads the configured prompt library, or the built-in one.
func loadLibrary(cfg *config.Config) (*dialog.Library, error) {
	path := cfg.ResolvedPromptLibrary()
	if path == "" {
		return dialog.DefaultLibrary(), nil
	}
	lib, err := dialog.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt library: %w", err)
	}
	return lib, nil
}
