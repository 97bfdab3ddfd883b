// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for quill.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (QUILL_*)
//   - ~/.quill/config.toml
//   - ~/.quill/config.json
//   - Built-in defaults
//
// QUILL_HOME moves the configuration directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	backend := cfg.Generation.Backend
//
// A Watcher reloads the global configuration and the prompt library when
// their files change:
//
//	w, _ := config.NewWatcher(250 * time.Millisecond)
//	config.WatchGlobal(w, func(cfg *config.Config) { ... })
//	w.Start()
package config
