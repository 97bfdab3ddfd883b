// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears QUILL_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QUILL_HOME", dir)
	for _, env := range []string{
		"QUILL_BACKEND", "QUILL_MODEL", "QUILL_OLLAMA_URL", "QUILL_OPENROUTER_KEY",
		"QUILL_CONTENT_URL", "QUILL_CONTENT_DIR", "QUILL_DB", "QUILL_PORT", "QUILL_AUTH_TOKEN",
	} {
		t.Setenv(env, "")
	}
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)
	return dir
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ollama", cfg.Generation.Backend)
	assert.Equal(t, 400, cfg.Generation.MaxTokens)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Generation.Timeout())
}

func TestLoad_NoFiles(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Ollama.URL, cfg.Ollama.URL)

	db, err := cfg.ResolvedDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), db)
}

func TestLoad_TOMLFillsDefaults(t *testing.T) {
	dir := isolate(t)
	data := `
[generation]
backend = "openrouter"
max_tokens = 800

[server]
allowed_paths = ["/content/site"]

[ui]
code_style = "dracula"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Generation.Backend)
	assert.Equal(t, 800, cfg.Generation.MaxTokens)
	assert.Equal(t, 300, cfg.Generation.TimeoutSecs)
	assert.Equal(t, []string{"/content/site"}, cfg.Server.AllowedPaths)
	assert.Equal(t, "dracula", cfg.UI.CodeStyle)
	assert.Equal(t, "auto", cfg.UI.MarkdownStyle)

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"ollama":{"model":"qwen2.5:7b"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:7b", cfg.Ollama.Model)
}

func TestLoad_BrokenFileReportsAndDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [toml"), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "ollama", cfg.Generation.Backend)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[generation]\nbackend = \"gpt\"\n"), 0600))

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation.backend")
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("QUILL_BACKEND", "OpenRouter")
	t.Setenv("QUILL_MODEL", "haiku")
	t.Setenv("QUILL_CONTENT_DIR", "/srv/content")
	t.Setenv("QUILL_PORT", "9090")
	t.Setenv("QUILL_AUTH_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Generation.Backend)
	assert.Equal(t, "haiku", cfg.Generation.Model)
	assert.Equal(t, "/srv/content", cfg.Content.RootDir)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Server.AuthToken)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"backend", func(c *Config) { c.Generation.Backend = "x" }, "generation.backend"},
		{"max tokens", func(c *Config) { c.Generation.MaxTokens = 0 }, "generation.max_tokens"},
		{"timeout", func(c *Config) { c.Generation.TimeoutSecs = 7200 }, "generation.timeout_secs"},
		{"ollama url scheme", func(c *Config) { c.Ollama.URL = "ftp://host" }, "ollama.url"},
		{"content url host", func(c *Config) { c.Content.BaseURL = "http://" }, "content.base_url"},
		{"max entries", func(c *Config) { c.Storage.MaxEntries = -1 }, "storage.max_entries"},
		{"server addr", func(c *Config) { c.Server.Addr = "8787" }, "server.addr"},
		{"allowed path", func(c *Config) { c.Server.AllowedPaths = []string{"content"} }, "server.allowed_paths"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"markdown style", func(c *Config) { c.UI.MarkdownStyle = "fancy" }, "ui.markdown_style"},
		{"code style", func(c *Config) { c.UI.CodeStyle = "no-such-style" }, "ui.code_style"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "error = %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

// =============================================================================
// GET / SET
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("generation.max_tokens", "1200"))
	require.NoError(t, cfg.Set("ui.preview", "yes"))
	require.NoError(t, cfg.Set("server.rate_limit", "0.5"))
	require.NoError(t, cfg.Set("server.allowed_paths", "/content/a, /content/b,"))
	require.NoError(t, cfg.Set("ollama.model", "mistral"))

	assert.Equal(t, 1200, cfg.Generation.MaxTokens)
	assert.True(t, cfg.UI.Preview)
	assert.Equal(t, 0.5, cfg.Server.RateLimit)
	assert.Equal(t, []string{"/content/a", "/content/b"}, cfg.Server.AllowedPaths)

	v, err := cfg.Get("ollama.model")
	require.NoError(t, err)
	assert.Equal(t, "mistral", v)

	_, err = cfg.Get("ollama.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("generation.max_tokens", "many"))
	assert.Error(t, cfg.Set("generation", "x"))
	assert.Error(t, cfg.Set("", "x"))
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.OpenRouter.Key = "sk-or-very-secret"
	cfg.Server.AuthToken = "token-123"

	s := cfg.String()
	assert.NotContains(t, s, "sk-or-very-secret")
	assert.NotContains(t, s, "token-123")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-or-very-secret", cfg.OpenRouter.Key)
	assert.True(t, IsSecretKey("openrouter.key"))
}

func TestClone_CopiesSlices(t *testing.T) {
	cfg := Default()
	cfg.Server.AllowedPaths = []string{"/a"}
	clone := cfg.Clone()
	clone.Server.AllowedPaths[0] = "/b"
	assert.Equal(t, "/a", cfg.Server.AllowedPaths[0])
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Content.BaseURL = "https://author.example.com"
	cfg.Server.CORSOrigins = []string{"*.example.com"}
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# quill configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Content.BaseURL, loaded.Content.BaseURL)
	assert.Equal(t, cfg.Server.CORSOrigins, loaded.Server.CORSOrigins)
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Generation.Model = "test-model"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestReloadGlobal_KeepsPreviousOnError(t *testing.T) {
	dir := isolate(t)
	prev := Global()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[ui]\ntheme = \"neon\"\n"), 0600))
	require.Error(t, ReloadGlobal())
	assert.Same(t, prev, Global())
}

// =============================================================================
// WATCHER
// =============================================================================

func TestWatcher_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "prompts.yaml")
	other := filepath.Join(dir, "other.txt")

	w, err := NewWatcher(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	calls := make(chan string, 10)
	require.NoError(t, w.OnChange(target, func(path string) { calls <- path }))
	w.Start()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0600))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("prompts: []\n"), 0600))
	}

	select {
	case path := <-calls:
		assert.Equal(t, target, path)
	case <-time.After(3 * time.Second):
		t.Fatal("no change callback")
	}

	select {
	case path := <-calls:
		t.Fatalf("unexpected extra callback for %s", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchGlobal_Reloads(t *testing.T) {
	dir := isolate(t)
	_ = Global()

	w, err := NewWatcher(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	reloaded := make(chan *Config, 4)
	require.NoError(t, WatchGlobal(w, func(cfg *Config) { reloaded <- cfg }))
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[ollama]\nmodel = \"phi3\"\n"), 0600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "phi3", cfg.Ollama.Model)
		assert.Equal(t, "phi3", Global().Ollama.Model)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
