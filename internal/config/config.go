// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	chromastyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete quill configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Generation GenerationConfig `toml:"generation" json:"generation"`
	Ollama     OllamaConfig     `toml:"ollama" json:"ollama"`
	OpenRouter OpenRouterConfig `toml:"openrouter" json:"openrouter"`
	Content    ContentConfig    `toml:"content" json:"content"`
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Prompts    PromptsConfig    `toml:"prompts" json:"prompts"`
	Dialog     DialogConfig     `toml:"dialog" json:"dialog"`
	Server     ServerConfig     `toml:"server" json:"server"`
	UI         UIConfig         `toml:"ui" json:"ui"`
}

// GenerationConfig selects and tunes the text generation backend.
type GenerationConfig struct {
	// Backend is "ollama" or "openrouter".
	Backend string `toml:"backend" json:"backend"`
	// Model overrides the backend's model. Empty uses the backend default.
	Model string `toml:"model" json:"model"`
	// MaxTokens applies when the text length gives no limit.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// TimeoutSecs bounds one generation.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// SystemPrompt replaces the built-in system prompt when set.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt,omitempty"`
}

// Timeout returns TimeoutSecs as a duration.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	URL   string `toml:"url" json:"url"`
	Model string `toml:"model" json:"model"`
}

// OpenRouterConfig configures the OpenRouter backend.
type OpenRouterConfig struct {
	Key     string `toml:"key" json:"key"`
	Model   string `toml:"model" json:"model"`
	BaseURL string `toml:"base_url" json:"base_url,omitempty"`
}

// ContentConfig locates the content that selectors and inputPath read.
type ContentConfig struct {
	// BaseURL of a server offering approximated markdown of content paths.
	BaseURL string `toml:"base_url" json:"base_url"`
	// RootDir maps content paths to local files when BaseURL is empty.
	RootDir string `toml:"root_dir" json:"root_dir"`
	// TimeoutSecs bounds one retrieval.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// StorageConfig configures history persistence.
type StorageConfig struct {
	// DBPath is the SQLite file. Empty uses history.db in the config dir.
	DBPath string `toml:"db_path" json:"db_path"`
	// MaxEntries caps the snapshots kept per field (0 = unlimited).
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// PromptsConfig locates the predefined prompt library.
type PromptsConfig struct {
	// Library is a YAML file. Empty uses the built-in library.
	Library string `toml:"library" json:"library"`
}

// DialogConfig holds dialog defaults.
type DialogConfig struct {
	// TextLength is the initial text length selection.
	TextLength string `toml:"text_length" json:"text_length"`
	// RichText opens the dialog for HTML content by default.
	RichText bool `toml:"rich_text" json:"rich_text"`
}

// ServerConfig configures `quill serve`.
type ServerConfig struct {
	Addr             string   `toml:"addr" json:"addr"`
	AllowedPaths     []string `toml:"allowed_paths" json:"allowed_paths"`
	RateLimit        float64  `toml:"rate_limit" json:"rate_limit"`
	RateBurst        int      `toml:"rate_burst" json:"rate_burst"`
	AuthToken        string   `toml:"auth_token" json:"auth_token,omitempty"`
	CORSOrigins      []string `toml:"cors_origins" json:"cors_origins"`
	MaxStreams       int      `toml:"max_streams" json:"max_streams"`
	StreamExpirySecs int      `toml:"stream_expiry_secs" json:"stream_expiry_secs"`
}

// UIConfig configures the terminal dialog.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// MarkdownStyle is the glamour style of the plain text preview.
	MarkdownStyle string `toml:"markdown_style" json:"markdown_style"`
	// CodeStyle is the chroma style of the rich text preview.
	CodeStyle string `toml:"code_style" json:"code_style"`
	// Preview shows the rendered preview instead of the raw response.
	Preview bool `toml:"preview" json:"preview"`
}

// MarkdownStyles are the accepted ui.markdown_style values.
var MarkdownStyles = []string{"auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: "1",
		Generation: GenerationConfig{
			Backend:     "ollama",
			MaxTokens:   400,
			TimeoutSecs: 300,
		},
		Ollama: OllamaConfig{
			URL:   "http://127.0.0.1:11434",
			Model: "llama3.2:3b",
		},
		OpenRouter: OpenRouterConfig{
			Model: "openrouter/auto",
		},
		Content: ContentConfig{
			TimeoutSecs: 30,
		},
		Storage: StorageConfig{
			MaxEntries: 100,
		},
		Server: ServerConfig{
			Addr:             "127.0.0.1:8787",
			RateLimit:        2,
			RateBurst:        20,
			MaxStreams:       10,
			StreamExpirySecs: 60,
		},
		UI: UIConfig{
			Theme:         "auto",
			MarkdownStyle: "auto",
			CodeStyle:     "monokai",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the quill configuration directory: $QUILL_HOME or
// ~/.quill.
func ConfigDir() (string, error) {
	if dir := os.Getenv("QUILL_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".quill"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// LogPath returns the path of the TUI log file.
func LogPath() (string, error) { return configPath("quill.log") }

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ResolvedDBPath returns Storage.DBPath or the default database location.
func (c *Config) ResolvedDBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return expandHome(c.Storage.DBPath), nil
	}
	return configPath("history.db")
}

// ResolvedPromptLibrary returns Prompts.Library with ~ expanded.
func (c *Config) ResolvedPromptLibrary() string {
	return expandHome(c.Prompts.Library)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}

// ensureSecurePermissions tightens config files to 0600; they may hold API
// keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last. A file that fails to parse is
// reported alongside the defaults.
func Load() (*Config, error) {
	var loadErr error

	for _, candidate := range []struct {
		path func() (string, error)
		load func(*Config, string) error
	}{
		{ConfigPathTOML, LoadTOML},
		{ConfigPathJSON, LoadJSON},
	} {
		path, err := candidate.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg := Default()
		if err := candidate.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish applies environment overrides and validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file with overrides and
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	load := LoadTOML
	if strings.HasSuffix(path, ".json") {
		load = LoadJSON
	}
	if err := load(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// fillDefaults fills zero values that have no meaningful zero.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.Generation.Backend == "" {
		cfg.Generation.Backend = d.Generation.Backend
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = d.Generation.MaxTokens
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = d.Generation.TimeoutSecs
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = d.Ollama.URL
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = d.Ollama.Model
	}
	if cfg.OpenRouter.Model == "" {
		cfg.OpenRouter.Model = d.OpenRouter.Model
	}
	if cfg.Content.TimeoutSecs == 0 {
		cfg.Content.TimeoutSecs = d.Content.TimeoutSecs
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Server.MaxStreams == 0 {
		cfg.Server.MaxStreams = d.Server.MaxStreams
	}
	if cfg.Server.StreamExpirySecs == 0 {
		cfg.Server.StreamExpirySecs = d.Server.StreamExpirySecs
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	if cfg.UI.MarkdownStyle == "" {
		cfg.UI.MarkdownStyle = d.UI.MarkdownStyle
	}
	if cfg.UI.CodeStyle == "" {
		cfg.UI.CodeStyle = d.UI.CodeStyle
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# quill configuration file\n")
	buf.WriteString("# Edit with care; `quill config set` validates changes.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems as ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Generation.Backend {
	case "ollama", "openrouter":
	default:
		add("generation.backend", "invalid backend '%s', must be one of: ollama, openrouter", c.Generation.Backend)
	}
	if c.Generation.MaxTokens < 1 || c.Generation.MaxTokens > 32000 {
		add("generation.max_tokens", "must be between 1 and 32000, got %d", c.Generation.MaxTokens)
	}
	if c.Generation.TimeoutSecs < 1 || c.Generation.TimeoutSecs > 3600 {
		add("generation.timeout_secs", "must be between 1 and 3600, got %d", c.Generation.TimeoutSecs)
	}

	if err := validateHTTPURL(c.Ollama.URL); err != nil {
		add("ollama.url", "%v", err)
	}
	if c.OpenRouter.BaseURL != "" {
		if err := validateHTTPURL(c.OpenRouter.BaseURL); err != nil {
			add("openrouter.base_url", "%v", err)
		}
	}

	if c.Content.BaseURL != "" {
		if err := validateHTTPURL(c.Content.BaseURL); err != nil {
			add("content.base_url", "%v", err)
		}
	}
	if c.Content.TimeoutSecs < 1 {
		add("content.timeout_secs", "must be positive, got %d", c.Content.TimeoutSecs)
	}
	if c.Storage.MaxEntries < 0 {
		add("storage.max_entries", "must not be negative, got %d", c.Storage.MaxEntries)
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "invalid address '%s': %v", c.Server.Addr, err)
	}
	for _, p := range c.Server.AllowedPaths {
		if !strings.HasPrefix(p, "/") {
			add("server.allowed_paths", "path prefix '%s' must start with /", p)
		}
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		add("server.rate_limit", "rate limit and burst must not be negative")
	}
	if c.Server.MaxStreams < 1 {
		add("server.max_streams", "must be positive, got %d", c.Server.MaxStreams)
	}
	if c.Server.StreamExpirySecs < 1 {
		add("server.stream_expiry_secs", "must be positive, got %d", c.Server.StreamExpirySecs)
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if !contains(MarkdownStyles, c.UI.MarkdownStyle) {
		add("ui.markdown_style", "invalid style '%s', must be one of: %s", c.UI.MarkdownStyle, strings.Join(MarkdownStyles, ", "))
	}
	if _, ok := chromastyles.Registry[c.UI.CodeStyle]; !ok {
		add("ui.code_style", "unknown chroma style '%s'", c.UI.CodeStyle)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - QUILL_BACKEND: generation.backend
//   - QUILL_MODEL: generation.model
//   - QUILL_OLLAMA_URL: ollama.url
//   - QUILL_OPENROUTER_KEY: openrouter.key
//   - QUILL_CONTENT_URL: content.base_url
//   - QUILL_CONTENT_DIR: content.root_dir
//   - QUILL_DB: storage.db_path
//   - QUILL_PORT: port of server.addr
//   - QUILL_AUTH_TOKEN: server.auth_token
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("QUILL_BACKEND"); v != "" {
		c.Generation.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("QUILL_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("QUILL_OLLAMA_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("QUILL_OPENROUTER_KEY"); v != "" {
		c.OpenRouter.Key = v
	}
	if v := os.Getenv("QUILL_CONTENT_URL"); v != "" {
		c.Content.BaseURL = v
	}
	if v := os.Getenv("QUILL_CONTENT_DIR"); v != "" {
		c.Content.RootDir = v
	}
	if v := os.Getenv("QUILL_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("QUILL_PORT"); v != "" {
		host, _, err := net.SplitHostPort(c.Server.Addr)
		if err != nil {
			host = "127.0.0.1"
		}
		c.Server.Addr = net.JoinHostPort(host, v)
	}
	if v := os.Getenv("QUILL_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type; list fields take comma separated values.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct fields named by key.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type
// conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strings.TrimSpace(strVal))
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"generation.backend",
		"generation.model",
		"generation.max_tokens",
		"generation.timeout_secs",
		"generation.system_prompt",
		"ollama.url",
		"ollama.model",
		"openrouter.key",
		"openrouter.model",
		"openrouter.base_url",
		"content.base_url",
		"content.root_dir",
		"content.timeout_secs",
		"storage.db_path",
		"storage.max_entries",
		"prompts.library",
		"dialog.text_length",
		"dialog.rich_text",
		"server.addr",
		"server.allowed_paths",
		"server.rate_limit",
		"server.rate_burst",
		"server.auth_token",
		"server.cors_origins",
		"server.max_streams",
		"server.stream_expiry_secs",
		"ui.theme",
		"ui.markdown_style",
		"ui.code_style",
		"ui.preview",
	}
}

// IsSecretKey reports whether key holds a credential that must not be
// printed.
func IsSecretKey(key string) bool {
	return key == "openrouter.key" || key == "server.auth_token"
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.AllowedPaths = append([]string(nil), c.Server.AllowedPaths...)
	clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return &clone
}

// String returns the config as JSON with credentials redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.OpenRouter.Key != "" {
		safe.OpenRouter.Key = "[REDACTED]"
	}
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
// The previous configuration stays in place when loading fails.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
