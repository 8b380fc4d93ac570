// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/storage"
	"github.com/CaptainASIC/FusionLoom/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete FusionLoom configuration.
type Config struct {
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme"`

	// SaveSessions persists chat history; false keeps it in memory only
	SaveSessions bool `toml:"save_sessions" json:"save_sessions"`

	// LogLevel is debug, info, warn or error
	LogLevel string `toml:"log_level" json:"log_level"`

	// DefaultProvider is the tab opened at startup
	DefaultProvider string `toml:"default_provider" json:"default_provider"`

	Storage StorageConfig  `toml:"storage" json:"storage"`
	Ollama  ProviderConfig `toml:"ollama" json:"ollama"`
	Claude  ProviderConfig `toml:"claude" json:"claude"`
	ChatGPT ProviderConfig `toml:"chatgpt" json:"chatgpt"`
	Gemini  ProviderConfig `toml:"gemini" json:"gemini"`
	Limits  LimitsConfig   `toml:"limits" json:"limits"`
}

// StorageConfig selects where chat history lives.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory"
	Backend string `toml:"backend" json:"backend"`
	// Path overrides the default location under the config directory
	Path string `toml:"path" json:"path"`
}

// ProviderConfig holds one provider's endpoint and credentials.
type ProviderConfig struct {
	URL          string   `toml:"url" json:"url"`
	APIKey       string   `toml:"api_key,omitempty" json:"api_key,omitempty"`
	DefaultModel string   `toml:"default_model" json:"default_model"`
	Timeout      Duration `toml:"timeout" json:"timeout"`
}

// LimitsConfig throttles outgoing provider requests.
type LimitsConfig struct {
	// RequestsPerMinute per provider, 0 = unlimited
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// Duration is a time.Duration that reads and writes as "120s" in both
// TOML and JSON.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Theme:           "dark",
		SaveSessions:    true,
		LogLevel:        "info",
		DefaultProvider: string(model.ProviderOllama),
		Storage: StorageConfig{
			Backend: string(storage.KindFile),
		},
		Ollama: ProviderConfig{
			URL:          "http://localhost:11434",
			DefaultModel: model.DefaultModel(model.ProviderOllama),
			Timeout:      Duration{120 * time.Second},
		},
		Claude: ProviderConfig{
			URL:          "https://api.anthropic.com/v1",
			DefaultModel: model.DefaultModel(model.ProviderClaude),
			Timeout:      Duration{60 * time.Second},
		},
		ChatGPT: ProviderConfig{
			URL:          "https://api.openai.com/v1",
			DefaultModel: model.DefaultModel(model.ProviderChatGPT),
			Timeout:      Duration{60 * time.Second},
		},
		Gemini: ProviderConfig{
			URL:          "https://generativelanguage.googleapis.com",
			DefaultModel: model.DefaultModel(model.ProviderGemini),
			Timeout:      Duration{60 * time.Second},
		},
	}
}

// ProviderSettings returns the section for p. Unknown providers get a
// zero value.
func (c *Config) ProviderSettings(p model.Provider) ProviderConfig {
	switch p {
	case model.ProviderOllama:
		return c.Ollama
	case model.ProviderClaude:
		return c.Claude
	case model.ProviderChatGPT:
		return c.ChatGPT
	case model.ProviderGemini:
		return c.Gemini
	}
	return ProviderConfig{}
}

func (c *Config) providerSection(p model.Provider) *ProviderConfig {
	switch p {
	case model.ProviderOllama:
		return &c.Ollama
	case model.ProviderClaude:
		return &c.Claude
	case model.ProviderChatGPT:
		return &c.ChatGPT
	case model.ProviderGemini:
		return &c.Gemini
	}
	return nil
}

// StartProvider returns the configured default provider, or ollama when
// the value is unset or invalid.
func (c *Config) StartProvider() model.Provider {
	p, err := model.ParseProvider(c.DefaultProvider)
	if err != nil {
		return model.ProviderOllama
	}
	return p
}

// StorageOptions resolves the storage backend and its default path.
func (c *Config) StorageOptions() (storage.Options, error) {
	kind := storage.Kind(strings.ToLower(c.Storage.Backend))
	if !c.SaveSessions {
		kind = storage.KindMemory
	}
	opts := storage.Options{Kind: kind, Path: c.Storage.Path}
	if opts.Path != "" || kind == storage.KindMemory {
		return opts, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return opts, err
	}
	switch kind {
	case storage.KindSQLite:
		opts.Path = filepath.Join(dir, "history.db")
	default:
		opts.Path = filepath.Join(dir, "history")
	}
	return opts, nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// EnvHome overrides the configuration directory.
const EnvHome = "FUSIONLOOM_HOME"

// ConfigDir returns the FusionLoom configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".fusionloom"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the log file used while the TUI owns the terminal.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "fusionloom.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files holding API keys to 0600.
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
// Tries TOML first, then JSON, and falls back to defaults. A .env file in
// the working directory is read before environment overrides are applied.
//
// On a decode error the returned Config holds defaults plus overrides and
// the error is informational.
func Load() (*Config, error) {
	var loadErr error

	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		loadErr = err
		break
	}

	cfg := Default()
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg; absent keys keep their values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		logger.Log.Warnf("could not ensure secure permissions on %s: %v", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg; absent keys keep their values.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		logger.Log.Warnf("could not ensure secure permissions on %s: %v", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadDotEnv reads ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Log.Warnf("could not read .env: %v", err)
	}
}

// SetDefaults fills empty fields that must never be blank.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	for _, p := range model.AllProviders() {
		sec, def := c.providerSection(p), defaults.providerSection(p)
		if sec.URL == "" {
			sec.URL = def.URL
		}
		if sec.DefaultModel == "" {
			sec.DefaultModel = def.DefaultModel
		}
		if sec.Timeout.Duration == 0 {
			sec.Timeout = def.Timeout
		}
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

// SaveTOML writes cfg with a header comment, mode 0600.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# FusionLoom configuration file\n")
	buf.WriteString("# Generated by fusionloom - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# API keys may instead come from ANTHROPIC_API_KEY, OPENAI_API_KEY and GEMINI_API_KEY.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON, mode 0600.
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch strings.ToLower(c.Theme) {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.Theme),
		})
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.LogLevel),
		})
	}

	if c.DefaultProvider != "" {
		if _, err := model.ParseProvider(c.DefaultProvider); err != nil {
			errs = append(errs, ValidationError{Field: "default_provider", Message: err.Error()})
		}
	}

	switch storage.Kind(strings.ToLower(c.Storage.Backend)) {
	case storage.KindFile, storage.KindSQLite, storage.KindMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}

	for _, p := range model.AllProviders() {
		sec := c.ProviderSettings(p)
		if sec.URL != "" {
			if err := validateURL(sec.URL); err != nil {
				errs = append(errs, ValidationError{Field: string(p) + ".url", Message: err.Error()})
			}
		}
		if sec.Timeout.Duration < 0 {
			errs = append(errs, ValidationError{Field: string(p) + ".timeout", Message: "cannot be negative"})
		}
	}

	if c.Limits.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "limits.requests_per_minute",
			Message: "cannot be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FUSIONLOOM_THEME: overrides theme
//   - FUSIONLOOM_LOG_LEVEL: overrides log_level
//   - FUSIONLOOM_STORAGE: overrides storage.backend
//   - FUSIONLOOM_SAVE_SESSIONS: "0"/"false" disables persistence
//   - FUSIONLOOM_DEFAULT_PROVIDER: overrides default_provider
//   - OLLAMA_HOST: overrides ollama.url ("host:port" gets an http:// prefix)
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY: provider keys
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FUSIONLOOM_THEME"); v != "" {
		c.Theme = v
	}
	if v := os.Getenv("FUSIONLOOM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FUSIONLOOM_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("FUSIONLOOM_SAVE_SESSIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SaveSessions = b
		}
	}
	if v := os.Getenv("FUSIONLOOM_DEFAULT_PROVIDER"); v != "" {
		c.DefaultProvider = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if !strings.Contains(v, "://") {
			v = "http://" + v
		}
		c.Ollama.URL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Claude.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a copy of the configuration. Config has no reference
// fields, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with API keys masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	for _, p := range model.AllProviders() {
		if sec := safe.providerSection(p); sec.APIKey != "" {
			sec.APIKey = "[REDACTED]"
		}
	}
	return safe
}

// String returns a JSON rendering with API keys redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
