// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/threadkit/internal/logging"
	"github.com/jeranaias/threadkit/internal/util"
)

// CurrentVersion is the configuration schema version written by Save.
const CurrentVersion = "1"

// BetaDisabled as api.beta suppresses the OpenAI-Beta header.
const BetaDisabled = "none"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete threadkit configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Remote API settings
	API APIConfig `toml:"api" json:"api"`

	// Logging settings
	Log LogConfig `toml:"log" json:"log"`

	// CLI output settings
	Output OutputConfig `toml:"output" json:"output"`
}

// APIConfig contains remote API settings.
type APIConfig struct {
	Key          string `toml:"key" json:"key"`
	BaseURL      string `toml:"base_url" json:"base_url"`
	Organization string `toml:"organization" json:"organization"`
	// Beta is sent as the OpenAI-Beta header. "none" disables the header.
	Beta        string `toml:"beta" json:"beta"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`   // debug, info, warn, error
	Format string `toml:"format" json:"format"` // text, json
}

// OutputConfig contains CLI output settings.
type OutputConfig struct {
	Format string `toml:"format" json:"format"` // text, json, yaml
	Color  string `toml:"color" json:"color"`   // auto, always, never
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Beta:        "assistants=v1",
			TimeoutSecs: 60,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// BetaHeader returns the OpenAI-Beta header value, empty when disabled.
func (c *Config) BetaHeader() string {
	if strings.EqualFold(c.API.Beta, BetaDisabled) {
		return ""
	}
	return c.API.Beta
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the threadkit configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("THREADKIT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".threadkit"), nil
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

// ensureSecurePermissions tightens config files to 0600 since they hold the API key.
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

// LoadDotEnv loads environment variables from the given files, or ./.env when
// none are given. Variables already set in the environment win. Missing files
// are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads configuration from the config directory.
// Tries TOML first, then JSON, and falls back to defaults. A file that fails
// to parse is reported alongside the default configuration.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		logging.L().Warn("dotenv_load_failed", "error", err)
	}

	cfg := Default()
	var loadErr error

	tomlPath, tomlErr := ConfigPathTOML()
	jsonPath, jsonErr := ConfigPathJSON()
	switch {
	case tomlErr == nil && fileExists(tomlPath):
		if err := LoadTOML(cfg, tomlPath); err != nil {
			loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			cfg = Default()
		}
	case jsonErr == nil && fileExists(jsonPath):
		if err := LoadJSON(cfg, jsonPath); err != nil {
			loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			cfg = Default()
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file. The file must exist.
func LoadFromPath(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		logging.L().Warn("dotenv_load_failed", "error", err)
	}

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

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ActivePath returns the config file Load reads: the TOML file, or the JSON
// file when only that one exists.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if fileExists(tomlPath) {
		return tomlPath, nil
	}
	if jsonPath, err := ConfigPathJSON(); err == nil && fileExists(jsonPath) {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// ReadFile returns the configuration stored in path without environment
// overrides. A missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	if !fileExists(path) {
		return cfg, nil
	}
	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		logging.L().Warn("config_permissions", "path", path, "error", err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logging.L().Warn("config_unknown_keys", "path", path, "keys", fmt.Sprint(undecoded))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		logging.L().Warn("config_permissions", "path", path, "error", err)
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

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# threadkit configuration file\n")
	buf.WriteString("# Generated by threadkit - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON to path with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveTo writes cfg to path, choosing JSON for a .json suffix and TOML otherwise.
func SaveTo(cfg *Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validLogLevels     = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats    = []string{"text", "json"}
	validOutputFormats = []string{"text", "json", "yaml"}
	validColorModes    = []string{"auto", "always", "never"}
)

// MaxTimeoutSecs is the largest accepted api.timeout_secs.
const MaxTimeoutSecs = 600

func oneOf(field, value string, allowed []string) *ValidationError {
	lower := strings.ToLower(value)
	for _, a := range allowed {
		if lower == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("invalid value '%s', must be one of: %s", value, strings.Join(allowed, ", ")),
	}
}

// Validate validates the configuration and returns ValidateErrors when any
// field is invalid.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http or https URL", c.API.BaseURL),
		})
	}

	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > MaxTimeoutSecs {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and %d, got %d", MaxTimeoutSecs, c.API.TimeoutSecs),
		})
	}

	if strings.ContainsAny(c.API.Key, " \t\r\n") {
		errs = append(errs, ValidationError{Field: "api.key", Message: "must not contain whitespace"})
	}

	for _, e := range []*ValidationError{
		oneOf("log.level", c.Log.Level, validLogLevels),
		oneOf("log.format", c.Log.Format, validLogFormats),
		oneOf("output.format", c.Output.Format, validOutputFormats),
		oneOf("output.color", c.Output.Color, validColorModes),
	} {
		if e != nil {
			errs = append(errs, *e)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty fields with their default values.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Beta == "" {
		c.API.Beta = d.API.Beta
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Output.Format == "" {
		c.Output.Format = d.Output.Format
	}
	if c.Output.Color == "" {
		c.Output.Color = d.Output.Color
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
//   - THREADKIT_API_KEY: overrides api.key
//   - OPENAI_API_KEY: used for api.key when nothing else set it
//   - THREADKIT_BASE_URL: overrides api.base_url
//   - THREADKIT_ORGANIZATION: overrides api.organization
//   - THREADKIT_BETA: overrides api.beta
//   - THREADKIT_TIMEOUT_SECS: overrides api.timeout_secs
//   - THREADKIT_LOG_LEVEL: overrides log.level
//   - THREADKIT_OUTPUT: overrides output.format
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("THREADKIT_API_KEY"); key != "" {
		c.API.Key = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.API.Key == "" {
		c.API.Key = key
	}

	if baseURL := os.Getenv("THREADKIT_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}

	if org := os.Getenv("THREADKIT_ORGANIZATION"); org != "" {
		c.API.Organization = org
	}

	if beta := os.Getenv("THREADKIT_BETA"); beta != "" {
		c.API.Beta = beta
	}

	if secs := os.Getenv("THREADKIT_TIMEOUT_SECS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil {
			c.API.TimeoutSecs = n
		} else {
			logging.L().Warn("invalid_env_override", "name", "THREADKIT_TIMEOUT_SECS", "value", secs)
		}
	}

	if level := os.Getenv("THREADKIT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if format := os.Getenv("THREADKIT_OUTPUT"); format != "" {
		c.Output.Format = format
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// lookup walks key ("api.base_url") down the struct fields.
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

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if field.Kind() == reflect.Struct {
		return nil, fmt.Errorf("key '%s' is a section, not a value", key)
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("key '%s' is a section, not a value", key)
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
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

// setFieldValue sets a reflect.Value from an arbitrary value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %w", err)
			}
			field.SetBool(boolVal)
			return nil
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
	if val.Type().ConvertibleTo(field.Type()) && field.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.key",
		"api.base_url",
		"api.organization",
		"api.beta",
		"api.timeout_secs",
		"log.level",
		"log.format",
		"output.format",
		"output.color",
	}
}

// IsSecretKey reports whether the value of key must be masked when displayed.
func IsSecretKey(key string) bool {
	return strings.EqualFold(key, "api.key")
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as JSON with the API key masked.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.Key != "" {
		safe.API.Key = logging.Mask(safe.API.Key)
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

// Global returns the global configuration instance, loading it on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if cfg == nil {
			cfg = Default()
		}
		if err != nil {
			logging.L().Warn("config_load_failed", "error", err)
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

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
