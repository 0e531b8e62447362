// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var overrideVars = []string{
	"THREADKIT_API_KEY",
	"OPENAI_API_KEY",
	"THREADKIT_BASE_URL",
	"THREADKIT_ORGANIZATION",
	"THREADKIT_BETA",
	"THREADKIT_TIMEOUT_SECS",
	"THREADKIT_LOG_LEVEL",
	"THREADKIT_OUTPUT",
}

// isolate points the config dir at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("THREADKIT_HOME", dir)
	for _, name := range overrideVars {
		t.Setenv(name, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
}

// =============================================================================
// GLOBAL
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.API.Organization = "org-test"
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

// TestConfig_ConcurrentMixedOperations mixes Global, SetGlobal and ReloadGlobal.
func TestConfig_ConcurrentMixedOperations(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 90; i++ {
		wg.Add(1)
		switch i % 3 {
		case 0:
			go func() {
				defer wg.Done()
				if Global() == nil {
					t.Error("Global() returned nil")
				}
			}()
		case 1:
			go func() {
				defer wg.Done()
				SetGlobal(Default())
			}()
		case 2:
			go func() {
				defer wg.Done()
				_ = ReloadGlobal()
			}()
		}
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	cfg := Global()
	require.NotNil(t, cfg)
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "https://api.openai.com/v1", cfg.API.BaseURL)
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	_ = Global()
	custom := Default()
	custom.API.Organization = "org-custom"
	SetGlobal(custom)

	assert.Equal(t, "org-custom", Global().API.Organization)
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "assistants=v1", cfg.BetaHeader())
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Empty(t, cfg.API.Key)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "api.example.com/v1" }, "api.base_url"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.TimeoutSecs = 0 }, "api.timeout_secs"},
		{"huge timeout", func(c *Config) { c.API.TimeoutSecs = MaxTimeoutSecs + 1 }, "api.timeout_secs"},
		{"key with space", func(c *Config) { c.API.Key = "sk bad" }, "api.key"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"output format", func(c *Config) { c.Output.Format = "csv" }, "output.format"},
		{"color", func(c *Config) { c.Output.Color = "sometimes" }, "output.color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Output.Format = "csv"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "output.format")
}

func TestConfig_ValidateCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "DEBUG"
	cfg.Output.Format = "JSON"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{API: APIConfig{BaseURL: "http://localhost:8080/v1/"}}
	cfg.SetDefaults()
	assert.Equal(t, "http://localhost:8080/v1", cfg.API.BaseURL)
	assert.Equal(t, 60, cfg.API.TimeoutSecs)
	assert.Equal(t, "auto", cfg.Output.Color)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_BetaDisabled(t *testing.T) {
	cfg := Default()
	cfg.API.Beta = "NONE"
	assert.Empty(t, cfg.BetaHeader())
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[api]
key = "sk-from-file"
base_url = "http://localhost:9000/v1"
timeout_secs = 15

[output]
format = "yaml"
`, 0644)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.API.Key)
	assert.Equal(t, "http://localhost:9000/v1", cfg.API.BaseURL)
	assert.Equal(t, 15, cfg.API.TimeoutSecs)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "warn", cfg.Log.Level, "unset keys keep defaults")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{"api":{"organization":"org-json"}}`, 0600)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "org-json", cfg.API.Organization)
}

func TestLoad_TOMLPreferredOverJSON(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[api]\norganization = \"org-toml\"\n", 0600)
	writeFile(t, filepath.Join(dir, "config.json"), `{"api":{"organization":"org-json"}}`, 0600)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "org-toml", cfg.API.Organization)
}

func TestLoad_BrokenFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[api\nkey = ", 0600)

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().API, cfg.API)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[log]\nlevel = \"chatty\"\n", 0600)

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadFromPath_Missing(t *testing.T) {
	isolate(t)
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("THREADKIT_BASE_URL", "http://127.0.0.1:1/v1")
	t.Setenv("THREADKIT_ORGANIZATION", "org-env")
	t.Setenv("THREADKIT_BETA", "none")
	t.Setenv("THREADKIT_TIMEOUT_SECS", "5")
	t.Setenv("THREADKIT_LOG_LEVEL", "debug")
	t.Setenv("THREADKIT_OUTPUT", "json")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "http://127.0.0.1:1/v1", cfg.API.BaseURL)
	assert.Equal(t, "org-env", cfg.API.Organization)
	assert.Empty(t, cfg.BetaHeader())
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestApplyEnvOverrides_BadTimeoutIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("THREADKIT_TIMEOUT_SECS", "soon")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 60, cfg.API.TimeoutSecs)
}

func TestApplyEnvOverrides_KeyPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-openai", cfg.API.Key)

	cfg = Default()
	cfg.API.Key = "sk-file"
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-file", cfg.API.Key, "file key beats OPENAI_API_KEY")

	t.Setenv("THREADKIT_API_KEY", "sk-threadkit")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-threadkit", cfg.API.Key)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	t.Setenv("THREADKIT_ORGANIZATION", "org-real")
	t.Setenv("THREADKIT_BETA", "")
	require.NoError(t, os.Unsetenv("THREADKIT_BETA"))

	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "THREADKIT_ORGANIZATION=org-dotenv\nTHREADKIT_BETA=assistants=v2\n", 0600)

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "org-real", os.Getenv("THREADKIT_ORGANIZATION"), "real env wins")
	assert.Equal(t, "assistants=v2", os.Getenv("THREADKIT_BETA"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

// =============================================================================
// SAVING
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.API.Key = "sk-save"
	cfg.API.Organization = "org-save"
	cfg.Log.Format = "json"
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# threadkit configuration file"))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveJSON_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Output.Color = "never"
	require.NoError(t, SaveTo(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_UsesConfigDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, Save(Default()))
	assert.FileExists(t, filepath.Join(dir, "config.toml"))
}

// =============================================================================
// GET / SET
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("api.base_url", "http://localhost:1234/v1"))
	got, err := cfg.Get("api.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234/v1", got)

	require.NoError(t, cfg.Set("api.timeout_secs", "30"))
	assert.Equal(t, 30, cfg.API.TimeoutSecs)

	require.NoError(t, cfg.Set("api.timeout_secs", 45))
	assert.Equal(t, 45, cfg.API.TimeoutSecs)

	require.NoError(t, cfg.Set("output.format", "yaml"))
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestConfig_GetSetErrors(t *testing.T) {
	cfg := Default()

	_, err := cfg.Get("api.nope")
	assert.ErrorContains(t, err, "unknown field: api.nope")

	_, err = cfg.Get("api")
	assert.ErrorContains(t, err, "section")

	_, err = cfg.Get("version.sub")
	assert.ErrorContains(t, err, "not a struct")

	_, err = cfg.Get("")
	assert.Error(t, err)

	assert.ErrorContains(t, cfg.Set("api.timeout_secs", "ten"), "invalid integer")
	assert.Error(t, cfg.Set("api.timeout_secs", nil))
	assert.Error(t, cfg.Set("api.base_url", 12))
}

func TestGetAllKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestConfig_StringMasksKey(t *testing.T) {
	cfg := Default()
	cfg.API.Key = "sk-very-secret-value"

	s := cfg.String()
	assert.NotContains(t, s, "sk-very-secret-value")
	assert.Contains(t, s, "REDACTED")
	assert.Equal(t, "sk-very-secret-value", cfg.API.Key, "source untouched")
	assert.True(t, IsSecretKey("api.key"))
	assert.False(t, IsSecretKey("api.base_url"))
}

func TestActivePath(t *testing.T) {
	dir := isolate(t)

	path, err := ActivePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), path)

	writeFile(t, filepath.Join(dir, "config.json"), `{}`, 0600)
	path, err = ActivePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), path)

	writeFile(t, filepath.Join(dir, "config.toml"), ``, 0600)
	path, err = ActivePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), path)
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	dir := isolate(t)
	t.Setenv("THREADKIT_API_KEY", "sk-from-env")
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[api]\nkey = \"sk-from-file\"\n", 0600)

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.API.Key)
	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestReadFile_Missing(t *testing.T) {
	dir := isolate(t)

	cfg, err := ReadFile(filepath.Join(dir, "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
