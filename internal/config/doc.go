// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for threadkit.
//
// Supports both TOML and JSON configuration formats, with defaults, a .env
// file, environment variable overrides and validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - APIConfig: Remote API credentials and endpoint
//   - LogConfig: Log level and handler format
//   - OutputConfig: CLI output format and color
//
// # Configuration Precedence
//
// Configuration is loaded from (highest precedence first):
//   - Environment variables (THREADKIT_*), including those set by ./.env
//   - ~/.threadkit/config.toml
//   - ~/.threadkit/config.json
//   - OPENAI_API_KEY, for the key only
//   - Built-in defaults
//
// THREADKIT_HOME replaces ~/.threadkit as the configuration directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	timeout := cfg.Timeout()
package config
