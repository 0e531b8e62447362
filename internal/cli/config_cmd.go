// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Inspect and edit the configuration file.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/threadkit/internal/config"
	"github.com/jeranaias/threadkit/internal/logging"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change configuration",
	}
	cmd.AddCommand(
		newConfigShowCommand(a),
		newConfigGetCommand(a),
		lenient(newConfigSetCommand(a)),
		lenient(newConfigPathCommand(a)),
	)
	return cmd
}

// displayValue formats a config value, masking secrets unless reveal is set.
func displayValue(key string, value any, reveal bool) string {
	s := fmt.Sprint(value)
	if config.IsSecretKey(key) && !reveal {
		return logging.Mask(s)
	}
	if s == "" {
		return "(empty)"
	}
	return s
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  "Show the effective configuration after environment variables and flags are applied.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := config.GetAllKeys()
			rows := make([][2]string, 0, len(keys))
			data := make(map[string]string, len(keys))
			for _, key := range keys {
				value, err := a.cfg.Get(key)
				if err != nil {
					return err
				}
				shown := displayValue(key, value, false)
				rows = append(rows, [2]string{key, shown})
				data[key] = shown
			}
			return a.printer.keyValues(data, rows)
		},
	}
}

func newConfigGetCommand(a *app) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:     "get <key>",
		Short:   "Print one configuration value",
		Example: "  threadkit config get api.base_url",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := a.cfg.Get(key)
			if err != nil {
				return NewValidationError("key", key, err.Error())
			}
			shown := displayValue(key, value, reveal)
			return a.printer.emit(map[string]string{"key": key, "value": shown}, func(w io.Writer) {
				fmt.Fprintln(w, shown)
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print secret values unmasked")
	return cmd
}

// configFilePath returns the file config set and auth login write to.
func (a *app) configFilePath() (string, error) {
	if a.opts.configPath != "" {
		return a.opts.configPath, nil
	}
	path, err := config.ActivePath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}

// updateConfigFile applies set to the stored configuration and saves it.
// Environment overrides are not written back.
func (a *app) updateConfigFile(set func(cfg *config.Config) error) (string, error) {
	path, err := a.configFilePath()
	if err != nil {
		return "", err
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		logging.L().Warn("config_replaced", "path", path, "error", err)
		cfg = config.Default()
	}
	if err := set(cfg); err != nil {
		return "", err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return "", &usageError{err: err}
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return "", &ConfigError{Path: path, Err: err}
	}
	return path, nil
}

func newConfigSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change a value in the configuration file",
		Example: "  threadkit config set api.timeout_secs 120",
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			path, err := a.updateConfigFile(func(cfg *config.Config) error {
				if err := cfg.Set(key, value); err != nil {
					return NewValidationError("key", key, err.Error())
				}
				return nil
			})
			if err != nil {
				return err
			}
			shown := displayValue(key, value, false)
			return a.printer.success(map[string]string{"key": key, "value": shown, "path": path},
				"%s = %s (%s)", key, shown, path)
		},
	}
}

func newConfigPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.configFilePath()
			if err != nil {
				return err
			}
			return a.printer.emit(map[string]string{"path": path}, func(w io.Writer) {
				fmt.Fprintln(w, path)
			})
		},
	}
}
