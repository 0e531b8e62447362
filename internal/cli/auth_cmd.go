// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Store and inspect the API key.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/threadkit/internal/config"
	"github.com/jeranaias/threadkit/internal/logging"
)

func newAuthCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the API key",
	}
	cmd.AddCommand(
		lenient(newAuthLoginCommand(a)),
		newAuthStatusCommand(a),
	)
	return cmd
}

type authStatus struct {
	Configured  bool   `json:"configured"`
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint,omitempty"`
	BaseURL     string `json:"base_url"`
	Path        string `json:"path,omitempty"`
}

func newAuthLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Save an API key to the configuration file",
		Long: `Save an API key to the configuration file.

The key is read without echo from a terminal, or from the first line of stdin:

  echo "$KEY" | threadkit auth login`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := readSecret(a.in, a.errOut, "API key")
			if err != nil {
				return err
			}
			if key == "" {
				return NewValidationError("API key", "", "must not be empty")
			}

			path, err := a.updateConfigFile(func(cfg *config.Config) error {
				cfg.API.Key = key
				return nil
			})
			if err != nil {
				return err
			}
			logging.L().Info("api_key_saved", "path", path, "fingerprint", logging.Fingerprint(key))

			status := authStatus{
				Configured:  true,
				Key:         logging.Mask(key),
				Fingerprint: logging.Fingerprint(key),
				BaseURL:     a.cfg.API.BaseURL,
				Path:        path,
			}
			return a.printer.success(status, "saved API key %s to %s", status.Fingerprint, path)
		},
	}
}

func newAuthStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is configured",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := authStatus{
				Configured: a.client.IsConfigured(),
				Key:        a.client.APIKeyMasked(),
				BaseURL:    a.client.BaseURL(),
			}
			if status.Configured {
				status.Fingerprint = a.client.KeyFingerprint()
			}

			return a.printer.emit(status, func(w io.Writer) {
				state := ErrorStyle.Render("not configured")
				if status.Configured {
					state = SuccessStyle.Render("configured")
				}
				fmt.Fprintf(w, "%s%s\n", RenderLabel("API key"), state)
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Key"), status.Key)
				if status.Fingerprint != "" {
					fmt.Fprintf(w, "%s%s\n", RenderLabel("Fingerprint"), status.Fingerprint)
				}
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Base URL"), status.BaseURL)
			})
		},
	}
}
