// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, exit codes and error display for CLI commands.
//
// Commands always return errors; Execute displays them once and maps them to
// an exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jeranaias/threadkit/internal/api"
	"github.com/jeranaias/threadkit/internal/config"
	"github.com/jeranaias/threadkit/internal/threads"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected API key
	ExitAuthError = 4
	// ExitNetworkError indicates the API could not be reached
	ExitNetworkError = 5
	// ExitRemoteError indicates the API rejected the request or sent an unusable response
	ExitRemoteError = 6
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "thread")
	Action  string // Action being performed (e.g., "delete")
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Flag or argument that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps failures to load or save configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("configuration error (%s): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// usageError marks errors reported by cobra for bad flags or arguments.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		validationErr *ValidationError
		usageErr      *usageError
		ttyErr        *TTYRequiredError
		configErr     *ConfigError
		configInvalid config.ValidateErrors
		apiErr        *api.APIError
		schemaErr     *api.SchemaError
		transportErr  *api.TransportError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &usageErr), errors.As(err, &ttyErr),
		errors.Is(err, threads.ErrEmptyID):
		return ExitUsageError
	case errors.As(err, &configErr), errors.As(err, &configInvalid):
		return ExitConfigError
	case errors.Is(err, api.ErrNotConfigured), errors.Is(err, api.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFoundError
	case isTimeout(err):
		return ExitTimeoutError
	case errors.As(err, &transportErr):
		return ExitNetworkError
	case errors.As(err, &apiErr), errors.As(err, &schemaErr):
		return ExitRemoteError
	}
	return ExitGeneralError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorType names the class of err for JSON output.
func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "usage_error"
	case ExitConfigError:
		return "config_error"
	case ExitAuthError:
		return "auth_error"
	case ExitNetworkError:
		return "network_error"
	case ExitRemoteError:
		var schemaErr *api.SchemaError
		if errors.As(err, &schemaErr) {
			return "schema_error"
		}
		return "api_error"
	case ExitNotFoundError:
		return "not_found_error"
	case ExitTimeoutError:
		return "timeout_error"
	}
	return "generic_error"
}

// errorHint returns a short suggestion for resolving err, or "".
func errorHint(err error) string {
	switch {
	case errors.Is(err, api.ErrNotConfigured):
		return "Run 'threadkit auth login' or set THREADKIT_API_KEY."
	case errors.Is(err, api.ErrUnauthorized):
		return "Check the API key with 'threadkit auth status'."
	case isTimeout(err):
		return "Increase the timeout with --timeout or api.timeout_secs."
	}
	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return "Check the network connection and api.base_url."
	}
	return ""
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSONResponse when jsonMode is set.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}

	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.ErrorType = errorType(err)
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			resp.Details = map[string]any{
				"status":     apiErr.Status,
				"type":       apiErr.Type,
				"code":       apiErr.Code,
				"param":      apiErr.Param,
				"request_id": apiErr.RequestID,
			}
		}
		_ = resp.Write(w)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.RequestID != "" {
		fmt.Fprintln(w, DimStyle.Render("request id: "+apiErr.RequestID))
	}
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}
