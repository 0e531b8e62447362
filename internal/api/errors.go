// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/threadkit/internal/util"
)

// Sentinel errors. APIError matches the status-based ones through errors.Is.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized matches 401 and 403 responses.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrRateLimited matches 429 responses.
	ErrRateLimited = errors.New("rate limited")

	// ErrBadRequest matches 400 and 422 responses.
	ErrBadRequest = errors.New("invalid request")

	// ErrServer matches 5xx responses.
	ErrServer = errors.New("server error")

	// ErrResponseTooLarge indicates the body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response exceeded maximum size")
)

// APIError is a non-success response from the remote service.
type APIError struct {
	Status    int
	Code      string
	Type      string
	Param     string
	Message   string
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// Is reports whether target is the sentinel for this error's status class.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrServer:
		return e.Status >= 500 && e.Status < 600
	}
	return false
}

// SchemaError means a body could not be mapped onto the expected structure:
// an unknown discriminator, a type mismatch or malformed JSON.
type SchemaError struct {
	Op      string
	Err     error
	Snippet string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := "schema error"
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (body: %s)", e.Snippet)
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Schemaf builds a SchemaError with a formatted cause.
func Schemaf(op, format string, args ...any) *SchemaError {
	return &SchemaError{Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapSchema wraps err as a SchemaError unless it already carries one.
func WrapSchema(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SchemaError
	if errors.As(err, &se) {
		return err
	}
	return &SchemaError{Op: op, Err: err}
}

// TransportError is a network-level failure: connection refused, TLS,
// timeout, cancelled context or an unreadable body.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// apiErrorResponse is the error envelope returned by the service.
type apiErrorResponse struct {
	Error *struct {
		Message string  `json:"message"`
		Type    string  `json:"type"`
		Param   *string `json:"param"`
		Code    *string `json:"code"`
	} `json:"error"`
}

// parseAPIError converts a non-success response into an APIError.
// Bodies that are not the standard envelope are kept verbatim as the message.
func parseAPIError(status int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{
		Status:    status,
		RequestID: header.Get("X-Request-Id"),
	}

	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Type = envelope.Error.Type
		if envelope.Error.Param != nil {
			apiErr.Param = *envelope.Error.Param
		}
		if envelope.Error.Code != nil {
			apiErr.Code = *envelope.Error.Code
		}
		return apiErr
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr.Message = util.TruncateRunes(msg, 512)
	return apiErr
}
