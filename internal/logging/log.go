// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging owns the process-wide structured logger.
//
// The logger writes to stderr at warn level until Init is called, so library
// use without any setup stays quiet. Level and format come from the caller
// (usually config) with THREADKIT_LOG_LEVEL as a fallback.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu  sync.RWMutex
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a slog level.
// Anything else yields info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs a new process-wide logger writing to w (stderr when nil).
// format is "json" or "text". An empty level falls back to THREADKIT_LOG_LEVEL.
func Init(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if strings.TrimSpace(level) == "" {
		level = os.Getenv("THREADKIT_LOG_LEVEL")
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	SetLogger(l)
	return l
}

// L returns the process-wide logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger replaces the process-wide logger. A nil logger is ignored.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	log = l
	mu.Unlock()
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fingerprint returns a short SHA-256 based identifier for a secret.
// It never exposes any part of the secret itself.
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:4])
}

// Mask renders a secret for display as its length and fingerprint.
func Mask(secret string) string {
	if secret == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(secret), Fingerprint(secret))
}
