// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"strings"

	"github.com/jeranaias/threadkit/internal/threads"
)

// parseMetadata parses repeated key=value flags. Later keys win.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, NewValidationErrorWithExample("--metadata", pair, "expected key=value", "--metadata topic=billing")
		}
		metadata[key] = value
	}
	return metadata, nil
}

// parseMessage parses a role:content flag into a message.
func parseMessage(s string) (threads.Message, error) {
	roleText, content, ok := strings.Cut(s, ":")
	if !ok {
		return threads.Message{}, NewValidationErrorWithExample("--message", s, "expected role:content", "--message owner:Hello")
	}
	role, err := threads.ParseRole(strings.TrimSpace(roleText))
	if err != nil {
		return threads.Message{}, NewValidationErrorWithExample("--message", s, roleReason(err), "--message owner:Hello")
	}
	return threads.Message{Role: role, Content: content, Metadata: map[string]string{}}, nil
}

func parseRoleFlag(s string) (threads.Role, error) {
	role, err := threads.ParseRole(strings.TrimSpace(s))
	if err != nil {
		return "", NewValidationErrorWithExample("--role", s, roleReason(err), "--role assistant")
	}
	return role, nil
}

func roleReason(err error) string {
	if errors.Is(err, threads.ErrUnknownRole) {
		return "role must be owner or assistant"
	}
	return err.Error()
}
