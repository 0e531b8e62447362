// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// message_cmd.go - Post messages to a thread.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// maxStdinContent bounds message content read from stdin.
const maxStdinContent = 1 << 20

func newMessageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "message",
		Aliases: []string{"msg"},
		Short:   "Post messages to threads",
	}
	cmd.AddCommand(newMessageCreateCommand(a))
	return cmd
}

func newMessageCreateCommand(a *app) *cobra.Command {
	var (
		content  string
		role     string
		fileIDs  []string
		metadata []string
	)

	cmd := &cobra.Command{
		Use:   "create <thread-id>",
		Short: "Append a message to a thread",
		Example: `  threadkit message create thread_abc --content "Summarize the attached file" --file-id file_123
  cat notes.md | threadkit message create thread_abc --content -`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("content") {
				return NewValidationErrorWithExample("--content", "", "message content is required", `--content "Hello"`)
			}
			if content == "-" {
				text, err := readContent(a.in)
				if err != nil {
					return err
				}
				content = text
			}

			r, err := parseRoleFlag(role)
			if err != nil {
				return err
			}
			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}

			msg, err := a.svc.CreateMessage(cmd.Context(), args[0], r, content, fileIDs, md)
			if err != nil {
				return NewCommandError("message", "create", err)
			}
			return a.printer.message(msg)
		},
	}
	cmd.Flags().StringVarP(&content, "content", "c", "", `message text, or "-" to read it from stdin`)
	cmd.Flags().StringVarP(&role, "role", "r", "owner", "message author: owner or assistant")
	cmd.Flags().StringArrayVar(&fileIDs, "file-id", nil, "attach a file by id (repeatable)")
	cmd.Flags().StringArrayVar(&metadata, "metadata", nil, "metadata as key=value (repeatable)")
	return cmd
}

// readContent reads message text from in, dropping one trailing newline.
func readContent(in io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(in, maxStdinContent+1))
	if err != nil {
		return "", fmt.Errorf("failed to read content from stdin: %w", err)
	}
	if len(data) > maxStdinContent {
		return "", NewValidationError("--content", "-", fmt.Sprintf("stdin content exceeds %d bytes", maxStdinContent))
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}
