// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// thread_cmd.go - Thread create, get, update and delete commands.

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/threadkit/internal/threads"
)

func newThreadCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "thread",
		Aliases: []string{"threads"},
		Short:   "Create, inspect, update and delete threads",
	}
	cmd.AddCommand(
		newThreadCreateCommand(a),
		newThreadGetCommand(a),
		newThreadUpdateCommand(a),
		newThreadDeleteCommand(a),
	)
	return cmd
}

func newThreadCreateCommand(a *app) *cobra.Command {
	var messages, metadata []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a thread",
		Example: `  threadkit thread create
  threadkit thread create --message "owner:What is in the report?" --metadata topic=reports`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := threads.NewCreateThreadRequest()
			for _, m := range messages {
				msg, err := parseMessage(m)
				if err != nil {
					return err
				}
				req.AddMessage(msg)
			}
			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			for k, v := range md {
				req.SetMetadata(k, v)
			}

			thread, err := a.svc.CreateFrom(cmd.Context(), req)
			if err != nil {
				return NewCommandError("thread", "create", err)
			}
			return a.printer.thread(thread)
		},
	}
	cmd.Flags().StringArrayVarP(&messages, "message", "m", nil, "initial message as role:content (repeatable)")
	cmd.Flags().StringArrayVar(&metadata, "metadata", nil, "metadata as key=value (repeatable)")
	return cmd
}

func newThreadGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <thread-id>",
		Short: "Show a thread",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, err := a.svc.Get(cmd.Context(), args[0])
			if err != nil {
				return NewCommandError("thread", "get", err)
			}
			return a.printer.thread(thread)
		},
	}
}

func newThreadUpdateCommand(a *app) *cobra.Command {
	var metadata []string
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "update <thread-id>",
		Short: "Replace the metadata of a thread",
		Long:  "Replace the metadata of a thread. Keys not given are removed.",
		Example: `  threadkit thread update thread_abc --metadata topic=billing
  threadkit thread update thread_abc --clear`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearAll && len(metadata) > 0 {
				return NewValidationError("--clear", "", "cannot be combined with --metadata")
			}
			if !clearAll && len(metadata) == 0 {
				return NewValidationErrorWithExample("--metadata", "", "nothing to update", "--metadata topic=billing or --clear")
			}
			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			if md == nil {
				md = map[string]string{}
			}

			thread, err := a.svc.Update(cmd.Context(), args[0], md)
			if err != nil {
				return NewCommandError("thread", "update", err)
			}
			return a.printer.thread(thread)
		},
	}
	cmd.Flags().StringArrayVar(&metadata, "metadata", nil, "metadata as key=value (repeatable)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove all metadata")
	return cmd
}

func newThreadDeleteCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a thread",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(a.in, a.errOut, fmt.Sprintf("Delete thread %s?", args[0]))
				var ttyErr *TTYRequiredError
				if errors.As(err, &ttyErr) {
					return NewValidationError("--yes", "", "required when stdin is not a terminal")
				}
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.errOut, DimStyle.Render("Aborted."))
					return nil
				}
			}

			deleted, err := a.svc.Delete(cmd.Context(), args[0])
			if err != nil {
				return NewCommandError("thread", "delete", err)
			}
			return a.printer.deleted(deleted)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
