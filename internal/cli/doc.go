// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the threadkit command line.
//
// Commands:
//
//	threadkit thread create [--message role:content]... [--metadata k=v]...
//	threadkit thread get <thread-id>
//	threadkit thread update <thread-id> (--metadata k=v... | --clear)
//	threadkit thread delete <thread-id> [--yes]
//	threadkit message create <thread-id> --content <text|-> [--role owner|assistant] [--file-id id]...
//	threadkit config show | get <key> | set <key> <value> | path
//	threadkit auth login | status
//	threadkit version
//
// Every command accepts --output text|json|yaml. JSON output is wrapped in a
// JSONResponse envelope, including errors. The process exit code is chosen by
// GetExitCode.
package cli
