// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across threadkit.
//
// # Key Functions
//
//   - TruncateRunes: UTF-8 safe truncation with ellipsis, used for error bodies
//   - TruncateWidth, PadRight, StringWidth: display-width aware helpers for
//     terminal tables
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
