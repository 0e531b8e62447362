// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP layer shared by the resource clients.
//
// A Client knows the base URL, the API key and the headers the service
// expects. It performs exactly one request per call: no retries, no
// batching, no caching. Typed helpers Get, Post and Delete decode the
// response into the caller's type.
//
// # Errors
//
// Every failure is one of three kinds:
//
//   - *APIError: the service answered with a non-success status. errors.Is
//     matches ErrNotFound, ErrUnauthorized, ErrRateLimited, ErrBadRequest and
//     ErrServer by status.
//   - *SchemaError: the body could not be decoded into the expected shape.
//   - *TransportError: the request never produced a readable response.
//     It unwraps to the underlying cause, so context.Canceled stays visible.
//
// # Usage
//
//	client := api.NewClient(key).WithBaseURL("https://api.openai.com/v1")
//	thread, err := api.Get[threads.Thread](ctx, client, "threads/thread_abc")
//
// The process-wide client returned by Default is configured with SetKey.
package api
