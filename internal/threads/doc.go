// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package threads models assistant threads and messages and maps each
// remote operation onto a single HTTP request.
//
// # Key Types
//
//   - Thread: a persisted conversation container
//   - Message: a turn submitted when creating a thread
//   - MessageObject: a message as stored by the service
//   - Content, Annotation: tagged unions discriminated by "type"
//   - Service: create, fetch, update and delete threads, append messages
//
// # Usage
//
//	svc := threads.NewService(api.NewClient(key))
//	thread, err := svc.Create(ctx, []threads.Message{threads.NewOwnerMessage("hi")}, nil)
//	msg, err := svc.CreateMessage(ctx, thread.ID, threads.RoleOwner, "hello", nil, nil)
//
// Decoding problems surface as *api.SchemaError, remote failures as
// *api.APIError and network failures as *api.TransportError.
package threads
