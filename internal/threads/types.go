// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package threads

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/threadkit/internal/api"
)

// MaxFileIDs is the number of files the service accepts per message.
// The limit is enforced remotely; this package does not check it.
const MaxFileIDs = 10

// ErrUnknownRole is wrapped by the SchemaError returned for invalid roles.
var ErrUnknownRole = errors.New("unknown role")

// =============================================================================
// ROLE
// =============================================================================

// Role is the author of a message.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAssistant Role = "assistant"
)

// ParseRole returns the Role for s. Anything but "owner" or "assistant"
// yields a *api.SchemaError wrapping ErrUnknownRole.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleAssistant:
		return Role(s), nil
	}
	return "", &api.SchemaError{Op: "role", Err: fmt.Errorf("%w %q", ErrUnknownRole, s)}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAssistant
}

func (r Role) String() string {
	return string(r)
}

// MarshalJSON refuses to encode roles the service does not know.
func (r Role) MarshalJSON() ([]byte, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts only "owner" and "assistant".
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &api.SchemaError{Op: "role", Err: err}
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// =============================================================================
// THREAD
// =============================================================================

// Thread is a persisted conversation container.
type Thread struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	CreatedAt int64          `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

// UnmarshalJSON fills an empty metadata map when the field is absent or null,
// and accepts the legacy "created" timestamp.
func (t *Thread) UnmarshalJSON(data []byte) error {
	type plain Thread
	var raw struct {
		plain
		Created *int64 `json:"created"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.WrapSchema("thread", err)
	}
	*t = Thread(raw.plain)
	if t.CreatedAt == 0 && raw.Created != nil {
		t.CreatedAt = *raw.Created
	}
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	return nil
}

// Created returns the creation time.
func (t Thread) Created() time.Time {
	return time.Unix(t.CreatedAt, 0)
}

// DeletedThread confirms a delete.
type DeletedThread struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// =============================================================================
// MESSAGE (REQUEST SIDE)
// =============================================================================

// Message is a turn sent along with a thread creation request.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the text of the message.
	Content string `json:"content"`
	// FileIDs lists files the message should use, at most MaxFileIDs.
	FileIDs []string `json:"file_ids,omitempty"`
	// Metadata is free-form string metadata.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewOwnerMessage creates a message authored by the owner.
func NewOwnerMessage(content string) Message {
	return Message{Role: RoleOwner, Content: content, Metadata: map[string]string{}}
}

// NewAssistantMessage creates a message authored by the assistant.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Metadata: map[string]string{}}
}

// UnmarshalJSON decodes absent metadata as an empty map.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.WrapSchema("message", err)
	}
	*m = Message(raw)
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	return nil
}

// CreateThreadRequest is the body of a thread creation request.
type CreateThreadRequest struct {
	Messages []Message         `json:"messages"`
	Metadata map[string]string `json:"metadata"`
}

// NewCreateThreadRequest returns an empty request ready for AddMessage.
func NewCreateThreadRequest() *CreateThreadRequest {
	return &CreateThreadRequest{Messages: []Message{}, Metadata: map[string]string{}}
}

// AddMessage appends a message and returns the request for chaining.
func (r *CreateThreadRequest) AddMessage(m Message) *CreateThreadRequest {
	r.Messages = append(r.Messages, m)
	return r
}

// SetMetadata sets one metadata entry and returns the request for chaining.
func (r *CreateThreadRequest) SetMetadata(key, value string) *CreateThreadRequest {
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	r.Metadata[key] = value
	return r
}

// body returns a copy that always encodes both fields as JSON containers.
func (r *CreateThreadRequest) body() CreateThreadRequest {
	out := CreateThreadRequest{Messages: r.Messages, Metadata: r.Metadata}
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}

// UpdateThreadRequest replaces the metadata of a thread.
type UpdateThreadRequest struct {
	Metadata map[string]string `json:"metadata"`
}

// CreateMessageRequest appends a message to a thread.
type CreateMessageRequest struct {
	Role     Role              `json:"role"`
	Content  string            `json:"content"`
	FileIDs  []string          `json:"file_ids,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// =============================================================================
// MESSAGE OBJECT (RESPONSE SIDE)
// =============================================================================

// IncompleteDetails explains why a message is incomplete.
type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// MessageObject is a message as persisted by the service.
type MessageObject struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"`
	CreatedAt         int64              `json:"created_at"`
	ThreadID          string             `json:"thread_id"`
	Status            string             `json:"status,omitempty"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	Role              Role               `json:"role"`
	Content           []Content          `json:"content"`
	AssistantID       string             `json:"assistant_id,omitempty"`
	RunID             string             `json:"run_id,omitempty"`
	FileIDs           []string           `json:"file_ids,omitempty"`
	Metadata          map[string]string  `json:"metadata"`
}

// UnmarshalJSON accepts content as an array or as a single object, the legacy
// "created" timestamp, and decodes absent metadata as an empty map.
func (m *MessageObject) UnmarshalJSON(data []byte) error {
	type plain MessageObject
	var raw struct {
		plain
		Created *int64          `json:"created"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.WrapSchema("message object", err)
	}

	content, err := decodeContentList(raw.Content)
	if err != nil {
		return err
	}

	*m = MessageObject(raw.plain)
	m.Content = content
	if m.CreatedAt == 0 && raw.Created != nil {
		m.CreatedAt = *raw.Created
	}
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	return nil
}

// Text joins the values of all text content parts with newlines.
func (m *MessageObject) Text() string {
	var parts []string
	for _, c := range m.Content {
		if c.Text != nil {
			parts = append(parts, c.Text.Value)
		}
	}
	return strings.Join(parts, "\n")
}

// Created returns the creation time.
func (m *MessageObject) Created() time.Time {
	return time.Unix(m.CreatedAt, 0)
}
