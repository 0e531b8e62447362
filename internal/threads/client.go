// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package threads

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jeranaias/threadkit/internal/api"
)

// ErrEmptyID is returned before any request is sent when a thread id is blank.
var ErrEmptyID = errors.New("thread id is empty")

// Service performs thread and message operations through an api.Client.
// It is safe for concurrent use.
type Service struct {
	client *api.Client
}

// NewService returns a Service bound to client. A nil client uses api.Default
// at call time.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

func (s *Service) apiClient() *api.Client {
	if s.client != nil {
		return s.client
	}
	return api.Default()
}

func threadPath(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", ErrEmptyID
	}
	return "threads/" + url.PathEscape(id), nil
}

// Create creates a thread seeded with messages and metadata. Nil arguments
// are sent as empty containers.
func (s *Service) Create(ctx context.Context, messages []Message, metadata map[string]string) (*Thread, error) {
	return s.CreateFrom(ctx, &CreateThreadRequest{Messages: messages, Metadata: metadata})
}

// CreateFrom creates a thread from a prepared request.
func (s *Service) CreateFrom(ctx context.Context, req *CreateThreadRequest) (*Thread, error) {
	if req == nil {
		req = NewCreateThreadRequest()
	}
	return api.Post[Thread](ctx, s.apiClient(), "threads", req.body())
}

// Get fetches a thread by id.
func (s *Service) Get(ctx context.Context, id string) (*Thread, error) {
	path, err := threadPath(id)
	if err != nil {
		return nil, err
	}
	return api.Get[Thread](ctx, s.apiClient(), path)
}

// Update replaces the metadata of a thread.
func (s *Service) Update(ctx context.Context, id string, metadata map[string]string) (*Thread, error) {
	path, err := threadPath(id)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return api.Post[Thread](ctx, s.apiClient(), path, UpdateThreadRequest{Metadata: metadata})
}

// Delete deletes a thread.
func (s *Service) Delete(ctx context.Context, id string) (*DeletedThread, error) {
	path, err := threadPath(id)
	if err != nil {
		return nil, err
	}
	return api.Delete[DeletedThread](ctx, s.apiClient(), path)
}

// CreateMessage appends a message to a thread. The number of file ids is not
// checked here; the service rejects more than MaxFileIDs.
func (s *Service) CreateMessage(ctx context.Context, id string, role Role, content string, fileIDs []string, metadata map[string]string) (*MessageObject, error) {
	path, err := threadPath(id)
	if err != nil {
		return nil, err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	req := CreateMessageRequest{Role: role, Content: content, FileIDs: fileIDs, Metadata: metadata}
	return api.Post[MessageObject](ctx, s.apiClient(), path+"/messages", req)
}

// =============================================================================
// DEFAULT CLIENT
// =============================================================================

var defaultService = NewService(nil)

// Create creates a thread using the process-wide client.
func Create(ctx context.Context, messages []Message, metadata map[string]string) (*Thread, error) {
	return defaultService.Create(ctx, messages, metadata)
}

// Get fetches a thread using the process-wide client.
func Get(ctx context.Context, id string) (*Thread, error) {
	return defaultService.Get(ctx, id)
}

// Update replaces thread metadata using the process-wide client.
func Update(ctx context.Context, id string, metadata map[string]string) (*Thread, error) {
	return defaultService.Update(ctx, id, metadata)
}

// Delete deletes a thread using the process-wide client.
func Delete(ctx context.Context, id string) (*DeletedThread, error) {
	return defaultService.Delete(ctx, id)
}

// CreateMessage appends a message using the process-wide client.
func CreateMessage(ctx context.Context, id string, role Role, content string, fileIDs []string, metadata map[string]string) (*MessageObject, error) {
	return defaultService.CreateMessage(ctx, id, role, content, fileIDs, metadata)
}
