// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "sync"

var (
	defaultMu     sync.RWMutex
	defaultClient = NewClient("")
)

// Default returns the process-wide client.
func Default() *Client {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClient
}

// SetDefault replaces the process-wide client. A nil client is ignored.
func SetDefault(c *Client) {
	if c == nil {
		return
	}
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// SetKey sets the API key of the process-wide client. Clients already handed
// out by Default keep their previous key.
func SetKey(key string) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	next := defaultClient.clone()
	next.apiKey = NewClient(key).apiKey
	defaultClient = next
}
