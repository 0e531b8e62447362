// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest provides an in-memory fake of the threads API for tests.
//
// The fake speaks the same JSON as the remote service, keeps state per
// Server, records every request and can be told to fail the next call.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/jeranaias/threadkit/internal/api"
)

// DefaultAPIKey is the key accepted by a new Server.
const DefaultAPIKey = "sk-test-threadkit"

// MaxFileIDs mirrors the per-message limit enforced by the remote service.
const MaxFileIDs = 10

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into v.
func (r Request) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

type failure struct {
	status  int
	code    string
	message string
}

type storedThread struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata"`
}

type textValue struct {
	Value       string `json:"value"`
	Annotations []any  `json:"annotations"`
}

type contentPart struct {
	Type string    `json:"type"`
	Text textValue `json:"text"`
}

type storedMessage struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	ThreadID  string            `json:"thread_id"`
	Status    string            `json:"status"`
	Role      string            `json:"role"`
	Content   []contentPart     `json:"content"`
	FileIDs   []string          `json:"file_ids"`
	Metadata  map[string]string `json:"metadata"`
}

type messageInput struct {
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	FileIDs  []string          `json:"file_ids"`
	Metadata map[string]string `json:"metadata"`
}

type createThreadInput struct {
	Messages []messageInput    `json:"messages"`
	Metadata map[string]string `json:"metadata"`
}

// Server is a fake threads API backed by httptest.Server.
type Server struct {
	*httptest.Server

	// APIKey is the bearer token the server accepts.
	APIKey string

	// Now supplies creation timestamps.
	Now func() time.Time

	mu       sync.Mutex
	seq      int
	reqSeq   int
	threads  map[string]*storedThread
	messages map[string][]*storedMessage
	requests []Request
	failures []failure
}

// New starts a Server that is closed when the test finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		APIKey:   DefaultAPIKey,
		Now:      time.Now,
		threads:  make(map[string]*storedThread),
		messages: make(map[string][]*storedMessage),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the URL to configure as the API base.
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

// APIClient returns a client authenticated against this server.
func (s *Server) APIClient() *api.Client {
	return api.NewClient(s.APIKey).WithBaseURL(s.BaseURL()).WithTimeout(5 * time.Second)
}

// Requests returns a copy of the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request, or a zero Request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// FailNext makes the next request fail with the given status and error body.
// Calls queue up.
func (s *Server) FailNext(status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, code: code, message: message})
}

// ThreadCount reports how many threads currently exist.
func (s *Server) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// Messages returns the stored messages of a thread.
func (s *Server) Messages(threadID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages[threadID] {
		out = append(out, m.Content[0].Text.Value)
	}
	return out
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.record, s.authenticate, s.inject)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/threads", s.createThread).Methods(http.MethodPost)
	v1.HandleFunc("/threads/{id}", s.getThread).Methods(http.MethodGet)
	v1.HandleFunc("/threads/{id}", s.updateThread).Methods(http.MethodPost)
	v1.HandleFunc("/threads/{id}", s.deleteThread).Methods(http.MethodDelete)
	v1.HandleFunc("/threads/{id}/messages", s.createMessage).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "", fmt.Sprintf("Invalid URL (%s %s)", r.Method, r.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "", fmt.Sprintf("Method %s not allowed", r.Method))
	})
	return r
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.reqSeq++
		w.Header().Set("X-Request-Id", fmt.Sprintf("req_%06d", s.reqSeq))
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid_api_key", "Incorrect API key provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeError(w, f.status, f.code, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	var in createThreadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "", "We could not parse the JSON body of your request.")
		return
	}
	for _, m := range in.Messages {
		if msg, param := validateMessage(m); msg != "" {
			writeParamError(w, param, msg)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := &storedThread{
		ID:        s.nextID("thread"),
		Object:    "thread",
		CreatedAt: s.Now().Unix(),
		Metadata:  nonNil(in.Metadata),
	}
	s.threads[t.ID] = t
	for _, m := range in.Messages {
		s.messages[t.ID] = append(s.messages[t.ID], s.newMessage(t.ID, m))
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateThread(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "", "We could not parse the JSON body of your request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	t.Metadata = nonNil(in.Metadata)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	delete(s.threads, t.ID)
	delete(s.messages, t.ID)
	writeJSON(w, http.StatusOK, map[string]any{"id": t.ID, "object": "thread.deleted", "deleted": true})
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var in messageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "", "We could not parse the JSON body of your request.")
		return
	}
	if msg, param := validateMessage(in); msg != "" {
		writeParamError(w, param, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	m := s.newMessage(t.ID, in)
	s.messages[t.ID] = append(s.messages[t.ID], m)
	writeJSON(w, http.StatusOK, m)
}

// lookup resolves the {id} route variable. Callers hold s.mu.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*storedThread, bool) {
	id, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "Invalid thread id.")
		return nil, false
	}
	t, ok := s.threads[id]
	if !ok {
		writeError(w, http.StatusNotFound, "", fmt.Sprintf("No thread found with id '%s'.", id))
		return nil, false
	}
	return t, true
}

// newMessage builds a stored message. Callers hold s.mu.
func (s *Server) newMessage(threadID string, in messageInput) *storedMessage {
	fileIDs := in.FileIDs
	if fileIDs == nil {
		fileIDs = []string{}
	}
	return &storedMessage{
		ID:        s.nextID("msg"),
		Object:    "thread.message",
		CreatedAt: s.Now().Unix(),
		ThreadID:  threadID,
		Status:    "completed",
		Role:      in.Role,
		Content: []contentPart{{
			Type: "text",
			Text: textValue{Value: in.Content, Annotations: []any{}},
		}},
		FileIDs:  fileIDs,
		Metadata: nonNil(in.Metadata),
	}
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%06d", prefix, s.seq)
}

func validateMessage(m messageInput) (message, param string) {
	switch m.Role {
	case "owner", "assistant":
	default:
		return fmt.Sprintf("Invalid value: '%s'. Supported values are: 'owner' and 'assistant'.", m.Role), "role"
	}
	if len(m.FileIDs) > MaxFileIDs {
		return fmt.Sprintf("Invalid 'file_ids': array too long. Expected an array with maximum length %d, but got an array with length %d instead.",
			MaxFileIDs, len(m.FileIDs)), "file_ids"
	}
	return "", ""
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// =============================================================================
// RESPONSES
// =============================================================================

type errorBody struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    *string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	body := errorBody{Message: message, Type: errorType(status)}
	if code != "" {
		body.Code = &code
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeParamError(w http.ResponseWriter, param, message string) {
	body := errorBody{Message: message, Type: "invalid_request_error", Param: &param}
	writeJSON(w, http.StatusBadRequest, map[string]errorBody{"error": body})
}

func errorType(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limit_error"
	case status >= 500:
		return "server_error"
	default:
		return "invalid_request_error"
	}
}
