// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package threads

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/threadkit/internal/api"
)

func roundTrip[T any](t *testing.T, in T) T {
	t.Helper()
	data, err := json.Marshal(in)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	return out
}

func requireSchemaError(t *testing.T, err error) *api.SchemaError {
	t.Helper()
	require.Error(t, err)
	var se *api.SchemaError
	require.True(t, errors.As(err, &se), "expected SchemaError, got %T: %v", err, err)
	return se
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, `"owner"`, string(data))

	data, err = json.Marshal(RoleAssistant)
	require.NoError(t, err)
	assert.Equal(t, `"assistant"`, string(data))

	var r Role
	require.NoError(t, json.Unmarshal([]byte(`"assistant"`), &r))
	assert.Equal(t, RoleAssistant, r)
}

func TestRoleRejectsUnknown(t *testing.T) {
	_, err := json.Marshal(Role("user"))
	se := requireSchemaError(t, err)
	assert.True(t, errors.Is(se, ErrUnknownRole))

	var r Role
	err = json.Unmarshal([]byte(`"system"`), &r)
	requireSchemaError(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRole))

	err = json.Unmarshal([]byte(`42`), &r)
	requireSchemaError(t, err)

	_, err = ParseRole("")
	requireSchemaError(t, err)
	assert.False(t, Role("Owner").Valid())
	assert.True(t, RoleOwner.Valid())
}

func TestMessageRoundTrip(t *testing.T) {
	tests := []Message{
		NewOwnerMessage("hi"),
		NewAssistantMessage("hello there"),
		{Role: RoleOwner, Content: "with files", FileIDs: []string{"file-1", "file-2"}, Metadata: map[string]string{"k": "v"}},
	}
	for _, in := range tests {
		assert.Equal(t, in, roundTrip(t, in))
	}
}

func TestMessageOmitsEmptyFileIDs(t *testing.T) {
	data, err := json.Marshal(NewOwnerMessage("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"owner","content":"hi"}`, string(data))
}

func TestMessageInvalidRoleFailsToEncode(t *testing.T) {
	_, err := json.Marshal(Message{Role: "user", Content: "x"})
	requireSchemaError(t, err)
}

func TestThreadDefaults(t *testing.T) {
	var th Thread
	require.NoError(t, json.Unmarshal([]byte(`{"id":"thread_1","object":"thread","created_at":1700000000}`), &th))
	assert.Equal(t, "thread_1", th.ID)
	assert.NotNil(t, th.Metadata)
	assert.Empty(t, th.Metadata)
	assert.Equal(t, int64(1700000000), th.Created().Unix())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"thread_2","metadata":null}`), &th))
	assert.NotNil(t, th.Metadata)
	assert.Empty(t, th.Metadata)
}

func TestThreadLegacyCreated(t *testing.T) {
	var th Thread
	require.NoError(t, json.Unmarshal([]byte(`{"id":"thread_1","created":1600000000}`), &th))
	assert.Equal(t, int64(1600000000), th.CreatedAt)
}

func TestThreadRoundTrip(t *testing.T) {
	in := Thread{
		ID:        "thread_abc",
		Object:    "thread",
		CreatedAt: 1700000000,
		Metadata:  map[string]any{"project": "alpha", "n": float64(3)},
	}
	assert.Equal(t, in, roundTrip(t, in))
}

func TestThreadDecodeTypeMismatch(t *testing.T) {
	var th Thread
	err := json.Unmarshal([]byte(`{"id":123}`), &th)
	se := requireSchemaError(t, err)
	var typeErr *json.UnmarshalTypeError
	assert.True(t, errors.As(se, &typeErr))
}

func TestContentDiscriminator(t *testing.T) {
	var c Content
	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","text":{"value":"hi","annotations":[]}}`), &c))
	assert.Equal(t, ContentText, c.Type)
	require.NotNil(t, c.Text)
	assert.Nil(t, c.ImageFile)
	assert.Equal(t, "hi", c.Text.Value)

	c = Content{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"image_file","image_file":{"file_id":"file-9"}}`), &c))
	assert.Equal(t, ContentImageFile, c.Type)
	require.NotNil(t, c.ImageFile)
	assert.Nil(t, c.Text)
	assert.Equal(t, "file-9", c.ImageFile.FileID)
}

func TestContentIgnoresOtherArm(t *testing.T) {
	var c Content
	body := `{"type":"text","text":{"value":"hi"},"image_file":{"file_id":"f"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	assert.Nil(t, c.ImageFile)
	assert.Equal(t, []Annotation{}, c.Text.Annotations)
}

func TestContentRejects(t *testing.T) {
	tests := map[string]string{
		"unknown tag": `{"type":"audio","audio":{}}`,
		"missing tag": `{"text":{"value":"hi"}}`,
		"missing arm": `{"type":"image_file"}`,
		"wrong shape": `{"type":"text","text":"hi"}`,
		"not object":  `[1,2]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var c Content
			requireSchemaError(t, json.Unmarshal([]byte(body), &c))
		})
	}
}

func TestContentMarshalRequiresOneArm(t *testing.T) {
	tests := map[string]Content{
		"no arm":    {Type: ContentText},
		"two arms":  {Type: ContentText, Text: &Text{Value: "a"}, ImageFile: &ImageFile{FileID: "f"}},
		"wrong arm": {Type: ContentImageFile, Text: &Text{Value: "a"}},
		"no type":   {Text: &Text{Value: "a"}},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := json.Marshal(c)
			requireSchemaError(t, err)
		})
	}
}

func TestContentRoundTrip(t *testing.T) {
	tests := []Content{
		NewTextContent("plain"),
		NewTextContent("cited [1]",
			NewFileCitation("[1]", "file-a", "a quote", 6, 9),
			NewFilePath("sandbox:/out.csv", "file-b", 0, 16),
		),
		NewImageFileContent("file-img"),
	}
	for _, in := range tests {
		assert.Equal(t, in, roundTrip(t, in))
	}
}

func TestAnnotationDiscriminator(t *testing.T) {
	var a Annotation
	body := `{"type":"file_path","text":"sandbox:/x","start_index":1,"end_index":4,"file_path":{"file_id":"file-1"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &a))
	assert.Equal(t, AnnotationFilePath, a.Type)
	require.NotNil(t, a.FilePath)
	assert.Nil(t, a.FileCitation)
	assert.Equal(t, 1, a.StartIndex)
	assert.Equal(t, 4, a.EndIndex)

	a = Annotation{}
	body = `{"type":"file_citation","text":"[1]","start_index":0,"end_index":3,"file_citation":{"file_id":"file-2","quote":"q"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &a))
	require.NotNil(t, a.FileCitation)
	assert.Nil(t, a.FilePath)
	assert.Equal(t, "q", a.FileCitation.Quote)
}

func TestAnnotationRejects(t *testing.T) {
	tests := map[string]string{
		"unknown tag":    `{"type":"url_citation","text":"x","start_index":0,"end_index":1}`,
		"missing arm":    `{"type":"file_path","text":"x","start_index":0,"end_index":1}`,
		"reversed range": `{"type":"file_path","text":"x","start_index":5,"end_index":1,"file_path":{"file_id":"f"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var a Annotation
			requireSchemaError(t, json.Unmarshal([]byte(body), &a))
		})
	}

	_, err := json.Marshal(Annotation{Type: AnnotationFilePath})
	requireSchemaError(t, err)
}

func TestUnknownAnnotationInsideContent(t *testing.T) {
	var c Content
	body := `{"type":"text","text":{"value":"x","annotations":[{"type":"bogus"}]}}`
	requireSchemaError(t, json.Unmarshal([]byte(body), &c))
}

const messageObjectJSON = `{
	"id": "msg_1",
	"object": "thread.message",
	"created_at": 1700000000,
	"thread_id": "thread_1",
	"status": "incomplete",
	"incomplete_details": {"reason": "max_tokens"},
	"role": "assistant",
	"content": [
		{"type": "text", "text": {"value": "first", "annotations": []}},
		{"type": "image_file", "image_file": {"file_id": "file-img"}},
		{"type": "text", "text": {"value": "second", "annotations": []}}
	],
	"assistant_id": "asst_1",
	"run_id": "run_1",
	"file_ids": ["file-1"],
	"metadata": {"k": "v"}
}`

func TestMessageObjectDecode(t *testing.T) {
	var m MessageObject
	require.NoError(t, json.Unmarshal([]byte(messageObjectJSON), &m))
	assert.Equal(t, "msg_1", m.ID)
	assert.Equal(t, "thread_1", m.ThreadID)
	assert.Equal(t, RoleAssistant, m.Role)
	require.NotNil(t, m.IncompleteDetails)
	assert.Equal(t, "max_tokens", m.IncompleteDetails.Reason)
	require.Len(t, m.Content, 3)
	assert.Equal(t, ContentImageFile, m.Content[1].Type)
	assert.Equal(t, "first\nsecond", m.Text())
	assert.Equal(t, map[string]string{"k": "v"}, m.Metadata)
}

func TestMessageObjectRoundTrip(t *testing.T) {
	var m MessageObject
	require.NoError(t, json.Unmarshal([]byte(messageObjectJSON), &m))
	assert.Equal(t, m, roundTrip(t, m))
}

func TestMessageObjectSingleContent(t *testing.T) {
	var m MessageObject
	body := `{"id":"msg_2","thread_id":"t","role":"owner","content":{"type":"text","text":{"value":"solo"}}}`
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	require.Len(t, m.Content, 1)
	assert.Equal(t, "solo", m.Text())
	assert.NotNil(t, m.Metadata)
	assert.Empty(t, m.Metadata)
}

func TestMessageObjectRejects(t *testing.T) {
	tests := map[string]string{
		"bad role":        `{"id":"m","role":"user","content":[]}`,
		"bad content tag": `{"id":"m","role":"owner","content":[{"type":"video"}]}`,
		"content string":  `{"id":"m","role":"owner","content":"hello"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var m MessageObject
			requireSchemaError(t, json.Unmarshal([]byte(body), &m))
		})
	}
}

func TestCreateThreadRequestBuilder(t *testing.T) {
	req := NewCreateThreadRequest().
		AddMessage(NewOwnerMessage("one")).
		AddMessage(NewAssistantMessage("two")).
		SetMetadata("topic", "demo")

	require.Len(t, req.Messages, 2)
	assert.Equal(t, RoleAssistant, req.Messages[1].Role)
	assert.Equal(t, "demo", req.Metadata["topic"])

	var zero CreateThreadRequest
	zero.SetMetadata("a", "b")
	assert.Equal(t, "b", zero.Metadata["a"])

	data, err := json.Marshal((&CreateThreadRequest{}).body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"messages":[],"metadata":{}}`, string(data))
}

func TestDeletedThreadDecode(t *testing.T) {
	var d DeletedThread
	require.NoError(t, json.Unmarshal([]byte(`{"id":"thread_1","object":"thread.deleted","deleted":true}`), &d))
	assert.Equal(t, DeletedThread{ID: "thread_1", Object: "thread.deleted", Deleted: true}, d)
}

func TestTextAnnotationsNullVersusAbsent(t *testing.T) {
	in := Content{Type: ContentText, Text: &Text{Value: "plain"}}
	assert.Equal(t, in, roundTrip(t, in))

	var c Content
	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","text":{"value":"x","annotations":null}}`), &c))
	assert.Nil(t, c.Text.Annotations)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","text":{"value":"x"}}`), &c))
	assert.Equal(t, []Annotation{}, c.Text.Annotations)
}
