// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package threads

import (
	"bytes"
	"encoding/json"

	"github.com/jeranaias/threadkit/internal/api"
)

// ContentType discriminates Content variants.
type ContentType string

const (
	ContentText      ContentType = "text"
	ContentImageFile ContentType = "image_file"
)

// AnnotationType discriminates Annotation variants.
type AnnotationType string

const (
	AnnotationFileCitation AnnotationType = "file_citation"
	AnnotationFilePath     AnnotationType = "file_path"
)

// =============================================================================
// CONTENT
// =============================================================================

// Content is one part of a message. Exactly one of Text or ImageFile is set,
// matching Type.
type Content struct {
	Type      ContentType
	Text      *Text
	ImageFile *ImageFile
}

// Text is text content together with its annotations.
type Text struct {
	Value       string       `json:"value"`
	Annotations []Annotation `json:"annotations"`
}

// UnmarshalJSON decodes absent annotations as an empty list. An explicit
// null stays nil so hand-built values round-trip.
func (t *Text) UnmarshalJSON(data []byte) error {
	type plain Text
	var raw struct {
		plain
		Annotations json.RawMessage `json:"annotations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Text(raw.plain)
	out.Annotations = nil
	switch {
	case len(raw.Annotations) == 0:
		out.Annotations = []Annotation{}
	case !bytes.Equal(bytes.TrimSpace(raw.Annotations), []byte("null")):
		if err := json.Unmarshal(raw.Annotations, &out.Annotations); err != nil {
			return err
		}
	}
	*t = out
	return nil
}

// ImageFile references an uploaded image.
type ImageFile struct {
	FileID string `json:"file_id"`
}

// NewTextContent returns a text content part with the given annotations.
func NewTextContent(value string, annotations ...Annotation) Content {
	if annotations == nil {
		annotations = []Annotation{}
	}
	return Content{Type: ContentText, Text: &Text{Value: value, Annotations: annotations}}
}

// NewImageFileContent returns an image file content part.
func NewImageFileContent(fileID string) Content {
	return Content{Type: ContentImageFile, ImageFile: &ImageFile{FileID: fileID}}
}

func (c Content) validate() error {
	switch c.Type {
	case ContentText:
		if c.Text == nil || c.ImageFile != nil {
			return api.Schemaf("content", "type %q requires only the text variant", c.Type)
		}
	case ContentImageFile:
		if c.ImageFile == nil || c.Text != nil {
			return api.Schemaf("content", "type %q requires only the image_file variant", c.Type)
		}
	default:
		return api.Schemaf("content", "unknown content type %q", c.Type)
	}
	return nil
}

type contentWire struct {
	Type      ContentType `json:"type"`
	Text      *Text       `json:"text,omitempty"`
	ImageFile *ImageFile  `json:"image_file,omitempty"`
}

// MarshalJSON encodes the populated variant under its type tag.
func (c Content) MarshalJSON() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(contentWire(c))
}

// UnmarshalJSON selects the variant named by "type". Unknown tags fail.
func (c *Content) UnmarshalJSON(data []byte) error {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return api.WrapSchema("content", err)
	}

	var out Content
	switch w.Type {
	case ContentText:
		out = Content{Type: w.Type, Text: w.Text}
	case ContentImageFile:
		out = Content{Type: w.Type, ImageFile: w.ImageFile}
	default:
		return api.Schemaf("content", "unknown content type %q", w.Type)
	}
	if err := out.validate(); err != nil {
		return err
	}
	*c = out
	return nil
}

// decodeContentList accepts a JSON array of content parts or a single part.
// Absent or null content yields nil.
func decodeContentList(raw json.RawMessage) ([]Content, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var one Content
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, api.WrapSchema("content", err)
		}
		return []Content{one}, nil
	}
	var list []Content
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, api.WrapSchema("content", err)
	}
	return list, nil
}

// =============================================================================
// ANNOTATION
// =============================================================================

// Annotation points a span of text at a cited file or a generated file path.
// Exactly one of FileCitation or FilePath is set, matching Type.
type Annotation struct {
	Type         AnnotationType
	Text         string
	StartIndex   int
	EndIndex     int
	FileCitation *FileCitation
	FilePath     *FilePath
}

// FileCitation quotes a file used as a source.
type FileCitation struct {
	FileID string `json:"file_id"`
	Quote  string `json:"quote,omitempty"`
}

// FilePath references a file produced by the assistant.
type FilePath struct {
	FileID string `json:"file_id"`
}

// NewFileCitation returns a file citation annotation covering [start, end).
func NewFileCitation(text, fileID, quote string, start, end int) Annotation {
	return Annotation{
		Type:         AnnotationFileCitation,
		Text:         text,
		StartIndex:   start,
		EndIndex:     end,
		FileCitation: &FileCitation{FileID: fileID, Quote: quote},
	}
}

// NewFilePath returns a file path annotation covering [start, end).
func NewFilePath(text, fileID string, start, end int) Annotation {
	return Annotation{
		Type:       AnnotationFilePath,
		Text:       text,
		StartIndex: start,
		EndIndex:   end,
		FilePath:   &FilePath{FileID: fileID},
	}
}

func (a Annotation) validate() error {
	switch a.Type {
	case AnnotationFileCitation:
		if a.FileCitation == nil || a.FilePath != nil {
			return api.Schemaf("annotation", "type %q requires only the file_citation variant", a.Type)
		}
	case AnnotationFilePath:
		if a.FilePath == nil || a.FileCitation != nil {
			return api.Schemaf("annotation", "type %q requires only the file_path variant", a.Type)
		}
	default:
		return api.Schemaf("annotation", "unknown annotation type %q", a.Type)
	}
	if a.EndIndex < a.StartIndex {
		return api.Schemaf("annotation", "end_index %d before start_index %d", a.EndIndex, a.StartIndex)
	}
	return nil
}

type annotationWire struct {
	Type         AnnotationType `json:"type"`
	Text         string         `json:"text"`
	StartIndex   int            `json:"start_index"`
	EndIndex     int            `json:"end_index"`
	FileCitation *FileCitation  `json:"file_citation,omitempty"`
	FilePath     *FilePath      `json:"file_path,omitempty"`
}

// MarshalJSON encodes the populated variant under its type tag.
func (a Annotation) MarshalJSON() ([]byte, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(annotationWire(a))
}

// UnmarshalJSON selects the variant named by "type". Unknown tags fail.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var w annotationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return api.WrapSchema("annotation", err)
	}

	out := Annotation{Type: w.Type, Text: w.Text, StartIndex: w.StartIndex, EndIndex: w.EndIndex}
	switch w.Type {
	case AnnotationFileCitation:
		out.FileCitation = w.FileCitation
	case AnnotationFilePath:
		out.FilePath = w.FilePath
	default:
		return api.Schemaf("annotation", "unknown annotation type %q", w.Type)
	}
	if err := out.validate(); err != nil {
		return err
	}
	*a = out
	return nil
}
