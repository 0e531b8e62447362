// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Text, JSON and YAML rendering of command results.

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/threadkit/internal/threads"
	"github.com/jeranaias/threadkit/internal/util"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// maxMetadataValueWidth caps metadata values in text output.
const maxMetadataValueWidth = 48

// printer writes command results in the selected format.
type printer struct {
	out     io.Writer
	format  string
	color   bool
	width   int
	command string
	now     func() time.Time
}

func (p *printer) jsonMode() bool {
	return p.format == FormatJSON
}

// emit writes data as JSON or YAML, or calls text for the text format.
func (p *printer) emit(data any, text func(w io.Writer)) error {
	switch p.format {
	case FormatJSON:
		return NewJSONResponse(p.command, data).Write(p.out)
	case FormatYAML:
		return writeYAML(p.out, data)
	default:
		text(p.out)
		return nil
	}
}

// writeYAML encodes data through its JSON form so the YAML keys match the
// wire field names.
func writeYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(normalizeNumbers(generic)); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

// normalizeNumbers turns json.Number into int64 or float64 so YAML prints
// them as plain numbers.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}

// =============================================================================
// FIELD FORMATTING
// =============================================================================

func (p *printer) field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s%s\n", RenderLabel(label), value)
}

func (p *printer) formatTime(unix int64) string {
	if unix == 0 {
		return "-"
	}
	t := time.Unix(unix, 0).UTC()
	now := time.Now()
	if p.now != nil {
		now = p.now()
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04:05 MST"), humanize.RelTime(t, now, "ago", "from now"))
}

// formatMetadata renders metadata as sorted k=v pairs.
func formatMetadata[V any](m map[string]V) string {
	if len(m) == 0 {
		return DimStyle.Render("(none)")
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+util.TruncateWidth(fmt.Sprint(m[k]), maxMetadataValueWidth))
	}
	return strings.Join(pairs, ", ")
}

// =============================================================================
// RESOURCE RENDERERS
// =============================================================================

func (p *printer) thread(t *threads.Thread) error {
	return p.emit(t, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render("Thread "+t.ID))
		p.field(w, "ID", t.ID)
		p.field(w, "Created", p.formatTime(t.CreatedAt))
		p.field(w, "Metadata", formatMetadata(t.Metadata))
	})
}

func (p *printer) deleted(d *threads.DeletedThread) error {
	return p.emit(d, func(w io.Writer) {
		if d.Deleted {
			fmt.Fprintf(w, "%s thread %s\n", SuccessStyle.Render("Deleted"), d.ID)
			return
		}
		fmt.Fprintf(w, "%s thread %s was not deleted\n", WarningStyle.Render("Warning:"), d.ID)
	})
}

func (p *printer) message(m *threads.MessageObject) error {
	return p.emit(m, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render("Message "+m.ID))
		p.field(w, "Thread", m.ThreadID)
		p.field(w, "Role", RenderRole(string(m.Role)))
		p.field(w, "Status", RenderStatus(m.Status))
		if m.IncompleteDetails != nil {
			p.field(w, "Incomplete", m.IncompleteDetails.Reason)
		}
		p.field(w, "Created", p.formatTime(m.CreatedAt))
		if m.AssistantID != "" {
			p.field(w, "Assistant", m.AssistantID)
		}
		if m.RunID != "" {
			p.field(w, "Run", m.RunID)
		}
		if len(m.FileIDs) > 0 {
			p.field(w, "Files", strings.Join(m.FileIDs, ", "))
		}
		p.field(w, "Metadata", formatMetadata(m.Metadata))

		for _, c := range m.Content {
			fmt.Fprintln(w)
			p.content(w, c)
		}
	})
}

func (p *printer) content(w io.Writer, c threads.Content) {
	switch c.Type {
	case threads.ContentImageFile:
		fmt.Fprintf(w, "%s %s\n", DimStyle.Render("[image]"), c.ImageFile.FileID)
	case threads.ContentText:
		fmt.Fprintln(w, p.renderText(c.Text.Value))
		for i, a := range c.Text.Annotations {
			fmt.Fprintln(w, DimStyle.Render(formatAnnotation(i+1, a)))
		}
	}
}

// renderText renders message text as markdown on color terminals and as
// wrapped plain text otherwise.
func (p *printer) renderText(text string) string {
	if p.color {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(p.width),
		)
		if err == nil {
			if out, err := r.Render(text); err == nil {
				return strings.TrimRight(out, "\n")
			}
		}
	}
	return WrapText(text, p.width)
}

func formatAnnotation(n int, a threads.Annotation) string {
	switch a.Type {
	case threads.AnnotationFileCitation:
		s := fmt.Sprintf("[%d] %q cites %s (%d-%d)", n, a.Text, a.FileCitation.FileID, a.StartIndex, a.EndIndex)
		if a.FileCitation.Quote != "" {
			s += fmt.Sprintf(": %q", util.TruncateRunes(a.FileCitation.Quote, 80))
		}
		return s
	case threads.AnnotationFilePath:
		return fmt.Sprintf("[%d] %q is file %s (%d-%d)", n, a.Text, a.FilePath.FileID, a.StartIndex, a.EndIndex)
	}
	return fmt.Sprintf("[%d] %s", n, a.Type)
}

// keyValues renders rows of label/value pairs with aligned columns.
func (p *printer) keyValues(data any, rows [][2]string) error {
	return p.emit(data, func(w io.Writer) {
		width := 0
		for _, row := range rows {
			if n := util.StringWidth(row[0]); n > width {
				width = n
			}
		}
		for _, row := range rows {
			fmt.Fprintf(w, "%s  %s\n", DimStyle.Render(util.PadRight(row[0], width)), row[1])
		}
	})
}

// success writes a one-line confirmation, or data in JSON/YAML mode.
func (p *printer) success(data any, format string, args ...any) error {
	return p.emit(data, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("OK"), fmt.Sprintf(format, args...))
	})
}
