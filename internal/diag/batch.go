package diag

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the batch format changes.
const batchSchemaVersion uint16 = 1

// BatchFormat selects the encoding of a diagnostic batch on the wire.
type BatchFormat uint8

const (
	// FormatJSON encodes batches with encoding/json.
	FormatJSON BatchFormat = iota
	// FormatMsgpack encodes batches with msgpack, the compact form the
	// frontend dumps between pipeline stages.
	FormatMsgpack
)

// LocationWire mirrors Location for serialization.
type LocationWire struct {
	File         string `json:"file,omitempty" msgpack:"file"`
	Line         uint32 `json:"line" msgpack:"line"`
	StartColumn  uint32 `json:"start_col,omitempty" msgpack:"start_col"`
	EndColumn    uint32 `json:"end_col,omitempty" msgpack:"end_col"`
	ContextLabel string `json:"context,omitempty" msgpack:"context"`
}

// SnippetWire mirrors Snippet for serialization.
type SnippetWire struct {
	Kind         string `json:"kind" msgpack:"kind"` // "none" | "inline" | "file"
	Text         string `json:"text,omitempty" msgpack:"text"`
	AnchorColumn uint32 `json:"anchor_col,omitempty" msgpack:"anchor_col"`
	Path         string `json:"path,omitempty" msgpack:"path"`
}

// FrameWire mirrors Frame for serialization.
type FrameWire struct {
	File  string `json:"file" msgpack:"file"`
	Line  uint32 `json:"line" msgpack:"line"`
	Label string `json:"label" msgpack:"label"`
}

// DiagnosticWire mirrors Diagnostic for serialization.
type DiagnosticWire struct {
	Severity string       `json:"severity" msgpack:"severity"` // "error" | "warning"
	Message  []string     `json:"message" msgpack:"message"`
	Location LocationWire `json:"location" msgpack:"location"`
	Snippet  *SnippetWire `json:"snippet,omitempty" msgpack:"snippet"`
	Stack    []FrameWire  `json:"stack,omitempty" msgpack:"stack"`
}

// Batch is the root structure of a serialized diagnostic dump.
type Batch struct {
	Schema      uint16           `json:"schema" msgpack:"schema"`
	Diagnostics []DiagnosticWire `json:"diagnostics" msgpack:"diagnostics"`
}

// EncodeBatch serializes diagnostics in the given format.
func EncodeBatch(diags []Diagnostic, format BatchFormat) ([]byte, error) {
	batch := Batch{
		Schema:      batchSchemaVersion,
		Diagnostics: make([]DiagnosticWire, 0, len(diags)),
	}
	for _, d := range diags {
		batch.Diagnostics = append(batch.Diagnostics, toWire(d))
	}
	switch format {
	case FormatJSON:
		return json.Marshal(batch)
	case FormatMsgpack:
		return msgpack.Marshal(batch)
	}
	return nil, fmt.Errorf("unknown batch format %d", format)
}

// DecodeBatch deserializes and validates a diagnostic dump. A batch
// that fails validation is rejected whole: rendering never starts on a
// malformed record.
func DecodeBatch(data []byte, format BatchFormat) ([]Diagnostic, error) {
	var batch Batch
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decode json batch: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decode msgpack batch: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown batch format %d", format)
	}
	if batch.Schema != batchSchemaVersion {
		return nil, fmt.Errorf("batch schema %d not supported (want %d)", batch.Schema, batchSchemaVersion)
	}

	diags := make([]Diagnostic, 0, len(batch.Diagnostics))
	for i, w := range batch.Diagnostics {
		d, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("diagnostic %d: %w", i, err)
		}
		diags = append(diags, d)
	}
	return diags, nil
}

func toWire(d Diagnostic) DiagnosticWire {
	w := DiagnosticWire{
		Severity: d.Severity.String(),
		Message:  d.Message,
		Location: LocationWire{
			File:         d.Location.File,
			Line:         d.Location.Line,
			StartColumn:  d.Location.StartColumn,
			EndColumn:    d.Location.EndColumn,
			ContextLabel: d.Location.ContextLabel,
		},
	}
	switch d.Snippet.Kind {
	case SnippetInline:
		w.Snippet = &SnippetWire{Kind: "inline", Text: d.Snippet.Text, AnchorColumn: d.Snippet.AnchorColumn}
	case SnippetFile:
		w.Snippet = &SnippetWire{Kind: "file", Path: d.Snippet.Path}
	}
	for _, f := range d.Stack {
		w.Stack = append(w.Stack, FrameWire{File: f.File, Line: f.Line, Label: f.Label})
	}
	return w
}

func fromWire(w DiagnosticWire) (Diagnostic, error) {
	var sev Severity
	switch w.Severity {
	case "error":
		sev = SevError
	case "warning":
		sev = SevWarning
	default:
		return Diagnostic{}, fmt.Errorf("unknown severity %q", w.Severity)
	}

	d := Diagnostic{
		Severity: sev,
		Message:  w.Message,
		Location: Location{
			File:         w.Location.File,
			Line:         w.Location.Line,
			StartColumn:  w.Location.StartColumn,
			EndColumn:    w.Location.EndColumn,
			ContextLabel: w.Location.ContextLabel,
		},
	}
	if w.Snippet != nil {
		switch w.Snippet.Kind {
		case "", "none":
		case "inline":
			d.Snippet = InlineExcerpt(w.Snippet.Text, w.Snippet.AnchorColumn)
		case "file":
			d.Snippet = FileLookup(w.Snippet.Path)
		default:
			return Diagnostic{}, fmt.Errorf("unknown snippet kind %q", w.Snippet.Kind)
		}
	}
	for _, f := range w.Stack {
		d.Stack = append(d.Stack, Frame{File: f.File, Line: f.Line, Label: f.Label})
	}
	if err := d.Validate(); err != nil {
		return Diagnostic{}, err
	}
	return d, nil
}
