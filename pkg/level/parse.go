package level

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a level document.
type Format int

const (
	// FormatAuto sniffs the document: a leading '{' means JSON, anything else YAML.
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "auto"
	}
}

var (
	// ErrUnknownFormat is returned by ParseFormat for unsupported names.
	ErrUnknownFormat = errors.New("unknown document format")
	// ErrEmptyDocument is the parse error for a blank file.
	ErrEmptyDocument = errors.New("document is empty")
)

// ParseFormat maps a user-supplied format name ("json", "yaml", "yml", "" or
// "auto") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromName picks a format from a file extension, falling back to
// FormatAuto.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// IsDocumentName reports whether a file name looks like a level document.
func IsDocumentName(name string) bool {
	return FormatFromName(name) != FormatAuto
}

// ParseResult carries either an untyped document or the reason it could not
// be parsed. Document is a tree of map[string]any, []any, string, bool, nil
// and numbers (json.Number for JSON input, int/float64 for YAML input).
type ParseResult struct {
	Document any
	Err      error
}

// OK reports whether parsing succeeded.
func (r ParseResult) OK() bool {
	return r.Err == nil
}

// Parse decodes raw bytes into an untyped document. It never panics; any
// problem with the bytes themselves is returned in ParseResult.Err.
func Parse(data []byte, format Format) ParseResult {
	if !utf8.Valid(data) {
		return ParseResult{Err: errors.New("document is not valid UTF-8")}
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ParseResult{Err: ErrEmptyDocument}
	}

	if format == FormatAuto {
		format = FormatYAML
		if trimmed[0] == '{' || trimmed[0] == '[' {
			format = FormatJSON
		}
	}

	switch format {
	case FormatJSON:
		return parseJSON(trimmed)
	default:
		return parseYAML(trimmed)
	}
}

func parseJSON(data []byte) ParseResult {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return ParseResult{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ParseResult{Err: errors.New("invalid JSON: unexpected data after the top-level value")}
	}
	return ParseResult{Document: doc}
}

// parseYAML accepts exactly one document. Empty trailing documents ("---"
// at the end of the file) are tolerated.
func parseYAML(data []byte) ParseResult {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{Err: ErrEmptyDocument}
		}
		return ParseResult{Err: fmt.Errorf("invalid YAML: %w", err)}
	}
	if doc == nil {
		return ParseResult{Err: ErrEmptyDocument}
	}

	for {
		var extra any
		err := dec.Decode(&extra)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || extra != nil {
			return ParseResult{Err: errors.New("invalid YAML: unexpected data after the first document")}
		}
	}
	return ParseResult{Document: normalizeYAML(doc)}
}

// normalizeYAML converts map[any]any (produced for non-string keys) into
// map[string]any so the validators only deal with one map shape.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalizeYAML(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = normalizeYAML(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalizeYAML(child)
		}
		return t
	default:
		return v
	}
}
