// Package render turns a score into the report formats the CLI prints.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spigell/ats-analyzer/internal/score"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatXML      Format = "xml"
)

// Formats lists every supported format, default first.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatXML}

// ParseFormat accepts a format name case-insensitively. An empty name selects
// markdown.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", "md":
		return FormatMarkdown, nil
	case FormatMarkdown, FormatJSON, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected one of markdown, json, xml)", name)
	}
}

// Structured reports whether the format is rendered from a score rather than
// streamed as narrative text.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatXML
}

// Render serializes s in the requested format.
func Render(s *score.Score, format Format) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nothing to render")
	}

	switch format {
	case FormatJSON:
		return JSON(s)
	case FormatXML:
		return XML(s)
	case FormatMarkdown:
		return Markdown(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

// JSON pretty-prints the score in data model order.
func JSON(s *score.Score) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal score: %w", err)
	}
	return string(data), nil
}
