package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/vitaliisemenov/configserver/internal/property"
)

// Parse dispatches to a format-specific decoder by the file's extension.
// An unrecognized extension, or content that is not valid UTF-8, fails
// with a ParseError naming path.
func Parse(path string, data []byte) (*property.Document, error) {
	if !utf8.Valid(data) {
		return nil, &ParseError{Path: path, Format: "unknown", Detail: "file is not valid UTF-8"}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "yml", "yaml":
		return ParseYAML(path, data)
	case "json":
		return ParseJSON(path, data)
	case "properties":
		return ParseProperties(path, data)
	default:
		return nil, &ParseError{
			Path:   path,
			Format: ext,
			Detail: fmt.Sprintf("unrecognized extension %q", ext),
		}
	}
}
