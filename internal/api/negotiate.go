package api

import (
	"net/http"
	"strings"
)

// Format is a negotiated response encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatProperties
)

// negotiate resolves the response encoding: a non-empty path-parameter
// extension overrides the Accept header; otherwise the header's first
// recognized media type wins; anything unrecognized falls back to JSON.
func negotiate(r *http.Request, ext string) Format {
	if f, ok := formatFromExt(ext); ok {
		return f
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mt {
		case "application/json":
			return FormatJSON
		case "application/x-yaml", "text/yaml":
			return FormatYAML
		case "text/plain":
			return FormatProperties
		}
	}
	return FormatJSON
}

func formatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		return FormatJSON, true
	case "yml", "yaml":
		return FormatYAML, true
	case "properties":
		return FormatProperties, true
	default:
		return FormatJSON, false
	}
}

func (f Format) contentType() string {
	switch f {
	case FormatYAML:
		return "application/x-yaml"
	case FormatProperties:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}
