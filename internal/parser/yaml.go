package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vitaliisemenov/configserver/internal/property"
)

// ParseYAML decodes YAML content into a Document, flattening nested
// mappings to dotted keys. A document containing only a YAML null (an
// empty file) decodes to an empty Document rather than an error.
func ParseYAML(path string, data []byte) (*property.Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Format: "yaml", Detail: err.Error()}
	}

	doc := property.New()
	if raw == nil {
		return doc, nil
	}

	top, ok := normalizeYAMLMap(raw)
	if !ok {
		return nil, &ParseError{
			Path:   path,
			Format: "yaml",
			Detail: fmt.Sprintf("top-level YAML value must be a mapping, got %T", raw),
		}
	}
	flattenInto(doc, "", top)
	return doc, nil
}

// normalizeYAMLMap converts yaml.v3's map[string]interface{} (or, for older
// decode paths, map[interface{}]interface{}) into map[string]interface{}
// recursively, so the shared flattener only has to handle one map shape.
func normalizeYAMLMap(v interface{}) (map[string]interface{}, bool) {
	normalized := normalizeYAMLValue(v)
	m, ok := normalized.(map[string]interface{})
	return m, ok
}

func normalizeYAMLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, mv := range val {
			out[k] = normalizeYAMLValue(mv)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, mv := range val {
			out[toStringKey(k)] = normalizeYAMLValue(mv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeYAMLValue(item)
		}
		return out
	default:
		return val
	}
}
