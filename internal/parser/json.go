package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vitaliisemenov/configserver/internal/property"
)

// ParseJSON decodes JSON content into a Document, flattening nested objects
// to dotted keys. Numbers are decoded via json.Number so that integral
// values round-trip as int64 rather than always becoming float64.
func ParseJSON(path string, data []byte) (*property.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Path: path, Format: "json", Detail: err.Error()}
	}

	doc := property.New()
	top, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Path:   path,
			Format: "json",
			Detail: fmt.Sprintf("top-level JSON value must be an object, got %T", raw),
		}
	}
	flattenInto(doc, "", normalizeJSONNumbers(top).(map[string]interface{}))
	return doc, nil
}

// normalizeJSONNumbers converts json.Number leaves into int64 or float64 so
// the shared flattener's toValue sees the same scalar types regardless of
// source format.
func normalizeJSONNumbers(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, mv := range val {
			out[k] = normalizeJSONNumbers(mv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeJSONNumbers(item)
		}
		return out
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	default:
		return val
	}
}
