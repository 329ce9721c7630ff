package parser

import (
	"sort"
	"strconv"

	"github.com/vitaliisemenov/configserver/internal/property"
)

// flattenInto walks an arbitrary decoded value (as produced by a YAML or
// JSON decoder) and writes its leaves into doc under dotted keys rooted at
// prefix. Nested maps flatten into dotted segments; lists are stored as a
// single opaque property.List value at their owning key, so a later merge
// replaces the whole list rather than merging elements.
func flattenInto(doc *property.Document, prefix string, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(doc, joinKey(prefix, k), val[k])
		}
	default:
		doc.Set(prefix, toValue(v))
	}
}

func joinKey(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// toValue converts a decoded scalar or list into a property.Value. Maps
// reaching this point (inside a list element) are converted to an opaque
// property.Map value rather than flattened, since they have no dotted key
// of their own at that point.
func toValue(v interface{}) property.Value {
	switch val := v.(type) {
	case nil:
		return property.Null()
	case bool:
		return property.Bool(val)
	case int:
		return property.Int64(int64(val))
	case int64:
		return property.Int64(val)
	case float64:
		if val == float64(int64(val)) {
			return property.Int64(int64(val))
		}
		return property.Float64(val)
	case string:
		return property.String(val)
	case []interface{}:
		items := make([]property.Value, len(val))
		for i, item := range val {
			items[i] = toValue(item)
		}
		return property.List(items)
	case map[string]interface{}:
		m := make(map[string]property.Value, len(val))
		for k, mv := range val {
			m[k] = toValue(mv)
		}
		return property.Map(m)
	case map[interface{}]interface{}:
		// yaml.v2-style untyped map keys; yaml.v3 normally decodes to
		// map[string]interface{} already, but guard defensively.
		m := make(map[string]property.Value, len(val))
		for k, mv := range val {
			m[toStringKey(k)] = toValue(mv)
		}
		return property.Map(m)
	default:
		return property.String(strconvFallback(val))
	}
}

func toStringKey(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	return strconvFallback(k)
}

func strconvFallback(v interface{}) string {
	switch val := v.(type) {
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
