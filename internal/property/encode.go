package property

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToNestedMap reconstructs a nested map[string]any from a Document's dotted
// keys, in preparation for hierarchical (JSON/YAML) encoding. Dotted
// segments become nested maps; list values decode to their Go slice form.
func ToNestedMap(d *Document) map[string]interface{} {
	root := make(map[string]interface{})
	for _, k := range d.keys {
		v, _ := d.Get(k)
		setNested(root, strings.Split(k, "."), valueToAny(v))
	}
	return root
}

func setNested(root map[string]interface{}, segments []string, leaf interface{}) {
	cur := root
	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = leaf
			return
		}
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[seg] = next
		}
		cur = next
	}
}

func valueToAny(v Value) interface{} {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		b, _ := v.Bool()
		return b
	case KindInt64:
		i, _ := v.Int64()
		return i
	case KindFloat64:
		f, _ := v.Float64()
		return f
	case KindString:
		s, _ := v.String()
		return s
	case KindList:
		list, _ := v.List()
		out := make([]interface{}, len(list))
		for i, item := range list {
			out[i] = valueToAny(item)
		}
		return out
	case KindMap:
		m, _ := v.Map()
		out := make(map[string]interface{}, len(m))
		for k, mv := range m {
			out[k] = valueToAny(mv)
		}
		return out
	default:
		return nil
	}
}

// EncodeJSON renders a Document as pretty-printed JSON, reconstructing
// nesting from its dotted keys.
func EncodeJSON(d *Document) ([]byte, error) {
	return json.MarshalIndent(ToNestedMap(d), "", "  ")
}

// EncodeYAML renders a Document as YAML, reconstructing nesting from its
// dotted keys.
func EncodeYAML(d *Document) ([]byte, error) {
	return yaml.Marshal(ToNestedMap(d))
}

// EncodeProperties renders a Document as flat key=value lines in insertion
// order. List values are rendered with index-bracket keys (key[0]=...,
// key[1]=...); the parsers keep a list whole under its own key and do not
// read this notation back into a list.
func EncodeProperties(d *Document) []byte {
	var b strings.Builder
	for _, k := range d.keys {
		v, _ := d.Get(k)
		writePropertyLines(&b, k, v)
	}
	return []byte(b.String())
}

func writePropertyLines(b *strings.Builder, key string, v Value) {
	switch v.Kind() {
	case KindList:
		list, _ := v.List()
		for i, item := range list {
			writePropertyLines(b, key+"["+strconv.Itoa(i)+"]", item)
		}
	case KindMap:
		m, _ := v.Map()
		mapKeys := make([]string, 0, len(m))
		for mk := range m {
			mapKeys = append(mapKeys, mk)
		}
		sort.Strings(mapKeys)
		for _, mk := range mapKeys {
			writePropertyLines(b, key+"."+mk, m[mk])
		}
	default:
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(v.CanonicalString())
		b.WriteByte('\n')
	}
}
