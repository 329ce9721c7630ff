package property

import "strings"

// Document is an insertion-ordered mapping from dotted-key strings to leaf
// Values. Hierarchical sources (YAML/JSON) are flattened to dotted keys by
// the parser before reaching a Document; lists are kept as opaque List
// values under their owning key rather than flattened element-wise, so a
// merge replaces a list as a whole rather than merging its elements.
type Document struct {
	keys   []string
	index  map[string]int
	values []Value
}

// New returns an empty Document.
func New() *Document {
	return &Document{index: make(map[string]int)}
}

// Set inserts or overwrites the value at key. Overwriting preserves the
// key's original position in insertion order.
func (d *Document) Set(key string, v Value) {
	if i, ok := d.index[key]; ok {
		d.values[i] = v
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, v)
}

// Get performs a literal lookup of key (which may itself be a dotted path,
// e.g. "server.port").
func (d *Document) Get(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.values[i], true
}

// GetPath joins segments with "." and performs the equivalent literal
// lookup, giving callers a dotted-path access mode distinct from Get.
func (d *Document) GetPath(segments ...string) (Value, bool) {
	return d.Get(strings.Join(segments, "."))
}

// Keys returns the document's keys in insertion order.
func (d *Document) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries in the document.
func (d *Document) Len() int {
	return len(d.keys)
}

// Equal reports whether two documents hold the same keys and values,
// independent of insertion order.
func (d *Document) Equal(other *Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	for _, k := range d.keys {
		ov, ok := other.Get(k)
		if !ok {
			return false
		}
		dv, _ := d.Get(k)
		if !dv.Equal(ov) {
			return false
		}
	}
	return true
}

// Merge produces a new Document combining base and overlay: every key in
// overlay overwrites base's value at that key (preserving base's position
// when the key already existed there); keys unique to base survive
// untouched. Because nested mappings are flattened to dotted keys before
// reaching a Document, this single pass is equivalent to recursing into
// shared mapping keys and replacing everywhere else, per the component's
// merge semantics. Merge is idempotent (merge(d, d) == d) and associative.
func Merge(base, overlay *Document) *Document {
	out := New()
	for _, k := range base.keys {
		v, _ := base.Get(k)
		out.Set(k, v)
	}
	for _, k := range overlay.keys {
		v, _ := overlay.Get(k)
		out.Set(k, v)
	}
	return out
}

// Collisions reports keys where one document holds a leaf scalar at key K
// while the other holds one or more keys nested under the prefix "K.",
// which the last-writer-wins merge rule resolves silently but that
// operators likely want surfaced as a warning (spec Open Question 2).
func Collisions(a, b *Document) []string {
	var out []string
	out = append(out, collisionsOneWay(a, b)...)
	out = append(out, collisionsOneWay(b, a)...)
	return out
}

func collisionsOneWay(leafDoc, nestedDoc *Document) []string {
	var out []string
	for _, k := range leafDoc.keys {
		prefix := k + "."
		for _, ok := range nestedDoc.keys {
			if strings.HasPrefix(ok, prefix) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}
