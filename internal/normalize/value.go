// Package normalize maps schema-less encyclopedic movie records onto a
// canonical attribute vocabulary.
package normalize

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Kind tags the shape of a raw attribute value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindList
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one raw attribute value: a scalar string, an ordered list of
// strings, or a nested mapping. The zero Value is null.
type Value struct {
	Kind Kind
	Str  string
	List []string
	Map  map[string]Value
}

// String builds a scalar value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// List builds a multi-valued value.
func List(items ...string) Value { return Value{Kind: KindList, List: items} }

// Null is the absent value.
func Null() Value { return Value{} }

// IsNull reports whether v carries no data.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Strings returns v as a list: scalars become a one-element list, maps and
// nulls return nil.
func (v Value) Strings() []string {
	switch v.Kind {
	case KindString:
		return []string{v.Str}
	case KindList:
		return v.List
	default:
		return nil
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{Kind: v.Kind, Str: v.Str}
	if v.List != nil {
		out.List = append([]string(nil), v.List...)
	}
	if v.Map != nil {
		out.Map = make(map[string]Value, len(v.Map))
		for k, mv := range v.Map {
			out.Map[k] = mv.Clone()
		}
	}
	return out
}

// UnmarshalJSON decodes any JSON value. Numbers and booleans keep their
// literal text; list elements that are not strings keep their JSON text.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "normalize: decode string value")
		}
		*v = String(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return eris.Wrap(err, "normalize: decode list value")
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			var s string
			if err := json.Unmarshal(r, &s); err == nil {
				items = append(items, s)
				continue
			}
			items = append(items, string(bytes.TrimSpace(r)))
		}
		*v = List(items...)
	case '{':
		var m map[string]Value
		if err := json.Unmarshal(data, &m); err != nil {
			return eris.Wrap(err, "normalize: decode map value")
		}
		*v = Value{Kind: KindMap, Map: m}
	default:
		*v = String(string(data))
	}
	return nil
}

// MarshalJSON encodes v as its natural JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindMap:
		return json.Marshal(v.Map)
	default:
		return []byte("null"), nil
	}
}

// RawRecord is one encyclopedic movie record keyed by free-text attribute label.
type RawRecord map[string]Value

// UnmarshalJSON decodes a record and NFC-normalizes its attribute labels so
// composed and decomposed spellings of the same label collide.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "normalize: decode record")
	}
	out := make(RawRecord, len(raw))
	for _, k := range sortedKeys(raw) {
		out[norm.NFC.String(k)] = raw[k]
	}
	*r = out
	return nil
}

// Has reports whether the record carries the label, even with a null value.
func (r RawRecord) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Clone returns a deep copy of r.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

// Keys returns the record's labels in sorted order.
func (r RawRecord) Keys() []string {
	return sortedKeys(r)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Join renders a string or list value as one space-separated string.
// Maps and nulls are not textual and report false.
func Join(v Value) (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindList:
		return strings.Join(v.List, " "), true
	default:
		return "", false
	}
}
