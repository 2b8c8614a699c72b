// Package fieldval defines the closed value variant used for snapshot
// fields: string, number, boolean, null, or a nested map. Keeping the type
// closed lets the diff engine and the value codec match exhaustively instead
// of reflecting over arbitrary interface{} payloads.
package fieldval

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the variants a Value can hold.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
)

// Value is an immutable tagged union. The zero value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    map[string]Value
}

// Snapshot is the full field-value mapping of a subject at a point in time.
// A nil Snapshot represents absence (before Create / after Delete).
type Snapshot map[string]Value

func Null() Value            { return Value{kind: KindNull} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

// Map copies m into a nested Value. A nil map becomes an empty map, not Null.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload; ok is false for other kinds.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the bool payload; ok is false for other kinds.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Fields returns a copy of the nested map payload; ok is false for other kinds.
func (v Value) Fields() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, val := range v.m {
		cp[k] = val
	}
	return cp, true
}

// Equal reports deep structural equality. Numbers compare numerically and
// nested maps compare key by key with null and missing treated as equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindMap:
		for _, k := range unionKeys(v.m, o.m) {
			a, aok := v.m[k]
			b, bok := o.m[k]
			if !aok {
				a = Null()
			}
			if !bok {
				b = Null()
			}
			if !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the raw value for display. Null renders empty; numbers
// render without a trailing ".0" when integral.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v.m[k].String()))
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		return json.Marshal(v.m)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny converts a decoded JSON value into the closed variant. Arrays and
// other shapes outside the variant are kept as their compact JSON text, so
// the conversion is total and nothing is silently dropped.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case bool:
		return Bool(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, val := range t {
			m[k] = FromAny(val)
		}
		return Value{kind: KindMap, m: m}
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			return Null()
		}
		return String(string(b))
	}
}

// SnapshotFromAny builds a Snapshot out of a plain map, converting each value
// through FromAny. Returns nil for a nil input so absence is preserved.
func SnapshotFromAny(raw map[string]any) Snapshot {
	if raw == nil {
		return nil
	}
	s := make(Snapshot, len(raw))
	for k, v := range raw {
		s[k] = FromAny(v)
	}
	return s
}

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	cp := make(Snapshot, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

func unionKeys(a, b map[string]Value) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// UnionKeys exposes the sorted union of two snapshots' field names.
func UnionKeys(a, b Snapshot) []string {
	return unionKeys(map[string]Value(a), map[string]Value(b))
}
