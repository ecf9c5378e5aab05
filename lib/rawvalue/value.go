// Package rawvalue models the loosely structured records handed to the
// transform engine by platform fetchers. A Value is a small tagged union
// (string/number/bool/list/map) built from decoded JSON or scraper output,
// so the engine never needs per-source struct types.
package rawvalue

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "invalid"
}

// Value is immutable by convention: the engine never mutates a record it
// received, it only builds new Values.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	obj  map[string]Value
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

func Map(fields map[string]Value) Value {
	return Value{kind: KindMap, obj: fields}
}

// FromAny converts the output of encoding/json.Unmarshal (or any
// similarly shaped structure) into a Value. Unsupported leaf types are
// stringified via fmt.Sprint rather than dropped.
func FromAny(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{}
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromAny(item)
		}
		return List(items...)
	case map[string]any:
		fields := make(map[string]Value, len(v))
		for key, item := range v {
			fields[key] = FromAny(item)
		}
		return Map(fields)
	case Value:
		return v
	}
	return String(fmt.Sprint(raw))
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) BoolVal() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.obj)
	}
	return 0
}

func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}
	}
	return v.list[i]
}

func (v Value) Key(name string) Value {
	if v.kind != KindMap {
		return Value{}
	}
	return v.obj[name]
}

// Keys returns the map keys in sorted order so iteration is deterministic.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts back into plain Go values, suitable for
// encoding/json.Marshal. Whole numbers come back as int64 so persisted
// attributes don't grow ".0" suffixes.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
			return int64(v.num)
		}
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// MapInterface converts a facet map into plain Go values for
// persistence.
func MapInterface(m map[string]Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// Text renders a scalar as a string. Lists, maps and invalid values have
// no text form.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	}
	return "", false
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, len(v.obj))
		for _, k := range v.Keys() {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v.obj[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<invalid>"
}
