// Package rawschema holds schema documents as untyped, order-preserving trees.
//
// A Value is one of *Object, *Array, string, Number, bool or nil. Objects and
// arrays are Nodes: they carry pointer identity, so the same node reached via
// two paths is recognisably the same node. Metadata is never stored on nodes;
// the resolver keeps it in a side table keyed by Node.
package rawschema

import (
	"sort"
	"strconv"
)

// Value is any raw schema value.
type Value = any

// Node is an identity-bearing raw value: *Object or *Array.
type Node interface {
	// Each calls fn for every child in document order. Array children are keyed
	// by their decimal index. Iteration stops when fn returns false.
	Each(fn func(key string, v Value) bool)
	Len() int
	isNode()
}

// Number keeps the literal text of a JSON/YAML number so round-trips are exact.
type Number string

// Float64 parses the number.
func (n Number) Float64() (float64, error) { return strconv.ParseFloat(string(n), 64) }

// Int64 parses the number as an integer.
func (n Number) Int64() (int64, error) { return strconv.ParseInt(string(n), 10, 64) }

func (n Number) String() string { return string(n) }

// Object is a JSON object that remembers key insertion order.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

func (*Object) isNode() {}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Get returns the value stored under k.
func (o *Object) Get(k string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[k]
	return v, ok
}

// Has reports whether k is present.
func (o *Object) Has(k string) bool {
	_, ok := o.Get(k)
	return ok
}

// Set stores v under k. New keys are appended; existing keys keep their position.
func (o *Object) Set(k string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

// Each implements Node.
func (o *Object) Each(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Ref returns the $ref string of the object, if any.
func (o *Object) Ref() (string, bool) {
	v, ok := o.Get("$ref")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// String returns the string stored under k, or "".
func (o *Object) String(k string) string {
	v, _ := o.Get(k)
	s, _ := v.(string)
	return s
}

// Object returns the object stored under k, or nil.
func (o *Object) Object(k string) *Object {
	v, _ := o.Get(k)
	m, _ := v.(*Object)
	return m
}

// Array returns the array stored under k, or nil.
func (o *Object) Array(k string) *Array {
	v, _ := o.Get(k)
	a, _ := v.(*Array)
	return a
}

// Array is a JSON array.
type Array struct {
	Items []Value
}

func (*Array) isNode() {}

// Len returns the number of items.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Items)
}

// Each implements Node.
func (a *Array) Each(fn func(key string, v Value) bool) {
	if a == nil {
		return
	}
	for i, v := range a.Items {
		if !fn(strconv.Itoa(i), v) {
			return
		}
	}
}

// Child returns the child of n addressed by a single path token.
func Child(n Node, tok string) (Value, bool) {
	switch t := n.(type) {
	case *Object:
		return t.Get(tok)
	case *Array:
		i, err := strconv.Atoi(tok)
		if err != nil || i < 0 || i >= len(t.Items) || strconv.Itoa(i) != tok {
			return nil, false
		}
		return t.Items[i], true
	}
	return nil, false
}

// AsNode returns v as a Node when it is an object or array.
func AsNode(v Value) (Node, bool) {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil, false
		}
		return t, true
	case *Array:
		if t == nil {
			return nil, false
		}
		return t, true
	}
	return nil, false
}

// ToAny converts v into plain Go data: map[string]any, []any, string, float64,
// bool and nil. Numbers that do not fit a float64 stay as Number.
func ToAny(v Value) any {
	switch t := v.(type) {
	case *Object:
		m := make(map[string]any, t.Len())
		t.Each(func(k string, c Value) bool {
			m[k] = ToAny(c)
			return true
		})
		return m
	case *Array:
		out := make([]any, len(t.Items))
		for i, c := range t.Items {
			out[i] = ToAny(c)
		}
		return out
	case Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t
	default:
		return v
	}
}

// FromAny converts plain Go data into raw values. Map keys are sorted because
// Go maps carry no order.
func FromAny(v any) Value {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.Set(k, FromAny(t[k]))
		}
		return o
	case []any:
		a := &Array{Items: make([]Value, len(t))}
		for i, c := range t {
			a.Items[i] = FromAny(c)
		}
		return a
	case []string:
		a := &Array{Items: make([]Value, len(t))}
		for i, c := range t {
			a.Items[i] = c
		}
		return a
	case int:
		return Number(strconv.Itoa(t))
	case int64:
		return Number(strconv.FormatInt(t, 10))
	case float64:
		return Number(strconv.FormatFloat(t, 'g', -1, 64))
	case Number, string, bool, nil, *Object, *Array:
		return t
	default:
		return t
	}
}
