package rawschema

import (
	"bytes"

	j "github.com/goccy/go-json"
)

// MarshalJSON writes the object's keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := j.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := j.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes the array items.
func (a *Array) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	if a.Items == nil {
		return []byte("[]"), nil
	}
	return j.Marshal(a.Items)
}

// MarshalJSON writes the number text verbatim.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	return []byte(n), nil
}

// Encode serializes v as compact JSON.
func Encode(v Value) ([]byte, error) {
	return j.Marshal(v)
}

// EncodeIndent serializes v as indented JSON.
func EncodeIndent(v Value) ([]byte, error) {
	return j.MarshalIndent(v, "", "  ")
}
