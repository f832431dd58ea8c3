package rawschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/reoring/schemast/schemaerr"
)

// DecodeJSON parses a JSON document into raw values, keeping object key order.
// Malformed input, duplicate keys and trailing data fail with
// *schemaerr.DocumentParseError.
func DecodeJSON(data []byte) (Value, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	d := &jsonDecoder{dec: dec, data: data}
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &schemaerr.DocumentParseError{Err: errors.New("empty document")}
		}
		return nil, d.parseError(err)
	}
	v, err := d.value(tok)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, d.parseError(err)
	}
	return v, nil
}

type jsonDecoder struct {
	dec  *j.Decoder
	data []byte
}

func (d *jsonDecoder) value(tok j.Token) (Value, error) {
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			return d.object()
		case '[':
			return d.array()
		}
		return nil, d.parseError(fmt.Errorf("unexpected delimiter %q", rune(v)))
	case string:
		return v, nil
	case j.Number:
		return Number(v), nil
	case float64:
		return Number(strconv.FormatFloat(v, 'g', -1, 64)), nil
	case bool:
		return v, nil
	case nil:
		return nil, nil
	}
	return nil, d.parseError(fmt.Errorf("unexpected token %v", tok))
}

func (d *jsonDecoder) object() (*Object, error) {
	o := NewObject()
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.parseError(err)
		}
		if delim, ok := tok.(j.Delim); ok && delim == '}' {
			return o, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, d.parseError(fmt.Errorf("object key must be a string, got %v", tok))
		}
		if o.Has(key) {
			return nil, d.parseError(fmt.Errorf("key '%s' duplicated", key))
		}
		vt, err := d.dec.Token()
		if err != nil {
			return nil, d.parseError(err)
		}
		v, err := d.value(vt)
		if err != nil {
			return nil, err
		}
		o.Set(key, v)
	}
}

func (d *jsonDecoder) array() (*Array, error) {
	a := &Array{Items: []Value{}}
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.parseError(err)
		}
		if delim, ok := tok.(j.Delim); ok && delim == ']' {
			return a, nil
		}
		v, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		a.Items = append(a.Items, v)
	}
}

func (d *jsonDecoder) parseError(err error) error {
	var pe *schemaerr.DocumentParseError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	out := &schemaerr.DocumentParseError{Err: err}
	var se *j.SyntaxError
	if errors.As(err, &se) {
		out.Line, out.Column = lineCol(d.data, se.Offset)
	}
	return out
}

// lineCol converts a byte offset into a 1-based line and column.
func lineCol(data []byte, off int64) (int, int) {
	if off < 0 {
		return 0, 0
	}
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	line, col := 1, 1
	for _, c := range data[:off] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
