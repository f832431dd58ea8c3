package rawschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/schemast/schemaerr"
)

// DecodeYAML parses the first YAML document in data into raw values, keeping
// mapping order. Duplicate keys are reported with both positions.
func DecodeYAML(data []byte) (Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &schemaerr.DocumentParseError{Err: errors.New("empty document")}
		}
		return nil, &schemaerr.DocumentParseError{Err: err}
	}
	d := &yamlDecoder{active: make(map[*yaml.Node]bool)}
	return d.value(&root)
}

// maxAliasValues bounds the values produced by alias expansion.
const maxAliasValues = 100000

// Decode parses data as YAML or JSON. The file extension of name decides when
// it is .json, .yaml or .yml; otherwise the first non-space byte does.
func Decode(name string, data []byte) (Value, error) {
	switch strings.ToLower(path.Ext(stripQuery(name))) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".json":
		return DecodeJSON(data)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return DecodeJSON(data)
	}
	return DecodeYAML(data)
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}

type yamlDecoder struct {
	active  map[*yaml.Node]bool // collections on the current path
	aliases int                 // depth of alias expansion
	aliased int                 // values produced below an alias
}

func (d *yamlDecoder) value(n *yaml.Node) (Value, error) {
	if d.aliases > 0 {
		d.aliased++
		if d.aliased > maxAliasValues {
			return nil, &schemaerr.DocumentParseError{Line: n.Line, Column: n.Column, Err: fmt.Errorf("alias expansion exceeds %d values", maxAliasValues)}
		}
	}
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		d.active[n] = true
		defer delete(d.active, n)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.value(n.Content[0])
	case yaml.MappingNode:
		o := NewObject()
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			v := n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, &schemaerr.DocumentParseError{Line: k.Line, Column: k.Column, Err: errors.New("mapping key must be a scalar")}
			}
			key := k.Value
			if pos, dup := first[key]; dup {
				return nil, &schemaerr.DocumentParseError{
					Line:   k.Line,
					Column: k.Column,
					Err:    fmt.Errorf("duplicate YAML key %q (first at %d:%d)", key, pos[0], pos[1]),
				}
			}
			first[key] = [2]int{k.Line, k.Column}
			val, err := d.value(v)
			if err != nil {
				return nil, err
			}
			o.Set(key, val)
		}
		return o, nil
	case yaml.SequenceNode:
		a := &Array{Items: make([]Value, 0, len(n.Content))}
		for _, c := range n.Content {
			v, err := d.value(c)
			if err != nil {
				return nil, err
			}
			a.Items = append(a.Items, v)
		}
		return a, nil
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, nil
		}
		if d.active[n.Alias] {
			return nil, &schemaerr.DocumentParseError{Line: n.Line, Column: n.Column, Err: fmt.Errorf("alias *%s contains itself", n.Value)}
		}
		d.aliases++
		defer func() { d.aliases-- }()
		return d.value(n.Alias)
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, &schemaerr.DocumentParseError{Line: n.Line, Column: n.Column, Err: err}
			}
			return b, nil
		case "!!int":
			if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
				return Number(strconv.FormatInt(i, 10)), nil
			}
			return Number(n.Value), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, &schemaerr.DocumentParseError{Line: n.Line, Column: n.Column, Err: err}
			}
			return Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
		default:
			return n.Value, nil
		}
	}
	return nil, nil
}
