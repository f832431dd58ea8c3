package rawschema_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/schemaerr"
)

func TestDecodeJSON_PreservesKeyOrderAndRoundTrips(t *testing.T) {
	in := `{"type":"object","properties":{"z":{"type":"string"},"a":{"$ref":"./X.json","default":"v1"}},"required":["z"],"maximum":1.50}`
	v, err := rawschema.DecodeJSON([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	root := v.(*rawschema.Object)
	if diff := cmp.Diff([]string{"type", "properties", "required", "maximum"}, root.Keys()); diff != "" {
		t.Fatalf("root keys (-want +got):\n%s", diff)
	}
	props := root.Object("properties")
	if diff := cmp.Diff([]string{"z", "a"}, props.Keys()); diff != "" {
		t.Fatalf("property keys (-want +got):\n%s", diff)
	}
	out, err := rawschema.Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != in {
		t.Fatalf("round-trip mismatch:\n got %s\nwant %s", out, in)
	}
}

func TestDecodeJSON_DuplicateKeyIsParseError(t *testing.T) {
	_, err := rawschema.DecodeJSON([]byte(`{"a":1,"a":2}`))
	var pe *schemaerr.DocumentParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected DocumentParseError, got %v", err)
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	for _, in := range []string{``, `{"a":`, `{"a":1} {}`, `[1,2`} {
		_, err := rawschema.DecodeJSON([]byte(in))
		if !errors.Is(err, schemaerr.ErrDocumentParse) {
			t.Fatalf("input %q: expected parse error, got %v", in, err)
		}
	}
}

func TestDecodeYAML_OrderScalarsAndDuplicates(t *testing.T) {
	in := []byte("title: Pet\ntype: object\nproperties:\n  name: {type: string}\n  age: {type: integer, minimum: 0}\n  tags:\n    - a\n    - true\n    - ~\n")
	v, err := rawschema.DecodeYAML(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	root := v.(*rawschema.Object)
	if diff := cmp.Diff([]string{"title", "type", "properties"}, root.Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	age := root.Object("properties").Object("age")
	if min, _ := age.Get("minimum"); min != rawschema.Number("0") {
		t.Fatalf("minimum = %#v", min)
	}
	tags := root.Object("properties").Array("tags")
	if diff := cmp.Diff([]rawschema.Value{"a", true, nil}, tags.Items); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}

	_, err = rawschema.DecodeYAML([]byte("a: 1\nb: 2\na: 3\n"))
	var pe *schemaerr.DocumentParseError
	if !errors.As(err, &pe) || pe.Line != 3 {
		t.Fatalf("expected duplicate key error at line 3, got %v", err)
	}
}

func TestDecodeYAML_Aliases(t *testing.T) {
	v, err := rawschema.DecodeYAML([]byte("defs:\n  s: &s {type: string}\nproperties:\n  a: *s\n  b: *s\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	props := v.(*rawschema.Object).Object("properties")
	if props.Object("a").String("type") != "string" || props.Object("a") == props.Object("b") {
		t.Fatalf("aliases should expand into separate objects: %#v", props)
	}

	_, err = rawschema.DecodeYAML([]byte("a: &x\n  b: *x\n"))
	var pe *schemaerr.DocumentParseError
	if !errors.As(err, &pe) || pe.Line != 2 || !strings.Contains(pe.Error(), "contains itself") {
		t.Fatalf("expected a self-referencing alias error, got %v", err)
	}
}

func TestDecodeYAML_AliasBomb(t *testing.T) {
	var b strings.Builder
	b.WriteString(`l0: &l0 ["x","x","x","x","x","x","x","x","x","x"]` + "\n")
	for i := 1; i < 7; i++ {
		fmt.Fprintf(&b, "l%d: &l%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "*l%d", i-1)
		}
		b.WriteString("]\n")
	}
	_, err := rawschema.DecodeYAML([]byte(b.String()))
	var pe *schemaerr.DocumentParseError
	if !errors.As(err, &pe) || !strings.Contains(pe.Error(), "alias expansion") {
		t.Fatalf("expected the alias expansion to be rejected, got %v", err)
	}
}

func TestDecode_PicksFormat(t *testing.T) {
	v, err := rawschema.Decode("schema.yml", []byte("type: string\n"))
	if err != nil || v.(*rawschema.Object).String("type") != "string" {
		t.Fatalf("yaml by extension: %v %v", v, err)
	}
	v, err = rawschema.Decode("https://example.com/schema", []byte(` {"type":"number"}`))
	if err != nil || v.(*rawschema.Object).String("type") != "number" {
		t.Fatalf("json by sniffing: %v %v", v, err)
	}
	if _, err := rawschema.Decode("x.json", []byte("type: string")); err == nil {
		t.Fatalf("json extension must not fall back to yaml")
	}
}

func TestToAnyFromAny(t *testing.T) {
	src := map[string]any{"b": []any{1.5, "x"}, "a": map[string]any{"c": true}}
	raw := rawschema.FromAny(src)
	if diff := cmp.Diff([]string{"a", "b"}, raw.(*rawschema.Object).Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(src, rawschema.ToAny(raw)); diff != "" {
		t.Fatalf("ToAny (-want +got):\n%s", diff)
	}
}

func TestChild(t *testing.T) {
	arr := &rawschema.Array{Items: []rawschema.Value{"a", "b"}}
	if v, ok := rawschema.Child(arr, "1"); !ok || v != "b" {
		t.Fatalf("Child(1) = %v %v", v, ok)
	}
	for _, tok := range []string{"2", "-1", "01", "x"} {
		if _, ok := rawschema.Child(arr, tok); ok {
			t.Fatalf("Child(%q) should fail", tok)
		}
	}
}
