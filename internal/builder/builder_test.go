package builder_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/schemast/ast"
	"github.com/reoring/schemast/internal/builder"
	"github.com/reoring/schemast/loader"
	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/resolver"
)

func build(t *testing.T, src string, opts builder.Options) *builder.Result {
	t.Helper()
	root, err := rawschema.DecodeJSON([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := resolver.Resolve(context.Background(), root, resolver.Options{
		Cwd:      filepath.FromSlash("/work"),
		FileName: "root.json",
		Loader:   loader.MapLoader{},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, err := builder.Build(res, opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return out
}

func prop(t *testing.T, n ast.Node, name string) ast.Property {
	t.Helper()
	o, ok := n.(*ast.Object)
	if !ok {
		t.Fatalf("%s is not an object", ast.Format(n))
	}
	for _, p := range o.Properties {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no property %q in %s", name, ast.Format(n))
	return ast.Property{}
}

func TestBuild_CircularSelfReference(t *testing.T) {
	out := build(t, `{"type":"object","properties":{"self":{"$ref":"#"}}}`, builder.Options{})
	if out.Root.Name() != "Root" {
		t.Fatalf("root name = %q, want Root", out.Root.Name())
	}
	self := prop(t, out.Root, "self")
	ref, ok := self.Node.(*ast.Reference)
	if !ok || ref.Ref != "Root" {
		t.Fatalf("self = %s, want REFERENCE(Root)", ast.Format(self.Node))
	}
}

func TestBuild_DefinitionsAndRefs(t *testing.T) {
	out := build(t, `{
		"title": "Shop",
		"type": "object",
		"properties": {
			"pet": {"$ref": "#/definitions/pet"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"note": {"type": ["string", "null"], "description": "free text"}
		},
		"required": ["pet"],
		"additionalProperties": false,
		"definitions": {
			"pet": {"type": "object", "properties": {"name": {"type": "string"}}, "additionalProperties": false}
		}
	}`, builder.Options{})

	want := `Shop:OBJECT{pet: Pet:OBJECT{name?: STRING}, tags?: ARRAY<STRING>, note?: UNION[STRING, NULL]}`
	if got := ast.Format(out.Root); got != want {
		t.Fatalf("root:\n got %s\nwant %s", got, want)
	}
	if prop(t, out.Root, "note").Node.Attributes().Comment != "free text" {
		t.Fatalf("description was not carried as a comment")
	}
	if len(out.Definitions) != 1 || out.Definitions[0] != prop(t, out.Root, "pet").Node {
		t.Fatalf("definitions must reuse the node built for the reference")
	}
}

func TestBuild_MutualRecursion(t *testing.T) {
	out := build(t, `{
		"properties": {"a": {"$ref": "#/definitions/a"}},
		"additionalProperties": false,
		"definitions": {
			"a": {"properties": {"b": {"$ref": "#/definitions/b"}}, "additionalProperties": false},
			"b": {"properties": {"a": {"$ref": "#/definitions/a"}}, "additionalProperties": false}
		}
	}`, builder.Options{})
	want := `Root:OBJECT{a?: A:OBJECT{b?: B:OBJECT{a?: REFERENCE(A)}}}`
	if got := ast.Format(out.Root); got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestBuild_EnumsAndConst(t *testing.T) {
	out := build(t, `{
		"properties": {
			"color": {"enum": ["red", "green"]},
			"size": {"enum": [1, 2], "tsEnumNames": ["small", "large"]},
			"kind": {"const": "pet"}
		},
		"additionalProperties": false
	}`, builder.Options{})

	if got := ast.Format(prop(t, out.Root, "color").Node); got != `UNION[LITERAL("red"), LITERAL("green")]` {
		t.Fatalf("color = %s", got)
	}
	size, ok := prop(t, out.Root, "size").Node.(*ast.Enum)
	if !ok || size.Name() != "Size" {
		t.Fatalf("size = %s, want a named ENUM", ast.Format(prop(t, out.Root, "size").Node))
	}
	want := []ast.EnumMember{{Name: "Small", Value: rawschema.Number("1")}, {Name: "Large", Value: rawschema.Number("2")}}
	if diff := cmp.Diff(want, size.Members); diff != "" {
		t.Fatalf("enum members (-want +got):\n%s", diff)
	}
	if lit, ok := prop(t, out.Root, "kind").Node.(*ast.Literal); !ok || lit.Value != "pet" {
		t.Fatalf("kind = %s", ast.Format(prop(t, out.Root, "kind").Node))
	}
}

func TestBuild_TuplesAndAdditional(t *testing.T) {
	out := build(t, `{
		"properties": {
			"pair": {"type": "array", "items": [{"type": "string"}, {"type": "number"}], "minItems": 1, "additionalItems": false},
			"open": {"type": "object"},
			"dict": {"type": "object", "additionalProperties": {"type": "integer"}},
			"any": {}
		},
		"additionalProperties": false
	}`, builder.Options{UnknownAny: true})

	pair, ok := prop(t, out.Root, "pair").Node.(*ast.Tuple)
	if !ok || len(pair.Items) != 2 || pair.MinItems != 1 || pair.Rest != nil {
		t.Fatalf("pair = %s", ast.Format(prop(t, out.Root, "pair").Node))
	}
	if got := ast.Format(prop(t, out.Root, "open").Node); got != "OBJECT{...: UNKNOWN}" {
		t.Fatalf("open = %s", got)
	}
	if got := ast.Format(prop(t, out.Root, "dict").Node); got != "OBJECT{...: INTEGER}" {
		t.Fatalf("dict = %s", got)
	}
	if got := prop(t, out.Root, "any").Node.Kind(); got != ast.KindUnknown {
		t.Fatalf("any = %s", got)
	}
}

func TestBuild_Combinators(t *testing.T) {
	out := build(t, `{
		"properties": {
			"either": {"oneOf": [{"type": "string"}, {"type": "integer"}]},
			"both": {"type": "object", "properties": {"id": {"type": "string"}}, "additionalProperties": false,
				"allOf": [{"$ref": "#/definitions/base"}]}
		},
		"additionalProperties": false,
		"definitions": {"base": {"type": "object", "properties": {"v": {"type": "number"}}, "additionalProperties": false}}
	}`, builder.Options{})
	if got := ast.Format(prop(t, out.Root, "either").Node); got != "UNION[STRING, INTEGER]" {
		t.Fatalf("either = %s", got)
	}
	want := "INTERSECTION[OBJECT{id?: STRING}, INTERSECTION[Base:OBJECT{v?: NUMBER}]]"
	if got := ast.Format(prop(t, out.Root, "both").Node); got != want {
		t.Fatalf("both = %s\nwant %s", got, want)
	}
}

func TestBuild_UnreachableDefinitions(t *testing.T) {
	src := `{"type": "object", "additionalProperties": false, "definitions": {"unused": {"type": "string"}}}`
	out := build(t, src, builder.Options{})
	if len(out.Root.(*ast.Object).Properties) != 0 || len(out.Definitions) != 1 {
		t.Fatalf("definitions must stay off the root by default: %s", ast.Format(out.Root))
	}
	out = build(t, src, builder.Options{UnreachableDefinitions: true})
	p := prop(t, out.Root, "unused")
	if !p.Unreachable || p.Node.Name() != "Unused" {
		t.Fatalf("unexpected unreachable property: %+v", p)
	}
}

func TestBuild_UnsupportedType(t *testing.T) {
	root, _ := rawschema.DecodeJSON([]byte(`{"properties": {"x": {"type": "date"}}}`))
	res, err := resolver.Resolve(context.Background(), root, resolver.Options{Cwd: filepath.FromSlash("/work"), Loader: loader.MapLoader{}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, err = builder.Build(res, builder.Options{})
	if err == nil || !strings.Contains(err.Error(), `/properties/x: unsupported type "date"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTypeName(t *testing.T) {
	cases := map[string]string{
		"pet":          "Pet",
		"pet-owner_id": "PetOwnerId",
		"2fa":          "T2fa",
		"":             "Type",
		"already Good": "AlreadyGood",
	}
	for in, want := range cases {
		if got := builder.TypeName(in); got != want {
			t.Fatalf("TypeName(%q) = %q, want %q", in, got, want)
		}
	}
}
