// Package builder maps resolved raw schema nodes to AST nodes.
package builder

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reoring/schemast/ast"
	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/resolver"
	"github.com/reoring/schemast/schemaerr"
)

// Options configures Build.
type Options struct {
	// UnreachableDefinitions keeps every entry of the root document's
	// definitions/$defs, attached to the root object as unreachable
	// properties so generators still declare them.
	UnreachableDefinitions bool
	// UnknownAny types unconstrained schemas as UNKNOWN instead of ANY.
	UnknownAny bool
	// ClosedObjects treats a missing additionalProperties as false.
	ClosedObjects bool

	Logger zerolog.Logger
}

// Result is the built AST.
type Result struct {
	Root ast.Node
	// Definitions holds the built definitions/$defs entries of the root
	// document in document order.
	Definitions []ast.Node
}

// Build converts res into an AST. Circular references, and references to a
// schema that is still being built, become *ast.Reference nodes naming their
// target; the target is given a standalone name if it has none.
func Build(res *resolver.Resolved, opts Options) (*Result, error) {
	b := &builder{
		res:      res,
		opts:     opts,
		log:      opts.Logger,
		names:    newNamer(),
		nameOf:   map[*rawschema.Object]string{},
		built:    map[*rawschema.Object]ast.Node{},
		building: map[*rawschema.Object]bool{},
	}
	root, err := b.build(res.Root)
	if err != nil {
		return nil, err
	}
	out := &Result{Root: root}

	rootObj, ok := res.Root.(*rawschema.Object)
	if !ok {
		return out, nil
	}
	var unreachable []ast.Property
	for _, key := range []string{"definitions", "$defs"} {
		defs := rootObj.Object(key)
		if defs == nil {
			continue
		}
		var ferr error
		defs.Each(func(name string, v rawschema.Value) bool {
			n, err := b.build(v)
			if err != nil {
				ferr = err
				return false
			}
			out.Definitions = append(out.Definitions, n)
			unreachable = append(unreachable, ast.Property{Name: name, Node: n, Unreachable: true})
			return true
		})
		if ferr != nil {
			return nil, ferr
		}
	}
	if o, ok := root.(*ast.Object); ok && opts.UnreachableDefinitions && len(unreachable) > 0 {
		o.Properties = append(o.Properties, unreachable...)
	}
	return out, nil
}

type builder struct {
	res  *resolver.Resolved
	opts Options
	log  zerolog.Logger

	names    *namer
	nameOf   map[*rawschema.Object]string
	built    map[*rawschema.Object]ast.Node
	building map[*rawschema.Object]bool
}

func (b *builder) unconstrained() ast.Node {
	if b.opts.UnknownAny {
		return ast.Unknown()
	}
	return ast.Any()
}

// build converts one schema value. Boolean schemas are ANY and NEVER.
func (b *builder) build(v rawschema.Value) (ast.Node, error) {
	switch t := v.(type) {
	case *rawschema.Object:
		return b.object(t)
	case bool:
		if t {
			return b.unconstrained(), nil
		}
		return ast.Never(), nil
	default:
		return nil, fmt.Errorf("builder: schema must be an object or a boolean, got %T", v)
	}
}

func (b *builder) object(o *rawschema.Object) (ast.Node, error) {
	if n, ok := b.built[o]; ok {
		return n, nil
	}
	if b.building[o] {
		return b.reference(o), nil
	}
	b.building[o] = true
	n, err := b.schema(o)
	delete(b.building, o)
	if err != nil {
		return nil, err
	}
	attrs := n.Attributes()
	if name := b.name(o); name != "" {
		attrs.StandaloneName = name
	}
	if d := o.String("description"); d != "" {
		attrs.Comment = d
	}
	if dep, ok := o.Get("deprecated"); ok && dep == true {
		attrs.Deprecated = true
	}
	if attrs != n.Attributes() {
		n = ast.WithAttrs(n, attrs)
	}
	b.built[o] = n
	return n, nil
}

// reference returns a handle to o, naming o if needed.
func (b *builder) reference(o *rawschema.Object) ast.Node {
	name := b.name(o)
	if name == "" {
		// circular targets and objects under construction were all visited
		name = b.synthName(b.res.MustMeta(o))
		b.nameOf[o] = name
	}
	b.log.Debug().Str("name", name).Msg("circular reference")
	return &ast.Reference{Ref: name}
}

// name returns the declaration name of o, assigning it on first call: the
// title, the definitions key, or the file name of a document root.
func (b *builder) name(o *rawschema.Object) string {
	if n, ok := b.nameOf[o]; ok {
		return n
	}
	var base string
	m, _ := b.res.Meta(o)
	switch {
	case o.String("title") != "":
		base = TypeName(o.String("title"))
	case isDefinition(m.Path):
		base = TypeName(m.Path[len(m.Path)-1])
	case m.Parent == nil && m.FileName != "":
		base = fileTypeName(m.FileName)
	case (o.Has("tsEnumNames") || o.Has("x-enumNames")) && o.Has("enum"):
		base = b.synthName(m)
		b.nameOf[o] = base
		return base
	}
	if base != "" {
		base = b.names.unique(base)
	}
	b.nameOf[o] = base
	return base
}

func (b *builder) synthName(m resolver.Meta) string {
	if len(m.Path) == 0 {
		return b.names.unique(fileTypeName(m.FileName))
	}
	return b.names.unique(TypeName(m.Path[len(m.Path)-1]))
}

func isDefinition(path []string) bool {
	n := len(path)
	return n >= 2 && (path[n-2] == "definitions" || path[n-2] == "$defs")
}

// schema builds o without its attributes.
func (b *builder) schema(o *rawschema.Object) (ast.Node, error) {
	if ref, ok := o.Ref(); ok {
		return b.ref(o, ref)
	}
	var parts []ast.Node
	add := func(n ast.Node, err error) error {
		if err != nil {
			return err
		}
		if n != nil {
			parts = append(parts, n)
		}
		return nil
	}
	if err := add(b.value(o)); err != nil {
		return nil, err
	}
	if err := add(b.combinator(o, "allOf")); err != nil {
		return nil, err
	}
	if err := add(b.combinator(o, "anyOf")); err != nil {
		return nil, err
	}
	if err := add(b.combinator(o, "oneOf")); err != nil {
		return nil, err
	}
	switch len(parts) {
	case 0:
		return b.unconstrained(), nil
	case 1:
		return parts[0], nil
	}
	return &ast.Intersection{Members: parts}, nil
}

func (b *builder) ref(o *rawschema.Object, ref string) (ast.Node, error) {
	m, ok := b.res.Meta(o)
	if !ok || m.Reference == nil {
		// the reference failed to resolve and was skipped
		b.log.Warn().Str("ref", ref).Msg("unresolved reference")
		return b.unconstrained(), nil
	}
	var target ast.Node
	switch t := m.Reference.(type) {
	case *rawschema.Object:
		if m.IsCircular {
			target = b.reference(t)
			break
		}
		n, err := b.object(t)
		if err != nil {
			return nil, err
		}
		target = n
	default:
		n, err := b.build(t)
		if err != nil {
			return nil, fmt.Errorf("builder: %s: $ref %q: %w", m.Pointer(), ref, err)
		}
		target = n
	}

	// structural keywords beside $ref narrow the target
	sib := rawschema.NewObject()
	o.Each(func(k string, v rawschema.Value) bool {
		if k != "$ref" && structural[k] {
			sib.Set(k, v)
		}
		return true
	})
	if sib.Len() == 0 {
		return target, nil
	}
	extra, err := b.schema(sib)
	if err != nil {
		return nil, err
	}
	return &ast.Intersection{Members: []ast.Node{target, extra}}, nil
}

var structural = map[string]bool{
	"type": true, "properties": true, "patternProperties": true, "additionalProperties": true,
	"required": true, "items": true, "additionalItems": true, "allOf": true, "anyOf": true,
	"oneOf": true, "enum": true, "const": true,
}

func (b *builder) combinator(o *rawschema.Object, key string) (ast.Node, error) {
	v, ok := o.Get(key)
	if !ok {
		return nil, nil
	}
	arr, ok := v.(*rawschema.Array)
	if !ok {
		return nil, b.errorf(o, "%s must be an array", key)
	}
	members := make([]ast.Node, 0, arr.Len())
	for _, item := range arr.Items {
		n, err := b.build(item)
		if err != nil {
			return nil, err
		}
		members = append(members, n)
	}
	if key == "allOf" {
		return &ast.Intersection{Members: members}, nil
	}
	return &ast.Union{Members: members}, nil
}

// value builds const, enum, type and the implied object/array shapes.
func (b *builder) value(o *rawschema.Object) (ast.Node, error) {
	if c, ok := o.Get("const"); ok {
		return &ast.Literal{Value: literal(c)}, nil
	}
	if e, ok := o.Get("enum"); ok {
		return b.enum(o, e)
	}
	if t, ok := o.Get("type"); ok {
		switch tv := t.(type) {
		case string:
			return b.typed(o, tv)
		case *rawschema.Array:
			members := make([]ast.Node, 0, tv.Len())
			for _, item := range tv.Items {
				s, ok := item.(string)
				if !ok {
					return nil, b.errorf(o, "type list entries must be strings")
				}
				n, err := b.typed(o, s)
				if err != nil {
					return nil, err
				}
				members = append(members, n)
			}
			return &ast.Union{Members: members}, nil
		default:
			return nil, b.errorf(o, "type must be a string or an array")
		}
	}
	switch {
	case o.Has("properties") || o.Has("patternProperties") || o.Has("additionalProperties") || o.Has("required"):
		return b.objectType(o)
	case o.Has("items"):
		return b.arrayType(o)
	}
	return nil, nil
}

func (b *builder) typed(o *rawschema.Object, t string) (ast.Node, error) {
	switch t {
	case "string":
		return ast.String(), nil
	case "number":
		return ast.Number(), nil
	case "integer":
		return ast.Integer(), nil
	case "boolean":
		return ast.Boolean(), nil
	case "null":
		return ast.Null(), nil
	case "any":
		return b.unconstrained(), nil
	case "object":
		return b.objectType(o)
	case "array":
		return b.arrayType(o)
	}
	return nil, b.errorf(o, "unsupported type %q", t)
}

func (b *builder) enum(o *rawschema.Object, e rawschema.Value) (ast.Node, error) {
	arr, ok := e.(*rawschema.Array)
	if !ok {
		return nil, b.errorf(o, "enum must be an array")
	}
	names := o.Array("tsEnumNames")
	if names == nil {
		names = o.Array("x-enumNames")
	}
	if names != nil {
		if names.Len() != arr.Len() {
			return nil, b.errorf(o, "enum has %d values but %d names", arr.Len(), names.Len())
		}
		en := &ast.Enum{Members: make([]ast.EnumMember, arr.Len())}
		for i, v := range arr.Items {
			name, _ := names.Items[i].(string)
			en.Members[i] = ast.EnumMember{Name: TypeName(name), Value: literal(v)}
		}
		return en, nil
	}
	members := make([]ast.Node, 0, arr.Len())
	for _, v := range arr.Items {
		members = append(members, &ast.Literal{Value: literal(v)})
	}
	return &ast.Union{Members: members}, nil
}

// literal keeps scalars as decoded and converts containers to plain data.
func literal(v rawschema.Value) any {
	switch v.(type) {
	case *rawschema.Object, *rawschema.Array:
		return rawschema.ToAny(v)
	}
	return v
}

func (b *builder) objectType(o *rawschema.Object) (ast.Node, error) {
	out := &ast.Object{}
	required := map[string]bool{}
	if req := o.Array("required"); req != nil {
		for _, r := range req.Items {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}
	var ferr error
	if props := o.Object("properties"); props != nil {
		props.Each(func(k string, v rawschema.Value) bool {
			n, err := b.build(v)
			if err != nil {
				ferr = err
				return false
			}
			out.Properties = append(out.Properties, ast.Property{Name: k, Node: n, Required: required[k]})
			return true
		})
	}
	if ferr != nil {
		return nil, ferr
	}
	if pats := o.Object("patternProperties"); pats != nil {
		pats.Each(func(k string, v rawschema.Value) bool {
			n, err := b.build(v)
			if err != nil {
				ferr = err
				return false
			}
			out.Properties = append(out.Properties, ast.Property{Name: k, Node: n, Pattern: true})
			return true
		})
	}
	if ferr != nil {
		return nil, ferr
	}

	add, ok := o.Get("additionalProperties")
	switch {
	case !ok:
		if !b.opts.ClosedObjects && !o.Has("patternProperties") {
			out.Additional = b.unconstrained()
		}
	case add == true:
		out.Additional = b.unconstrained()
	case add == false:
	default:
		n, err := b.build(add)
		if err != nil {
			return nil, err
		}
		out.Additional = n
	}
	return out, nil
}

func (b *builder) arrayType(o *rawschema.Object) (ast.Node, error) {
	items, ok := o.Get("items")
	if !ok {
		return &ast.Array{Items: b.unconstrained()}, nil
	}
	list, ok := items.(*rawschema.Array)
	if !ok {
		n, err := b.build(items)
		if err != nil {
			return nil, err
		}
		return &ast.Array{Items: n}, nil
	}

	t := &ast.Tuple{Items: make([]ast.Node, 0, list.Len())}
	for _, item := range list.Items {
		n, err := b.build(item)
		if err != nil {
			return nil, err
		}
		t.Items = append(t.Items, n)
	}
	if mv, ok := o.Get("minItems"); ok {
		if num, ok := mv.(rawschema.Number); ok {
			if i, err := num.Int64(); err == nil && i > 0 {
				t.MinItems = min(int(i), len(t.Items))
			}
		}
	}
	switch rest, ok := o.Get("additionalItems"); {
	case !ok || rest == true:
		t.Rest = b.unconstrained()
	case rest == false:
	default:
		n, err := b.build(rest)
		if err != nil {
			return nil, err
		}
		t.Rest = n
	}
	return t, nil
}

func (b *builder) errorf(o *rawschema.Object, format string, args ...any) error {
	where := "?"
	if m, ok := b.res.Meta(o); ok {
		where = schemaerr.Pointer(m.Path)
		if m.FileName != "" {
			where = m.FileName + "#" + where
		}
	}
	return fmt.Errorf("builder: %s: %s", where, fmt.Sprintf(format, args...))
}
