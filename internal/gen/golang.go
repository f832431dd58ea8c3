package gen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/reoring/schemast/ast"
	"github.com/reoring/schemast/rawschema"
)

// RenderGo renders root and every named node below it as a Go file in
// package pkg. Objects become structs with json tags, string and numeric
// enums become typed constants, nullable unions become pointers and other
// unions become any.
func RenderGo(pkg string, root ast.Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("gen: nil root")
	}
	if pkg == "" {
		pkg = "schema"
	}
	if root.Name() == "" {
		root = ast.Named(root, "Root")
	}
	r := &goRenderer{}
	r.b.WriteString("// Code generated by schemast. DO NOT EDIT.\n\n")
	r.b.WriteString("package " + pkg + "\n")
	for _, d := range ast.Declarations(root) {
		r.b.WriteString("\n")
		if err := r.declaration(d); err != nil {
			return nil, err
		}
	}
	out, err := imports.Process(pkg+".go", []byte(r.b.String()), &imports.Options{Comments: true, TabIndent: true, TabWidth: 8, FormatOnly: true})
	if err != nil {
		return nil, fmt.Errorf("gen: format go source: %w", err)
	}
	return out, nil
}

type goRenderer struct {
	b strings.Builder
}

func (r *goRenderer) declaration(n ast.Node) error {
	name := n.Name()
	r.comment(n.Attributes())
	switch x := n.(type) {
	case *ast.Object:
		r.b.WriteString("type " + name + " " + r.object(x) + "\n")
	case *ast.Enum:
		base := enumBase(x.Members)
		r.b.WriteString("type " + name + " " + base + "\n")
		if base == "any" {
			return nil
		}
		r.b.WriteString("\nconst (\n")
		for _, m := range x.Members {
			v, err := goLiteral(m.Value)
			if err != nil {
				return err
			}
			r.b.WriteString(name + m.Name + " " + name + " = " + v + "\n")
		}
		r.b.WriteString(")\n")
	default:
		r.b.WriteString("type " + name + " " + r.expr(n, true) + "\n")
	}
	return nil
}

func (r *goRenderer) comment(a ast.Attrs) {
	if a.Comment != "" {
		for _, line := range strings.Split(a.Comment, "\n") {
			r.b.WriteString("// " + strings.TrimRight(line, " ") + "\n")
		}
	}
	if a.Deprecated {
		if a.Comment != "" {
			r.b.WriteString("//\n")
		}
		r.b.WriteString("// Deprecated: do not use.\n")
	}
}

func (r *goRenderer) expr(n ast.Node, top bool) string {
	if n == nil {
		return "any"
	}
	if !top && n.Name() != "" {
		return n.Name()
	}
	switch x := n.(type) {
	case *ast.Primitive:
		return goPrimitive(x.Type)
	case *ast.Literal:
		return literalType(x.Value)
	case *ast.Enum:
		return enumBase(x.Members)
	case *ast.Array:
		return "[]" + r.expr(x.Items, false)
	case *ast.Tuple:
		return "[]any"
	case *ast.Object:
		return r.object(x)
	case *ast.Union:
		return r.union(x)
	case *ast.Intersection:
		return r.intersection(x)
	case *ast.Reference:
		return "*" + x.Ref
	default:
		panic(fmt.Sprintf("gen: unknown node %T", n))
	}
}

// union renders T|null as *T and anything else as any.
func (r *goRenderer) union(u *ast.Union) string {
	var rest []ast.Node
	nullable := false
	for _, m := range u.Members {
		if m.Kind() == ast.KindNull && m.Name() == "" {
			nullable = true
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) != 1 {
		return "any"
	}
	t := r.expr(rest[0], false)
	if nullable && !strings.HasPrefix(t, "*") && !strings.HasPrefix(t, "[]") && !strings.HasPrefix(t, "map[") && t != "any" {
		return "*" + t
	}
	return t
}

// intersection embeds named object members and merges anonymous ones. Any
// other member makes the result any.
func (r *goRenderer) intersection(in *ast.Intersection) string {
	var b strings.Builder
	b.WriteString("struct {\n")
	for _, m := range in.Members {
		switch x := m.(type) {
		case *ast.Object:
			if x.Name() != "" {
				b.WriteString(x.Name() + "\n")
				continue
			}
			b.WriteString(r.fields(x))
		case *ast.Reference:
			b.WriteString("*" + x.Ref + "\n")
		default:
			return "any"
		}
	}
	b.WriteString("}")
	return b.String()
}

func (r *goRenderer) object(o *ast.Object) string {
	named := 0
	for _, p := range o.Properties {
		if !p.Unreachable && !p.Pattern {
			named++
		}
	}
	if named == 0 && o.Additional != nil {
		return "map[string]" + r.expr(o.Additional, false)
	}
	return "struct {\n" + r.fields(o) + "}"
}

func (r *goRenderer) fields(o *ast.Object) string {
	var b strings.Builder
	used := map[string]bool{}
	for _, p := range o.Properties {
		if p.Unreachable || p.Pattern {
			continue
		}
		field := exportedName(p.Name)
		for used[field] {
			field += "_"
		}
		used[field] = true
		if c := p.Node.Attributes().Comment; c != "" && p.Node.Name() == "" {
			for _, line := range strings.Split(c, "\n") {
				b.WriteString("// " + line + "\n")
			}
		}
		tag := p.Name
		if !p.Required {
			tag += ",omitempty"
		}
		b.WriteString(field + " " + r.expr(p.Node, false) + " `json:" + strconv.Quote(tag) + "`\n")
	}
	if o.Additional != nil || hasPattern(o) {
		t := "any"
		if o.Additional != nil && !hasPattern(o) {
			t = r.expr(o.Additional, false)
		}
		field := "AdditionalProperties"
		for used[field] {
			field += "_"
		}
		b.WriteString(field + " map[string]" + t + " `json:\"-\"`\n")
	}
	return b.String()
}

func hasPattern(o *ast.Object) bool {
	for _, p := range o.Properties {
		if p.Pattern && !p.Unreachable {
			return true
		}
	}
	return false
}

func goPrimitive(k ast.Kind) string {
	switch k {
	case ast.KindAny, ast.KindUnknown, ast.KindNull:
		return "any"
	case ast.KindNever:
		return "struct{}"
	case ast.KindString:
		return "string"
	case ast.KindNumber:
		return "float64"
	case ast.KindInteger:
		return "int64"
	case ast.KindBoolean:
		return "bool"
	}
	panic(fmt.Sprintf("gen: %s is not a primitive kind", k))
}

func literalType(v any) string {
	switch x := v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case rawschema.Number:
		if _, err := x.Int64(); err == nil {
			return "int64"
		}
		return "float64"
	case float64:
		return "float64"
	}
	return "any"
}

// enumBase is the common Go type of the values, or any when they differ.
func enumBase(ms []ast.EnumMember) string {
	base := ""
	for _, m := range ms {
		t := literalType(m.Value)
		switch {
		case base == "":
			base = t
		case base == t:
		case base == "int64" && t == "float64", base == "float64" && t == "int64":
			base = "float64"
		default:
			return "any"
		}
	}
	if base == "" || base == "bool" {
		return "any"
	}
	return base
}

func goLiteral(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x), nil
	case rawschema.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("gen: %T enum value has no Go constant form", v)
}

// exportedName turns a JSON property name into an exported Go identifier.
func exportedName(s string) string {
	var b strings.Builder
	upper := true
	for _, c := range s {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			upper = true
			continue
		}
		if upper {
			c = unicode.ToUpper(c)
			upper = false
		}
		b.WriteRune(c)
	}
	out := b.String()
	if out == "" {
		return "Field"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		return "F" + out
	}
	for _, init := range initialisms {
		if out == init.from || strings.HasSuffix(out, init.from) && isUpperBoundary(out, len(out)-len(init.from)) {
			out = out[:len(out)-len(init.from)] + init.to
			break
		}
	}
	return out
}

var initialisms = []struct{ from, to string }{
	{"Id", "ID"}, {"Url", "URL"}, {"Uri", "URI"}, {"Json", "JSON"}, {"Http", "HTTP"},
}

func isUpperBoundary(s string, i int) bool {
	return i == 0 || unicode.IsLower(rune(s[i-1])) || unicode.IsDigit(rune(s[i-1]))
}
