// Package gen renders optimized ASTs as type declarations.
//
// Every named node becomes one declaration; anonymous nodes are inlined where
// they are used and references are rendered by name.
package gen

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/schemast/ast"
)

// TSOptions configures RenderTypeScript.
type TSOptions struct {
	// BannerComment is written verbatim at the top of the output.
	BannerComment string
	// EnableConstEnums emits "const enum" instead of "enum".
	EnableConstEnums bool
	// StrictIndexSignatures adds "| undefined" to index signatures.
	StrictIndexSignatures bool
}

// DefaultBanner is the header written when TSOptions.BannerComment is empty.
const DefaultBanner = "/* eslint-disable */\n/**\n * This file was automatically generated by schemast.\n * DO NOT MODIFY IT BY HAND.\n */"

// RenderTypeScript renders root and every named node below it.
func RenderTypeScript(root ast.Node, opts TSOptions) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("gen: nil root")
	}
	if root.Name() == "" {
		root = ast.Named(root, "Root")
	}
	r := &tsRenderer{opts: opts}
	banner := opts.BannerComment
	if banner == "" {
		banner = DefaultBanner
	}
	r.b.WriteString(banner)
	r.b.WriteString("\n")
	for _, d := range ast.Declarations(root) {
		r.b.WriteString("\n")
		if err := r.declaration(d); err != nil {
			return nil, err
		}
	}
	return []byte(r.b.String()), nil
}

type tsRenderer struct {
	opts TSOptions
	b    strings.Builder
}

func (r *tsRenderer) declaration(n ast.Node) error {
	r.comment(n.Attributes(), "")
	switch x := n.(type) {
	case *ast.Object:
		r.b.WriteString("export interface " + n.Name() + " ")
		body, err := r.object(x, "")
		if err != nil {
			return err
		}
		r.b.WriteString(body + "\n")
	case *ast.Enum:
		kw := "enum"
		if r.opts.EnableConstEnums {
			kw = "const enum"
		}
		r.b.WriteString("export " + kw + " " + n.Name() + " {\n")
		for _, m := range x.Members {
			v, err := tsLiteral(m.Value)
			if err != nil {
				return err
			}
			r.b.WriteString("  " + m.Name + " = " + v + ",\n")
		}
		r.b.WriteString("}\n")
	default:
		expr, err := r.expr(n, "", true)
		if err != nil {
			return err
		}
		r.b.WriteString("export type " + n.Name() + " = " + expr + ";\n")
	}
	return nil
}

func (r *tsRenderer) comment(a ast.Attrs, indent string) {
	if a.Comment == "" && !a.Deprecated {
		return
	}
	r.b.WriteString(indent + "/**\n")
	if a.Comment != "" {
		for _, line := range strings.Split(a.Comment, "\n") {
			line = strings.ReplaceAll(strings.TrimRight(line, " "), "*/", "*\\/")
			r.b.WriteString(indent + " * " + line + "\n")
		}
	}
	if a.Deprecated {
		r.b.WriteString(indent + " * @deprecated\n")
	}
	r.b.WriteString(indent + " */\n")
}

// expr renders n as a type expression. Named nodes below the top are
// rendered by name.
func (r *tsRenderer) expr(n ast.Node, indent string, top bool) (string, error) {
	if n == nil {
		return "unknown", nil
	}
	if !top && n.Name() != "" {
		return n.Name(), nil
	}
	switch x := n.(type) {
	case *ast.Primitive:
		return tsPrimitive(x.Type), nil
	case *ast.Literal:
		return tsLiteral(x.Value)
	case *ast.Enum:
		parts := make([]string, len(x.Members))
		for i, m := range x.Members {
			v, err := tsLiteral(m.Value)
			if err != nil {
				return "", err
			}
			parts[i] = v
		}
		return strings.Join(parts, " | "), nil
	case *ast.Array:
		item, err := r.expr(x.Items, indent, false)
		if err != nil {
			return "", err
		}
		if needsParens(x.Items) {
			item = "(" + item + ")"
		}
		return item + "[]", nil
	case *ast.Tuple:
		parts := make([]string, 0, len(x.Items)+1)
		for i, it := range x.Items {
			s, err := r.expr(it, indent, false)
			if err != nil {
				return "", err
			}
			if i >= x.MinItems {
				s += "?"
			}
			parts = append(parts, s)
		}
		if x.Rest != nil {
			s, err := r.expr(x.Rest, indent, false)
			if err != nil {
				return "", err
			}
			if needsParens(x.Rest) {
				s = "(" + s + ")"
			}
			parts = append(parts, "..."+s+"[]")
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case *ast.Object:
		return r.object(x, indent)
	case *ast.Union:
		return r.join(x.Members, " | ", indent)
	case *ast.Intersection:
		return r.join(x.Members, " & ", indent)
	case *ast.Reference:
		return x.Ref, nil
	default:
		panic(fmt.Sprintf("gen: unknown node %T", n))
	}
}

func (r *tsRenderer) join(ns []ast.Node, sep, indent string) (string, error) {
	parts := make([]string, len(ns))
	for i, c := range ns {
		s, err := r.expr(c, indent, false)
		if err != nil {
			return "", err
		}
		if needsParens(c) {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func needsParens(n ast.Node) bool {
	if n.Name() != "" {
		return false
	}
	switch x := n.(type) {
	case *ast.Union, *ast.Intersection:
		return true
	case *ast.Enum:
		return len(x.Members) > 1
	}
	return false
}

func (r *tsRenderer) object(o *ast.Object, indent string) (string, error) {
	inner := indent + "  "
	var b strings.Builder
	b.WriteString("{\n")
	var index []string
	for _, p := range o.Properties {
		if p.Unreachable {
			continue
		}
		t, err := r.expr(p.Node, inner, false)
		if err != nil {
			return "", err
		}
		if p.Pattern {
			index = append(index, t)
			continue
		}
		a := p.Node.Attributes()
		if p.Node.Name() != "" {
			// the declaration carries the comment
			a = ast.Attrs{}
		}
		if a.Comment != "" || a.Deprecated {
			sub := &tsRenderer{opts: r.opts}
			sub.comment(a, inner)
			b.WriteString(sub.b.String())
		}
		opt := "?"
		if p.Required {
			opt = ""
		}
		b.WriteString(inner + propertyName(p.Name) + opt + ": " + t + ";\n")
	}
	if o.Additional != nil {
		t, err := r.expr(o.Additional, inner, false)
		if err != nil {
			return "", err
		}
		index = append(index, t)
	}
	if len(index) > 0 {
		t := strings.Join(dedupStrings(index), " | ")
		if r.opts.StrictIndexSignatures {
			t += " | undefined"
		}
		b.WriteString(inner + "[k: string]: " + t + ";\n")
	}
	b.WriteString(indent + "}")
	return b.String(), nil
}

func tsPrimitive(k ast.Kind) string {
	switch k {
	case ast.KindAny:
		return "any"
	case ast.KindUnknown:
		return "unknown"
	case ast.KindNever:
		return "never"
	case ast.KindString:
		return "string"
	case ast.KindNumber, ast.KindInteger:
		return "number"
	case ast.KindBoolean:
		return "boolean"
	case ast.KindNull:
		return "null"
	}
	panic(fmt.Sprintf("gen: %s is not a primitive kind", k))
}

func tsLiteral(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("gen: literal %v: %w", v, err)
	}
	return string(b), nil
}

var identRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func propertyName(s string) string {
	if identRE.MatchString(s) {
		return s
	}
	q, _ := json.Marshal(s)
	return string(q)
}

func dedupStrings(ss []string) []string {
	seen := map[string]bool{}
	out := ss[:0:0]
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
