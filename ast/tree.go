package ast

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Equal reports whether a and b are structurally equal. The top-level
// StandaloneName is ignored, so a named node equals its anonymous twin;
// names below the top level take part in the comparison.
func Equal(a, b Node) bool { return equal(a, b, true) }

func equal(a, b Node, ignoreName bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	aa, ba := a.Attributes(), b.Attributes()
	if ignoreName {
		aa.StandaloneName, ba.StandaloneName = "", ""
	}
	if aa != ba {
		return false
	}
	switch x := a.(type) {
	case *Primitive:
		return true
	case *Literal:
		return reflect.DeepEqual(x.Value, b.(*Literal).Value)
	case *Enum:
		y := b.(*Enum)
		if len(x.Members) != len(y.Members) {
			return false
		}
		for i := range x.Members {
			if x.Members[i].Name != y.Members[i].Name || !reflect.DeepEqual(x.Members[i].Value, y.Members[i].Value) {
				return false
			}
		}
		return true
	case *Array:
		return equal(x.Items, b.(*Array).Items, false)
	case *Tuple:
		y := b.(*Tuple)
		return x.MinItems == y.MinItems && equalList(x.Items, y.Items) && equal(x.Rest, y.Rest, false)
	case *Object:
		y := b.(*Object)
		if len(x.Properties) != len(y.Properties) {
			return false
		}
		for i, p := range x.Properties {
			q := y.Properties[i]
			if p.Name != q.Name || p.Required != q.Required || p.Pattern != q.Pattern || p.Unreachable != q.Unreachable {
				return false
			}
			if !equal(p.Node, q.Node, false) {
				return false
			}
		}
		return equal(x.Additional, y.Additional, false)
	case *Union:
		return equalList(x.Members, b.(*Union).Members)
	case *Intersection:
		return equalList(x.Members, b.(*Intersection).Members)
	case *Reference:
		return x.Ref == b.(*Reference).Ref
	default:
		panic(fmt.Sprintf("ast: unknown node %T", a))
	}
}

func equalList(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i], false) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of n. Literal values are shared.
func Clone(n Node) Node {
	if n == nil {
		return nil
	}
	switch x := n.(type) {
	case *Primitive:
		c := *x
		return &c
	case *Literal:
		c := *x
		return &c
	case *Enum:
		c := *x
		c.Members = append([]EnumMember(nil), x.Members...)
		return &c
	case *Array:
		c := *x
		c.Items = Clone(x.Items)
		return &c
	case *Tuple:
		c := *x
		c.Items = cloneList(x.Items)
		c.Rest = Clone(x.Rest)
		return &c
	case *Object:
		c := *x
		c.Properties = make([]Property, len(x.Properties))
		for i, p := range x.Properties {
			p.Node = Clone(p.Node)
			c.Properties[i] = p
		}
		c.Additional = Clone(x.Additional)
		return &c
	case *Union:
		c := *x
		c.Members = cloneList(x.Members)
		return &c
	case *Intersection:
		c := *x
		c.Members = cloneList(x.Members)
		return &c
	case *Reference:
		c := *x
		return &c
	default:
		panic(fmt.Sprintf("ast: unknown node %T", n))
	}
}

func cloneList(ns []Node) []Node {
	if ns == nil {
		return nil
	}
	out := make([]Node, len(ns))
	for i, n := range ns {
		out[i] = Clone(n)
	}
	return out
}

// Children returns the direct children of n in declaration order.
func Children(n Node) []Node {
	switch x := n.(type) {
	case *Primitive, *Literal, *Enum, *Reference:
		return nil
	case *Array:
		return []Node{x.Items}
	case *Tuple:
		out := append([]Node(nil), x.Items...)
		if x.Rest != nil {
			out = append(out, x.Rest)
		}
		return out
	case *Object:
		out := make([]Node, 0, len(x.Properties)+1)
		for _, p := range x.Properties {
			out = append(out, p.Node)
		}
		if x.Additional != nil {
			out = append(out, x.Additional)
		}
		return out
	case *Union:
		return x.Members
	case *Intersection:
		return x.Members
	default:
		panic(fmt.Sprintf("ast: unknown node %T", n))
	}
}

// Walk visits n and its descendants depth-first, parents before children.
// References are not followed. Returning false from fn skips the children of
// the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Declarations returns the named nodes reachable from n in walk order. When
// two nodes share a name the first one wins.
func Declarations(n Node) []Node {
	var out []Node
	seen := map[string]bool{}
	Walk(n, func(c Node) bool {
		if name := c.Name(); name != "" && c.Kind() != KindReference && !seen[name] {
			seen[name] = true
			out = append(out, c)
		}
		return true
	})
	return out
}

// Format renders n on one line, e.g. UNION[STRING, Pet:OBJECT{a?: NUMBER}].
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

func format(b *strings.Builder, n Node) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	if name := n.Name(); name != "" {
		b.WriteString(name)
		b.WriteByte(':')
	}
	b.WriteString(n.Kind().String())
	switch x := n.(type) {
	case *Primitive:
	case *Literal:
		b.WriteByte('(')
		b.WriteString(formatValue(x.Value))
		b.WriteByte(')')
	case *Enum:
		b.WriteByte('(')
		for i, m := range x.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatValue(m.Value))
		}
		b.WriteByte(')')
	case *Array:
		b.WriteByte('<')
		format(b, x.Items)
		b.WriteByte('>')
	case *Tuple:
		b.WriteByte('[')
		formatList(b, x.Items)
		if x.Rest != nil {
			b.WriteString(", ...")
			format(b, x.Rest)
		}
		b.WriteByte(']')
	case *Object:
		b.WriteByte('{')
		for i, p := range x.Properties {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
			if !p.Required {
				b.WriteByte('?')
			}
			b.WriteString(": ")
			format(b, p.Node)
		}
		if x.Additional != nil {
			if len(x.Properties) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("...: ")
			format(b, x.Additional)
		}
		b.WriteByte('}')
	case *Union, *Intersection:
		b.WriteByte('[')
		formatList(b, Children(n))
		b.WriteByte(']')
	case *Reference:
		b.WriteString("(" + x.Ref + ")")
	default:
		panic(fmt.Sprintf("ast: unknown node %T", n))
	}
}

func formatList(b *strings.Builder, ns []Node) {
	for i, c := range ns {
		if i > 0 {
			b.WriteString(", ")
		}
		format(b, c)
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
