// Package ast defines the typed tree that code generators consume.
//
// Node is a closed sum type: every variant lives in this package and every
// traversal switches over the concrete types, panicking on anything else.
package ast

import "fmt"

// Kind identifies an AST node type.
type Kind int

const (
	KindAny Kind = iota
	KindUnknown
	KindNever
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindNull
	KindLiteral
	KindEnum
	KindArray
	KindTuple
	KindObject
	KindUnion
	KindIntersection
	KindReference
)

var kindNames = [...]string{
	KindAny:          "ANY",
	KindUnknown:      "UNKNOWN",
	KindNever:        "NEVER",
	KindString:       "STRING",
	KindNumber:       "NUMBER",
	KindInteger:      "INTEGER",
	KindBoolean:      "BOOLEAN",
	KindNull:         "NULL",
	KindLiteral:      "LITERAL",
	KindEnum:         "ENUM",
	KindArray:        "ARRAY",
	KindTuple:        "TUPLE",
	KindObject:       "OBJECT",
	KindUnion:        "UNION",
	KindIntersection: "INTERSECTION",
	KindReference:    "REFERENCE",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsPrimitive reports kinds represented by *Primitive.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindAny, KindUnknown, KindNever, KindString, KindNumber, KindInteger, KindBoolean, KindNull:
		return true
	}
	return false
}

// Attrs are the attributes every node carries.
type Attrs struct {
	// StandaloneName, when set, asks generators to emit the node as a named
	// declaration instead of inlining it.
	StandaloneName string
	Comment        string
	Deprecated     bool
}

// Attributes returns a copy of the attributes.
func (a Attrs) Attributes() Attrs { return a }

// Name returns the standalone name.
func (a Attrs) Name() string { return a.StandaloneName }

// Node is implemented by the variants below and nothing else.
type Node interface {
	Kind() Kind
	Attributes() Attrs
	Name() string
	isNode()
}

// Primitive is a leaf of one of the primitive kinds.
type Primitive struct {
	Attrs
	Type Kind
}

// Literal is a single constant value: string, bool, nil or a number.
type Literal struct {
	Attrs
	Value any
}

// EnumMember is one named value of an Enum.
type EnumMember struct {
	Name  string
	Value any
}

// Enum is a named set of constant values.
type Enum struct {
	Attrs
	Members []EnumMember
}

// Array is a homogeneous list.
type Array struct {
	Attrs
	Items Node
}

// Tuple is a positional list. Rest, when set, types the elements after Items;
// MinItems is the number of required leading elements.
type Tuple struct {
	Attrs
	Items    []Node
	Rest     Node
	MinItems int
}

// Property is one member of an Object. Pattern marks patternProperties
// entries, whose Name is the regular expression. Unreachable marks
// definitions that were kept although nothing referenced them.
type Property struct {
	Name        string
	Node        Node
	Required    bool
	Pattern     bool
	Unreachable bool
}

// Object is a keyed record. Additional types keys not listed in Properties;
// nil means the object is closed.
type Object struct {
	Attrs
	Properties []Property
	Additional Node
}

// Union is satisfied by any of its members.
type Union struct {
	Attrs
	Members []Node
}

// Intersection is satisfied by all of its members.
type Intersection struct {
	Attrs
	Members []Node
}

// Reference is a non-owning handle to the named declaration Ref. It stands
// for a type that is already being defined higher up the tree, which is how
// cycles in the schema are represented.
type Reference struct {
	Attrs
	Ref string
}

func (p *Primitive) Kind() Kind  { return p.Type }
func (*Literal) Kind() Kind      { return KindLiteral }
func (*Enum) Kind() Kind         { return KindEnum }
func (*Array) Kind() Kind        { return KindArray }
func (*Tuple) Kind() Kind        { return KindTuple }
func (*Object) Kind() Kind       { return KindObject }
func (*Union) Kind() Kind        { return KindUnion }
func (*Intersection) Kind() Kind { return KindIntersection }
func (*Reference) Kind() Kind    { return KindReference }
func (*Primitive) isNode()       {}
func (*Literal) isNode()         {}
func (*Enum) isNode()            {}
func (*Array) isNode()           {}
func (*Tuple) isNode()           {}
func (*Object) isNode()          {}
func (*Union) isNode()           {}
func (*Intersection) isNode()    {}
func (*Reference) isNode()       {}

// Constructors for the primitive kinds.
func Any() *Primitive     { return &Primitive{Type: KindAny} }
func Unknown() *Primitive { return &Primitive{Type: KindUnknown} }
func Never() *Primitive   { return &Primitive{Type: KindNever} }
func String() *Primitive  { return &Primitive{Type: KindString} }
func Number() *Primitive  { return &Primitive{Type: KindNumber} }
func Integer() *Primitive { return &Primitive{Type: KindInteger} }
func Boolean() *Primitive { return &Primitive{Type: KindBoolean} }
func Null() *Primitive    { return &Primitive{Type: KindNull} }

// Named returns a copy of n with its standalone name set.
func Named(n Node, name string) Node {
	c := Clone(n)
	setAttrs(c, func(a *Attrs) { a.StandaloneName = name })
	return c
}

// WithAttrs returns a copy of n carrying a.
func WithAttrs(n Node, a Attrs) Node {
	c := Clone(n)
	setAttrs(c, func(dst *Attrs) { *dst = a })
	return c
}

func setAttrs(n Node, fn func(*Attrs)) {
	switch t := n.(type) {
	case *Primitive:
		fn(&t.Attrs)
	case *Literal:
		fn(&t.Attrs)
	case *Enum:
		fn(&t.Attrs)
	case *Array:
		fn(&t.Attrs)
	case *Tuple:
		fn(&t.Attrs)
	case *Object:
		fn(&t.Attrs)
	case *Union:
		fn(&t.Attrs)
	case *Intersection:
		fn(&t.Attrs)
	case *Reference:
		fn(&t.Attrs)
	default:
		panic(fmt.Sprintf("ast: unknown node %T", n))
	}
}
