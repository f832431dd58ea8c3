package resolver

import (
	"fmt"
	"slices"

	"github.com/reoring/schemast/loader"
	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/schemaerr"
)

// Meta is the provenance record of one raw node. It lives outside the node so
// the node's visible shape never changes.
type Meta struct {
	// Parent is the containing node, nil for a document root. It is a lookup
	// aid only; ownership runs from parent to child in the raw tree.
	Parent rawschema.Node
	// Path lists the keys (array indices in decimal) from the document root.
	Path     []string
	FileName string
	FilePath string
	// IsCircular is set on a $ref node whose target was already on the
	// traversal stack. Reference then points back at that ancestor.
	IsCircular bool
	// Reference is the target of the node's $ref, nil for other nodes.
	Reference rawschema.Value
}

// Pointer renders Path as a JSON pointer.
func (m Meta) Pointer() string { return schemaerr.Pointer(m.Path) }

// IsRef reports whether the node was a resolved $ref.
func (m Meta) IsRef() bool { return m.Reference != nil }

func (m *Meta) copy() Meta {
	cp := *m
	cp.Path = slices.Clone(m.Path)
	return cp
}

// Resolved is the output of Resolve: the untouched document plus a read-only
// metadata table keyed by node identity.
type Resolved struct {
	Root     rawschema.Value
	Document *loader.Document
	// Issues holds the failures skipped under Options.ContinueOnError.
	Issues schemaerr.Issues

	meta  map[rawschema.Node]*Meta
	order []rawschema.Node
	docs  []*loader.Document
}

func newResolved(root rawschema.Value, doc *loader.Document) *Resolved {
	return &Resolved{
		Root:     root,
		Document: doc,
		meta:     make(map[rawschema.Node]*Meta),
	}
}

// Meta returns a copy of the record of n.
func (r *Resolved) Meta(n rawschema.Node) (Meta, bool) {
	m, ok := r.meta[n]
	if !ok {
		return Meta{}, false
	}
	return m.copy(), true
}

// MustMeta is like Meta but panics when n was not visited.
func (r *Resolved) MustMeta(n rawschema.Node) Meta {
	m, ok := r.Meta(n)
	if !ok {
		panic(fmt.Sprintf("resolver: no metadata for %T %p", n, n))
	}
	return m
}

// MetaOf is Meta for a raw value; scalars have no metadata.
func (r *Resolved) MetaOf(v rawschema.Value) (Meta, bool) {
	n, ok := rawschema.AsNode(v)
	if !ok {
		return Meta{}, false
	}
	return r.Meta(n)
}

// Len returns the number of records.
func (r *Resolved) Len() int { return len(r.order) }

// Nodes returns the annotated nodes in first-visit order.
func (r *Resolved) Nodes() []rawschema.Node {
	return append([]rawschema.Node(nil), r.order...)
}

// Documents returns every document visited, the root document first.
func (r *Resolved) Documents() []*loader.Document {
	return append([]*loader.Document(nil), r.docs...)
}

// Walk calls fn for every record in first-visit order until fn returns false.
func (r *Resolved) Walk(fn func(n rawschema.Node, m Meta) bool) {
	for _, n := range r.order {
		if !fn(n, r.meta[n].copy()) {
			return
		}
	}
}

// Target follows Reference edges from v until a node that is not a resolved
// $ref, or a circular edge, is reached. The second result reports whether the
// walk stopped on a circular edge.
func (r *Resolved) Target(v rawschema.Value) (rawschema.Value, bool) {
	seen := map[rawschema.Node]bool{}
	for {
		n, ok := rawschema.AsNode(v)
		if !ok {
			return v, false
		}
		m, ok := r.meta[n]
		if !ok || m.Reference == nil {
			return v, false
		}
		if m.IsCircular || seen[n] {
			return m.Reference, true
		}
		seen[n] = true
		v = m.Reference
	}
}

func (r *Resolved) record(n rawschema.Node, m *Meta) {
	r.meta[n] = m
	r.order = append(r.order, n)
}

// unrecord drops the record of a node whose resolution failed after it was
// recorded.
func (r *Resolved) unrecord(n rawschema.Node) {
	if _, ok := r.meta[n]; !ok {
		return
	}
	delete(r.meta, n)
	for i := len(r.order) - 1; i >= 0; i-- {
		if r.order[i] == n {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Resolved) has(n rawschema.Node) bool {
	_, ok := r.meta[n]
	return ok
}
