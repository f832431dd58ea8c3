// Package resolver walks raw schema documents, resolves $ref keywords (local
// JSON pointers and other documents) and records provenance metadata for every
// visited node in a side table.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/rs/zerolog"

	"github.com/reoring/schemast/loader"
	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/schemaerr"
)

// DefaultFileName names the root document when Options.FileName is empty.
const DefaultFileName = "schema.json"

// Options configures Resolve.
type Options struct {
	// Cwd and FileName locate the root document; relative external references
	// are resolved against them. Cwd defaults to the process directory.
	Cwd      string
	FileName string

	// Cache serves external documents. When nil a new cache over Loader is
	// used for this call only.
	Cache  *loader.Cache
	Loader loader.Loader

	Logger zerolog.Logger

	// ContinueOnError records failed subtrees in Resolved.Issues and keeps
	// resolving their siblings instead of stopping at the first failure.
	ContinueOnError bool

	// Prefetch loads the external documents referenced by the root document
	// concurrently before the traversal starts.
	Prefetch bool
}

// Resolve walks root depth-first in document order and returns its metadata.
//
// The tree is never modified. With ContinueOnError the returned error is the
// non-empty Issues list and the Resolved value is still usable.
func Resolve(ctx context.Context, root rawschema.Value, opts Options) (*Resolved, error) {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	id, err := loader.RootIdentity(opts.Cwd, opts.FileName)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	cache := opts.Cache
	if cache == nil {
		cache = loader.NewCache(opts.Loader, loader.WithLogger(opts.Logger))
	}
	doc := loader.NewDocument(id, root)
	doc.FileName = opts.FileName
	if stored := cache.Store(doc); stored != doc {
		opts.Logger.Debug().Str("identity", id).Msg("root identity already cached; using the supplied document")
	}

	r := &resolver{
		ctx:     ctx,
		opts:    opts,
		cache:   cache,
		log:     opts.Logger,
		root:    doc,
		res:     newResolved(root, doc),
		onStack: make(map[rawschema.Node]int),
		visited: make(map[string]bool),
	}
	if opts.Prefetch {
		r.prefetch()
	}
	if err := r.visitDocument(doc); err != nil {
		return nil, err
	}
	if len(r.res.Issues) > 0 {
		return r.res, r.res.Issues
	}
	return r.res, nil
}

// mode tells how the children of a node are interpreted.
type mode int

const (
	modeSchema    mode = iota // a schema object: keys are keywords
	modeSchemaMap             // properties/definitions: keys are names, values schemas
	modeData                  // enum/default/examples: plain data, $ref not interpreted
)

var (
	dataKeywords = map[string]bool{
		"enum":     true,
		"const":    true,
		"default":  true,
		"examples": true,
		"example":  true,
	}
	mapKeywords = map[string]bool{
		"properties":        true,
		"patternProperties": true,
		"definitions":       true,
		"$defs":             true,
		"dependentSchemas":  true,
	}
)

func childMode(parent mode, key string, isObject bool) mode {
	switch parent {
	case modeData:
		return modeData
	case modeSchemaMap:
		return modeSchema
	}
	if !isObject {
		return modeSchema
	}
	if dataKeywords[key] {
		return modeData
	}
	if mapKeywords[key] {
		return modeSchemaMap
	}
	return modeSchema
}

type frame struct {
	node rawschema.Node
	path []string
	doc  *loader.Document
}

type resolver struct {
	ctx   context.Context
	opts  Options
	cache *loader.Cache
	log   zerolog.Logger
	root  *loader.Document
	res   *Resolved

	stack   []frame
	onStack map[rawschema.Node]int
	visited map[string]bool // document identities whose root was visited
}

func (r *resolver) push(n rawschema.Node, path []string, doc *loader.Document) {
	r.stack = append(r.stack, frame{node: n, path: path, doc: doc})
	r.onStack[n]++
}

func (r *resolver) pop() {
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	if r.onStack[top.node]--; r.onStack[top.node] == 0 {
		delete(r.onStack, top.node)
	}
}

func (r *resolver) isAncestor(v rawschema.Value) bool {
	n, ok := rawschema.AsNode(v)
	return ok && r.onStack[n] > 0
}

func (r *resolver) visitDocument(doc *loader.Document) error {
	if r.visited[doc.Identity] {
		return nil
	}
	r.visited[doc.Identity] = true
	r.res.docs = append(r.res.docs, doc)
	n, ok := rawschema.AsNode(doc.Root)
	if !ok {
		return nil
	}
	return r.visit(n, nil, []string{}, doc, modeSchema)
}

func (r *resolver) visit(n rawschema.Node, parent rawschema.Node, path []string, doc *loader.Document, m mode) error {
	if r.res.has(n) {
		return nil
	}
	if obj, ok := n.(*rawschema.Object); ok && m == modeSchema {
		if ref, ok := obj.Ref(); ok {
			return r.visitRef(obj, ref, parent, path, doc)
		}
	}
	r.res.record(n, &Meta{Parent: parent, Path: path, FileName: doc.FileName, FilePath: doc.FilePath})
	r.push(n, path, doc)
	defer r.pop()
	return r.children(n, path, doc, m, "")
}

// children visits every object/array child of n in document order, skipping
// the key named skip.
func (r *resolver) children(n rawschema.Node, path []string, doc *loader.Document, m mode, skip string) error {
	_, isObject := n.(*rawschema.Object)
	var err error
	n.Each(func(k string, v rawschema.Value) bool {
		if k == skip && isObject {
			return true
		}
		child, ok := rawschema.AsNode(v)
		if !ok {
			return true
		}
		childPath := append(path[:len(path):len(path)], k)
		if e := r.visit(child, n, childPath, doc, childMode(m, k, isObject)); e != nil {
			if r.opts.ContinueOnError && !isFatal(e) {
				r.res.Issues = schemaerr.AppendIssues(r.res.Issues, schemaerr.IssueFor(childPath, e))
				return true
			}
			err = e
			return false
		}
		return true
	})
	return err
}

func (r *resolver) visitRef(obj *rawschema.Object, ref string, parent rawschema.Node, path []string, doc *loader.Document) error {
	tdoc, err := r.document(ref, path, doc)
	if err != nil {
		return err
	}
	r.push(obj, path, doc)
	defer r.pop()

	if err := r.visitDocument(tdoc); err != nil {
		return err
	}
	// The target document may have led back here through another path.
	if r.res.has(obj) {
		return nil
	}
	target, tparent, tpath, err := r.locate(tdoc, ref, path, doc)
	if err != nil {
		return err
	}

	meta := &Meta{Parent: parent, Path: path, FileName: doc.FileName, FilePath: doc.FilePath, Reference: target}
	if r.isAncestor(target) {
		meta.IsCircular = true
		r.res.record(obj, meta)
		r.log.Debug().Str("path", schemaerr.Pointer(path)).Str("ref", ref).Str("file", doc.FileName).Msg("circular reference")
		return r.children(obj, path, doc, modeSchema, "$ref")
	}
	r.res.record(obj, meta)
	if tn, ok := rawschema.AsNode(target); ok {
		if err := r.visit(tn, tparent, tpath, tdoc, modeSchema); err != nil {
			r.res.unrecord(obj)
			return err
		}
	}
	return r.children(obj, path, doc, modeSchema, "$ref")
}

// document returns the document addressed by ref's file part, loading it
// through the cache when needed.
func (r *resolver) document(ref string, path []string, doc *loader.Document) (*loader.Document, error) {
	file, _, _ := loader.SplitRef(ref)
	if file == "" {
		return doc, nil
	}
	id, err := loader.Identity(doc.Identity, ref)
	if err != nil {
		return nil, &schemaerr.ReferenceResolutionError{Path: path, Ref: ref, FileName: doc.FileName, Reason: err.Error()}
	}
	if id == r.root.Identity {
		return r.root, nil
	}
	tdoc, err := r.cache.Load(r.ctx, id)
	if err != nil {
		var nf *schemaerr.DocumentNotFoundError
		if errors.As(err, &nf) {
			return nil, nf.WithRef(path, ref)
		}
		var pe *schemaerr.DocumentParseError
		if errors.As(err, &pe) {
			return nil, pe.WithRef(path, ref)
		}
		return nil, err
	}
	return tdoc, nil
}

// locate applies ref's fragment to tdoc. It returns the target, its container
// and its path inside tdoc.
func (r *resolver) locate(tdoc *loader.Document, ref string, path []string, doc *loader.Document) (rawschema.Value, rawschema.Node, []string, error) {
	fail := func(reason string) error {
		return &schemaerr.ReferenceResolutionError{Path: path, Ref: ref, FileName: doc.FileName, Reason: reason}
	}
	_, frag, _ := loader.SplitRef(ref)
	frag, err := url.PathUnescape(frag)
	if err != nil {
		return nil, nil, nil, fail(err.Error())
	}
	if frag != "" && !strings.HasPrefix(frag, "/") {
		return r.anchor(tdoc, frag, fail)
	}
	ptr, err := jsonpointer.New(frag)
	if err != nil {
		return nil, nil, nil, fail(err.Error())
	}
	var (
		cur    = tdoc.Root
		parent rawschema.Node
		tpath  = []string{}
	)
	for _, tok := range ptr.DecodedTokens() {
		n, ok := rawschema.AsNode(cur)
		if !ok {
			return nil, nil, nil, fail(fmt.Sprintf("%s does not address an object or array", schemaerr.Pointer(tpath)))
		}
		child, ok := rawschema.Child(n, tok)
		if !ok {
			return nil, nil, nil, fail(fmt.Sprintf("%q not found at %s", tok, schemaerr.Pointer(tpath)))
		}
		parent = n
		tpath = append(tpath, tok)
		cur = child
	}
	return cur, parent, tpath, nil
}

// anchor resolves plain-name fragments ("#foo") against $anchor, or against
// id/$id values of the form "#foo".
func (r *resolver) anchor(tdoc *loader.Document, name string, fail func(string) error) (rawschema.Value, rawschema.Node, []string, error) {
	var (
		found  rawschema.Value
		parent rawschema.Node
		fpath  []string
	)
	var search func(n rawschema.Node, p rawschema.Node, path []string, m mode) bool
	search = func(n rawschema.Node, p rawschema.Node, path []string, m mode) bool {
		if obj, ok := n.(*rawschema.Object); ok && m == modeSchema {
			if obj.String("$anchor") == name || obj.String("$id") == "#"+name || obj.String("id") == "#"+name {
				found, parent, fpath = obj, p, path
				return true
			}
		}
		_, isObject := n.(*rawschema.Object)
		stop := false
		n.Each(func(k string, v rawschema.Value) bool {
			c, ok := rawschema.AsNode(v)
			if !ok {
				return true
			}
			if search(c, n, append(path[:len(path):len(path)], k), childMode(m, k, isObject)) {
				stop = true
				return false
			}
			return true
		})
		return stop
	}
	if n, ok := rawschema.AsNode(tdoc.Root); ok && search(n, nil, []string{}, modeSchema) {
		return found, parent, fpath, nil
	}
	return nil, nil, nil, fail(fmt.Sprintf("anchor %q not found", name))
}

// prefetch warms the cache with the external documents referenced from the
// root document. Failures are left for the traversal to report with context.
func (r *resolver) prefetch() {
	ids := externalIdentities(r.root)
	if len(ids) == 0 {
		return
	}
	if err := r.cache.Prefetch(r.ctx, ids...); err != nil {
		r.log.Debug().Err(err).Msg("prefetch incomplete")
	}
}

func externalIdentities(doc *loader.Document) []string {
	var ids []string
	seen := map[string]bool{doc.Identity: true}
	var walk func(v rawschema.Value, m mode)
	walk = func(v rawschema.Value, m mode) {
		n, ok := rawschema.AsNode(v)
		if !ok {
			return
		}
		obj, isObject := n.(*rawschema.Object)
		if isObject && m == modeSchema {
			if ref, ok := obj.Ref(); ok {
				if file, _, _ := loader.SplitRef(ref); file != "" {
					if id, err := loader.Identity(doc.Identity, ref); err == nil && !seen[id] {
						seen[id] = true
						ids = append(ids, id)
					}
				}
			}
		}
		n.Each(func(k string, c rawschema.Value) bool {
			walk(c, childMode(m, k, isObject))
			return true
		})
	}
	walk(doc.Root, modeSchema)
	return ids
}

// isFatal reports errors that must stop the traversal even under
// ContinueOnError.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled)
}
