// Package optimizer rewrites an AST into its minimal equivalent form.
//
// Optimize works bottom-up: children are optimized first, then the node's own
// rule is applied to the optimized children. Unions and intersections are
// flattened, de-duplicated and collapsed; every other kind is rebuilt around
// its optimized children. Input nodes are never modified and no state is kept
// between calls, so independent trees may be optimized concurrently.
package optimizer

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/reoring/schemast/ast"
	"github.com/reoring/schemast/schemaerr"
)

// Optimize returns the optimized form of n. It fails with
// *schemaerr.EmptyCompositeError when a union or intersection has no members.
func Optimize(n ast.Node) (ast.Node, error) {
	return optimize(n, nil)
}

// OptimizeAll optimizes independent trees concurrently. The result keeps the
// order of ns; the first failure cancels the remaining work.
func OptimizeAll(ctx context.Context, ns []ast.Node) ([]ast.Node, error) {
	out := make([]ast.Node, len(ns))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, n := range ns {
		i, n := i, n
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o, err := Optimize(n)
			if err != nil {
				return fmt.Errorf("optimizer: tree %d: %w", i, err)
			}
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func optimize(n ast.Node, path []string) (ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch x := n.(type) {
	case *ast.Primitive, *ast.Literal, *ast.Enum, *ast.Reference:
		return ast.Clone(n), nil
	case *ast.Array:
		items, err := optimize(x.Items, extend(path, "items"))
		if err != nil {
			return nil, err
		}
		return &ast.Array{Attrs: x.Attrs, Items: items}, nil
	case *ast.Tuple:
		items, err := optimizeList(x.Items, extend(path, "items"))
		if err != nil {
			return nil, err
		}
		rest, err := optimize(x.Rest, extend(path, "rest"))
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Attrs: x.Attrs, Items: items, Rest: rest, MinItems: x.MinItems}, nil
	case *ast.Object:
		o := &ast.Object{Attrs: x.Attrs, Properties: make([]ast.Property, len(x.Properties))}
		for i, p := range x.Properties {
			c, err := optimize(p.Node, extend(path, "properties", p.Name))
			if err != nil {
				return nil, err
			}
			p.Node = c
			o.Properties[i] = p
		}
		add, err := optimize(x.Additional, extend(path, "additional"))
		if err != nil {
			return nil, err
		}
		o.Additional = add
		return o, nil
	case *ast.Union:
		members, err := composite(ast.KindUnion, x.Members, path)
		if err != nil {
			return nil, err
		}
		if len(members) == 1 {
			return members[0], nil
		}
		return &ast.Union{Attrs: x.Attrs, Members: members}, nil
	case *ast.Intersection:
		members, err := composite(ast.KindIntersection, x.Members, path)
		if err != nil {
			return nil, err
		}
		if len(members) == 1 {
			return members[0], nil
		}
		return &ast.Intersection{Attrs: x.Attrs, Members: members}, nil
	default:
		panic(fmt.Sprintf("optimizer: unknown node %T", n))
	}
}

func optimizeList(ns []ast.Node, path []string) ([]ast.Node, error) {
	if ns == nil {
		return nil, nil
	}
	out := make([]ast.Node, len(ns))
	for i, n := range ns {
		o, err := optimize(n, extend(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

// composite optimizes the members of a union or intersection and returns the
// surviving members in first-occurrence order.
func composite(kind ast.Kind, members []ast.Node, path []string) ([]ast.Node, error) {
	if len(members) == 0 {
		return nil, &schemaerr.EmptyCompositeError{Kind: kind.String(), Path: append([]string(nil), path...)}
	}
	opt, err := optimizeList(members, extend(path, "members"))
	if err != nil {
		return nil, err
	}
	return dedup(flatten(kind, opt)), nil
}

// flatten splices anonymous members of the same composite kind into the
// parent list. Members are already optimized, so one level is enough.
func flatten(kind ast.Kind, members []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(members))
	for _, m := range members {
		if m.Kind() == kind && m.Attributes() == (ast.Attrs{}) {
			out = append(out, ast.Children(m)...)
			continue
		}
		out = append(out, m)
	}
	return out
}

// dedup keeps one member per equivalence class of ast.Equal. The class keeps
// the position of its first occurrence; its representative is the first named
// member, or the first member when none is named.
func dedup(members []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(members))
	for _, m := range members {
		i := indexOf(out, m)
		switch {
		case i < 0:
			out = append(out, m)
		case out[i].Name() == "" && m.Name() != "":
			out[i] = m
		}
	}
	return out
}

func indexOf(ns []ast.Node, n ast.Node) int {
	for i, c := range ns {
		if ast.Equal(c, n) {
			return i
		}
	}
	return -1
}

func extend(path []string, segs ...string) []string {
	out := make([]string, 0, len(path)+len(segs))
	out = append(out, path...)
	return append(out, segs...)
}
