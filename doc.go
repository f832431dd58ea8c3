// Package schemast compiles JSON Schema documents into an optimized AST and
// renders type declarations from it.
//
// The pipeline is:
//
//   - decode the document (JSON or YAML) keeping key order
//   - resolve $ref keywords, local and across files, recording provenance
//     and cycles in a side table (package resolver)
//   - build the AST (internal/builder)
//   - optimize it: flatten, de-duplicate and collapse unions and
//     intersections (package optimizer)
//   - render TypeScript or Go declarations (internal/gen)
//
// Design policy:
//   - Keep only public APIs in the root package; put detailed implementations
//     under internal/.
//   - Errors are typed (package schemaerr) and matchable with errors.Is and
//     errors.As; aliases are re-exported here.
//   - Logging goes through an injected zerolog.Logger and is off by default.
//
// Typical usage:
//
//	out, err := schemast.CompileFile(ctx, "schemas/pet.json", schemast.Options{Target: schemast.TargetTypeScript})
//
//	res, err := schemast.Parse(ctx, data, schemast.Options{FileName: "pet.json"})
//	fmt.Println(ast.Format(res.AST))
package schemast
