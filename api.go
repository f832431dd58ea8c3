package schemast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reoring/schemast/ast"
	"github.com/reoring/schemast/internal/builder"
	"github.com/reoring/schemast/internal/gen"
	"github.com/reoring/schemast/loader"
	"github.com/reoring/schemast/optimizer"
	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/resolver"
	"github.com/reoring/schemast/schemaerr"
)

// Target selects the output language of Compile.
type Target string

const (
	TargetTypeScript Target = "typescript"
	TargetGo         Target = "go"
)

// ParseTarget accepts "ts", "typescript" and "go".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ts", "typescript":
		return TargetTypeScript, nil
	case "go", "golang":
		return TargetGo, nil
	}
	return "", fmt.Errorf("schemast: unknown target %q", s)
}

// Options configures the pipeline.
type Options struct {
	// Cwd and FileName locate the root document. Relative $refs are
	// resolved against them.
	Cwd      string
	FileName string

	Target    Target
	GoPackage string

	// TypeScript output.
	BannerComment         string
	EnableConstEnums      bool
	StrictIndexSignatures bool

	// AST construction.
	UnreachableDefinitions bool
	UnknownAny             bool
	ClosedObjects          bool

	// ContinueOnError keeps resolving past broken references; the failures
	// are returned in Result.Issues.
	ContinueOnError bool
	// Prefetch loads the documents referenced by the root concurrently.
	Prefetch bool

	// Loader fetches external documents; nil means loader.Mux{}. Cache,
	// when set, is shared across calls and takes precedence over Loader.
	Loader loader.Loader
	Cache  *loader.Cache

	Logger zerolog.Logger
}

// Result is the output of Parse.
type Result struct {
	// AST is the optimized tree; Unoptimized is the builder output it came
	// from, kept for diagnostics.
	AST         ast.Node
	Unoptimized ast.Node
	// Definitions are the optimized definitions/$defs of the root document.
	Definitions []ast.Node
	Resolved    *resolver.Resolved
	// Issues lists the failures skipped under ContinueOnError.
	Issues Issues
}

// Parse decodes data and runs it through resolution, AST construction and
// optimization.
func Parse(ctx context.Context, data []byte, opts Options) (*Result, error) {
	name := opts.FileName
	if name == "" {
		name = resolver.DefaultFileName
	}
	root, err := rawschema.Decode(name, data)
	if err != nil {
		var pe *schemaerr.DocumentParseError
		if errors.As(err, &pe) {
			cp := *pe
			cp.Identity = name
			return nil, &cp
		}
		return nil, err
	}
	return parseValue(ctx, root, opts)
}

// Compile is Parse followed by rendering for opts.Target.
func Compile(ctx context.Context, data []byte, opts Options) ([]byte, error) {
	res, err := Parse(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return Render(res, opts)
}

// CompileFile compiles the document at path, which may be a URL. Cwd and
// FileName default to the directory and base name of path.
func CompileFile(ctx context.Context, path string, opts Options) ([]byte, error) {
	res, err := ParseFile(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return Render(res, opts)
}

// ParseFile is Parse for a document read through the configured loader.
func ParseFile(ctx context.Context, path string, opts Options) (*Result, error) {
	dir, base := splitPath(path)
	if opts.Cwd == "" {
		opts.Cwd = dir
	}
	if opts.FileName == "" {
		opts.FileName = base
	}
	id, err := loader.RootIdentity(opts.Cwd, opts.FileName)
	if err != nil {
		return nil, fmt.Errorf("schemast: %w", err)
	}
	opts.Cache = cacheFor(opts)
	doc, err := opts.Cache.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return parseValue(ctx, doc.Root, opts)
}

// Render renders an already parsed result for opts.Target.
func Render(res *Result, opts Options) ([]byte, error) {
	switch opts.Target {
	case "", TargetTypeScript:
		return gen.RenderTypeScript(res.AST, gen.TSOptions{
			BannerComment:         opts.BannerComment,
			EnableConstEnums:      opts.EnableConstEnums,
			StrictIndexSignatures: opts.StrictIndexSignatures,
		})
	case TargetGo:
		return gen.RenderGo(opts.GoPackage, res.AST)
	}
	return nil, fmt.Errorf("schemast: unknown target %q", opts.Target)
}

func parseValue(ctx context.Context, root rawschema.Value, opts Options) (*Result, error) {
	log := opts.Logger
	res, err := resolver.Resolve(ctx, root, resolver.Options{
		Cwd:             opts.Cwd,
		FileName:        opts.FileName,
		Cache:           cacheFor(opts),
		Logger:          log,
		ContinueOnError: opts.ContinueOnError,
		Prefetch:        opts.Prefetch,
	})
	out := &Result{Resolved: res}
	if err != nil {
		var issues Issues
		if !opts.ContinueOnError || res == nil || !errors.As(err, &issues) {
			return nil, err
		}
		out.Issues = issues
		log.Warn().Int("issues", len(issues)).Msg("resolved with errors")
	}
	log.Debug().Int("nodes", res.Len()).Int("documents", len(res.Documents())).Msg("resolved")

	built, err := builder.Build(res, builder.Options{
		UnreachableDefinitions: opts.UnreachableDefinitions,
		UnknownAny:             opts.UnknownAny,
		ClosedObjects:          opts.ClosedObjects,
		Logger:                 log,
	})
	if err != nil {
		return nil, err
	}
	out.Unoptimized = built.Root

	trees := append([]ast.Node{built.Root}, built.Definitions...)
	optimized, err := optimizer.OptimizeAll(ctx, trees)
	if err != nil {
		return nil, err
	}
	out.AST = optimized[0]
	out.Definitions = optimized[1:]
	return out, nil
}

func cacheFor(opts Options) *loader.Cache {
	if opts.Cache != nil {
		return opts.Cache
	}
	return loader.NewCache(opts.Loader, loader.WithLogger(opts.Logger))
}

func splitPath(p string) (dir, base string) {
	if loader.IsURL(p) {
		i := strings.LastIndex(p, "/")
		return p[:i], p[i+1:]
	}
	return filepath.Dir(p), filepath.Base(p)
}
