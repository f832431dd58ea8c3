package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"

	schemast "github.com/reoring/schemast"
	"github.com/reoring/schemast/i18n"
	"github.com/reoring/schemast/loader"
	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/resolver"
	"github.com/reoring/schemast/schemaerr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sub := os.Args[1]
	switch sub {
	case "compile":
		compileCmd(ctx, os.Args[2:])
	case "refs":
		refsCmd(ctx, os.Stdout, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "schemast CLI\n\nUsage:\n  schemast compile -i schema.json [-o out.ts] [-target ts|go] [-pkg name] [-config schemast.yaml] [-lang en|ja] [-v]\n  schemast refs -i schema.json [-all] [-lang en|ja] [-v]")
}

func newLogger(verbose bool) zerolog.Logger {
	fd := os.Stderr.Fd()
	w := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd),
		TimeFormat: time.Kitchen,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func compileCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	var in, out, target, pkg, config, lang string
	var verbose, unreachable, cont, prefetch bool
	fs.StringVar(&in, "i", "", "input schema file or URL")
	fs.StringVar(&out, "o", "", "output file (default stdout)")
	fs.StringVar(&target, "target", "", "output language: ts or go (default ts)")
	fs.StringVar(&pkg, "pkg", "", "Go package name for -target go")
	fs.StringVar(&config, "config", "", "YAML config file")
	fs.BoolVar(&unreachable, "unreachable", false, "declare definitions nothing references")
	fs.BoolVar(&cont, "continue", false, "keep going past unresolvable references")
	fs.BoolVar(&prefetch, "prefetch", false, "load referenced documents concurrently up front")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	fs.StringVar(&lang, "lang", "en", "language of issue messages (en, ja)")
	_ = fs.Parse(args)
	if in == "" {
		fs.Usage()
		os.Exit(2)
	}
	i18n.SetLanguage(lang)
	log := newLogger(verbose)

	opts := schemast.Options{
		GoPackage:              pkg,
		UnreachableDefinitions: unreachable,
		ContinueOnError:        cont,
		Prefetch:               prefetch,
		Logger:                 log,
	}
	if config != "" {
		cfg, err := schemast.LoadConfig(config)
		if err != nil {
			fatalf("%v", err)
		}
		if err := cfg.Apply(&opts); err != nil {
			fatalf("%v", err)
		}
	}
	if target != "" {
		t, err := schemast.ParseTarget(target)
		if err != nil {
			fatalf("%v", err)
		}
		opts.Target = t
	}
	if opts.Target == schemast.TargetGo && opts.GoPackage == "" && out != "" {
		opts.GoPackage = filepath.Base(filepath.Dir(absPath(out)))
	}

	res, err := schemast.ParseFile(ctx, in, opts)
	if err != nil {
		fatalf("compile %s: %v", in, err)
	}
	logIssues(log, res.Issues)
	code, err := schemast.Render(res, opts)
	if err != nil {
		fatalf("render: %v", err)
	}

	if out == "" {
		_, _ = os.Stdout.Write(code)
		return
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		fatalf("creating output dir: %v", err)
	}
	if err := os.WriteFile(out, code, 0o644); err != nil {
		fatalf("writing output: %v", err)
	}
	log.Info().Str("out", out).Int("bytes", len(code)).Msg("wrote declarations")
}

// refsCmd prints the resolver metadata of every $ref, or of every node with
// -all.
func refsCmd(ctx context.Context, w io.Writer, args []string) {
	fs := flag.NewFlagSet("refs", flag.ExitOnError)
	var in, lang string
	var all, verbose bool
	fs.StringVar(&in, "i", "", "input schema file or URL")
	fs.BoolVar(&all, "all", false, "list every visited node, not only references")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	fs.StringVar(&lang, "lang", "en", "language of issue messages (en, ja)")
	_ = fs.Parse(args)
	if in == "" {
		fs.Usage()
		os.Exit(2)
	}
	i18n.SetLanguage(lang)
	log := newLogger(verbose)

	res, err := resolveFile(ctx, in, log)
	if err != nil {
		var issues schemast.Issues
		if res == nil || !errors.As(err, &issues) {
			fatalf("resolve %s: %v", in, err)
		}
		logIssues(log, issues)
	}
	rows := [][]string{{"PATH", "FILE", "REF", "CIRCULAR", "TARGET"}}
	res.Walk(func(n rawschema.Node, m resolver.Meta) bool {
		if !all && !m.IsRef() {
			return true
		}
		ref, target, circular := "", "", ""
		if o, ok := n.(*rawschema.Object); ok {
			ref, _ = o.Ref()
		}
		if m.IsRef() {
			if tm, ok := res.MetaOf(m.Reference); ok {
				target = tm.FileName + "#" + tm.Pointer()
			}
			if m.IsCircular {
				circular = "yes"
			}
		}
		rows = append(rows, []string{m.Pointer(), m.FileName, ref, circular, target})
		return true
	})
	writeTable(w, rows)
}

func resolveFile(ctx context.Context, in string, log zerolog.Logger) (*resolver.Resolved, error) {
	cwd, name := filepath.Dir(in), filepath.Base(in)
	if loader.IsURL(in) {
		i := strings.LastIndex(in, "/")
		cwd, name = in[:i], in[i+1:]
	}
	id, err := loader.RootIdentity(cwd, name)
	if err != nil {
		return nil, err
	}
	cache := loader.NewCache(loader.Mux{}, loader.WithLogger(log))
	doc, err := cache.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, doc.Root, resolver.Options{
		Cwd:             cwd,
		FileName:        name,
		Cache:           cache,
		Logger:          log,
		ContinueOnError: true,
	})
}

func logIssues(log zerolog.Logger, issues schemast.Issues) {
	for _, is := range issues {
		log.Warn().Str("path", is.Path).Str("code", is.Code).Msg(issueMessage(is))
	}
}

// issueMessage localizes is, keeping the original text as the detail.
func issueMessage(is schemast.Issue) string {
	data := map[string]string{"path": is.Path}
	var nf *schemaerr.DocumentNotFoundError
	var re *schemaerr.ReferenceResolutionError
	switch {
	case errors.As(is.Cause, &nf):
		data["ref"] = nf.Ref
	case errors.As(is.Cause, &re):
		data["ref"] = re.Ref
	}
	msg := i18n.T(is.Code, data)
	if is.Message == "" || msg == is.Message {
		return msg
	}
	return msg + ": " + is.Message
}

// writeTable left-aligns columns by display width.
func writeTable(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	for _, r := range rows {
		var b strings.Builder
		for i, c := range r {
			if i == len(r)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(runewidth.FillRight(c, widths[i]))
			b.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
