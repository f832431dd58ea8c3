package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/reoring/schemast/loader"
	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/schemaerr"
)

func TestIdentity(t *testing.T) {
	base := filepath.FromSlash("/schemas/root.json")
	cases := []struct {
		base, ref, want string
	}{
		{base, "#/definitions/a", base},
		{base, "./X.json", filepath.FromSlash("/schemas/X.json")},
		{base, "../common/y.yaml#/defs/z", filepath.FromSlash("/common/y.yaml")},
		{base, "HTTPS://Example.COM/a/b.json#/x", "https://example.com/a/b.json"},
		{"https://example.com/a/b.json", "../c.json", "https://example.com/c.json"},
		{"https://example.com/a/b.json", "#/x", "https://example.com/a/b.json"},
	}
	for _, tc := range cases {
		got, err := loader.Identity(tc.base, tc.ref)
		if err != nil {
			t.Fatalf("Identity(%q, %q): %v", tc.base, tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("Identity(%q, %q) = %q, want %q", tc.base, tc.ref, got, tc.want)
		}
	}
}

func TestRootIdentity(t *testing.T) {
	got, err := loader.RootIdentity(filepath.FromSlash("/work"), "schema.json")
	if err != nil || got != filepath.FromSlash("/work/schema.json") {
		t.Fatalf("RootIdentity = %q, %v", got, err)
	}
	got, err = loader.RootIdentity("https://example.com/s", "root.json")
	if err != nil || got != "https://example.com/s/root.json" {
		t.Fatalf("RootIdentity url = %q, %v", got, err)
	}
}

func TestSplitRef(t *testing.T) {
	file, frag, has := loader.SplitRef("x.json#/a/b")
	if file != "x.json" || frag != "/a/b" || !has {
		t.Fatalf("SplitRef = %q %q %v", file, frag, has)
	}
	file, frag, has = loader.SplitRef("x.json")
	if file != "x.json" || frag != "" || has {
		t.Fatalf("SplitRef no fragment = %q %q %v", file, frag, has)
	}
}

func TestCache_SingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	l := loader.LoaderFunc(func(ctx context.Context, id string) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(`{"type":"string"}`), nil
	})
	c := loader.NewCache(l)
	ctx := context.Background()

	const n = 8
	docs := make([]*loader.Document, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Load(ctx, "/s/x.json")
			if err != nil {
				t.Errorf("load: %v", err)
				return
			}
			docs[i] = d
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("loader called %d times, want 1", calls.Load())
	}
	for i := 1; i < n; i++ {
		if docs[i] != docs[0] {
			t.Fatalf("callers observed different documents")
		}
	}
	again, err := c.Load(ctx, "/s/x.json")
	if err != nil || again != docs[0] {
		t.Fatalf("cached load returned a different document")
	}
	if st := c.Stats(); st.Fetches != 1 || st.Hits < 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if again.FileName != "x.json" || again.FilePath != "/s/x.json" {
		t.Fatalf("unexpected provenance: %+v", again)
	}
}

func TestCache_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	l := loader.LoaderFunc(func(ctx context.Context, id string) ([]byte, error) {
		close(started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return []byte(`{"type":"string"}`), nil
		}
	})
	c := loader.NewCache(l)

	ctx1, cancel := context.WithCancel(context.Background())
	err1 := make(chan error, 1)
	go func() {
		_, err := c.Load(ctx1, "/x.json")
		err1 <- err
	}()
	<-started

	type result struct {
		doc *loader.Document
		err error
	}
	res2 := make(chan result, 1)
	go func() {
		d, err := c.Load(context.Background(), "/x.json")
		res2 <- result{d, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-err1; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: %v", err)
	}
	close(release)
	r := <-res2
	if r.err != nil || r.doc == nil {
		t.Fatalf("second caller: %v", r.err)
	}
	if st := c.Stats(); st.Fetches != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestCache_ErrorsAreTypedAndNotCached(t *testing.T) {
	m := loader.MapLoader{"/s/bad.json": []byte(`{"a":`)}
	c := loader.NewCache(m)
	ctx := context.Background()

	_, err := c.Load(ctx, "/s/missing.json")
	var nf *schemaerr.DocumentNotFoundError
	if !errors.As(err, &nf) || nf.Identity != "/s/missing.json" {
		t.Fatalf("expected DocumentNotFoundError, got %v", err)
	}
	_, err = c.Load(ctx, "/s/bad.json")
	var pe *schemaerr.DocumentParseError
	if !errors.As(err, &pe) || pe.Identity != "/s/bad.json" {
		t.Fatalf("expected DocumentParseError, got %v", err)
	}

	m["/s/missing.json"] = []byte(`{}`)
	if _, err := c.Load(ctx, "/s/missing.json"); err != nil {
		t.Fatalf("failures must not be cached: %v", err)
	}
}

func TestCache_StoreIsWriteOnce(t *testing.T) {
	c := loader.NewCache(loader.MapLoader{})
	first := c.Store(loader.NewDocument("/a.json", rawschema.NewObject()))
	second := c.Store(loader.NewDocument("/a.json", rawschema.NewObject()))
	if first != second {
		t.Fatalf("Store replaced an existing document")
	}
	if d, ok := c.Lookup("/a.json"); !ok || d != first {
		t.Fatalf("Lookup did not return the stored document")
	}
}

func TestCache_Prefetch(t *testing.T) {
	m := loader.MapLoader{
		"/a.json": []byte(`{"type":"string"}`),
		"/b.yaml": []byte("type: number\n"),
	}
	c := loader.NewCache(m, loader.WithConcurrency(2))
	if err := c.Prefetch(context.Background(), "/a.json", "/b.yaml", "/a.json"); err != nil {
		t.Fatalf("prefetch: %v", err)
	}
	if st := c.Stats(); st.Fetches != 2 {
		t.Fatalf("fetches = %d, want 2", st.Fetches)
	}
	if err := c.Prefetch(context.Background(), "/nope.json"); !errors.Is(err, schemaerr.ErrDocumentNotFound) {
		t.Fatalf("expected not-found from prefetch, got %v", err)
	}
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pet.json" {
			_, _ = w.Write([]byte(`{"type":"object"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := loader.NewCache(loader.Mux{HTTP: &loader.HTTPLoader{Client: srv.Client(), Timeout: time.Second}})
	doc, err := c.Load(context.Background(), srv.URL+"/pet.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Root.(*rawschema.Object).String("type") != "object" || doc.FileName != "pet.json" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	_, err = c.Load(context.Background(), srv.URL+"/missing.json")
	var se *loader.StatusError
	if !errors.Is(err, schemaerr.ErrDocumentNotFound) || !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 not-found, got %v", err)
	}
}

func TestFSLoader(t *testing.T) {
	fsys := fstest.MapFS{"defs/a.json": {Data: []byte(`{"type":"boolean"}`)}}
	l := loader.FSLoader{FS: fsys, Dir: filepath.FromSlash("/project")}
	b, err := l.Load(context.Background(), filepath.FromSlash("/project/defs/a.json"))
	if err != nil || string(b) != `{"type":"boolean"}` {
		t.Fatalf("FSLoader = %q, %v", b, err)
	}
	if _, err := l.Load(context.Background(), filepath.FromSlash("/elsewhere/a.json")); err == nil {
		t.Fatalf("expected failure outside Dir")
	}
}

func TestCache_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := loader.NewCache(loader.LoaderFunc(func(ctx context.Context, id string) ([]byte, error) {
		<-block
		return nil, errors.New("unreachable")
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Load(ctx, "/slow.json")
	if !errors.Is(err, schemaerr.ErrDocumentNotFound) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout surfaced as not-found, got %v", err)
	}
}
