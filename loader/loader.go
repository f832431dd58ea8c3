// Package loader fetches schema documents and caches their parsed form.
package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Loader fetches the raw bytes behind a document identity. Identities are
// absolute file paths or canonical URLs as produced by Identity.
type Loader interface {
	Load(ctx context.Context, identity string) ([]byte, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, identity string) ([]byte, error)

func (f LoaderFunc) Load(ctx context.Context, identity string) ([]byte, error) {
	return f(ctx, identity)
}

// OSLoader reads identities from the local file system.
type OSLoader struct{}

func (OSLoader) Load(ctx context.Context, identity string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(identity)
}

// FSLoader reads identities from an fs.FS. Dir is the absolute directory the
// FS root corresponds to; identities outside it are not found.
type FSLoader struct {
	FS  fs.FS
	Dir string
}

func (l FSLoader) Load(ctx context.Context, identity string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := identity
	if l.Dir != "" {
		rel, err := filepath.Rel(l.Dir, identity)
		if err != nil {
			return nil, err
		}
		name = rel
	}
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: identity, Err: fs.ErrNotExist}
	}
	return fs.ReadFile(l.FS, name)
}

// MapLoader serves documents from memory, keyed by identity.
type MapLoader map[string][]byte

func (m MapLoader) Load(ctx context.Context, identity string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := m[identity]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: identity, Err: fs.ErrNotExist}
	}
	return b, nil
}

// DefaultMaxBytes bounds HTTP response bodies.
const DefaultMaxBytes = 32 << 20

// HTTPLoader fetches http and https identities.
type HTTPLoader struct {
	Client   *http.Client  // nil means http.DefaultClient
	Timeout  time.Duration // per request; 0 means none beyond ctx
	Header   http.Header
	MaxBytes int64 // 0 means DefaultMaxBytes
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (l *HTTPLoader) Load(ctx context.Context, identity string) ([]byte, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, identity, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range l.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: identity, StatusCode: resp.StatusCode}
	}
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", identity, limit)
	}
	return b, nil
}

// Mux routes URL identities to HTTP and everything else to File.
type Mux struct {
	File Loader // nil means OSLoader
	HTTP Loader // nil means a zero HTTPLoader
}

func (m Mux) Load(ctx context.Context, identity string) ([]byte, error) {
	if IsURL(identity) {
		if m.HTTP != nil {
			return m.HTTP.Load(ctx, identity)
		}
		return (&HTTPLoader{}).Load(ctx, identity)
	}
	if m.File != nil {
		return m.File.Load(ctx, identity)
	}
	return OSLoader{}.Load(ctx, identity)
}
