package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/reoring/schemast/rawschema"
	"github.com/reoring/schemast/schemaerr"
)

// Document is a parsed schema document.
type Document struct {
	Identity string
	FileName string
	FilePath string
	Root     rawschema.Value
}

// NewDocument wraps an already-parsed root under identity.
func NewDocument(identity string, root rawschema.Value) *Document {
	return &Document{
		Identity: identity,
		FileName: BaseName(identity),
		FilePath: identity,
		Root:     root,
	}
}

// Stats counts cache activity.
type Stats struct {
	Fetches int64 // loader calls (one per distinct identity unless a load failed)
	Hits    int64 // Load calls answered from the stored documents
	Shared  int64 // Load calls that joined another caller's in-flight load
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger used for load events.
func WithLogger(l zerolog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// WithConcurrency bounds Prefetch parallelism. n <= 0 means unbounded.
func WithConcurrency(n int) CacheOption {
	return func(c *Cache) { c.concurrency = n }
}

// Cache memoizes parsed documents by identity. Each identity is fetched and
// parsed at most once while it succeeds; concurrent requests for the same
// identity share one in-flight load. Stored documents are never replaced.
type Cache struct {
	loader      Loader
	logger      zerolog.Logger
	concurrency int

	mu    sync.RWMutex
	docs  map[string]*Document
	group singleflight.Group

	fetches atomic.Int64
	hits    atomic.Int64
	shared  atomic.Int64
}

// NewCache returns a cache backed by l. A nil loader means Mux{}.
func NewCache(l Loader, opts ...CacheOption) *Cache {
	if l == nil {
		l = Mux{}
	}
	c := &Cache{
		loader:      l,
		logger:      zerolog.Nop(),
		concurrency: 8,
		docs:        make(map[string]*Document),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load returns the document behind identity, fetching and parsing it on first
// use. Fetch failures are *schemaerr.DocumentNotFoundError, malformed bytes
// *schemaerr.DocumentParseError. Errors are not cached.
func (c *Cache) Load(ctx context.Context, identity string) (*Document, error) {
	if doc, ok := c.lookup(identity); ok {
		c.hits.Add(1)
		return doc, nil
	}
	ch := c.group.DoChan(identity, func() (any, error) {
		if doc, ok := c.lookup(identity); ok {
			return doc, nil
		}
		// the fetch is shared; each caller's ctx only ends its own wait
		return c.fetch(context.WithoutCancel(ctx), identity)
	})
	select {
	case <-ctx.Done():
		return nil, &schemaerr.DocumentNotFoundError{Identity: identity, Err: ctx.Err()}
	case r := <-ch:
		if r.Shared {
			c.shared.Add(1)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Document), nil
	}
}

func (c *Cache) fetch(ctx context.Context, identity string) (*Document, error) {
	c.fetches.Add(1)
	c.logger.Debug().Str("identity", identity).Msg("loading document")
	data, err := c.loader.Load(ctx, identity)
	if err != nil {
		c.logger.Debug().Str("identity", identity).Err(err).Msg("load failed")
		return nil, &schemaerr.DocumentNotFoundError{Identity: identity, Err: err}
	}
	root, err := rawschema.Decode(identity, data)
	if err != nil {
		var pe *schemaerr.DocumentParseError
		if errors.As(err, &pe) {
			cp := *pe
			cp.Identity = identity
			return nil, &cp
		}
		return nil, &schemaerr.DocumentParseError{Identity: identity, Err: err}
	}
	return c.Store(NewDocument(identity, root)), nil
}

// Store registers an already-parsed document. If the identity is already
// stored the existing document is kept and returned.
func (c *Cache) Store(doc *Document) *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.docs[doc.Identity]; ok {
		return prev
	}
	c.docs[doc.Identity] = doc
	return doc
}

// Lookup returns a stored document without loading.
func (c *Cache) Lookup(identity string) (*Document, bool) {
	return c.lookup(identity)
}

func (c *Cache) lookup(identity string) (*Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[identity]
	return doc, ok
}

// Prefetch loads identities concurrently and returns the first failure.
func (c *Cache) Prefetch(ctx context.Context, identities ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for _, id := range identities {
		id := id
		g.Go(func() error {
			_, err := c.Load(ctx, id)
			return err
		})
	}
	return g.Wait()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{Fetches: c.fetches.Load(), Hits: c.hits.Load(), Shared: c.shared.Load()}
}
