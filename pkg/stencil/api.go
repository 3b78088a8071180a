package stencil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Store persists template records together with their package bytes.
// Implementations must treat finalized records as append-only: putting a
// record whose ID is already stored as finalized fails with
// ErrTemplateFinalized. Putting a record over a stored one whose Revision
// differs from rec.BaseRevision fails with ErrStaleTemplateVersion. Get and
// Delete fail with ErrTemplateNotFound for unknown IDs.
type Store interface {
	Put(ctx context.Context, rec Record, pkg []byte) error
	Get(ctx context.Context, id string) (Record, []byte, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
}

// Engine ties a store, a cache of finalized templates and the
// configuration together.
type Engine struct {
	config *Config
	store  Store
	cache  *TemplateCache
	logger *slog.Logger

	cacheSize *int
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithCache returns an option that sets the cache size (0 disables caching).
// It takes precedence over the configured CacheMaxSize.
func WithCache(maxSize int) Option {
	return func(e *Engine) {
		e.cacheSize = &maxSize
	}
}

// WithLogger returns an option that sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine backed by store. A nil store means an in-memory
// store.
func New(store Store, opts ...Option) *Engine {
	if store == nil {
		store = NewMemoryStore()
	}
	e := &Engine{
		config: GetGlobalConfig(),
		store:  store,
		logger: Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	size := e.config.CacheMaxSize
	if e.cacheSize != nil {
		size = *e.cacheSize
	}
	e.cache = NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: size,
		TTL:     e.config.CacheTTL,
	})
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Load reads a package, enforcing the configured size limit.
func (e *Engine) Load(ctx context.Context, r io.Reader) (*Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := e.config.MaxPackageSize
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("load", "", ErrCorruptPackage, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, NewDocumentError("load", "", ErrUnsupportedFormat,
			fmt.Errorf("package exceeds %d bytes", limit))
	}
	return LoadPackageBytes(data)
}

// Draft loads a package and starts a draft template on it. The draft is
// not stored until Save is called.
func (e *Engine) Draft(ctx context.Context, r io.Reader, name, category string) (*Template, error) {
	pkg, err := e.Load(ctx, r)
	if err != nil {
		return nil, err
	}
	return NewDraft(pkg, name, category)
}

// Save stores the template's current record and package. It fails with
// ErrStaleTemplateVersion when the stored template was saved by someone
// else since t was opened.
func (e *Engine) Save(ctx context.Context, t *Template) error {
	rec, err := t.Record()
	if err != nil {
		return err
	}
	if err := e.store.Put(ctx, rec, t.Package().Bytes()); err != nil {
		return WithContext(err, "save", map[string]any{"template": t.ID})
	}
	t.stored.Store(rec.Revision)
	e.cache.Set(t.ID, t)
	e.logger.InfoContext(ctx, "template saved",
		slog.String("template", t.ID),
		slog.String("state", t.State().String()),
		slog.Int("version", t.Version))
	return nil
}

// Open returns the stored template with the given ID. Finalized templates
// are served from the cache when possible.
func (e *Engine) Open(ctx context.Context, id string) (*Template, error) {
	return e.cache.GetOrLoad(id, func() (*Template, error) {
		rec, data, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		pkg, err := LoadPackageBytes(data)
		if err != nil {
			return nil, err
		}
		return Restore(rec, pkg)
	})
}

// Generate renders the template named by req.
func (e *Engine) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	t, err := e.Open(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	result, err := Generate(ctx, t, req.Bindings,
		WithLocale(e.config.DefaultLocale),
		WithLocale(req.Locale),
		WithStrictBindings(e.config.StrictBindings))
	if err != nil {
		e.logger.DebugContext(ctx, "generation failed",
			slog.String("template", req.TemplateID),
			slog.Any("error", err))
		return nil, err
	}
	for _, w := range result.Warnings {
		e.logger.WarnContext(ctx, "generation warning",
			slog.String("template", req.TemplateID),
			slog.String("kind", string(w.Kind)),
			slog.String("variable", w.Variable))
	}
	return result, nil
}

// GenerateTo renders the template named by req and writes the package to w.
func (e *Engine) GenerateTo(ctx context.Context, w io.Writer, req GenerationRequest) ([]Warning, error) {
	result, err := e.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, bytes.NewReader(result.Output)); err != nil {
		return nil, NewDocumentError("write", "", ErrSerializationFailure, err)
	}
	return result.Warnings, nil
}

// List returns every stored record.
func (e *Engine) List(ctx context.Context) ([]Record, error) {
	return e.store.List(ctx)
}

// Delete removes a stored template.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.cache.Remove(id)
	return e.store.Delete(ctx, id)
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Close releases the store if it holds resources.
func (e *Engine) Close() error {
	e.cache.Clear()
	if c, ok := e.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// IsNotFound reports whether err means a template ID is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
