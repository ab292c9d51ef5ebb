package shader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
)

// Program is a compiled program and the fingerprint it implements.
type Program struct {
	Fingerprint Fingerprint
	Handle      resource.Program
	// Source is the synthesized source the program was compiled from.
	Source gpucore.ProgramSource
}

// Stats counts cache activity.
type Stats struct {
	Hits     int
	Misses   int
	Compiles int
	Failures int
}

type cacheEntry struct {
	prog *Program
	err  *Error
}

// Cache memoizes compiled programs per fingerprint for the lifetime of
// a context. It never evicts. It is not safe for concurrent use.
type Cache struct {
	reg       *resource.Registry
	templates *Templates
	entries   map[Fingerprint]cacheEntry
	order     []Fingerprint
	stats     Stats
	logger    *slog.Logger
}

// NewCache creates a cache compiling through reg. Nil templates select
// the builtin set.
func NewCache(reg *resource.Registry, templates *Templates) *Cache {
	if templates == nil {
		templates = Builtin()
	}
	return &Cache{
		reg:       reg,
		templates: templates,
		entries:   make(map[Fingerprint]cacheEntry),
		logger:    slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for cache misses and failures.
func (c *Cache) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	c.logger = l
}

// Templates returns the template set used on misses.
func (c *Cache) Templates() *Templates {
	return c.templates
}

// Get is GetOrCompile with the fingerprint of f and the cache's own
// template for its stage.
func (c *Cache) Get(f Features) (*Program, error) {
	return c.GetOrCompile(f.Fingerprint(), nil)
}

// GetOrCompile returns the program for fp, compiling it from tmpl on
// the first request. A nil tmpl selects the cache's template for the
// fingerprint's stage. The template is only consulted on a miss.
//
// Compile and template failures are returned as *Error and remembered:
// later requests for fp return the same error without recompiling.
// Device failures (context lost, closed registry) are returned as is and
// not remembered.
func (c *Cache) GetOrCompile(fp Fingerprint, tmpl *Template) (*Program, error) {
	if e, ok := c.entries[fp]; ok {
		c.stats.Hits++
		if e.err != nil {
			return nil, e.err
		}
		return e.prog, nil
	}
	c.stats.Misses++

	prog, err := c.compile(fp, tmpl)
	if err != nil {
		if !memoizable(err) {
			return nil, err
		}
		serr := &Error{Fingerprint: fp, Err: err}
		var be *gpucore.BackendError
		if errors.As(err, &be) {
			serr.Diagnostic = be.Diagnostic
		}
		c.stats.Failures++
		c.store(fp, cacheEntry{err: serr})
		c.logger.Warn("shader: compile failed", "fingerprint", fp.String(), "err", err)
		return nil, serr
	}
	c.store(fp, cacheEntry{prog: prog})
	return prog, nil
}

func (c *Cache) compile(fp Fingerprint, tmpl *Template) (*Program, error) {
	if tmpl == nil {
		tmpl = c.templates.For(fp.Stage())
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w %s", ErrNoTemplate, fp.Stage())
	}
	src, err := tmpl.Render(fp)
	if err != nil {
		return nil, err
	}
	c.stats.Compiles++
	h, err := c.reg.CompileProgram(src)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("shader: compiled", "fingerprint", fp.String(), "template", tmpl.Name())
	return &Program{Fingerprint: fp, Handle: h, Source: src}, nil
}

func (c *Cache) store(fp Fingerprint, e cacheEntry) {
	c.entries[fp] = e
	c.order = append(c.order, fp)
}

// Lookup returns the cached program for fp without compiling.
func (c *Cache) Lookup(fp Fingerprint) (*Program, bool) {
	e, ok := c.entries[fp]
	if !ok || e.err != nil {
		return nil, false
	}
	return e.prog, true
}

// Failed returns the remembered failure of fp, if any.
func (c *Cache) Failed(fp Fingerprint) (*Error, bool) {
	e, ok := c.entries[fp]
	if !ok || e.err == nil {
		return nil, false
	}
	return e.err, true
}

// Len returns the number of cached fingerprints, failures included.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Fingerprints returns the cached fingerprints in the order they were
// first requested.
func (c *Cache) Fingerprints() []Fingerprint {
	return append([]Fingerprint(nil), c.order...)
}

// Stats returns the activity counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

// Invalidate releases every compiled program and empties the cache,
// remembered failures included. Release errors are joined.
func (c *Cache) Invalidate() error {
	var errs []error
	for _, fp := range c.order {
		if e := c.entries[fp]; e.prog != nil {
			if err := c.reg.Release(e.prog.Handle); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.Forget()
	return errors.Join(errs...)
}

// Forget empties the cache without releasing anything, for use after
// the registry has dropped its objects.
func (c *Cache) Forget() {
	clear(c.entries)
	c.order = c.order[:0]
}
