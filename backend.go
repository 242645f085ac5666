package sizediff

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Mode is the set of inputs a backend can work from.
type Mode uint8

const (
	// ModeDelta computes an artifact from a (from, to) pair.
	ModeDelta Mode = 1 << iota
	// ModeStandalone computes an artifact from a single file.
	ModeStandalone
)

// Has reports whether m includes all of o.
func (m Mode) Has(o Mode) bool {
	return m&o == o
}

func (m Mode) String() string {
	var parts []string
	if m.Has(ModeDelta) {
		parts = append(parts, "delta")
	}
	if m.Has(ModeStandalone) {
		parts = append(parts, "standalone")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Backend is an external delta or compression operation. It is treated as a
// black box: given input paths it writes one artifact whose size is what
// gets reported.
type Backend interface {
	// Name identifies the backend in configuration and reports.
	Name() string
	// Extension is appended to cache artifact names. It must be unique
	// among registered backends.
	Extension() string
	// Modes reports which input shapes the backend supports.
	Modes() Mode
	// Available probes whether the backend can run on this host.
	Available(ctx context.Context) bool
	// Run writes the artifact to out. from is empty in standalone mode.
	Run(ctx context.Context, from, to, out string) error
}

// chain applies outer, in standalone mode, to the artifact of inner.
type chain struct {
	inner Backend
	outer Backend
}

// Chain composes two backends: outer compresses whatever inner produced,
// for example an xdelta3 patch compressed with xz. When run by a Differ
// each stage is cached under its own key, so the intermediate artifact is
// reused by the plain inner backend and by other chains.
func Chain(inner, outer Backend) Backend {
	return &chain{inner: inner, outer: outer}
}

func (c *chain) Name() string {
	return c.inner.Name() + "+" + c.outer.Name()
}

func (c *chain) Extension() string {
	return c.inner.Extension() + "." + c.outer.Extension()
}

func (c *chain) Modes() Mode {
	return c.inner.Modes()
}

func (c *chain) Available(ctx context.Context) bool {
	return c.inner.Available(ctx) && c.outer.Available(ctx)
}

// Run executes both stages without the cache, through a scratch file next
// to out.
func (c *chain) Run(ctx context.Context, from, to, out string) error {
	scratch := filepath.Join(filepath.Dir(out), filepath.Base(out)+".inner")
	defer func() { _ = os.Remove(scratch) }()

	if err := c.inner.Run(ctx, from, to, scratch); err != nil {
		return fmt.Errorf("%s: %w", c.inner.Name(), err)
	}
	if err := c.outer.Run(ctx, "", scratch, out); err != nil {
		return fmt.Errorf("%s: %w", c.outer.Name(), err)
	}
	return nil
}

// Registry is the fixed set of backends known to a Differ.
type Registry struct {
	backends map[string]Backend
	order    []string
}

// NewRegistry registers backends. Duplicate names or extensions, and chains
// whose outer stage cannot run standalone, are configuration errors.
func NewRegistry(backends ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend, len(backends))}
	exts := make(map[string]string, len(backends))

	var errs []error
	for _, b := range backends {
		name := b.Name()
		if _, dup := r.backends[name]; dup {
			errs = append(errs, configErrorf("duplicate backend %q", name))
			continue
		}
		if other, dup := exts[b.Extension()]; dup {
			errs = append(errs, configErrorf("backends %q and %q share extension %q", other, name, b.Extension()))
			continue
		}
		if strings.Contains(b.Extension(), tmpInfix) {
			errs = append(errs, configErrorf("backend %q: extension %q is reserved for temporary files", name, b.Extension()))
			continue
		}
		if c, ok := b.(*chain); ok && !c.outer.Modes().Has(ModeStandalone) {
			errs = append(errs, configErrorf("chain %q: %q cannot run standalone", name, c.outer.Name()))
			continue
		}
		r.backends[name] = b
		r.order = append(r.order, name)
		exts[b.Extension()] = name
	}

	if err := NewValidationError(errs); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// Names returns the registered backend names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Select resolves enabled backend names, reporting every unknown one.
func (r *Registry) Select(names []string) ([]Backend, error) {
	var (
		selected []Backend
		errs     []error
	)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		b, ok := r.backends[name]
		if !ok {
			errs = append(errs, configErrorf("unknown backend %q", name))
			continue
		}
		selected = append(selected, b)
	}
	if err := NewValidationError(errs); err != nil {
		return nil, err
	}
	return selected, nil
}

// BackendStatus records the probe outcome of one enabled backend.
type BackendStatus struct {
	Name      string `json:"name"`
	Mode      string `json:"mode"`
	Available bool   `json:"available"`
}

// probe checks each backend once and returns the available ones along with
// the status of all of them.
func probe(ctx context.Context, backends []Backend, logger *slog.Logger) ([]Backend, []BackendStatus) {
	var (
		available []Backend
		statuses  []BackendStatus
	)
	for _, b := range backends {
		ok := b.Available(ctx)
		statuses = append(statuses, BackendStatus{Name: b.Name(), Mode: b.Modes().String(), Available: ok})
		if !ok {
			logger.Warn("backend unavailable, skipping for this run", "backend", b.Name())
			continue
		}
		logger.Debug("backend available", "backend", b.Name(), "mode", b.Modes().String())
		available = append(available, b)
	}
	return available, statuses
}
