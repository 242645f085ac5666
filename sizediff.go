package sizediff

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/afero"
)

// Differ compares two extracted image trees and measures the cost of
// shipping the difference with each enabled backend.
type Differ struct {
	fs          afero.Fs
	hashFunc    HashFunc
	nowFunc     NowFunc
	logger      *slog.Logger
	backends    []Backend
	enabled     []string
	groups      []GroupSpec
	concurrency int

	registry *Registry
	selected []Backend
	cache    *DiffCache
}

// New creates a Differ whose artifacts are cached under cacheDir.
// Every configuration problem is reported at once as a *ValidationError
// wrapping ErrConfig, before any tree is read. When no backend is enabled
// explicitly, every registered backend is.
func New(cacheDir string, options ...Option) (*Differ, error) {
	d := &Differ{
		fs:          afero.NewOsFs(),  // Default to OS filesystem
		hashFunc:    defaultHashFunc,  // Default to xxHash
		nowFunc:     time.Now,         // Default to stdlib time.Now
		concurrency: runtime.NumCPU(), // Default to one job per CPU
	}

	for _, option := range options {
		option(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}

	var errs []error
	if cacheDir == "" {
		errs = append(errs, configErrorf("empty cache directory"))
	}
	if d.concurrency < 1 {
		errs = append(errs, configErrorf("concurrency must be positive, got %d", d.concurrency))
	}
	for _, g := range d.groups {
		if err := ValidatePattern(g.Pattern); err != nil {
			errs = append(errs, err)
		}
	}

	registry, err := NewRegistry(d.backends...)
	if err != nil {
		errs = append(errs, validationErrors(err)...)
	} else {
		d.registry = registry
		names := d.enabled
		if len(names) == 0 {
			names = registry.Names()
		}
		if d.selected, err = registry.Select(names); err != nil {
			errs = append(errs, validationErrors(err)...)
		}
	}

	if err := NewValidationError(errs); err != nil {
		return nil, err
	}

	cache, err := OpenCache(d.fs, cacheDir, d.logger)
	if err != nil {
		return nil, err
	}
	cache.nowFunc = d.nowFunc
	d.cache = cache

	return d, nil
}

// validationErrors flattens a *ValidationError into its causes.
func validationErrors(err error) []error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return []error{err}
}

// Cache returns the artifact cache used by the Differ.
func (d *Differ) Cache() *DiffCache {
	return d.cache
}

// Registry returns the registered backends.
func (d *Differ) Registry() *Registry {
	return d.registry
}

// Compare lists both trees, pairs and classifies their files, runs the
// available enabled backends over every changed file and aggregates the
// result. An I/O failure or a failing backend aborts the comparison and no
// report is returned.
func (d *Differ) Compare(ctx context.Context, fromRoot, toRoot string) (*Report, error) {
	from, err := ListTree(d.fs, fromRoot)
	if err != nil {
		return nil, err
	}
	d.logger.Info("listed tree", "root", fromRoot, "entries", len(from.Entries))

	to, err := ListTree(d.fs, toRoot)
	if err != nil {
		return nil, err
	}
	d.logger.Info("listed tree", "root", toRoot, "entries", len(to.Entries))

	fromAliases, toAliases := NewAliasTable(from), NewAliasTable(to)
	d.logger.Debug("indexed symlinks", "from", fromAliases.Len(), "to", toAliases.Len())

	hasher := NewHasher(d.fs, d.hashFunc)
	reconciler := NewReconciler(hasher, d.logger)
	rec, err := reconciler.Reconcile(from, to, fromAliases, toAliases)
	if err != nil {
		return nil, err
	}

	available, statuses := probe(ctx, d.selected, d.logger)

	if err := d.runBackends(ctx, hasher, rec.Pairings, available); err != nil {
		return nil, err
	}

	agg := Aggregate(rec.Pairings, d.groups, available)

	return &Report{
		From:      fromRoot,
		To:        toRoot,
		Pairings:  rec.Pairings,
		Warnings:  rec.Warnings,
		Backends:  statuses,
		Groups:    agg.Groups,
		Ungrouped: agg.Ungrouped,
		Overall:   agg.Overall,
		CreatedAt: d.nowFunc(),
	}, nil
}
