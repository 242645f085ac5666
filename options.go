package sizediff

import (
	"hash"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// HashFunc defines a function that creates a new hash.Hash instance.
type HashFunc func() hash.Hash

// NowFunc defines a function that returns the current time.
type NowFunc func() time.Time

// Option defines a function that configures a Differ.
type Option func(*Differ)

// WithFs sets the filesystem both trees and the cache are read from.
// This is primarily useful for testing with in-memory filesystems:
//
//	d, err := sizediff.New("/cache", sizediff.WithFs(afero.NewMemMapFs()))
//
// External backends read real paths, so they require the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(d *Differ) {
		d.fs = fs
	}
}

// WithHashFunc sets the content digest function.
// The default is xxHash64.
//
// Note: digests name cache artifacts, so changing the hash function
// invalidates every existing cache entry.
func WithHashFunc(hashFunc HashFunc) Option {
	return func(d *Differ) {
		d.hashFunc = hashFunc
	}
}

// WithNowFunc sets the clock used to time backend calls.
// This is primarily useful for testing with deterministic timestamps.
func WithNowFunc(nowFunc NowFunc) Option {
	return func(d *Differ) {
		d.nowFunc = nowFunc
	}
}

// WithLogger sets the structured logger. Logging is discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Differ) {
		d.logger = logger
	}
}

// WithBackends registers backends. Registration alone does not run them;
// see WithEnabled.
func WithBackends(backends ...Backend) Option {
	return func(d *Differ) {
		d.backends = append(d.backends, backends...)
	}
}

// WithEnabled selects which registered backends run, by name.
func WithEnabled(names ...string) Option {
	return func(d *Differ) {
		d.enabled = append(d.enabled, names...)
	}
}

// WithGroups sets the ordered grouping patterns. A file is counted under
// the first group whose pattern matches its path.
func WithGroups(groups ...GroupSpec) Option {
	return func(d *Differ) {
		d.groups = append(d.groups, groups...)
	}
}

// WithConcurrency bounds how many backend computations run at once.
func WithConcurrency(n int) Option {
	return func(d *Differ) {
		d.concurrency = n
	}
}

func defaultHashFunc() hash.Hash {
	return xxhash.New()
}
