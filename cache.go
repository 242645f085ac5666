package sizediff

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// tmpInfix marks in-progress artifacts. Final artifact names never contain
// it, so an orphan left by a killed run is never mistaken for a valid entry.
const tmpInfix = ".tmp-"

// DiffCache is a flat directory of content-addressed artifacts. An artifact
// is valid if and only if its final path exists: it is written under a
// private temporary name and renamed into place only after the computation
// succeeded. There is no index and no expiry.
//
// Concurrent callers asking for the same missing key share one computation.
// Concurrent processes racing on the same key both compute and the last
// rename wins; either result is a complete artifact.
type DiffCache struct {
	root    string
	fs      afero.Fs
	logger  *slog.Logger
	nowFunc NowFunc
	flight  singleflight.Group
}

// Artifact is a cached backend output.
type Artifact struct {
	Path   string
	Size   int64
	Cached bool // true if the artifact existed before this call
}

// ComputeFunc writes an artifact to outPath. outPath already exists as an
// empty file inside the cache directory; the function may overwrite it.
type ComputeFunc func(outPath string) error

// OpenCache opens the cache directory at root, creating it if needed.
func OpenCache(fs afero.Fs, root string, logger *slog.Logger) (*DiffCache, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, &IOError{Op: "create cache directory", Path: root, Err: err}
	}
	return &DiffCache{root: root, fs: fs, logger: logger, nowFunc: time.Now}, nil
}

// Root returns the cache directory.
func (c *DiffCache) Root() string {
	return c.root
}

// Path returns the final artifact path for key.
func (c *DiffCache) Path(key Key) string {
	return filepath.Join(c.root, key.Name())
}

// Has reports whether a valid artifact exists for key.
func (c *DiffCache) Has(key Key) bool {
	exists, err := afero.Exists(c.fs, c.Path(key))
	return err == nil && exists
}

// GetOrCompute returns the artifact for key, calling compute only when no
// artifact exists yet. Errors returned by compute are passed through
// unchanged and leave no entry behind.
func (c *DiffCache) GetOrCompute(key Key, compute ComputeFunc) (Artifact, error) {
	if err := key.validate(); err != nil {
		return Artifact{}, fmt.Errorf("invalid cache key: %w", err)
	}

	final := c.Path(key)
	if a, ok, err := c.lookup(final); err != nil || ok {
		return a, err
	}

	v, err, _ := c.flight.Do(key.Name(), func() (interface{}, error) {
		// another caller may have committed between lookup and Do
		if a, ok, err := c.lookup(final); err != nil || ok {
			return a, err
		}
		return c.compute(key, final, compute)
	})
	if err != nil {
		return Artifact{}, err
	}
	return v.(Artifact), nil
}

func (c *DiffCache) lookup(final string) (Artifact, bool, error) {
	info, err := c.fs.Stat(final)
	if err == nil {
		c.logger.Debug("cache hit", "artifact", final, "size", info.Size())
		return Artifact{Path: final, Size: info.Size(), Cached: true}, true, nil
	}
	if os.IsNotExist(err) {
		return Artifact{}, false, nil
	}
	return Artifact{}, false, &IOError{Op: "stat artifact", Path: final, Err: err}
}

func (c *DiffCache) compute(key Key, final string, compute ComputeFunc) (Artifact, error) {
	c.logger.Debug("cache miss", "key", key.Name())

	tmp, err := afero.TempFile(c.fs, c.root, key.Name()+tmpInfix+"*")
	if err != nil {
		return Artifact{}, &IOError{Op: "create temporary artifact", Path: c.root, Err: err}
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return Artifact{}, &IOError{Op: "close temporary artifact", Path: tmpPath, Err: err}
	}

	committed := false
	defer func() {
		if !committed {
			_ = c.fs.Remove(tmpPath)
		}
	}()

	if err := compute(tmpPath); err != nil {
		return Artifact{}, err
	}

	info, err := c.fs.Stat(tmpPath)
	if err != nil {
		return Artifact{}, &IOError{Op: "stat temporary artifact", Path: tmpPath, Err: err}
	}
	if err := c.fs.Rename(tmpPath, final); err != nil {
		return Artifact{}, &IOError{Op: "commit artifact", Path: final, Err: err}
	}
	committed = true

	return Artifact{Path: final, Size: info.Size()}, nil
}
