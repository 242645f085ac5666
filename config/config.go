// Package config loads sizediff run configuration from TOML files.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/gophersatwork/sizediff"
	"github.com/gophersatwork/sizediff/backends"
)

// DefaultCacheDir is used when a configuration names no cache directory.
const DefaultCacheDir = ".sizediff-cache"

// Config is the run configuration:
//
//	cache_dir = "/var/cache/sizediff"
//	concurrency = 4
//	backends = ["xdelta3", "zstd-go", "xdelta3+xz"]
//
//	[[chain]]
//	inner = "xdelta3"
//	outer = "xz"
//
//	[[group]]
//	name = "libraries"
//	pattern = "usr/lib/**"
type Config struct {
	CacheDir    string `toml:"cache_dir"`
	Concurrency int    `toml:"concurrency"`
	// Backends lists the enabled backends. Empty enables all of them.
	Backends []string             `toml:"backends,omitempty"`
	Chains   []ChainSpec          `toml:"chain,omitempty"`
	Groups   []sizediff.GroupSpec `toml:"group,omitempty"`
}

// ChainSpec composes two backends; its name is "inner+outer".
type ChainSpec struct {
	Inner string `toml:"inner"`
	Outer string `toml:"outer"`
}

// Name returns the backend name of the chain.
func (c ChainSpec) Name() string {
	return c.Inner + "+" + c.Outer
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{CacheDir: DefaultCacheDir}
}

// Load reads and validates the configuration at path. Unknown keys are
// configuration errors, so a typo never silently disables a setting.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &sizediff.IOError{Op: "read config", Path: path, Err: err}
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sizediff.ErrConfig, path, err)
	}

	var errs []error
	for _, key := range md.Undecoded() {
		errs = append(errs, fmt.Errorf("%w: %s: unknown key %q", sizediff.ErrConfig, path, key.String()))
	}
	if err := cfg.Validate(); err != nil {
		var ve *sizediff.ValidationError
		if errors.As(err, &ve) {
			errs = append(errs, ve.Errors...)
		} else {
			errs = append(errs, err)
		}
	}
	if err := sizediff.NewValidationError(errs); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.CacheDir == "" {
		errs = append(errs, configErrorf("cache_dir is empty"))
	}
	if c.Concurrency < 0 {
		errs = append(errs, configErrorf("concurrency must not be negative, got %d", c.Concurrency))
	}

	known := make(map[string]bool)
	for _, b := range backends.Defaults() {
		known[b.Name()] = true
	}
	for _, ch := range c.Chains {
		switch {
		case !known[ch.Inner]:
			errs = append(errs, configErrorf("chain %s: unknown backend %q", ch.Name(), ch.Inner))
		case !known[ch.Outer]:
			errs = append(errs, configErrorf("chain %s: unknown backend %q", ch.Name(), ch.Outer))
		}
	}
	for _, ch := range c.Chains {
		known[ch.Name()] = true
	}
	for _, name := range c.Backends {
		if !known[name] {
			errs = append(errs, configErrorf("unknown backend %q", name))
		}
	}

	for i, g := range c.Groups {
		if err := sizediff.ValidatePattern(g.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("group %d (%s): %w", i+1, g.Name, err))
		}
	}

	return sizediff.NewValidationError(errs)
}

// Options translates the configuration into Differ options. fs is the
// filesystem the Differ reads trees from; in-process backends share it.
func (c *Config) Options(fs afero.Fs) []sizediff.Option {
	builtin := backends.Defaults()
	for i, b := range builtin {
		if _, ok := b.(*backends.ZstdGo); ok {
			builtin[i] = backends.NewZstdGo(backends.WithZstdFs(fs))
		}
	}

	byName := make(map[string]sizediff.Backend, len(builtin))
	for _, b := range builtin {
		byName[b.Name()] = b
	}
	registered := append([]sizediff.Backend(nil), builtin...)
	for _, ch := range c.Chains {
		inner, innerOK := byName[ch.Inner]
		outer, outerOK := byName[ch.Outer]
		if innerOK && outerOK {
			registered = append(registered, sizediff.Chain(inner, outer))
		}
	}

	opts := []sizediff.Option{
		sizediff.WithFs(fs),
		sizediff.WithBackends(registered...),
		sizediff.WithGroups(c.Groups...),
	}
	if len(c.Backends) > 0 {
		opts = append(opts, sizediff.WithEnabled(c.Backends...))
	}
	if c.Concurrency > 0 {
		opts = append(opts, sizediff.WithConcurrency(c.Concurrency))
	}
	return opts
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", sizediff.ErrConfig, fmt.Sprintf(format, args...))
}

// String renders the configuration back to TOML.
func (c *Config) String() string {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<invalid config: %v>", err)
	}
	return buf.String()
}
