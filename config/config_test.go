package config

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/gophersatwork/sizediff"
)

func writeConfig(t *testing.T, fs afero.Fs, content string) string {
	t.Helper()

	path := "/etc/sizediff.toml"
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	memFs := afero.NewMemMapFs()
	path := writeConfig(t, memFs, `
cache_dir = "/var/cache/sizediff"
concurrency = 3
backends = ["xdelta3", "zstd-go", "xdelta3+xz"]

[[chain]]
inner = "xdelta3"
outer = "xz"

[[group]]
name = "libraries"
pattern = "usr/lib/**"

[[group]]
name = "modules"
pattern = "lib/modules/**/*.ko"
`)

	cfg, err := Load(memFs, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		CacheDir:    "/var/cache/sizediff",
		Concurrency: 3,
		Backends:    []string{"xdelta3", "zstd-go", "xdelta3+xz"},
		Chains:      []ChainSpec{{Inner: "xdelta3", Outer: "xz"}},
		Groups: []sizediff.GroupSpec{
			{Name: "libraries", Pattern: "usr/lib/**"},
			{Name: "modules", Pattern: "lib/modules/**/*.ko"},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Defaults(t *testing.T) {
	memFs := afero.NewMemMapFs()
	cfg, err := Load(memFs, writeConfig(t, memFs, ``))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheDir != DefaultCacheDir {
		t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, DefaultCacheDir)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		problems int
	}{
		{
			name:     "unknown key",
			content:  "cache_dirr = \"/tmp\"\n",
			problems: 1,
		},
		{
			name: "every problem at once",
			content: `
concurrency = -1
backends = ["xdelta3", "nosuch"]

[[chain]]
inner = "xdelta3"
outer = "gzip"

[[group]]
name = "broken"
pattern = "usr/[lib"
`,
			problems: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memFs := afero.NewMemMapFs()
			_, err := Load(memFs, writeConfig(t, memFs, tt.content))
			if !errors.Is(err, sizediff.ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}

			var ve *sizediff.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if len(ve.Errors) != tt.problems {
				t.Errorf("expected %d problems, got %d: %v", tt.problems, len(ve.Errors), ve)
			}
		})
	}
}

func TestLoad_Fail(t *testing.T) {
	memFs := afero.NewMemMapFs()

	_, err := Load(memFs, "/missing.toml")
	if !errors.Is(err, sizediff.ErrIO) {
		t.Errorf("expected ErrIO for a missing file, got %v", err)
	}

	_, err = Load(memFs, writeConfig(t, memFs, "cache_dir = [unterminated"))
	if !errors.Is(err, sizediff.ErrConfig) {
		t.Errorf("expected ErrConfig for invalid TOML, got %v", err)
	}
}

func TestOptions(t *testing.T) {
	memFs := afero.NewMemMapFs()
	cfg := &Config{
		CacheDir: "/cache",
		Backends: []string{"zstd-go", "xdelta3+xz"},
		Chains:   []ChainSpec{{Inner: "xdelta3", Outer: "xz"}},
		Groups:   []sizediff.GroupSpec{{Name: "all", Pattern: "**"}},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	d, err := sizediff.New(cfg.CacheDir, cfg.Options(memFs)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	names := d.Registry().Names()
	if names[len(names)-1] != "xdelta3+xz" {
		t.Errorf("chain not registered last: %v", names)
	}
	if _, ok := d.Registry().Get("zstd-go"); !ok {
		t.Error("built-in backends must be registered")
	}
	if exists, _ := afero.DirExists(memFs, "/cache"); !exists {
		t.Error("cache directory not created on the configured filesystem")
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Default()
	cfg.Groups = []sizediff.GroupSpec{{Name: "etc", Pattern: "etc/**"}}

	memFs := afero.NewMemMapFs()
	loaded, err := Load(memFs, writeConfig(t, memFs, cfg.String()))
	if err != nil {
		t.Fatalf("Load(String()) error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("String() does not reload (-want +got):\n%s", diff)
	}
}
