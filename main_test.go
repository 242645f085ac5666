package sizediff

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestMain(t *testing.M) {
	code := t.Run()

	os.Exit(code)
}

func fixedNowFunc() time.Time {
	return time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
}

// createTestFile creates a file with the given path and content in the filesystem.
func createTestFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		createTestDir(t, fs, dir)
	}

	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// createTestDir creates a directory with the given path in the filesystem.
func createTestDir(t *testing.T, fs afero.Fs, path string) {
	t.Helper()

	if err := fs.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", path, err)
	}
}

// createTestTree writes files, keyed by tree-relative path, below root.
func createTestTree(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()

	createTestDir(t, fs, root)
	for rel, content := range files {
		createTestFile(t, fs, filepath.Join(root, filepath.FromSlash(rel)), []byte(content))
	}
}

// createTestLink creates a symlink on the OS filesystem.
func createTestLink(t *testing.T, target, link string) {
	t.Helper()

	createTestDir(t, afero.NewOsFs(), filepath.Dir(link))
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

// assertErrorIs asserts that err matches target.
func assertErrorIs(t *testing.T, err, target error, context string) {
	t.Helper()

	if err == nil {
		t.Fatalf("Expected %v on %s, got nil", target, context)
	}
	if !errors.Is(err, target) {
		t.Fatalf("Expected %v on %s, got %v", target, context, err)
	}
}

// fakeBackend is a deterministic in-memory backend that counts its runs.
// A delta artifact holds the bytes of "to" past the prefix it shares with
// "from"; a standalone artifact holds the first half of its input.
type fakeBackend struct {
	name      string
	ext       string
	modes     Mode
	fs        afero.Fs
	available bool
	err       error

	calls  atomic.Int64
	probes atomic.Int64
}

func newFakeBackend(fs afero.Fs, name string, modes Mode) *fakeBackend {
	return &fakeBackend{name: name, ext: name, modes: modes, fs: fs, available: true}
}

func (f *fakeBackend) Name() string      { return f.name }
func (f *fakeBackend) Extension() string { return f.ext }
func (f *fakeBackend) Modes() Mode       { return f.modes }

func (f *fakeBackend) Available(context.Context) bool {
	f.probes.Add(1)
	return f.available
}

func (f *fakeBackend) Run(_ context.Context, from, to, out string) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}

	data, err := afero.ReadFile(f.fs, to)
	if err != nil {
		return err
	}

	var artifact []byte
	if from == "" {
		artifact = data[:len(data)/2]
	} else {
		ref, err := afero.ReadFile(f.fs, from)
		if err != nil {
			return err
		}
		n := 0
		for n < len(ref) && n < len(data) && ref[n] == data[n] {
			n++
		}
		artifact = bytes.Clone(data[n:])
	}

	return afero.WriteFile(f.fs, out, artifact, 0o644)
}
