package sizediff

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Report is the complete outcome of one comparison. It is consumed by
// formatters outside this package, either directly or as JSON.
type Report struct {
	// Tree roots
	From string `json:"from"`
	To   string `json:"to"`

	// Classification
	Pairings []*Pairing       `json:"pairings"`
	Warnings []AmbiguousMatch `json:"warnings,omitempty"`

	// Backends lists every enabled backend with its probe outcome.
	Backends []BackendStatus `json:"backends"`

	// Totals
	Groups    []*Group `json:"groups"`
	Ungrouped *Group   `json:"ungrouped"`
	Overall   Summary  `json:"overall"`

	CreatedAt time.Time `json:"createdAt"`
}

// CheckBackend reports whether the named backend contributed to the report.
// It returns an error wrapping ErrBackendUnavailable when the backend was
// enabled but failed its probe, so its totals must be read as unknown.
func (r *Report) CheckBackend(name string) error {
	for _, s := range r.Backends {
		if s.Name != name {
			continue
		}
		if !s.Available {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, name)
		}
		return nil
	}
	return fmt.Errorf("backend %s was not enabled", name)
}

// Group returns the group with the given name.
func (r *Report) Group(name string) (*Group, bool) {
	for _, g := range r.Groups {
		if g.Name == name {
			return g, true
		}
	}
	if r.Ungrouped != nil && r.Ungrouped.Name == name {
		return r.Ungrouped, true
	}
	return nil, false
}

// WriteReport stores the report as indented JSON at path. The file is
// written under a temporary name and renamed into place, so readers never
// observe a partial report.
func WriteReport(fs afero.Fs, path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "create report directory", Path: dir, Err: err}
	}

	tmp, err := afero.TempFile(fs, dir, filepath.Base(path)+tmpInfix+"*")
	if err != nil {
		return &IOError{Op: "create temporary report", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IOError{Op: "write report", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write report", Path: tmpPath, Err: err}
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return &IOError{Op: "commit report", Path: path, Err: err}
	}
	committed = true

	return nil
}

// LoadReport reads a report written by WriteReport.
func LoadReport(fs afero.Fs, path string) (*Report, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &IOError{Op: "read report", Path: path, Err: err}
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
