package sizediff

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestWriteReport(t *testing.T) {
	memFs := setupTestTrees(t)
	backends := newTestBackendSet(memFs)
	d := setupTestDiffer(t, memFs,
		WithBackends(backends.all()...),
		WithGroups(GroupSpec{Name: "binaries", Pattern: "bin/*"}),
	)

	report, err := d.Compare(context.Background(), "/from", "/to")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if err := WriteReport(memFs, "/out/report.json", report); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	infos, err := afero.ReadDir(memFs, "/out")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name() != "report.json" {
		t.Errorf("expected only report.json in /out, found %d entries", len(infos))
	}

	loaded, err := LoadReport(memFs, "/out/report.json")
	if err != nil {
		t.Fatalf("LoadReport() error = %v", err)
	}

	if diff := cmp.Diff(report.Overall, loaded.Overall); diff != "" {
		t.Errorf("overall totals mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(describe(report.Pairings), describe(loaded.Pairings)); diff != "" {
		t.Errorf("pairings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(report.Backends, loaded.Backends); diff != "" {
		t.Errorf("backend statuses mismatch (-want +got):\n%s", diff)
	}

	data, err := afero.ReadFile(memFs, "/out/report.json")
	if err != nil {
		t.Fatal(err)
	}
	// absolute paths are local to the machine that ran the comparison
	if strings.Contains(string(data), `"AbsPath"`) {
		t.Error("absolute paths must not be exported")
	}
}

func TestLoadReport_Fail(t *testing.T) {
	memFs := afero.NewMemMapFs()

	_, err := LoadReport(memFs, "/missing.json")
	assertErrorIs(t, err, ErrIO, "missing report")

	createTestFile(t, memFs, "/broken.json", []byte("{not json"))
	if _, err := LoadReport(memFs, "/broken.json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestReport_CheckBackend(t *testing.T) {
	report := &Report{Backends: []BackendStatus{
		{Name: "xz", Mode: "standalone", Available: true},
		{Name: "bsdiff", Mode: "delta", Available: false},
	}}

	if err := report.CheckBackend("xz"); err != nil {
		t.Errorf("CheckBackend(xz) = %v", err)
	}
	assertErrorIs(t, report.CheckBackend("bsdiff"), ErrBackendUnavailable, "unavailable backend")
	if err := report.CheckBackend("zstd"); err == nil {
		t.Error("expected error for a backend that was not enabled")
	}
}
