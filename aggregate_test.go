package sizediff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func entry(path string, size int64) *FileEntry {
	return &FileEntry{Path: path, AbsPath: "/" + path, Size: size, IsRegular: true}
}

func withResults(p *Pairing, sizes map[string]int64) *Pairing {
	p.Results = make(map[string]BackendResult, len(sizes))
	for name, size := range sizes {
		p.Results[name] = BackendResult{Backend: name, Size: size}
	}
	return p
}

func testPairings() []*Pairing {
	return []*Pairing{
		withResults(&Pairing{Kind: KindNew, To: entry("usr/lib/libnew.so.1", 1000)},
			map[string]int64{"xz": 300}),
		withResults(&Pairing{Kind: KindUpdated, From: entry("usr/lib/libfoo.so.1", 4000), To: entry("usr/lib/libfoo.so.2", 5000), SizeDelta: 1000},
			map[string]int64{"xdelta3": 700, "xz": 1500}),
		withResults(&Pairing{Kind: KindUpdated, From: entry("usr/bin/tool", 300), To: entry("usr/bin/tool", 200), SizeDelta: -100},
			map[string]int64{"xdelta3": 50, "xz": 80}),
		{Kind: KindSame, From: entry("etc/passwd", 90), To: entry("etc/passwd", 90)},
		withResults(&Pairing{Kind: KindRemoved, From: entry("usr/lib/libold.so", 2000)},
			map[string]int64{"xz": 600}),
		withResults(&Pairing{Kind: KindNew, To: entry("etc/new.conf", 10)},
			map[string]int64{"xz": 8}),
	}
}

func testBackends() []Backend {
	fs := afero.NewMemMapFs()
	return []Backend{
		newFakeBackend(fs, "xdelta3", ModeDelta),
		newFakeBackend(fs, "xz", ModeStandalone),
	}
}

func TestAggregate_Overall(t *testing.T) {
	agg := Aggregate(testPairings(), nil, testBackends())
	s := agg.Overall

	if s.New.Count != 2 || s.New.Size != 1010 {
		t.Errorf("New = %+v", s.New)
	}
	if s.Updated.Count != 2 || s.Updated.Size != 5200 || s.Updated.Delta != 900 {
		t.Errorf("Updated = %+v", s.Updated)
	}
	if s.Removed.Count != 1 || s.Removed.Size != 2000 {
		t.Errorf("Removed = %+v", s.Removed)
	}
	if s.Same.Count != 1 || s.Same.Size != 90 {
		t.Errorf("Same = %+v", s.Same)
	}

	// baseline: every new byte plus every updated file shipped whole
	if s.DiffSize != 1010+5200 {
		t.Errorf("DiffSize = %d, want %d", s.DiffSize, 1010+5200)
	}

	want := map[string]int64{
		// delta-only backend: new files count at raw size
		"xdelta3": 1010 + 750,
		"xz":      308 + 1580,
	}
	if diff := cmp.Diff(want, s.BackendTotals); diff != "" {
		t.Errorf("BackendTotals mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_AbsentBackends(t *testing.T) {
	agg := Aggregate(testPairings(), nil, testBackends())
	s := agg.Overall

	// xdelta3 cannot compress standalone files: absent, not zero
	if _, ok := s.New.Backend("xdelta3"); ok {
		t.Error("delta-only backend must be absent from New totals")
	}
	if _, ok := s.Removed.Backend("xdelta3"); ok {
		t.Error("delta-only backend must be absent from Removed totals")
	}
	if v, ok := s.Updated.Backend("xdelta3"); !ok || v != 750 {
		t.Errorf("Updated xdelta3 = %d, %v; want 750", v, ok)
	}

	// a backend that did not run at all never appears
	agg = Aggregate(testPairings(), nil, testBackends()[:1])
	if _, ok := agg.Overall.Updated.Backend("xz"); ok {
		t.Error("backend that did not run must be absent")
	}
	if _, ok := agg.Overall.BackendTotals["xz"]; ok {
		t.Error("backend that did not run must have no total")
	}
}

func TestAggregate_GroupExclusivity(t *testing.T) {
	groups := []GroupSpec{
		{Name: "libraries", Pattern: "usr/lib/**"},
		{Name: "shared objects", Pattern: "**/*.so*"},
		{Name: "config", Pattern: "etc/**"},
	}
	agg := Aggregate(testPairings(), groups, testBackends())

	paths := func(g *Group) []string {
		var out []string
		for _, p := range g.Files {
			out = append(out, p.Path())
		}
		return out
	}

	want := map[string][]string{
		// ordered by descending raw size
		"libraries":      {"usr/lib/libfoo.so.2", "usr/lib/libold.so", "usr/lib/libnew.so.1"},
		"shared objects": nil,
		"config":         {"etc/passwd", "etc/new.conf"},
		"ungrouped":      {"usr/bin/tool"},
	}
	got := map[string][]string{}
	for _, g := range agg.Groups {
		got[g.Name] = paths(g)
	}
	got[agg.Ungrouped.Name] = paths(agg.Ungrouped)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("grouping mismatch (-want +got):\n%s", diff)
	}

	// group totals add up to the overall totals
	var count int
	var size int64
	for _, g := range append(agg.Groups, agg.Ungrouped) {
		for _, kind := range Kinds {
			count += g.Totals(kind).Count
			size += g.Totals(kind).Size
		}
	}
	if count != 6 || size != 1000+5000+200+90+2000+10 {
		t.Errorf("group totals = %d files, %d bytes", count, size)
	}

	lib := agg.Groups[0]
	if v, _ := lib.Updated.Backend("xdelta3"); v != 700 {
		t.Errorf("libraries Updated xdelta3 = %d, want 700", v)
	}
	if got := lib.BackendTotals["xz"]; got != 300+1500 {
		t.Errorf("libraries xz total = %d, want %d", got, 1800)
	}
}

func TestAggregate_OrderDoesNotAffectTotals(t *testing.T) {
	pairings := testPairings()
	reversed := make([]*Pairing, len(pairings))
	for i, p := range pairings {
		reversed[len(pairings)-1-i] = p
	}

	a := Aggregate(pairings, nil, testBackends())
	b := Aggregate(reversed, nil, testBackends())
	if diff := cmp.Diff(a.Overall, b.Overall); diff != "" {
		t.Errorf("totals depend on input order (-want +got):\n%s", diff)
	}
}
