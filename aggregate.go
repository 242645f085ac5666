package sizediff

import (
	"sort"
)

// GroupSpec is a caller-defined bucket: files whose path matches Pattern
// (a slash glob where "**" spans directories) are rolled up under Name.
type GroupSpec struct {
	Name    string `json:"name" toml:"name"`
	Pattern string `json:"pattern" toml:"pattern"`
}

// Totals sums one classification.
type Totals struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
	// Delta sums the signed size change of Updated pairings.
	Delta int64 `json:"delta,omitempty"`
	// Backends sums artifact sizes per backend. A backend is absent, not
	// zero, when it was unavailable or does not apply to this category.
	Backends map[string]int64 `json:"backends,omitempty"`
}

// Backend returns the artifact total of a backend and whether it is known.
func (t *Totals) Backend(name string) (int64, bool) {
	v, ok := t.Backends[name]
	return v, ok
}

// Summary holds the per-classification totals of a set of pairings.
type Summary struct {
	New     Totals `json:"new"`
	Removed Totals `json:"removed"`
	Updated Totals `json:"updated"`
	Same    Totals `json:"same"`

	// DiffSize is the baseline cost of shipping the change uncompressed:
	// the size of New files plus the new size of Updated files.
	DiffSize int64 `json:"diffSize"`
	// BackendTotals is, per backend, its New files total plus its Updated
	// files total. New files count at raw size for delta-only backends.
	BackendTotals map[string]int64 `json:"backendTotals,omitempty"`
}

// Totals returns the totals of one classification.
func (s *Summary) Totals(kind Kind) *Totals {
	switch kind {
	case KindNew:
		return &s.New
	case KindRemoved:
		return &s.Removed
	case KindUpdated:
		return &s.Updated
	default:
		return &s.Same
	}
}

// Group is the rolled-up view of the files matched by one GroupSpec, or of
// the ungrouped remainder.
type Group struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern,omitempty"`
	// Files is ordered by descending raw size, then path.
	Files []*Pairing `json:"files"`
	Summary
}

// Aggregation is the grouped and overall totals of a comparison.
type Aggregation struct {
	Groups    []*Group `json:"groups"`
	Ungrouped *Group   `json:"ungrouped"`
	Overall   Summary  `json:"overall"`
}

// Aggregate partitions pairings into groups, first matching pattern wins,
// and sums raw and per-backend sizes. backends lists the backends that ran;
// only they appear in backend totals. Patterns are assumed valid.
func Aggregate(pairings []*Pairing, groups []GroupSpec, backends []Backend) *Aggregation {
	agg := &Aggregation{}

	grouped := make(map[*Pairing]bool, len(pairings))
	for _, spec := range groups {
		g := &Group{Name: spec.Name, Pattern: spec.Pattern}
		if g.Name == "" {
			g.Name = spec.Pattern
		}
		for _, p := range pairings {
			if grouped[p] || !matchesGlobPattern(p.Path(), spec.Pattern) {
				continue
			}
			grouped[p] = true
			g.Files = append(g.Files, p)
		}
		agg.Groups = append(agg.Groups, g)
	}

	rest := &Group{Name: "ungrouped"}
	for _, p := range pairings {
		if !grouped[p] {
			rest.Files = append(rest.Files, p)
		}
	}
	agg.Ungrouped = rest

	for _, g := range append(agg.Groups, rest) {
		sortForDisplay(g.Files)
		g.Summary = summarize(g.Files, backends)
	}
	agg.Overall = summarize(pairings, backends)

	return agg
}

// summarize computes the totals of pairings for the given backends.
func summarize(pairings []*Pairing, backends []Backend) Summary {
	var s Summary

	for _, b := range backends {
		name := b.Name()
		s.Updated.setBackend(name)
		if b.Modes().Has(ModeStandalone) {
			s.New.setBackend(name)
			s.Removed.setBackend(name)
		}
	}

	for _, p := range pairings {
		t := s.Totals(p.Kind)
		t.Count++
		t.Size += p.Size()
		if p.Kind == KindUpdated {
			t.Delta += p.SizeDelta
		}
		for name, r := range p.Results {
			if _, ok := t.Backends[name]; ok {
				t.Backends[name] += r.Size
			}
		}
	}

	s.DiffSize = s.New.Size + s.Updated.Size

	if len(backends) > 0 {
		s.BackendTotals = make(map[string]int64, len(backends))
	}
	for _, b := range backends {
		name := b.Name()
		total, ok := s.New.Backend(name)
		if !ok {
			total = s.New.Size
		}
		updated, _ := s.Updated.Backend(name)
		s.BackendTotals[name] = total + updated
	}

	return s
}

func (t *Totals) setBackend(name string) {
	if t.Backends == nil {
		t.Backends = make(map[string]int64)
	}
	t.Backends[name] = 0
}

// sortForDisplay orders files by descending raw size, then path.
func sortForDisplay(files []*Pairing) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Size() != files[j].Size() {
			return files[i].Size() > files[j].Size()
		}
		return files[i].Path() < files[j].Path()
	})
}
