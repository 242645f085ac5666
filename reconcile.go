package sizediff

import (
	"log/slog"
)

// Reconciliation is the classification of every regular file of two trees.
type Reconciliation struct {
	// Pairings holds one New, Same or Updated pairing per regular "to" file in
	// listing order, followed by one Removed pairing per unclaimed regular
	// "from" file in listing order.
	Pairings []*Pairing
	// Warnings lists "to" files demoted to New because several candidates
	// matched and none of them was at the identical path.
	Warnings []AmbiguousMatch
}

// ByKind returns the pairings of one classification, in order.
func (r *Reconciliation) ByKind(kind Kind) []*Pairing {
	var out []*Pairing
	for _, p := range r.Pairings {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Reconciler pairs "to" files with their most plausible "from" predecessor.
type Reconciler struct {
	hasher *Hasher
	logger *slog.Logger
}

// NewReconciler creates a Reconciler comparing content with hasher.
func NewReconciler(hasher *Hasher, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{hasher: hasher, logger: logger}
}

// Reconcile classifies every regular file of from and to.
//
// Identical paths are paired first, so a later rename rule can never steal a
// predecessor that still exists under the same name. The remaining "to"
// files are then matched greedily in listing order against unclaimed "from"
// files; a "from" file is predecessor of at most one "to" file.
//
// A hashing failure aborts the reconciliation.
func (r *Reconciler) Reconcile(from, to *FileTree, fromAliases, toAliases *AliasTable) (*Reconciliation, error) {
	fromFiles := from.Regular()
	toFiles := to.Regular()
	m := newMatcher(fromFiles, fromAliases, toAliases)

	result := &Reconciliation{}
	predecessors := make([]*FileEntry, len(toFiles))
	claimed := make(map[*FileEntry]bool, len(fromFiles))

	for i, t := range toFiles {
		if f, ok := m.exact(t); ok {
			predecessors[i] = f
			claimed[f] = true
		}
	}

	for i, t := range toFiles {
		if predecessors[i] != nil {
			continue
		}

		var remaining []*FileEntry
		for _, f := range m.candidates(t) {
			if !claimed[f] {
				remaining = append(remaining, f)
			}
		}

		switch len(remaining) {
		case 0:
		case 1:
			predecessors[i] = remaining[0]
			claimed[remaining[0]] = true
		default:
			warning := AmbiguousMatch{To: t.Path}
			for _, f := range remaining {
				warning.Candidates = append(warning.Candidates, f.Path)
			}
			result.Warnings = append(result.Warnings, warning)
			r.logger.Warn("ambiguous match, classifying as new",
				"to", t.Path, "candidates", warning.Candidates)
		}
	}

	for i, t := range toFiles {
		f := predecessors[i]
		if f == nil {
			result.Pairings = append(result.Pairings, &Pairing{Kind: KindNew, To: t})
			continue
		}

		equal, err := r.hasher.Equal(f.AbsPath, t.AbsPath)
		if err != nil {
			return nil, err
		}
		if equal {
			result.Pairings = append(result.Pairings, &Pairing{Kind: KindSame, From: f, To: t})
			continue
		}
		result.Pairings = append(result.Pairings, &Pairing{
			Kind:      KindUpdated,
			From:      f,
			To:        t,
			SizeDelta: t.Size - f.Size,
		})
	}

	for _, f := range fromFiles {
		if !claimed[f] {
			result.Pairings = append(result.Pairings, &Pairing{Kind: KindRemoved, From: f})
		}
	}

	r.logger.Debug("reconciled trees",
		"from", from.Root, "to", to.Root,
		"pairings", len(result.Pairings), "ambiguous", len(result.Warnings))

	return result, nil
}
