package sizediff

import (
	"fmt"
	"time"
)

// Kind classifies a file between the two trees.
type Kind string

const (
	KindNew     Kind = "new"
	KindRemoved Kind = "removed"
	KindSame    Kind = "same"
	KindUpdated Kind = "updated"
)

// Kinds lists every classification in report order.
var Kinds = []Kind{KindNew, KindRemoved, KindUpdated, KindSame}

// Pairing is the classification of one file. From is nil for New, To is nil
// for Removed; Same and Updated carry both.
type Pairing struct {
	Kind Kind       `json:"kind"`
	From *FileEntry `json:"from,omitempty"`
	To   *FileEntry `json:"to,omitempty"`

	// SizeDelta is To.Size - From.Size for Updated pairings.
	SizeDelta int64 `json:"sizeDelta,omitempty"`

	// Results holds at most one result per backend, keyed by backend name.
	// Only backends that were enabled, available and applicable appear.
	Results map[string]BackendResult `json:"results,omitempty"`
}

// Path returns the path the pairing is reported under: the "to" path when
// there is one, the "from" path for Removed files.
func (p *Pairing) Path() string {
	if p.To != nil {
		return p.To.Path
	}
	return p.From.Path
}

// Size returns the raw size the pairing contributes to its category.
func (p *Pairing) Size() int64 {
	if p.To != nil {
		return p.To.Size
	}
	return p.From.Size
}

func (p *Pairing) String() string {
	switch p.Kind {
	case KindSame, KindUpdated:
		if p.From.Path != p.To.Path {
			return fmt.Sprintf("%s %s -> %s", p.Kind, p.From.Path, p.To.Path)
		}
	}
	return fmt.Sprintf("%s %s", p.Kind, p.Path())
}

// BackendResult is the outcome of one backend on one pairing.
type BackendResult struct {
	Backend string `json:"backend"`
	// Size is the artifact size in bytes.
	Size int64 `json:"size"`
	// Elapsed is the wall time of this call. A cache hit reports the
	// lookup time, never the time of the run that produced the artifact.
	Elapsed time.Duration `json:"elapsed"`
	Cached  bool          `json:"cached"`
	// Artifact is the cache path of the produced artifact.
	Artifact string `json:"artifact"`
}

// ElapsedMicros returns Elapsed in microseconds.
func (r BackendResult) ElapsedMicros() int64 {
	return r.Elapsed.Microseconds()
}
