package sizediff

// AliasTable indexes the symlinks of one tree by the path they resolve to.
// It is read-only after construction.
type AliasTable struct {
	links   map[string][]string // target -> links pointing at it
	targets map[string]string   // link -> target
}

// NewAliasTable builds the alias index for tree.
func NewAliasTable(tree *FileTree) *AliasTable {
	a := &AliasTable{
		links:   make(map[string][]string),
		targets: make(map[string]string),
	}
	for _, e := range tree.Entries {
		if !e.IsSymlink {
			continue
		}
		a.links[e.LinkTarget] = append(a.links[e.LinkTarget], e.Path)
		a.targets[e.Path] = e.LinkTarget
	}
	return a
}

// Aliases returns the symlinks that resolve to target, in listing order.
func (a *AliasTable) Aliases(target string) []string {
	return a.links[target]
}

// Target returns what the symlink at link resolves to.
func (a *AliasTable) Target(link string) (string, bool) {
	t, ok := a.targets[link]
	return t, ok
}

// Len returns the number of symlinks indexed.
func (a *AliasTable) Len() int {
	return len(a.targets)
}
