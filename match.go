package sizediff

import (
	"path"
	"regexp"
	"strings"
)

// versionSuffix matches the trailing version of a shared object name:
// "-1.2.so" style or ".so.1.2" style.
var (
	versionSuffix     = regexp.MustCompile(`(-\d+(\.\d+){0,3}\.so|\.so(\.\d+){1,3})$`)
	versionSuffixOnly = regexp.MustCompile(`^(-\d+(\.\d+){0,3}\.so|\.so(\.\d+){1,3})$`)
)

// stripVersion removes a shared object version suffix from a file name.
// It reports false when name carries no such suffix.
func stripVersion(name string) (string, bool) {
	loc := versionSuffix.FindStringIndex(name)
	if loc == nil || loc[0] == 0 {
		return name, false
	}
	return name[:loc[0]], true
}

// versionBases returns every base b such that name == b + suffix with the
// suffix fitting the version grammar. A name like "libfoo-1-2.so" yields
// "libfoo-1".
func versionBases(name string) []string {
	var bases []string
	for i := 1; i < len(name); i++ {
		if name[i] != '-' && name[i] != '.' {
			continue
		}
		if versionSuffixOnly.MatchString(name[i:]) {
			bases = append(bases, name[:i])
		}
	}
	return bases
}

// libexecNormal maps /libexec/ directories onto /lib/ so that helpers moved
// between the two compare equal.
func libexecNormal(p string) string {
	return strings.ReplaceAll("/"+p, "/libexec/", "/lib/")
}

// matcher indexes the regular files of a "from" tree for the fallback
// pairing rules.
type matcher struct {
	byPath map[string]*FileEntry
	byBase map[string][]*FileEntry // version-stripped basename
	byNorm map[string][]*FileEntry // libexec-normalized path

	fromAliases *AliasTable
	toAliases   *AliasTable
}

func newMatcher(fromFiles []*FileEntry, fromAliases, toAliases *AliasTable) *matcher {
	m := &matcher{
		byPath:      make(map[string]*FileEntry, len(fromFiles)),
		byBase:      make(map[string][]*FileEntry),
		byNorm:      make(map[string][]*FileEntry, len(fromFiles)),
		fromAliases: fromAliases,
		toAliases:   toAliases,
	}
	for _, f := range fromFiles {
		m.byPath[f.Path] = f
		for _, base := range versionBases(path.Base(f.Path)) {
			m.byBase[base] = append(m.byBase[base], f)
		}
		norm := libexecNormal(f.Path)
		m.byNorm[norm] = append(m.byNorm[norm], f)
	}
	return m
}

// exact returns the "from" file at the identical path.
func (m *matcher) exact(to *FileEntry) (*FileEntry, bool) {
	f, ok := m.byPath[to.Path]
	return f, ok
}

// candidates returns the "from" files that the fallback rules pair with to,
// in rule order without duplicates: versioned shared object, libexec/lib
// normalization, then symlink aliases in either tree.
func (m *matcher) candidates(to *FileEntry) []*FileEntry {
	var out []*FileEntry
	seen := make(map[*FileEntry]bool)
	add := func(f *FileEntry) {
		if f == nil || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}

	if base, ok := stripVersion(path.Base(to.Path)); ok {
		for _, f := range m.byBase[base] {
			add(f)
		}
	}

	for _, f := range m.byNorm[libexecNormal(to.Path)] {
		add(f)
	}

	// "to" path was a symlink in the old tree: the file replaced the link.
	if target, ok := m.fromAliases.Target(to.Path); ok {
		add(m.byPath[target])
	}
	// old paths that became symlinks to this file in the new tree.
	for _, link := range m.toAliases.Aliases(to.Path) {
		add(m.byPath[link])
	}

	return out
}
