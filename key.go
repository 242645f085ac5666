package sizediff

import (
	"fmt"
	"path"
	"strings"
)

// Key identifies one cache artifact by the content digests of its inputs and
// the extension of the backend that produced it. Its Name is the on-disk
// file name, "<digest>[-<digest>].<extension>", and must stay stable for
// cached artifacts to remain reusable across versions.
type Key struct {
	Digests []string
	Ext     string
}

// DeltaKey is the key of a delta artifact between two inputs.
func DeltaKey(fromDigest, toDigest, ext string) Key {
	return Key{Digests: []string{fromDigest, toDigest}, Ext: ext}
}

// StandaloneKey is the key of an artifact computed from a single input.
func StandaloneKey(digest, ext string) Key {
	return Key{Digests: []string{digest}, Ext: ext}
}

// Then returns the key of an artifact derived from this key's artifact by a
// backend with extension ext. Derived artifacts keep the input digests and
// stack extensions, so "a-b.xdelta" compressed by xz is "a-b.xdelta.xz".
func (k Key) Then(ext string) Key {
	return Key{Digests: k.Digests, Ext: k.Ext + "." + ext}
}

// Name returns the artifact file name.
func (k Key) Name() string {
	return strings.Join(k.Digests, "-") + "." + k.Ext
}

func (k Key) String() string {
	return k.Name()
}

// validate rejects keys that could not round-trip through a file name.
func (k Key) validate() error {
	if len(k.Digests) == 0 || len(k.Digests) > 2 {
		return fmt.Errorf("key needs one or two digests, got %d", len(k.Digests))
	}
	for _, d := range k.Digests {
		if d == "" || strings.ContainsAny(d, "-./\\") {
			return fmt.Errorf("invalid digest %q", d)
		}
	}
	if k.Ext == "" || strings.ContainsAny(k.Ext, "/\\") || strings.HasPrefix(k.Ext, ".") ||
		strings.Contains(k.Ext, tmpInfix) {
		return fmt.Errorf("invalid extension %q", k.Ext)
	}
	return nil
}

// ValidatePattern reports a malformed grouping pattern as an error wrapping
// ErrConfig.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return configErrorf("empty grouping pattern")
	}
	for _, part := range strings.Split(pattern, "/") {
		if part == "**" {
			continue
		}
		if _, err := path.Match(part, ""); err != nil {
			return configErrorf("grouping pattern %q: %v", pattern, err)
		}
	}
	return nil
}

// matchesGlobPattern checks if a slash path matches a pattern that may
// include "**", which matches any number of directories.
func matchesGlobPattern(p, pattern string) bool {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(p, "/")

	return matchGlobParts(pathParts, patternParts, 0, 0)
}

// matchGlobParts recursively matches path parts against pattern parts.
func matchGlobParts(pathParts, patternParts []string, pathIdx, patternIdx int) bool {
	if patternIdx >= len(patternParts) {
		return pathIdx >= len(pathParts)
	}

	if pathIdx >= len(pathParts) {
		for i := patternIdx; i < len(patternParts); i++ {
			if patternParts[i] != "**" {
				return false
			}
		}
		return true
	}

	patternPart := patternParts[patternIdx]
	pathPart := pathParts[pathIdx]

	if patternPart == "**" {
		if matchGlobParts(pathParts, patternParts, pathIdx, patternIdx+1) {
			return true
		}
		return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx)
	}

	matched, err := path.Match(patternPart, pathPart)
	if err != nil || !matched {
		return false
	}

	return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx+1)
}
